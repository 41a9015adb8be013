package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Region inference results
	RegInfo         Code = 1000
	RegOutlives     Code = 1001
	RegPlaceholder  Code = 1002
	RegTypeTest     Code = 1003
	RegHiddenRegion Code = 1004
	RegRequirement  Code = 1005
	RegSuppressed   Code = 1006

	// Fixture loading and validation
	FixInfo           Code = 2000
	FixDecode         Code = 2001
	FixSchema         Code = 2002
	FixUnknownRegion  Code = 2003
	FixBadLocation    Code = 2004
	FixBadType        Code = 2005
	FixBadBound       Code = 2006
	FixExpectMismatch Code = 2007

	IOLoadFileError Code = 4001

	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:       "Unknown error",
		RegInfo:           "Region inference information",
		RegOutlives:       "lifetime may not live long enough",
		RegPlaceholder:    "higher-ranked region escapes its binder",
		RegTypeTest:       "type may not live long enough",
		RegHiddenRegion:   "hidden type captures a region it may not name",
		RegRequirement:    "requirement propagated to the closure's creator",
		RegSuppressed:     "duplicate of an earlier region error",
		FixInfo:           "Fixture information",
		FixDecode:         "cannot decode fixture",
		FixSchema:         "unsupported fixture schema",
		FixUnknownRegion:  "unknown region name",
		FixBadLocation:    "location outside the body",
		FixBadType:        "cannot parse type",
		FixBadBound:       "cannot parse verify bound",
		FixExpectMismatch: "result differs from the fixture's expectation",
		IOLoadFileError:   "I/O load file error",
		ObsInfo:           "Observability information",
		ObsTimings:        "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("REG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("FIX%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
