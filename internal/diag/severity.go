package diag

// Severity ranks a diagnostic. A fixture whose bag holds an SevError fails.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// SeverityOf is the severity a code is reported with. Suppressed
// duplicates of a region error and requirements handed to a closure's
// creator do not fail the body on their own.
func SeverityOf(c Code) Severity {
	switch c {
	case RegInfo, RegRequirement, RegSuppressed, FixInfo, ObsInfo, ObsTimings:
		return SevInfo
	case UnknownCode:
		return SevWarning
	}
	return SevError
}
