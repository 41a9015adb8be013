// Package fixture reads the description of one region inference problem
// from TOML or YAML and turns it into an infer.Input.
package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"regionck/internal/diag"
)

// SchemaConstraint is the range of fixture schema versions this build reads.
const SchemaConstraint = "^1.0"

// Format is the encoding of a fixture file.
type Format uint8

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return 0, false
}

// File mirrors the on-disk layout. Declaration order of Regions is the
// RegionVid order.
type File struct {
	Schema  string `toml:"schema" yaml:"schema"`
	Name    string `toml:"name" yaml:"name"`
	Closure bool   `toml:"closure" yaml:"closure"`
	Blocks  []int  `toml:"blocks" yaml:"blocks"`
	FnBody  string `toml:"fn_body" yaml:"fn_body"`
	// Polonius switches the engine to the supplied subset errors even when
	// there are none.
	Polonius bool `toml:"polonius" yaml:"polonius"`

	Regions       []Region            `toml:"region" yaml:"region"`
	Relations     []Relation          `toml:"relation" yaml:"relation"`
	Outlives      []Outlives          `toml:"outlives" yaml:"outlives"`
	Live          []Live              `toml:"live" yaml:"live"`
	Members       []Member            `toml:"member" yaml:"member"`
	TypeTests     []TypeTest          `toml:"type_test" yaml:"type_test"`
	ClosureBounds []ClosureBound      `toml:"closure_bound" yaml:"closure_bound"`
	SubsetErrors  []SubsetError       `toml:"subset_error" yaml:"subset_error"`
	Spans         map[string][]uint32 `toml:"spans" yaml:"spans"`

	Expect *Expect `toml:"expect" yaml:"expect"`
}

type Region struct {
	Name       string `toml:"name" yaml:"name"`
	Kind       string `toml:"kind" yaml:"kind"`
	Universe   uint32 `toml:"universe" yaml:"universe"`
	Bound      uint32 `toml:"bound" yaml:"bound"`
	FromForall bool   `toml:"from_forall" yaml:"from_forall"`
}

type Relation struct {
	Sup string `toml:"sup" yaml:"sup"`
	Sub string `toml:"sub" yaml:"sub"`
}

type Outlives struct {
	Sup      string   `toml:"sup" yaml:"sup"`
	Sub      string   `toml:"sub" yaml:"sub"`
	Category string   `toml:"category" yaml:"category"`
	At       string   `toml:"at" yaml:"at"`
	Span     []uint32 `toml:"span" yaml:"span"`
}

type Live struct {
	Region string   `toml:"region" yaml:"region"`
	At     []string `toml:"at" yaml:"at"`
}

type Member struct {
	Region  string   `toml:"region" yaml:"region"`
	Choices []string `toml:"choices" yaml:"choices"`
	Opaque  string   `toml:"opaque" yaml:"opaque"`
	Hidden  string   `toml:"hidden" yaml:"hidden"`
	Span    []uint32 `toml:"span" yaml:"span"`
}

type TypeTest struct {
	Ty    string   `toml:"ty" yaml:"ty"`
	Lower string   `toml:"lower" yaml:"lower"`
	Bound string   `toml:"bound" yaml:"bound"`
	At    string   `toml:"at" yaml:"at"`
	Span  []uint32 `toml:"span" yaml:"span"`
}

// ClosureBound restores the blame of an edge a nested closure introduced.
type ClosureBound struct {
	At       string   `toml:"at" yaml:"at"`
	Sup      string   `toml:"sup" yaml:"sup"`
	Sub      string   `toml:"sub" yaml:"sub"`
	Category string   `toml:"category" yaml:"category"`
	Span     []uint32 `toml:"span" yaml:"span"`
}

type SubsetError struct {
	Longer  string `toml:"longer" yaml:"longer"`
	Shorter string `toml:"shorter" yaml:"shorter"`
	At      string `toml:"at" yaml:"at"`
}

// Error is a fixture problem tagged with the diagnostic code it reports as.
type Error struct {
	Code diag.Code
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Msg)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

func errorf(code diag.Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the diagnostic code of a fixture error.
func CodeOf(err error) diag.Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return diag.UnknownCode
}

// Load reads and decodes a fixture file.
func Load(path string) (*File, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, &Error{Code: diag.FixDecode, Path: path, Msg: "unknown fixture extension"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: diag.IOLoadFileError, Path: path, Msg: "read fixture", Err: err}
	}
	f, err := Decode(data, format)
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) && fe.Path == "" {
			fe.Path = path
		}
		return nil, err
	}
	return f, nil
}

// Decode parses data and checks the schema version. Unknown keys are
// rejected in both formats.
func Decode(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, &Error{Code: diag.FixDecode, Msg: "decode toml", Err: err}
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errorf(diag.FixDecode, "unknown keys: %s", strings.Join(keys, ", "))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, &Error{Code: diag.FixDecode, Msg: "decode yaml", Err: err}
		}
	default:
		return nil, errorf(diag.FixDecode, "unknown format %d", format)
	}
	if err := CheckSchema(f.Schema); err != nil {
		return nil, err
	}
	return &f, nil
}

// CheckSchema accepts versions matching SchemaConstraint.
func CheckSchema(schema string) error {
	if schema == "" {
		return errorf(diag.FixSchema, "missing schema version")
	}
	v, err := semver.NewVersion(schema)
	if err != nil {
		return &Error{Code: diag.FixSchema, Msg: fmt.Sprintf("bad schema version %q", schema), Err: err}
	}
	c, err := semver.NewConstraint(SchemaConstraint)
	if err != nil {
		panic(fmt.Errorf("fixture: bad schema constraint: %w", err))
	}
	if !c.Check(v) {
		return errorf(diag.FixSchema, "schema %s does not satisfy %s", v, SchemaConstraint)
	}
	return nil
}
