package ty

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"regionck/internal/regions"
)

// Resolver maps a region name such as 'a or '?3 to a Region.
type Resolver func(name string) (Region, error)

// DefaultResolver understands 'static, '_ and '?N; every other name stays
// a named region.
func DefaultResolver(name string) (Region, error) {
	switch {
	case name == "'static":
		return ReStatic(), nil
	case name == "'_":
		return ReErased(), nil
	case strings.HasPrefix(name, "'?"):
		n, err := strconv.Atoi(name[2:])
		if err != nil || n < 0 {
			return Region{}, fmt.Errorf("bad region variable %q", name)
		}
		return ReVar(regions.VidFromInt(n)), nil
	default:
		return ReNamed(name), nil
	}
}

var primitives = map[string]struct{}{
	"bool": {}, "char": {}, "str": {}, "never": {},
	"i8": {}, "i16": {}, "i32": {}, "i64": {}, "isize": {},
	"u8": {}, "u16": {}, "u32": {}, "u64": {}, "usize": {},
	"f32": {}, "f64": {},
}

// Parse reads a type expression:
//
//	&'a mut T    (T, U)    Vec<'a, T>    T::Item    T<'a>::Item    u32
//
// Single upper-case identifiers (optionally followed by digits) are type
// parameters.
func Parse(src string, resolve Resolver) (Ty, error) {
	if resolve == nil {
		resolve = DefaultResolver
	}
	p := &parser{src: src, resolve: resolve}
	t, err := p.ty()
	if err != nil {
		return Ty{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Ty{}, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

// ParseRegion reads a single region name.
func ParseRegion(src string, resolve Resolver) (Region, error) {
	if resolve == nil {
		resolve = DefaultResolver
	}
	p := &parser{src: strings.TrimSpace(src), resolve: resolve}
	r, err := p.region()
	if err != nil {
		return Region{}, err
	}
	if p.pos != len(p.src) {
		return Region{}, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return r, nil
}

type parser struct {
	src     string
	pos     int
	resolve Resolver
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("type %q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) eat(s string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *parser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

func (p *parser) region() (Region, error) {
	p.skipSpace()
	if p.peek() != '\'' {
		return Region{}, p.errorf("expected region")
	}
	start := p.pos
	p.pos++
	if p.pos < len(p.src) && p.src[p.pos] == '?' {
		p.pos++
	}
	if p.ident() == "" {
		return Region{}, p.errorf("empty region name")
	}
	return p.resolve(p.src[start:p.pos])
}

func (p *parser) ty() (Ty, error) {
	switch p.peek() {
	case '&':
		p.pos++
		r := ReErased()
		if p.peek() == '\'' {
			var err error
			if r, err = p.region(); err != nil {
				return Ty{}, err
			}
		}
		mut := false
		save := p.pos
		if p.ident() == "mut" {
			mut = true
		} else {
			p.pos = save
		}
		inner, err := p.ty()
		if err != nil {
			return Ty{}, err
		}
		return Ref(r, inner, mut), nil
	case '(':
		p.pos++
		var elems []Ty
		for p.peek() != ')' {
			e, err := p.ty()
			if err != nil {
				return Ty{}, err
			}
			elems = append(elems, e)
			if !p.eat(",") {
				break
			}
		}
		if !p.eat(")") {
			return Ty{}, p.errorf("expected )")
		}
		return Tuple(elems...), nil
	case 0:
		return Ty{}, p.errorf("unexpected end of input")
	}
	return p.path()
}

func (p *parser) path() (Ty, error) {
	name := p.ident()
	if name == "" {
		return Ty{}, p.errorf("expected type")
	}
	var rs []Region
	var args []Ty
	if p.eat("<") {
		for {
			if p.peek() == '\'' {
				r, err := p.region()
				if err != nil {
					return Ty{}, err
				}
				rs = append(rs, r)
			} else {
				a, err := p.ty()
				if err != nil {
					return Ty{}, err
				}
				args = append(args, a)
			}
			if !p.eat(",") {
				break
			}
		}
		if !p.eat(">") {
			return Ty{}, p.errorf("expected >")
		}
	}
	if !p.eat("::") {
		return classify(name, rs, args), nil
	}
	if len(args) > 0 {
		return Ty{}, p.errorf("projection base %s takes only region arguments", name)
	}
	t := classify(name, nil, nil)
	first := true
	for {
		item := p.ident()
		if item == "" {
			return Ty{}, p.errorf("expected associated item name")
		}
		if first {
			t = Projection(t, item, rs)
			first = false
		} else {
			t = Projection(t, item, nil)
		}
		if !p.eat("::") {
			return t, nil
		}
	}
}

func classify(name string, rs []Region, args []Ty) Ty {
	if len(rs) == 0 && len(args) == 0 {
		if _, ok := primitives[name]; ok {
			return Prim(name)
		}
		if isParamName(name) {
			return Param(name)
		}
	}
	return Adt(name, rs, args)
}

func isParamName(name string) bool {
	r, size := utf8.DecodeRuneInString(name)
	if !unicode.IsUpper(r) {
		return false
	}
	for _, c := range name[size:] {
		if !unicode.IsDigit(c) {
			return false
		}
	}
	return true
}
