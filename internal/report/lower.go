package report

import (
	"fmt"

	"regionck/internal/constraints"
	"regionck/internal/diag"
	"regionck/internal/infer"
	"regionck/internal/regions"
	"regionck/internal/source"
)

// Lower turns the outcome of one Solve into diagnostics, sorted and
// deduplicated. Every span is stamped with file.
func Lower(cx *infer.Context, errs infer.RegionErrors, reqs *infer.ClosureRegionRequirements, file source.FileID) *diag.Bag {
	n := len(errs) + 1
	if reqs != nil {
		n += len(reqs.OutlivesRequirements)
	}
	bag := diag.NewBag(n)
	l := &lowerer{cx: cx, file: file, r: diag.NewDedupReporter(diag.BagReporter{Bag: bag})}
	for _, e := range errs {
		l.lowerError(e)
	}
	if reqs != nil {
		for _, req := range reqs.OutlivesRequirements {
			l.lowerRequirement(req)
		}
	}
	bag.Sort()
	return bag
}

type lowerer struct {
	cx   *infer.Context
	file source.FileID
	r    diag.Reporter
}

// name prefers the declared name of a universal region.
func (l *lowerer) name(r regions.RegionVid) string {
	if n := l.cx.UniversalRegions().Name(r); n != "" {
		return n
	}
	return r.String()
}

func (l *lowerer) stamp(sp source.Span) source.Span {
	sp.File = l.file
	return sp
}

type blame struct {
	category    constraints.Category
	fromClosure bool
	span        source.Span
}

// blameOutlives tolerates pairs with no constraint path between them,
// which happens for pairs handed in as subset errors.
func (l *lowerer) blameOutlives(longer regions.RegionVid, origin regions.Origin, shorter regions.RegionVid) (blame, bool) {
	b, ok := l.cx.TryFindOutlivesBlameSpan(longer, origin, shorter)
	if !ok {
		return blame{span: l.stamp(source.Span{})}, false
	}
	return blame{category: b.Category, fromClosure: b.FromClosure, span: l.stamp(b.Span)}, true
}

func (b blame) note() string {
	if b.fromClosure {
		return fmt.Sprintf("%s inside a closure requires this", b.category)
	}
	return fmt.Sprintf("%s requires this", b.category)
}

func (l *lowerer) lowerError(e infer.RegionErrorKind) {
	switch e := e.(type) {
	case infer.RegionError:
		code := diag.RegOutlives
		if !e.IsReported {
			code = diag.RegSuppressed
		}
		msg := fmt.Sprintf("lifetime may not live long enough: %s must outlive %s", l.name(e.LongerFR), l.name(e.ShorterFR))
		b, ok := l.blameOutlives(e.LongerFR, e.Origin, e.ShorterFR)
		rb := diag.ReportCode(l.r, code, b.span, msg)
		if ok {
			rb.WithNote(b.span, b.note())
		}
		rb.Emit()

	case infer.BoundUniversalRegionError:
		msg := fmt.Sprintf("higher-ranked lifetime error: %s would have to contain %s", l.name(e.LongerFR), e.ErrorElement)
		primary := l.stamp(source.Span{})
		var notes []blame
		if e.ErrorElement.Kind == regions.ElementLocation {
			primary = l.stamp(l.cx.SpanOf(constraints.Single(e.ErrorElement.Location)))
		} else {
			errRegion := l.cx.RegionFromElement(e.LongerFR, e.ErrorElement)
			if b, ok := l.blameOutlives(e.LongerFR, e.Origin, errRegion); ok {
				primary = b.span
				notes = append(notes, b)
			}
		}
		rb := diag.ReportError(l.r, diag.RegPlaceholder, primary, msg)
		for _, b := range notes {
			rb.WithNote(b.span, b.note())
		}
		rb.Emit()

	case infer.TypeTestError:
		tt := e.TypeTest
		sp := l.stamp(l.cx.SpanOf(tt.Locations))
		diag.ReportError(l.r, diag.RegTypeTest, sp, fmt.Sprintf("the type `%s` may not live long enough", tt.GenericKind)).
			WithNote(sp, fmt.Sprintf("it must outlive %s, proven only if %s", l.name(tt.LowerBound), tt.VerifyBound)).
			Emit()

	case infer.UnexpectedHiddenRegion:
		sp := l.stamp(e.Span)
		diag.ReportError(l.r, diag.RegHiddenRegion, sp,
			fmt.Sprintf("hidden type `%s` captures lifetime %s", e.HiddenTy, e.MemberRegion)).Emit()

	default:
		panic(fmt.Errorf("unknown region error %T", e))
	}
}

func (l *lowerer) lowerRequirement(req infer.ClosureOutlivesRequirement) {
	subject := req.Subject.String()
	if !req.Subject.IsTy {
		subject = l.name(req.Subject.Region)
	}
	sp := l.stamp(req.BlameSpan)
	diag.ReportCode(l.r, diag.RegRequirement, sp,
		fmt.Sprintf("closure requires %s: %s", subject, l.name(req.OutlivedFreeRegion))).
		WithNote(sp, fmt.Sprintf("%s requires this", req.Category)).
		Emit()
}
