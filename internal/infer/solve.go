package infer

import (
	"fmt"
	"slices"
	"strconv"

	"regionck/internal/constraints"
	"regionck/internal/regions"
	"regionck/internal/ty"
)

// Solve runs propagation and every check. In closure mode, violations that
// the creator can discharge are returned as requirements instead of errors;
// the requirements are nil when there are none. Solve may be called once.
func (cx *Context) Solve(isClosure bool) (*ClosureRegionRequirements, RegionErrors) {
	if cx.solved {
		panic(fmt.Errorf("region inference context solved twice"))
	}
	cx.solved = true

	cx.propagate()

	var reqs *[]ClosureOutlivesRequirement
	var buf []ClosureOutlivesRequirement
	if isClosure {
		reqs = &buf
	}
	var errs RegionErrors

	cx.checkTypeTests(reqs, &errs)

	if cx.subsetErrors != nil {
		cx.checkPoloniusSubsetErrors(reqs, &errs)
	} else {
		cx.checkUniversalRegions(reqs, &errs)
	}

	if len(errs) == 0 {
		cx.checkMemberConstraints(&errs)
	}

	if len(buf) == 0 {
		return nil, errs
	}
	return &ClosureRegionRequirements{
		NumExternalVids:      cx.universal.NumGlobalAndExternalRegions(),
		OutlivesRequirements: buf,
	}, errs
}

// Solved reports whether Solve has run.
func (cx *Context) Solved() bool { return cx.solved }

type relationResult uint8

const (
	relationOk relationResult = iota
	relationPropagated
	relationError
)

func (cx *Context) checkUniversalRegions(reqs *[]ClosureOutlivesRequirement, errs *RegionErrors) {
	span := cx.beginPass("universal_regions")
	before := len(*errs)
	for i, def := range cx.definitions {
		fr := regions.VidFromInt(i)
		switch def.Origin.Kind {
		case regions.OriginFreeRegion:
			cx.checkUniversalRegion(fr, reqs, errs)
		case regions.OriginPlaceholder:
			cx.checkBoundUniversalRegion(fr, def.Origin.Placeholder, errs)
		case regions.OriginExistential:
		}
	}
	span.WithExtra("errors", strconv.Itoa(len(*errs)-before)).End("")
}

// checkUniversalRegion verifies that every universal region in the value of
// longer is known to be outlived by it. Non-representative members of an
// SCC only check against the representative.
func (cx *Context) checkUniversalRegion(longer regions.RegionVid, reqs *[]ClosureOutlivesRequirement, errs *RegionErrors) {
	scc := cx.sccs.SccOf(longer)
	if cx.sccUniverses[scc] != regions.RootUniverse {
		panic(fmt.Errorf("universal region %s is in universe %s, want root", longer, cx.sccUniverses[scc]))
	}

	if rep := cx.sccRepresentatives[scc]; rep != longer {
		if cx.checkUniversalRegionRelation(longer, rep, reqs) == relationError {
			*errs = append(*errs, RegionError{
				LongerFR:   longer,
				ShorterFR:  rep,
				Origin:     regions.FreeRegion(),
				IsReported: true,
			})
		}
		return
	}

	reported := false
	for _, shorter := range cx.values.UniversalRegionsOutlivedBy(scc) {
		if cx.checkUniversalRegionRelation(longer, shorter, reqs) != relationError {
			continue
		}
		*errs = append(*errs, RegionError{
			LongerFR:   longer,
			ShorterFR:  shorter,
			Origin:     regions.FreeRegion(),
			IsReported: !reported,
		})
		reported = true
	}
}

func (cx *Context) checkUniversalRegionRelation(longer, shorter regions.RegionVid, reqs *[]ClosureOutlivesRequirement) relationResult {
	if cx.relations.Outlives(longer, shorter) {
		return relationOk
	}
	return cx.tryPropagateUniversalRegionError(longer, shorter, reqs)
}

// tryPropagateUniversalRegionError turns longer: shorter into requirements
// on the creator's regions when longer has a non-local lower bound.
func (cx *Context) tryPropagateUniversalRegionError(longer, shorter regions.RegionVid, reqs *[]ClosureOutlivesRequirement) relationResult {
	if reqs == nil {
		return relationError
	}
	// Subset errors from an external solver may name any region.
	if !cx.universal.IsUniversalRegion(longer) || !cx.universal.IsUniversalRegion(shorter) {
		return relationError
	}
	frMinus, ok := cx.relations.NonLocalLowerBound(longer)
	if !ok {
		return relationError
	}
	// No path means nothing better to blame than the pair itself.
	blame, found := cx.TryFindOutlivesBlameSpan(longer, regions.FreeRegion(), shorter)
	if !found {
		blame = Blame{Category: constraints.CategoryBoring}
	}
	for _, frPlus := range cx.relations.NonLocalUpperBounds(shorter) {
		*reqs = append(*reqs, ClosureOutlivesRequirement{
			Subject:            SubjectRegion(frMinus),
			OutlivedFreeRegion: frPlus,
			BlameSpan:          blame.Span,
			Category:           blame.Category,
		})
	}
	return relationPropagated
}

// checkBoundUniversalRegion reports the first element of the placeholder's
// value other than the placeholder itself.
func (cx *Context) checkBoundUniversalRegion(longer regions.RegionVid, p regions.PlaceholderRegion, errs *RegionErrors) {
	scc := cx.sccs.SccOf(longer)
	for _, elem := range cx.values.ElementsContainedIn(scc) {
		if elem.Kind == regions.ElementPlaceholder && elem.Placeholder == p {
			continue
		}
		*errs = append(*errs, BoundUniversalRegionError{
			LongerFR:     longer,
			ErrorElement: elem,
			Origin:       regions.Placeholder(p),
		})
		return
	}
}

// checkPoloniusSubsetErrors replaces checkUniversalRegions when the subset
// errors were computed elsewhere.
func (cx *Context) checkPoloniusSubsetErrors(reqs *[]ClosureOutlivesRequirement, errs *RegionErrors) {
	span := cx.beginPass("subset_errors")
	pairs := make([]ClosureBoundKey, 0, len(cx.subsetErrors))
	for _, se := range cx.subsetErrors {
		cx.checkVid(se.Longer)
		cx.checkVid(se.Shorter)
		pairs = append(pairs, ClosureBoundKey{Sup: se.Longer, Sub: se.Shorter})
	}
	slices.SortFunc(pairs, func(a, b ClosureBoundKey) int {
		if a.Sup != b.Sup {
			return int(a.Sup) - int(b.Sup)
		}
		return int(a.Sub) - int(b.Sub)
	})
	pairs = slices.Compact(pairs)

	for _, pair := range pairs {
		if cx.tryPropagateUniversalRegionError(pair.Sup, pair.Sub, reqs) == relationError {
			*errs = append(*errs, RegionError{
				LongerFR:   pair.Sup,
				ShorterFR:  pair.Sub,
				Origin:     regions.FreeRegion(),
				IsReported: true,
			})
		}
	}

	for i, def := range cx.definitions {
		if def.Origin.Kind == regions.OriginPlaceholder {
			cx.checkBoundUniversalRegion(regions.VidFromInt(i), def.Origin.Placeholder, errs)
		}
	}
	span.WithExtra("pairs", strconv.Itoa(len(pairs))).End("")
}

// checkMemberConstraints reports member regions whose value equals none of
// their choices.
func (cx *Context) checkMemberConstraints(errs *RegionErrors) {
	span := cx.beginPass("member_constraints")
	for _, idx := range cx.memberVids.AllIndices() {
		mc := cx.memberVids.At(idx)
		ok := slices.ContainsFunc(mc.ChoiceRegions, func(c regions.RegionVid) bool {
			return cx.evalEqual(c, mc.MemberRegion)
		})
		if ok {
			continue
		}
		*errs = append(*errs, UnexpectedHiddenRegion{
			Span:         mc.DefinitionSpan,
			HiddenTy:     mc.HiddenTy,
			MemberRegion: ty.ReVar(mc.MemberRegion),
		})
	}
	span.WithExtra("members", strconv.Itoa(cx.memberVids.Len())).End("")
}
