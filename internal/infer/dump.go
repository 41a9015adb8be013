package infer

import (
	"bufio"
	"fmt"
	"io"
	"slices"

	"regionck/internal/constraints"
	"regionck/internal/regions"
)

const regionWidth = 8

// Dump writes the free region mapping, the inferred values and the input
// constraints in a stable, line-oriented format.
func (cx *Context) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "| Free Region Mapping")
	for i, def := range cx.definitions {
		if def.Origin.Kind != regions.OriginFreeRegion {
			continue
		}
		r := regions.VidFromInt(i)
		class, _ := cx.universal.RegionClassification(r)
		fmt.Fprintf(bw, "| %-*s | %-8s | %v\n", regionWidth, r, class, cx.relations.RegionsOutlivedBy(r))
	}
	fmt.Fprintln(bw, "|")

	fmt.Fprintln(bw, "| Inferred Region Values")
	for i := range cx.definitions {
		r := regions.VidFromInt(i)
		fmt.Fprintf(bw, "| %-*s | %-4s | %s\n", regionWidth, r, cx.RegionUniverse(r), cx.RegionValueStr(r))
	}
	fmt.Fprintln(bw, "|")

	fmt.Fprintln(bw, "| Inference Constraints")
	for i := range cx.definitions {
		r := regions.VidFromInt(i)
		if v := cx.liveness.RegionValueStr(r); v != "{}" {
			fmt.Fprintf(bw, "| %s live at %s\n", r, v)
		}
	}
	for _, c := range sortedConstraints(cx.constraints.All()) {
		fmt.Fprintf(bw, "| %s: %s due to %s at %s\n", c.Sup, c.Sub, c.Category, c.Locations)
	}
	return bw.Flush()
}

func sortedConstraints(cs []constraints.OutlivesConstraint) []constraints.OutlivesConstraint {
	out := slices.Clone(cs)
	slices.SortStableFunc(out, func(a, b constraints.OutlivesConstraint) int {
		switch {
		case a.Sup != b.Sup:
			return int(a.Sup) - int(b.Sup)
		case a.Sub != b.Sub:
			return int(a.Sub) - int(b.Sub)
		case a.Locations.Less(b.Locations):
			return -1
		case b.Locations.Less(a.Locations):
			return 1
		default:
			return int(a.Category) - int(b.Category)
		}
	})
	return out
}
