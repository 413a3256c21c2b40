package highlights

import "sort"

// Pick keeps the n best scoring lines, returned in their original order.
// Ties go to the earlier line. Zero-score lines are never picked.
func Pick(lines []string, n int) []string {
	if n <= 0 || len(lines) == 0 {
		return nil
	}
	type scored struct {
		i int
		s float64
	}
	cands := make([]scored, 0, len(lines))
	for i, l := range lines {
		if s := Score(l); s > 0 {
			cands = append(cands, scored{i: i, s: s})
		}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].s > cands[b].s })
	if len(cands) > n {
		cands = cands[:n]
	}
	sort.Slice(cands, func(a, b int) bool { return cands[a].i < cands[b].i })

	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, lines[c.i])
	}
	return out
}
