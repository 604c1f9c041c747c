package splithttp

import "github.com/tanq16/splitfetch/internal/utils"

// PlanFragments splits [0, totalSize) into count contiguous inclusive ranges.
// The last range absorbs the division remainder. Callers guarantee
// 0 < count <= totalSize.
func PlanFragments(totalSize uint64, count int) []utils.FragmentSpec {
	n := uint64(count)
	base := totalSize / n
	specs := make([]utils.FragmentSpec, 0, count)
	for i := range n {
		start := i * base
		end := start + base - 1
		if i == n-1 {
			end = totalSize - 1
		}
		specs = append(specs, utils.FragmentSpec{
			Index:     int(i),
			StartByte: start,
			EndByte:   end,
		})
	}
	return specs
}
