package assessor

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// IsReflected reports whether payload appears verbatim in body.
func IsReflected(body, payload string) bool {
	if body == "" || payload == "" {
		return false
	}
	return strings.Contains(body, payload)
}

// IsLengthAnomaly reports whether the probe length differs from the baseline
// by strictly more than threshold.
func IsLengthAnomaly(baseLen, probeLen, threshold int) bool {
	delta := probeLen - baseLen
	if delta < 0 {
		delta = -delta
	}
	return delta > threshold
}

// Similarity returns a ratio in [0, 1] of how alike a and b are: twice the
// number of characters the two share divided by their combined length.
func Similarity(a, b string) float64 {
	total := len([]rune(a)) + len([]rune(b))
	if total == 0 {
		return 1
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	common := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			common += len([]rune(d.Text))
		}
	}
	return 2 * float64(common) / float64(total)
}
