package policy

// Result is a weighted correctness score
type Result struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// Score sums weights over the judged keys. Keys missing from weights count
// with weight 1. Total covers every judged key, Score only the true ones.
func Score(judgments map[string]bool, weights map[string]int) Result {
	var r Result
	for key, ok := range judgments {
		w := 1
		if weights != nil {
			if configured, found := weights[key]; found {
				w = configured
			}
		}
		r.Total += w
		if ok {
			r.Score += w
		}
	}
	return r
}

// Pct returns the rounded percentage, 0 when nothing was judged
func (r Result) Pct() int {
	if r.Total <= 0 {
		return 0
	}
	return (r.Score*100 + r.Total/2) / r.Total
}
