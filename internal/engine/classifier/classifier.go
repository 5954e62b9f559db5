package classifier

import (
	"math"
	"sort"
)

// DefaultScale is the logit scale applied to cosine similarities before the
// softmax. It sharpens the gaps between close similarity scores.
const DefaultScale = 100.0

// Ranking is a probability distribution over candidate labels.
type Ranking struct {
	// Probabilities is index-aligned with the scores passed to Rank.
	Probabilities []float64
	// Order lists score indices by descending probability; ties keep input order.
	Order []int
	// Best is the index of the maximum probability, -1 when there were no scores.
	// Ties resolve to the first occurrence in input order.
	Best int
}

// Ranker converts raw similarity scores into ranked probabilities with a
// scaled softmax.
type Ranker struct {
	Scale float64
}

// New creates a Ranker with the given logit scale. A non-positive scale falls
// back to DefaultScale.
func New(scale float64) *Ranker {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = DefaultScale
	}
	return &Ranker{Scale: scale}
}

// Rank applies softmax(score*Scale) over all scores. It must be given the
// complete score set for a request: the result sums to 1 within floating-point
// tolerance and preserves the strict ordering of the inputs.
func (r *Ranker) Rank(scores []float32) Ranking {
	if len(scores) == 0 {
		return Ranking{Best: -1}
	}

	// Subtracting the max logit keeps exp() in range: exp(1.0*100) overflows
	// float32 and loses precision in the sum.
	maxLogit := math.Inf(-1)
	for _, s := range scores {
		if l := float64(s) * r.Scale; l > maxLogit {
			maxLogit = l
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(float64(s)*r.Scale - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	return Ranking{Probabilities: probs, Order: order, Best: best}
}
