package results

// Holder is anything that carries a results payload, such as a stored score.
type Holder interface {
	RawResults() Raw
}

// Normalize returns the canonical boolean sequence for r. The returned slice
// is never nil and is owned by the caller.
func Normalize(r Raw) []bool {
	return clone(r.values)
}

// HasCorrectAnswers reports whether at least one result is true.
func HasCorrectAnswers(h Holder) bool {
	for _, v := range h.RawResults().values {
		if v {
			return true
		}
	}
	return false
}

// AllAnswersIncorrect reports whether there is at least one result and every
// result is false. No data is not the same as all wrong.
func AllAnswersIncorrect(h Holder) bool {
	values := h.RawResults().values
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if v {
			return false
		}
	}
	return true
}

// AllCorrect reports whether there is at least one result and every result is
// true.
func AllCorrect(h Holder) bool {
	values := h.RawResults().values
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if !v {
			return false
		}
	}
	return true
}

// Filter returns the normalized results for which keep returns true.
func Filter(r Raw, keep func(value bool, index int) bool) []bool {
	out := make([]bool, 0, len(r.values))
	for i, v := range r.values {
		if keep(v, i) {
			out = append(out, v)
		}
	}
	return out
}

// Map transforms each normalized result.
func Map[T any](r Raw, mapper func(value bool, index int) T) []T {
	out := make([]T, len(r.values))
	for i, v := range r.values {
		out[i] = mapper(v, i)
	}
	return out
}

// CountCorrect returns the number of true results.
func CountCorrect(r Raw) int {
	n := 0
	for _, v := range r.values {
		if v {
			n++
		}
	}
	return n
}

// CountIncorrect returns the number of false results.
func CountIncorrect(r Raw) int {
	return len(r.values) - CountCorrect(r)
}

// CountTotal returns the number of results.
func CountTotal(r Raw) int {
	return len(r.values)
}

// Accuracy returns the percentage of true results, or 0 when there are none.
func Accuracy(r Raw) float64 {
	acc, _ := AccuracyOK(r)
	return acc
}

// AccuracyOK is Accuracy with a second value reporting whether there were any
// results, so "no attempts" can be told apart from "0% correct".
func AccuracyOK(r Raw) (float64, bool) {
	total := len(r.values)
	if total == 0 {
		return 0, false
	}
	return float64(CountCorrect(r)) / float64(total) * 100, true
}

// Summary is the set of derived metrics shown alongside a score.
type Summary struct {
	Correct      int     `json:"correct"`
	Incorrect    int     `json:"incorrect"`
	Total        int     `json:"total"`
	Accuracy     float64 `json:"accuracy"`
	HasCorrect   bool    `json:"has_correct"`
	AllCorrect   bool    `json:"all_correct"`
	AllIncorrect bool    `json:"all_incorrect"`
}

// Summarize computes every derived metric of r in one call.
func Summarize(r Raw) Summary {
	correct := CountCorrect(r)
	total := CountTotal(r)
	return Summary{
		Correct:      correct,
		Incorrect:    total - correct,
		Total:        total,
		Accuracy:     Accuracy(r),
		HasCorrect:   correct > 0,
		AllCorrect:   total > 0 && correct == total,
		AllIncorrect: total > 0 && correct == 0,
	}
}
