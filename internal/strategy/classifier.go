package strategy

import "TrendAdvisor/internal/model"

// Classify combines rule results into a match classification. Exit rules are
// checked first and any true exit wins unconditionally.
func Classify(entry, exit []bool) model.Classification {
	for _, e := range exit {
		if e {
			return model.NoMatch
		}
	}
	met := 0
	for _, e := range entry {
		if e {
			met++
		}
	}
	switch {
	case len(entry) > 0 && met == len(entry):
		return model.StrongMatch
	case met > 0:
		return model.PartialMatch
	}
	return model.NoMatch
}
