package fusion

import "fusiontracker/internal/model"

// Outcome is the interpretation of one detector firing.
type Outcome int

const (
	// OutcomeNone means the detector returned nothing.
	OutcomeNone Outcome = iota
	// OutcomeRejected means a result exists but has the wrong class or too
	// low a confidence.
	OutcomeRejected
	// OutcomeMatch is a qualifying match.
	OutcomeMatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case OutcomeRejected:
		return "rejected"
	default:
		return "none"
	}
}

// Classify sorts a detector result into exactly one Outcome.
func Classify(result *model.Detection, threshold float64, interestClass int) Outcome {
	if result == nil {
		return OutcomeNone
	}
	if result.ClassID != interestClass || result.Confidence < threshold {
		return OutcomeRejected
	}
	return OutcomeMatch
}
