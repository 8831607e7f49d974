package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fusiontracker/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		result   *model.Detection
		expected Outcome
	}{
		{"nothing", nil, OutcomeNone},
		{"wrong class", &model.Detection{ClassID: 1, Confidence: 0.99}, OutcomeRejected},
		{"low confidence", &model.Detection{ClassID: 4, Confidence: 0.4}, OutcomeRejected},
		{"at threshold", &model.Detection{ClassID: 4, Confidence: 0.6}, OutcomeMatch},
		{"above threshold", &model.Detection{ClassID: 4, Confidence: 0.8}, OutcomeMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.result, 0.6, 4))
		})
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "none", OutcomeNone.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
	assert.Equal(t, "match", OutcomeMatch.String())
}
