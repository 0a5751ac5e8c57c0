package verify

import (
	"context"
	"fmt"

	"veriflow/internal/models"
	"veriflow/internal/providers"
)

// MergeVerdicts reconciles a primary verdict with a cross-check verdict.
// Agreement keeps the primary verdict and lifts its confidence; disagreement
// downgrades to uncertain at 0.5 with both reasonings preserved and the
// citation sets unioned.
func MergeVerdicts(primary, secondary Verdict) Verdict {
	if primary.Result == secondary.Result {
		primary.Confidence = min1((primary.Confidence+secondary.Confidence)/2 + 0.1)
		return primary
	}
	citations := make([]Citation, 0, len(primary.Citations)+len(secondary.Citations))
	citations = append(citations, primary.Citations...)
	citations = append(citations, secondary.Citations...)
	return Verdict{
		Result:     models.ResultUncertain,
		Confidence: 0.5,
		Reasoning: fmt.Sprintf(
			"**Primary analysis:** %s\n\n**Cross-check analysis:** %s\n\n**Note:** Models disagree - manual review recommended.",
			primary.Reasoning, secondary.Reasoning),
		Citations: citations,
	}
}

// CrossValidator re-runs low-confidence verdicts through a second provider.
type CrossValidator struct {
	secondary *Adjudicator
	threshold float64
}

func NewCrossValidator(provider providers.CompletionProvider, threshold float64) *CrossValidator {
	return &CrossValidator{secondary: NewAdjudicator(provider), threshold: threshold}
}

// Check leaves confident primary verdicts untouched. Below the threshold it
// asks the secondary provider and merges; a secondary failure keeps the
// primary verdict rather than failing the claim.
func (c *CrossValidator) Check(ctx context.Context, claim string, claimPage *int, background string, evidence []EvidenceChunk, primary Verdict) Verdict {
	if primary.Confidence >= c.threshold {
		return primary
	}
	secondary, err := c.secondary.Adjudicate(ctx, claim, claimPage, background, evidence)
	if err != nil {
		return primary
	}
	return MergeVerdicts(primary, secondary)
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
