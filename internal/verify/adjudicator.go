package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"veriflow/internal/models"
	"veriflow/internal/providers"
)

const noEvidenceReasoning = "No supporting evidence found in the provided documents."

// Adjudicator asks one completion provider for a verdict on a claim.
type Adjudicator struct {
	provider providers.CompletionProvider
}

func NewAdjudicator(provider providers.CompletionProvider) *Adjudicator {
	return &Adjudicator{provider: provider}
}

// Adjudicate produces a verdict for the claim. An empty evidence set is
// answered directly as uncertain with zero confidence, without calling the
// model.
func (a *Adjudicator) Adjudicate(ctx context.Context, claim string, claimPage *int, background string, evidence []EvidenceChunk) (Verdict, error) {
	if len(evidence) == 0 {
		return Verdict{
			Result:     models.ResultUncertain,
			Confidence: 0.0,
			Reasoning:  noEvidenceReasoning,
			Citations:  []Citation{},
		}, nil
	}

	resp, _, err := a.provider.Complete(ctx, providers.CompletionRequest{
		Operation: "verify_claim",
		System:    verificationSystemPrompt,
		User:      buildUserPrompt(claim, claimPage, background, evidence),
		ForceJSON: true,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("completion for claim verdict: %w", err)
	}
	return parseVerdict(resp.Text, evidence), nil
}

// rawVerdict mirrors the JSON contract given to the model. Page is loosely
// typed because models return both numbers and strings for it.
type rawVerdict struct {
	Result     string          `json:"result"`
	Confidence float64         `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
	Citations  []rawCitation   `json:"citations"`
	AltResult  string          `json:"validation_result"`
	AltConf    json.RawMessage `json:"confidence_score"`
}

type rawCitation struct {
	Document  string          `json:"document"`
	Page      json.RawMessage `json:"page"`
	Quote     string          `json:"quote"`
	Relevance string          `json:"relevance"`
}

// parseVerdict turns a model response into a Verdict. Structured JSON is
// preferred; when it cannot be recovered the response text is scanned for
// verdict keywords so adjudication never fails on malformed output.
func parseVerdict(text string, evidence []EvidenceChunk) Verdict {
	raw, ok := extractJSON(text)
	if !ok {
		return keywordFallback(text, evidence)
	}

	var rv rawVerdict
	if err := json.Unmarshal([]byte(raw), &rv); err != nil {
		return keywordFallback(text, evidence)
	}

	resultText := rv.Result
	if resultText == "" {
		resultText = rv.AltResult
	}
	result, ok := models.ParseValidationResult(resultText)
	if !ok {
		result = models.ResultUncertain
	}

	confidence := rv.Confidence
	if confidence == 0 && len(rv.AltConf) > 0 {
		_ = json.Unmarshal(rv.AltConf, &confidence)
	}
	confidence = clamp01(confidence)

	return Verdict{
		Result:     result,
		Confidence: confidence,
		Reasoning:  rv.Reasoning,
		Citations:  resolveCitations(rv.Citations, evidence),
	}
}

// extractJSON pulls a JSON object out of a model response, stripping markdown
// code fences and any prose around the outermost braces.
func extractJSON(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// keywordFallback mirrors the structured verdict from plain prose. The full
// response becomes the reasoning and the top evidence chunks stand in as
// citations.
func keywordFallback(text string, evidence []EvidenceChunk) Verdict {
	lower := strings.ToLower(text)
	var result models.ValidationResult
	var confidence float64
	switch {
	case strings.Contains(lower, "validated") && !strings.Contains(lower, "incorrect"):
		result, confidence = models.ResultValidated, 0.85
	case strings.Contains(lower, "incorrect") || strings.Contains(lower, "contradicts"):
		result, confidence = models.ResultIncorrect, 0.8
	default:
		result, confidence = models.ResultUncertain, 0.6
	}

	citations := make([]Citation, 0, 3)
	for _, ev := range evidence {
		if len(citations) == 3 {
			break
		}
		citations = append(citations, citationFromChunk(ev, truncate(ev.Content, 200), ev.PageNumber, ""))
	}

	return Verdict{
		Result:     result,
		Confidence: confidence,
		Reasoning:  text,
		Citations:  citations,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
