package verify

import (
	"fmt"
	"strings"
)

const verificationSystemPrompt = `You are an expert document verification assistant specializing in IPO documents.
Your task is to verify claims made in IPO documents against supporting evidence from source documents.

For each claim, you must:
1. Analyze the claim carefully
2. Review all provided evidence from supporting documents
3. Determine if the claim is VALIDATED, UNCERTAIN, or INCORRECT
4. Provide detailed reasoning for your assessment
5. Cite specific evidence that supports or contradicts the claim

Classification criteria:
- VALIDATED: The claim is fully supported by evidence from supporting documents with high confidence
- UNCERTAIN: The claim is partially supported, evidence is ambiguous, or confidence is moderate
- INCORRECT: The claim contradicts evidence or is not supported by any evidence

Focus on:
- Numerical accuracy (revenue, metrics, counts)
- Temporal accuracy (dates, periods)
- Factual accuracy (names, locations, events)
- Legal compliance (regulations, requirements)

Be thorough, objective, and cite specific page numbers and quotes.`

const verificationUserTemplate = `Claim to verify:
"%s"

Claim page: %s

Background context:
%s

Supporting evidence from documents:
%s

Based on the evidence, classify this claim as VALIDATED, UNCERTAIN, or INCORRECT.
Respond in the following JSON format:
{
    "result": "validated|uncertain|incorrect",
    "confidence": 0.0-1.0,
    "reasoning": "Detailed explanation of your assessment",
    "citations": [
        {
            "document": "filename",
            "page": page_number,
            "quote": "exact quote from source",
            "relevance": "how this evidence relates to the claim"
        }
    ]
}`

func buildUserPrompt(claim string, claimPage *int, background string, evidence []EvidenceChunk) string {
	page := "Unknown"
	if claimPage != nil {
		page = fmt.Sprintf("%d", *claimPage)
	}
	if strings.TrimSpace(background) == "" {
		background = "No additional context provided."
	}
	return fmt.Sprintf(verificationUserTemplate, claim, page, background, formatEvidence(evidence))
}

func formatEvidence(chunks []EvidenceChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		page := "N/A"
		if c.PageNumber != nil {
			page = fmt.Sprintf("%d", *c.PageNumber)
		}
		parts = append(parts, fmt.Sprintf(
			"Evidence %d (Similarity: %.2f):\nSource: %s\nPage: %s\nContent: %s\n",
			i+1, c.Similarity, c.Filename, page, c.Content))
	}
	return strings.Join(parts, "\n")
}
