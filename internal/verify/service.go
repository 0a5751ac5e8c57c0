package verify

import (
	"context"
	"fmt"

	"veriflow/internal/config"
	"veriflow/internal/providers"
	"veriflow/internal/vector"
)

// Service runs the full pipeline for one claim: retrieve evidence, adjudicate
// with the primary provider, and cross-check when configured.
type Service struct {
	retriever  *Retriever
	primary    *Adjudicator
	crosscheck *CrossValidator
}

func NewService(cfg config.Config, manager *providers.Manager, index vector.Index) *Service {
	embedder, _ := manager.FirstEmbedProvider()
	primaryProvider, _ := manager.Primary()

	s := &Service{
		retriever: NewRetriever(embedder, index, cfg.RetrievalTopK, cfg.MinSimilarity, cfg.EmbedDim),
		primary:   NewAdjudicator(primaryProvider),
	}
	if cfg.CrossValidation {
		if secondaryProvider, _, ok := manager.Secondary(); ok {
			s.crosscheck = NewCrossValidator(secondaryProvider, cfg.CrossValidationThreshold)
		}
	}
	return s
}

// VerifyClaim adjudicates one claim against the project's indexed evidence.
func (s *Service) VerifyClaim(ctx context.Context, namespace, claim string, claimPage *int, background string) (Verdict, []EvidenceChunk, error) {
	evidence, err := s.retriever.Retrieve(ctx, namespace, claim)
	if err != nil {
		return Verdict{}, nil, fmt.Errorf("retrieve evidence: %w", err)
	}

	verdict, err := s.primary.Adjudicate(ctx, claim, claimPage, background, evidence)
	if err != nil {
		return Verdict{}, nil, err
	}

	// With no evidence there is nothing further for a second model to judge.
	if s.crosscheck != nil && len(evidence) > 0 {
		verdict = s.crosscheck.Check(ctx, claim, claimPage, background, evidence, verdict)
	}
	return verdict, evidence, nil
}
