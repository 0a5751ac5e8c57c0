package activities

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"veriflow/internal/config"
	"veriflow/internal/extract"
	"veriflow/internal/models"
	"veriflow/internal/progress"
	"veriflow/internal/providers"
	"veriflow/internal/segment"
	"veriflow/internal/storage"
	"veriflow/internal/util"
	"veriflow/internal/vector"
	"veriflow/internal/verify"
)

type Activities struct {
	cfg          config.Config
	log          *zap.Logger
	projectRepo  *storage.ProjectRepo
	documentRepo *storage.DocumentRepo
	chunkRepo    *storage.ChunkRepo
	jobRepo      *storage.JobRepo
	sentenceRepo *storage.SentenceRepo
	index        vector.Index
	providers    *providers.Manager
	verifier     *verify.Service
	sink         progress.Sink
}

func New(cfg config.Config, db *storage.DB, log *zap.Logger) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	sink, err := progress.NewSink(cfg.RedisURL, log)
	if err != nil {
		return nil, err
	}
	index := vector.NewPGIndex(db.Pool)
	return &Activities{
		cfg:          cfg,
		log:          log,
		projectRepo:  storage.NewProjectRepo(db),
		documentRepo: storage.NewDocumentRepo(db),
		chunkRepo:    storage.NewChunkRepo(db),
		jobRepo:      storage.NewJobRepo(db),
		sentenceRepo: storage.NewSentenceRepo(db),
		index:        index,
		providers:    pm,
		verifier:     verify.NewService(cfg, pm, index),
		sink:         sink,
	}, nil
}

func (a *Activities) GetDocumentActivity(ctx context.Context, in GetDocumentInput) (GetDocumentOutput, error) {
	d, err := a.documentRepo.Get(ctx, in.DocumentID)
	if err != nil {
		return GetDocumentOutput{}, err
	}
	return GetDocumentOutput{
		DocumentID:   d.ID,
		ProjectID:    d.ProjectID,
		Filename:     d.OriginalFilename,
		FilePath:     d.FilePath,
		DocumentType: string(d.DocumentType),
		Indexed:      d.Indexed,
	}, nil
}

// ExtractChunksActivity extracts a document's text and persists its retrieval
// chunks. Vectors are written separately by EmbedDocumentActivity so an
// embedding outage can be retried without re-parsing the PDF.
func (a *Activities) ExtractChunksActivity(ctx context.Context, in ExtractChunksInput) (ExtractChunksOutput, error) {
	d, err := a.documentRepo.Get(ctx, in.DocumentID)
	if err != nil {
		return ExtractChunksOutput{}, err
	}
	res, err := extract.Extract(d.FilePath)
	if err != nil {
		return ExtractChunksOutput{}, fmt.Errorf("extract %s: %w", d.OriginalFilename, err)
	}

	chunks := segment.ChunkText(res.FullText, a.cfg.ChunkSize, a.cfg.ChunkOverlap, res.Pages)
	rows := make([]models.DocumentChunk, 0, len(chunks))
	for _, c := range chunks {
		id := uuid.NewString()
		rows = append(rows, models.DocumentChunk{
			ID:         id,
			DocumentID: d.ID,
			ChunkIndex: c.Index,
			Content:    util.SanitizeText(c.Content),
			PageNumber: c.PageNumber,
			StartChar:  c.StartChar,
			EndChar:    c.EndChar,
			VectorID:   id,
		})
	}
	if err := a.chunkRepo.InsertChunks(ctx, d.ID, rows); err != nil {
		return ExtractChunksOutput{}, err
	}
	return ExtractChunksOutput{ChunkCount: len(rows), PageCount: res.PageCount}, nil
}

// EmbedDocumentActivity embeds a document's stored chunks in batches and
// upserts them into the project's namespace. Re-running it overwrites the
// same vector ids, so retries are safe.
func (a *Activities) EmbedDocumentActivity(ctx context.Context, in EmbedDocumentInput) (EmbedDocumentOutput, error) {
	d, err := a.documentRepo.Get(ctx, in.DocumentID)
	if err != nil {
		return EmbedDocumentOutput{}, err
	}
	chunks, err := a.chunkRepo.ListByDocument(ctx, d.ID)
	if err != nil {
		return EmbedDocumentOutput{}, err
	}
	if err := a.index.CreateNamespace(ctx, d.ProjectID); err != nil {
		return EmbedDocumentOutput{}, err
	}

	embedder, _ := a.providers.FirstEmbedProvider()
	out := EmbedDocumentOutput{}
	const batchSize = 32
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		inputs := make([]string, 0, len(batch))
		for _, c := range batch {
			inputs = append(inputs, c.Content)
		}
		vecs, info, err := embedder.Embed(ctx, providers.EmbedRequest{
			Operation: "index_document",
			Inputs:    inputs,
			Dimension: a.cfg.EmbedDim,
		})
		if err != nil {
			return EmbedDocumentOutput{}, fmt.Errorf("embed chunks: %w", err)
		}
		if len(vecs) != len(batch) {
			return EmbedDocumentOutput{}, fmt.Errorf("embed chunks: got %d vectors for %d inputs", len(vecs), len(batch))
		}

		points := make([]vector.Point, 0, len(batch))
		for i, c := range batch {
			points = append(points, vector.Point{
				ID:           c.VectorID,
				DocumentID:   d.ID,
				Content:      c.Content,
				Filename:     d.OriginalFilename,
				DocumentType: string(d.DocumentType),
				PageNumber:   c.PageNumber,
				StartChar:    c.StartChar,
				EndChar:      c.EndChar,
				Embedding:    vecs[i],
			})
		}
		if err := a.index.Upsert(ctx, d.ProjectID, points); err != nil {
			return EmbedDocumentOutput{}, err
		}
		out.VectorCount += len(points)
		out.ProviderName, out.Model = info.Name, info.Model
	}
	return out, nil
}

func (a *Activities) MarkDocumentIndexedActivity(ctx context.Context, in MarkDocumentIndexedInput) error {
	return a.documentRepo.MarkIndexed(ctx, in.DocumentID, in.PageCount)
}

func (a *Activities) DeleteDocumentVectorsActivity(ctx context.Context, in DeleteDocumentVectorsInput) error {
	if err := a.index.DeleteByDocument(ctx, in.ProjectID, in.DocumentID); err != nil {
		return err
	}
	return a.chunkRepo.DeleteByDocument(ctx, in.DocumentID)
}

func (a *Activities) GetVerificationJobActivity(ctx context.Context, in GetVerificationJobInput) (GetVerificationJobOutput, error) {
	j, err := a.jobRepo.Get(ctx, in.JobID)
	if err != nil {
		return GetVerificationJobOutput{}, err
	}
	p, err := a.projectRepo.Get(ctx, j.ProjectID)
	if err != nil {
		return GetVerificationJobOutput{}, err
	}
	return GetVerificationJobOutput{
		JobID:             j.ID,
		ProjectID:         j.ProjectID,
		MainDocumentID:    j.MainDocumentID,
		Status:            string(j.Status),
		BackgroundContext: p.BackgroundContext,
	}, nil
}

func (a *Activities) UpdateJobStatusActivity(ctx context.Context, in UpdateJobStatusInput) error {
	if in.WorkflowID != "" {
		if err := a.jobRepo.SetWorkflowID(ctx, in.JobID, in.WorkflowID); err != nil {
			return err
		}
	}
	return a.jobRepo.SetStatus(ctx, in.JobID, models.VerificationStatus(in.Status), in.ErrorMessage)
}

// ExtractSentencesActivity pulls the claims out of the main document.
func (a *Activities) ExtractSentencesActivity(ctx context.Context, in ExtractSentencesInput) (ExtractSentencesOutput, error) {
	d, err := a.documentRepo.Get(ctx, in.DocumentID)
	if err != nil {
		return ExtractSentencesOutput{}, err
	}
	res, err := extract.Extract(d.FilePath)
	if err != nil {
		return ExtractSentencesOutput{}, fmt.Errorf("extract %s: %w", d.OriginalFilename, err)
	}

	sentences := segment.ExtractSentences(res.FullText, res.Pages)
	out := ExtractSentencesOutput{
		Sentences: make([]SentenceData, 0, len(sentences)),
		PageCount: res.PageCount,
	}
	for _, s := range sentences {
		out.Sentences = append(out.Sentences, SentenceData{
			Index:      s.Index,
			Content:    util.SanitizeText(s.Content),
			PageNumber: s.PageNumber,
			StartChar:  s.StartChar,
			EndChar:    s.EndChar,
		})
	}
	return out, nil
}

func (a *Activities) SetJobTotalsActivity(ctx context.Context, in SetJobTotalsInput) error {
	return a.jobRepo.SetTotals(ctx, in.JobID, in.TotalSentences)
}

func (a *Activities) VerifySentenceActivity(ctx context.Context, in VerifySentenceInput) (VerifySentenceOutput, error) {
	verdict, _, err := a.verifier.VerifyClaim(ctx, in.ProjectID, in.Sentence.Content, in.Sentence.PageNumber, in.BackgroundContext)
	if err != nil {
		return VerifySentenceOutput{}, classifyVerifyError(err)
	}
	return VerifySentenceOutput{Verdict: verdict}, nil
}

// classifyVerifyError marks provider failures that repeating cannot fix
// (exhausted quota, oversized prompts, hard rejections) as non-retryable so
// the claim is skipped immediately instead of burning the retry budget.
func classifyVerifyError(err error) error {
	if class := providers.ClassifyError(err); !class.Retryable() {
		return temporal.NewNonRetryableApplicationError(err.Error(), string(class), err)
	}
	return err
}

// PersistVerdictActivity stores a verified sentence with its citations and
// returns the job's refreshed counters.
func (a *Activities) PersistVerdictActivity(ctx context.Context, in PersistVerdictInput) (PersistVerdictOutput, error) {
	confidence := in.Verdict.Confidence
	sentence := models.VerifiedSentence{
		ID:                uuid.NewString(),
		VerificationJobID: in.JobID,
		SentenceIndex:     in.Sentence.Index,
		Content:           in.Sentence.Content,
		PageNumber:        in.Sentence.PageNumber,
		StartChar:         in.Sentence.StartChar,
		EndChar:           in.Sentence.EndChar,
		ValidationResult:  in.Verdict.Result,
		ConfidenceScore:   &confidence,
		Reasoning:         in.Verdict.Reasoning,
	}
	for _, c := range in.Verdict.Citations {
		docID := c.DocumentID
		citation := models.Citation{
			ID:              uuid.NewString(),
			CitedText:       c.CitedText,
			Filename:        c.Filename,
			PageNumber:      c.PageNumber,
			StartChar:       c.StartChar,
			EndChar:         c.EndChar,
			SimilarityScore: c.Similarity,
		}
		if docID != "" {
			citation.SourceDocumentID = &docID
		}
		sentence.Citations = append(sentence.Citations, citation)
	}
	if err := a.sentenceRepo.Insert(ctx, sentence); err != nil {
		return PersistVerdictOutput{}, err
	}

	j, err := a.jobRepo.IncrementVerified(ctx, in.JobID, in.Verdict.Result)
	if err != nil {
		return PersistVerdictOutput{}, err
	}
	return PersistVerdictOutput{
		VerifiedSentences: j.VerifiedSentences,
		ValidatedCount:    j.ValidatedCount,
		UncertainCount:    j.UncertainCount,
		IncorrectCount:    j.IncorrectCount,
		Progress:          j.Progress,
	}, nil
}

// PublishProgressActivity is best-effort; callers ignore its error.
func (a *Activities) PublishProgressActivity(ctx context.Context, in PublishProgressInput) error {
	err := a.sink.Publish(ctx, progress.Update{
		JobID:        in.JobID,
		Status:       in.Status,
		Progress:     in.Progress,
		CurrentIndex: in.CurrentIndex,
		Total:        in.Total,
		Message:      in.Message,
	})
	if err != nil {
		a.log.Warn("publish progress failed", zap.String("job_id", in.JobID), zap.Error(err))
	}
	return err
}
