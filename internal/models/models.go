package models

import (
	"strings"
	"time"
)

type DocumentType string

const (
	DocumentMain       DocumentType = "main"
	DocumentSupporting DocumentType = "supporting"
)

// VerificationStatus is the job lifecycle: pending -> indexing -> processing
// -> completed, with failed reachable from any non-terminal state.
type VerificationStatus string

const (
	StatusPending    VerificationStatus = "pending"
	StatusIndexing   VerificationStatus = "indexing"
	StatusProcessing VerificationStatus = "processing"
	StatusCompleted  VerificationStatus = "completed"
	StatusFailed     VerificationStatus = "failed"
)

func (s VerificationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s VerificationStatus) Active() bool {
	return s == StatusPending || s == StatusIndexing || s == StatusProcessing
}

// ValidationResult is the per-sentence verdict label.
type ValidationResult string

const (
	ResultPending   ValidationResult = "pending"
	ResultValidated ValidationResult = "validated"
	ResultUncertain ValidationResult = "uncertain"
	ResultIncorrect ValidationResult = "incorrect"
)

// ParseValidationResult accepts verdict labels case-insensitively; models
// often answer in upper case.
func ParseValidationResult(s string) (ValidationResult, bool) {
	switch ValidationResult(strings.ToLower(strings.TrimSpace(s))) {
	case ResultValidated, ResultUncertain, ResultIncorrect, ResultPending:
		return ValidationResult(strings.ToLower(strings.TrimSpace(s))), true
	}
	return "", false
}

type Project struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	BackgroundContext string    `json:"background_context,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Document struct {
	ID               string       `json:"id"`
	ProjectID        string       `json:"project_id"`
	Filename         string       `json:"filename"`
	OriginalFilename string       `json:"original_filename"`
	FilePath         string       `json:"file_path"`
	FileSize         int64        `json:"file_size"`
	MimeType         string       `json:"mime_type"`
	DocumentType     DocumentType `json:"document_type"`
	PageCount        *int         `json:"page_count,omitempty"`
	Indexed          bool         `json:"indexed"`
	IndexedAt        *time.Time   `json:"indexed_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

type DocumentChunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	PageNumber *int      `json:"page_number,omitempty"`
	StartChar  int       `json:"start_char"`
	EndChar    int       `json:"end_char"`
	VectorID   string    `json:"vector_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type VerificationJob struct {
	ID                string             `json:"id"`
	ProjectID         string             `json:"project_id"`
	MainDocumentID    string             `json:"main_document_id"`
	Status            VerificationStatus `json:"status"`
	Progress          float64            `json:"progress"`
	TotalSentences    int                `json:"total_sentences"`
	VerifiedSentences int                `json:"verified_sentences"`
	ValidatedCount    int                `json:"validated_count"`
	UncertainCount    int                `json:"uncertain_count"`
	IncorrectCount    int                `json:"incorrect_count"`
	WorkflowID        string             `json:"workflow_id,omitempty"`
	StartedAt         *time.Time         `json:"started_at,omitempty"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	ErrorMessage      string             `json:"error_message,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

type VerifiedSentence struct {
	ID                string           `json:"id"`
	VerificationJobID string           `json:"verification_job_id"`
	SentenceIndex     int              `json:"sentence_index"`
	Content           string           `json:"content"`
	PageNumber        *int             `json:"page_number,omitempty"`
	StartChar         int              `json:"start_char"`
	EndChar           int              `json:"end_char"`
	ValidationResult  ValidationResult `json:"validation_result"`
	ConfidenceScore   *float64         `json:"confidence_score,omitempty"`
	Reasoning         string           `json:"reasoning,omitempty"`
	Citations         []Citation       `json:"citations,omitempty"`
	ManuallyReviewed  bool             `json:"manually_reviewed"`
	ReviewerNotes     string           `json:"reviewer_notes,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Citation links a verified sentence back to a source document excerpt.
// SourceDocumentID is nulled if the source document is deleted; the citation
// row itself survives.
type Citation struct {
	ID                 string    `json:"id"`
	VerifiedSentenceID string    `json:"verified_sentence_id"`
	SourceDocumentID   *string   `json:"source_document_id,omitempty"`
	CitedText          string    `json:"cited_text"`
	Filename           string    `json:"filename,omitempty"`
	PageNumber         *int      `json:"page_number,omitempty"`
	StartChar          *int      `json:"start_char,omitempty"`
	EndChar            *int      `json:"end_char,omitempty"`
	SimilarityScore    float64   `json:"similarity_score"`
	RelevanceRank      int       `json:"relevance_rank"`
	ContextBefore      string    `json:"context_before,omitempty"`
	ContextAfter       string    `json:"context_after,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
