package activities

import "veriflow/internal/verify"

type GetDocumentInput struct {
	DocumentID string `json:"document_id"`
}

type GetDocumentOutput struct {
	DocumentID   string `json:"document_id"`
	ProjectID    string `json:"project_id"`
	Filename     string `json:"filename"`
	FilePath     string `json:"file_path"`
	DocumentType string `json:"document_type"`
	Indexed      bool   `json:"indexed"`
}

type ExtractChunksInput struct {
	DocumentID string `json:"document_id"`
}

type ExtractChunksOutput struct {
	ChunkCount int `json:"chunk_count"`
	PageCount  int `json:"page_count"`
}

type EmbedDocumentInput struct {
	DocumentID string `json:"document_id"`
}

type EmbedDocumentOutput struct {
	VectorCount  int    `json:"vector_count"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
}

type MarkDocumentIndexedInput struct {
	DocumentID string `json:"document_id"`
	PageCount  int    `json:"page_count"`
}

type DeleteDocumentVectorsInput struct {
	ProjectID  string `json:"project_id"`
	DocumentID string `json:"document_id"`
}

type GetVerificationJobInput struct {
	JobID string `json:"job_id"`
}

type GetVerificationJobOutput struct {
	JobID             string `json:"job_id"`
	ProjectID         string `json:"project_id"`
	MainDocumentID    string `json:"main_document_id"`
	Status            string `json:"status"`
	BackgroundContext string `json:"background_context"`
}

type UpdateJobStatusInput struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	WorkflowID   string `json:"workflow_id,omitempty"`
}

type ExtractSentencesInput struct {
	DocumentID string `json:"document_id"`
}

type SentenceData struct {
	Index      int    `json:"index"`
	Content    string `json:"content"`
	PageNumber *int   `json:"page_number,omitempty"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
}

type ExtractSentencesOutput struct {
	Sentences []SentenceData `json:"sentences"`
	PageCount int            `json:"page_count"`
}

type SetJobTotalsInput struct {
	JobID          string `json:"job_id"`
	TotalSentences int    `json:"total_sentences"`
}

type VerifySentenceInput struct {
	ProjectID         string       `json:"project_id"`
	Sentence          SentenceData `json:"sentence"`
	BackgroundContext string       `json:"background_context"`
}

type VerifySentenceOutput struct {
	Verdict verify.Verdict `json:"verdict"`
}

type PersistVerdictInput struct {
	JobID    string         `json:"job_id"`
	Sentence SentenceData   `json:"sentence"`
	Verdict  verify.Verdict `json:"verdict"`
}

type PersistVerdictOutput struct {
	VerifiedSentences int     `json:"verified_sentences"`
	ValidatedCount    int     `json:"validated_count"`
	UncertainCount    int     `json:"uncertain_count"`
	IncorrectCount    int     `json:"incorrect_count"`
	Progress          float64 `json:"progress"`
}

type PublishProgressInput struct {
	JobID        string  `json:"job_id"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	CurrentIndex int     `json:"current_index"`
	Total        int     `json:"total"`
	Message      string  `json:"message,omitempty"`
}
