package workflows

type IndexDocumentInput struct {
	DocumentID string `json:"document_id"`
}

type IndexDocumentStatus struct {
	DocumentID  string            `json:"document_id"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	ChunkCount  int               `json:"chunk_count"`
	PageCount   int               `json:"page_count"`
	Steps       map[string]string `json:"steps"`
}

type VerificationInput struct {
	JobID     string `json:"job_id"`
	BatchSize int    `json:"batch_size,omitempty"`
}

type VerificationProgress struct {
	JobID             string  `json:"job_id"`
	Status            string  `json:"status"`
	Progress          float64 `json:"progress"`
	TotalSentences    int     `json:"total_sentences"`
	VerifiedSentences int     `json:"verified_sentences"`
	ValidatedCount    int     `json:"validated_count"`
	UncertainCount    int     `json:"uncertain_count"`
	IncorrectCount    int     `json:"incorrect_count"`
	SkippedCount      int     `json:"skipped_count"`
	CurrentIndex      int     `json:"current_index"`
	FailReason        string  `json:"fail_reason,omitempty"`
}
