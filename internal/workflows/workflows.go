package workflows

import (
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"veriflow/internal/activities"
)

const (
	QueryGetIndexStatus          = "GetIndexStatus"
	QueryGetVerificationProgress = "GetVerificationProgress"

	defaultBatchSize = 10
)

// IndexDocumentWorkflow extracts, chunks and embeds one uploaded document.
// Unsupported or unreadable input fails the document gracefully instead of
// failing the workflow.
func IndexDocumentWorkflow(ctx workflow.Context, input IndexDocumentInput) (string, error) {
	status := IndexDocumentStatus{
		DocumentID:  input.DocumentID,
		CurrentStep: "init",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetIndexStatus, func() (IndexDocumentStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	status.CurrentStep = "load_document"
	status.Steps[status.CurrentStep] = "processing"
	var doc activities.GetDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "GetDocumentActivity", activities.GetDocumentInput{DocumentID: input.DocumentID}).Get(ctx, &doc); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	// Re-indexing mints new chunk ids, so stale vectors must go first.
	status.CurrentStep = "clear_vectors"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "DeleteDocumentVectorsActivity", activities.DeleteDocumentVectorsInput{
		ProjectID:  doc.ProjectID,
		DocumentID: input.DocumentID,
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "extract_chunks"
	status.Steps[status.CurrentStep] = "processing"
	var chunkOut activities.ExtractChunksOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractChunksActivity", activities.ExtractChunksInput{DocumentID: input.DocumentID}).Get(ctx, &chunkOut); err != nil {
		if isUnsupportedDocumentError(err) {
			status.Status = "failed"
			status.FailReason = err.Error()
			status.Steps[status.CurrentStep] = "failed"
			return status.Status, nil
		}
		return "", err
	}
	status.ChunkCount = chunkOut.ChunkCount
	status.PageCount = chunkOut.PageCount
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "embed_document"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "EmbedDocumentActivity", activities.EmbedDocumentInput{DocumentID: input.DocumentID}).Get(ctx, nil); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "mark_indexed"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "MarkDocumentIndexedActivity", activities.MarkDocumentIndexedInput{
		DocumentID: input.DocumentID,
		PageCount:  chunkOut.PageCount,
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"
	status.CurrentStep = "done"
	status.Status = "indexed"
	return status.Status, nil
}

// VerificationWorkflow drives a verification job end to end: load the job,
// extract the main document's claims, verify them in batches, and account for
// every claim in the job row. A claim whose verification keeps failing after
// retries is skipped and logged, never silently lost inside a stuck job.
func VerificationWorkflow(ctx workflow.Context, input VerificationInput) (string, error) {
	progress := VerificationProgress{JobID: input.JobID, Status: "processing"}
	if err := workflow.SetQueryHandler(ctx, QueryGetVerificationProgress, func() (VerificationProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	logger := workflow.GetLogger(ctx)
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	batchSize := input.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	failJob := func(reason string) (string, error) {
		progress.Status = "failed"
		progress.FailReason = reason
		_ = workflow.ExecuteActivity(ctx, "UpdateJobStatusActivity", activities.UpdateJobStatusInput{
			JobID:        input.JobID,
			Status:       "failed",
			ErrorMessage: reason,
		}).Get(ctx, nil)
		_ = workflow.ExecuteActivity(ctx, "PublishProgressActivity", activities.PublishProgressInput{
			JobID:   input.JobID,
			Status:  "failed",
			Message: reason,
		}).Get(ctx, nil)
		return "failed", nil
	}

	var job activities.GetVerificationJobOutput
	if err := workflow.ExecuteActivity(ctx, "GetVerificationJobActivity", activities.GetVerificationJobInput{JobID: input.JobID}).Get(ctx, &job); err != nil {
		return failJob("load job: " + err.Error())
	}

	workflowID := workflow.GetInfo(ctx).WorkflowExecution.ID
	if err := workflow.ExecuteActivity(ctx, "UpdateJobStatusActivity", activities.UpdateJobStatusInput{
		JobID:      input.JobID,
		Status:     "processing",
		WorkflowID: workflowID,
	}).Get(ctx, nil); err != nil {
		return failJob("mark job processing: " + err.Error())
	}

	var extracted activities.ExtractSentencesOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractSentencesActivity", activities.ExtractSentencesInput{DocumentID: job.MainDocumentID}).Get(ctx, &extracted); err != nil {
		return failJob("extract sentences: " + err.Error())
	}
	sentences := extracted.Sentences
	progress.TotalSentences = len(sentences)

	if err := workflow.ExecuteActivity(ctx, "SetJobTotalsActivity", activities.SetJobTotalsInput{
		JobID:          input.JobID,
		TotalSentences: len(sentences),
	}).Get(ctx, nil); err != nil {
		return failJob("set job totals: " + err.Error())
	}

	// Every claim emits an event, including skipped ones, so consumers see
	// the pipeline move claim by claim.
	publish := func(status string) {
		_ = workflow.ExecuteActivity(ctx, "PublishProgressActivity", activities.PublishProgressInput{
			JobID:        input.JobID,
			Status:       status,
			Progress:     progress.Progress,
			CurrentIndex: progress.CurrentIndex,
			Total:        progress.TotalSentences,
		}).Get(ctx, nil)
	}
	publish("processing")

	for start := 0; start < len(sentences); start += batchSize {
		end := start + batchSize
		if end > len(sentences) {
			end = len(sentences)
		}
		for _, s := range sentences[start:end] {
			progress.CurrentIndex = s.Index

			var verified activities.VerifySentenceOutput
			err := workflow.ExecuteActivity(ctx, "VerifySentenceActivity", activities.VerifySentenceInput{
				ProjectID:         job.ProjectID,
				Sentence:          s,
				BackgroundContext: job.BackgroundContext,
			}).Get(ctx, &verified)
			if err != nil {
				// The claim stays unpersisted; the final counts show the gap.
				logger.Warn("claim verification failed, skipping",
					"job_id", input.JobID, "sentence_index", s.Index, "error", err)
				progress.SkippedCount++
				publish("processing")
				continue
			}

			var counters activities.PersistVerdictOutput
			if err := workflow.ExecuteActivity(ctx, "PersistVerdictActivity", activities.PersistVerdictInput{
				JobID:    input.JobID,
				Sentence: s,
				Verdict:  verified.Verdict,
			}).Get(ctx, &counters); err != nil {
				return failJob("persist verdict: " + err.Error())
			}
			progress.VerifiedSentences = counters.VerifiedSentences
			progress.ValidatedCount = counters.ValidatedCount
			progress.UncertainCount = counters.UncertainCount
			progress.IncorrectCount = counters.IncorrectCount
			progress.Progress = counters.Progress
			publish("processing")
		}
	}

	if err := workflow.ExecuteActivity(ctx, "UpdateJobStatusActivity", activities.UpdateJobStatusInput{
		JobID:  input.JobID,
		Status: "completed",
	}).Get(ctx, nil); err != nil {
		return failJob("mark job completed: " + err.Error())
	}
	progress.Status = "completed"
	progress.Progress = 100
	publish("completed")

	return "completed", nil
}

func isUnsupportedDocumentError(err error) bool {
	e := strings.ToLower(err.Error())
	return strings.Contains(e, "unsupported file format") || strings.Contains(e, "no extractable text")
}
