package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"veriflow/internal/activities"
	"veriflow/internal/models"
	"veriflow/internal/verify"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerVerificationActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "GetVerificationJobActivity", func(context.Context, activities.GetVerificationJobInput) (activities.GetVerificationJobOutput, error) {
		return activities.GetVerificationJobOutput{}, nil
	})
	registerActivityName(env, "UpdateJobStatusActivity", func(context.Context, activities.UpdateJobStatusInput) error { return nil })
	registerActivityName(env, "ExtractSentencesActivity", func(context.Context, activities.ExtractSentencesInput) (activities.ExtractSentencesOutput, error) {
		return activities.ExtractSentencesOutput{}, nil
	})
	registerActivityName(env, "SetJobTotalsActivity", func(context.Context, activities.SetJobTotalsInput) error { return nil })
	registerActivityName(env, "VerifySentenceActivity", func(context.Context, activities.VerifySentenceInput) (activities.VerifySentenceOutput, error) {
		return activities.VerifySentenceOutput{}, nil
	})
	registerActivityName(env, "PersistVerdictActivity", func(context.Context, activities.PersistVerdictInput) (activities.PersistVerdictOutput, error) {
		return activities.PersistVerdictOutput{}, nil
	})
	registerActivityName(env, "PublishProgressActivity", func(context.Context, activities.PublishProgressInput) error { return nil })
}

func sentenceFixtures(n int) []activities.SentenceData {
	out := make([]activities.SentenceData, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, activities.SentenceData{Index: i, Content: "claim", StartChar: i * 10, EndChar: i*10 + 5})
	}
	return out
}

func TestVerificationWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(VerificationWorkflow)
	registerVerificationActivities(env)

	env.OnActivity("GetVerificationJobActivity", mock.Anything, activities.GetVerificationJobInput{JobID: "job1"}).
		Return(activities.GetVerificationJobOutput{JobID: "job1", ProjectID: "proj1", MainDocumentID: "doc1", Status: "pending", BackgroundContext: "IPO filing"}, nil)
	env.OnActivity("UpdateJobStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ExtractSentencesActivity", mock.Anything, activities.ExtractSentencesInput{DocumentID: "doc1"}).
		Return(activities.ExtractSentencesOutput{Sentences: sentenceFixtures(3), PageCount: 2}, nil)
	env.OnActivity("SetJobTotalsActivity", mock.Anything, activities.SetJobTotalsInput{JobID: "job1", TotalSentences: 3}).Return(nil)
	env.OnActivity("VerifySentenceActivity", mock.Anything, mock.Anything).
		Return(activities.VerifySentenceOutput{Verdict: verify.Verdict{Result: models.ResultValidated, Confidence: 0.9}}, nil)

	persisted := 0
	env.OnActivity("PersistVerdictActivity", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, in activities.PersistVerdictInput) (activities.PersistVerdictOutput, error) {
			persisted++
			return activities.PersistVerdictOutput{
				VerifiedSentences: persisted,
				ValidatedCount:    persisted,
				Progress:          float64(persisted) * 100 / 3,
			}, nil
		})

	published := 0
	var seenProgress []float64
	env.OnActivity("PublishProgressActivity", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, in activities.PublishProgressInput) error {
			if in.Status == "processing" && in.Progress > 0 {
				published++
				seenProgress = append(seenProgress, in.Progress)
			}
			return nil
		})

	env.ExecuteWorkflow(VerificationWorkflow, VerificationInput{JobID: "job1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)
	require.Equal(t, 3, persisted)
	require.GreaterOrEqual(t, published, 3, "each verified claim emits a progress event")
	require.InDelta(t, 100.0/3, seenProgress[0], 1e-9, "progress keeps its fractional part")

	v, err := env.QueryWorkflow(QueryGetVerificationProgress)
	require.NoError(t, err)
	var progress VerificationProgress
	require.NoError(t, v.Get(&progress))
	require.Equal(t, "completed", progress.Status)
	require.Equal(t, float64(100), progress.Progress)
	require.Equal(t, 3, progress.VerifiedSentences)
	require.Equal(t, 3, progress.ValidatedCount)
	require.Zero(t, progress.SkippedCount)
}

func TestVerificationWorkflowSkipsFailingClaims(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(VerificationWorkflow)
	registerVerificationActivities(env)

	env.OnActivity("GetVerificationJobActivity", mock.Anything, mock.Anything).
		Return(activities.GetVerificationJobOutput{JobID: "job1", ProjectID: "proj1", MainDocumentID: "doc1"}, nil)
	env.OnActivity("UpdateJobStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ExtractSentencesActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractSentencesOutput{Sentences: sentenceFixtures(3)}, nil)
	env.OnActivity("SetJobTotalsActivity", mock.Anything, mock.Anything).Return(nil)

	// The middle claim fails every attempt; the others succeed.
	env.OnActivity("VerifySentenceActivity", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, in activities.VerifySentenceInput) (activities.VerifySentenceOutput, error) {
			if in.Sentence.Index == 1 {
				return activities.VerifySentenceOutput{}, errors.New("provider unavailable")
			}
			return activities.VerifySentenceOutput{Verdict: verify.Verdict{Result: models.ResultUncertain, Confidence: 0.5}}, nil
		})

	persisted := 0
	env.OnActivity("PersistVerdictActivity", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, in activities.PersistVerdictInput) (activities.PersistVerdictOutput, error) {
			persisted++
			return activities.PersistVerdictOutput{VerifiedSentences: persisted, UncertainCount: persisted}, nil
		})

	processingEvents := 0
	env.OnActivity("PublishProgressActivity", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, in activities.PublishProgressInput) error {
			if in.Status == "processing" {
				processingEvents++
			}
			return nil
		})

	env.ExecuteWorkflow(VerificationWorkflow, VerificationInput{JobID: "job1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out, "a skipped claim must not fail the job")
	require.Equal(t, 2, persisted)

	v, err := env.QueryWorkflow(QueryGetVerificationProgress)
	require.NoError(t, err)
	var progress VerificationProgress
	require.NoError(t, v.Get(&progress))
	require.Equal(t, 1, progress.SkippedCount)
	require.Equal(t, 2, progress.VerifiedSentences)
	require.Equal(t, 3, progress.TotalSentences)
	require.Equal(t, 4, processingEvents, "initial event plus one per claim, skipped included")
}

func TestVerificationWorkflowSetupFailureMarksJobFailed(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(VerificationWorkflow)
	registerVerificationActivities(env)

	env.OnActivity("GetVerificationJobActivity", mock.Anything, mock.Anything).
		Return(activities.GetVerificationJobOutput{JobID: "job1", ProjectID: "proj1", MainDocumentID: "doc1"}, nil)

	var statusUpdates []activities.UpdateJobStatusInput
	env.OnActivity("UpdateJobStatusActivity", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, in activities.UpdateJobStatusInput) error {
			statusUpdates = append(statusUpdates, in)
			return nil
		})
	env.OnActivity("ExtractSentencesActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractSentencesOutput{}, errors.New("unsupported file format"))
	env.OnActivity("PublishProgressActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(VerificationWorkflow, VerificationInput{JobID: "job1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)

	require.NotEmpty(t, statusUpdates)
	last := statusUpdates[len(statusUpdates)-1]
	require.Equal(t, "failed", last.Status)
	require.Contains(t, last.ErrorMessage, "extract sentences")
}

func registerIndexActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "GetDocumentActivity", func(context.Context, activities.GetDocumentInput) (activities.GetDocumentOutput, error) {
		return activities.GetDocumentOutput{}, nil
	})
	registerActivityName(env, "DeleteDocumentVectorsActivity", func(context.Context, activities.DeleteDocumentVectorsInput) error { return nil })
	registerActivityName(env, "ExtractChunksActivity", func(context.Context, activities.ExtractChunksInput) (activities.ExtractChunksOutput, error) {
		return activities.ExtractChunksOutput{}, nil
	})
	registerActivityName(env, "EmbedDocumentActivity", func(context.Context, activities.EmbedDocumentInput) (activities.EmbedDocumentOutput, error) {
		return activities.EmbedDocumentOutput{}, nil
	})
	registerActivityName(env, "MarkDocumentIndexedActivity", func(context.Context, activities.MarkDocumentIndexedInput) error { return nil })
}

func TestIndexDocumentWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(IndexDocumentWorkflow)
	registerIndexActivities(env)

	env.OnActivity("GetDocumentActivity", mock.Anything, activities.GetDocumentInput{DocumentID: "doc1"}).
		Return(activities.GetDocumentOutput{DocumentID: "doc1", ProjectID: "proj1", DocumentType: "supporting"}, nil)
	env.OnActivity("DeleteDocumentVectorsActivity", mock.Anything, activities.DeleteDocumentVectorsInput{ProjectID: "proj1", DocumentID: "doc1"}).Return(nil)
	env.OnActivity("ExtractChunksActivity", mock.Anything, activities.ExtractChunksInput{DocumentID: "doc1"}).
		Return(activities.ExtractChunksOutput{ChunkCount: 12, PageCount: 4}, nil)
	env.OnActivity("EmbedDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.EmbedDocumentOutput{VectorCount: 12, ProviderName: "mock"}, nil)
	env.OnActivity("MarkDocumentIndexedActivity", mock.Anything, activities.MarkDocumentIndexedInput{DocumentID: "doc1", PageCount: 4}).Return(nil)

	env.ExecuteWorkflow(IndexDocumentWorkflow, IndexDocumentInput{DocumentID: "doc1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "indexed", out)
}

func TestIndexDocumentWorkflowUnsupportedFormatFailsGracefully(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(IndexDocumentWorkflow)
	registerIndexActivities(env)

	env.OnActivity("GetDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.GetDocumentOutput{DocumentID: "doc1", ProjectID: "proj1"}, nil)
	env.OnActivity("DeleteDocumentVectorsActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("ExtractChunksActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractChunksOutput{}, errors.New("extract report.docx: unsupported file format"))

	env.ExecuteWorkflow(IndexDocumentWorkflow, IndexDocumentInput{DocumentID: "doc1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
}
