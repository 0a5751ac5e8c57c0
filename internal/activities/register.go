package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.GetDocumentActivity)
	w.RegisterActivity(a.ExtractChunksActivity)
	w.RegisterActivity(a.EmbedDocumentActivity)
	w.RegisterActivity(a.MarkDocumentIndexedActivity)
	w.RegisterActivity(a.DeleteDocumentVectorsActivity)
	w.RegisterActivity(a.GetVerificationJobActivity)
	w.RegisterActivity(a.UpdateJobStatusActivity)
	w.RegisterActivity(a.ExtractSentencesActivity)
	w.RegisterActivity(a.SetJobTotalsActivity)
	w.RegisterActivity(a.VerifySentenceActivity)
	w.RegisterActivity(a.PersistVerdictActivity)
	w.RegisterActivity(a.PublishProgressActivity)
}
