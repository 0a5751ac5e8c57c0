// Package api exposes the project, document and verification endpoints over
// plain HTTP. Long-running work is handed to Temporal; handlers only validate,
// persist and start workflows.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"veriflow/internal/config"
	"veriflow/internal/models"
	"veriflow/internal/storage"
	"veriflow/internal/util"
	"veriflow/internal/vector"
	"veriflow/internal/workflows"
)

type Server struct {
	cfg          config.Config
	log          *zap.Logger
	db           *storage.DB
	projectRepo  *storage.ProjectRepo
	documentRepo *storage.DocumentRepo
	jobRepo      *storage.JobRepo
	sentenceRepo *storage.SentenceRepo
	index        vector.Index
	temporal     tclient.Client
}

func NewServer(cfg config.Config, log *zap.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:          cfg,
		log:          log,
		db:           db,
		projectRepo:  storage.NewProjectRepo(db),
		documentRepo: storage.NewDocumentRepo(db),
		jobRepo:      storage.NewJobRepo(db),
		sentenceRepo: storage.NewSentenceRepo(db),
		index:        vector.NewPGIndex(db.Pool),
		temporal:     tc,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/projects", s.handleProjects)
	mux.HandleFunc("/projects/", s.handleProjectScoped)
	mux.HandleFunc("/jobs/", s.handleJobScoped)
	mux.HandleFunc("/sentences/", s.handleSentenceScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		projects, err := s.projectRepo.List(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
	case http.MethodPost:
		var req struct {
			Name              string `json:"name"`
			Description       string `json:"description"`
			BackgroundContext string `json:"background_context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("name is required"))
			return
		}

		p := models.Project{
			ID:                uuid.NewString(),
			Name:              req.Name,
			Description:       strings.TrimSpace(req.Description),
			BackgroundContext: strings.TrimSpace(req.BackgroundContext),
		}
		if err := s.projectRepo.Create(r.Context(), p); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if err := util.EnsureDir(filepath.Join(s.cfg.DataRoot, p.ID)); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleProjectScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/projects/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	projectID := parts[0]

	switch {
	case len(parts) == 1:
		s.handleProject(w, r, projectID)
	case len(parts) == 2 && parts[1] == "documents":
		s.handleDocuments(w, r, projectID)
	case len(parts) == 3 && parts[1] == "documents":
		s.handleDocument(w, r, projectID, parts[2])
	case len(parts) == 4 && parts[1] == "documents" && parts[3] == "index":
		s.handleIndexDocument(w, r, projectID, parts[2])
	case len(parts) == 2 && parts[1] == "jobs":
		s.handleJobs(w, r, projectID)
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		p, err := s.projectRepo.Get(r.Context(), projectID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var req struct {
			Name              string `json:"name"`
			Description       string `json:"description"`
			BackgroundContext string `json:"background_context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("name is required"))
			return
		}
		p := models.Project{
			ID:                projectID,
			Name:              req.Name,
			Description:       strings.TrimSpace(req.Description),
			BackgroundContext: strings.TrimSpace(req.BackgroundContext),
		}
		if err := s.projectRepo.Update(r.Context(), p); err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		updated, err := s.projectRepo.Get(r.Context(), projectID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := s.index.DeleteNamespace(r.Context(), projectID); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if err := s.projectRepo.Delete(r.Context(), projectID); err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		if err := os.RemoveAll(filepath.Join(s.cfg.DataRoot, projectID)); err != nil {
			s.log.Warn("remove project files", zap.String("project_id", projectID), zap.Error(err))
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": projectID})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		docs, err := s.documentRepo.ListByProject(r.Context(), projectID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
	case http.MethodPost:
		s.handleUpload(w, r, projectID)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, projectID string) {
	if _, err := s.projectRepo.Get(r.Context(), projectID); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}

	docType := models.DocumentType(strings.TrimSpace(r.FormValue("document_type")))
	if docType == "" {
		docType = models.DocumentSupporting
	}
	if docType != models.DocumentMain && docType != models.DocumentSupporting {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("document_type must be main or supporting"))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		if single, ok := firstSingleFile(r.MultipartForm.File); ok {
			files = append(files, single)
		}
	}
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	for _, fh := range files {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("%s: %w", fh.Filename, util.ErrUnsupportedFormat))
			return
		}
	}

	inDir := filepath.Join(s.cfg.DataRoot, projectID)
	if err := util.EnsureDir(inDir); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	uploaded := make([]models.Document, 0, len(files))
	for _, fh := range files {
		d := models.Document{
			ID:               uuid.NewString(),
			ProjectID:        projectID,
			OriginalFilename: filepath.Base(fh.Filename),
			FileSize:         fh.Size,
			MimeType:         fh.Header.Get("Content-Type"),
			DocumentType:     docType,
		}
		d.Filename = d.ID + ".pdf"
		d.FilePath = util.SafeJoin(inDir, d.Filename)

		if err := saveUploadedFile(d.FilePath, fh); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if err := s.documentRepo.Create(r.Context(), d); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		uploaded = append(uploaded, d)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"documents": uploaded})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, projectID, documentID string) {
	switch r.Method {
	case http.MethodGet:
		d, err := s.documentRepo.Get(r.Context(), documentID)
		if err != nil || d.ProjectID != projectID {
			writeErr(w, http.StatusNotFound, util.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case http.MethodDelete:
		d, err := s.documentRepo.Get(r.Context(), documentID)
		if err != nil || d.ProjectID != projectID {
			writeErr(w, http.StatusNotFound, util.ErrNotFound)
			return
		}
		if err := s.index.DeleteByDocument(r.Context(), projectID, documentID); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if err := s.documentRepo.Delete(r.Context(), documentID); err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		if err := os.Remove(d.FilePath); err != nil && !os.IsNotExist(err) {
			s.log.Warn("remove document file", zap.String("document_id", documentID), zap.Error(err))
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": documentID})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request, projectID, documentID string) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	d, err := s.documentRepo.Get(r.Context(), documentID)
	if err != nil || d.ProjectID != projectID {
		writeErr(w, http.StatusNotFound, util.ErrNotFound)
		return
	}

	wfID := "index-" + documentID
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       wfID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.IndexDocumentWorkflow, workflows.IndexDocumentInput{DocumentID: documentID})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		jobs, err := s.jobRepo.ListByProject(r.Context(), projectID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
	case http.MethodPost:
		s.handleCreateJob(w, r, projectID)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

// handleCreateJob validates the project is verifiable, claims the one active
// job slot atomically, and starts the verification workflow.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request, projectID string) {
	var req struct {
		MainDocumentID string `json:"main_document_id"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if _, err := s.projectRepo.Get(r.Context(), projectID); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}

	mainDoc, err := s.resolveMainDocument(r.Context(), projectID, req.MainDocumentID)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	if mainDoc.DocumentType != models.DocumentMain {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("document %s is not a main document", mainDoc.ID))
		return
	}

	indexed, err := s.documentRepo.CountIndexedSupporting(r.Context(), projectID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if indexed == 0 {
		writeErr(w, http.StatusBadRequest, util.ErrNoIndexedSupport)
		return
	}

	job := models.VerificationJob{
		ID:             uuid.NewString(),
		ProjectID:      projectID,
		MainDocumentID: mainDoc.ID,
		Status:         models.StatusPending,
	}
	if err := s.jobRepo.Create(r.Context(), job); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}

	wfID := "verify-" + job.ID
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       wfID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.VerificationWorkflow, workflows.VerificationInput{
		JobID:     job.ID,
		BatchSize: s.cfg.VerificationBatchSize,
	})
	if err != nil {
		_ = s.jobRepo.SetStatus(r.Context(), job.ID, models.StatusFailed, "start workflow: "+err.Error())
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.jobRepo.SetWorkflowID(r.Context(), job.ID, we.GetID()); err != nil {
		s.log.Warn("record workflow id", zap.String("job_id", job.ID), zap.Error(err))
	}

	created, err := s.jobRepo.Get(r.Context(), job.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// resolveMainDocument returns the requested document, or the project's most
// recent main document when the request does not name one.
func (s *Server) resolveMainDocument(ctx context.Context, projectID, documentID string) (models.Document, error) {
	if documentID != "" {
		d, err := s.documentRepo.Get(ctx, documentID)
		if err != nil {
			return models.Document{}, err
		}
		if d.ProjectID != projectID {
			return models.Document{}, fmt.Errorf("document %s: %w", documentID, util.ErrNotFound)
		}
		return d, nil
	}
	docs, err := s.documentRepo.ListByProject(ctx, projectID)
	if err != nil {
		return models.Document{}, err
	}
	for _, d := range docs {
		if d.DocumentType == models.DocumentMain {
			return d, nil
		}
	}
	return models.Document{}, util.ErrMissingMainDoc
}

func (s *Server) handleJobScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	jobID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.handleGetJob(w, r, jobID)
	case len(parts) == 2 && parts[1] == "progress" && r.Method == http.MethodGet:
		s.handleJobProgress(w, r, jobID)
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	j, err := s.jobRepo.Get(r.Context(), jobID)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	sentences, err := s.sentenceRepo.ListByJob(r.Context(), jobID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": j, "sentences": sentences})
}

// handleJobProgress queries the live workflow first and falls back to the job
// row when the workflow is gone (finished worker, restarted Temporal).
func (s *Server) handleJobProgress(w http.ResponseWriter, r *http.Request, jobID string) {
	j, err := s.jobRepo.Get(r.Context(), jobID)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}

	if j.WorkflowID != "" {
		resp, qErr := s.temporal.QueryWorkflow(r.Context(), j.WorkflowID, "", workflows.QueryGetVerificationProgress)
		if qErr == nil {
			var progress workflows.VerificationProgress
			if err := resp.Get(&progress); err == nil {
				writeJSON(w, http.StatusOK, progress)
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, workflows.VerificationProgress{
		JobID:             j.ID,
		Status:            string(j.Status),
		Progress:          j.Progress,
		TotalSentences:    j.TotalSentences,
		VerifiedSentences: j.VerifiedSentences,
		ValidatedCount:    j.ValidatedCount,
		UncertainCount:    j.UncertainCount,
		IncorrectCount:    j.IncorrectCount,
		FailReason:        j.ErrorMessage,
	})
}

func (s *Server) handleSentenceScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/sentences/"), "/"), "/")
	if len(parts) != 2 || parts[1] != "review" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodPatch && r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	sentenceID := parts[0]

	var req struct {
		ValidationResult string `json:"validation_result"`
		ReviewerNotes    string `json:"reviewer_notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	result, ok := models.ParseValidationResult(req.ValidationResult)
	if !ok || result == models.ResultPending {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("validation_result must be validated, uncertain or incorrect"))
		return
	}

	if err := s.sentenceRepo.Review(r.Context(), sentenceID, result, req.ReviewerNotes); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	updated, err := s.sentenceRepo.Get(r.Context(), sentenceID)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func saveUploadedFile(dstPath string, fh *multipart.FileHeader) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), "upload-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dstPath); err != nil {
		return fmt.Errorf("atomic move upload: %w", err)
	}
	return nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, util.ErrActiveJobExists):
		return http.StatusConflict
	case errors.Is(err, util.ErrMissingMainDoc), errors.Is(err, util.ErrNoIndexedSupport),
		errors.Is(err, util.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"message": err.Error()},
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
