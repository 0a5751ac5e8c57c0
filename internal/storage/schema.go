package storage

import (
	"context"
	"fmt"
)

// schemaDDL is idempotent so a worker can start against a fresh database
// without a separate migrate step.
const schemaDDL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS projects (
  id UUID PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  background_context TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS documents (
  id UUID PRIMARY KEY,
  project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  filename TEXT NOT NULL,
  original_filename TEXT NOT NULL,
  file_path TEXT NOT NULL,
  file_size BIGINT NOT NULL DEFAULT 0,
  mime_type TEXT,
  document_type TEXT NOT NULL CHECK (document_type IN ('main','supporting')),
  page_count INT,
  indexed BOOLEAN NOT NULL DEFAULT FALSE,
  indexed_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id, created_at DESC);

CREATE TABLE IF NOT EXISTS document_chunks (
  id UUID PRIMARY KEY,
  document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  chunk_index INT NOT NULL,
  content TEXT NOT NULL,
  page_number INT,
  start_char INT NOT NULL DEFAULT 0,
  end_char INT NOT NULL DEFAULT 0,
  vector_id TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (document_id, chunk_index)
);

CREATE TABLE IF NOT EXISTS chunk_vectors (
  id UUID PRIMARY KEY,
  namespace TEXT NOT NULL,
  document_id UUID NOT NULL,
  content TEXT NOT NULL,
  filename TEXT NOT NULL DEFAULT '',
  document_type TEXT NOT NULL DEFAULT 'supporting',
  page_number INT,
  start_char INT NOT NULL DEFAULT 0,
  end_char INT NOT NULL DEFAULT 0,
  embedding vector(1536)
);
CREATE INDEX IF NOT EXISTS idx_chunk_vectors_namespace ON chunk_vectors(namespace);
CREATE INDEX IF NOT EXISTS idx_chunk_vectors_document ON chunk_vectors(namespace, document_id);

CREATE TABLE IF NOT EXISTS verification_jobs (
  id UUID PRIMARY KEY,
  project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  main_document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  status TEXT NOT NULL CHECK (status IN ('pending','indexing','processing','completed','failed')),
  progress DOUBLE PRECISION NOT NULL DEFAULT 0,
  total_sentences INT NOT NULL DEFAULT 0,
  verified_sentences INT NOT NULL DEFAULT 0,
  validated_count INT NOT NULL DEFAULT 0,
  uncertain_count INT NOT NULL DEFAULT 0,
  incorrect_count INT NOT NULL DEFAULT 0,
  workflow_id TEXT,
  started_at TIMESTAMPTZ,
  completed_at TIMESTAMPTZ,
  error_message TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_jobs_project ON verification_jobs(project_id, created_at DESC);

CREATE TABLE IF NOT EXISTS verified_sentences (
  id UUID PRIMARY KEY,
  verification_job_id UUID NOT NULL REFERENCES verification_jobs(id) ON DELETE CASCADE,
  sentence_index INT NOT NULL,
  content TEXT NOT NULL,
  page_number INT,
  start_char INT NOT NULL DEFAULT 0,
  end_char INT NOT NULL DEFAULT 0,
  validation_result TEXT NOT NULL CHECK (validation_result IN ('pending','validated','uncertain','incorrect')),
  confidence_score DOUBLE PRECISION,
  reasoning TEXT,
  manually_reviewed BOOLEAN NOT NULL DEFAULT FALSE,
  reviewer_notes TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (verification_job_id, sentence_index)
);

CREATE TABLE IF NOT EXISTS citations (
  id UUID PRIMARY KEY,
  verified_sentence_id UUID NOT NULL REFERENCES verified_sentences(id) ON DELETE CASCADE,
  source_document_id UUID REFERENCES documents(id) ON DELETE SET NULL,
  cited_text TEXT NOT NULL,
  filename TEXT,
  page_number INT,
  start_char INT,
  end_char INT,
  similarity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  relevance_rank INT NOT NULL DEFAULT 0,
  context_before TEXT,
  context_after TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_citations_sentence ON citations(verified_sentence_id, relevance_rank);
`

// EnsureSchema creates the tables the pipeline needs.
func EnsureSchema(ctx context.Context, db *DB) error {
	if _, err := db.Pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
