package storage

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Citations must outlive their source document: the reference is nulled on
// document deletion, never cascaded away.
func TestSchemaCitationSourceDocumentNulledOnDelete(t *testing.T) {
	re := regexp.MustCompile(`source_document_id UUID REFERENCES documents\(id\) ON DELETE SET NULL`)
	assert.True(t, re.MatchString(schemaDDL), "citations.source_document_id must SET NULL when the document goes")

	line := regexp.MustCompile(`source_document_id[^\n]*`).FindString(schemaDDL)
	require.NotEmpty(t, line)
	assert.NotContains(t, line, "CASCADE", "deleting a document must not delete citation rows")
}

func TestSchemaJobProgressIsFractional(t *testing.T) {
	jobs := regexp.MustCompile(`CREATE TABLE IF NOT EXISTS verification_jobs \((?s:.*?)\);`).FindString(schemaDDL)
	require.NotEmpty(t, jobs)
	assert.Contains(t, jobs, "progress DOUBLE PRECISION")
}
