package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSubmitCommandFlags(t *testing.T) {
	t.Run("folder is required", func(t *testing.T) {
		err := newApp().Run([]string{"resumectl", "submit", "--namespace", "team-a"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "folder")
	})

	t.Run("namespace is required", func(t *testing.T) {
		err := newApp().Run([]string{"resumectl", "submit", "--folder", "abc"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "namespace")
	})
}

func TestStatusRejectsBadJobID(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "jobs.db"))
	t.Setenv("EMBED_PROVIDER", "hash")
	t.Setenv("QDRANT_HOST", "")
	t.Setenv("GROQ_API_KEY", "")

	err := newApp().Run([]string{"resumectl", "status", "--job", "not-a-uuid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid job id")
}

func TestAskRequiresQuestion(t *testing.T) {
	err := newApp().Run([]string{"resumectl", "ask"})
	require.Error(t, err)
}

func TestIngestCommand_InMemory(t *testing.T) {
	t.Setenv("EMBED_PROVIDER", "hash")
	t.Setenv("EMBED_DIM", "32")
	t.Setenv("QDRANT_HOST", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jane.txt"),
		[]byte("Jane Doe\nPython developer with 6 years of experience.\nAWS and Docker."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))
	out := filepath.Join(t.TempDir(), "report.xlsx")

	err := newApp().Run([]string{"resumectl", "ingest", "--dir", dir, "--inmem", "--out", out})
	require.NoError(t, err)

	wb, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows("Files")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "jane.txt", rows[1][0])
	assert.Equal(t, "succeeded", rows[1][2])
	assert.Contains(t, rows[1][4], "python")
}
