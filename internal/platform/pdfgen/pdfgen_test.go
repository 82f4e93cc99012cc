package pdfgen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteProducesPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report_1.pdf")

	err := Write(path, Document{
		Title:       "scan.pdf",
		GeneratedAt: time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC),
		AISummary:   "A short structured summary.",
		RawText:     "Recognized line one.\n\nRecognized line two.",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "%PDF"))
	require.Greater(t, len(data), 500)
}

func TestWriteHandlesEmptySections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	err := Write(path, Document{GeneratedAt: time.Now()})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "%PDF"))
}
