package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sjwg/reporter-backend/internal/data/repos/testutil"
)

type recordingEngine struct {
	calls int
	out   string
}

func (e *recordingEngine) ImageText(ctx context.Context, imageBytes []byte) (string, error) {
	e.calls++
	return e.out, nil
}

func TestExtractImagePassesBytesToEngine(t *testing.T) {
	engine := &recordingEngine{out: "  recognized  "}
	svc := NewExtractService(testutil.Logger(t), engine)

	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("png bytes"), 0o644))

	got, err := svc.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "recognized", got)
	require.Equal(t, 1, engine.calls)
}

func TestExtractRejectsUnknownExtension(t *testing.T) {
	svc := NewExtractService(testutil.Logger(t), &recordingEngine{})
	_, err := svc.Extract(context.Background(), "/tmp/whatever.docx")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported file type")
}

func TestExtractCorruptPDFFails(t *testing.T) {
	svc := NewExtractService(testutil.Logger(t), &recordingEngine{})

	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("not a pdf", 10)), 0o644))

	_, err := svc.Extract(context.Background(), path)
	require.Error(t, err)
}
