package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstPageMissingFile(t *testing.T) {
	_, err := FirstPage(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
}

func TestFirstPageNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a pdf"), 0o644))
	_, err := FirstPage(path)
	require.Error(t, err)
}
