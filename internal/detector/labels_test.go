package detector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLabelsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classes.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadLabels(t *testing.T) {
	path := writeLabelsFile(t, "# food classes\nKimchi\nRice\n\nBulgogi\n")
	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kimchi", "Rice", "Bulgogi"}, labels)
}

func TestLoadLabelsEmptyFile(t *testing.T) {
	path := writeLabelsFile(t, "# nothing here\n\n")
	_, err := LoadLabels(path)
	require.Error(t, err)
}

func TestLoadLabelsMissingFile(t *testing.T) {
	_, err := LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
