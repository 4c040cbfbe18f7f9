package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fraud_predictions.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, SafeWriteFile(path, []byte("description\nx\n")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "description\nx\n", string(b))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSafeWriteFileMissingDir(t *testing.T) {
	err := SafeWriteFile(filepath.Join(t.TempDir(), "nope", "out.csv"), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write temp file")
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"fraudulent": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"fraudulent\": 1\n}", string(b))

	_, err = PrettyJSON(make(chan int))
	assert.Error(t, err)
}
