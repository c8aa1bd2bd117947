package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStoreFetchTemplate(t *testing.T) {
	dir := t.TempDir()
	content := []byte("%PDF-1.7 test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "modelo-100.pdf"), content, 0o600))

	d := NewDirStore(dir)

	got, err := d.FetchTemplate("modelo-100.pdf")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = d.FetchTemplate("missing.pdf")
	assert.Error(t, err)
}

func TestDirStoreRejectsEscapingKeys(t *testing.T) {
	d := NewDirStore(t.TempDir())

	for _, key := range []string{
		"../secrets.pdf",
		"../../etc/passwd",
		"/etc/passwd",
		"sub/../../outside.pdf",
	} {
		_, err := d.FetchTemplate(key)
		assert.Error(t, err, "key %q must be rejected", key)
	}
}

func TestNewS3StoreRequiresConfig(t *testing.T) {
	_, err := NewS3Store("", "bucket")
	assert.Error(t, err)
	_, err = NewS3Store("eu-west-1", "")
	assert.Error(t, err)
}
