package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/upm/internal/logging"
	"github.com/illarion/upm/internal/upmerr"
)

var testTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestFilename(t *testing.T) {
	name, err := Filename("/path/to/file", testTime)
	require.NoError(t, err)
	assert.Equal(t, "/path/to/file.20240309140507.bak", name)

	local := testTime.In(time.FixedZone("X", 3*3600))
	name, err = Filename("file", local)
	require.NoError(t, err)
	assert.Equal(t, "file.20240309140507.bak", name)

	for _, bad := range []string{"", "/", "dir/..", "bad\xff"} {
		_, err := Filename(bad, testTime)
		assert.ErrorIs(t, err, ErrInvalidFilename, bad)
	}
}

func TestLocalMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primary")

	made, err := Local(context.Background(), path, testTime, MaxBackups, logging.Discard())
	require.NoError(t, err)
	assert.False(t, made)
}

func TestLocalCopiesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "primary")
	require.NoError(t, os.WriteFile(path, []byte("database"), 0600))

	made, err := Local(context.Background(), path, testTime, MaxBackups, logging.Discard())
	require.NoError(t, err)
	assert.True(t, made)

	data, err := os.ReadFile(filepath.Join(dir, "primary.20240309140507.bak"))
	require.NoError(t, err)
	assert.Equal(t, "database", string(data))
}

func TestLocalSameSecondKeepsEarlierBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "primary")

	for _, content := range []string{"rev1", "rev2", "rev3"} {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		made, err := Local(context.Background(), path, testTime, MaxBackups, logging.Discard())
		require.NoError(t, err)
		require.True(t, made)
	}

	for name, want := range map[string]string{
		"primary.20240309140507.bak":   "rev1",
		"primary.20240309140507-1.bak": "rev2",
		"primary.20240309140507-2.bak": "rev3",
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, want, string(data), name)
	}
}

func TestLocalPrunesToLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "primary")
	require.NoError(t, os.WriteFile(path, []byte("database"), 0600))

	// 32 existing backups, one hour apart.
	base := testTime.Add(-100 * time.Hour)
	for i := range 32 {
		ts := base.Add(time.Duration(i) * time.Hour)
		name := filepath.Join(dir, fmt.Sprintf("primary.%s.bak", ts.Format(TimestampLayout)))
		require.NoError(t, os.WriteFile(name, []byte("old"), 0600))
		require.NoError(t, os.Chtimes(name, ts, ts))
	}
	unrelated := filepath.Join(dir, "secondary.20000101000000.bak")
	require.NoError(t, os.WriteFile(unrelated, nil, 0600))
	old := base.Add(-time.Hour)
	require.NoError(t, os.Chtimes(unrelated, old, old))

	made, err := Local(context.Background(), path, testTime, MaxBackups, logging.Discard())
	require.NoError(t, err)
	require.True(t, made)

	matches, err := filepath.Glob(filepath.Join(dir, "primary.*.bak"))
	require.NoError(t, err)
	assert.Len(t, matches, MaxBackups)

	// The three oldest were removed, the new one kept.
	for i := range 3 {
		ts := base.Add(time.Duration(i) * time.Hour)
		assert.NoFileExists(t, filepath.Join(dir, fmt.Sprintf("primary.%s.bak", ts.Format(TimestampLayout))))
	}
	assert.FileExists(t, filepath.Join(dir, "primary.20240309140507.bak"))
	assert.FileExists(t, unrelated)
	assert.FileExists(t, path)
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db")
	for i := range 5 {
		name := filepath.Join(dir, fmt.Sprintf("db.%d.bak", i))
		require.NoError(t, os.WriteFile(name, nil, 0600))
		ts := testTime.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(name, ts, ts))
	}

	deleted, err := Prune(path, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.FileExists(t, filepath.Join(dir, "db.3.bak"))
	assert.FileExists(t, filepath.Join(dir, "db.4.bak"))

	deleted, err = Prune(path, 2)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

type fakeUploader struct {
	name string
	data []byte
	err  error
}

func (f *fakeUploader) Upload(ctx context.Context, name string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.name = name
	f.data = data
	return nil
}

func TestRemote(t *testing.T) {
	up := &fakeUploader{}
	name, err := Remote(context.Background(), up, "primary", []byte("db"), testTime)
	require.NoError(t, err)
	assert.Equal(t, "primary.20240309140507.bak", name)
	assert.Equal(t, name, up.name)
	assert.Equal(t, []byte("db"), up.data)
}

func TestRemoteFailure(t *testing.T) {
	errUpload := errors.New("upload failed")
	up := &fakeUploader{err: errUpload}

	_, err := Remote(context.Background(), up, "primary", []byte("db"), testTime)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUpload)
	assert.Equal(t, upmerr.Backup, upmerr.KindOf(err))
}
