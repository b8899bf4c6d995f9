package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/illarion/upm/internal/backup"
	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/remote/remotetest"
	"github.com/illarion/upm/internal/storage"
)

func setupCLI(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	t.Setenv("UPM_PASSWORD", "xyzzy")
	t.Setenv("UPM_PARANOID_BACKUPS", "false")
	return filepath.Join(home, ".upm", "primary")
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestInitAndRemote(t *testing.T) {
	path := setupCLI(t)

	require.NoError(t, run(t, "init"))
	assert.FileExists(t, path)
	assert.ErrorIs(t, run(t, "init"), ErrDatabaseExists)

	require.NoError(t, run(t, "remote", "set", "--url", "http://example.com/upm/", "--credentials", "sync"))
	require.NoError(t, run(t, "list", "--json"))
	require.NoError(t, run(t, "export"))
	require.NoError(t, run(t, "status"))

	db, err := core.Open(path, "xyzzy")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/upm/", db.SyncURL())
	assert.Equal(t, "sync", db.SyncCredentials())
	assert.Equal(t, uint32(2), db.Revision())

	assert.Error(t, run(t, "remote", "set", "--url", "ftp://example.com"))
	assert.ErrorIs(t, run(t, "show", "missing"), core.ErrAccountNotFound)
	assert.ErrorIs(t, run(t, "rm", "missing"), core.ErrAccountNotFound)
}

func TestOpenMissingDatabase(t *testing.T) {
	setupCLI(t)
	assert.ErrorIs(t, run(t, "list"), ErrNoDatabase)
}

func TestWrongPassword(t *testing.T) {
	setupCLI(t)
	require.NoError(t, run(t, "init"))

	t.Setenv("UPM_PASSWORD", "wrong")
	assert.ErrorIs(t, run(t, "list"), core.ErrBadPassword)
}

func TestSyncRecordsHistory(t *testing.T) {
	path := setupCLI(t)
	srv := remotetest.NewServer("alice", "s3cret")
	defer srv.Close()

	// Seed a database holding the repository credentials.
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	db := core.New()
	require.NoError(t, db.SetPath(path))
	db.SetPassword("xyzzy")
	require.NoError(t, db.AddAccount(core.Account{Name: "sync", User: "alice", Password: "s3cret"}))
	db.SetSyncConfig(srv.URL+"/", "sync")
	require.NoError(t, db.Save(context.Background(), core.Options{}))

	require.NoError(t, run(t, "sync"))
	assert.Equal(t, []string{"primary"}, srv.Names())

	require.NoError(t, run(t, "sync"))
	require.NoError(t, run(t, "history"))
	require.NoError(t, run(t, "history", "--all"))
	historyAll = false
	require.NoError(t, run(t, "diff"))
	require.NoError(t, run(t, "status"))

	j, err := storage.Open(filepath.Join(filepath.Dir(path), "state.db"))
	require.NoError(t, err)
	defer j.Close()

	records, err := j.Databases()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, path, records[0].Path)

	entries, err := j.History(path, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "no change", entries[0].Outcome)
	assert.Equal(t, "remote replaced", entries[1].Outcome)
	assert.Equal(t, uint32(1), entries[0].Revision)
}

func TestKeyring(t *testing.T) {
	setupCLI(t)
	require.NoError(t, run(t, "init", "--keyring"))
	initKeyring = false

	require.NoError(t, run(t, "keyring", "status"))
	require.NoError(t, run(t, "keyring", "delete"))
	require.NoError(t, run(t, "keyring", "delete"))
}

func TestPruneBackups(t *testing.T) {
	path := setupCLI(t)
	dir := filepath.Dir(path)
	require.NoError(t, os.MkdirAll(dir, 0700))

	base := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)
	for i := range 4 {
		ts := base.Add(time.Duration(i) * time.Minute)
		name := filepath.Join(dir, "primary."+ts.Format(backup.TimestampLayout)+backup.Extension)
		require.NoError(t, os.WriteFile(name, nil, 0600))
		require.NoError(t, os.Chtimes(name, ts, ts))
	}

	require.NoError(t, run(t, "prune", "--keep", "1"))
	matches, err := filepath.Glob(filepath.Join(dir, "primary.*.bak"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "primary.20240309140300.bak")}, matches)

	assert.Error(t, run(t, "prune", "--keep", "-1"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 bytes", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}
