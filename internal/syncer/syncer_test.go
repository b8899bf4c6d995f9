package syncer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/remote/remotetest"
	"github.com/illarion/upm/internal/upmerr"
)

const (
	repoUser     = "alice"
	repoPassword = "repo-secret"
	dbName       = "primary"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func testOptions() core.Options {
	opts := core.DefaultOptions()
	opts.Now = func() time.Time { return testNow }
	return opts
}

// newDatabase creates a database file at dir/primary saved until it
// reaches revision rev, configured to sync with srv.
func newDatabase(t *testing.T, dir string, srv *remotetest.Server, password string, rev int, accounts ...string) *core.Database {
	t.Helper()
	opts := testOptions()
	opts.ParanoidBackups = false

	db := core.New()
	db.SetPassword(password)
	require.NoError(t, db.SetPath(filepath.Join(dir, dbName)))
	db.SetSyncConfig(srv.URL, "repo")
	require.NoError(t, db.AddAccount(core.Account{Name: "repo", User: repoUser, Password: repoPassword}))
	for _, name := range accounts {
		require.NoError(t, db.AddAccount(core.Account{Name: name}))
	}
	for range rev {
		require.NoError(t, db.Save(context.Background(), opts))
	}
	return db
}

// putRemote stores a database at revision rev in the repository.
func putRemote(t *testing.T, srv *remotetest.Server, password string, rev int, accounts ...string) {
	t.Helper()
	db := newDatabase(t, t.TempDir(), srv, password, rev, accounts...)
	data, err := os.ReadFile(db.Path())
	require.NoError(t, err)
	srv.Put(dbName, data)
}

func remoteRevision(t *testing.T, srv *remotetest.Server, password string) uint32 {
	t.Helper()
	data, ok := srv.Get(dbName)
	require.True(t, ok, "remote database missing")
	db, err := core.LoadBytes(data, password)
	require.NoError(t, err)
	return db.Revision()
}

func TestSyncLocalNewer(t *testing.T) {
	srv := remotetest.NewServer(repoUser, repoPassword)
	defer srv.Close()

	putRemote(t, srv, "pw", 3)
	db := newDatabase(t, t.TempDir(), srv, "pw", 5)

	res, err := NewEngine(testOptions()).Sync(context.Background(), db)
	require.NoError(t, err)

	assert.Equal(t, RemoteReplaced, res.Outcome)
	assert.Equal(t, uint32(5), res.LocalRevision)
	assert.Equal(t, uint32(3), res.RemoteRevision)
	assert.True(t, res.RemoteExisted)
	assert.Equal(t, uint32(5), remoteRevision(t, srv, "pw"))
	assert.True(t, db.IsSynced(testNow))

	backupName := "primary.20240601100000.bak"
	assert.Equal(t, []string{dbName, backupName}, srv.Names())
	assert.Equal(t, []string{
		"GET /primary",
		"POST /upload.php",
		"POST /deletefile.php",
		"POST /upload.php",
	}, srv.Requests())
}

func TestSyncRemoteNewer(t *testing.T) {
	srv := remotetest.NewServer(repoUser, repoPassword)
	defer srv.Close()

	putRemote(t, srv, "pw", 5, "from-remote")
	dir := t.TempDir()
	db := newDatabase(t, dir, srv, "pw", 3)

	res, err := NewEngine(testOptions()).Sync(context.Background(), db)
	require.NoError(t, err)

	assert.Equal(t, LocalReplaced, res.Outcome)
	assert.Equal(t, "pw", res.Password)
	assert.Equal(t, []string{"GET /primary"}, srv.Requests())

	reloaded, err := core.Open(db.Path(), res.Password)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), reloaded.Revision())
	assert.True(t, reloaded.Contains("from-remote"))

	assert.FileExists(t, filepath.Join(dir, "primary.20240601100000.bak"))
}

func TestSyncEqualRevisions(t *testing.T) {
	srv := remotetest.NewServer(repoUser, repoPassword)
	defer srv.Close()

	putRemote(t, srv, "pw", 4)
	db := newDatabase(t, t.TempDir(), srv, "pw", 4)

	res, err := NewEngine(testOptions()).Sync(context.Background(), db)
	require.NoError(t, err)

	assert.Equal(t, NoChange, res.Outcome)
	assert.Equal(t, []string{"GET /primary"}, srv.Requests())
	assert.True(t, db.IsSynced(testNow))
}

func TestSyncRemoteMissing(t *testing.T) {
	srv := remotetest.NewServer(repoUser, repoPassword)
	defer srv.Close()

	db := newDatabase(t, t.TempDir(), srv, "pw", 1)
	opts := testOptions()
	opts.ParanoidBackups = false

	res, err := NewEngine(opts).Sync(context.Background(), db)
	require.NoError(t, err)

	assert.Equal(t, RemoteReplaced, res.Outcome)
	assert.False(t, res.RemoteExisted)
	assert.Equal(t, []string{"GET /primary", "POST /upload.php"}, srv.Requests())
	assert.Equal(t, uint32(1), remoteRevision(t, srv, "pw"))
}

func TestSyncRemoteBackupFailureLeavesRemote(t *testing.T) {
	srv := remotetest.NewServer(repoUser, repoPassword)
	defer srv.Close()
	srv.FailUpload = func(name string) bool { return strings.HasSuffix(name, ".bak") }

	putRemote(t, srv, "pw", 3)
	before, _ := srv.Get(dbName)
	db := newDatabase(t, t.TempDir(), srv, "pw", 5)

	_, err := NewEngine(testOptions()).Sync(context.Background(), db)
	require.Error(t, err)
	assert.Equal(t, upmerr.Backup, upmerr.KindOf(err))

	after, ok := srv.Get(dbName)
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"GET /primary", "POST /upload.php"}, srv.Requests())
	assert.False(t, db.IsSynced(testNow))
}

func TestSyncDeleteFailure(t *testing.T) {
	srv := remotetest.NewServer(repoUser, repoPassword)
	defer srv.Close()
	srv.FailDelete = true

	putRemote(t, srv, "pw", 1)
	db := newDatabase(t, t.TempDir(), srv, "pw", 2)

	_, err := NewEngine(testOptions()).Sync(context.Background(), db)
	require.Error(t, err)
	assert.Equal(t, upmerr.Sync, upmerr.KindOf(err))
	assert.Equal(t, uint32(1), remoteRevision(t, srv, "pw"))
}

func TestSyncBadPassword(t *testing.T) {
	srv := remotetest.NewServer(repoUser, repoPassword)
	defer srv.Close()

	putRemote(t, srv, "remote-pw", 5)
	db := newDatabase(t, t.TempDir(), srv, "local-pw", 3)
	engine := NewEngine(testOptions())

	_, err := engine.Sync(context.Background(), db)
	require.ErrorIs(t, err, core.ErrBadPassword)
	assert.True(t, upmerr.Is(err, upmerr.Crypto))
	assert.Equal(t, []string{"GET /primary"}, srv.Requests())

	res, err := engine.Sync(context.Background(), db, WithRemotePassword("remote-pw"))
	require.NoError(t, err)
	assert.Equal(t, LocalReplaced, res.Outcome)
	assert.Equal(t, "remote-pw", res.Password)

	_, err = core.Open(db.Path(), "remote-pw")
	assert.NoError(t, err)
}

func TestSyncRemotePasswordOnUpload(t *testing.T) {
	srv := remotetest.NewServer(repoUser, repoPassword)
	defer srv.Close()

	putRemote(t, srv, "remote-pw", 1)
	db := newDatabase(t, t.TempDir(), srv, "local-pw", 2)

	res, err := NewEngine(testOptions()).Sync(context.Background(), db, WithRemotePassword("remote-pw"))
	require.NoError(t, err)
	assert.Equal(t, RemoteReplaced, res.Outcome)

	// The backup is readable with the remote password, the new remote
	// database with the local one.
	backupData, ok := srv.Get("primary.20240601100000.bak")
	require.True(t, ok)
	_, err = core.LoadBytes(backupData, "remote-pw")
	assert.NoError(t, err)
	assert.Equal(t, uint32(2), remoteRevision(t, srv, "local-pw"))
}

func TestSyncPreconditions(t *testing.T) {
	srv := remotetest.NewServer(repoUser, repoPassword)
	defer srv.Close()
	engine := NewEngine(testOptions())
	ctx := context.Background()

	db := core.New()
	_, err := engine.Sync(ctx, db)
	assert.ErrorIs(t, err, ErrNoSyncURL)

	db.SetSyncConfig(srv.URL, "")
	_, err = engine.Sync(ctx, db)
	assert.ErrorIs(t, err, ErrNoSyncCredentials)

	db.SetSyncConfig(srv.URL, "repo")
	_, err = engine.Sync(ctx, db)
	assert.ErrorIs(t, err, ErrNoSyncCredentials)

	require.NoError(t, db.AddAccount(core.Account{Name: "repo", User: repoUser, Password: repoPassword}))
	_, err = engine.Sync(ctx, db)
	assert.ErrorIs(t, err, core.ErrNoPath)

	require.NoError(t, db.SetPath(filepath.Join(t.TempDir(), dbName)))
	_, err = engine.Sync(ctx, db)
	assert.ErrorIs(t, err, core.ErrNoPassword)
	assert.Equal(t, upmerr.Sync, upmerr.KindOf(err))

	assert.Empty(t, srv.Requests())
}

func TestSyncRepositoryAuthFailure(t *testing.T) {
	srv := remotetest.NewServer(repoUser, "other")
	defer srv.Close()

	db := newDatabase(t, t.TempDir(), srv, "pw", 1)
	_, err := NewEngine(testOptions()).Sync(context.Background(), db)
	require.Error(t, err)
	assert.Equal(t, upmerr.Sync, upmerr.KindOf(err))
}

func TestFetch(t *testing.T) {
	srv := remotetest.NewServer(repoUser, repoPassword)
	defer srv.Close()
	engine := NewEngine(testOptions())

	db := newDatabase(t, t.TempDir(), srv, "pw", 1)
	remoteDB, err := engine.Fetch(context.Background(), db)
	require.NoError(t, err)
	assert.Nil(t, remoteDB)

	putRemote(t, srv, "pw", 7, "extra")
	remoteDB, err = engine.Fetch(context.Background(), db)
	require.NoError(t, err)
	require.NotNil(t, remoteDB)
	assert.Equal(t, uint32(7), remoteDB.Revision())
	assert.True(t, remoteDB.Contains("extra"))
	assert.Equal(t, []string{"GET /primary", "GET /primary"}, srv.Requests())
}

func TestDownload(t *testing.T) {
	srv := remotetest.NewServer(repoUser, repoPassword)
	defer srv.Close()
	engine := NewEngine(testOptions())
	ctx := context.Background()

	putRemote(t, srv, "pw", 2)
	path := filepath.Join(t.TempDir(), dbName)

	require.NoError(t, engine.Download(ctx, srv.URL, repoUser, repoPassword, path))
	db, err := core.Open(path, "pw")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), db.Revision())

	err = engine.Download(ctx, srv.URL, repoUser, repoPassword, path)
	assert.ErrorIs(t, err, ErrLocalExists)

	err = engine.Download(ctx, srv.URL, repoUser, repoPassword, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, upmerr.Sync, upmerr.KindOf(err))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "remote replaced", RemoteReplaced.String())
	assert.Equal(t, "local replaced", LocalReplaced.String())
	assert.Equal(t, "no change", NoChange.String())
}
