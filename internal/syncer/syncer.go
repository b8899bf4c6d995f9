package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/upm/internal/backup"
	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/remote"
	"github.com/illarion/upm/internal/upmerr"
)

var (
	ErrNoSyncURL         = errors.New("no sync URL configured")
	ErrNoSyncCredentials = errors.New("no sync credentials account configured")
	ErrLocalExists       = errors.New("local database already exists")
)

// Repository is the remote side of a sync.
type Repository interface {
	Download(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	Upload(ctx context.Context, name string, data []byte) error
}

// RepositoryFactory connects to the repository at url.
type RepositoryFactory func(url, user, password string) Repository

// Outcome says which side of a sync was replaced.
type Outcome int

const (
	NoChange Outcome = iota
	RemoteReplaced
	LocalReplaced
)

func (o Outcome) String() string {
	switch o {
	case RemoteReplaced:
		return "remote replaced"
	case LocalReplaced:
		return "local replaced"
	default:
		return "no change"
	}
}

// Result describes a completed sync.
type Result struct {
	Outcome        Outcome
	LocalRevision  uint32
	RemoteRevision uint32
	RemoteExisted  bool
	// Password decrypts the local file after LocalReplaced.
	Password string
}

// Option adjusts a single sync.
type Option func(*syncConfig)

type syncConfig struct {
	remotePassword    string
	hasRemotePassword bool
}

// WithRemotePassword decrypts the remote database with password instead
// of the local master password.
func WithRemotePassword(password string) Option {
	return func(c *syncConfig) {
		c.remotePassword = password
		c.hasRemotePassword = true
	}
}

// Engine synchronizes databases with their repositories.
type Engine struct {
	opts core.Options
	// NewRepository defaults to an HTTP client from package remote.
	NewRepository RepositoryFactory
}

// NewEngine creates an engine using opts for backups, logging and time.
func NewEngine(opts core.Options) *Engine {
	e := &Engine{opts: opts}
	e.NewRepository = func(url, user, password string) Repository {
		return remote.NewClient(url, user, password, remote.WithLogger(opts.Log()))
	}
	return e
}

// session is everything a sync needs, resolved up front.
type session struct {
	repo           Repository
	name           string
	path           string
	localPassword  string
	remotePassword string
}

func (e *Engine) prepare(db *core.Database, options []Option) (*session, error) {
	var cfg syncConfig
	for _, opt := range options {
		opt(&cfg)
	}

	if !db.HasRemote() {
		return nil, upmerr.New(upmerr.Sync, "sync", ErrNoSyncURL)
	}
	if db.SyncCredentials() == "" {
		return nil, upmerr.New(upmerr.Sync, "sync", ErrNoSyncCredentials)
	}
	creds, ok := db.Account(db.SyncCredentials())
	if !ok {
		return nil, upmerr.New(upmerr.Sync, "sync", fmt.Errorf("%w: account %q not found", ErrNoSyncCredentials, db.SyncCredentials()))
	}
	if db.Path() == "" {
		return nil, upmerr.New(upmerr.Sync, "sync", core.ErrNoPath)
	}
	localPassword, ok := db.Password()
	if !ok {
		return nil, upmerr.New(upmerr.Sync, "sync", core.ErrNoPassword)
	}

	s := &session{
		repo:           e.NewRepository(db.SyncURL(), creds.User, creds.Password),
		name:           db.Name(),
		path:           db.Path(),
		localPassword:  localPassword,
		remotePassword: localPassword,
	}
	if cfg.hasRemotePassword {
		s.remotePassword = cfg.remotePassword
	}
	return s, nil
}

// fetch downloads and decrypts the remote database. A missing remote
// yields nil data and a nil database.
func (e *Engine) fetch(ctx context.Context, s *session) ([]byte, *core.Database, error) {
	data, err := s.repo.Download(ctx, s.name)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, upmerr.New(upmerr.Sync, "download "+s.name, err)
	}

	remoteDB, err := core.LoadBytes(data, s.remotePassword)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load remote database: %w", err)
	}
	return data, remoteDB, nil
}

// Sync reconciles db with its repository by revision: the higher revision
// wins and replaces the other side whole. After LocalReplaced the caller
// must reload the file at db.Path() with Result.Password.
func (e *Engine) Sync(ctx context.Context, db *core.Database, options ...Option) (*Result, error) {
	s, err := e.prepare(db, options)
	if err != nil {
		return nil, err
	}
	log := e.opts.Log().With("database", s.name)

	data, remoteDB, err := e.fetch(ctx, s)
	if err != nil {
		return nil, err
	}

	res := &Result{
		LocalRevision: db.Revision(),
		RemoteExisted: remoteDB != nil,
	}
	if remoteDB != nil {
		res.RemoteRevision = remoteDB.Revision()
	}
	log.Debug(ctx, "comparing revisions", "local", res.LocalRevision, "remote", res.RemoteRevision)

	switch {
	case res.LocalRevision > res.RemoteRevision:
		if err := e.replaceRemote(ctx, db, s, res.RemoteExisted); err != nil {
			return nil, err
		}
		res.Outcome = RemoteReplaced
		db.MarkSynced(e.opts.Clock())

	case res.LocalRevision < res.RemoteRevision:
		if err := e.replaceLocal(ctx, s, data); err != nil {
			return nil, err
		}
		res.Outcome = LocalReplaced
		res.Password = s.remotePassword

	default:
		res.Outcome = NoChange
		db.MarkSynced(e.opts.Clock())
	}

	log.Info(ctx, "sync complete", "outcome", res.Outcome.String(), "local", res.LocalRevision, "remote", res.RemoteRevision)
	return res, nil
}

// replaceRemote runs backup, delete, upload. Delete and upload are not
// atomic together; the remote backup is what makes the gap survivable.
func (e *Engine) replaceRemote(ctx context.Context, db *core.Database, s *session, existed bool) error {
	if e.opts.ParanoidBackups {
		data, err := db.Bytes(s.remotePassword)
		if err != nil {
			return err
		}
		name, err := backup.Remote(ctx, s.repo, s.name, data, e.opts.Clock())
		if err != nil {
			return err
		}
		e.opts.Log().Info(ctx, "remote backup uploaded", "backup", name)
	}

	if existed {
		if err := s.repo.Delete(ctx, s.name); err != nil {
			return upmerr.New(upmerr.Sync, "delete "+s.name, err)
		}
	}

	data, err := db.Bytes(s.localPassword)
	if err != nil {
		return err
	}
	if err := s.repo.Upload(ctx, s.name, data); err != nil {
		return upmerr.New(upmerr.Sync, "upload "+s.name, err)
	}
	return nil
}

func (e *Engine) replaceLocal(ctx context.Context, s *session, data []byte) error {
	if e.opts.ParanoidBackups {
		if _, err := backup.Local(ctx, s.path, e.opts.Clock(), e.opts.BackupLimit(), e.opts.Log()); err != nil {
			return err
		}
	}
	return core.WriteFileAtomic(s.path, data)
}

// Fetch downloads and decrypts the remote copy of db without changing
// either side. It returns nil when the repository has no copy.
func (e *Engine) Fetch(ctx context.Context, db *core.Database, options ...Option) (*core.Database, error) {
	s, err := e.prepare(db, options)
	if err != nil {
		return nil, err
	}
	_, remoteDB, err := e.fetch(ctx, s)
	return remoteDB, err
}

// Download fetches a database that does not exist locally yet from the
// repository at url and writes it to path. The database name is the final
// component of path.
func (e *Engine) Download(ctx context.Context, url, user, password, path string) error {
	name, err := core.NameFromPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return upmerr.New(upmerr.IO, "download", fmt.Errorf("%w: %s", ErrLocalExists, path))
	} else if !os.IsNotExist(err) {
		return upmerr.New(upmerr.IO, "download", err)
	}

	data, err := e.NewRepository(url, user, password).Download(ctx, name)
	if err != nil {
		return upmerr.New(upmerr.Sync, "download "+name, err)
	}
	if err := core.WriteFileAtomic(path, data); err != nil {
		return err
	}
	e.opts.Log().Info(ctx, "database downloaded", "database", name, "bytes", len(data))
	return nil
}
