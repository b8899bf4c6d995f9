package core

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/illarion/upm/internal/backup"
	"github.com/illarion/upm/internal/crypto"
	"github.com/illarion/upm/internal/flatpack"
	"github.com/illarion/upm/internal/upmerr"
)

const (
	Magic           = "UPM"
	Version    byte = 3 // Only supported file format version
	HeaderSize      = len(Magic) + 1 + crypto.SaltSize

	// SyncValidity is how long a successful sync keeps the database "synced".
	SyncValidity = 5 * time.Minute
)

// Database is a decrypted credential store. It is owned by one session at a
// time and does no locking.
type Database struct {
	revision        uint32
	syncURL         string
	syncCredentials string
	accounts        []Account

	path        string
	password    string
	hasPassword bool
	lastSynced  time.Time
}

// New creates an empty database at revision 0.
func New() *Database {
	return &Database{}
}

// LoadBytes decrypts and parses a database file image.
func LoadBytes(data []byte, password string) (*Database, error) {
	if len(data) < HeaderSize {
		return nil, upmerr.New(upmerr.Format, "load database", ErrReadUnderrun)
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, upmerr.New(upmerr.Format, "load database", ErrBadMagic)
	}
	if v := data[len(Magic)]; v != Version {
		return nil, upmerr.New(upmerr.Format, "load database", &UnsupportedVersionError{Version: v})
	}

	kdf, err := crypto.KDFWithSalt(data[len(Magic)+1 : HeaderSize])
	if err != nil {
		return nil, upmerr.New(upmerr.Crypto, "load database", err)
	}
	plaintext, err := kdf.Decrypt(password, data[HeaderSize:])
	if err != nil {
		return nil, upmerr.New(upmerr.Crypto, "load database", err)
	}
	defer crypto.ClearBytes(plaintext)

	db, err := parse(plaintext)
	if err != nil {
		return nil, upmerr.New(upmerr.Format, "load database", err)
	}
	db.password = password
	db.hasPassword = true
	return db, nil
}

func parse(plaintext []byte) (*Database, error) {
	p := flatpack.NewParser(plaintext)

	rev, url, creds, err := p.Take3()
	if err != nil {
		return nil, err
	}
	revision, err := strconv.ParseUint(rev, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadRevision, rev)
	}

	db := &Database{
		revision:        uint32(revision),
		syncURL:         url,
		syncCredentials: creds,
	}

	seen := make(map[string]struct{})
	for !p.EOF() {
		name, user, password, acctURL, notes, err := p.Take5()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[name]; dup {
			return nil, &DuplicateAccountError{Name: name}
		}
		seen[name] = struct{}{}
		db.accounts = append(db.accounts, Account{
			Name:     name,
			User:     user,
			Password: password,
			URL:      acctURL,
			Notes:    notes,
		})
	}
	return db, nil
}

// Open loads the database file at path and remembers path and password
// for later saves.
func Open(path, password string) (*Database, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, upmerr.New(upmerr.IO, "open database", err)
	}
	db, err := LoadBytes(data, password)
	if err != nil {
		return nil, err
	}
	db.path = path
	return db, nil
}

// Bytes serializes and encrypts the database under password with a fresh
// salt. The revision is written as is.
func (db *Database) Bytes(password string) ([]byte, error) {
	w := flatpack.NewWriter()
	defer w.Wipe()

	if err := db.pack(w); err != nil {
		return nil, upmerr.New(upmerr.Format, "encode database", err)
	}

	kdf, err := crypto.NewKDF()
	if err != nil {
		return nil, upmerr.New(upmerr.Crypto, "encode database", err)
	}
	ciphertext, err := kdf.Encrypt(password, w.Bytes())
	if err != nil {
		return nil, upmerr.New(upmerr.Crypto, "encode database", err)
	}

	out := make([]byte, 0, HeaderSize+len(ciphertext))
	out = append(out, Magic...)
	out = append(out, Version)
	out = append(out, kdf.Salt...)
	out = append(out, ciphertext...)
	return out, nil
}

func (db *Database) pack(w *flatpack.Writer) error {
	if err := w.PutUint32(db.revision); err != nil {
		return err
	}
	if err := w.PutString(db.syncURL); err != nil {
		return fmt.Errorf("sync URL: %w", err)
	}
	if err := w.PutString(db.syncCredentials); err != nil {
		return fmt.Errorf("sync credentials: %w", err)
	}
	for _, a := range db.accounts {
		for _, field := range []string{a.Name, a.User, a.Password, a.URL, a.Notes} {
			if err := w.PutString(field); err != nil {
				return fmt.Errorf("account %q: %w", a.Name, err)
			}
		}
	}
	return nil
}

// Save writes the database to its path under its password. It bumps the
// revision once, backs up the previous file when paranoid backups are on,
// and replaces the file atomically. On failure the revision is restored.
func (db *Database) Save(ctx context.Context, opts Options) error {
	if db.path == "" {
		return upmerr.New(upmerr.IO, "save database", ErrNoPath)
	}
	if !db.hasPassword {
		return upmerr.New(upmerr.IO, "save database", ErrNoPassword)
	}
	if db.revision == math.MaxUint32 {
		return upmerr.New(upmerr.Format, "save database", ErrRevisionOverflow)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log := opts.Log().With("path", db.path)
	prev := db.revision
	db.revision++

	if opts.ParanoidBackups {
		if _, err := backup.Local(ctx, db.path, opts.Clock(), opts.BackupLimit(), log); err != nil {
			db.revision = prev
			return err
		}
	}

	data, err := db.Bytes(db.password)
	if err != nil {
		db.revision = prev
		return err
	}
	if err := WriteFileAtomic(db.path, data); err != nil {
		db.revision = prev
		return err
	}

	db.ClearSynced()
	log.Info(ctx, "database saved", "revision", db.revision)
	return nil
}

// ChangePassword re-encrypts the database under newPassword and saves it.
// If the save fails the old password stays in effect.
func (db *Database) ChangePassword(ctx context.Context, newPassword string, opts Options) error {
	oldPassword, oldHas := db.password, db.hasPassword
	db.SetPassword(newPassword)
	if err := db.Save(ctx, opts); err != nil {
		db.password, db.hasPassword = oldPassword, oldHas
		return err
	}
	return nil
}

// Account returns the account with exactly this name.
func (db *Database) Account(name string) (Account, bool) {
	if i := db.index(name); i >= 0 {
		return db.accounts[i], true
	}
	return Account{}, false
}

// Contains reports whether an account with exactly this name exists.
func (db *Database) Contains(name string) bool {
	return db.index(name) >= 0
}

func (db *Database) index(name string) int {
	return slices.IndexFunc(db.accounts, func(a Account) bool { return a.Name == name })
}

// Accounts returns a copy of all accounts, sorted by name ignoring case.
func (db *Database) Accounts() []Account {
	out := slices.Clone(db.accounts)
	SortAccounts(out)
	return out
}

// Len returns the number of accounts.
func (db *Database) Len() int {
	return len(db.accounts)
}

// AddAccount adds a new account. Names are compared case-sensitively.
func (db *Database) AddAccount(a Account) error {
	if a.Name == "" {
		return ErrEmptyAccountName
	}
	if db.Contains(a.Name) {
		return &DuplicateAccountError{Name: a.Name}
	}
	db.accounts = append(db.accounts, a)
	db.ClearSynced()
	return nil
}

// UpdateAccount replaces the account called oldName with a, which may
// carry a new name.
func (db *Database) UpdateAccount(oldName string, a Account) error {
	if a.Name == "" {
		return ErrEmptyAccountName
	}
	i := db.index(oldName)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, oldName)
	}
	if a.Name != oldName && db.Contains(a.Name) {
		return &DuplicateAccountError{Name: a.Name}
	}
	db.accounts[i] = a
	db.ClearSynced()
	return nil
}

// DeleteAccount removes the named account. Unknown names are ignored.
func (db *Database) DeleteAccount(name string) {
	if i := db.index(name); i >= 0 {
		db.accounts = slices.Delete(db.accounts, i, i+1)
		db.ClearSynced()
	}
}

// SetSyncConfig sets the repository URL and the name of the account whose
// user and password authenticate against it.
func (db *Database) SetSyncConfig(url, credentials string) {
	db.syncURL = url
	db.syncCredentials = credentials
	db.ClearSynced()
}

func (db *Database) SyncURL() string         { return db.syncURL }
func (db *Database) SyncCredentials() string { return db.syncCredentials }
func (db *Database) Revision() uint32        { return db.revision }

// HasRemote reports whether a sync repository is configured.
func (db *Database) HasRemote() bool {
	return db.syncURL != ""
}

// SetPath sets the local file location after validating it.
func (db *Database) SetPath(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	db.path = path
	return nil
}

func (db *Database) Path() string {
	return db.path
}

// Name returns the database name used in the remote repository: the final
// component of its path, or "" without a path.
func (db *Database) Name() string {
	if db.path == "" {
		return ""
	}
	return filepath.Base(db.path)
}

// SetPassword sets the master password used by Save.
func (db *Database) SetPassword(password string) {
	db.password = password
	db.hasPassword = true
}

// Password returns the master password and whether one is set.
func (db *Database) Password() (string, bool) {
	return db.password, db.hasPassword
}

// MarkSynced records a successful sync at t.
func (db *Database) MarkSynced(t time.Time) {
	db.lastSynced = t
}

// ClearSynced forgets the last sync.
func (db *Database) ClearSynced() {
	db.lastSynced = time.Time{}
}

// LastSynced returns the last sync time, zero if none.
func (db *Database) LastSynced() time.Time {
	return db.lastSynced
}

// IsSynced reports whether the last sync happened within SyncValidity of now.
func (db *Database) IsSynced(now time.Time) bool {
	if db.lastSynced.IsZero() {
		return false
	}
	elapsed := now.Sub(db.lastSynced)
	return elapsed >= 0 && elapsed < SyncValidity
}

func (db *Database) String() string {
	return fmt.Sprintf("Database(rev=%d,url=%s,cred=%s,count=%d)",
		db.revision, db.syncURL, db.syncCredentials, len(db.accounts))
}
