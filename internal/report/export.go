package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/illarion/upm/internal/core"
)

// Mask replaces passwords that are not revealed
const Mask = "********"

const (
	headerTimeLayout = "Mon Jan 02 15:04:05 2006 MST"
	shortFormat      = "%-28s %-35s %-10s\n"
	notesIndent      = "\n          "
)

func password(a core.Account, show bool) string {
	if show || a.Password == "" {
		return a.Password
	}
	return Mask
}

// Export writes a text report of db: a header with the sync settings, a
// short table of accounts and a long form with URLs and notes.
func Export(w io.Writer, db *core.Database, now time.Time, showPasswords bool) error {
	ew := &errWriter{w: w}
	accounts := db.Accounts()

	ew.printf("# %s\n", now.Format(headerTimeLayout))
	ew.printf("# revision=%d url=%s credentials=%s\n", db.Revision(), db.SyncURL(), db.SyncCredentials())

	ew.printf(shortFormat, "account", "username", "password")
	ew.printf(shortFormat, strings.Repeat("-", 19), strings.Repeat("-", 34), strings.Repeat("-", 12))
	for _, a := range accounts {
		ew.printf(shortFormat, a.Name, a.User, password(a, showPasswords))
	}

	ew.printf("\nLong-form output (including URLs and notes)\n")
	ew.printf("%s\n\n", strings.Repeat("-", 43))
	for _, a := range accounts {
		ew.printf("Account:  %s\n", a.Name)
		ew.printf("Username: %s\n", a.User)
		ew.printf("Password: %s\n", password(a, showPasswords))
		ew.printf("URL:      %s\n", a.URL)
		ew.printf("Notes:    %s\n\n", formatNotes(a.Notes))
	}
	return ew.err
}

func formatNotes(notes string) string {
	notes = strings.TrimSpace(notes)
	notes = strings.ReplaceAll(notes, "\r\n", "\n")
	return strings.ReplaceAll(notes, "\n", notesIndent)
}

// errWriter keeps the first write error and skips later writes
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
