package report

import (
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/upm/internal/core"
)

// Op marks a diff line as shared, local only or remote only
type Op int

const (
	Equal  Op = iota
	Delete    // only in local
	Insert    // only in remote
)

func (o Op) String() string {
	switch o {
	case Delete:
		return "-"
	case Insert:
		return "+"
	default:
		return " "
	}
}

type Line struct {
	Op   Op
	Text string
}

func (l Line) String() string {
	return l.Op.String() + " " + l.Text
}

type Result []Line

// Changed reports whether any line differs
func (r Result) Changed() bool {
	for _, l := range r {
		if l.Op != Equal {
			return true
		}
	}
	return false
}

// Render writes the canonical text form of db: its sync settings and one
// block per account in display order. Revisions are left out so two copies
// holding the same data compare equal.
func Render(db *core.Database, showPasswords bool) string {
	var b strings.Builder
	b.WriteString("url: " + db.SyncURL() + "\n")
	b.WriteString("credentials: " + db.SyncCredentials() + "\n")
	for _, a := range db.Accounts() {
		b.WriteString("[" + a.Name + "]\n")
		b.WriteString("  user: " + a.User + "\n")
		b.WriteString("  password: " + password(a, showPasswords) + "\n")
		b.WriteString("  url: " + a.URL + "\n")
		if a.Notes != "" {
			// Quote so multi-line notes stay on one line of the diff.
			b.WriteString("  notes: " + strconv.Quote(a.Notes) + "\n")
		}
	}
	return b.String()
}

// Diff compares the local database with the remote one line by line.
func Diff(local, remote *core.Database, showPasswords bool) Result {
	dmp := diffmatchpatch.New()

	localStr := Render(local, showPasswords)
	remoteStr := Render(remote, showPasswords)

	// Line-mode diff
	a, b, lineArray := dmp.DiffLinesToChars(localStr, remoteStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var result Result
	for _, d := range diffs {
		op := Equal
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = Delete
		case diffmatchpatch.DiffInsert:
			op = Insert
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			result = append(result, Line{Op: op, Text: strings.TrimSuffix(text, "\n")})
		}
	}
	return result
}
