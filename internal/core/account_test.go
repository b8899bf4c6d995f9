package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortAccounts(t *testing.T) {
	unordered := []string{"Marlin", "zebra", "Aardvark", "lark", "tiger"}
	ordered := []string{"Aardvark", "lark", "Marlin", "tiger", "zebra"}

	db := New()
	for _, name := range unordered {
		require.NoError(t, db.AddAccount(Account{Name: name, User: "user", Password: "password"}))
	}

	var names []string
	for _, a := range db.Accounts() {
		names = append(names, a.Name)
	}
	assert.Equal(t, ordered, names)
}

func TestAccountsIsSnapshot(t *testing.T) {
	db := New()
	require.NoError(t, db.AddAccount(Account{Name: "a", User: "u"}))

	snapshot := db.Accounts()
	snapshot[0].User = "changed"

	a, _ := db.Account("a")
	assert.Equal(t, "u", a.User, "modifying a snapshot must not change the database")
}

func TestAddAccount(t *testing.T) {
	db := New()
	require.NoError(t, db.AddAccount(Account{Name: "Mail"}))

	var dupErr *DuplicateAccountError
	require.ErrorAs(t, db.AddAccount(Account{Name: "Mail"}), &dupErr)
	assert.Equal(t, "Mail", dupErr.Name)

	// Uniqueness is case-sensitive.
	assert.NoError(t, db.AddAccount(Account{Name: "mail"}))
	assert.ErrorIs(t, db.AddAccount(Account{}), ErrEmptyAccountName)

	assert.True(t, db.Contains("Mail"))
	assert.True(t, db.Contains("mail"))
	assert.False(t, db.Contains("MAIL"))
}

func TestUpdateAccount(t *testing.T) {
	db := New()
	for _, name := range []string{"a", "b"} {
		require.NoError(t, db.AddAccount(Account{Name: name}))
	}

	// Same name, new fields.
	require.NoError(t, db.UpdateAccount("a", Account{Name: "a", User: "alice"}))
	a, _ := db.Account("a")
	assert.Equal(t, "alice", a.User)

	// Rename into an existing name.
	var dupErr *DuplicateAccountError
	assert.ErrorAs(t, db.UpdateAccount("a", Account{Name: "b"}), &dupErr)

	// Rename to a free name.
	require.NoError(t, db.UpdateAccount("a", Account{Name: "c", User: "carol"}))
	assert.False(t, db.Contains("a"))
	assert.True(t, db.Contains("c"))

	assert.ErrorIs(t, db.UpdateAccount("missing", Account{Name: "x"}), ErrAccountNotFound)
}

func TestDeleteAccount(t *testing.T) {
	db := New()
	require.NoError(t, db.AddAccount(Account{Name: "a"}))

	db.DeleteAccount("missing")
	assert.Equal(t, 1, db.Len(), "deleting an unknown name should be a no-op")

	db.DeleteAccount("a")
	assert.Zero(t, db.Len())
}

func TestSyncedStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	db := New()

	assert.False(t, db.IsSynced(now), "new database should not be synced")
	assert.True(t, db.LastSynced().IsZero())

	db.MarkSynced(now)
	assert.Equal(t, now, db.LastSynced())
	assert.True(t, db.IsSynced(now.Add(4*time.Minute)), "synced within five minutes")
	assert.False(t, db.IsSynced(now.Add(SyncValidity)), "sync status expires after five minutes")
	assert.False(t, db.IsSynced(now.Add(-time.Minute)), "a clock going backwards is not synced")

	db.ClearSynced()
	assert.True(t, db.LastSynced().IsZero())

	mutations := map[string]func(){
		"add":    func() { _ = db.AddAccount(Account{Name: "y"}) },
		"update": func() { _ = db.UpdateAccount("x", Account{Name: "x", User: "u"}) },
		"delete": func() { db.DeleteAccount("x") },
		"sync":   func() { db.SetSyncConfig("http://example.com", "x") },
	}
	for name, mutate := range mutations {
		_ = db.AddAccount(Account{Name: "x"})
		db.MarkSynced(now)
		mutate()
		assert.False(t, db.IsSynced(now), "%s should clear sync status", name)
	}
}
