// Package storage provides the BBolt sync journal for upm.
//
// The journal lives outside the encrypted database file and holds no
// secrets. Its structure uses three buckets:
//   - config: schema version and timestamps
//   - databases: absolute path of each database file -> ID and creation time
//   - history: one nested bucket per database ID holding sync entries
//
// The database ID keys the master password in the OS keyring and the sync
// history. The history lets upm status report the last successful sync
// across invocations even though the "synced" flag itself lives only in
// memory.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
