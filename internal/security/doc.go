// Package security confines file operations to one directory.
//
// Backups and their pruning only ever touch siblings of the database file.
// Dir enforces that with Go 1.24's os.Root: names are validated as plain
// file names and every open, stat and remove is resolved inside the root,
// so a crafted name or symlink cannot reach outside it.
package security
