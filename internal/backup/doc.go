// Package backup keeps copies of a database before it is overwritten.
//
// Two kinds of backup exist:
//   - Local: before a save or an incoming sync replaces the file, it is
//     copied to <name>.<YYYYMMDDhhmmss>.bak next to it. At most 30 such
//     files are kept; the oldest by modification time are pruned.
//   - Remote: before a sync deletes and re-uploads the remote database, the
//     new revision is uploaded under a timestamped backup name. If that
//     upload fails the sync stops and the remote file is left as it was.
package backup
