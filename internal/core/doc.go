// Package core provides the upm credential database.
//
// A database file is laid out as:
//   - "UPM" magic and format version byte 3
//   - 8-byte random salt, regenerated on every save
//   - AES-256-CBC ciphertext of a flatpack record stream
//
// The record stream holds the revision, sync URL and sync credentials
// account name, followed by five records per account (name, user,
// password, url, notes).
//
// Core operations include:
//   - Open/LoadBytes: Decrypt and parse a database
//   - Save: Bump the revision, back up, and replace the file atomically
//   - AddAccount/UpdateAccount/DeleteAccount: Edit accounts by unique name
//   - ChangePassword: Re-encrypt under a new master password
//
// Account names are unique by exact match but listed in case-insensitive
// order. Passwords and decrypted records are held as Go strings and are
// not wiped from memory.
package core
