// Package report renders databases as text: a flat export listing every
// account and a line diff between a local and a remote copy.
//
// Passwords are masked unless the caller asks for them.
package report
