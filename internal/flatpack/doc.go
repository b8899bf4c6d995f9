// Package flatpack encodes and decodes length-prefixed text records.
//
// Each record is a four-digit ASCII decimal length (0000-9999) followed by
// that many bytes of UTF-8 payload. Integers are stored as decimal text.
// A database plaintext is nothing but a flat run of these records.
package flatpack
