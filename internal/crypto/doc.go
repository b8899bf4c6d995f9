// Package crypto provides the cipher layer of the upm database format.
//
// Encryption uses AES-256-CBC with PKCS#7 padding and:
//   - 32-byte key and 16-byte IV, derived independently from the password
//   - 8-byte random salt per save (stored unencrypted in the file header)
//
// Key derivation follows PKCS#12 (RFC 7292, Appendix B) with SHA-256 and
// 20 iterations. The password is first encoded as a null-terminated
// BMPString.
//
// The format has no authentication tag. A wrong password is detected only
// when the decrypted padding is malformed, reported as ErrBadPassword.
//
// Memory safety:
//   - Derived key and IV live in SecretBuffers destroyed on every exit path
//   - Use ClearBytes() to zero other sensitive data after use
package crypto
