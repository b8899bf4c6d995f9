package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"runtime"
)

const (
	SaltSize     = 8  // Salt size in bytes, stored in the file header
	KeySize      = 32 // AES-256 key size
	IVSize       = 16 // CBC initialization vector size
	DefaultIters = 20 // PKCS#12 iterations fixed by the file format
)

// PKCS#12 material IDs
const (
	keyMaterialID byte = 1
	ivMaterialID  byte = 2
)

var (
	ErrBadPassword       = errors.New("bad password")
	ErrKeyDerivation     = errors.New("key derivation failed")
	ErrInvalidSalt       = errors.New("invalid salt")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// KDF handles key derivation from passwords
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a new KDF with a random salt
func NewKDF() (*KDF, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &KDF{
		Salt:       salt,
		Iterations: DefaultIters,
	}, nil
}

// KDFWithSalt creates a KDF for an existing salt, as read from a file header
func KDFWithSalt(salt []byte) (*KDF, error) {
	if len(salt) != SaltSize {
		return nil, ErrInvalidSalt
	}
	return &KDF{
		Salt:       bytes.Clone(salt),
		Iterations: DefaultIters,
	}, nil
}

// DeriveKeyIV derives the AES key and CBC IV for password. The caller owns
// both buffers and must Destroy them.
func (k *KDF) DeriveKeyIV(password string) (key, iv *SecretBuffer, err error) {
	if len(k.Salt) != SaltSize {
		return nil, nil, ErrInvalidSalt
	}
	if k.Iterations < 1 {
		return nil, nil, ErrKeyDerivation
	}

	bmp := BMPString(password)
	defer ClearBytes(bmp)

	key = NewSecretBuffer(KeySize)
	pkcs12Derive(key.Bytes(), bmp, k.Salt, keyMaterialID, k.Iterations)

	iv = NewSecretBuffer(IVSize)
	pkcs12Derive(iv.Bytes(), bmp, k.Salt, ivMaterialID, k.Iterations)

	return key, iv, nil
}

// Encrypt encrypts plaintext using AES-256-CBC with PKCS#7 padding
func (k *KDF) Encrypt(password string, plaintext []byte) ([]byte, error) {
	key, iv, err := k.DeriveKeyIV(password)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()
	defer iv.Destroy()

	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	out := make([]byte, len(plaintext)+padLen)
	copy(out, plaintext)
	for i := len(plaintext); i < len(out); i++ {
		out[i] = byte(padLen)
	}

	cipher.NewCBCEncrypter(block, iv.Bytes()).CryptBlocks(out, out)
	return out, nil
}

// Decrypt decrypts ciphertext using AES-256-CBC. A padding mismatch is the
// only signal the format offers for a wrong password, so it is reported as
// ErrBadPassword. About one wrong password in 256 still yields valid
// padding; the garbage plaintext then fails later, when it is parsed.
func (k *KDF) Decrypt(password string, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}

	key, iv, err := k.DeriveKeyIV(password)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()
	defer iv.Destroy()

	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv.Bytes()).CryptBlocks(out, ciphertext)

	n, ok := unpad(out)
	if !ok {
		ClearBytes(out)
		return nil, ErrBadPassword
	}
	return out[:n], nil
}

// unpad validates PKCS#7 padding and returns the payload length.
func unpad(b []byte) (int, bool) {
	padLen := int(b[len(b)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(b) {
		return 0, false
	}
	want := bytes.Repeat([]byte{byte(padLen)}, padLen)
	if !ConstantTimeCompare(b[len(b)-padLen:], want) {
		return 0, false
	}
	return len(b) - padLen, true
}

// ClearBytes securely clears a byte slice
//
//go:noinline
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
