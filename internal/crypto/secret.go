package crypto

// SecretBuffer holds short-lived key material. It is owned by a single
// cipher call and must be destroyed before that call returns.
type SecretBuffer struct {
	b []byte
}

// NewSecretBuffer allocates a zeroed buffer of n bytes
func NewSecretBuffer(n int) *SecretBuffer {
	return &SecretBuffer{b: make([]byte, n)}
}

// Bytes exposes the underlying slice. It is nil after Destroy.
func (s *SecretBuffer) Bytes() []byte {
	return s.b
}

// Destroy zeroes the buffer. Safe to call more than once.
func (s *SecretBuffer) Destroy() {
	if s == nil {
		return
	}
	ClearBytes(s.b)
	s.b = nil
}
