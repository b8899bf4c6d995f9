package crypto

import (
	"crypto/sha256"
	"unicode/utf8"
)

const (
	pkcs12HashSize  = sha256.Size      // u
	pkcs12BlockSize = sha256.BlockSize // v
)

// BMPString encodes s as null-terminated UCS-2 big endian. Code points
// outside the Basic Multilingual Plane keep only their low 16 bits.
func BMPString(s string) []byte {
	out := make([]byte, 0, utf8.RuneCountInString(s)*2+2)
	for _, r := range s {
		out = append(out, byte(r>>8), byte(r))
	}
	return append(out, 0, 0)
}

// pkcs12Derive fills out with key material per RFC 7292 Appendix B using
// SHA-256. pass must already be a BMPString.
func pkcs12Derive(out, pass, salt []byte, id byte, iterations int) {
	const u, v = pkcs12HashSize, pkcs12BlockSize

	d := make([]byte, v)
	for i := range d {
		d[i] = id
	}

	i := append(fillBlocks(salt, v), fillBlocks(pass, v)...)
	defer ClearBytes(i)

	b := make([]byte, v)
	defer ClearBytes(b)

	h := sha256.New()
	var a []byte
	for n := 0; n < len(out); n += u {
		h.Reset()
		h.Write(d)
		h.Write(i)
		a = h.Sum(a[:0])
		for r := 1; r < iterations; r++ {
			h.Reset()
			h.Write(a)
			a = h.Sum(a[:0])
		}
		copy(out[n:], a)

		if n+u >= len(out) {
			break
		}

		for j := range b {
			b[j] = a[j%u]
		}
		for j := 0; j < len(i); j += v {
			addOne(i[j:j+v], b)
		}
	}
	ClearBytes(a)
}

// fillBlocks repeats src up to the next multiple of v bytes.
func fillBlocks(src []byte, v int) []byte {
	if len(src) == 0 {
		return nil
	}
	n := v * ((len(src) + v - 1) / v)
	out := make([]byte, n)
	for j := range out {
		out[j] = src[j%len(src)]
	}
	return out
}

// addOne sets block = block + b + 1 modulo 2^(8*len(block)), big endian.
func addOne(block, b []byte) {
	carry := 1
	for k := len(block) - 1; k >= 0; k-- {
		carry += int(block[k]) + int(b[k])
		block[k] = byte(carry)
		carry >>= 8
	}
}
