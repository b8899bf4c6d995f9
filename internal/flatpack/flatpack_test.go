package flatpack

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenParse(t *testing.T) {
	greek := []byte{0xCE, 0xB3, 0xCE, 0xBB, 0xCF, 0x8E, 0xCF, 0x83, 0xCF, 0x83, 0xCE, 0xB1}

	w := NewWriter()
	require.NoError(t, w.PutString("hello"))
	require.NoError(t, w.PutUint32(0))
	require.NoError(t, w.PutUint32(0x100))
	require.NoError(t, w.PutUint32(0xFFFFFFFF))
	require.NoError(t, w.PutBytes(greek))
	require.NoError(t, w.PutUint32(0))
	require.NoError(t, w.PutUint32(0x100))
	require.NoError(t, w.PutUint32(0xFFFFFFFF))
	require.NoError(t, w.PutString("goodbye"))

	p := NewParser(w.Bytes())
	assert.False(t, p.EOF())

	s, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	a, b, c, err := p.Take3()
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "256", "4294967295"}, []string{a, b, c})
	assert.False(t, p.EOF())

	r1, r2, r3, r4, r5, err := p.Take5()
	require.NoError(t, err)
	assert.Equal(t, string(greek), r1)
	assert.Equal(t, []string{"0", "256", "4294967295", "goodbye"}, []string{r2, r3, r4, r5})
	assert.True(t, p.EOF())

	_, err = p.Next()
	assert.Equal(t, io.EOF, err)
}

func TestRecordEncoding(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.PutString(""))
	require.NoError(t, w.PutString("acct"))
	require.NoError(t, w.PutUint32(1))
	assert.Equal(t, "00000004acct00011", string(w.Bytes()))

	w.Wipe()
	assert.Empty(t, w.Bytes())
}

func TestMaxRecordSize(t *testing.T) {
	w := NewWriter()
	full := strings.Repeat("x", MaxRecordSize)
	require.NoError(t, w.PutString(full))

	assert.ErrorIs(t, w.PutString(full+"x"), ErrOverflow)
	assert.ErrorIs(t, w.PutBytes([]byte(full+"x")), ErrOverflow)

	p := NewParser(w.Bytes())
	s, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, full, s)
	assert.True(t, p.EOF())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"short prefix", "00", ErrPrefixUnderrun},
		{"non-digit prefix", "00a1x", ErrInvalidPrefix},
		{"short payload", "0005abc", ErrPayloadUnderrun},
		{"invalid utf8", "0002\xff\xfe", ErrInvalidUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser([]byte(tt.input))
			_, err := p.Next()
			require.ErrorIs(t, err, tt.want)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)

			// The parser stops after the first error.
			_, err = p.Next()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestTruncatedAfterValidRecord(t *testing.T) {
	p := NewParser([]byte("0001a00"))
	s, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", s)

	_, err = p.Next()
	assert.ErrorIs(t, err, ErrPrefixUnderrun)
	assert.False(t, p.EOF())
}

func TestTakeUnderrun(t *testing.T) {
	p := NewParser([]byte("0001a0001b"))
	_, _, _, err := p.Take3()
	assert.ErrorIs(t, err, ErrRecordUnderrun)
}

func TestEmptyBuffer(t *testing.T) {
	p := NewParser(nil)
	assert.True(t, p.EOF())
	_, err := p.Next()
	assert.Equal(t, io.EOF, err)
}
