package charset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEncoding(t *testing.T) {
	assert.Equal(t, EncodingUTF8, DetectEncoding([]byte("Šifra proizvoda")))
	assert.Equal(t, EncodingUTF8, DetectEncoding([]byte{0xEF, 0xBB, 0xBF, 'a'}))
	// 0x8A is Š in Windows-1250 and invalid UTF-8.
	assert.Equal(t, EncodingWindows1250, DetectEncoding([]byte{0x8A, 'i', 'f', 'r', 'a'}))
}

func TestDecodeWindows1250(t *testing.T) {
	got, err := Decode([]byte{0x8A, 'i', 'f', 'r', 'a'}, EncodingWindows1250)
	require.NoError(t, err)
	assert.Equal(t, "Šifra", got)
}

func TestDecodeISO88592(t *testing.T) {
	// 0xB9 is š in ISO-8859-2.
	got, err := Decode([]byte{0xB9, 'u', 'n', 'k', 'a'}, EncodingISO88592)
	require.NoError(t, err)
	assert.Equal(t, "šunka", got)
}

func TestDecodePassesThroughValidUTF8(t *testing.T) {
	in := "Najniža cijena"
	got, err := Decode([]byte(in), EncodingWindows1250)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestDecodeStripsBOM(t *testing.T) {
	got, err := Decode(append([]byte{0xEF, 0xBB, 0xBF}, []byte("abc")...), EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}
