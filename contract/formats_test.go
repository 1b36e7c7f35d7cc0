package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFormatsMaskRoundTrip(t *testing.T) {
	for mask := uint8(1); mask <= MaxFormatsMask; mask++ {
		names, err := DecodeFormatsMask(mask)
		require.NoError(t, err, "mask %d", mask)
		require.NotEmpty(t, names, "mask %d", mask)

		encoded, err := EncodeFormats(names)
		require.NoError(t, err, "mask %d", mask)
		assert.Equal(t, mask, encoded, "mask %d", mask)
	}
}

func TestDecodeFormatsMaskRejectsZero(t *testing.T) {
	_, err := DecodeFormatsMask(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFormatsMask)
}

func TestDecodeFormatsMaskRejectsOutOfRange(t *testing.T) {
	_, err := DecodeFormatsMask(MaxFormatsMask + 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFormatsMask)
}

func TestDecodeFormatsMaskOrdering(t *testing.T) {
	names, err := DecodeFormatsMask(0b101001)
	require.NoError(t, err)
	assert.Equal(t, []string{"CSV", "IMAGES", "AUDIO"}, names)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("PARQUET")
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, f)

	_, err = ParseFormat("parquet")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = ParseFormat("XML")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestEncodeFormatsRejectsEmpty(t *testing.T) {
	_, err := EncodeFormats(nil)
	assert.ErrorIs(t, err, ErrInvalidFormatsMask)
}
