package contract

import (
	"github.com/veridata-labs/marketplace-broker/common/errors"
)

// Format indexes the dataset formats accepted by the marketplace contract.
// The on-chain formats mask sets bit i when format i is accepted.
type Format uint8

const (
	FormatCSV Format = iota
	FormatJSON
	FormatParquet
	FormatImages
	FormatText
	FormatAudio

	NumFormats = 6
)

// MaxFormatsMask is the highest valid mask: all NumFormats bits set.
const MaxFormatsMask = uint8(1<<NumFormats - 1)

var (
	ErrInvalidFormatsMask = errors.New("formats mask out of range")
	ErrUnknownFormat      = errors.New("unknown format")
)

var formatNames = [NumFormats]string{"CSV", "JSON", "PARQUET", "IMAGES", "TEXT", "AUDIO"}

func (f Format) String() string {
	if f >= NumFormats {
		return "UNKNOWN"
	}
	return formatNames[f]
}

// ParseFormat resolves a human-readable format name to its ledger enum index.
func ParseFormat(name string) (Format, error) {
	for i, n := range formatNames {
		if n == name {
			return Format(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownFormat, "%q", name)
}

// DecodeFormatsMask expands a mask into the accepted format names, ordered by
// enum index. A zero mask is invalid input, never an empty set.
func DecodeFormatsMask(mask uint8) ([]string, error) {
	if mask == 0 || mask > MaxFormatsMask {
		return nil, errors.Wrapf(ErrInvalidFormatsMask, "mask %d", mask)
	}
	var names []string
	for i := Format(0); i < NumFormats; i++ {
		if mask&(1<<i) != 0 {
			names = append(names, i.String())
		}
	}
	return names, nil
}

// EncodeFormats is the inverse of DecodeFormatsMask.
func EncodeFormats(names []string) (uint8, error) {
	var mask uint8
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return 0, err
		}
		mask |= 1 << f
	}
	if mask == 0 {
		return 0, errors.Wrap(ErrInvalidFormatsMask, "empty format set")
	}
	return mask, nil
}
