package util

import (
	"math/big"

	"github.com/veridata-labs/marketplace-broker/common/errors"
)

// ConvertToBigInt parses a base-10 integer string. Amounts cross the wire as
// decimal strings to avoid float precision loss.
func ConvertToBigInt(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("invalid integer string %q", s)
	}
	return v, nil
}
