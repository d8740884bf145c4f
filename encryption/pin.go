package encryption

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

/*
NewNumericPin generate a uniformly distributed zero-padded numeric PIN

Random 32-bit words are drawn from the engine RNG and rejection-sampled so
every value in [0, 10^digits) is equally likely.

	@param ctx context.Context - execution context
	@param digits int - number of PIN digits
	@return the PIN string
*/
func (e *cryptoEngine) NewNumericPin(_ context.Context, digits int) (string, error) {
	if digits < 1 || digits > 9 {
		return "", fmt.Errorf("unsupported PIN length %d", digits)
	}

	bound := uint64(1)
	for idx := 0; idx < digits; idx++ {
		bound *= 10
	}
	// Largest multiple of bound representable in 32 bits; draws at or above
	// it are rejected to avoid modulo bias.
	limit := (uint64(1) << 32) / bound * bound

	rng := e.crypto.GetRNGReader()
	raw := make([]byte, 4)
	for {
		if n, err := rng.Read(raw); err != nil {
			return "", fmt.Errorf("failed to read 4 bytes from RNG [%w]", err)
		} else if n != len(raw) {
			return "", fmt.Errorf("did not get 4 bytes from RNG, only %d", n)
		}

		drawn := uint64(binary.BigEndian.Uint32(raw))
		if drawn >= limit {
			continue
		}

		pin := strconv.FormatUint(drawn%bound, 10)
		if padding := digits - len(pin); padding > 0 {
			pin = strings.Repeat("0", padding) + pin
		}
		return pin, nil
	}
}
