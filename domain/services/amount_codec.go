package services

import "math"

// MinorUnitsPerStablecoinUnit is 10^6: the stablecoin's fractional
// precision (six decimal digits).
const MinorUnitsPerStablecoinUnit = 1_000_000

// amountCodec implements the remainder-tag amount-encoding scheme: the
// option index is folded into the low-order decimal digit of the
// minor-unit transfer amount so it survives even when higher-layer
// metadata is lost by an intermediate wallet.
type amountCodec struct{}

// NewAmountCodec constructs the reference AmountCodec.
func NewAmountCodec() *amountCodec {
	return &amountCodec{}
}

// Encode returns floor(stake * 10^6) + (optionIndex + 1).
func (amountCodec) Encode(optionIndex int, stake float64) int64 {
	base := int64(math.Floor(stake * MinorUnitsPerStablecoinUnit))
	return base + int64(optionIndex+1)
}

// Decode takes the received minor-unit amount and recovers the option
// index from remainder = a mod 10. A remainder of 0 or >= 6 carries no
// option signal; the second return value is false in that case.
func (amountCodec) Decode(minorUnits int64) (int, bool) {
	remainder := minorUnits % 10
	if remainder < 1 || remainder > 5 {
		return 0, false
	}
	return int(remainder) - 1, true
}
