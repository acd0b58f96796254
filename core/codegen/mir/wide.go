package mir

import (
	"github.com/holiman/uint256"
)

// ComposeWide packs per-lane 32-bit immediates, lane 0 in the low bits, into
// one wide constant. Used when a register tuple is assembled from constant
// moves and the tuple's value is wanted as a single number, e.g. for splat
// detection diagnostics on 64-bit and 128-bit sequences.
func ComposeWide(lanes []uint32) *uint256.Int {
	v := new(uint256.Int)
	tmp := new(uint256.Int)
	for i, lane := range lanes {
		tmp.SetUint64(uint64(lane))
		tmp.Lsh(tmp, uint(i)*32)
		v.Or(v, tmp)
	}
	return v
}

// SplitWide64 breaks a 64-bit immediate into its low and high 32-bit lanes.
func SplitWide64(imm int64) (lo, hi uint32) {
	v := uint256.NewInt(uint64(imm))
	lo = uint32(v.Uint64())
	hi = uint32(v.Rsh(v, 32).Uint64())
	return lo, hi
}

// IsSplat64 reports whether a 64-bit immediate repeats the same 32-bit
// value in both lanes, and returns that value.
func IsSplat64(imm int64) (uint32, bool) {
	lo, hi := SplitWide64(imm)
	if lo == hi {
		return lo, true
	}
	return 0, false
}
