package wrap

// MaxBits is the widest counter these helpers accept.
const MaxBits = 63

func checkBits(bits uint) {
	if bits == 0 || bits > MaxBits {
		panic("wrap: counter width out of range")
	}
}

// Modulus is the number of distinct values of a bits-wide counter.
func Modulus(bits uint) uint64 {
	checkBits(bits)
	return uint64(1) << bits
}

// Mask returns the low-bits mask of a bits-wide counter.
func Mask(bits uint) uint64 {
	return Modulus(bits) - 1
}

// Truncate drops everything above the counter width.
func Truncate(value uint64, bits uint) uint64 {
	return value & Mask(bits)
}

// Forward is the number of increments needed to go from prev to cur on a
// bits-wide counter. The result is always in [0, 2^bits).
func Forward(prev, cur uint64, bits uint) uint64 {
	mask := Mask(bits)
	return ((cur & mask) - (prev & mask)) & mask
}

// Wrapped reports whether going from prev to cur crossed the counter's zero,
// assuming at most one wraparound in between.
func Wrapped(prev, cur uint64, bits uint) bool {
	mask := Mask(bits)
	return cur&mask < prev&mask
}

// Extend combines a wrap count and a raw counter value into a wide value.
func Extend(wraps, raw uint64, bits uint) uint64 {
	return wraps<<bits | Truncate(raw, bits)
}
