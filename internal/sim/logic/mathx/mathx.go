package mathx

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func ClampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash2 is a stateless 64-bit hash of (seed, a, b). Game randomness derives
// from it so that replays see identical choices.
func Hash2(seed int64, a, b int) uint64 {
	ua := uint64(uint32(int32(a)))
	ub := uint64(uint32(int32(b)))
	v := uint64(seed) ^ (ua * 0x9e3779b97f4a7c15) ^ (ub * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// Pick maps a hash onto [0, n). n must be positive.
func Pick(h uint64, n int) int {
	return int(h % uint64(n))
}
