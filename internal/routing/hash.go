package routing

import "unicode/utf16"

// HashClient maps a client address to a stable bucket in [0,100).
//
// Each UTF-16 code unit is folded in with h = h*31 + c in signed 32-bit arithmetic,
// and the result is the absolute value of the truncated remainder mod 100. The
// output must stay identical across processes, so neither the width nor the
// remainder semantics may change.
func HashClient(address string) int {
	var h int32
	for _, c := range utf16.Encode([]rune(address)) {
		h = (h << 5) - h + int32(c)
	}

	bucket := h % 100
	if bucket < 0 {
		bucket = -bucket
	}
	return int(bucket)
}
