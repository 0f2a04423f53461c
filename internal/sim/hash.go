package sim

import "unicode/utf16"

// Hash is the polynomial string hash h = h*31 + c over UTF-16 code units,
// truncated to 32 bits and made non-negative. It only needs to be stable,
// not well distributed.
func Hash(s string) int {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v)
}
