package p2pwire

import "strconv"

// ParseInt converts a base-10 string to an int32. The whole string has to be
// the number: no sign other than a leading '-', no whitespace, nothing
// trailing, and the value must fit in 32 bits.
func ParseInt(s string) (int32, bool) {
	if s == "" || s[0] == '+' {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(v), true
}
