//go:build !cortexm3

package strconvx

import "strconv"

// The goal is signature parity with strconv.
// Delegate straight through, except that ParseInt/ParseUint with base 0
// read a bare leading 0 ("075") as decimal, as the MCU build does.

func Itoa(i int) string                                   { return strconv.Itoa(i) }
func Atoi(s string) (int, error)                          { return strconv.Atoi(s) }
func FormatInt(i int64, base int) string                  { return strconv.FormatInt(i, base) }
func FormatUint(u uint64, base int) string                { return strconv.FormatUint(u, base) }
func ParseInt(s string, base, bitSize int) (int64, error) {
	return strconv.ParseInt(s, autoBase(s, base), bitSize)
}
func ParseUint(s string, base, bitSize int) (uint64, error) {
	return strconv.ParseUint(s, autoBase(s, base), bitSize)
}

// autoBase returns 10 for base 0 when s, after an optional sign, is a 0
// followed by another digit; otherwise it returns base unchanged.
func autoBase(s string, base int) int {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if base == 0 && len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9' {
		return 10
	}
	return base
}
func FormatFloat(f float64, fmt byte, prec, bitSize int) string {
	return strconv.FormatFloat(f, fmt, prec, bitSize)
}
func ParseFloat(s string, bitSize int) (float64, error) { return strconv.ParseFloat(s, bitSize) }
