package catalog

import (
	"errors"
	"strings"
)

// ErrInvalidISBN is returned for codes that are neither ISBN-10 nor ISBN-13.
var ErrInvalidISBN = errors.New("catalog: invalid isbn")

// NormalizeISBN strips spaces and hyphens from raw and validates the result
// as an ISBN-10 or ISBN-13 including its check digit. An empty input is
// accepted and returned as "".
func NormalizeISBN(raw string) (string, error) {
	code := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	code = strings.ToUpper(code)
	switch len(code) {
	case 0:
		return "", nil
	case 10:
		if validISBN10(code) {
			return code, nil
		}
	case 13:
		if validISBN13(code) {
			return code, nil
		}
	}
	return "", ErrInvalidISBN
}

func validISBN10(code string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := code[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += (10 - i) * v
	}
	return sum%11 == 0
}

func validISBN13(code string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		v := int(c - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}
