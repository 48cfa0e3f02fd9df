// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package console

// interpretEscapes expands C-style backslash escapes in data:
// \a \b \f \n \r \t \v \\ \' \" \0, \xHH (one or two hex digits) and
// \NNN (up to three octal digits). Unknown escapes and a trailing
// backslash pass through literally.
func interpretEscapes(data string) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		c := data[i]
		if c != '\\' || i+1 == len(data) {
			out = append(out, c)
			i++
			continue
		}
		i++ // consume the backslash

		switch e := data[i]; {
		case e == 'a':
			out = append(out, '\a')
			i++
		case e == 'b':
			out = append(out, '\b')
			i++
		case e == 'f':
			out = append(out, '\f')
			i++
		case e == 'n':
			out = append(out, '\n')
			i++
		case e == 'r':
			out = append(out, '\r')
			i++
		case e == 't':
			out = append(out, '\t')
			i++
		case e == 'v':
			out = append(out, '\v')
			i++
		case e == '\\', e == '\'', e == '"':
			out = append(out, e)
			i++
		case e == 'x':
			value, digits := hexValue(data[i+1:])
			if digits == 0 {
				// \x with no hex digits stays literal.
				out = append(out, '\\', 'x')
				i++
				break
			}
			out = append(out, value)
			i += 1 + digits
		case e >= '0' && e <= '7':
			value, digits := octalValue(data[i:])
			out = append(out, value)
			i += digits
		default:
			out = append(out, '\\', e)
			i++
		}
	}
	return out
}

// hexValue reads up to two hex digits from the front of s. Returns the
// byte value and the number of digits consumed (0 if none).
func hexValue(s string) (byte, int) {
	var value byte
	digits := 0
	for digits < 2 && digits < len(s) {
		d, ok := hexDigit(s[digits])
		if !ok {
			break
		}
		value = value<<4 | d
		digits++
	}
	return value, digits
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// octalValue reads up to three octal digits from the front of s. The
// first digit is guaranteed by the caller. Overflow past one byte is
// truncated, matching the usual C behavior.
func octalValue(s string) (byte, int) {
	var value byte
	digits := 0
	for digits < 3 && digits < len(s) && s[digits] >= '0' && s[digits] <= '7' {
		value = value<<3 | (s[digits] - '0')
		digits++
	}
	return value, digits
}
