package memcodec

import (
	"unicode/utf8"

	"github.com/component-model/canon-abi/internal/abierr"
)

func isValidUTF8(b []byte) bool { return utf8.Valid(b) }

// decodeUTF16 decodes little-endian UTF-16 code units into a Go string,
// trapping on an unpaired surrogate.
func decodeUTF16(units []uint16) string {
	out := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u < 0xD800 || u > 0xDFFF:
			out = append(out, rune(u))
		case u <= 0xDBFF: // high surrogate
			requireSurrogatePair(units, i)
			lo := units[i+1]
			r := ((rune(u) - 0xD800) << 10) + (rune(lo) - 0xDC00) + 0x10000
			out = append(out, r)
			i++
		default: // unpaired low surrogate
			raiseDecodeError()
		}
	}
	return string(out)
}

func requireSurrogatePair(units []uint16, i int) {
	if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] > 0xDFFF {
		raiseDecodeError()
	}
}

func raiseDecodeError() { abierr.Raise("decode-error") }

// decodeLatin1 widens each byte to its Unicode code point (latin-1 is a
// subset of Unicode where byte value == code point).
func decodeLatin1(b []byte) string {
	out := make([]rune, len(b))
	for i, c := range b {
		out[i] = rune(c)
	}
	return string(out)
}
