// Package classify derives error signatures from samples.
package classify

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/edgecomet/loadstats/pkg/types"
)

// AssertionFailed is the signature of a failed sample whose response code
// says success, i.e. a sample failed by an assertion.
const AssertionFailed = "Assertion failed"

// Options controls signature derivation.
type Options struct {
	// UseAssertionMessage replaces AssertionFailed with the sample's failure
	// message when one is present.
	UseAssertionMessage bool
}

// DefaultOptions matches the default report configuration.
func DefaultOptions() Options {
	return Options{UseAssertionMessage: true}
}

// IsSuccessCode reports whether code is a numeric status in [200, 399].
// Anything unparsable is not a success code.
func IsSuccessCode(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return false
	}
	return n >= 200 && n <= 399
}

// Signature returns the error signature of sample:
// "code/message" for protocol failures (message part omitted when empty) and
// AssertionFailed, or the failure message, when the code denotes success.
func Signature(sample *types.Sample, opts Options) string {
	if IsSuccessCode(sample.ResponseCode) {
		if opts.UseAssertionMessage && sample.FailureMessage != "" {
			return EscapeJSON(sample.FailureMessage)
		}
		return AssertionFailed
	}
	if sample.ResponseMessage == "" {
		return sample.ResponseCode
	}
	return sample.ResponseCode + "/" + EscapeJSON(sample.ResponseMessage)
}

// EscapeJSON escapes s as the body of a JSON string literal. '/' is escaped,
// and every code point outside printable ASCII becomes \uXXXX (upper-case hex,
// UTF-16 surrogate pairs above the BMP). Bytes that are not valid UTF-8 are
// taken as Latin-1, so "Caf\xe9" and "Café" give the same key.
func EscapeJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			r = rune(s[i])
		}
		i += size

		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '/':
			b.WriteString(`\/`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			switch {
			case r < 0x20 || (r > 0x7f && r <= 0xffff):
				writeUnicodeEscape(&b, r)
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				writeUnicodeEscape(&b, hi)
				writeUnicodeEscape(&b, lo)
			default:
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func writeUnicodeEscape(b *strings.Builder, r rune) {
	const hex = "0123456789ABCDEF"
	b.WriteString(`\u`)
	b.WriteByte(hex[(r>>12)&0xf])
	b.WriteByte(hex[(r>>8)&0xf])
	b.WriteByte(hex[(r>>4)&0xf])
	b.WriteByte(hex[r&0xf])
}
