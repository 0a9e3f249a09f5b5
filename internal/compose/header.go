package compose

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// maxHeaderLineLength is the RFC 5322 recommended limit for one header line.
const maxHeaderLineLength = 78

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// encodeHeaderField encodes one unstructured header line ("Name: value").
// A line of printable ASCII within the recommended length passes through
// unchanged. Otherwise the longest leading run of ASCII words that fits on
// one line stays verbatim, including its trailing space, and the rest is
// carried as RFC 2047 encoded words so the header name and any leading ASCII
// text stay readable everywhere.
func encodeHeaderField(line string) string {
	if isPrintableASCII(line) && len(line) <= maxHeaderLineLength {
		return line
	}
	cut := 0
	for cut < len(line) && cut < maxHeaderLineLength && line[cut] >= 0x20 && line[cut] <= 0x7e {
		cut++
	}
	// Encoded words may only start at a word boundary; the "Name: " prefix
	// guarantees a space exists.
	for cut > 0 && line[cut-1] != ' ' {
		cut--
	}
	return line[:cut] + strings.Join(encodedWords(line[cut:]), "\r\n ")
}

// encodedWords splits s into RFC 2047 B-encoded words of at most 75
// characters each, never cutting a valid multi-byte character in half.
// Bytes that do not form valid UTF-8 are carried through unchanged.
func encodedWords(s string) []string {
	// "=?utf-8?b?" plus "?=" leaves room for 63 base64 characters per word,
	// which is 45 input bytes.
	const maxRaw = 45
	var words []string
	for len(s) > 0 {
		n := maxRaw
		if n > len(s) {
			n = len(s)
		}
		for n > 0 && n < len(s) && !utf8.RuneStart(s[n]) {
			n--
		}
		if n == 0 {
			// A window with no rune start is not valid UTF-8; splitting
			// it mid-sequence cannot break a character.
			n = maxRaw
			if n > len(s) {
				n = len(s)
			}
		}
		words = append(words, "=?utf-8?b?"+base64.StdEncoding.EncodeToString([]byte(s[:n]))+"?=")
		s = s[n:]
	}
	return words
}
