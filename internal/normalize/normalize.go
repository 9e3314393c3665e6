// Package normalize canonicalizes free-text team names so the same team
// compares equal across sources.
package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Func is a name normalizer. Every Func in this package is idempotent.
type Func func(string) string

// For returns Repaired when the source is known to carry double-encoded
// text, Name otherwise.
func For(repairEncoding bool) Func {
	if repairEncoding {
		return Repaired
	}
	return Name
}

// Name trims the string and collapses every run of whitespace to one space.
func Name(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Repaired undoes UTF-8 text that was decoded as Latin-1 ("CuraÃ§ao") and
// then applies Name. Text that does not survive the round trip is kept as is,
// so correctly encoded names are never damaged.
func Repaired(raw string) string {
	s := raw
	// Each successful repair shrinks the byte length, so this terminates.
	for {
		next := Name(repairLatin1(s))
		if next == s {
			return s
		}
		s = next
	}
}

// repairLatin1 re-encodes s as Latin-1 and decodes the bytes as UTF-8. It
// returns s unchanged when s has runes outside Latin-1 or when the bytes are
// not valid UTF-8.
func repairLatin1(s string) string {
	if isASCII(s) {
		return s
	}
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.ISO8859_1.EncodeRune(r)
		if !ok {
			return s
		}
		buf = append(buf, b)
	}
	if !utf8.Valid(buf) {
		return s
	}
	return string(buf)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
