package utils

import (
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/scythe504/andevent-backend/internal"
)

// PinAlphabet leaves out characters that are easy to misread (O/0, I/1).
const PinAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GeneratePIN returns a random PIN. Uniqueness is the caller's concern.
func GeneratePIN() string {
	var b strings.Builder
	b.Grow(internal.PinLength)
	for range internal.PinLength {
		b.WriteByte(PinAlphabet[rand.IntN(len(PinAlphabet))])
	}
	return b.String()
}

func GenerateId() string {
	return uuid.NewString()
}

var contentNamespace = uuid.MustParse("6f1c2d8e-3b7a-4c59-9e2d-5a8b1f0c7d43")

// ContentId derives a name-based uuid from parts, so importing the same
// content twice yields the same id.
func ContentId(parts ...string) string {
	return uuid.NewSHA1(contentNamespace, []byte(strings.Join(parts, "\x1f"))).String()
}

// NormalizePin upper-cases and strips anything that is not a letter or digit,
// the same way the join form does.
func NormalizePin(pin string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToUpper(r)
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, pin)
}

// NormalizeName trims and collapses inner whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func ValidName(name string) bool {
	n := len([]rune(name))
	return n >= internal.MinNameLength && n <= internal.MaxNameLength
}
