package utils

import (
	"strings"
	"unicode"
)

// Slugify lowercases s and reduces it to hyphen-separated letter and digit
// runs. Everything else collapses into single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// shortIDLength is how much of the document id ends up in its URL.
const shortIDLength = 10

// DocumentURL builds the stable path for a document from its title and id.
// The short id suffix keeps URLs unique when titles repeat; a title with no
// usable characters still yields a valid path.
func DocumentURL(title, id string) string {
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > shortIDLength {
		short = short[:shortIDLength]
	}
	slug := Slugify(title)
	if slug == "" {
		return "/doc/" + short
	}
	return "/doc/" + slug + "-" + short
}
