package tagging

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	removed = strings.NewReplacer("_", "", "-", "", "?", "")

	spaced = strings.NewReplacer(
		"\u3000", " ",
		":", " ", "#", " ", "*", " ", `"`, " ", "(", " ", ")", " ",
		"~", " ", "$", " ", "^", " ", "{", " ", "}", " ", "`", " ",
		"@", " ", "+", " ", "=", " ", ";", " ", ",", " ", "<", " ",
		">", " ", "!", " ", "&", " ", "%", " ", ".", " ", "]", " ",
		"/", " ", "'", " ", `\`, " ", "|", " ", "[", " ",
	)
)

// Normalize returns the lookup key of a tag name. Keys are lower case and
// carry no punctuation or whitespace, so "Café Racer" and "café-racer" share
// the key "caféracer".
func Normalize(name string) string {
	// a Caser keeps state between calls
	s := cases.Lower(language.Und).String(name)
	s = removed.Replace(s)
	s = spaced.Replace(s)
	return strings.Join(strings.Fields(s), "")
}
