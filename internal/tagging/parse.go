package tagging

import (
	"strings"

	"github.com/pbaille/tags/internal/domain"
)

// DefaultSeparator separates tags in a tag string
const DefaultSeparator = ","

type pair struct {
	key, identifier string
}

// Parse splits a tag string into tags. A piece of the form "identifier:name"
// carries an identifier. Empty pieces are dropped, and a tag whose key was
// already seen is dropped unless it brings a new identifier for that key.
func Parse(input, separator string) []domain.Tag {
	if separator == "" {
		separator = DefaultSeparator
	}

	var (
		tags  []domain.Tag
		keys  = make(map[string]bool)
		pairs = make(map[pair]bool)
	)

	for _, piece := range strings.Split(input, separator) {
		var identifier string
		if left, right, ok := strings.Cut(piece, ":"); ok {
			identifier = strings.TrimSpace(left)
			piece = right
		}

		name := strings.TrimSpace(piece)
		if name == "" {
			continue
		}

		key := Normalize(name)
		p := pair{key, identifier}
		if keys[key] && (identifier == "" || pairs[p]) {
			continue
		}

		keys[key] = true
		pairs[p] = true
		tags = append(tags, domain.Tag{
			Name:       name,
			Identifier: identifier,
			Key:        key,
		})
	}

	return tags
}

// Stringify joins tags back into a tag string that parses to the same set.
func Stringify(tags []domain.Tag, separator string) string {
	if separator == "" {
		separator = DefaultSeparator
	}

	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Identifier != "" {
			parts = append(parts, t.Identifier+":"+t.Name)
			continue
		}

		// a leading ':' keeps a name with a colon from reading as an identifier
		if strings.Contains(t.Name, ":") {
			parts = append(parts, ":"+t.Name)
			continue
		}

		parts = append(parts, t.Name)
	}

	return strings.Join(parts, separator+" ")
}
