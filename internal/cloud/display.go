package cloud

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pbaille/tags/internal/domain"
)

// SizePlaceholder is replaced with the computed size in the Before and After
// templates.
const SizePlaceholder = "%size%"

// DisplayOptions control how a cloud is rendered.
type DisplayOptions struct {

	// Shuffle renders the entries in random order.
	Shuffle bool

	// Rand is used for shuffling. Defaults to the global source.
	Rand *rand.Rand

	// Before and After are raw HTML written around each link. SizePlaceholder
	// is replaced with the size of the tag.
	Before, After string

	// MinSize and MaxSize bound the sizes. Default to 80 and 160.
	MinSize, MaxSize int

	// URL is the base of the tag links. Defaults to "/search".
	URL string

	// Named is the query parameter carrying the tag key. Defaults to "by".
	Named string
}

func (o *DisplayOptions) defaults() {
	if o.MinSize == 0 && o.MaxSize == 0 {
		o.MinSize, o.MaxSize = 80, 160
	}

	if o.URL == "" {
		o.URL = "/search"
	}

	if o.Named == "" {
		o.Named = "by"
	}
}

func tagURL(base, named, key string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse cloud url: %w", err)
	}

	q := u.Query()
	q.Set(named, key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func link(e domain.CloudEntry, href string) *html.Node {
	a := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.A,
		Data:     "a",
		Attr: []html.Attribute{
			{Key: "href", Val: href},
			{Key: "id", Val: "tag-" + e.TagID},
		},
	}

	a.AppendChild(&html.Node{Type: html.TextNode, Data: e.Name})
	return a
}

func raw(template string, size int) *html.Node {
	return &html.Node{
		Type: html.RawNode,
		Data: strings.ReplaceAll(template, SizePlaceholder, strconv.Itoa(size)),
	}
}

// Display writes the entries as a cloud of links, sized by occurrence. The
// entries passed in are not modified. Nothing is written for no entries.
func Display(w io.Writer, entries []domain.CloudEntry, o DisplayOptions) error {
	if len(entries) == 0 {
		return nil
	}

	o.defaults()
	sized, err := MapWeights(append([]domain.CloudEntry(nil), entries...), o.MinSize, o.MaxSize)
	if err != nil {
		return err
	}

	if o.Shuffle {
		Shuffle(sized, o.Rand)
	}

	bw := bufio.NewWriter(w)
	for _, e := range sized {
		href, err := tagURL(o.URL, o.Named, e.Key)
		if err != nil {
			return err
		}

		nodes := []*html.Node{
			raw(o.Before, e.Weight),
			link(e, href),
			{Type: html.TextNode, Data: " "},
			raw(o.After, e.Weight),
		}

		for _, n := range nodes {
			if err := html.Render(bw, n); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}
