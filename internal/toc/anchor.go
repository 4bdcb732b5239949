package toc

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackSlug is used for headings whose title has no letters or digits.
const fallbackSlug = "section"

// Slug derives the base anchor id for a heading title: diacritics stripped,
// lower case, runs of anything but letters and digits collapsed to "-".
func Slug(title string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		stripped = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return fallbackSlug
	}
	return b.String()
}

// anchorer hands out anchor ids that are unique within one document.
type anchorer struct {
	used map[string]bool
	seen map[string]int
}

func newAnchorer() *anchorer {
	return &anchorer{used: map[string]bool{}, seen: map[string]int{}}
}

// next returns the slug of title, suffixed with an occurrence counter when the
// slug was already handed out.
func (a *anchorer) next(title string) string {
	base := Slug(title)
	id := base
	for a.used[id] {
		a.seen[base]++
		id = base + "-" + strconv.Itoa(a.seen[base])
	}
	a.used[id] = true
	return id
}
