package build

import (
	"html"
	"html/template"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/verin/internal/frontmatter"
)

// Article is one entry of the index page.
type Article struct {
	// Page is the generated file relative to the site root, usable as a link.
	Page    string
	Name    string
	Date    string
	Summary template.HTML
	Refresh template.HTML

	// Published and Source order the index: newest first, then by post path.
	Published time.Time
	Source    string
}

// IndexContext is the data the index template is executed with.
type IndexContext struct {
	BlogName string
	Refresh  template.HTML
	Articles []Article
}

// NotFoundContext is the data the not_found template is executed with.
type NotFoundContext struct {
	BlogName string
	Refresh  template.HTML
}

func newArticle(source, output string, meta *frontmatter.Metadata, e *env) Article {
	return Article{
		Page:      output,
		Name:      meta.Title,
		Date:      e.cfg.Date.FormatDate(meta.Published),
		Summary:   formatSummary(meta.Summary),
		Refresh:   e.refresh,
		Published: meta.Published,
		Source:    source,
	}
}

// formatSummary escapes a plain-text summary, drops trailing whitespace and
// turns line breaks into <br/>.
func formatSummary(summary string) template.HTML {
	escaped := html.EscapeString(strings.TrimRight(summary, " \t\r\n"))
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	// #nosec G203 -- escaped above; only <br/> is introduced.
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br/>"))
}

// sortArticles orders articles newest first. Equal dates fall back to the
// post path so the order never depends on scheduling.
func sortArticles(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if !a.Published.Equal(b.Published) {
			return a.Published.After(b.Published)
		}
		return a.Source < b.Source
	})
}
