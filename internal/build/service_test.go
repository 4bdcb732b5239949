package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/verin/internal/config"
	ferrors "git.home.luguber.info/inful/verin/internal/foundation/errors"
	"git.home.luguber.info/inful/verin/internal/metrics"
)

const (
	indexTmpl = `<h1>{{.BlogName}}</h1>{{.Refresh}}<ul>{{range .Articles}}<li><a href="{{.Page}}">{{.Name}}</a>|{{.Date}}|{{.Summary}}</li>{{end}}</ul>`
	postTmpl  = `<title>{{.Title}}</title><p>{{.Date}}</p>{{.Refresh}}<nav>{{range .Headers}}<a href="#{{.Anchor}}">{{.Title}}</a>{{end}}</nav><main>{{.Content}}</main>`

	firstPost = `title: First
date: 1970-01-01
page: post
summary: |
  line one
  line <two>
/~
# Intro

Some text.

## Details

### Deep
`
	secondPost = `title: Second
date: 1970-01-02
page: post
summary: Later post
max_depth: 1
/~
# Intro

## Hidden from toc

# Intro
`
)

func testConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`name: Test Blog
date:
  input: "%Y-%m-%d"
  output: "%B %d, %Y"
build:
  workers: 2
` + extra))
	require.NoError(t, err)
	return cfg
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
	}
	return dir
}

func siteFiles() map[string]string {
	return map[string]string{
		"templates/index.tmpl": indexTmpl,
		"templates/post.tmpl":  postTmpl,
		"first.md":             firstPost,
		"second.md":            secondPost,
	}
}

func readOutput(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func runBuild(t *testing.T, req Request) *Report {
	t.Helper()
	report, err := NewService().Run(context.Background(), req)
	require.NoError(t, err)
	return report
}

func headingIDs(t *testing.T, page string) []string {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)

	var ids []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6' {
			for _, a := range n.Attr {
				if a.Key == "id" {
					ids = append(ids, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return ids
}

func TestRun_BuildsPagesAndIndex(t *testing.T) {
	posts := writeTree(t, siteFiles())
	out := filepath.Join(t.TempDir(), "site")

	report := runBuild(t, Request{PostsDir: posts, OutputDir: out, Config: testConfig(t, "")})

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, 2, report.Documents)
	assert.Empty(t, report.Errors)
	assert.NoError(t, report.Err())
	assert.Equal(t, []string{"first.html", "index.html", "second.html"}, report.Written)
	assert.NotEmpty(t, report.Fingerprint)

	first := readOutput(t, out, "first.html")
	assert.Contains(t, first, "<title>First</title>")
	assert.Contains(t, first, "<p>January 01, 1970</p>")
	assert.Contains(t, first, `<a href="#intro">Intro</a><a href="#details">Details</a><a href="#deep">Deep</a>`)
	assert.Equal(t, []string{"intro", "details", "deep"}, headingIDs(t, first))
	assert.NotContains(t, first, "<script>")
}

func TestRun_IndexIsNewestFirst(t *testing.T) {
	posts := writeTree(t, siteFiles())
	out := t.TempDir()

	runBuild(t, Request{PostsDir: posts, OutputDir: out, Config: testConfig(t, "")})

	index := readOutput(t, out, IndexFile)
	assert.Contains(t, index, "<h1>Test Blog</h1>")
	second := strings.Index(index, `<a href="second.html">Second</a>`)
	first := strings.Index(index, `<a href="first.html">First</a>`)
	require.NotEqual(t, -1, second)
	require.NotEqual(t, -1, first)
	assert.Less(t, second, first)
	assert.Contains(t, index, "|line one<br/>line &lt;two&gt;</li>")
}

func TestRun_MaxDepthPrunesTOCButKeepsHeadings(t *testing.T) {
	posts := writeTree(t, siteFiles())
	out := t.TempDir()

	runBuild(t, Request{PostsDir: posts, OutputDir: out, Config: testConfig(t, "")})

	page := readOutput(t, out, "second.html")
	assert.Contains(t, page, `<nav><a href="#intro">Intro</a><a href="#intro-1">Intro</a></nav>`)
	assert.Contains(t, page, `<h2 id="hidden-from-toc">Hidden from toc</h2>`)
	assert.Equal(t, []string{"intro", "hidden-from-toc", "intro-1"}, headingIDs(t, page))
}

func TestRun_IsIdempotent(t *testing.T) {
	posts := writeTree(t, siteFiles())
	cfg := testConfig(t, "")
	out1, out2 := t.TempDir(), t.TempDir()

	r1 := runBuild(t, Request{PostsDir: posts, OutputDir: out1, Config: cfg})
	r2 := runBuild(t, Request{PostsDir: posts, OutputDir: out2, Config: cfg})
	r3 := runBuild(t, Request{PostsDir: posts, OutputDir: out1, Config: cfg})

	assert.Equal(t, r1.Fingerprint, r2.Fingerprint)
	assert.Equal(t, r1.Fingerprint, r3.Fingerprint)
	for _, name := range r1.Written {
		assert.Equal(t, readOutput(t, out1, name), readOutput(t, out2, name), name)
	}
}

func TestRun_DebugEmbedsRefreshSnippet(t *testing.T) {
	posts := writeTree(t, siteFiles())
	out := t.TempDir()
	cfg := testConfig(t, "refresh:\n  subscriber_port: 5111\n  trigger_port: 5112\n")

	release := runBuild(t, Request{PostsDir: posts, OutputDir: t.TempDir(), Config: cfg})
	debug := runBuild(t, Request{PostsDir: posts, OutputDir: out, Config: cfg, Debug: true})

	page := readOutput(t, out, "first.html")
	assert.Contains(t, page, `new WebSocket("ws://localhost:5111/")`)
	assert.Contains(t, readOutput(t, out, IndexFile), "<script>")
	assert.NotEqual(t, release.Fingerprint, debug.Fingerprint)
}

func TestRun_PerDocumentFailuresAreCollected(t *testing.T) {
	files := siteFiles()
	files["no-delimiter.md"] = "title: Broken\n# body"
	files["bad-date.md"] = "title: x\ndate: yesterday\npage: post\nsummary: s\n/~\n"
	files["missing-template.md"] = "title: x\ndate: 1970-01-03\npage: nope\nsummary: s\n/~\n"
	files["bad-language.md"] = "title: x\ndate: 1970-01-03\npage: post\nsummary: s\n/~\n```no-such-language-xyz\ncode\n```\n"
	posts := writeTree(t, files)
	out := t.TempDir()

	report := runBuild(t, Request{PostsDir: posts, OutputDir: out, Config: testConfig(t, "")})

	assert.Equal(t, StatusPartial, report.Status)
	assert.Equal(t, 2, report.Documents)
	require.Len(t, report.Errors, 4)

	byFile := map[string]error{}
	for _, de := range report.Errors {
		byFile[de.File] = de.Err
	}
	assert.True(t, ferrors.HasCategory(byFile["no-delimiter.md"], ferrors.CategoryFrontmatter))
	assert.True(t, ferrors.HasCategory(byFile["bad-date.md"], ferrors.CategoryDate))
	assert.True(t, ferrors.HasCategory(byFile["missing-template.md"], ferrors.CategoryTemplate))
	assert.True(t, ferrors.HasCategory(byFile["bad-language.md"], ferrors.CategoryHighlight))

	assert.NoFileExists(t, filepath.Join(out, "bad-language.html"))
	assert.FileExists(t, filepath.Join(out, "first.html"))
	assert.NotContains(t, readOutput(t, out, IndexFile), "bad-language")

	err := report.Err()
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryBuild))
	assert.False(t, ferrors.IsFatal(err))
	assert.Contains(t, err.Error(), "4 of 6 documents failed")
	var de DocumentError
	require.ErrorAs(t, err, &de)
	assert.NotEmpty(t, de.File)
}

func TestRun_MissingIndexTemplateIsFatal(t *testing.T) {
	files := siteFiles()
	delete(files, "templates/index.tmpl")
	posts := writeTree(t, files)
	out := filepath.Join(t.TempDir(), "site")

	_, err := NewService().Run(context.Background(), Request{PostsDir: posts, OutputDir: out, Config: testConfig(t, "")})

	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTemplate))
	assert.True(t, ferrors.IsFatal(err))
	assert.NoDirExists(t, out)
}

func TestRun_FailingIndexTemplateWritesNothing(t *testing.T) {
	files := siteFiles()
	files["templates/index.tmpl"] = `{{.NoSuchField}}`
	posts := writeTree(t, files)
	out := filepath.Join(t.TempDir(), "site")

	_, err := NewService().Run(context.Background(), Request{PostsDir: posts, OutputDir: out, Config: testConfig(t, "")})

	require.Error(t, err)
	assert.True(t, ferrors.IsFatal(err))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_UnwritablePageIsDroppedFromIndex(t *testing.T) {
	posts := writeTree(t, siteFiles())
	out := filepath.Join(t.TempDir(), "site")
	// A directory where second.html should go makes that write fail.
	require.NoError(t, os.MkdirAll(filepath.Join(out, "second.html"), 0o750))

	report := runBuild(t, Request{PostsDir: posts, OutputDir: out, Config: testConfig(t, "")})

	assert.Equal(t, StatusPartial, report.Status)
	assert.Equal(t, 1, report.Documents)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "second.md", report.Errors[0].File)
	assert.True(t, ferrors.HasCategory(report.Errors[0].Err, ferrors.CategoryFileSystem))
	assert.Equal(t, []string{"first.html", "index.html"}, report.Written)

	index := readOutput(t, out, "index.html")
	assert.Contains(t, index, `href="first.html"`)
	assert.NotContains(t, index, `href="second.html"`)
}

func TestRun_ManyWorkersShareOneConverter(t *testing.T) {
	files := map[string]string{
		"templates/index.tmpl": indexTmpl,
		"templates/post.tmpl":  postTmpl,
	}
	for i := range 40 {
		files[fmt.Sprintf("post-%02d.md", i)] = fmt.Sprintf("title: Post %d\ndate: 1970-01-%02d\npage: post\nsummary: s\n/~\n"+
			"# Heading\n\n```go\nfunc f() int { return %d }\n```\n\n## Heading\n\n```python\nprint(%d)\n```\n", i, i%28+1, i, i)
	}
	posts := writeTree(t, files)
	cfg := testConfig(t, "")
	cfg.Build.Workers = 8

	first := runBuild(t, Request{PostsDir: posts, OutputDir: t.TempDir(), Config: cfg})
	second := runBuild(t, Request{PostsDir: posts, OutputDir: t.TempDir(), Config: cfg})

	assert.Equal(t, StatusSuccess, first.Status)
	assert.Equal(t, 40, first.Documents)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestRun_UnreadablePostsDirIsFatal(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")
	_, err := NewService().Run(context.Background(), Request{
		PostsDir:  filepath.Join(t.TempDir(), "missing"),
		OutputDir: out,
		Config:    testConfig(t, ""),
	})

	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	assert.NoDirExists(t, out)
}

func TestRun_RSSWithoutConfigIsConfigError(t *testing.T) {
	posts := writeTree(t, siteFiles())
	_, err := NewService().Run(context.Background(), Request{PostsDir: posts, OutputDir: t.TempDir(), Config: testConfig(t, ""), RSS: true})

	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestRun_NotFoundPageAndFeed(t *testing.T) {
	files := siteFiles()
	files["templates/not_found.tmpl"] = `<h1>{{.BlogName}}: not found</h1>`
	posts := writeTree(t, files)
	out := t.TempDir()
	cfg := testConfig(t, "rss:\n  link: https://blog.example.com/\n  description: Posts\n")

	report := runBuild(t, Request{PostsDir: posts, OutputDir: out, Config: cfg, RSS: true})

	assert.Equal(t, []string{NotFoundFile, "first.html", IndexFile, FeedFile, "second.html"}, report.Written)
	assert.Equal(t, "<h1>Test Blog: not found</h1>", readOutput(t, out, NotFoundFile))

	feed := readOutput(t, out, FeedFile)
	assert.Contains(t, feed, "<title>Test Blog</title>")
	assert.Contains(t, feed, "<link>https://blog.example.com/second.html</link>")
	assert.Less(t, strings.Index(feed, "second.html"), strings.Index(feed, "first.html"))
}

func TestRun_NestedPostsKeepTheirDirectory(t *testing.T) {
	files := siteFiles()
	files["2024/nested.md"] = strings.Replace(firstPost, "title: First", "title: Nested", 1)
	posts := writeTree(t, files)
	out := t.TempDir()

	report := runBuild(t, Request{PostsDir: posts, OutputDir: out, Config: testConfig(t, "")})

	assert.Contains(t, report.Written, "2024/nested.html")
	assert.Contains(t, readOutput(t, out, IndexFile), `<a href="2024/nested.html">Nested</a>`)
}

func TestRun_RecordsMetrics(t *testing.T) {
	files := siteFiles()
	files["broken.md"] = "no delimiter"
	posts := writeTree(t, files)

	rec := &countingRecorder{}
	_, err := NewService().WithRecorder(rec).Run(context.Background(), Request{PostsDir: posts, OutputDir: t.TempDir(), Config: testConfig(t, "")})
	require.NoError(t, err)

	assert.Equal(t, 2, rec.documents[metrics.ResultSuccess])
	assert.Equal(t, 1, rec.documents[metrics.ResultFailed])
	assert.Equal(t, []metrics.BuildOutcome{metrics.OutcomePartial}, rec.outcomes)
}

func TestFormatSummary(t *testing.T) {
	assert.Equal(t, "a<br/>b &amp; c", string(formatSummary("a\r\nb & c\n\n  ")))
}

func TestOutputDir_RejectsEscapingPaths(t *testing.T) {
	o, err := newOutputDir(t.TempDir())
	require.NoError(t, err)
	for _, rel := range []string{"../x.html", "/abs.html", ".."} {
		err := o.write(rel, []byte("x"))
		require.Error(t, err, rel)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	}
}
