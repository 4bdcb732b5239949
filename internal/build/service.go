package build

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/verin/internal/config"
	ferrors "git.home.luguber.info/inful/verin/internal/foundation/errors"
	"git.home.luguber.info/inful/verin/internal/frontmatter"
	"git.home.luguber.info/inful/verin/internal/highlight"
	"git.home.luguber.info/inful/verin/internal/logfields"
	"git.home.luguber.info/inful/verin/internal/markdown"
	"git.home.luguber.info/inful/verin/internal/metrics"
	"git.home.luguber.info/inful/verin/internal/templates"
)

// Well-known output files.
const (
	IndexFile    = "index.html"
	NotFoundFile = "404.html"
	FeedFile     = "rss.xml"
)

// PostExt is the extension of source documents.
const PostExt = ".md"

// Request contains all inputs of one build.
type Request struct {
	// PostsDir holds the posts, the templates and config.yaml.
	PostsDir string

	// OutputDir receives the generated site. It is created when missing.
	OutputDir string

	// Config is the loaded site configuration.
	Config *config.Config

	// Debug embeds the refresh snippet in every page.
	Debug bool

	// RSS writes rss.xml from the rss config section.
	RSS bool
}

// Status is the overall outcome of a build.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// DocumentError records why one document was skipped.
type DocumentError struct {
	File string
	Err  error
}

func (e DocumentError) Error() string { return e.File + ": " + e.Err.Error() }

func (e DocumentError) Unwrap() error { return e.Err }

// Report summarizes a build.
type Report struct {
	Status Status

	// Documents is the number of posts written.
	Documents int

	// Written lists output files relative to the output directory, sorted.
	Written []string

	// Errors holds per-document failures ordered by file name.
	Errors []DocumentError

	// Fingerprint identifies the generated content; equal inputs give equal
	// fingerprints.
	Fingerprint string

	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Err returns nil when every document was built, otherwise a non-fatal build
// error wrapping each document failure.
func (r *Report) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, de := range r.Errors {
		errs = append(errs, de)
	}
	return ferrors.BuildError(fmt.Sprintf("%d of %d documents failed", len(r.Errors), len(r.Errors)+r.Documents)).
		WithCause(errors.Join(errs...)).
		WithContext("failed", len(r.Errors)).
		Build()
}

// Service runs builds. The zero value is not usable; use NewService.
type Service struct {
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewService creates a Service that records no metrics and logs to slog.Default.
func NewService() *Service {
	return &Service{recorder: metrics.NoopRecorder{}, logger: slog.Default()}
}

// WithRecorder sets the metrics recorder.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// env is the read-only state shared by all workers of one build.
type env struct {
	req       Request
	cfg       *config.Config
	templates *templates.Set
	converter *markdown.Converter
	extractor *frontmatter.Extractor
	refresh   template.HTML
	out       *outputDir
}

// Run executes a build. A non-nil error means the build was aborted before
// anything was written; per-document failures are only reported in the Report.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	report := &Report{Start: time.Now()}
	finish := func(status Status) {
		report.Status = status
		report.End = time.Now()
		report.Duration = report.End.Sub(report.Start)
		s.recorder.ObserveBuildDuration(report.Duration)
		s.recorder.IncBuildOutcome(outcomeFor(status))
	}

	e, err := s.preflight(req)
	if err != nil {
		finish(StatusFailed)
		return report, err
	}

	sources, err := discoverPosts(req.PostsDir, req.OutputDir)
	if err != nil {
		finish(StatusFailed)
		return report, err
	}
	s.logger.Debug("Discovered posts", slog.Int("count", len(sources)), slog.String("dir", req.PostsDir))

	pages, err := s.renderAll(ctx, e, sources)
	if err != nil {
		finish(StatusFailed)
		return report, err
	}

	var built []pageResult
	var articles []Article
	for i, p := range pages {
		if p.err != nil {
			s.skipDocument(report, sources[i], p.err)
			continue
		}
		built = append(built, p)
		articles = append(articles, p.article)
	}
	sortArticles(articles)

	// Site pages are rendered before anything is written so a failing index
	// template leaves the output directory untouched.
	site, err := s.renderSitePages(e, articles)
	if err != nil {
		finish(StatusFailed)
		return report, err
	}

	lost := map[string]bool{}
	for _, p := range built {
		if err := e.out.write(p.output, p.content); err != nil {
			s.skipDocument(report, p.article.Source, err)
			lost[p.article.Source] = true
			continue
		}
		report.Documents++
		report.Written = append(report.Written, p.output)
		s.recorder.IncDocumentResult(metrics.ResultSuccess)
	}
	if len(lost) > 0 {
		kept := articles[:0]
		for _, a := range articles {
			if !lost[a.Source] {
				kept = append(kept, a)
			}
		}
		if site, err = s.renderSitePages(e, kept); err != nil {
			finish(StatusFailed)
			return report, err
		}
	}

	for _, f := range site {
		if err := e.out.write(f.name, f.content); err != nil {
			finish(StatusFailed)
			return report, err
		}
		report.Written = append(report.Written, f.name)
	}
	sort.Strings(report.Written)
	sort.SliceStable(report.Errors, func(i, j int) bool { return report.Errors[i].File < report.Errors[j].File })

	report.Fingerprint = e.out.fingerprint()

	status := StatusSuccess
	if len(report.Errors) > 0 {
		status = StatusPartial
	}
	finish(status)
	s.logger.Info("Build finished",
		slog.Int("documents", report.Documents),
		slog.Int("failed", len(report.Errors)),
		logfields.Fingerprint(report.Fingerprint),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

func (s *Service) skipDocument(report *Report, file string, err error) {
	report.Errors = append(report.Errors, DocumentError{File: file, Err: err})
	s.recorder.IncDocumentResult(metrics.ResultFailed)
	s.logger.Warn("Skipping document", logfields.Document(file), logfields.Error(err))
}

// preflight validates the request and loads everything the workers share.
func (s *Service) preflight(req Request) (*env, error) {
	if req.Config == nil {
		return nil, ferrors.ConfigError("config required").Build()
	}
	if req.RSS && req.Config.RSS == nil {
		return nil, ferrors.ConfigError("rss output requested but config has no rss section").Build()
	}
	if req.OutputDir == "" {
		return nil, ferrors.ValidationError("output directory required").Build()
	}

	info, err := os.Stat(req.PostsDir)
	if err != nil {
		return nil, ferrors.FileSystemError("cannot read posts directory").WithCause(err).
			WithContext("dir", req.PostsDir).Fatal().Build()
	}
	if !info.IsDir() {
		return nil, ferrors.FileSystemError("posts path is not a directory").
			WithContext("dir", req.PostsDir).Fatal().Build()
	}

	set, err := templates.Load(req.PostsDir, req.OutputDir)
	if err != nil {
		return nil, ferrors.BuildError("load templates").WithCause(err).Fatal().Build()
	}
	if !set.Has(templates.IndexID) {
		return nil, ferrors.TemplateNotFound(templates.IndexID).Fatal().Build()
	}

	out, err := newOutputDir(req.OutputDir)
	if err != nil {
		return nil, err
	}

	e := &env{
		req:       req,
		cfg:       req.Config,
		templates: set,
		converter: markdown.NewConverter(highlight.New(req.Config.Highlight.Style)),
		extractor: frontmatter.NewExtractor(req.Config.Date),
		out:       out,
	}
	if req.Debug {
		e.refresh = RefreshSnippet(req.Config.Refresh.Host, req.Config.Refresh.SubscriberPort)
	}
	return e, nil
}

// discoverPosts lists the posts below dir relative to it, sorted. Hidden
// directories and the output directory are skipped.
func discoverPosts(dir, outputDir string) ([]string, error) {
	absOut, _ := filepath.Abs(outputDir)
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if abs, _ := filepath.Abs(path); abs == absOut {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != PostExt {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, ferrors.FileSystemError("cannot read posts directory").WithCause(err).
			WithContext("dir", dir).Fatal().Build()
	}
	sort.Strings(files)
	return files, nil
}

// renderAll processes every post with at most cfg.Build.Workers goroutines.
// Results are indexed like sources.
func (s *Service) renderAll(ctx context.Context, e *env, sources []string) ([]pageResult, error) {
	results := make([]pageResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Build.Workers > 0 {
		g.SetLimit(e.cfg.Build.Workers)
	}
	for i, rel := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.buildDocument(rel)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ferrors.BuildError("build canceled").WithCause(err).Fatal().Build()
	}
	return results, nil
}

// siteFile is a rendered file that is not a post.
type siteFile struct {
	name    string
	content []byte
}

// renderSitePages renders index.html and the optional 404.html and rss.xml.
func (s *Service) renderSitePages(e *env, articles []Article) ([]siteFile, error) {
	index, err := renderTemplate(e.templates, templates.IndexID, IndexContext{
		BlogName: e.cfg.Name,
		Refresh:  e.refresh,
		Articles: articles,
	})
	if err != nil {
		return nil, ferrors.BuildError("render index").WithCause(err).Fatal().Build()
	}
	files := []siteFile{{name: IndexFile, content: index}}

	if e.templates.Has(templates.NotFoundID) {
		page, err := renderTemplate(e.templates, templates.NotFoundID, NotFoundContext{
			BlogName: e.cfg.Name,
			Refresh:  e.refresh,
		})
		if err != nil {
			return nil, ferrors.BuildError("render 404 page").WithCause(err).Fatal().Build()
		}
		files = append(files, siteFile{name: NotFoundFile, content: page})
	}

	if e.req.RSS {
		feed, err := renderFeed(e.cfg, articles)
		if err != nil {
			return nil, err
		}
		files = append(files, siteFile{name: FeedFile, content: feed})
	}
	return files, nil
}

func outcomeFor(status Status) metrics.BuildOutcome {
	switch status {
	case StatusSuccess:
		return metrics.OutcomeSuccess
	case StatusPartial:
		return metrics.OutcomePartial
	default:
		return metrics.OutcomeFailed
	}
}
