// Package templates loads the page templates of a site and renders them by id.
//
// Templates are html/template files with the ".tmpl" extension found anywhere
// under the posts directory. A template's id is its file stem, so
// "layouts/post.tmpl" is referenced from metadata as "post".
package templates

import (
	"bytes"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/verin/internal/foundation/errors"
)

// Ext is the file extension of page templates.
const Ext = ".tmpl"

// Well-known template ids.
const (
	IndexID    = "index"
	NotFoundID = "not_found"
)

// Set is an immutable collection of parsed templates keyed by id.
type Set struct {
	byID map[string]*template.Template
	path map[string]string
}

// Load discovers and parses every template under dir. Hidden directories and
// the skip directories (typically the output directory) are not searched.
// When two files share a stem the one with the lexically greater path wins.
func Load(dir string, skip ...string) (*Set, error) {
	skipAbs := make(map[string]bool, len(skip))
	for _, s := range skip {
		if abs, err := filepath.Abs(s); err == nil {
			skipAbs[abs] = true
		}
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if abs, _ := filepath.Abs(path); path != dir && skipAbs[abs] {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != Ext {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.FileSystemError("discover templates").WithCause(err).
			WithContext("dir", dir).
			Fatal().
			Build()
	}
	sort.Strings(files)

	s := &Set{byID: make(map[string]*template.Template, len(files)), path: make(map[string]string, len(files))}
	for _, file := range files {
		// #nosec G304 -- file comes from walking the posts directory.
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.FileSystemError("read template").WithCause(err).
				WithContext("template", file).
				Build()
		}
		if err := s.add(file, data); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Parse builds a set from in-memory sources keyed by id.
func Parse(sources map[string]string) (*Set, error) {
	s := &Set{byID: make(map[string]*template.Template, len(sources)), path: make(map[string]string, len(sources))}
	for id, src := range sources {
		if err := s.add(id+Ext, []byte(src)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) add(file string, data []byte) error {
	id := strings.TrimSuffix(filepath.Base(file), Ext)
	tpl, err := template.New(id).Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return errors.WrapError(err, errors.CategoryTemplate, "parse template").
			WithContext("template", file).
			Build()
	}
	s.byID[id] = tpl
	s.path[id] = file
	return nil
}

// Has reports whether a template with the given id exists.
func (s *Set) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Names returns the template ids in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.byID))
	for id := range s.byID {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

// Render executes template id with data and writes the result to w. Nothing
// is written when execution fails.
func (s *Set) Render(w io.Writer, id string, data any) error {
	tpl, ok := s.byID[id]
	if !ok {
		return errors.TemplateNotFound(id).Build()
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return errors.WrapError(err, errors.CategoryTemplate, "render template").
			WithContext("template", id).
			WithContext("path", s.path[id]).
			Build()
	}
	_, err := buf.WriteTo(w)
	return err
}
