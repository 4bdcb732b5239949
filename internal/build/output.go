package build

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/inful/mdfp"

	ferrors "git.home.luguber.info/inful/verin/internal/foundation/errors"
)

// outputDir writes generated files below a root directory and remembers a
// content fingerprint for each of them. It is safe for concurrent use.
type outputDir struct {
	root string

	mu           sync.Mutex
	fingerprints map[string]string
}

func newOutputDir(root string) (*outputDir, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, ferrors.FileSystemError("create output directory").WithCause(err).
			WithContext("dir", root).Fatal().Build()
	}
	return &outputDir{root: root, fingerprints: map[string]string{}}, nil
}

// write stores content at rel, replacing any previous file. rel must stay
// inside the output directory.
func (o *outputDir) write(rel string, content []byte) error {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return ferrors.FileSystemError("output path escapes output directory").
			WithContext("output", rel).Build()
	}

	full := filepath.Join(o.root, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return ferrors.FileSystemError("create output directory").WithCause(err).
			WithContext("output", rel).Build()
	}
	// #nosec G306 -- generated site files are meant to be world readable.
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return ferrors.FileSystemError("write output file").WithCause(err).
			WithContext("output", rel).Build()
	}

	o.mu.Lock()
	o.fingerprints[filepath.ToSlash(clean)] = mdfp.CalculateFingerprintFromParts("", string(content))
	o.mu.Unlock()
	return nil
}

// fingerprint combines the fingerprints of everything written so far into one
// value that does not depend on write order.
func (o *outputDir) fingerprint() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	paths := make([]string, 0, len(o.fingerprints))
	for p := range o.fingerprints {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte(' ')
		b.WriteString(o.fingerprints[p])
		b.WriteByte('\n')
	}
	return mdfp.CalculateFingerprintFromParts("", b.String())
}
