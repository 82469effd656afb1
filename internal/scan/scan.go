// Package scan walks a filesystem and reports the charset and line ending
// convention of every file that passes a filter.
package scan

import (
	"context"
	"io"
	"log/slog"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"

	"github.com/greatbody/encoding-probe/internal/family"
	"github.com/greatbody/encoding-probe/internal/lineending"
	"github.com/greatbody/encoding-probe/internal/transcoder"
	"github.com/greatbody/encoding-probe/internal/vfs"
)

// Result describes one file.
type Result struct {
	Path       string          `json:"path"`
	Charset    string          `json:"charset,omitempty"`
	Family     family.Family   `json:"family,omitempty"`
	LineEnding lineending.Kind `json:"line_ending,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Detected reports whether a charset was determined.
func (r Result) Detected() bool { return r.Charset != "" }

// Scanner probes files of a billy filesystem.
type Scanner struct {
	fs          billy.Filesystem
	filter      *vfs.Filter
	detector    *transcoder.Detector
	classifier  *lineending.Classifier
	concurrency int
	logger      *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithFilter limits the scan to paths the filter matches.
func WithFilter(f *vfs.Filter) Option { return func(s *Scanner) { s.filter = f } }

// WithDetector sets the detector used for each file.
func WithDetector(d *transcoder.Detector) Option { return func(s *Scanner) { s.detector = d } }

// WithClassifier sets the line ending classifier.
func WithClassifier(c *lineending.Classifier) Option { return func(s *Scanner) { s.classifier = c } }

// WithConcurrency bounds how many files are probed at once.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger; slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option { return func(s *Scanner) { s.logger = l } }

// New returns a Scanner over fs.
func New(fs billy.Filesystem, opts ...Option) *Scanner {
	s := &Scanner{fs: fs, concurrency: 4}
	for _, opt := range opts {
		opt(s)
	}
	if s.filter == nil {
		s.filter = vfs.NewFilter(nil, nil)
	}
	if s.detector == nil {
		s.detector = transcoder.NewDetector()
	}
	if s.classifier == nil {
		s.classifier = lineending.NewClassifier()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Scan probes every matching file below root. Per-file failures are recorded
// in the Result; only walk errors and cancellation abort the scan. Results are
// sorted by path.
func (s *Scanner) Scan(ctx context.Context, root string) ([]Result, error) {
	paths, err := s.collect(root)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range paths {
		if gctx.Err() != nil {
			break
		}
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.Probe(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(a, b int) bool { return results[a].Path < results[b].Path })
	return results, nil
}

// Probe detects the charset of one file and, when known, its line endings.
func (s *Scanner) Probe(p string) Result {
	res := Result{Path: p}
	log := s.logger.With("path", p)

	name, ok, err := s.detector.Detect(s.open(p))
	if err != nil {
		log.Warn("detect failed", "error", err)
		res.Error = err.Error()
		return res
	}
	if !ok {
		log.Debug("charset undetermined")
		return res
	}
	res.Charset = name
	res.Family = family.ForName(name)

	kind, err := s.classifier.Classify(s.open(p), name)
	if err != nil {
		log.Warn("line ending classification failed", "charset", name, "error", err)
		res.Error = err.Error()
		return res
	}
	res.LineEnding = kind
	return res
}

// open defers the open error to the first Read so the callee still owns
// closing.
func (s *Scanner) open(p string) io.ReadCloser {
	f, err := s.fs.Open(p)
	if err != nil {
		return failedFile{err}
	}
	return f
}

type failedFile struct{ err error }

func (f failedFile) Read([]byte) (int, error) { return 0, f.err }
func (f failedFile) Close() error             { return nil }

func (s *Scanner) collect(root string) ([]string, error) {
	var out []string
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := s.fs.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			p := path.Join(dir, e.Name())
			if e.IsDir() {
				if err := walk(p); err != nil {
					return err
				}
				continue
			}
			if !e.Mode().IsRegular() || !s.filter.MatchPath(p) {
				continue
			}
			out = append(out, p)
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}
