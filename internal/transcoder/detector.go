package transcoder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/greatbody/encoding-probe/internal/charset"
)

const (
	// DetectionBufferSize is the chunk size handed to the engine per read.
	DetectionBufferSize = 4096
)

var (
	// ErrIoFailure wraps read errors hit while detecting.
	ErrIoFailure = errors.New("read failed")

	// ErrCloseFailure wraps errors returned when closing an input stream.
	ErrCloseFailure = errors.New("close failed")
)

// Engine is a statistical charset detector fed one chunk at a time.
//
// Feed receives successive chunks. Done reports that the engine will not
// change its answer. DataEnd is called once after the last chunk. Charset
// returns the best guess, if any.
type Engine interface {
	Feed(p []byte)
	Done() bool
	DataEnd()
	Charset() (string, bool)
}

// EngineFactory builds a fresh Engine for one detection.
type EngineFactory func() Engine

// Detector orchestrates an Engine over a stream and canonicalizes its answer.
type Detector struct {
	resolver  *charset.Resolver
	newEngine EngineFactory
	chunkSize int
	logger    *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithResolver sets the resolver used to canonicalize engine output.
func WithResolver(r *charset.Resolver) Option {
	return func(d *Detector) { d.resolver = r }
}

// WithEngine sets the engine factory.
func WithEngine(f EngineFactory) Option {
	return func(d *Detector) { d.newEngine = f }
}

// WithChunkSize overrides DetectionBufferSize.
func WithChunkSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// NewDetector returns a Detector using the chardet engine and the default
// resolver unless overridden.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		chunkSize: DetectionBufferSize,
		newEngine: func() Engine { return NewChardetEngine(0) },
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.resolver == nil {
		d.resolver = charset.Default()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Detect reads rc until the engine is done or the stream ends and returns the
// canonical name of the detected charset. ok is false when the engine made no
// determination. rc is always closed.
func (d *Detector) Detect(rc io.ReadCloser) (name string, ok bool, err error) {
	defer CloseInto(rc, &err)

	engine := d.newEngine()
	br := bufio.NewReaderSize(rc, d.chunkSize)
	buf := make([]byte, d.chunkSize)
	for !engine.Done() {
		n, rerr := br.Read(buf)
		if n > 0 {
			engine.Feed(buf[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", false, fmt.Errorf("%w: %w", ErrIoFailure, rerr)
		}
	}
	engine.DataEnd()

	raw, found := engine.Charset()
	if !found || raw == "" {
		return "", false, nil
	}
	name, err = d.resolver.Canonicalize(raw)
	if err != nil {
		d.logger.Debug("engine guess not in registry", "charset", raw, "error", err)
		return "", false, nil
	}

	// Downstream decoders expect the MS932 spelling for Shift_JIS.
	if d.resolver.Equivalent(name, "Shift_JIS") || d.resolver.Equivalent(name, "MS932") {
		if fixed, ferr := d.resolver.Canonicalize("MS932"); ferr == nil {
			name = fixed
		}
	}
	return name, true, nil
}

// CloseInto closes c and records a close error in *err. An earlier error is
// kept and joined with the close error.
func CloseInto(c io.Closer, err *error) {
	cerr := c.Close()
	if cerr == nil {
		return
	}
	cerr = fmt.Errorf("%w: %w", ErrCloseFailure, cerr)
	if *err == nil {
		*err = cerr
		return
	}
	*err = errors.Join(*err, cerr)
}
