// Package lineending classifies the line terminator convention of a text
// stream from a bounded, decoded prefix.
package lineending

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/greatbody/encoding-probe/internal/charset"
	"github.com/greatbody/encoding-probe/internal/transcoder"
)

// DefaultSampleSize is the number of decoded characters examined.
const DefaultSampleSize = 4096

// ErrDecodeFailure wraps every failure to decode the sampled prefix.
var ErrDecodeFailure = errors.New("decode failed")

// Kind is a line terminator convention.
type Kind string

const (
	CRLF  Kind = "CRLF"
	CR    Kind = "CR"
	LF    Kind = "LF"
	Mixed Kind = "Mixed"
	None  Kind = "None"
)

func (k Kind) String() string { return string(k) }

// Sequence returns the literal terminator for k, or "" for Mixed and None.
func (k Kind) Sequence() string {
	switch k {
	case CRLF:
		return "\r\n"
	case CR:
		return "\r"
	case LF:
		return "\n"
	}
	return ""
}

// Classifier samples a stream and reports its line ending Kind.
type Classifier struct {
	resolver   *charset.Resolver
	sampleSize int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithResolver sets the resolver used to look up decoders.
func WithResolver(r *charset.Resolver) Option {
	return func(c *Classifier) { c.resolver = r }
}

// WithSampleSize overrides DefaultSampleSize.
func WithSampleSize(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.sampleSize = n
		}
	}
}

// NewClassifier returns a Classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{sampleSize: DefaultSampleSize}
	for _, opt := range opts {
		opt(c)
	}
	if c.resolver == nil {
		c.resolver = charset.Default()
	}
	return c
}

// Classify decodes at most the first sample-size characters of rc using the
// named charset and classifies the terminators found. rc is always closed.
func (c *Classifier) Classify(rc io.ReadCloser, charsetName string) (kind Kind, err error) {
	defer transcoder.CloseInto(rc, &err)

	enc, _, err := c.resolver.Lookup(charsetName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}

	br := bufio.NewReader(transcoder.NewStrictReader(bufio.NewReader(rc), enc))
	var sb strings.Builder
	for n := 0; n < c.sampleSize; n++ {
		r, _, rerr := br.ReadRune()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", fmt.Errorf("%w: %w", ErrDecodeFailure, rerr)
		}
		sb.WriteRune(r)
	}
	return ClassifyString(sb.String()), nil
}

// ClassifyString classifies already decoded text. Any bare CR or LF next to a
// CRLF makes the result Mixed.
func ClassifyString(s string) Kind {
	crlf := strings.Contains(s, "\r\n")
	if crlf {
		s = strings.ReplaceAll(s, "\r\n", "")
	}
	cr := strings.Contains(s, "\r")
	lf := strings.Contains(s, "\n")

	switch {
	case crlf && !cr && !lf:
		return CRLF
	case !crlf && cr && !lf:
		return CR
	case !crlf && !cr && lf:
		return LF
	case !crlf && !cr && !lf:
		return None
	default:
		return Mixed
	}
}
