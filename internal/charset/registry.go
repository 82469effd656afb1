// Package charset canonicalizes and compares character set names.
//
// Names are resolved through a Registry. The default registry is backed by the
// IANA character set index shipped with golang.org/x/text and reports the
// preferred MIME spelling (UTF-8, Shift_JIS, ISO-8859-1), with the WHATWG
// label table as a fallback for spellings IANA does not list (utf8, sjis,
// ms932, ...). Two names are equivalent when their canonical forms are equal.
package charset

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

var (
	// ErrUnknownCharset is returned when a name cannot be resolved by the registry.
	ErrUnknownCharset = errors.New("unknown charset")

	// ErrUnsupportedCharset is returned by Lookup when a name is known but no
	// decoder is available for it. It also matches ErrUnknownCharset.
	ErrUnsupportedCharset = fmt.Errorf("%w: no decoder available", ErrUnknownCharset)
)

// Registry maps any accepted spelling of a charset to its canonical name.
type Registry interface {
	CanonicalName(name string) (string, error)
}

// Lookuper is implemented by registries that can also hand out the
// encoding behind a name.
type Lookuper interface {
	Lookup(name string) (encoding.Encoding, string, error)
}

// IANARegistry resolves names with ianaindex and htmlindex. The zero value
// is ready to use.
type IANARegistry struct{}

// CanonicalName implements Registry.
func (r IANARegistry) CanonicalName(name string) (string, error) {
	_, canonical, err := r.resolve(name)
	return canonical, err
}

// Lookup returns the encoding for name together with its canonical name.
func (r IANARegistry) Lookup(name string) (encoding.Encoding, string, error) {
	enc, canonical, err := r.resolve(name)
	if err != nil {
		return nil, "", err
	}
	if enc == nil {
		return nil, canonical, fmt.Errorf("%w: %q", ErrUnsupportedCharset, name)
	}
	return enc, canonical, nil
}

func (r IANARegistry) resolve(name string) (encoding.Encoding, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", fmt.Errorf("%w: empty name", ErrUnknownCharset)
	}

	// ianaindex returns a nil encoding for names it knows but x/text does not
	// implement; those fall through to the WHATWG labels.
	if enc, err := ianaindex.MIME.Encoding(name); err == nil && enc != nil {
		if canonical, ok := nameOf(enc); ok {
			return enc, canonical, nil
		}
	}
	if enc, err := htmlindex.Get(name); err == nil {
		if canonical, ok := nameOf(enc); ok {
			return enc, canonical, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownCharset, name)
}

func nameOf(enc encoding.Encoding) (string, bool) {
	if n, err := ianaindex.MIME.Name(enc); err == nil && n != "" {
		return n, true
	}
	if n, err := htmlindex.Name(enc); err == nil && n != "" {
		return n, true
	}
	return "", false
}
