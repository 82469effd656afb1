package transcoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/greatbody/encoding-probe/internal/charset"
)

// ErrInvalidSequence is returned by strict readers when the input holds a
// byte sequence the encoding cannot decode.
var ErrInvalidSequence = errors.New("invalid byte sequence")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// replacement is U+FFFD as UTF-8, emitted by x/text decoders for bad input.
var replacement = []byte("\uFFFD")

// NewStrictReader decodes r with enc and fails with ErrInvalidSequence where
// the decoder would substitute U+FFFD for undecodable input. A U+FFFD that is
// validly encoded in the source passes through.
func NewStrictReader(r io.Reader, enc encoding.Encoding) io.Reader {
	if name, err := ianaindex.MIME.Name(enc); err == nil && name == "UTF-8" {
		return &strictReader{r: transform.NewReader(r, transform.Chain(encoding.UTF8Validator, enc.NewDecoder()))}
	}
	return &strictReader{r: transform.NewReader(r, newStrictDecoder(enc))}
}

type strictReader struct{ r io.Reader }

func (s *strictReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if errors.Is(err, encoding.ErrInvalidUTF8) {
		err = fmt.Errorf("%w: %w", ErrInvalidSequence, err)
	}
	return n, err
}

// strictDecoder compares the U+FFFD runes a decoder emits with the encoded
// U+FFFD sequences it consumed. Any surplus is a substitution.
type strictDecoder struct {
	dec transform.Transformer
	// encoded U+FFFD in the source charset; nil when it is not representable.
	genuine []byte
	// code unit width used to align matches of genuine.
	unit int
}

func newStrictDecoder(enc encoding.Encoding) *strictDecoder {
	d := &strictDecoder{dec: enc.NewDecoder(), unit: 1}
	one, err1 := enc.NewEncoder().Bytes([]byte("a"))
	two, err2 := enc.NewEncoder().Bytes([]byte("aa"))
	withFFFD, err3 := enc.NewEncoder().Bytes([]byte("a\uFFFD"))
	if err1 != nil || err2 != nil || err3 != nil || !bytes.HasPrefix(withFFFD, one) {
		return d
	}
	// Differences cancel out a byte-order mark written by the encoder.
	d.genuine = withFFFD[len(one):]
	if u := len(two) - len(one); u > 0 {
		d.unit = u
	}
	return d
}

func (d *strictDecoder) Reset() { d.dec.Reset() }

func (d *strictDecoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	nDst, nSrc, err = d.dec.Transform(dst, src, atEOF)
	out := dst[:nDst]
	emitted := bytes.Count(out, replacement)
	if emitted == 0 || emitted <= d.countGenuine(src[:nSrc]) {
		return nDst, nSrc, err
	}
	return bytes.Index(out, replacement), nSrc, ErrInvalidSequence
}

// countGenuine counts unit-aligned occurrences of the encoded U+FFFD. The
// decoder only consumes whole characters, so src starts on a boundary.
func (d *strictDecoder) countGenuine(src []byte) int {
	if len(d.genuine) == 0 {
		return 0
	}
	n := 0
	for i := 0; i+len(d.genuine) <= len(src); {
		if bytes.Equal(src[i:i+len(d.genuine)], d.genuine) {
			n++
			i += len(d.genuine)
			continue
		}
		i += d.unit
	}
	return n
}

// ToUTF8 converts data from the named charset to UTF-8. A UTF-8 BOM is dropped.
func ToUTF8(data []byte, charsetName string, r *charset.Resolver) ([]byte, error) {
	enc, name, err := r.Lookup(charsetName)
	if err != nil {
		return nil, err
	}
	if r.Equivalent(name, "UTF-8") {
		return bytes.TrimPrefix(data, utf8BOM), nil
	}

	reader := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return bytes.TrimPrefix(out, utf8BOM), nil
}

// FromUTF8 converts UTF-8 data back to the named charset.
func FromUTF8(data []byte, charsetName string, r *charset.Resolver) ([]byte, error) {
	enc, name, err := r.Lookup(charsetName)
	if err != nil {
		return nil, err
	}
	reader := transform.NewReader(bytes.NewReader(data), enc.NewEncoder())
	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return out, nil
}
