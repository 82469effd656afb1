package vfs

import (
	"bytes"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/greatbody/encoding-probe/internal/charset"
	"github.com/greatbody/encoding-probe/internal/transcoder"
)

// Codec converts file content between its detected charset and UTF-8.
type Codec struct {
	detector *transcoder.Detector
	resolver *charset.Resolver
	fallback string
	logger   *slog.Logger
}

// NewCodec builds a Codec. fallback names the charset edited content is
// written in when its own charset is unknown or cannot hold the edit; empty
// leaves such content as it is.
func NewCodec(detector *transcoder.Detector, resolver *charset.Resolver, fallback string, logger *slog.Logger) *Codec {
	if resolver == nil {
		resolver = charset.Default()
	}
	if detector == nil {
		detector = transcoder.NewDetector(transcoder.WithResolver(resolver))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{detector: detector, resolver: resolver, fallback: fallback, logger: logger}
}

// Decode returns raw as UTF-8 along with the charset it was decoded from.
// Content whose charset cannot be determined or decoded is returned unchanged
// with an empty charset.
func (c *Codec) Decode(raw []byte) ([]byte, string) {
	name, ok, err := c.detector.Detect(io.NopCloser(bytes.NewReader(raw)))
	if err != nil || !ok {
		return raw, ""
	}
	out, err := transcoder.ToUTF8(raw, name, c.resolver)
	if err != nil {
		c.logger.Warn("decode failed, serving raw bytes", "charset", name, "error", err)
		return raw, ""
	}
	return out, name
}

// Encode converts UTF-8 content back to charsetName. Content with an empty
// charsetName, or US-ASCII content that gained non-ASCII text, is written in
// the fallback charset. Bytes that are not UTF-8 were served raw and are
// returned unchanged.
func (c *Codec) Encode(content []byte, charsetName string) ([]byte, error) {
	target := charsetName
	if target == "" || (!isASCII(content) && c.resolver.Equivalent(target, "US-ASCII")) {
		if c.fallback == "" || !utf8.Valid(content) {
			return content, nil
		}
		c.logger.Debug("writing in fallback charset", "detected", charsetName, "fallback", c.fallback)
		target = c.fallback
	}
	return transcoder.FromUTF8(content, target, c.resolver)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
