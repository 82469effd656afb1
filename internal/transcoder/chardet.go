package transcoder

import (
	"bytes"
	"strings"

	"github.com/saintfish/chardet"
)

// DefaultMaxSniff is how many bytes ChardetEngine collects before it stops
// asking for more input.
const DefaultMaxSniff = 64 * 1024

var boms = [][]byte{
	{0x00, 0x00, 0xFE, 0xFF},
	{0xFF, 0xFE, 0x00, 0x00},
	{0xEF, 0xBB, 0xBF},
	{0xFE, 0xFF},
	{0xFF, 0xFE},
}

// ChardetEngine adapts github.com/saintfish/chardet, which works on a whole
// buffer, to the incremental Engine contract.
type ChardetEngine struct {
	maxSniff int
	buf      []byte
	ascii    bool
	bom      bool
	ended    bool
	result   string
}

// NewChardetEngine returns an engine that collects up to maxSniff bytes.
// maxSniff <= 0 selects DefaultMaxSniff.
func NewChardetEngine(maxSniff int) *ChardetEngine {
	if maxSniff <= 0 {
		maxSniff = DefaultMaxSniff
	}
	return &ChardetEngine{maxSniff: maxSniff, ascii: true}
}

// Feed implements Engine.
func (e *ChardetEngine) Feed(p []byte) {
	if e.ended || e.Done() {
		return
	}
	if room := e.maxSniff - len(e.buf); len(p) > room {
		p = p[:room]
	}
	if e.ascii {
		// ESC opens ISO-2022 shift sequences, NUL hints at UTF-16/32.
		e.ascii = !bytes.ContainsFunc(p, func(r rune) bool {
			return r >= 0x80 || r == 0x1B || r == 0x00
		})
	}
	e.buf = append(e.buf, p...)
	if !e.bom {
		e.bom = hasBOM(e.buf)
	}
}

// Done implements Engine.
func (e *ChardetEngine) Done() bool {
	return e.bom || len(e.buf) >= e.maxSniff
}

// DataEnd implements Engine.
func (e *ChardetEngine) DataEnd() {
	if e.ended {
		return
	}
	e.ended = true
	if len(e.buf) == 0 {
		return
	}
	if e.ascii {
		e.result = "US-ASCII"
		return
	}
	res, err := chardet.NewTextDetector().DetectBest(e.buf)
	if err != nil || res == nil || res.Confidence == 0 {
		return
	}
	e.result = normalizeChardetName(res.Charset)
}

// Charset implements Engine.
func (e *ChardetEngine) Charset() (string, bool) {
	return e.result, e.result != ""
}

func hasBOM(b []byte) bool {
	for _, bom := range boms {
		if bytes.HasPrefix(b, bom) {
			return true
		}
	}
	return false
}

// normalizeChardetName maps chardet's private spellings onto registry names.
func normalizeChardetName(name string) string {
	name = strings.TrimSuffix(name, "_rtl")
	name = strings.TrimSuffix(name, "_ltr")
	if name == "GB-18030" {
		return "GB18030"
	}
	return name
}
