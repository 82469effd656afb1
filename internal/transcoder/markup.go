package transcoder

import (
	htmlcharset "golang.org/x/net/html/charset"
)

// markupSniffLen matches the prescan window of the HTML encoding sniffing
// algorithm.
const markupSniffLen = 1024

// MarkupEngine determines an encoding the way browsers do for HTML and XML:
// byte-order mark, then a <meta charset> prescan, then UTF-8 validity.
type MarkupEngine struct {
	contentType string
	buf         []byte
	result      string
}

// NewMarkupEngine returns a MarkupEngine. contentType may carry a charset
// parameter, e.g. "text/html; charset=euc-jp".
func NewMarkupEngine(contentType string) *MarkupEngine {
	return &MarkupEngine{contentType: contentType}
}

// Feed implements Engine.
func (e *MarkupEngine) Feed(p []byte) {
	if room := markupSniffLen - len(e.buf); room > 0 {
		if len(p) > room {
			p = p[:room]
		}
		e.buf = append(e.buf, p...)
	}
}

// Done implements Engine.
func (e *MarkupEngine) Done() bool {
	return len(e.buf) >= markupSniffLen
}

// DataEnd implements Engine.
func (e *MarkupEngine) DataEnd() {
	if len(e.buf) == 0 || e.result != "" {
		return
	}
	_, name, _ := htmlcharset.DetermineEncoding(e.buf, e.contentType)
	e.result = name
}

// Charset implements Engine.
func (e *MarkupEngine) Charset() (string, bool) {
	return e.result, e.result != ""
}
