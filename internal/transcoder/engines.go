package transcoder

import (
	"errors"
	"fmt"
)

// ErrUnknownEngine is returned by EngineByName for unsupported engine names.
var ErrUnknownEngine = errors.New("unknown detection engine")

// EngineByName returns a factory for a named engine: "chardet" (default when
// name is empty) or "markup". maxSniff applies to the chardet engine.
func EngineByName(name string, maxSniff int) (EngineFactory, error) {
	switch name {
	case "", "chardet":
		return func() Engine { return NewChardetEngine(maxSniff) }, nil
	case "markup":
		return func() Engine { return NewMarkupEngine("text/plain") }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}
