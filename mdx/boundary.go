package mdx

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrRenderFault is recorded when a block fails to render. It is logged and
// replaced by a placeholder; it never reaches the caller of Render.
var ErrRenderFault = errors.New("mdx: render fault")

// Placeholder replaces a block that could not be rendered.
const Placeholder = `<div class="render-fault" data-block="fault">This section could not be rendered.</div>`

// guard renders one top-level block into its own buffer. A panic or error
// inside fn is reported as ErrRenderFault and the partial output discarded.
func guard(fn func(*bytes.Buffer) error) (out []byte, err error) {
	var buf bytes.Buffer
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrRenderFault, r)
		}
	}()
	if err := fn(&buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFault, err)
	}
	return buf.Bytes(), nil
}
