package policy

import (
	"fmt"
	"io"
	"os"

	"github.com/drses/frozen-realms-shim/domain/entities"
	"github.com/drses/frozen-realms-shim/domain/ports"
)

// Ensure implementations satisfy the interface.
var _ ports.DispositionHandler = (*WriterDispositionHandler)(nil)
var _ ports.DispositionHandler = (*NopDispositionHandler)(nil)

// WriterDispositionHandler prints every non-Safe decision to a writer.
// The zero value writes to stderr.
type WriterDispositionHandler struct {
	W io.Writer
}

func (h *WriterDispositionHandler) OnDisposition(v entities.Violation) {
	if v.Severity == entities.SeveritySafe {
		return
	}
	w := h.W
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "%s [%s]: %s (Reason: %s)\n", v.Disposition, v.Severity, v.Path, v.Reason)
}

// NopDispositionHandler does nothing.
type NopDispositionHandler struct{}

func (h *NopDispositionHandler) OnDisposition(v entities.Violation) {}
