package compress

import (
	"errors"
	"log"
)

var (
	// ErrOverlapping is the panic value raised when a column group list with
	// shared columns is supplied to a matrix that is not in overlapping mode.
	ErrOverlapping = errors.New("compress: column groups overlap in a non-overlapping matrix")

	// ErrUnsupported is the panic value raised by operations that are supported
	// neither on the compressed form nor through decompression.
	ErrUnsupported = errors.New("compress: operation not supported on a compressed matrix")

	// ErrCompressedMisuse is the panic value raised when a caller attempts a
	// low-level mutating operation (cell assignment, buffer reset, dense block
	// allocation) on a compressed matrix.  Compressed matrices are build-once,
	// read-many; mutating operations must go through decompression.
	ErrCompressedMisuse = errors.New("compress: invalid low-level mutation of a compressed matrix")
)

// Logger, when non-nil, receives debug notices whenever an operation falls back
// to decompression.  Decompression fallback is not an error; the host runtime
// may install a logger to observe how often the compressed form is abandoned.
var Logger *log.Logger

func logFallback(op string) {
	if Logger != nil {
		Logger.Printf("compress: decompressing for operation %s", op)
	}
}
