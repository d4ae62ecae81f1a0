package normalize

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoUsableData reports that normalization produced no rows or no canonical columns.
var ErrNoUsableData = errors.New("no usable data found after normalization; adjust the column mapping or upload different files")

// MissingColumnsError lists required canonical columns that are absent, together with
// the source columns that were actually found.
type MissingColumnsError struct {
	Missing   []string
	Available []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required column(s): %s (found: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}
