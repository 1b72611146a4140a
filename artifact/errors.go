package artifact

import "errors"

// ErrNotFound is returned when no blob exists for the given namespace / name pair.
var ErrNotFound = errors.New("artifact not found")
