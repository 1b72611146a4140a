package core

import "github.com/google/uuid"

// NewID generates a new unique identifier for turns, records and stream
// messages.
func NewID() string { return uuid.NewString() }
