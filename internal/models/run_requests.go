package models

import (
	"github.com/google/uuid"
)

// RunRequest asks a running 'serve' instance to execute one target
// of its loaded task file.
type RunRequest struct {
	RunRequestId uuid.UUID `json:"runRequestId"`

	// Name of the target, as declared under 'targets' in the task file
	Target string `json:"target"`
}
