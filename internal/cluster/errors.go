package cluster

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a node or role resolved to nothing.
type NotFoundError struct {
	Kind string // "node" or "role"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
