// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"errors"
	"strings"
)

// Errs is a collection of errors
type Errs struct {
	errs []error
}

// Add adds errors to the collection, ignoring nils
func (e *Errs) Add(errs ...error) {
	for _, err := range errs {
		if err != nil {
			e.errs = append(e.errs, err)
		}
	}
}

// Errored returns true if any errors have been added
func (e *Errs) Errored() bool {
	return len(e.errs) > 0
}

// Err returns the errors as a single error
func (e *Errs) Err() error {
	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	default:
		return errors.New(e.String())
	}
}

func (e *Errs) String() string {
	sb := strings.Builder{}
	for i, err := range e.errs {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}
