// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package mount

import (
	"errors"
	"strings"

	"github.com/jax-protocol/jax-fs/bucket"
)

var ErrInvalidPath = errors.New("invalid path")

// splitPath validates an absolute path and returns its components. The
// root path "/" yields no components. Empty components and the "." and
// ".." names are rejected outright.
func splitPath(path string) ([]string, error) {
	if path == "" || path[0] != '/' {
		return nil, ErrInvalidPath
	}
	if path == "/" {
		return nil, nil
	}
	parts := strings.Split(path[1:], "/")
	for _, part := range parts {
		if bucket.ValidName(part) != nil {
			return nil, ErrInvalidPath
		}
	}
	return parts, nil
}

// isPrefix reports whether prefix is a path prefix of parts
func isPrefix(prefix, parts []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if prefix[i] != parts[i] {
			return false
		}
	}
	return true
}
