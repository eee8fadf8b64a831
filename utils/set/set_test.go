// Copyright (C) 2024-2026, Jax Protocol. All rights reserved.
// See the file LICENSE for licensing terms.

package set

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetBasics(t *testing.T) {
	require := require.New(t)

	s := Of(1, 2, 3)
	require.Equal(3, s.Len())
	require.True(s.Contains(2))
	require.False(s.Contains(4))

	s.Add(4, 4)
	require.Equal(4, s.Len())

	s.Remove(1, 2)
	require.Equal(2, s.Len())
	require.False(s.Contains(1))

	require.ElementsMatch([]int{3, 4}, s.List())
}

func TestSetUnionDifference(t *testing.T) {
	require := require.New(t)

	a := Of("x", "y")
	a.Union(Of("y", "z"))
	require.True(a.Equals(Of("x", "y", "z")))

	a.Difference(Of("x"))
	require.True(a.Equals(Of("y", "z")))
}

func TestZeroSet(t *testing.T) {
	require := require.New(t)

	var s Set[int]
	require.Zero(s.Len())
	require.False(s.Contains(1))
	s.Add(1)
	require.True(s.Contains(1))
}
