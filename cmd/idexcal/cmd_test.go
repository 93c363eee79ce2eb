package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureCommand_HomesByDefault(t *testing.T) {
	cmd := newProbeCommand()
	f := cmd.Flags().Lookup("home-before")
	require.NotNil(t, f)
	assert.Equal(t, "true", f.DefValue)

	require.NoError(t, cmd.Flags().Parse([]string{"-x", "--home-before=false"}))
	v, err := cmd.Flags().GetBool("home-before")
	require.NoError(t, err)
	assert.False(t, v)
}
