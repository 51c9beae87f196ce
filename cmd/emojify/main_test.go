package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_RequiresInput(t *testing.T) {
	var out bytes.Buffer

	err := run([]string{}, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "-in is required")
	assert.Empty(t, out.String())
}

func TestRun_UnknownFlag(t *testing.T) {
	var out bytes.Buffer

	err := run([]string{"-nope"}, &out)

	assert.Error(t, err)
}
