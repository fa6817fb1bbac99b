package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandWarnings(t *testing.T) {
	assert.Empty(t, commandWarnings("FFLS"))

	got := commandWarnings("FfZ")
	assert.Equal(t, []string{
		`'f' is dropped by the robot (commands are uppercase)`,
		`'Z' is not a known command`,
	}, got)
}
