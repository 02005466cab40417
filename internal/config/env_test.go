// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("SP_TEST_STR", "value")
	t.Setenv("SP_TEST_INT", "42")
	t.Setenv("SP_TEST_BAD_INT", "forty")
	t.Setenv("SP_TEST_DUR", "2s")
	t.Setenv("SP_TEST_BOOL", "Yes")
	t.Setenv("SP_TEST_BAD_BOOL", "maybe")
	t.Setenv("SP_TEST_FLOAT", "0.25")
	t.Setenv("SP_TEST_EMPTY", "")
	t.Setenv("SP_TEST_API_TOKEN", "secret")

	assert.Equal(t, "value", ParseString("SP_TEST_STR", "def"))
	assert.Equal(t, "def", ParseString("SP_TEST_MISSING", "def"))
	assert.Equal(t, "def", ParseString("SP_TEST_EMPTY", "def"))
	assert.Equal(t, "secret", ParseString("SP_TEST_API_TOKEN", ""))

	assert.Equal(t, 42, ParseInt("SP_TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("SP_TEST_BAD_INT", 1))

	assert.Equal(t, 2*time.Second, ParseDuration("SP_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, ParseDuration("SP_TEST_STR", time.Second))

	assert.True(t, ParseBool("SP_TEST_BOOL", false))
	assert.True(t, ParseBool("SP_TEST_BAD_BOOL", true))
	assert.False(t, ParseBool("SP_TEST_MISSING", false))

	assert.InDelta(t, 0.25, ParseFloat("SP_TEST_FLOAT", 1), 1e-9)
	assert.Equal(t, []string{"x"}, ParseList("SP_TEST_MISSING", []string{"x"}))
}
