package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVariants(t *testing.T) {
	c := testConfig()
	s, err := newSite(c)
	require.NoError(t, err)

	var buf bytes.Buffer
	formatVariants(&buf, newRegistry(s), c)
	out := buf.String()

	assert.Contains(t, out, "hospital")
	assert.Contains(t, out, "의원,요양병원", "config exclusions replace the profile's")
	assert.Contains(t, out, "{slug}_{timestamp}{ext}")
	assert.Contains(t, out, "clinic_{dept}_auto_{timestamp}{ext}")
	assert.Contains(t, out, "fail-fast")
	assert.Contains(t, out, "상급종합병원,종합병원")
}
