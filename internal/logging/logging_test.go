package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern string
		level   string
		want    bool
	}{
		{"*", "vkf.buffer.create", true},
		{"vkf.buffer.create", "vkf.buffer.create", true},
		{"vkf.buffer.create", "vkf.buffer.delete", false},
		{"vkf.buffer.*", "vkf.buffer.create", true},
		{"vkf.buffer.*", "vkf.buffer.resize", true},
		{"vkf.buffer.*", "vkf.device.select", false},
		{"vkf.*", "vkf.buffer.create", true},
		{"vkf.*", "other.buffer.create", false},
		{"vkf.buffer", "vkf.buffer.create", false},
		{"vkf.buffer.create.extra", "vkf.buffer.create", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, matchPattern(c.pattern, c.level), "%s vs %s", c.pattern, c.level)
	}
}

func TestHandlerFilters(t *testing.T) {
	h := New("vkf.buffer.*")
	var buf bytes.Buffer
	h.SetOutput(&buf)

	h.Logf("vkf.buffer.create", "created %d", 7)
	require.Contains(t, buf.String(), "created 7")

	buf.Reset()
	h.Logf("vkf.device.select", "scored %d", 11)
	require.Empty(t, buf.String())
}

func TestHandlerNoPatternsDropsEverything(t *testing.T) {
	h := New()
	var buf bytes.Buffer
	h.SetOutput(&buf)

	h.Logf("vkf.validation.error", "boom")
	require.Empty(t, buf.String())
}
