package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	line := "401 from provider: Incorrect API key provided: sk-abcdef123456"
	assert.Equal(t, "401 from provider: Incorrect API key provided: [REDACTED]", String(line, "sk-abcdef123456"))

	assert.Equal(t, "abc abc", String("abc abc", "abc"), "short values are left alone")
	assert.Equal(t, "nothing here", String("nothing here"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "(not set)", Key(""))
	assert.Equal(t, "****", Key("short"))
	assert.Equal(t, "****3456", Key("sk-abcdef123456"))
}
