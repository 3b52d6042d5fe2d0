package hdfs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalBackendIdentity(t *testing.T) {
	got := LocalBackendIdentity()
	assert.NotEmpty(t, got)
	if host, err := os.Hostname(); err == nil && host != "" {
		assert.Equal(t, host, got)
	}
}
