package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Run("Should prefer ldflags values", func(t *testing.T) {
		prevV, prevC, prevD := Version, CommitHash, BuildDate
		t.Cleanup(func() { Version, CommitHash, BuildDate = prevV, prevC, prevD })
		Version, CommitHash, BuildDate = "v1.2.3", "abc123", "2026-01-01T00:00:00Z"
		assert.Equal(t, Info{
			Version:    "v1.2.3",
			CommitHash: "abc123",
			BuildDate:  "2026-01-01T00:00:00Z",
			GoVersion:  runtime.Version(),
		}, Get())
	})

	t.Run("Should never return empty fields", func(t *testing.T) {
		info := Get()
		assert.NotEmpty(t, info.Version)
		assert.NotEmpty(t, info.CommitHash)
		assert.NotEmpty(t, info.BuildDate)
	})
}
