package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestinationName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		suffix   string
		want     string
	}{
		{"Should strip directory and extension", "/data/exports/tasks.xml", ".tdl", "tasks_tdl"},
		{"Should lower-case and replace separators", "My Tasks-List.tdl", ".tdl", "my_tasks_list_tdl"},
		{"Should map inner dots to underscores", "archive.2024.tdl", ".tdl", "archive_2024_tdl"},
		{"Should transliterate accents", "Café.tdl", "", "cafe"},
		{"Should handle windows paths", `C:\Users\me\work.tdl`, ".tdl", "work_tdl"},
		{"Should drop quoting and SQL characters", "x`; DROP TABLE t;--.tdl", ".tdl", "x_drop_table_t_tdl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DestinationName(tt.fileName, tt.suffix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Regexp(t, `^[a-z0-9_]+$`, got)
		})
	}

	t.Run("Should reject names with no safe characters", func(t *testing.T) {
		for _, fileName := range []string{"", "/", "!!!.tdl", ".tdl"} {
			_, err := DestinationName(fileName, ".tdl")
			assert.ErrorIs(t, err, ErrInvalidDestination, fileName)
		}
	})
}

func TestFault(t *testing.T) {
	t.Run("Should wrap errors once and keep the cause", func(t *testing.T) {
		cause := errors.New("disk full")
		err := Fault("insert task", cause)
		var f *StoreFault
		require.ErrorAs(t, err, &f)
		assert.Equal(t, "insert task", f.Op)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "store: insert task: disk full", err.Error())

		wrapped := Fault("commit", fmt.Errorf("outer: %w", err))
		require.ErrorAs(t, wrapped, &f)
		assert.Equal(t, "insert task", f.Op)
		assert.True(t, IsFault(wrapped))
	})

	t.Run("Should keep nil as nil", func(t *testing.T) {
		assert.NoError(t, Fault("noop", nil))
		assert.False(t, IsFault(errors.New("plain")))
	})
}
