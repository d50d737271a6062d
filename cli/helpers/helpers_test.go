package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/tdlimport/engine/infra/store"
	"github.com/compozy/tdlimport/engine/ingest"
	"github.com/compozy/tdlimport/engine/tdl"
)

func TestCategorize(t *testing.T) {
	t.Run("Should map pipeline errors to codes", func(t *testing.T) {
		cases := map[string]error{
			CodeUsage:      &ingest.UsageError{Reason: "file path is required", Err: ingest.ErrNoFile},
			CodeDecode:     &tdl.DecodeError{Attempts: []tdl.AttemptError{{Err: tdl.ErrEmptyInput}}},
			CodeCanceled:   fmt.Errorf("loader: %w", context.Canceled),
			CodeTimeout:    store.Fault("begin", context.DeadlineExceeded),
			CodeStoreFault: store.Fault("insert task", errors.New("disk full")),
			CodeInternal:   errors.New("boom"),
		}
		for code, err := range cases {
			got := Categorize(err)
			require.NotNil(t, got, code)
			assert.Equal(t, code, got.Code)
			assert.ErrorIs(t, got, err)
		}
	})

	t.Run("Should pass CLI errors through", func(t *testing.T) {
		orig := NewUsageError("Usage: x")
		assert.Same(t, orig, Categorize(fmt.Errorf("wrapped: %w", orig)))
		assert.Nil(t, Categorize(nil))
	})

	t.Run("Should track reporting", func(t *testing.T) {
		err := NewCliError(CodeConfig, "bad")
		assert.False(t, IsReported(err))
		assert.True(t, IsReported(fmt.Errorf("x: %w", err.MarkReported())))
		assert.False(t, IsReported(errors.New("plain")))
	})
}

func TestOutputWriter(t *testing.T) {
	res := &ingest.Result{Destination: "weekly_tdl", Encoding: "UTF-8", TaskNodes: 3, Inserted: 2, Skipped: 1, Categories: 1, Links: 2}

	t.Run("Should write an unstyled text summary to a non-terminal", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOutputWriter(&buf, OutputFormatText).WriteResult(res))
		assert.Equal(t,
			"Data inserted successfully into [weekly_tdl]. Total tasks processed: 2\n"+
				"encoding=UTF-8 task_nodes=3 skipped=1 categories=1 links=2\n",
			buf.String())
		assert.False(t, IsTerminal(&buf))
	})

	t.Run("Should describe a dry run", func(t *testing.T) {
		var buf bytes.Buffer
		dry := *res
		dry.DryRun = true
		require.NoError(t, NewOutputWriter(&buf, OutputFormatText).WriteResult(&dry))
		assert.Contains(t, buf.String(), "Dry run for [weekly_tdl]: 2 tasks would be inserted.")
	})

	t.Run("Should write JSON results and errors", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewOutputWriter(&buf, OutputFormatJSON)
		require.NoError(t, w.WriteResult(res))
		var got ingest.Result
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, *res, got)

		buf.Reset()
		require.NoError(t, w.WriteError(NewCliError(CodeUsage, "Usage: x", "detail")))
		var body map[string]map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &body))
		assert.Equal(t, map[string]string{"code": CodeUsage, "message": "Usage: x", "details": "detail"}, body["error"])
	})

	t.Run("Should write text errors with details", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOutputWriter(&buf, OutputFormatText).WriteError(errors.New("boom")))
		assert.Equal(t, "Error: Import failed\nDetails: boom\n", buf.String())
	})
}

func TestParseOutputFormat(t *testing.T) {
	t.Run("Should accept text, json and empty", func(t *testing.T) {
		for in, want := range map[string]OutputFormat{"": OutputFormatText, "text": OutputFormatText, "json": OutputFormatJSON} {
			got, err := ParseOutputFormat(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})
	t.Run("Should reject other formats as usage errors", func(t *testing.T) {
		_, err := ParseOutputFormat("yaml")
		var cliErr *CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, CodeUsage, cliErr.Code)
	})
}
