package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/tdlimport/cli/helpers"
	"github.com/compozy/tdlimport/engine/ingest"
	"github.com/compozy/tdlimport/pkg/version"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<TODOLIST>
  <TASK TITLE="Buy milk" STARTDATE="25570"><CATEGORY>Errands</CATEGORY></TASK>
  <TASK PRIORITY="3"><CATEGORY>Errands</CATEGORY></TASK>
  <TASK TITLE="Post letter"><CATEGORY>Errands</CATEGORY></TASK>
</TODOLIST>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := RootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--log-level", "disabled"}, args...))
	err := root.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func TestImportCommand(t *testing.T) {
	t.Run("Should import a file and print the JSON summary", func(t *testing.T) {
		dbDir := t.TempDir()
		input := writeFile(t, t.TempDir(), "weekly.tdl", sampleDoc)
		stdout, _, err := execute(t, "import", input, "--db-dir", dbDir, "--format", "json")
		require.NoError(t, err)
		var res ingest.Result
		require.NoError(t, json.Unmarshal([]byte(stdout), &res))
		assert.Equal(t, ingest.Result{
			Destination: "weekly_tdl",
			Encoding:    "UTF-8",
			TaskNodes:   3,
			Inserted:    2,
			Skipped:     1,
			Categories:  1,
			Links:       2,
		}, res)
		assert.FileExists(t, filepath.Join(dbDir, "weekly_tdl.db"))
	})

	t.Run("Should print a text summary by default", func(t *testing.T) {
		input := writeFile(t, t.TempDir(), "weekly.tdl", sampleDoc)
		stdout, _, err := execute(t, "import", input, "--db-dir", t.TempDir())
		require.NoError(t, err)
		assert.Contains(t, stdout, "Total tasks processed: 2")
		assert.Contains(t, stdout, "skipped=1")
	})

	t.Run("Should fail with usage when the file argument is missing", func(t *testing.T) {
		_, stderr, err := execute(t, "import")
		require.Error(t, err)
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, helpers.CodeUsage, cliErr.Code)
		assert.True(t, helpers.IsReported(err))
		assert.Contains(t, stderr, "Usage: tdlimport import <tdl_file>")
	})

	t.Run("Should fail with usage on extra arguments", func(t *testing.T) {
		_, _, err := execute(t, "import", "a.tdl", "b.tdl")
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, helpers.CodeUsage, cliErr.Code)
	})

	t.Run("Should report a missing file as a usage error", func(t *testing.T) {
		_, _, err := execute(t, "import", filepath.Join(t.TempDir(), "missing.tdl"), "--db-dir", t.TempDir())
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, helpers.CodeUsage, cliErr.Code)
	})

	t.Run("Should report undecodable input without creating a destination", func(t *testing.T) {
		dbDir := t.TempDir()
		input := writeFile(t, t.TempDir(), "broken.tdl", "<<not xml")
		_, stderr, err := execute(t, "import", input, "--db-dir", dbDir, "--format", "json")
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, helpers.CodeDecode, cliErr.Code)
		assert.Contains(t, stderr, `"code": "DECODE_ERROR"`)
		assert.NoFileExists(t, filepath.Join(dbDir, "broken_tdl.db"))
	})

	t.Run("Should not create a destination on dry run", func(t *testing.T) {
		dbDir := t.TempDir()
		input := writeFile(t, t.TempDir(), "weekly.tdl", sampleDoc)
		stdout, _, err := execute(t, "import", input, "--db-dir", dbDir, "--dry-run", "--format", "json")
		require.NoError(t, err)
		var res ingest.Result
		require.NoError(t, json.Unmarshal([]byte(stdout), &res))
		assert.True(t, res.DryRun)
		assert.Equal(t, 2, res.Inserted)
		assert.NoFileExists(t, filepath.Join(dbDir, "weekly_tdl.db"))
	})

	t.Run("Should read the destination directory from a config file", func(t *testing.T) {
		dbDir := t.TempDir()
		cfgPath := writeFile(t, t.TempDir(), "tdlimport.yaml", "database:\n  dir: "+dbDir+"\ningest:\n  destination_suffix: export\n")
		input := writeFile(t, t.TempDir(), "weekly.tdl", sampleDoc)
		_, _, err := execute(t, "import", input, "--config", cfgPath)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dbDir, "weekly_export.db"))
	})

	t.Run("Should let flags override environment", func(t *testing.T) {
		envDir := t.TempDir()
		flagDir := t.TempDir()
		t.Setenv("DB_DIR", envDir)
		input := writeFile(t, t.TempDir(), "weekly.tdl", sampleDoc)
		_, _, err := execute(t, "import", input, "--db-dir", flagDir)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(flagDir, "weekly_tdl.db"))
		assert.NoFileExists(t, filepath.Join(envDir, "weekly_tdl.db"))
	})

	t.Run("Should reject an invalid precedence", func(t *testing.T) {
		input := writeFile(t, t.TempDir(), "weekly.tdl", sampleDoc)
		_, _, err := execute(t, "import", input, "--precedence", "both")
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, helpers.CodeConfig, cliErr.Code)
		assert.False(t, helpers.IsReported(err))
	})

	t.Run("Should reject an env file outside the working directory", func(t *testing.T) {
		envFile := writeFile(t, t.TempDir(), "outside.env", "DB_DIR=/tmp\n")
		_, _, err := execute(t, "import", "x.tdl", "--env-file", envFile)
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, helpers.CodeConfig, cliErr.Code)
	})
}

func TestVersionCommand(t *testing.T) {
	t.Run("Should print build information as JSON", func(t *testing.T) {
		stdout, _, err := execute(t, "version", "-f", "json")
		require.NoError(t, err)
		var info version.Info
		require.NoError(t, json.Unmarshal([]byte(stdout), &info))
		assert.Equal(t, version.Get(), info)
	})

	t.Run("Should print one text line", func(t *testing.T) {
		stdout, _, err := execute(t, "version")
		require.NoError(t, err)
		assert.Contains(t, stdout, "tdlimport "+version.Get().Version)
	})
}

func TestIsPathWithinDirectory(t *testing.T) {
	t.Run("Should accept nested paths and the directory itself", func(t *testing.T) {
		assert.True(t, isPathWithinDirectory("/work/app/.env", "/work/app"))
		assert.True(t, isPathWithinDirectory("/work/app", "/work/app"))
	})
	t.Run("Should reject siblings and parents", func(t *testing.T) {
		assert.False(t, isPathWithinDirectory("/work/application/.env", "/work/app"))
		assert.False(t, isPathWithinDirectory("/work/.env", "/work/app"))
	})
}
