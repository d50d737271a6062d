package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/compozy/tdlimport/cli/helpers"
	"github.com/compozy/tdlimport/pkg/config"
	"github.com/compozy/tdlimport/pkg/logger"
)

// Bootstrap loads the env file and configuration for cmd and returns a
// context carrying the config manager and the configured logger.
func Bootstrap(cmd *cobra.Command) (context.Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := loadEnvFile(cmd); err != nil {
		return nil, helpers.NewCliError(helpers.CodeConfig, "Failed to load environment file", err.Error())
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	manager := config.NewManager(config.NewService())
	cfg, err := manager.Load(ctx,
		config.NewYAMLProvider(configFile),
		config.NewEnvProvider(),
		config.NewCLIProvider(ChangedFlags(cmd.Flags())),
	)
	if err != nil {
		return nil, helpers.NewCliError(helpers.CodeConfig, "Invalid configuration", err.Error())
	}
	_, _, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, logSource)
	log.Debug("Configuration loaded", "config_file", configFile, "driver", cfg.Database.Driver)
	ctx = config.ContextWithManager(ctx, manager)
	ctx = logger.ContextWithLogger(ctx, log)
	return ctx, nil
}

// ChangedFlags returns the explicitly set flags with typed values.
func ChangedFlags(fs *pflag.FlagSet) map[string]any {
	out := make(map[string]any)
	fs.Visit(func(f *pflag.Flag) {
		if _, ok := config.CLIFlagPaths[f.Name]; !ok {
			return
		}
		var (
			v   any
			err error
		)
		switch f.Value.Type() {
		case "bool":
			v, err = fs.GetBool(f.Name)
		case "int":
			v, err = fs.GetInt(f.Name)
		case "duration":
			v, err = fs.GetDuration(f.Name)
		default:
			v = f.Value.String()
		}
		if err == nil {
			out[f.Name] = v
		}
	})
	return out
}

// loadEnvFile loads the env file named by --env-file. A missing file is not
// an error; a path outside the working directory is.
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(pwd, envFile)
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if !isPathWithinDirectory(absPath, pwd) {
		return "", fmt.Errorf("env file path '%s' is outside the working directory", envFile)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("env file path '%s' is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}

func isPathWithinDirectory(path, dir string) bool {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return false
	}
	if !strings.HasSuffix(absDir, string(filepath.Separator)) {
		absDir += string(filepath.Separator)
	}
	return strings.HasPrefix(absPath, absDir) || absPath == strings.TrimSuffix(absDir, string(filepath.Separator))
}
