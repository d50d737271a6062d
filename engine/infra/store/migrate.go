package store

import (
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/compozy/tdlimport/pkg/logger"
)

// migrationLogger routes goose output into the structured logger.
type migrationLogger struct {
	log logger.Logger
}

// NewMigrationLogger adapts log to the goose logger interface.
func NewMigrationLogger(log logger.Logger) goose.Logger {
	return &migrationLogger{log: log}
}

func (m *migrationLogger) Printf(format string, v ...any) {
	m.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (m *migrationLogger) Fatalf(format string, v ...any) {
	m.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}
