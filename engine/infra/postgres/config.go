package postgres

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds PostgreSQL connection settings for the driver.
// Prefer providing a DSN via ConnString. When empty, a DSN will be
// synthesized from the individual fields.
type Config struct {
	ConnString     string
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ConnectTimeout time.Duration
	// ConnectRetries bounds extra ping attempts while the server comes up.
	ConnectRetries uint64
}

// dsn returns the connection string, synthesizing a URL when ConnString is empty.
func dsn(cfg *Config) string {
	if cfg.ConnString != "" {
		return cfg.ConnString
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(orDefault(cfg.User, "postgres"), cfg.Password),
		Host:   fmt.Sprintf("%s:%s", orDefault(cfg.Host, "localhost"), orDefault(cfg.Port, "5432")),
		Path:   "/" + orDefault(cfg.DBName, "postgres"),
	}
	q := url.Values{}
	q.Set("sslmode", orDefault(cfg.SSLMode, "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func orDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
