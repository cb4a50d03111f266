package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DBConfig holds the profile and credential database settings.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"portal"`
	Password string `env:"PASSWORD" envDefault:"portal"`
	Name     string `env:"NAME"     envDefault:"portal"`
	// SSLMode is passed through as sslmode; use require outside local development.
	SSLMode string `env:"SSL_MODE" envDefault:"disable"`

	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`

	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// Sanitize keeps the pool settings usable: idle never exceeds open.
func (c *DBConfig) Sanitize() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns < 0 {
		c.MaxIdleConns = 0
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime < 0 {
		c.ConnMaxLifetime = 0
	}
}

// Validate rejects settings that cannot produce a connection.
func (c DBConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT %d out of range", c.Port))
	}
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	return errors.Join(errs...)
}

// DSN renders a postgres URL; credentials are escaped so any character survives.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig selects a direct, sentinel or cluster client for the session store.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`

	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`

	UseCluster   bool     `env:"USE_CLUSTER"   envDefault:"false"`
	ClusterNodes []string `env:"CLUSTER_NODES" envDefault:""`
}

// Validate checks that the selected topology has the addresses it needs.
func (c RedisConfig) Validate() error {
	switch {
	case c.UseSentinel && c.UseCluster:
		return errors.New("REDIS_USE_SENTINEL and REDIS_USE_CLUSTER are mutually exclusive")
	case c.UseSentinel && (len(nonBlank(c.SentinelNodes)) == 0 || strings.TrimSpace(c.SentinelMasterName) == ""):
		return errors.New("sentinel mode needs REDIS_SENTINEL_NODES and REDIS_SENTINEL_MASTER_NAME")
	case c.UseCluster && len(nonBlank(c.ClusterNodes)) == 0 && strings.TrimSpace(c.URI) == "":
		return errors.New("cluster mode needs REDIS_CLUSTER_NODES or REDIS_URI")
	case !c.UseSentinel && !c.UseCluster && strings.TrimSpace(c.URI) == "":
		return errors.New("REDIS_URI is required")
	}
	return nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
