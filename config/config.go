// Package config loads portal settings from the environment with
// github.com/caarlos0/env. Each file owns one area:
//   - auth.go: identity providers, sessions and sign-in policy
//   - database.go: PostgreSQL and Redis
//   - http.go: listener, cookies and timeouts
//   - observability.go: metrics endpoint and log level
package config

import "errors"

// AppConfig is the root of the portal configuration.
type AppConfig struct {
	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	Observability ObservabilityConfig
}

// Sanitize replaces out-of-range values with defaults. Call it once after
// parsing and before Validate.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Auth.Sanitize()
	c.Postgres.Sanitize()
	c.Observability.Sanitize()
}

// Validate reports every setting that cannot be defaulted, joined into one error.
func (c *AppConfig) Validate() error {
	return errors.Join(
		c.Postgres.Validate(),
		c.Redis.Validate(),
	)
}
