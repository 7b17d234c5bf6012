package dsquery

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rickar/props"
)

// Config describes how a DataSource reaches its database.
type Config struct {
	// Driver is the database/sql driver name.
	Driver string
	// DSN is the driver specific connection descriptor. An empty DSN leaves the
	// configuration to the driver, which for postgres means the PG* environment variables.
	DSN string
	// ParamStyle selects the placeholder syntax; empty means the style of Driver.
	ParamStyle string
	// Retries is how many times a statement is retried after the connection was lost.
	Retries int
	// StatementTimeout bounds every statement; zero means no limit.
	StatementTimeout time.Duration
	// Timing logs the duration of every statement through dbtimer.
	Timing bool
}

// DefaultConfig is a postgres configuration that takes its connection settings from the environment.
func DefaultConfig() Config {
	return Config{
		Driver:  "postgres",
		Retries: 1,
	}
}

const (
	keyDriver     = "dsquery.driver"
	keyDSN        = "dsquery.dsn"
	keyParamStyle = "dsquery.paramstyle"
	keyRetries    = "dsquery.retries"
	keyTimeout    = "dsquery.timeout"
	keyTiming     = "dsquery.timing"
)

// LoadConfig reads a properties file on top of DefaultConfig. Recognized keys are
// dsquery.driver, dsquery.dsn, dsquery.paramstyle, dsquery.retries, dsquery.timeout
// (a time.Duration) and dsquery.timing.
func LoadConfig(name string) (Config, error) {
	return DefaultConfig().FromFile(name)
}

// FromFile overlays the settings of a properties file. See LoadConfig for the keys.
func (c Config) FromFile(name string) (Config, error) {
	file, err := os.Open(name)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()
	properties, err := props.Read(file)
	if err != nil {
		return Config{}, err
	}
	return c.apply(properties.Get)
}

// FromEnv overlays the DSQUERY_DRIVER, DSQUERY_DSN, DSQUERY_PARAMSTYLE, DSQUERY_RETRIES,
// DSQUERY_TIMEOUT and DSQUERY_TIMING environment variables.
func (c Config) FromEnv() (Config, error) {
	return c.apply(func(key string) string {
		return os.Getenv(strings.ToUpper(strings.Replace(key, ".", "_", -1)))
	})
}

func (c Config) apply(get func(string) string) (Config, error) {
	if v := get(keyDriver); v != "" {
		c.Driver = v
	}
	if v := get(keyDSN); v != "" {
		c.DSN = v
	}
	if v := get(keyParamStyle); v != "" {
		c.ParamStyle = v
	}
	if v := get(keyRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid %s %q", keyRetries, v)
		}
		c.Retries = n
	}
	if v := get(keyTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %v", keyTimeout, v, err)
		}
		c.StatementTimeout = d
	}
	if v := get(keyTiming); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q", keyTiming, v)
		}
		c.Timing = b
	}
	return c, nil
}

func (c Config) paramStyle() string {
	if c.ParamStyle != "" {
		return c.ParamStyle
	}
	return c.Driver
}
