// Package config loads client options from a .env file and prefixed
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vinicius-lino-figueiredo/mango/domain"
)

// Config is the environment-facing shape of the client options.
type Config struct {
	Endpoint             string        `mapstructure:"endpoint"`
	Username             string        `mapstructure:"username"`
	Password             string        `mapstructure:"password"`
	TokenDurationMinutes int           `mapstructure:"token_duration_minutes"`
	CaseStyle            string        `mapstructure:"case_style"`
	QueryCacheSize       int           `mapstructure:"query_cache_size"`
	FindTimeout          time.Duration `mapstructure:"find_timeout"`
	ChangesHeartbeat     time.Duration `mapstructure:"changes_heartbeat"`
	IDPrefix             string        `mapstructure:"id_prefix"`
}

// Load reads configuration from an optional .env file and from environment
// variables carrying the given prefix (e.g. "MANGO_").
func Load(prefix string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	if err := v.ReadInConfig(); err != nil {
		// the file is optional; only real parse failures matter
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, err
		}
	}

	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		key, value := pair[0], pair[1]
		if !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		propKey := strings.TrimPrefix(key, prefixUpper)
		propKey = strings.ToLower(strings.ReplaceAll(propKey, "__", "."))
		propKey = strings.TrimPrefix(propKey, ".")
		v.Set(propKey, value)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &c, nil
}

// caseStyles maps the configuration names onto the case policy.
var caseStyles = map[string]domain.CaseStyle{
	"":      domain.CaseAsIs,
	"as_is": domain.CaseAsIs,
	"lower": domain.CaseLower,
	"camel": domain.CaseCamel,
	"snake": domain.CaseSnake,
	"kebab": domain.CaseKebab,
}

// Options converts the configuration into client options.
func (c *Config) Options() ([]domain.ClientOption, error) {
	style, ok := caseStyles[strings.ToLower(c.CaseStyle)]
	if !ok {
		return nil, fmt.Errorf("unknown case style %q", c.CaseStyle)
	}

	options := []domain.ClientOption{
		domain.WithEndpoint(c.Endpoint),
		domain.WithCaseStyle(style),
	}
	if c.Username != "" {
		options = append(options, domain.WithAuth(c.Username, c.Password))
		if c.TokenDurationMinutes > 0 {
			options = append(options, domain.WithTokenDuration(
				time.Duration(c.TokenDurationMinutes)*time.Minute,
			))
		}
	}
	if c.QueryCacheSize > 0 {
		options = append(options, domain.WithQueryCacheSize(c.QueryCacheSize))
	}
	if c.FindTimeout > 0 {
		options = append(options, domain.WithFindTimeout(c.FindTimeout))
	}
	if c.ChangesHeartbeat > 0 {
		options = append(options, domain.WithChangesHeartbeat(c.ChangesHeartbeat))
	}
	if c.IDPrefix != "" {
		options = append(options, domain.WithIDPrefix(c.IDPrefix))
	}
	return options, nil
}
