// Package config provides configuration loading, defaults, and validation for
// the MolScore scoring engine.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is shared by all engine environment variables.
const envPrefix = "MOLSCORE"

// newViper prepares a viper instance for YAML files plus MOLSCORE_* env
// overrides.  The key replacer turns "database.host" into
// MOLSCORE_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindKnownKeys(v)
	return v
}

// knownKeys enumerates every configuration key.  Viper surfaces an
// environment variable during Unmarshal only for keys bound beforehand, so
// env-only deployments need the full list.
var knownKeys = []string{
	"server.port", "server.mode", "server.read_timeout", "server.write_timeout",
	"server.max_body_size", "server.shutdown_timeout",
	"database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns",
	"database.min_conns", "database.conn_max_lifetime",
	"database.conn_max_idle_time", "database.migration_path",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout",
	"redis.write_timeout", "redis.default_ttl", "redis.key_prefix",
	"kafka.brokers", "kafka.group_id", "kafka.auto_offset_reset",
	"kafka.timeout_ms", "kafka.producer_retries", "kafka.batch_size",
	"kafka.auto_create_topics", "kafka.num_partitions",
	"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket",
	"minio.use_ssl", "minio.presign_expiry",
	"worker.concurrency", "worker.queue_depth", "worker.max_retries",
	"worker.retry_backoff_ms", "worker.item_timeout",
	"log.level", "log.format", "log.output", "log.enable_caller",
	"log.enable_stacktrace",
	"intelligence.serving_addr", "intelligence.model_timeout",
	"intelligence.max_batch_size", "intelligence.docking_base_url",
	"intelligence.docking_timeout", "intelligence.docking_retries",
}

func bindKnownKeys(v *viper.Viper) {
	for _, key := range knownKeys {
		_ = v.BindEnv(key)
	}
}

// Load reads the YAML file at configPath with MOLSCORE_* environment
// overrides applied on top, then defaults and validation.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %q: %w", configPath, err)
	}

	return finalize(v)
}

// LoadFromEnv builds the configuration from MOLSCORE_* environment variables
// alone, the usual mode for containerised deployments.  Variables follow
// MOLSCORE_<SECTION>_<FIELD>, e.g. MOLSCORE_DATABASE_HOST.
func LoadFromEnv() (*Config, error) {
	return finalize(newViper())
}

// LoadLocal is Load with infrastructure validation skipped: only the worker
// and log sections have to be well-formed.  Used by CLI commands that run
// entirely in-process.
func LoadLocal(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %q: %w", configPath, err)
	}

	return finalizeWith(v, (*Config).ValidateLocal)
}

// LoadLocalFromEnv is LoadFromEnv with infrastructure validation skipped.
func LoadLocalFromEnv() (*Config, error) {
	return finalizeWith(newViper(), (*Config).ValidateLocal)
}

// finalize unmarshals the viper state, fills defaults and validates.
func finalize(v *viper.Viper) (*Config, error) {
	return finalizeWith(v, (*Config).Validate)
}

func finalizeWith(v *viper.Viper, validate func(*Config) error) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	ApplyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch re-parses configPath on every on-disk change and hands the result to
// onChange.  A change that fails to parse or validate is dropped, so a bad
// edit never reaches the running process.  The watch runs on a viper-managed
// goroutine; hot-reload only settings that are safe to swap at runtime, such
// as the log level.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Callers load first; an unreadable file here just means no updates
	// until it reappears.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		if cfg, err := finalize(v); err == nil {
			onChange(cfg)
		}
	})
}

// MustLoad is Load for main(), where a broken configuration is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
