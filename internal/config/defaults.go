// Package config provides configuration loading, defaults, and validation for
// the MolScore scoring engine.
package config

import "time"

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "molscore"
	DefaultDBMaxConns = 25

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "molscore-group"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "molscore-artifacts"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency = 10

	DefaultServingAddr = "localhost:8001"
)

// ApplyDefaults fills zero-value fields with the engine defaults, leaving
// anything the caller set alone.  Run it between unmarshalling and Validate,
// otherwise defaulted fields read as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(cfg)
	applyMessagingDefaults(&cfg.Kafka)
	applyIntelligenceDefaults(&cfg.Intelligence)
	applyWorkerDefaults(&cfg.Worker)
	applyLogDefaults(&cfg.Log)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Port == 0 {
		s.Port = DefaultServerPort
	}
	if s.Mode == "" {
		s.Mode = DefaultServerMode
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 10 * time.Second
	}
}

func applyStoreDefaults(cfg *Config) {
	db := &cfg.Database
	if db.Host == "" {
		db.Host = DefaultDBHost
	}
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.DBName == "" {
		db.DBName = DefaultDBName
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultDBMaxConns
	}
	if db.SSLMode == "" {
		db.SSLMode = "disable"
	}

	r := &cfg.Redis
	if r.Addr == "" {
		r.Addr = DefaultRedisAddr
	}
	if r.DefaultTTL == 0 {
		r.DefaultTTL = time.Hour
	}
	if r.KeyPrefix == "" {
		r.KeyPrefix = "molscore"
	}
	// Redis.DB stays as parsed: database 0 is both the zero value and the
	// default, so there is nothing to distinguish.

	m := &cfg.MinIO
	if m.Endpoint == "" {
		m.Endpoint = DefaultMinIOEndpoint
	}
	if m.Bucket == "" {
		m.Bucket = DefaultMinIOBucket
	}
}

func applyMessagingDefaults(k *KafkaConfig) {
	if len(k.Brokers) == 0 {
		k.Brokers = []string{DefaultKafkaBroker}
	}
	if k.GroupID == "" {
		k.GroupID = DefaultKafkaGroupID
	}
	if k.AutoOffsetReset == "" {
		k.AutoOffsetReset = "earliest"
	}
}

func applyIntelligenceDefaults(i *IntelligenceConfig) {
	if i.ServingAddr == "" {
		i.ServingAddr = DefaultServingAddr
	}
	if i.ModelTimeout == 0 {
		i.ModelTimeout = 30 * time.Second
	}
	if i.MaxBatchSize == 0 {
		i.MaxBatchSize = 64
	}
	if i.DockingTimeout == 0 {
		i.DockingTimeout = 2 * time.Minute
	}
}

func applyWorkerDefaults(w *WorkerConfig) {
	if w.Concurrency == 0 {
		w.Concurrency = DefaultWorkerConcurrency
	}
	if w.QueueDepth == 0 {
		w.QueueDepth = 64
	}
	if w.MaxRetries == 0 {
		w.MaxRetries = 3
	}
	if w.RetryBackoffMS == 0 {
		w.RetryBackoffMS = 200 * time.Millisecond
	}
	if w.ItemTimeout == 0 {
		w.ItemTimeout = 30 * time.Second
	}
}

func applyLogDefaults(l *LogConfig) {
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	if l.Format == "" {
		l.Format = DefaultLogFormat
	}
}

//Personal.AI order the ending
