// Package config provides configuration structures and validation for the
// reconciliation service. Everything is environment-driven: server settings,
// database connections, the match-event stream, the matching policy, and the
// statement formats for ingestion.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration. Each field covers one
// subsystem and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Snapshot    SnapshotConfig
	WorkerPool  WorkerPoolConfig
	Matching    MatchingConfig
	Ingestion   IngestionConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// KafkaConfig contains the match-event stream configuration
type KafkaConfig struct {
	Brokers           string
	MatchEventsTopic  string
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

// PostgresConfig contains PostgreSQL configuration for the state snapshot store
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration for the matched-pair archive
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// SnapshotConfig controls periodic persistence of the engine state
type SnapshotConfig struct {
	Interval time.Duration
}

// WorkerPoolConfig contains the ingestion worker pool configuration
type WorkerPoolConfig struct {
	Size int
}

// MatchingConfig tunes the automatic matching pass. AmountTolerance is kept
// as a string so the configured precision survives into the decimal domain;
// "0" means exact equality.
type MatchingConfig struct {
	AmountTolerance string
	DateWindowDays  int
}

// ToleranceDecimal returns the parsed matching tolerance. Only meaningful
// after the configuration has been validated.
func (m MatchingConfig) ToleranceDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(m.AmountTolerance)
	return d
}

// CSVFormatConfig describes one side's statement file layout. Columns are
// zero-based; unused columns are -1.
type CSVFormatConfig struct {
	HasHeader           bool
	Delimiter           string
	DateColumn          int
	DescriptionColumn   int
	AmountColumn        int
	DebitColumn         int
	CreditColumn        int
	ExcludeDescriptions string // comma-separated
}

// IngestionConfig maps each origin to its statement format explicitly; the
// side a file feeds is never inferred from its content or name.
type IngestionConfig struct {
	Bank       CSVFormatConfig
	Accounting CSVFormatConfig
}

// validate performs comprehensive validation of all configuration values
func (c *Config) validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.MatchEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_MATCH_EVENTS_TOPIC is required")
	}
	if c.Kafka.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
	}

	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	if c.Snapshot.Interval <= 0 {
		validationErrors = append(validationErrors, "SNAPSHOT_INTERVAL must be greater than 0")
	}

	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if tolerance, err := decimal.NewFromString(c.Matching.AmountTolerance); err != nil {
		validationErrors = append(validationErrors, "MATCHING_AMOUNT_TOLERANCE must be a decimal number")
	} else if tolerance.IsNegative() {
		validationErrors = append(validationErrors, "MATCHING_AMOUNT_TOLERANCE must not be negative")
	}
	if c.Matching.DateWindowDays < 0 {
		validationErrors = append(validationErrors, "MATCHING_DATE_WINDOW_DAYS must not be negative")
	}

	for _, side := range []struct {
		name   string
		format CSVFormatConfig
	}{
		{"BANK", c.Ingestion.Bank},
		{"ACCOUNTING", c.Ingestion.Accounting},
	} {
		if side.format.DateColumn < 0 {
			validationErrors = append(validationErrors, "INGESTION_"+side.name+"_DATE_COLUMN must not be negative")
		}
		if side.format.AmountColumn < 0 && (side.format.DebitColumn < 0 || side.format.CreditColumn < 0) {
			validationErrors = append(validationErrors, "INGESTION_"+side.name+" needs an amount column or a debit/credit column pair")
		}
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
