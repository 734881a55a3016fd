package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Worker   *workerConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"insight"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address        string `envconfig:"INSIGHT_API_ADDRESS" default:":3443"`
	MetricsAddress string `envconfig:"INSIGHT_API_METRICS_ADDRESS" default:":8080"`
	BaseUrl        string `envconfig:"INSIGHT_API_BASE_URL" default:"https://localhost:3443"`
	LogLevel       string `envconfig:"INSIGHT_API_LOG_LEVEL" default:"info"`
	Kafka          kafkaConfig
}

type workerConfig struct {
	// Binary is the analysis worker executable launched for every job.
	Binary string `envconfig:"INSIGHT_API_WORKER_BINARY" default:"insight-worker"`
	// WorkingDir is the worker's own root; the worker resolves its corpus
	// database and models relative to it.
	WorkingDir string `envconfig:"INSIGHT_API_WORKER_DIR" default:"."`
	// ScratchDir is where workers atomically write enrichment artifacts.
	// Interrupted writes leave *.tmp files behind that cancellation cleans up.
	ScratchDir string `envconfig:"INSIGHT_API_WORKER_SCRATCH_DIR" default:"/var/lib/insight/scratch"`
	// TerminationGracePeriod is the window between the graceful and the
	// forced termination signal on cancellation.
	TerminationGracePeriod time.Duration `envconfig:"INSIGHT_API_WORKER_GRACE_PERIOD" default:"2s"`
}

type kafkaConfig struct {
	Brokers  []string `envconfig:"INSIGHT_API_KAFKA_BROKERS" default:""`
	Topic    string   `envconfig:"INSIGHT_API_KAFKA_TOPIC" default:""`
	ClientID string   `envconfig:"INSIGHT_API_KAFKA_CLIENT_ID" default:""`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config suitable for tests: in-memory sqlite and a
// scratch dir under the system temp folder.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{Type: "sqlite", Name: ":memory:"},
		Service:  &svcConfig{Address: "localhost:0", LogLevel: "debug"},
		Worker: &workerConfig{
			Binary:                 "insight-worker",
			WorkingDir:             ".",
			ScratchDir:             "",
			TerminationGracePeriod: 2 * time.Second,
		},
	}
}
