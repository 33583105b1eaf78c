package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds process-level settings.
type AppConfig struct {
	Env  string
	Port string
}

// ClusterConfig holds the settings for this node's place in the cluster:
// its own identity plus how it reaches peers.
type ClusterConfig struct {
	NodeID         uint32
	Hostname       string
	Port           uint16
	NodeTimeoutMs  int
	HeartbeatMs    int
}

// QueueConfig holds the bounded message queue's tunables.
type QueueConfig struct {
	Capacity       int
	MaxMessageSize int
}

// Config is the fully resolved process configuration.
type Config struct {
	App     AppConfig
	Cluster ClusterConfig
	Queue   QueueConfig
}

// Load resolves configuration from (in ascending precedence) built-in
// defaults, any atomspace.yaml found on the search path, and environment
// variables prefixed ATOMSPACE_. A .env file, if present, is loaded into
// the environment first; its entries do not override variables that are
// already set.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	v := viper.New()
	v.SetEnvPrefix("ATOMSPACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("atomspace")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/atomspace")

	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("cluster.node_id", 1)
	v.SetDefault("cluster.hostname", "localhost")
	v.SetDefault("cluster.port", 7070)
	v.SetDefault("cluster.node_timeout_ms", 5000)
	v.SetDefault("cluster.heartbeat_ms", 1000)

	v.SetDefault("queue.capacity", 100)
	v.SetDefault("queue.max_message_size", 65536)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	return &Config{
		App: AppConfig{
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Cluster: ClusterConfig{
			NodeID:        uint32(v.GetUint32("cluster.node_id")),
			Hostname:      v.GetString("cluster.hostname"),
			Port:          uint16(v.GetUint32("cluster.port")),
			NodeTimeoutMs: v.GetInt("cluster.node_timeout_ms"),
			HeartbeatMs:   v.GetInt("cluster.heartbeat_ms"),
		},
		Queue: QueueConfig{
			Capacity:       v.GetInt("queue.capacity"),
			MaxMessageSize: v.GetInt("queue.max_message_size"),
		},
	}, nil
}
