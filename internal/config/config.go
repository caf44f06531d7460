package config

import (
	"fmt"
	"os"
	"time"

	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Debug   DebugConfig   `yaml:"debug"`
	Storage StorageConfig `yaml:"storage"`
	Bitcoin BitcoinConfig `yaml:"bitcoin"`
	Indexer IndexerConfig `yaml:"indexer"`
	Network string        `yaml:"network" envconfig:"NETWORK"`
}

type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LOGGING_LEVEL"`
}

type DebugConfig struct {
	ListenAddress string `yaml:"address" envconfig:"DEBUG_ADDRESS"`
	ListenPort    uint   `yaml:"port" envconfig:"DEBUG_PORT"`
}

type StorageConfig struct {
	Directory string `yaml:"dir" envconfig:"STORAGE_DIR"`
}

type BitcoinConfig struct {
	RpcUrl     string        `yaml:"rpcUrl"     envconfig:"BITCOIN_RPC_URL"`
	RpcUser    string        `yaml:"rpcUser"    envconfig:"BITCOIN_RPC_USER"`
	RpcPass    string        `yaml:"rpcPass"    envconfig:"BITCOIN_RPC_PASS"`
	RpcTimeout time.Duration `yaml:"rpcTimeout" envconfig:"BITCOIN_RPC_TIMEOUT"`
}

type IndexerConfig struct {
	StartHeight  int64         `yaml:"startHeight"  envconfig:"INDEXER_START_HEIGHT"`
	PollInterval time.Duration `yaml:"pollInterval" envconfig:"INDEXER_POLL_INTERVAL"`
}

// Singleton config instance with default values
var globalConfig = &Config{
	Network: "mainnet",
	Logging: LoggingConfig{
		Level: "info",
	},
	Debug: DebugConfig{
		ListenAddress: "localhost",
		ListenPort:    0,
	},
	Storage: StorageConfig{
		Directory: "./.simplicity",
	},
	Bitcoin: BitcoinConfig{
		RpcUrl:     "http://localhost:8332",
		RpcTimeout: 30 * time.Second,
	},
	Indexer: IndexerConfig{
		StartHeight:  0,
		PollInterval: 10 * time.Second,
	},
}

func Load(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %s", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %s", err)
		}
	}
	// Load config values from environment variables
	// We use "dummy" as the app name here to (mostly) prevent picking up env
	// vars that we hadn't explicitly specified in annotations above
	err := envconfig.Process("dummy", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %s", err)
	}
	// Validate network name against known chain params
	if _, err := bitcoin.NetworkParams(globalConfig.Network); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

// GetConfig returns the global config instance
func GetConfig() *Config {
	return globalConfig
}
