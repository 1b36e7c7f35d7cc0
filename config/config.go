package config

import (
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/veridata-labs/marketplace-broker/common/config"
)

type Ledger struct {
	RpcEndpoint     string `yaml:"rpcEndpoint"`
	ContractAddress string `yaml:"contractAddress"`
	// PrivateKey is the hex-encoded signing key. Leave empty for a
	// read-only deployment; writes will be rejected before reaching the
	// ledger.
	PrivateKey    string `yaml:"privateKey"`
	Confirmations uint64 `yaml:"confirmations"`
	// ReceiptRounds * ReceiptIntervalSecs bounds the confirmation wait.
	ReceiptRounds       uint  `yaml:"receiptRounds"`
	ReceiptIntervalSecs int64 `yaml:"receiptIntervalSecs"`
}

type Event struct {
	ProviderAddr      string `yaml:"providerAddr"`
	MaxRetries        int    `yaml:"maxRetries"`
	RetryIntervalSecs int64  `yaml:"retryIntervalSecs"`
}

type Quality struct {
	ApprovalThreshold int   `yaml:"approvalThreshold"`
	WorkerCount       int   `yaml:"workerCount"`
	PollIntervalSecs  int64 `yaml:"pollIntervalSecs"`
}

type Storage struct {
	IpfsApiAddr string `yaml:"ipfsApiAddr"`
	IndexerUrl  string `yaml:"indexerUrl"`
	Minio       struct {
		Endpoint          string `yaml:"endpoint"`
		AccessKey         string `yaml:"accessKey"`
		SecretKey         string `yaml:"secretKey"`
		Bucket            string `yaml:"bucket"`
		UseSSL            bool   `yaml:"useSSL"`
		PresignExpirySecs int64  `yaml:"presignExpirySecs"`
	} `yaml:"minio"`
}

type Config struct {
	AllowOrigins []string `yaml:"allowOrigins"`
	Database     struct {
		Broker string `yaml:"broker"`
	} `yaml:"database"`
	Ledger      Ledger  `yaml:"ledger"`
	Event       Event   `yaml:"event"`
	Quality     Quality `yaml:"quality"`
	Storage     Storage `yaml:"storage"`
	GasPrice    string  `yaml:"gasPrice"`
	MaxGasPrice string  `yaml:"maxGasPrice"`
	Interval    struct {
		ReconcilerSecs int64 `yaml:"reconcilerSecs"`
	} `yaml:"interval"`
	Monitor struct {
		Enable       bool   `yaml:"enable"`
		EventAddress string `yaml:"eventAddress"`
	} `yaml:"monitor"`
	Logger config.LoggerConfig `yaml:"logger"`
}

var (
	instance *Config
	once     sync.Once
)

func loadConfig(config *Config) error {
	configPath := "/etc/config/config.yaml"
	if envPath := os.Getenv("CONFIG_FILE"); envPath != "" {
		configPath = envPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return yaml.UnmarshalStrict(data, config)
}

func GetConfig() *Config {
	once.Do(func() {
		instance = &Config{
			AllowOrigins: []string{"*"},
			Database: struct {
				Broker string `yaml:"broker"`
			}{
				Broker: "root:123456@tcp(mysql:3306)/broker?parseTime=true",
			},
			Ledger: Ledger{
				RpcEndpoint:         "http://hardhat:8545",
				ContractAddress:     "0x5FbDB2315678afecb367f032d93F642f64180aa3",
				Confirmations:       1,
				ReceiptRounds:       10,
				ReceiptIntervalSecs: 10,
			},
			Event: Event{
				ProviderAddr:      ":8088",
				MaxRetries:        5,
				RetryIntervalSecs: 3,
			},
			Quality: Quality{
				ApprovalThreshold: 70,
				WorkerCount:       2,
				PollIntervalSecs:  10,
			},
			GasPrice:    "",
			MaxGasPrice: "",
			Interval: struct {
				ReconcilerSecs int64 `yaml:"reconcilerSecs"`
			}{
				ReconcilerSecs: 60,
			},
			Monitor: struct {
				Enable       bool   `yaml:"enable"`
				EventAddress string `yaml:"eventAddress"`
			}{
				Enable:       false,
				EventAddress: "marketplace-broker-event:3081",
			},
			Logger: config.LoggerConfig{
				Format: "text",
				Level:  "info",
				Path:   "",
			},
		}
		instance.Storage.IpfsApiAddr = "localhost:5001"
		instance.Storage.IndexerUrl = "https://indexer-storage-testnet-turbo.0g.ai"
		instance.Storage.Minio.Endpoint = "minio:9000"
		instance.Storage.Minio.Bucket = "datasets"
		instance.Storage.Minio.PresignExpirySecs = 900

		if err := loadConfig(instance); err != nil {
			log.Fatalf("Error loading configuration: %v", err)
		}
	})

	return instance
}
