package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/witmotion_logger/pkg/pathing"
	"github.com/NotCoffee418/witmotion_logger/pkg/witprotocol"
)

var ErrInvalidConfig = errors.New("invalid config")

var (
	ActiveImuReaderConfig       *ImuReaderConfig
	ActiveSampleCollectorConfig *SampleCollectorConfig
)

func DefaultImuReaderConfig() *ImuReaderConfig {
	return &ImuReaderConfig{
		SerialDevice:   "/dev/ttyUSB0",
		Baudrate:       115200,
		Protocol:       "normal",
		ModbusAddress:  witprotocol.DefaultModbusAddress,
		PollIntervalMs: 100,
		SaveData:       true,
		RecordingDir:   pathing.GetRecordingDir(),
		ListenAddress:  "0.0.0.0",
		ListenPort:     9040,
	}
}

func DefaultSampleCollectorConfig() *SampleCollectorConfig {
	return &SampleCollectorConfig{
		ReaderAPIHost: "localhost:9040",
		DatabasePath:  pathing.GetSampleDbPath(),
		ListenAddress: "0.0.0.0",
		ListenPort:    9041,
	}
}

func ImuReaderConfigPath() string {
	return filepath.Join(pathing.GetConfigDir(), "imu_reader.toml")
}

func SampleCollectorConfigPath() string {
	return filepath.Join(pathing.GetConfigDir(), "sample_collector.toml")
}

// LoadImuReaderConfig loads path into ActiveImuReaderConfig, writing the
// defaults there first if the file does not exist.
func LoadImuReaderConfig(path string) error {
	cfg := DefaultImuReaderConfig()
	if err := loadOrCreate(path, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ActiveImuReaderConfig = cfg
	return nil
}

func LoadSampleCollectorConfig(path string) error {
	cfg := DefaultSampleCollectorConfig()
	if err := loadOrCreate(path, cfg); err != nil {
		return err
	}
	if cfg.ReaderAPIHost == "" {
		return fmt.Errorf("%w: reader_api_host is empty", ErrInvalidConfig)
	}
	if cfg.ListenPort < 1 || cfg.ListenPort > 65535 {
		return fmt.Errorf("%w: listen_port %d out of range", ErrInvalidConfig, cfg.ListenPort)
	}
	ActiveSampleCollectorConfig = cfg
	return nil
}

func (c *ImuReaderConfig) Validate() error {
	if _, err := witprotocol.ParseProtocol(c.Protocol); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Baudrate == 0 {
		return fmt.Errorf("%w: baudrate must be positive", ErrInvalidConfig)
	}
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("%w: listen_port %d out of range", ErrInvalidConfig, c.ListenPort)
	}
	if c.PollIntervalMs < 0 {
		return fmt.Errorf("%w: poll_interval_ms is negative", ErrInvalidConfig)
	}
	return nil
}

// loadOrCreate decodes path over the defaults in cfg, or writes cfg to path when missing.
func loadOrCreate(path string, cfg any) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		cfgFile, err := os.Create(path)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		return toml.NewEncoder(cfgFile).Encode(cfg)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
