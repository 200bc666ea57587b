package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFileIsCreated(t *testing.T) {
	t.Setenv("WITMOTION_DATA_DIR", "/tmp/witmotion-test")
	path := filepath.Join(t.TempDir(), "conf", "imu_reader.toml")

	require.NoError(t, LoadImuReaderConfig(path))

	assert.Equal(t, "/dev/ttyUSB0", ActiveImuReaderConfig.SerialDevice)
	assert.Equal(t, uint(115200), ActiveImuReaderConfig.Baudrate)
	assert.Equal(t, "/tmp/witmotion-test/recordings", ActiveImuReaderConfig.RecordingDir)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `serial_device = "/dev/ttyUSB0"`)
	assert.Contains(t, string(data), `protocol = "normal"`)
}

func TestExistingFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imu_reader.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
serial_device = "/dev/ttyACM3"
baudrate = 9600
protocol = "modbus"
save_data = false
`), 0644))

	require.NoError(t, LoadImuReaderConfig(path))

	cfg := ActiveImuReaderConfig
	assert.Equal(t, "/dev/ttyACM3", cfg.SerialDevice)
	assert.Equal(t, uint(9600), cfg.Baudrate)
	assert.Equal(t, "modbus", cfg.Protocol)
	assert.False(t, cfg.SaveData)
	assert.Equal(t, 9040, cfg.ListenPort)
	assert.Equal(t, uint8(0x50), cfg.ModbusAddress)
}

func TestInvalidReaderConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imu_reader.toml")
	require.NoError(t, os.WriteFile(path, []byte(`protocol = "can"`), 0644))

	err := LoadImuReaderConfig(path)

	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cfg := DefaultImuReaderConfig()
	require.NoError(t, cfg.Validate())

	cfg.Baudrate = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultImuReaderConfig()
	cfg.ListenPort = 70000
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestSampleCollectorConfig(t *testing.T) {
	t.Setenv("WITMOTION_DATA_DIR", "/tmp/witmotion-test")
	path := filepath.Join(t.TempDir(), "sample_collector.toml")

	require.NoError(t, LoadSampleCollectorConfig(path))

	assert.Equal(t, "localhost:9040", ActiveSampleCollectorConfig.ReaderAPIHost)
	assert.Equal(t, "/tmp/witmotion-test/witmotion-samples.db", ActiveSampleCollectorConfig.DatabasePath)
	assert.Equal(t, 9041, ActiveSampleCollectorConfig.ListenPort)
}

func TestSampleCollectorPortValidated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample_collector.toml")
	require.NoError(t, os.WriteFile(path, []byte(`listen_port = 0`), 0644))

	assert.ErrorIs(t, LoadSampleCollectorConfig(path), ErrInvalidConfig)
}
