package config

type SampleCollectorConfig struct {
	ReaderAPIHost string `toml:"reader_api_host"`
	DatabasePath  string `toml:"database_path"`

	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
	Debug         bool   `toml:"debug"`
}

type ImuReaderConfig struct {
	SerialDevice string `toml:"serial_device"`
	Baudrate     uint   `toml:"baudrate"`
	// "normal" streams frames unprompted, "modbus" polls the registers
	Protocol       string `toml:"protocol"`
	ModbusAddress  uint8  `toml:"modbus_address"`
	PollIntervalMs int    `toml:"poll_interval_ms"`

	SaveData     bool   `toml:"save_data"`
	RecordingDir string `toml:"recording_dir"`

	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
	Debug         bool   `toml:"debug"`
}
