// IMU reader is responsible for reading the WitMotion sensor and broadcasting the samples.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotCoffee418/witmotion_logger/pkg/config"
	"github.com/NotCoffee418/witmotion_logger/pkg/livestream"
	"github.com/NotCoffee418/witmotion_logger/pkg/pathing"
	"github.com/NotCoffee418/witmotion_logger/pkg/port_reader"
	"github.com/NotCoffee418/witmotion_logger/pkg/types"
	"github.com/NotCoffee418/witmotion_logger/pkg/witprotocol"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "imu_reader",
	Short: "read a WitMotion IMU and serve its samples",
	Long: `imu_reader reads a WitMotion IMU over a serial port, records every
completed sample to CSV and serves the samples over HTTP and websocket.
Settings are loaded from --config, or the default config file which is
created with defaults when missing. Flags override the file.`,
	Example: `  imu_reader --port /dev/ttyUSB0 --baud 9600
  imu_reader --config ./imu_reader.toml --debug`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().String("config", "", "configuration file path")
	rootCmd.Flags().StringP("port", "p", "", "serial device, overrides serial_device")
	rootCmd.Flags().UintP("baud", "b", 0, "baud rate, overrides baudrate")
	rootCmd.Flags().Bool("debug", false, "toggle debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = config.ImuReaderConfigPath()
	}
	if err := config.LoadImuReaderConfig(cfgPath); err != nil {
		return fmt.Errorf("failed to load imu reader config: %w", err)
	}
	cfg := config.ActiveImuReaderConfig

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.SerialDevice = port
	}
	if baud, _ := cmd.Flags().GetUint("baud"); baud != 0 {
		cfg.Baudrate = baud
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug || cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := pathing.EnsureDirs(); err != nil {
		return err
	}

	protocol, err := witprotocol.ParseProtocol(cfg.Protocol)
	if err != nil {
		return err
	}

	reader := port_reader.NewWitReader(port_reader.Options{
		Port:          cfg.SerialDevice,
		BaudRate:      cfg.Baudrate,
		Protocol:      protocol,
		ModbusAddress: cfg.ModbusAddress,
		PollInterval:  time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		SaveData:      cfg.SaveData,
		RecordingDir:  cfg.RecordingDir,
	})
	defer reader.Close()

	hub := livestream.NewHub(reader.GetLatestSample)
	defer hub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readErr := make(chan error, 1)
	err = reader.StartReading(
		hub.Broadcast,
		func(err error) {
			readErr <- err
		},
	)
	if err != nil {
		return fmt.Errorf("error reading IMU port: %w", err)
	}

	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	srv := &http.Server{
		Addr:    listener,
		Handler: newMux(reader, hub),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Starting WitMotion IMU reader API on %s", listener)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutdown requested")
	case err = <-readErr:
		log.Errorf("Error reading IMU port: %v", err)
	case err = <-serveErr:
		log.Errorf("HTTP server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.Close()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warnf("HTTP shutdown: %v", shutdownErr)
	}
	reader.StopReading()
	log.Infof("Emitted %d samples", reader.SamplesEmitted())
	return err
}

type sampleSource interface {
	GetLatestSample() *types.Sample
	State() port_reader.State
	SamplesEmitted() uint64
	UpdatesDropped() uint64
	RecordingPath() string
}

func newMux(reader sampleSource, hub *livestream.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"message":         "WitMotion IMU Reader API",
			"status":          reader.State().String(),
			"samples_emitted": reader.SamplesEmitted(),
			"updates_dropped": reader.UpdatesDropped(),
			"clients":         hub.ClientCount(),
			"recording":       reader.RecordingPath(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})

	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		sample := reader.GetLatestSample()
		w.Header().Set("Content-Type", "application/json")
		if sample == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "No samples available yet",
			})
			return
		}
		w.Write(sample.ToJsonBytes())
	})

	mux.Handle("/ws", hub)
	return mux
}
