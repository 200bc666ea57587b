// Responsible for storing the samples broadcast by imu_reader.
// Depends on the imu_reader API being online.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/NotCoffee418/witmotion_logger/pkg/aggregator"
	"github.com/NotCoffee418/witmotion_logger/pkg/config"
	"github.com/NotCoffee418/witmotion_logger/pkg/livestream"
	"github.com/NotCoffee418/witmotion_logger/pkg/pathing"
	"github.com/NotCoffee418/witmotion_logger/pkg/sampledb"
	"github.com/NotCoffee418/witmotion_logger/pkg/types"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sample_collector",
	Short: "store IMU samples from imu_reader in SQLite",
	Long: `sample_collector subscribes to the imu_reader websocket and inserts
every sample it receives into a SQLite database. The connection is retried
with exponential backoff when it drops. Stored samples and their minute and
hour summaries are served over HTTP.`,
	Example: `  sample_collector --host raspberrypi.local:9040`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().String("config", "", "configuration file path")
	rootCmd.Flags().String("host", "", "imu_reader host:port, overrides reader_api_host")
	rootCmd.Flags().String("db", "", "database path, overrides database_path")
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
		cfgPath = config.SampleCollectorConfigPath()
	}
	if err := config.LoadSampleCollectorConfig(cfgPath); err != nil {
		return fmt.Errorf("failed to load sample collector config: %w", err)
	}
	cfg := config.ActiveSampleCollectorConfig

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.ReaderAPIHost = host
	}
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug || cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := pathing.EnsureDirs(); err != nil {
		return err
	}

	db, err := sampledb.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Keep the minute and hour summaries current
	aggregatorStop := make(chan struct{})
	aggregatorDone := make(chan struct{})
	go func() {
		defer close(aggregatorDone)
		aggregator.RunAggregator(db.DB(), time.Minute, aggregatorStop)
	}()
	defer func() {
		close(aggregatorStop)
		<-aggregatorDone
	}()

	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	srv := &http.Server{
		Addr:    listener,
		Handler: newMux(db, time.Now),
	}
	go func() {
		log.Printf("Starting WitMotion sample collector API on %s", listener)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP server failed: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("HTTP shutdown: %v", err)
		}
	}()

	stored := 0
	livestream.StartListener(ctx, cfg.ReaderAPIHost, func(sample *types.Sample) {
		if err := db.InsertSample(sample, time.Now()); err != nil {
			log.Warnf("Failed to store sample: %v", err)
			return
		}
		stored++
		log.Debugf("Stored sample %s", sample.Get(types.FieldSystemTime))
	})

	if err := aggregator.AggregateCompleted(db.DB(), time.Now()); err != nil {
		log.Warnf("Failed to aggregate samples: %v", err)
	}
	log.Infof("Stored %d samples in %s", stored, cfg.DatabasePath)
	return nil
}

const (
	defaultSampleLimit = 100
	maxSampleLimit     = 1000
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func newMux(db *sampledb.SampleDB, now func() time.Time) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		count, err := db.CountSamples()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "WitMotion Sample Collector API",
			"status":  "running",
			"samples": count,
		})
	})

	// Newest first, ?limit=N
	mux.HandleFunc("/samples", func(w http.ResponseWriter, r *http.Request) {
		limit := defaultSampleLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxSampleLimit)
		}

		samples, err := db.LatestSamples(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := make([]json.RawMessage, 0, len(samples))
		for _, sample := range samples {
			out = append(out, sample.ToJsonBytes())
		}
		writeJSON(w, http.StatusOK, out)
	})

	// ?timeframe=minute|hour&start=<unix>, defaults to the last completed timeframe
	mux.HandleFunc("/summary", func(w http.ResponseWriter, r *http.Request) {
		tf, err := aggregator.ParseTimeframe(r.URL.Query().Get("timeframe"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		start := tf.Start(now().Add(-tf.Duration()))
		if v := r.URL.Query().Get("start"); v != "" {
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "start must be a unix timestamp")
				return
			}
			start = tf.Start(time.Unix(parsed, 0))
		}

		summary, err := aggregator.GetSummary(db.DB(), tf, start)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if summary == nil {
			writeError(w, http.StatusNotFound, "No summary for this timeframe")
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	return mux
}
