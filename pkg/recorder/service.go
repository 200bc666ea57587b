// Package recorder appends completed samples to a CSV file.
package recorder

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/NotCoffee418/witmotion_logger/pkg/types"
	log "github.com/sirupsen/logrus"
)

const (
	FilePrefix = "WitMotion_"
	maxSuffix   = 100000
)

// Recorder writes one row per sample and flushes after every row.
// A Recorder that could not open its file stays disabled for its lifetime.
type Recorder struct {
	mu      sync.Mutex
	enabled bool
	path    string
	file    *os.File
	buf     *bufio.Writer
	csv     *csv.Writer
	rows    uint64
}

// NewRecorder picks the first free WitMotion_<n>.csv in dir and writes the header.
// Failure to open the file is logged and leaves the recorder disabled.
func NewRecorder(enabled bool, dir string) *Recorder {
	r := &Recorder{}
	if !enabled {
		return r
	}

	f, path, err := createRecording(dir)
	if err != nil {
		log.Warnf("Failed to open file for saving data, recording disabled: %v", err)
		return r
	}

	r.file = f
	r.path = path
	r.buf = bufio.NewWriter(f)
	r.csv = csv.NewWriter(r.buf)
	if err := r.writeRow(types.FieldOrder[:]); err != nil {
		log.Warnf("Failed to write header to %s, recording disabled: %v", path, err)
		_ = f.Close()
		if err := os.Remove(path); err != nil {
			log.Warnf("Failed to remove %s: %v", path, err)
		}
		r.file = nil
		r.path = ""
		return r
	}

	r.enabled = true
	log.Infof("Recording samples to %s", path)
	return r
}

// Replaced in tests.
var createRecording = createUnique

func createUnique(dir string) (*os.File, string, error) {
	for n := 0; n < maxSuffix; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%s%d.csv", FilePrefix, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return f, path, nil
	}
	return nil, "", fmt.Errorf("no free recording file name in %s", dir)
}

func (r *Recorder) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Path of the recording file, empty when disabled.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

func (r *Recorder) Rows() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

// Write appends a sample. It does nothing when the recorder is disabled or closed.
func (r *Recorder) Write(sample *types.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return nil
	}
	if err := r.writeRow(sample.Values()); err != nil {
		return fmt.Errorf("write sample to %s: %w", r.path, err)
	}
	r.rows++
	return nil
}

func (r *Recorder) writeRow(row []string) error {
	if err := r.csv.Write(row); err != nil {
		return err
	}
	r.csv.Flush()
	if err := r.csv.Error(); err != nil {
		return err
	}
	return r.buf.Flush()
}

// Close flushes and releases the file. Safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = false
	if r.file == nil {
		return nil
	}
	err := r.buf.Flush()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file = nil
	return err
}
