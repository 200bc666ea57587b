package port_reader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NotCoffee418/witmotion_logger/pkg/recorder"
	"github.com/NotCoffee418/witmotion_logger/pkg/types"
	"github.com/NotCoffee418/witmotion_logger/pkg/witprotocol"
)

type State int32

const (
	StateIdle State = iota
	StateReading
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Options struct {
	Port     string
	BaudRate uint

	Protocol      witprotocol.Protocol
	ModbusAddress byte
	// Time between two full register polls in modbus mode.
	PollInterval time.Duration

	SaveData     bool
	RecordingDir string

	// Open replaces the serial port opener.
	Open func() (io.ReadWriteCloser, error)
	// Now stamps system_time. Defaults to time.Now.
	Now func() time.Time
}

type WitReader struct {
	opts       Options
	serialPort io.ReadWriteCloser
	decoder    *witprotocol.Decoder
	recorder   *recorder.Recorder

	// Field updates from the read loop to the drain loop.
	updates chan types.FieldUpdate

	stateMu sync.Mutex
	state   State
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	// closed once the reader reaches StateStopped
	stopped chan struct{}

	latestSample *types.Sample
	readingMutex sync.RWMutex

	handleSample func(sample *types.Sample)
	handleError  func(error)
	errorOnce    sync.Once

	samplesEmitted atomic.Uint64
	updatesDropped atomic.Uint64
	overwrites     atomic.Uint64
}
