package port_reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/NotCoffee418/witmotion_logger/pkg/assembler"
	"github.com/NotCoffee418/witmotion_logger/pkg/interpreter"
	"github.com/NotCoffee418/witmotion_logger/pkg/recorder"
	"github.com/NotCoffee418/witmotion_logger/pkg/types"
	"github.com/NotCoffee418/witmotion_logger/pkg/witprotocol"
	"github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

var ErrAlreadyStarted = errors.New("reader already started")

const (
	readChunkSize       = 256
	updateBufferSize    = 1024
	DefaultPollInterval = 100 * time.Millisecond

	// Longest a port read blocks on a silent line, so stop requests are noticed.
	serialReadTimeout = 100 * time.Millisecond
)

// Register blocks polled in modbus mode: time..angles, then the quaternion.
var modbusPollBlocks = []struct{ reg, count uint16 }{
	{witprotocol.RegYYMM, witprotocol.RegYaw - witprotocol.RegYYMM + 1},
	{witprotocol.RegQ0, 4},
}

// Initialize a new WitReader. Nothing is opened until StartReading.
func NewWitReader(opts Options) *WitReader {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ModbusAddress == 0 {
		opts.ModbusAddress = witprotocol.DefaultModbusAddress
	}
	return &WitReader{
		opts:    opts,
		decoder: witprotocol.NewDecoder(opts.Protocol, opts.ModbusAddress),
		updates: make(chan types.FieldUpdate, updateBufferSize),
		stopped: make(chan struct{}),
	}
}

// StartReading opens the port and starts decoding in the background.
// handleSample runs on the drain goroutine for every completed sample and must
// not call StopReading. A slow handleSample never stalls the port: field
// updates that do not fit the buffer are dropped and counted.
// handleError is called at most once, for a terminal failure. An open failure
// is reported before StartReading returns it and leaves the reader Stopped.
// A read failure is reported after the reader has stopped and released the port.
func (p *WitReader) StartReading(
	handleSample func(sample *types.Sample),
	handleError func(error),
) error {
	p.stateMu.Lock()
	if p.state != StateIdle {
		p.stateMu.Unlock()
		return ErrAlreadyStarted
	}

	p.handleSample = handleSample
	p.handleError = handleError

	port, err := p.connect()
	if err != nil {
		log.Errorf("Could not open %s with baud %d: %v", p.opts.Port, p.opts.BaudRate, err)
		p.state = StateStopped
		close(p.stopped)
		p.stateMu.Unlock()
		p.reportError(err)
		return err
	}
	defer p.stateMu.Unlock()
	p.serialPort = port
	p.recorder = recorder.NewRecorder(p.opts.SaveData, p.opts.RecordingDir)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.state = StateReading

	p.wg.Add(2)
	go p.readLoop(ctx, port)
	go p.drainLoop(ctx)
	if p.opts.Protocol == witprotocol.ProtocolModbus {
		p.wg.Add(1)
		go p.pollLoop(ctx, port)
	}
	return nil
}

// StopReading closes the port and waits for the workers. Partial frames and an
// incomplete sample are discarded. Later calls wait until the first one has
// finished tearing down, then return.
func (p *WitReader) StopReading() {
	p.stateMu.Lock()
	switch p.state {
	case StateStopping, StateStopped:
		p.stateMu.Unlock()
		<-p.stopped
		return
	case StateIdle:
		p.state = StateStopped
		close(p.stopped)
		p.stateMu.Unlock()
		return
	}
	p.state = StateStopping
	p.stateMu.Unlock()

	p.cancel()
	p.disconnect()
	p.wg.Wait()

	if p.recorder.Enabled() {
		log.Infof("Recorded %d samples to %s", p.recorder.Rows(), p.recorder.Path())
	}
	if err := p.recorder.Close(); err != nil {
		log.Warnf("Failed to close recording %s: %v", p.recorder.Path(), err)
	}
	stats := p.decoder.Stats()
	log.Infof("Reader stopped: %d frames decoded, %d dropped, %d samples emitted",
		stats.FramesDecoded, stats.FramesDropped, p.samplesEmitted.Load())
	if dropped := p.updatesDropped.Load(); dropped > 0 {
		log.Warnf("Dropped %d field updates while the sample handler was behind", dropped)
	}
	log.Debugf("Fields overwritten before their sample completed: %d", p.overwrites.Load())

	p.stateMu.Lock()
	p.state = StateStopped
	close(p.stopped)
	p.stateMu.Unlock()
}

func (p *WitReader) State() State {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

func (p *WitReader) GetLatestSample() *types.Sample {
	p.readingMutex.RLock()
	defer p.readingMutex.RUnlock()
	return p.latestSample
}

func (p *WitReader) SamplesEmitted() uint64 {
	return p.samplesEmitted.Load()
}

// UpdatesDropped counts field updates discarded because the buffer was full.
func (p *WitReader) UpdatesDropped() uint64 {
	return p.updatesDropped.Load()
}

// RecordingPath is the CSV file being written, empty when not recording.
func (p *WitReader) RecordingPath() string {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.recorder == nil {
		return ""
	}
	return p.recorder.Path()
}

// Open the serial port.
func (p *WitReader) connect() (io.ReadWriteCloser, error) {
	if p.opts.Open != nil {
		return p.opts.Open()
	}

	// Reads return after serialReadTimeout without data, with io.EOF
	options := serial.OpenOptions{
		PortName:              p.opts.Port,
		BaudRate:              p.opts.BaudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       0,
		InterCharacterTimeout: uint(serialReadTimeout / time.Millisecond),
	}

	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	log.Printf("Connected to IMU on %s (%s protocol)", p.opts.Port, p.decoder.Protocol())
	return port, nil
}

func (p *WitReader) disconnect() {
	if p.serialPort != nil {
		p.serialPort.Close()
		log.Println("Disconnected from IMU port")
	}
}

// readLoop feeds every available byte to the decoder and forwards field updates.
func (p *WitReader) readLoop(ctx context.Context, port io.Reader) {
	defer p.wg.Done()

	buf := make([]byte, readChunkSize)
	for {
		n, err := port.Read(buf)
		if ctx.Err() != nil {
			return
		}

		for _, update := range p.decoder.Feed(buf[:n]) {
			fields := interpreter.Interpret(&update, p.opts.Now())
			if fields == nil {
				continue
			}
			select {
			case p.updates <- fields:
			default:
				p.updatesDropped.Add(1)
			}
		}

		if err != nil {
			if n == 0 && errors.Is(err, io.EOF) {
				// Read timeout on a silent line
				continue
			}
			log.Printf("Error reading IMU port: %v", err)
			go func() {
				p.StopReading()
				p.reportError(err)
			}()
			return
		}
	}
}

// drainLoop folds field updates into samples and emits every completed one.
func (p *WitReader) drainLoop(ctx context.Context) {
	defer p.wg.Done()

	var acc assembler.Accumulator
	defer func() {
		p.overwrites.Store(acc.Overwrites())
		if acc.Len() > 0 {
			log.Debugf("Discarding incomplete sample with %d of %d fields", acc.Len(), types.FieldCount)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case fields := <-p.updates:
			if ctx.Err() != nil {
				return
			}
			acc = acc.Merge(fields)

			var sample *types.Sample
			var complete bool
			if acc, sample, complete = acc.DrainIfComplete(); complete {
				p.emit(sample)
			}
		}
	}
}

func (p *WitReader) emit(sample *types.Sample) {
	p.readingMutex.Lock()
	p.latestSample = sample
	p.readingMutex.Unlock()

	if err := p.recorder.Write(sample); err != nil {
		log.Warnf("Failed to record sample: %v", err)
	}
	p.samplesEmitted.Add(1)

	if p.handleSample != nil {
		p.handleSample(sample)
	}
}

// pollLoop requests the sample registers in modbus mode. Requests are spread
// over the interval so each reply arrives before the next request is sent.
func (p *WitReader) pollLoop(ctx context.Context, port io.Writer) {
	defer p.wg.Done()

	gap := p.opts.PollInterval / time.Duration(len(modbusPollBlocks))
	ticker := time.NewTicker(gap)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(modbusPollBlocks) {
		block := modbusPollBlocks[i]
		if _, err := port.Write(p.decoder.ReadRequest(block.reg, block.count)); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnf("Failed to send register read request: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *WitReader) reportError(err error) {
	p.errorOnce.Do(func() {
		if p.handleError != nil {
			p.handleError(err)
		}
	})
}

// Close releases the port and the recording file. Equivalent to StopReading.
func (p *WitReader) Close() error {
	p.StopReading()
	return nil
}
