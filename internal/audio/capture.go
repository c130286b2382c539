package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
)

// DeviceError reports that an input stream could not be opened
type DeviceError struct {
	DeviceID int
	Reason   string
	Err      error
}

func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio device %d: %s: %v", e.DeviceID, e.Reason, e.Err)
	}
	return fmt.Sprintf("audio device %d: %s", e.DeviceID, e.Reason)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// StreamStatusWarning reports dropped or late input reported by the driver.
// It is logged and never surfaced to the user.
type StreamStatusWarning struct {
	Flags string
	At    time.Time
}

func (w StreamStatusWarning) Error() string {
	return fmt.Sprintf("stream status warning at %s: %s", w.At.Format(time.RFC3339Nano), w.Flags)
}

// Device describes an input-capable audio device
type Device struct {
	Index             int     `json:"index"`
	Name              string  `json:"name"`
	MaxInputChannels  int     `json:"max_input_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate"`
}

// Label formats the device for pickers as "index: name"
func (d Device) Label() string {
	return fmt.Sprintf("%d: %s", d.Index, d.Name)
}

// CaptureConfig contains input stream parameters
type CaptureConfig struct {
	SampleRate      int
	FramesPerBuffer int
}

// Capture opens microphone input streams through PortAudio
type Capture struct {
	config CaptureConfig
	logger *slog.Logger
}

// Stream is an open input stream feeding a FrameQueue
type Stream struct {
	pa     *portaudio.Stream
	device Device
	queue  *FrameQueue

	frames   atomic.Uint64
	overflow atomic.Uint64

	closeOnce sync.Once
}

// Initialize prepares the PortAudio library. Call Terminate when done.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return nil
}

// Terminate releases the PortAudio library
func Terminate() error {
	return portaudio.Terminate()
}

// ListDevices returns all devices that have at least one input channel
func ListDevices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, Device{
			Index:             i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		})
	}

	return devices, nil
}

// NewCapture creates a capture helper
func NewCapture(config CaptureConfig, logger *slog.Logger) *Capture {
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}

	if config.FramesPerBuffer <= 0 {
		config.FramesPerBuffer = 1024
	}

	return &Capture{
		config: config,
		logger: logger,
	}
}

// Start opens a mono input stream on deviceID (-1 for the system default)
// and pushes every callback buffer into queue
func (c *Capture) Start(deviceID int, queue *FrameQueue) (*Stream, error) {
	info, err := c.resolveDevice(deviceID)
	if err != nil {
		return nil, err
	}

	stream := &Stream{queue: queue}
	stream.device = Device{
		Index:             deviceID,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: 1,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(c.config.SampleRate),
		FramesPerBuffer: c.config.FramesPerBuffer,
	}

	pa, err := portaudio.OpenStream(params, stream.callback)
	if err != nil {
		return nil, &DeviceError{DeviceID: deviceID, Reason: "open stream", Err: err}
	}

	if err := pa.Start(); err != nil {
		pa.Close()
		return nil, &DeviceError{DeviceID: deviceID, Reason: "start stream", Err: err}
	}
	stream.pa = pa

	c.logger.Info("Audio capture started",
		slog.Int("device_id", deviceID),
		slog.String("device_name", info.Name),
		slog.Int("sample_rate", c.config.SampleRate),
		slog.Int("frames_per_buffer", c.config.FramesPerBuffer),
	)

	return stream, nil
}

// Stop stops and closes the stream. It is safe to call more than once.
func (c *Capture) Stop(stream *Stream) error {
	if stream == nil {
		return nil
	}

	var err error
	stream.closeOnce.Do(func() {
		if stopErr := stream.pa.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop stream: %w", stopErr)
		}
		if closeErr := stream.pa.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close stream: %w", closeErr))
		}

		c.logger.Info("Audio capture stopped",
			slog.Int("device_id", stream.device.Index),
			slog.Uint64("frames", stream.frames.Load()),
			slog.Uint64("overflow_frames", stream.overflow.Load()),
		)
	})

	return err
}

// resolveDevice maps a device index to PortAudio device info
func (c *Capture) resolveDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID < 0 {
		info, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, &DeviceError{DeviceID: deviceID, Reason: "no default input device", Err: err}
		}
		return info, nil
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, &DeviceError{DeviceID: deviceID, Reason: "enumerate devices", Err: err}
	}

	if deviceID >= len(infos) {
		return nil, &DeviceError{DeviceID: deviceID, Reason: fmt.Sprintf("index out of range (have %d devices)", len(infos))}
	}

	info := infos[deviceID]
	if info.MaxInputChannels <= 0 {
		return nil, &DeviceError{DeviceID: deviceID, Reason: fmt.Sprintf("%q has no input channels", info.Name)}
	}

	return info, nil
}

// callback runs on the PortAudio thread. It only copies and enqueues.
func (s *Stream) callback(in []int16, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	samples := make([]int16, len(in))
	copy(samples, in)

	overflow := flags&portaudio.InputOverflow != 0
	if overflow {
		s.overflow.Add(1)
	}
	s.frames.Add(1)

	s.queue.Push(Frame{
		Samples:    samples,
		CapturedAt: time.Now(),
		Overflow:   overflow,
	})
}

// Device returns the device the stream was opened on
func (s *Stream) Device() Device {
	return s.device
}

// FramesCaptured returns the number of callback buffers delivered
func (s *Stream) FramesCaptured() uint64 {
	return s.frames.Load()
}
