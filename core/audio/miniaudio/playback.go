package miniaudio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/lkrilov/voicelive/core/audio"
)

// playbackClient renders a scheduled timeline of PCM16 audio. The device
// clock is the number of frames handed to the hardware; scheduled chunks
// are placed at absolute positions on that clock and unscheduled regions
// render silence. This is the hardware half of the gap-free scheduling
// contract: the caller computes start positions, the timeline honors them.
type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	// timeline holds scheduled audio starting at the frame position
	// renderedFrames. Unwritten bytes play as silence.
	timeline       []byte
	renderedFrames int64

	mu         sync.Mutex
	timelineMu sync.Mutex
}

const playbackBytesPerFrame = 2 // mono PCM16

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(audio.PlaybackSampleRate)
	channels := 1
	format := malgo.FormatS16

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 50 // ~20ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.render},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	c.ClearSchedule()
	return nil
}

// Now reports the output clock: how much audio the device has rendered
// since start.
func (c *playbackClient) Now() time.Duration {
	c.timelineMu.Lock()
	defer c.timelineMu.Unlock()
	return time.Duration(c.renderedFrames) * time.Second / audio.PlaybackSampleRate
}

// ScheduleAt places a PCM16 chunk at an absolute position on the output
// clock. A start that already passed is clipped so the remainder still
// plays in time rather than late.
func (c *playbackClient) ScheduleAt(start time.Duration, pcm []byte) {
	c.timelineMu.Lock()
	defer c.timelineMu.Unlock()

	startFrame := int64(start * audio.PlaybackSampleRate / time.Second)
	offset := (startFrame - c.renderedFrames) * playbackBytesPerFrame
	if offset < 0 {
		trim := -offset
		if trim >= int64(len(pcm)) {
			return
		}
		pcm = pcm[trim:]
		offset = 0
	}

	end := int(offset) + len(pcm)
	if len(c.timeline) < end {
		c.timeline = append(c.timeline, make([]byte, end-len(c.timeline))...)
	}
	copy(c.timeline[offset:], pcm)
}

// ClearSchedule drops everything not yet handed to the hardware.
func (c *playbackClient) ClearSchedule() {
	c.timelineMu.Lock()
	defer c.timelineMu.Unlock()
	c.timeline = nil
}

func (c *playbackClient) render(pOutput, _ []byte, frameCount uint32) {
	c.timelineMu.Lock()
	defer c.timelineMu.Unlock()

	need := int(frameCount) * playbackBytesPerFrame
	copied := copy(pOutput, c.timeline)
	for i := copied; i < need && i < len(pOutput); i++ {
		pOutput[i] = 0
	}

	if copied >= len(c.timeline) {
		c.timeline = nil
	} else {
		c.timeline = c.timeline[copied:]
	}
	c.renderedFrames += int64(frameCount)
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	c.device.Uninit()
	c.device = nil

	return nil
}
