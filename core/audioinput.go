package voiceclient

import (
	"context"
	"sync/atomic"

	"github.com/lkrilov/voicelive/core/audio"
)

// frameBacklog is the capture channel capacity. One frame of backlog is the
// target; when the consumer falls behind, the oldest frame is dropped so
// latency never accumulates.
const frameBacklog = 1

// capturePipeline normalizes capture behavior over the injected input
// client. The capture context produces frames on its own thread; the
// pipeline relays them over a bounded channel so the rest of the client
// only ever sees message passing, never shared audio memory.
type capturePipeline struct {
	// client stores the configured input device, nil when unconfigured.
	client AudioInput

	// capturing reports whether the input client currently holds the device.
	capturing atomic.Bool

	frames chan []byte
}

func newCapturePipeline(client AudioInput) *capturePipeline {
	pipeline := &capturePipeline{frames: make(chan []byte, frameBacklog)}
	pipeline.Set(client)
	return pipeline
}

func (p *capturePipeline) Set(client AudioInput) {
	if p == nil {
		return
	}
	p.client = client
}

func (p *capturePipeline) IsConfigured() bool { return p != nil && p.client != nil }
func (p *capturePipeline) IsCapturing() bool  { return p != nil && p.capturing.Load() }

// Frames exposes the bounded capture stream. Each value is a self-contained
// buffer owned by the receiver.
func (p *capturePipeline) Frames() <-chan []byte { return p.frames }

// Start acquires the device and begins relaying frames. Acquisition failure
// is reported through onErr exactly once and is terminal for the session;
// there is no automatic retry.
func (p *capturePipeline) Start(ctx context.Context, onErr func(error)) {
	if !p.IsConfigured() {
		return
	}
	if !p.capturing.CompareAndSwap(false, true) {
		return
	}

	go func() {
		if err := p.client.StartCapture(ctx, p.push); err != nil {
			p.capturing.Store(false)
			if onErr != nil {
				onErr(err)
			}
		}
	}()
}

// push relays one frame, dropping the oldest queued frame when the consumer
// lags. Runs on the capture context.
func (p *capturePipeline) push(frame []byte) {
	if !p.capturing.Load() {
		return
	}

	select {
	case p.frames <- frame:
		return
	default:
	}

	select {
	case <-p.frames:
	default:
	}
	select {
	case p.frames <- frame:
	default:
	}
}

func (p *capturePipeline) Stop() error {
	if !p.IsConfigured() {
		return nil
	}
	if !p.capturing.CompareAndSwap(true, false) {
		return nil
	}

	return p.client.StopCapture()
}

// Close releases the capture device entirely. Input clients surface close
// in a few shapes; all of them are honored.
func (p *capturePipeline) Close() error {
	if !p.IsConfigured() {
		return nil
	}

	stopErr := p.Stop()

	switch c := p.client.(type) {
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return err
		}
	case interface{ Close() }:
		c.Close()
	}

	return stopErr
}

func (p *capturePipeline) EncodingInfo() audio.EncodingInfo {
	if !p.IsConfigured() {
		return audio.GetCaptureEncodingInfo()
	}

	return p.client.CaptureEncodingInfo()
}
