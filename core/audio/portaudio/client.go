// Package portaudio provides a capture-only input adapter for hosts where
// the miniaudio backend is unsuitable. Playback scheduling stays on the
// miniaudio client; this backend only feeds the capture pipeline.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/lkrilov/voicelive/core/audio"
)

type Client struct {
	bufferSize int
	stream     *portaudio.Stream

	in      []int16
	stopped atomic.Bool
}

func NewClient(bufferSize int) (*Client, error) {
	if bufferSize <= 0 {
		// 30 ms block at the capture rate.
		bufferSize = audio.CaptureSampleRate * 30 / 1000
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, audio.CaptureSampleRate, bufferSize, in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
	}, nil
}

// StartCapture reads fixed-size blocks off the input stream and hands each
// to onAudio until the context is cancelled or the client is closed. It
// blocks the calling goroutine.
func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if c.stopped.Load() {
				return nil
			}
			if err := c.stream.Read(); err != nil {
				return fmt.Errorf("failed to read from portaudio stream: %w", err)
			}

			frame := bytes.Buffer{}
			binary.Write(&frame, binary.LittleEndian, c.in)
			onAudio(frame.Bytes())
		}
	}
}

func (c *Client) StopCapture() error {
	c.stopped.Store(true)
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop portaudio stream: %w", err)
	}
	return nil
}

func (c *Client) Close() {
	c.stream.Close()
	portaudio.Terminate()
}

func (c *Client) CaptureEncodingInfo() audio.EncodingInfo {
	return audio.GetCaptureEncodingInfo()
}
