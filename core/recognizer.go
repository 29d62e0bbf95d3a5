package voiceclient

import (
	"context"
	"fmt"
	"time"

	"github.com/lkrilov/voicelive/core/audio"
	"github.com/lkrilov/voicelive/core/recognition"
)

const recognizerRestartDelay = time.Second

type recognizerCallbacks struct {
	onInterim       func(transcript string)
	onFinal         func(transcript string)
	onSpeechStarted func()
	onSpeechEnded   func()
}

// localRecognizer is the facade over the optional low-latency speech
// recognizer. It is best-effort and fully independent of the transport:
// absence of a configured client just means the user transcript has no
// local source. If the underlying recognizer stops unexpectedly while the
// session is still alive, it is restarted automatically.
type localRecognizer struct {
	// client stores the configured recognizer implementation.
	client Recognizer
}

func newLocalRecognizer(client Recognizer) *localRecognizer {
	return &localRecognizer{client: client}
}

func (r *localRecognizer) set(client Recognizer) {
	if r != nil {
		r.client = client
	}
}

func (r *localRecognizer) isConfigured() bool {
	return r != nil && r.client != nil
}

func (r *localRecognizer) Start(ctx context.Context, callbacks recognizerCallbacks, encodingInfo audio.EncodingInfo) error {
	if !r.isConfigured() {
		return nil
	}

	opts := []recognition.Option{
		recognition.WithInterimCallback(callbacks.onInterim),
		recognition.WithFinalCallback(callbacks.onFinal),
		recognition.WithSpeechStartedCallback(callbacks.onSpeechStarted),
		recognition.WithSpeechEndedCallback(callbacks.onSpeechEnded),
		recognition.WithStoppedCallback(func(err error) {
			r.handleStopped(ctx, callbacks, encodingInfo, err)
		}),
		recognition.WithEncodingInfo(encodingInfo),
	}

	if err := r.client.Transcribe(ctx, opts...); err != nil {
		return fmt.Errorf("failed to start local recognizer: %w", err)
	}

	return nil
}

func (r *localRecognizer) handleStopped(ctx context.Context, callbacks recognizerCallbacks, encodingInfo audio.EncodingInfo, stopErr error) {
	if ctx.Err() != nil {
		// Session is gone; a stop here is expected teardown.
		return
	}
	if stopErr != nil {
		logger.Warn("Local recognizer stopped unexpectedly, restarting", "error", stopErr)
	} else {
		logger.Info("Local recognizer stream ended, restarting")
	}

	time.AfterFunc(recognizerRestartDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := r.Start(ctx, callbacks, encodingInfo); err != nil {
			logger.Warn("Failed to restart local recognizer", "error", err)
			r.handleStopped(ctx, callbacks, encodingInfo, err)
		}
	})
}

func (r *localRecognizer) SendAudio(audio []byte) error {
	if !r.isConfigured() {
		return nil
	}

	return r.client.SendAudio(audio)
}

// Close releases the recognizer. Implementations surface close in a few
// shapes; all of them are honored.
func (r *localRecognizer) Close(ctx context.Context) error {
	if !r.isConfigured() {
		return nil
	}

	switch c := r.client.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close recognizer client: %w", err)
		}
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close recognizer client: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}
