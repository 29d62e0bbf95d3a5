// Package voiceclient implements a duplex realtime voice-assistant client:
// microphone frames stream out over a persistent socket while synthesized
// speech, tool calls, and transcript turns stream back in. One Client is
// one logical session owner; construct it explicitly and hand it to
// whatever surface needs it rather than reaching for process-wide state.
package voiceclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lkrilov/voicelive/core/audio"
	"github.com/lkrilov/voicelive/core/genlive"
	"go.opentelemetry.io/otel/codes"
)

// Client owns the session state machine. All mutable state is guarded by
// mu; broadcasts always happen against value snapshots taken outside it.
type Client struct {
	mu       sync.Mutex
	state    ConnectionState
	activity ActivityState

	transcript  *transcriptLog
	broadcaster *broadcaster
	capture     *capturePipeline
	recognizer  *localRecognizer
	output      AudioOutput
	navigator   func(page string)

	session      genlive.SessionConfig
	newTransport TransportFactory

	// Per-session fields, reset on every connect/disconnect cycle. Only
	// the transcript survives a disconnect.
	transport     Transport
	scheduler     *playbackScheduler
	sessionCancel context.CancelFunc
}

func New(opts ...ClientOption) *Client {
	c := &Client{
		state:       StateDisconnected,
		transcript:  newTranscriptLog(),
		broadcaster: newBroadcaster(),
	}
	c.capture = newCapturePipeline(nil)
	c.recognizer = newLocalRecognizer(nil)
	c.newTransport = func(config genlive.SessionConfig) Transport {
		return genlive.NewClient(config)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Connect opens the session: dials the transport, starts forwarding
// captured audio, and starts the local recognizer best-effort. It returns
// once the transport is connected or failed. Calling Connect while a
// session is already connecting or connected is a no-op; there is never a
// second competing session. A hung dial is cancellable via Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "connect voice session")
	defer span.End()

	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	c.sessionCancel = cancel
	c.state = StateConnecting

	config := c.session
	config.Tools = ensureNavigateTool(config.Tools)
	transport := c.newTransport(config)
	c.transport = transport
	// The read loop starts inside transport.Connect, so the scheduler must
	// exist before the first serverContent can arrive.
	c.scheduler = newPlaybackScheduler(c.output, c.handleSpeakingChanged)
	c.mu.Unlock()

	err := transport.Connect(sessionCtx,
		genlive.WithErrorCallback(c.handleServerError),
		genlive.WithToolCallCallback(c.handleToolCalls),
		genlive.WithAudioChunkCallback(c.handleAudioChunk),
		genlive.WithTurnCompleteCallback(c.handleTurnComplete),
		genlive.WithClosedCallback(c.handleTransportClosed),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if sessionCtx.Err() != nil || errors.Is(err, context.Canceled) {
			// Cancelled mid-dial by Disconnect or the caller; not an error
			// worth broadcasting.
			c.Disconnect()
			return err
		}

		c.mu.Lock()
		c.state = StateErroring
		c.mu.Unlock()
		c.broadcaster.PublishError(fmt.Errorf("failed to connect session: %w", err))
		c.Disconnect()
		return err
	}

	c.mu.Lock()
	if c.transport != transport {
		// Disconnect won the race; make sure the fresh socket is released.
		c.mu.Unlock()
		if closeErr := transport.Close(); closeErr != nil {
			logger.Warn("Failed to close raced transport", "error", closeErr)
		}
		return fmt.Errorf("session closed during connect")
	}
	c.state = StateConnected
	c.activity.IsConnected = true
	c.activity.IsListening = c.capture.IsConfigured()
	c.mu.Unlock()

	go c.forwardFrames(sessionCtx, transport)
	c.capture.Start(sessionCtx, c.handleCaptureError)

	if err := c.recognizer.Start(sessionCtx, recognizerCallbacks{
		onInterim:       c.handleUserInterim,
		onFinal:         c.handleUserFinal,
		onSpeechStarted: c.handleUserSpeechStarted,
		onSpeechEnded:   func() {},
	}, c.capture.EncodingInfo()); err != nil {
		// Best-effort source; the session stays up without it.
		logger.Warn("Local recognizer unavailable", "error", err)
	}

	c.publishActivity()
	return nil
}

// Disconnect tears the session down deterministically: closes the socket
// with a normal closure, releases capture and recognition, and stops
// scheduling new playback (audio already handed to the hardware is not
// retroactively silenced). It is safe to call from any state, any number
// of times, and always leaves isConnected=false and volume=0. The
// transcript is retained until ClearTranscript.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.sessionCancel
	transport := c.transport
	scheduler := c.scheduler
	c.sessionCancel = nil
	c.transport = nil
	c.scheduler = nil
	c.state = StateDisconnected
	c.activity = ActivityState{}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	if transport != nil {
		if err := transport.Close(); err != nil {
			logger.Warn("Failed to close transport", "error", err)
		}
	}
	if err := c.capture.Stop(); err != nil {
		logger.Warn("Failed to release capture device", "error", err)
	}
	if err := c.recognizer.Close(context.Background()); err != nil {
		logger.Warn("Failed to close local recognizer", "error", err)
	}

	c.publishActivity()
}

// Close releases the injected devices entirely. Call it when the client
// will not be reused; Disconnect alone keeps devices initialized for a
// later reconnect.
func (c *Client) Close() error {
	c.Disconnect()
	return c.capture.Close()
}

// Subscribe registers observer callbacks and immediately replays the
// current snapshot of activity state, transcript, and last error. The
// returned func unsubscribes.
func (c *Client) Subscribe(onState StateCallback, onTranscript TranscriptCallback, onError ErrorCallback) func() {
	return c.broadcaster.Subscribe(onState, onTranscript, onError)
}

// State reports the transport lifecycle state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Activity reports the current telemetry snapshot by value.
func (c *Client) Activity() ActivityState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activity
}

// Transcript returns a deep copy of the transcript.
func (c *Client) Transcript() []TranscriptEntry {
	return c.transcript.Snapshot()
}

// ClearTranscript drops the retained transcript.
func (c *Client) ClearTranscript() {
	c.transcript.Clear()
	c.publishTranscript()
}

// forwardFrames relays captured frames to the transport and the local
// recognizer in capture order, updating the advisory volume level per
// frame. It exits when the session context ends.
func (c *Client) forwardFrames(ctx context.Context, transport Transport) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-c.capture.Frames():
			c.updateVolume(audio.Level(frame))

			if err := transport.SendAudio(frame); err != nil {
				logger.Warn("Failed to forward audio frame", "error", err)
			}
			if err := c.recognizer.SendAudio(frame); err != nil {
				logger.Warn("Failed to feed local recognizer", "error", err)
			}
		}
	}
}

func (c *Client) updateVolume(level float64) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.activity.Volume = level
	snapshot := c.activity
	c.mu.Unlock()

	c.broadcaster.PublishState(snapshot)
}

func (c *Client) handleAudioChunk(pcm []byte) {
	c.mu.Lock()
	scheduler := c.scheduler
	c.mu.Unlock()
	if scheduler == nil {
		return
	}

	scheduler.Enqueue(pcm)
	if c.transcript.OpenTurn(RoleModel) {
		c.publishTranscript()
	}
}

func (c *Client) handleTurnComplete() {
	if c.transcript.Finalize(RoleModel, nil) {
		c.publishTranscript()
	}
}

// handleServerError surfaces a protocol-level error verbatim. It does not
// tear the session down; the service keeps the socket open.
func (c *Client) handleServerError(message string) {
	c.broadcaster.PublishError(fmt.Errorf("live service error: %s", message))
}

// handleTransportClosed runs when the read loop exits. A nil err is a
// normal closure; anything else is an abnormal closure that surfaces as a
// transport error. Either way the session is fully torn down; reconnection
// is the caller's call, via a fresh Connect.
func (c *Client) handleTransportClosed(err error) {
	c.mu.Lock()
	alreadyDown := c.transport == nil
	if err != nil && !alreadyDown {
		c.state = StateErroring
	}
	c.mu.Unlock()

	if alreadyDown {
		return
	}

	if err != nil {
		c.broadcaster.PublishError(fmt.Errorf("connection closed abnormally: %w", err))
	}
	c.Disconnect()
}

// handleCaptureError reports a device acquisition failure. Device errors
// are terminal for the session and are not retried.
func (c *Client) handleCaptureError(err error) {
	c.mu.Lock()
	c.state = StateErroring
	c.mu.Unlock()

	c.broadcaster.PublishError(fmt.Errorf("microphone capture failed: %w", err))
	c.Disconnect()
}

func (c *Client) handleSpeakingChanged(speaking bool) {
	c.mu.Lock()
	c.activity.IsSpeaking = speaking
	snapshot := c.activity
	c.mu.Unlock()

	c.broadcaster.PublishState(snapshot)
}

func (c *Client) handleUserSpeechStarted() {
	if c.transcript.OpenTurn(RoleUser) {
		c.publishTranscript()
	}
}

func (c *Client) handleUserInterim(text string) {
	c.transcript.UpdateInterim(RoleUser, text)
	c.publishTranscript()
}

func (c *Client) handleUserFinal(text string) {
	if !c.transcript.Finalize(RoleUser, &text) {
		c.transcript.AppendFinal(RoleUser, text)
	}
	c.publishTranscript()
}

func (c *Client) publishActivity() {
	c.mu.Lock()
	snapshot := c.activity
	c.mu.Unlock()
	c.broadcaster.PublishState(snapshot)
}

func (c *Client) publishTranscript() {
	c.broadcaster.PublishTranscript(c.transcript.Snapshot())
}
