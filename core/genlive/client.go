package genlive

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lkrilov/voicelive/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultEndpoint is the bidirectional generation endpoint used when the
// session config leaves Endpoint empty.
const DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

const writeTimeout = 5 * time.Second

// SessionConfig describes one live session. The client is handed a
// credential and an endpoint; auth/session mechanics live with the caller.
type SessionConfig struct {
	// Endpoint is the secure WebSocket URL. Empty selects DefaultEndpoint.
	Endpoint string
	// APIKey authenticates the session. Connect fails fast without it,
	// before any socket attempt.
	APIKey string

	Model             string
	Voice             string
	SystemInstruction string
	Tools             []ToolDeclaration
}

// Client owns one persistent socket to the generative-speech service. It
// performs the setup handshake, serializes outbound audio and tool-response
// frames, and routes inbound frames by message kind. A Client serves a
// single session; reconnect by building a fresh one.
type Client struct {
	config SessionConfig

	conn   *websocket.Conn
	connMu sync.Mutex

	connected       atomic.Bool
	intentionalStop atomic.Bool
}

func NewClient(config SessionConfig) *Client {
	return &Client{config: config}
}

// Connect dials the endpoint and optimistically sends the setup message.
// There is no ack wait; the caller may start forwarding audio immediately.
// A hung dial is cancellable through ctx.
func (c *Client) Connect(ctx context.Context, opts ...SessionOption) error {
	options := SessionOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := tracer.Start(ctx, "connect live session")
	defer span.End()

	if strings.TrimSpace(c.config.APIKey) == "" {
		err := fmt.Errorf("missing session credential")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// A Close that ran before this Connect must not poison the new session.
	c.intentionalStop.Store(false)

	endpoint := c.config.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	sessionURL, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid session endpoint: %w", err)
	}
	queryParams := sessionURL.Query()
	queryParams.Set("key", c.config.APIKey)
	sessionURL.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, sessionURL.String(), nil)
	if err != nil {
		recordedErr := fmt.Errorf("failed to open socket connection to live endpoint: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return recordedErr
	}

	if err := conn.WriteJSON(c.setupMessage()); err != nil {
		conn.Close()
		return fmt.Errorf("failed to send setup message: %w", err)
	}
	span.AddEvent("setup sent", trace.WithAttributes(attribute.String("model", c.config.Model)))

	c.connMu.Lock()
	if c.intentionalStop.Load() {
		// Close ran while the dial was in flight; it found no conn to tear
		// down, so this fresh socket is ours to release.
		c.connMu.Unlock()
		conn.Close()
		return fmt.Errorf("session closed during connect")
	}
	c.conn = conn
	c.connMu.Unlock()
	c.connected.Store(true)
	go c.readAndProcessMessages(conn, options)

	return nil
}

func (c *Client) IsConnected() bool { return c.connected.Load() }

func (c *Client) setupMessage() setupMessage {
	setup := setupPayload{
		Model: c.config.Model,
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	if c.config.Voice != "" {
		setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: c.config.Voice},
			},
		}
	}
	if c.config.SystemInstruction != "" {
		setup.SystemInstruction = &messageContent{
			Parts: []messagePart{{Text: c.config.SystemInstruction}},
		}
	}
	if len(c.config.Tools) > 0 {
		declarations := make([]functionDeclaration, 0, len(c.config.Tools))
		for _, tool := range c.config.Tools {
			declarations = append(declarations, tool.toWire())
		}
		setup.Tools = []toolDeclarationBody{{FunctionDeclarations: declarations}}
	}

	return setupMessage{Setup: setup}
}

// SendAudio wraps one captured PCM frame in a realtime_input envelope.
// Frames are not retained after the write.
func (c *Client) SendAudio(pcm []byte) error {
	if !c.connected.Load() {
		return fmt.Errorf("live session not connected")
	}

	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{{
				MimeType: "audio/pcm",
				Data:     audio.EncodeBase64(pcm),
			}},
		},
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("live session not connected")
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write audio frame: %w", err)
	}
	return nil
}

// SendToolResponse acknowledges executed tool calls, correlated by call id.
func (c *Client) SendToolResponse(responses ...FunctionResponse) error {
	if !c.connected.Load() {
		return fmt.Errorf("live session not connected")
	}

	msg := toolResponseMessage{ToolResponse: toolResponse{FunctionResponses: responses}}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("live session not connected")
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write tool response: %w", err)
	}
	return nil
}

// Close sends a normal closure frame and tears the socket down. It is safe
// to call from any state and any number of times; a Close before Connect
// succeeded is a no-op and does not affect a later Close.
func (c *Client) Close() error {
	c.intentionalStop.Store(true)
	c.connected.Store(false)

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil
	}

	var err error
	deadline := time.Now().Add(writeTimeout)
	if writeErr := c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	); writeErr != nil {
		err = fmt.Errorf("failed to send close frame: %w", writeErr)
	}
	c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) readAndProcessMessages(conn *websocket.Conn, options SessionOptions) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.connected.Store(false)
			conn.Close()

			if c.intentionalStop.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = nil
			}
			if options.ClosedCallback != nil {
				options.ClosedCallback(err)
			}
			return
		}

		// Binary frames carry the same JSON payload as text frames; both
		// land here as raw bytes and go through one parse path.
		c.processMessage(msg, options)
	}
}

func (c *Client) processMessage(raw []byte, options SessionOptions) {
	msg, err := parseServerMessage(raw)
	if err != nil {
		// Malformed frames are dropped; the stream itself stays healthy.
		logger.Warn("Dropping unparseable live message", "error", err)
		return
	}

	switch {
	case msg.Error != nil:
		if options.ErrorCallback != nil {
			options.ErrorCallback(msg.Error.Message)
		}

	case msg.ToolCall != nil:
		if options.ToolCallCallback != nil && len(msg.ToolCall.FunctionCalls) > 0 {
			options.ToolCallCallback(msg.ToolCall.FunctionCalls)
		}

	case msg.ServerContent != nil:
		content := msg.ServerContent
		if content.ModelTurn != nil && options.AudioChunkCallback != nil {
			for _, part := range content.ModelTurn.Parts {
				if part.InlineData == nil || part.InlineData.Data == "" {
					continue
				}
				pcm, err := audio.DecodeBase64(part.InlineData.Data)
				if err != nil {
					logger.Warn("Dropping undecodable audio part", "error", err)
					continue
				}
				options.AudioChunkCallback(pcm)
			}
		}
		if content.TurnComplete && options.TurnCompleteCallback != nil {
			options.TurnCompleteCallback()
		}
	}
}
