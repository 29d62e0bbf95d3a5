package voiceclient

import (
	"context"
	"time"

	"github.com/lkrilov/voicelive/core/audio"
	"github.com/lkrilov/voicelive/core/genlive"
	"github.com/lkrilov/voicelive/core/recognition"
)

type ClientOption func(*Client)

// AudioInput is an exclusive hold on a microphone device delivering PCM16
// frames at the capture rate. StartCapture may block for the capture
// lifetime (pull-style backends) or return immediately (callback-style
// backends); either way frames arrive through onAudio on the capture
// context, never via shared buffers.
type AudioInput interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	CaptureEncodingInfo() audio.EncodingInfo
}

func WithAudioInput(client AudioInput) ClientOption {
	return func(c *Client) { c.capture.Set(client) }
}

// AudioOutput is a shared output clock plus a scheduled PCM sink. Now is
// monotonic for the life of the output; ScheduleAt places a chunk at an
// absolute clock position.
type AudioOutput interface {
	Now() time.Duration
	ScheduleAt(start time.Duration, pcm []byte)
	ClearSchedule()
}

func WithAudioOutput(client AudioOutput) ClientOption {
	return func(c *Client) { c.output = client }
}

// Recognizer is a best-effort low-latency transcript source for the user's
// own speech.
type Recognizer interface {
	Transcribe(ctx context.Context, opts ...recognition.Option) error
	SendAudio(audio []byte) error
}

func WithRecognizer(client Recognizer) ClientOption {
	return func(c *Client) { c.recognizer.set(client) }
}

// WithNavigator installs the side effect behind the declared navigate tool.
// The dispatcher does not await it.
func WithNavigator(navigate func(page string)) ClientOption {
	return func(c *Client) { c.navigator = navigate }
}

// WithSession sets the live session configuration handed to the transport.
func WithSession(config genlive.SessionConfig) ClientOption {
	return func(c *Client) { c.session = config }
}

// Transport abstracts the protocol layer so tests can drive the client
// without a socket. The production transport is genlive.Client.
type Transport interface {
	Connect(ctx context.Context, opts ...genlive.SessionOption) error
	SendAudio(pcm []byte) error
	SendToolResponse(responses ...genlive.FunctionResponse) error
	Close() error
}

// TransportFactory builds a fresh transport per session; nothing
// transport-side survives a disconnect/reconnect cycle.
type TransportFactory func(config genlive.SessionConfig) Transport

func WithTransportFactory(factory TransportFactory) ClientOption {
	return func(c *Client) { c.newTransport = factory }
}
