package genlive

// SessionOptions carries the per-connection callbacks the transport invokes
// from its read loop. Unset callbacks are simply skipped.
type SessionOptions struct {
	ErrorCallback        func(message string)
	ToolCallCallback     func(calls []FunctionCall)
	AudioChunkCallback   func(pcm []byte)
	TurnCompleteCallback func()

	// ClosedCallback fires once when the read loop exits. err is nil for a
	// normal closure and carries the close error otherwise.
	ClosedCallback func(err error)
}

type SessionOption func(*SessionOptions)

func WithErrorCallback(callback func(message string)) SessionOption {
	return func(o *SessionOptions) {
		o.ErrorCallback = callback
	}
}

func WithToolCallCallback(callback func(calls []FunctionCall)) SessionOption {
	return func(o *SessionOptions) {
		o.ToolCallCallback = callback
	}
}

func WithAudioChunkCallback(callback func(pcm []byte)) SessionOption {
	return func(o *SessionOptions) {
		o.AudioChunkCallback = callback
	}
}

func WithTurnCompleteCallback(callback func()) SessionOption {
	return func(o *SessionOptions) {
		o.TurnCompleteCallback = callback
	}
}

func WithClosedCallback(callback func(err error)) SessionOption {
	return func(o *SessionOptions) {
		o.ClosedCallback = callback
	}
}
