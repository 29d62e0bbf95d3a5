package recognition

import "github.com/lkrilov/voicelive/core/audio"

// Options configures a streaming recognizer session. The recognizer reports
// the user's own speech only; it is a best-effort UI feedback source and is
// never consulted for correctness decisions.
type Options struct {
	// InterimCallback receives the mutable running transcript of the
	// utterance currently being spoken. Interim text may still change.
	InterimCallback func(transcript string)
	// FinalCallback receives the frozen transcript of a finished utterance.
	FinalCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	// StoppedCallback fires once when the recognizer's read loop exits.
	// err is nil for a requested stop.
	StoppedCallback func(err error)

	EncodingInfo audio.EncodingInfo
}

type Option func(*Options)

func WithInterimCallback(callback func(transcript string)) Option {
	return func(o *Options) {
		o.InterimCallback = callback
	}
}

func WithFinalCallback(callback func(transcript string)) Option {
	return func(o *Options) {
		o.FinalCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) Option {
	return func(o *Options) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) Option {
	return func(o *Options) {
		o.SpeechEndedCallback = callback
	}
}

func WithStoppedCallback(callback func(err error)) Option {
	return func(o *Options) {
		o.StoppedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) Option {
	return func(o *Options) {
		o.EncodingInfo = encodingInfo
	}
}
