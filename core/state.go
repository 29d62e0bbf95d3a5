package voiceclient

// ConnectionState tracks the transport lifecycle. It is owned by the Client
// and mutated only from transport lifecycle callbacks.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateErroring     ConnectionState = "erroring"
)

// ActivityState is a value snapshot of session telemetry, recomputed on
// every relevant event and broadcast by value so subscribers never alias
// client internals.
type ActivityState struct {
	IsConnected bool
	IsSpeaking  bool
	IsListening bool
	// Volume is a coarse capture level in [0, 1]. Advisory only.
	Volume float64
}
