package voiceclient

import "sync"

// Subscription callbacks. Any of the three may be nil; nil callbacks are
// skipped for that channel.
type (
	StateCallback      func(state ActivityState)
	TranscriptCallback func(entries []TranscriptEntry)
	ErrorCallback      func(err error)
)

type subscriber struct {
	onState      StateCallback
	onTranscript TranscriptCallback
	onError      ErrorCallback
}

// broadcaster implements the observer side of the client: every mutation to
// activity state, the transcript, or the error value is re-broadcast in full
// to all subscribers, and a new subscriber immediately receives the current
// snapshot so there is no missed-initial-state problem. Updates are bounded
// by speech cadence, so full by-value broadcasts stay cheap enough.
type broadcaster struct {
	mu          sync.Mutex
	subscribers map[int]subscriber
	nextID      int

	lastState      ActivityState
	lastTranscript []TranscriptEntry
	lastErr        error
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subscribers: map[int]subscriber{}}
}

// Subscribe registers the callbacks, replays the latest snapshot of all
// three channels, and returns an unsubscribe func. Unsubscribing twice is
// harmless.
func (b *broadcaster) Subscribe(onState StateCallback, onTranscript TranscriptCallback, onError ErrorCallback) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	sub := subscriber{onState: onState, onTranscript: onTranscript, onError: onError}
	b.subscribers[id] = sub

	state := b.lastState
	transcript := copyEntries(b.lastTranscript)
	lastErr := b.lastErr
	b.mu.Unlock()

	if sub.onState != nil {
		sub.onState(state)
	}
	if sub.onTranscript != nil {
		sub.onTranscript(transcript)
	}
	if sub.onError != nil && lastErr != nil {
		sub.onError(lastErr)
	}

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

func (b *broadcaster) PublishState(state ActivityState) {
	b.mu.Lock()
	b.lastState = state
	subs := b.currentSubscribersLocked()
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.onState != nil {
			sub.onState(state)
		}
	}
}

func (b *broadcaster) PublishTranscript(entries []TranscriptEntry) {
	b.mu.Lock()
	b.lastTranscript = entries
	subs := b.currentSubscribersLocked()
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.onTranscript != nil {
			// Each subscriber gets its own copy so none can corrupt
			// another's view.
			sub.onTranscript(copyEntries(entries))
		}
	}
}

func (b *broadcaster) PublishError(err error) {
	if err == nil {
		return
	}

	b.mu.Lock()
	b.lastErr = err
	subs := b.currentSubscribersLocked()
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.onError != nil {
			sub.onError(err)
		}
	}
}

func (b *broadcaster) LastState() ActivityState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastState
}

func (b *broadcaster) currentSubscribersLocked() []subscriber {
	subs := make([]subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	return subs
}
