package voiceclient

import (
	"errors"
	"testing"
)

func TestSubscribeReplaysCurrentSnapshot(t *testing.T) {
	b := newBroadcaster()
	b.PublishState(ActivityState{IsConnected: true, Volume: 0.5})
	b.PublishTranscript([]TranscriptEntry{{Role: RoleUser, Text: "hello"}})
	b.PublishError(errors.New("stale failure"))

	var gotState *ActivityState
	var gotTranscript []TranscriptEntry
	var gotErr error
	b.Subscribe(
		func(state ActivityState) { gotState = &state },
		func(entries []TranscriptEntry) { gotTranscript = entries },
		func(err error) { gotErr = err },
	)

	if gotState == nil || !gotState.IsConnected || gotState.Volume != 0.5 {
		t.Errorf("expected replayed state snapshot, got %+v", gotState)
	}
	if len(gotTranscript) != 1 || gotTranscript[0].Text != "hello" {
		t.Errorf("expected replayed transcript, got %+v", gotTranscript)
	}
	if gotErr == nil || gotErr.Error() != "stale failure" {
		t.Errorf("expected replayed error, got %v", gotErr)
	}
}

func TestSubscribeWithoutPriorErrorSkipsErrorReplay(t *testing.T) {
	b := newBroadcaster()

	called := false
	b.Subscribe(nil, nil, func(err error) { called = true })

	if called {
		t.Error("expected no error replay when no error has occurred")
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := newBroadcaster()

	counts := make([]int, 2)
	b.Subscribe(func(ActivityState) { counts[0]++ }, nil, nil)
	b.Subscribe(func(ActivityState) { counts[1]++ }, nil, nil)

	b.PublishState(ActivityState{IsConnected: true})

	// Each subscriber sees the replay once plus the publish once.
	for i, count := range counts {
		if count != 2 {
			t.Errorf("subscriber %d received %d state updates, expected 2", i, count)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newBroadcaster()

	count := 0
	unsubscribe := b.Subscribe(func(ActivityState) { count++ }, nil, nil)
	unsubscribe()
	unsubscribe() // repeated unsubscribe is harmless

	b.PublishState(ActivityState{})

	if count != 1 {
		t.Errorf("expected only the replay delivery, got %d", count)
	}
}

func TestTranscriptCopiesAreIndependentPerSubscriber(t *testing.T) {
	b := newBroadcaster()

	var first, second []TranscriptEntry
	b.Subscribe(nil, func(entries []TranscriptEntry) { first = entries }, nil)
	b.Subscribe(nil, func(entries []TranscriptEntry) { second = entries }, nil)

	b.PublishTranscript([]TranscriptEntry{{Role: RoleModel, Text: "shared"}})

	first[0].Text = "tampered"
	if second[0].Text != "shared" {
		t.Errorf("subscriber copies alias each other: %q", second[0].Text)
	}
}

func TestPublishErrorIgnoresNil(t *testing.T) {
	b := newBroadcaster()

	count := 0
	b.Subscribe(nil, nil, func(err error) { count++ })

	b.PublishError(nil)

	if count != 0 {
		t.Errorf("expected nil error to be dropped, got %d deliveries", count)
	}
}
