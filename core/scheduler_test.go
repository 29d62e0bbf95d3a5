package voiceclient

import (
	"sync"
	"testing"
	"time"

	"github.com/lkrilov/voicelive/core/audio"
)

// fakeOutput is a controllable output clock that records every schedule
// call instead of rendering.
type fakeOutput struct {
	mu        sync.Mutex
	now       time.Duration
	scheduled []scheduledChunk
}

type scheduledChunk struct {
	start time.Duration
	bytes int
}

func (o *fakeOutput) Now() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *fakeOutput) ScheduleAt(start time.Duration, pcm []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scheduled = append(o.scheduled, scheduledChunk{start: start, bytes: len(pcm)})
}

func (o *fakeOutput) ClearSchedule() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scheduled = nil
}

func (o *fakeOutput) advance(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.now += d
}

func (o *fakeOutput) chunks() []scheduledChunk {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]scheduledChunk(nil), o.scheduled...)
}

// chunkOf returns count milliseconds of playback-rate PCM16 silence.
func chunkOf(t *testing.T, ms int) []byte {
	t.Helper()
	n := audio.PlaybackSampleRate * ms / 1000 * 2
	return make([]byte, n)
}

func TestEnqueueBackToBackChunksAreGapFree(t *testing.T) {
	output := &fakeOutput{}
	scheduler := newPlaybackScheduler(output, nil)

	// Three chunks arrive in a burst while the clock stands still; they
	// must land end to end, never stacked at the same start.
	scheduler.Enqueue(chunkOf(t, 100))
	scheduler.Enqueue(chunkOf(t, 100))
	scheduler.Enqueue(chunkOf(t, 50))

	chunks := output.chunks()
	if len(chunks) != 3 {
		t.Fatalf("expected 3 scheduled chunks, got %d", len(chunks))
	}

	expectedStarts := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}
	for i, chunk := range chunks {
		if chunk.start != expectedStarts[i] {
			t.Errorf("chunk %d scheduled at %v, expected %v", i, chunk.start, expectedStarts[i])
		}
	}
}

func TestEnqueueAfterDrainStartsAtClock(t *testing.T) {
	output := &fakeOutput{}
	scheduler := newPlaybackScheduler(output, nil)

	scheduler.Enqueue(chunkOf(t, 50))

	// The clock runs well past the cursor before the next chunk shows up;
	// the late chunk starts at the clock, not at the stale cursor.
	output.advance(300 * time.Millisecond)
	start := scheduler.Enqueue(chunkOf(t, 50))

	if start != 300*time.Millisecond {
		t.Errorf("late chunk scheduled at %v, expected %v", start, 300*time.Millisecond)
	}
}

func TestEnqueueNeverSchedulesInThePast(t *testing.T) {
	output := &fakeOutput{}
	scheduler := newPlaybackScheduler(output, nil)

	output.advance(time.Second)
	start := scheduler.Enqueue(chunkOf(t, 100))

	if start < time.Second {
		t.Errorf("chunk scheduled at %v, before the output clock at %v", start, time.Second)
	}
}

func TestSpeakingFlagRisesOnFirstChunk(t *testing.T) {
	output := &fakeOutput{}
	transitions := make(chan bool, 4)
	scheduler := newPlaybackScheduler(output, func(speaking bool) {
		transitions <- speaking
	})

	scheduler.Enqueue(chunkOf(t, 50))

	select {
	case speaking := <-transitions:
		if !speaking {
			t.Error("expected first transition to be speaking=true")
		}
	case <-time.After(time.Second):
		t.Fatal("expected a speaking transition, got none")
	}

	if !scheduler.IsSpeaking() {
		t.Error("expected IsSpeaking while audio is scheduled")
	}
}

func TestSpeakingFlagFallsAfterGraceWindow(t *testing.T) {
	output := &fakeOutput{}
	transitions := make(chan bool, 4)
	scheduler := newPlaybackScheduler(output, func(speaking bool) {
		transitions <- speaking
	})

	scheduler.Enqueue(chunkOf(t, 10))
	output.advance(10 * time.Millisecond)

	select {
	case speaking := <-transitions:
		if !speaking {
			t.Fatal("expected speaking=true first")
		}
	case <-time.After(time.Second):
		t.Fatal("expected a speaking transition, got none")
	}

	// Well before the grace window elapses the flag must still hold.
	time.Sleep(50 * time.Millisecond)
	if !scheduler.IsSpeaking() {
		t.Error("speaking flag dropped inside the grace window")
	}

	select {
	case speaking := <-transitions:
		if speaking {
			t.Error("expected speaking=false after the grace window")
		}
	case <-time.After(time.Second):
		t.Fatal("speaking flag never dropped after playback drained")
	}
}

func TestStopRefusesNewChunks(t *testing.T) {
	output := &fakeOutput{}
	scheduler := newPlaybackScheduler(output, nil)

	scheduler.Enqueue(chunkOf(t, 50))
	scheduler.Stop()
	scheduler.Enqueue(chunkOf(t, 50))

	if got := len(output.chunks()); got != 1 {
		t.Errorf("expected 1 scheduled chunk after stop, got %d", got)
	}
	if scheduler.IsSpeaking() {
		t.Error("expected speaking=false after stop")
	}
}

func TestEnqueueIgnoresEmptyChunk(t *testing.T) {
	output := &fakeOutput{}
	scheduler := newPlaybackScheduler(output, nil)

	scheduler.Enqueue(nil)

	if got := len(output.chunks()); got != 0 {
		t.Errorf("expected no scheduled chunks, got %d", got)
	}
	if scheduler.IsSpeaking() {
		t.Error("expected speaking=false for an empty chunk")
	}
}
