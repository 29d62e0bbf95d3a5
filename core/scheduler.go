package voiceclient

import (
	"sync"
	"time"

	"github.com/lkrilov/voicelive/core/audio"
)

// speakingGraceWindow keeps isSpeaking high briefly after the clock passes
// the cursor so back-to-back chunks don't flicker the flag.
const speakingGraceWindow = 200 * time.Millisecond

// playbackScheduler turns jittery chunk arrivals into gap-free playback.
// Every chunk starts at max(output clock now, cursor) and the cursor then
// advances by the chunk's duration, so chunks never reorder, never overlap,
// and only leave a gap when the network genuinely falls behind real time.
type playbackScheduler struct {
	output AudioOutput

	mu       sync.Mutex
	cursor   time.Duration
	speaking bool
	stopped  bool

	speakingTimer *time.Timer

	// onSpeakingChanged fires outside the lock on every flag transition.
	onSpeakingChanged func(speaking bool)
}

func newPlaybackScheduler(output AudioOutput, onSpeakingChanged func(bool)) *playbackScheduler {
	if onSpeakingChanged == nil {
		onSpeakingChanged = func(bool) {}
	}
	return &playbackScheduler{
		output:            output,
		onSpeakingChanged: onSpeakingChanged,
	}
}

// Enqueue schedules one inbound PCM16 chunk at its gap-free position and
// returns that start position. Chunks are not retained after scheduling.
func (s *playbackScheduler) Enqueue(pcm []byte) time.Duration {
	s.mu.Lock()
	if s.stopped || s.output == nil || len(pcm) == 0 {
		cursor := s.cursor
		s.mu.Unlock()
		return cursor
	}

	now := s.output.Now()
	start := now
	if s.cursor > start {
		start = s.cursor
	}

	s.output.ScheduleAt(start, pcm)
	s.cursor = start + audio.Duration(len(pcm), audio.PlaybackSampleRate)

	becameSpeaking := !s.speaking
	s.speaking = true
	s.rearmSpeakingTimerLocked(now)
	s.mu.Unlock()

	if becameSpeaking {
		s.onSpeakingChanged(true)
	}
	return start
}

// IsSpeaking reports whether scheduled audio is still rendering (plus the
// grace window).
func (s *playbackScheduler) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Stop prevents any further scheduling. Audio already handed to the
// hardware keeps playing; only new chunks are refused.
func (s *playbackScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.speakingTimer != nil {
		s.speakingTimer.Stop()
		s.speakingTimer = nil
	}
	wasSpeaking := s.speaking
	s.speaking = false
	s.mu.Unlock()

	if wasSpeaking {
		s.onSpeakingChanged(false)
	}
}

func (s *playbackScheduler) rearmSpeakingTimerLocked(now time.Duration) {
	remaining := s.cursor - now + speakingGraceWindow
	if s.speakingTimer != nil {
		s.speakingTimer.Stop()
	}
	s.speakingTimer = time.AfterFunc(remaining, s.checkSpeakingDone)
}

func (s *playbackScheduler) checkSpeakingDone() {
	s.mu.Lock()
	if s.stopped || !s.speaking {
		s.mu.Unlock()
		return
	}

	now := s.output.Now()
	if now < s.cursor {
		// More audio got scheduled since the timer was armed.
		s.rearmSpeakingTimerLocked(now)
		s.mu.Unlock()
		return
	}

	s.speaking = false
	s.speakingTimer = nil
	s.mu.Unlock()

	s.onSpeakingChanged(false)
}
