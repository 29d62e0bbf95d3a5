package voiceclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lkrilov/voicelive/core/audio"
)

// stubInput drives the pipeline by hand: StartCapture parks until the
// context ends and frames are injected through the captured callback.
type stubInput struct {
	onAudio  func([]byte)
	started  chan struct{}
	stopped  bool
	closed   bool
	startErr error
}

func newStubInput() *stubInput {
	return &stubInput{started: make(chan struct{}, 1)}
}

func (s *stubInput) StartCapture(ctx context.Context, onAudio func([]byte)) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.onAudio = onAudio
	s.started <- struct{}{}
	<-ctx.Done()
	return nil
}

func (s *stubInput) StopCapture() error {
	s.stopped = true
	return nil
}

func (s *stubInput) Close() error {
	s.closed = true
	return nil
}

func (s *stubInput) CaptureEncodingInfo() audio.EncodingInfo {
	return audio.GetCaptureEncodingInfo()
}

func (s *stubInput) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-s.started:
	case <-time.After(time.Second):
		t.Fatal("capture never started")
	}
}

func TestCaptureRelaysFramesInOrder(t *testing.T) {
	input := newStubInput()
	pipeline := newCapturePipeline(input)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipeline.Start(ctx, nil)
	input.waitStarted(t)

	input.onAudio([]byte{1})

	select {
	case frame := <-pipeline.Frames():
		if frame[0] != 1 {
			t.Errorf("expected frame 1, got %v", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("frame never arrived")
	}
}

func TestCaptureDropsOldestWhenBackedUp(t *testing.T) {
	input := newStubInput()
	pipeline := newCapturePipeline(input)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipeline.Start(ctx, nil)
	input.waitStarted(t)

	// Nobody is reading; the backlog holds one frame, so the oldest frames
	// must give way to the newest.
	input.onAudio([]byte{1})
	input.onAudio([]byte{2})
	input.onAudio([]byte{3})

	select {
	case frame := <-pipeline.Frames():
		if frame[0] != 3 {
			t.Errorf("expected newest frame 3, got %d", frame[0])
		}
	case <-time.After(time.Second):
		t.Fatal("no frame survived the backlog")
	}
}

func TestCaptureStartReportsDeviceError(t *testing.T) {
	input := newStubInput()
	input.startErr = errors.New("device busy")
	pipeline := newCapturePipeline(input)

	errs := make(chan error, 1)
	pipeline.Start(context.Background(), func(err error) { errs <- err })

	select {
	case err := <-errs:
		if !errors.Is(err, input.startErr) {
			t.Errorf("expected device error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("device error never reported")
	}
	if pipeline.IsCapturing() {
		t.Error("expected capturing=false after a failed start")
	}
}

func TestCaptureStartWhileRunningIsNoOp(t *testing.T) {
	input := newStubInput()
	pipeline := newCapturePipeline(input)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipeline.Start(ctx, nil)
	input.waitStarted(t)

	pipeline.Start(ctx, nil)
	select {
	case <-input.started:
		t.Error("expected repeated start to be a no-op")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCaptureStopReleasesDevice(t *testing.T) {
	input := newStubInput()
	pipeline := newCapturePipeline(input)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipeline.Start(ctx, nil)
	input.waitStarted(t)

	if err := pipeline.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if !input.stopped {
		t.Error("expected StopCapture on the device")
	}
	if pipeline.IsCapturing() {
		t.Error("expected capturing=false after stop")
	}

	if err := pipeline.Stop(); err != nil {
		t.Errorf("repeated stop failed: %v", err)
	}
}

func TestCaptureCloseReleasesClient(t *testing.T) {
	input := newStubInput()
	pipeline := newCapturePipeline(input)

	if err := pipeline.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !input.closed {
		t.Error("expected Close on the device")
	}
}

func TestUnconfiguredPipelineIsInert(t *testing.T) {
	pipeline := newCapturePipeline(nil)

	pipeline.Start(context.Background(), func(error) { t.Error("unexpected error callback") })
	if err := pipeline.Stop(); err != nil {
		t.Errorf("stop on unconfigured pipeline failed: %v", err)
	}
	if err := pipeline.Close(); err != nil {
		t.Errorf("close on unconfigured pipeline failed: %v", err)
	}
	if info := pipeline.EncodingInfo(); info.SampleRate != audio.CaptureSampleRate {
		t.Errorf("expected capture default encoding, got %+v", info)
	}
}
