package audio

import (
	"bytes"
	"math"
	"testing"
	"time"
)

func TestBase64RoundTripPreservesSamples(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80, 0x01, 0xFF}

	decoded, err := DecodeBase64(EncodeBase64(pcm))
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Fatalf("expected round trip to reproduce samples, got %v want %v", decoded, pcm)
	}
}

func TestDecodeBase64RejectsGarbage(t *testing.T) {
	if _, err := DecodeBase64("!!! not base64 !!!"); err == nil {
		t.Fatalf("expected decode of malformed payload to fail")
	}
}

func TestDecodePCM16MapsExtremesIntoUnitRange(t *testing.T) {
	pcm := []byte{0xFF, 0x7F, 0x00, 0x80, 0x00, 0x00}

	samples := DecodePCM16(pcm)
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if samples[0] != 1 {
		t.Fatalf("expected max sample to decode to 1, got %f", samples[0])
	}
	if samples[1] >= -1.0001 && samples[1] > -0.9999 {
		t.Fatalf("expected min sample to decode to roughly -1, got %f", samples[1])
	}
	if samples[2] != 0 {
		t.Fatalf("expected zero sample to decode to 0, got %f", samples[2])
	}
}

func TestDecodePCM16IgnoresTrailingOddByte(t *testing.T) {
	if samples := DecodePCM16([]byte{0x00, 0x00, 0x7F}); len(samples) != 1 {
		t.Fatalf("expected trailing byte to be ignored, got %d samples", len(samples))
	}
}

func TestEncodePCM16ClipsOutOfRangeSamples(t *testing.T) {
	pcm := EncodePCM16([]float32{2, -2})

	samples := DecodePCM16(pcm)
	if samples[0] != 1 {
		t.Fatalf("expected positive overdrive to clip to 1, got %f", samples[0])
	}
	if samples[1] > -0.9999 {
		t.Fatalf("expected negative overdrive to clip to roughly -1, got %f", samples[1])
	}
}

func TestDurationCountsSamplesNotBytes(t *testing.T) {
	if got := Duration(PlaybackSampleRate*2, PlaybackSampleRate); got != time.Second {
		t.Fatalf("expected one second of audio, got %v", got)
	}
	if got := Duration(100, 0); got != 0 {
		t.Fatalf("expected zero duration for zero sample rate, got %v", got)
	}
}

func TestLevelStaysWithinUnitIntervalForAnyAmplitude(t *testing.T) {
	silence := make([]byte, 640)
	if got := Level(silence); got != 0 {
		t.Fatalf("expected silence level 0, got %f", got)
	}

	loud := make([]byte, 640)
	for i := 0; i+1 < len(loud); i += 2 {
		loud[i] = 0x00
		loud[i+1] = 0x80 // most negative PCM16 sample
	}
	got := Level(loud)
	if got < 0 || got > 1 {
		t.Fatalf("expected level within [0,1], got %f", got)
	}
	if math.Abs(got-1) > 0.001 {
		t.Fatalf("expected full-scale input to report level near 1, got %f", got)
	}

	if got := Level(nil); got != 0 {
		t.Fatalf("expected empty frame level 0, got %f", got)
	}
}
