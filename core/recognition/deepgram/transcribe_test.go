package deepgram

import (
	"context"
	"fmt"
	"testing"

	"github.com/lkrilov/voicelive/core/recognition"
)

func transcriptMessage(t *testing.T, transcript string, isFinal, speechFinal bool) []byte {
	t.Helper()
	return []byte(fmt.Sprintf(
		`{"type":"Results","is_final":%t,"speech_final":%t,"channel":{"alternatives":[{"transcript":%q}]}}`,
		isFinal, speechFinal, transcript,
	))
}

// Transcript segments must apply in arrival order: finals accumulate, and a
// later interim reports the accumulated text plus the current segment.
func TestProcessMessageAccumulatesSegmentsInOrder(t *testing.T) {
	client := NewClient()

	var interims []string
	var finals []string
	options := recognition.Options{
		InterimCallback: func(transcript string) { interims = append(interims, transcript) },
		FinalCallback:   func(transcript string) { finals = append(finals, transcript) },
	}

	ctx := context.Background()
	client.processMessage(ctx, transcriptMessage(t, "turn on", true, false), options)
	client.processMessage(ctx, transcriptMessage(t, "the lights", true, false), options)
	client.processMessage(ctx, transcriptMessage(t, "please", false, false), options)

	if len(interims) != 1 || interims[0] != "turn on the lights please" {
		t.Fatalf("expected one ordered interim, got %v", interims)
	}

	client.processMessage(ctx, transcriptMessage(t, "please", true, true), options)
	if len(finals) != 1 || finals[0] != "turn on the lights please" {
		t.Fatalf("expected one accumulated final, got %v", finals)
	}
}

func TestProcessMessageDropsMalformedPayload(t *testing.T) {
	client := NewClient()

	options := recognition.Options{
		InterimCallback: func(string) { t.Error("unexpected interim for malformed payload") },
		FinalCallback:   func(string) { t.Error("unexpected final for malformed payload") },
	}

	client.processMessage(context.Background(), []byte(`{"type":`), options)
	client.processMessage(context.Background(), []byte(`{"type":"Results","channel":`), options)
}
