package audio

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"time"
)

// EncodeBase64 encodes a raw PCM frame for the transport envelope.
func EncodeBase64(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeBase64 decodes a transport payload back into raw PCM bytes.
func DecodeBase64(data string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(data)
}

// DecodePCM16 converts little-endian PCM16 bytes into float samples in
// [-1, 1]. A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	samples := make([]float32, 0, len(pcm)/2)
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		samples = append(samples, float32(sample)/math.MaxInt16)
	}
	return samples
}

// EncodePCM16 converts float samples in [-1, 1] back into little-endian
// PCM16 bytes, clipping anything outside the range.
func EncodePCM16(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, sample := range samples {
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(sample*math.MaxInt16)))
	}
	return pcm
}

// Duration reports how long a raw linear16 mono buffer plays for at the
// given sample rate.
func Duration(nBytes int, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := nBytes / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// levelStride keeps the per-frame level estimate cheap on large frames.
const levelStride = 4

// Level estimates frame loudness as the mean absolute amplitude of
// sub-sampled PCM16 samples, normalized to [0, 1]. It is advisory
// telemetry for UI feedback and never drives control decisions.
func Level(pcm []byte) float64 {
	var sum, count float64
	for i := 0; i+1 < len(pcm); i += 2 * levelStride {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		sum += math.Abs(float64(sample))
		count++
	}
	if count == 0 {
		return 0
	}

	level := sum / count / math.MaxInt16
	return math.Min(level, 1)
}
