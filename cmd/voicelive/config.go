package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the file-backed configuration. Secrets are taken from the
// environment in preference to the file so configs stay committable.
type Config struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	Voice    string `yaml:"voice"`

	// TokenEndpoint, when set, mints a short-lived session credential before
	// connecting; the api key then only authenticates the mint request.
	TokenEndpoint string `yaml:"token_endpoint"`

	SystemInstruction string `yaml:"system_instruction"`

	// CaptureDriver selects the capture device backend: "miniaudio"
	// (default) or "portaudio". Playback is always miniaudio.
	CaptureDriver string `yaml:"capture_driver"`

	// LocalTranscription enables the low-latency local recognizer for the
	// user's side of the transcript. Requires DEEPGRAM_API_KEY.
	LocalTranscription bool `yaml:"local_transcription"`
}

func loadConfig(path string) (Config, error) {
	config := Config{
		Model:         "gemini-2.0-flash-live-001",
		CaptureDriver: "miniaudio",
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &config); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.APIKey = key
	}
	if config.APIKey == "" {
		return Config{}, fmt.Errorf("no api key: set GEMINI_API_KEY or api_key in the config file")
	}

	switch config.CaptureDriver {
	case "miniaudio", "portaudio":
	default:
		return Config{}, fmt.Errorf("unknown capture driver %q", config.CaptureDriver)
	}

	return config, nil
}
