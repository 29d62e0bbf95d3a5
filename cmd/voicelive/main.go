// Command voicelive is a terminal front end for the realtime voice client:
// it captures the microphone, streams it to the live generative-speech
// service, plays the synthesized replies, and renders the rolling
// transcript and session state.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	voiceclient "github.com/lkrilov/voicelive/core"
	"github.com/lkrilov/voicelive/core/audio/miniaudio"
	"github.com/lkrilov/voicelive/core/audio/portaudio"
	"github.com/lkrilov/voicelive/core/genlive"
	"github.com/lkrilov/voicelive/core/recognition/deepgram"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "voicelive:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	config, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	apiKey := config.APIKey
	if config.TokenEndpoint != "" {
		token, err := genlive.FetchEphemeralToken(context.Background(), config.TokenEndpoint, config.APIKey)
		if err != nil {
			return fmt.Errorf("failed to mint session token: %w", err)
		}
		apiKey = token.Token
	}

	audioClient, err := miniaudio.NewClient()
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer audioClient.Close()

	opts := []voiceclient.ClientOption{
		voiceclient.WithAudioOutput(audioClient),
		voiceclient.WithSession(genlive.SessionConfig{
			Endpoint:          config.Endpoint,
			APIKey:            apiKey,
			Model:             config.Model,
			Voice:             config.Voice,
			SystemInstruction: config.SystemInstruction,
		}),
	}

	switch config.CaptureDriver {
	case "portaudio":
		capture, err := portaudio.NewClient(0)
		if err != nil {
			return fmt.Errorf("failed to initialize portaudio capture: %w", err)
		}
		defer capture.Close()
		opts = append(opts, voiceclient.WithAudioInput(capture))
	default:
		opts = append(opts, voiceclient.WithAudioInput(audioClient))
	}

	if config.LocalTranscription {
		opts = append(opts, voiceclient.WithRecognizer(deepgram.NewClient()))
	}

	// The navigator needs the program and the program's model needs the
	// client, so the program pointer is bound late.
	var program *tea.Program
	opts = append(opts, voiceclient.WithNavigator(func(page string) {
		if program != nil {
			program.Send(navigateMsg{page: page})
		}
	}))

	client := voiceclient.New(opts...)
	defer client.Close()

	program = tea.NewProgram(newModel(client), tea.WithAltScreen())

	unsubscribe := client.Subscribe(
		func(state voiceclient.ActivityState) { program.Send(activityMsg{state: state}) },
		func(entries []voiceclient.TranscriptEntry) { program.Send(transcriptMsg{entries: entries}) },
		func(err error) { program.Send(errorMsg{err: err}) },
	)
	defer unsubscribe()

	if err := client.Connect(context.Background()); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	_, err = program.Run()
	return err
}
