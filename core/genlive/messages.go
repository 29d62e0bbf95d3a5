package genlive

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// The wire envelope is JSON either way; binary frames carry the same JSON
// bytes and are normalized before dispatch. Outbound and inbound messages are
// closed tagged unions so nothing downstream touches a loosely-typed graph.

type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model             string                `json:"model"`
	GenerationConfig  generationConfig      `json:"generation_config"`
	SystemInstruction *messageContent       `json:"system_instruction,omitempty"`
	Tools             []toolDeclarationBody `json:"tools,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"response_modalities"`
	SpeechConfig       *speechConfig `json:"speech_config,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voice_config"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuilt_voice_config"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voice_name"`
}

type messageContent struct {
	Parts []messagePart `json:"parts"`
}

type messagePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

type toolDeclarationBody struct {
	FunctionDeclarations []functionDeclaration `json:"function_declarations"`
}

type functionDeclaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// ToolDeclaration describes one client-side capability announced in the
// setup message. Parameters is a struct prototype whose JSON schema is
// reflected onto the wire.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  any
}

func (t ToolDeclaration) toWire() functionDeclaration {
	declaration := functionDeclaration{Name: t.Name, Description: t.Description}
	if t.Parameters != nil {
		reflector := jsonschema.Reflector{DoNotReference: true}
		declaration.Parameters = reflector.Reflect(t.Parameters)
		declaration.Parameters.Version = ""
	}
	return declaration
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtime_input"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"media_chunks"`
}

type mediaChunk struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type toolResponseMessage struct {
	ToolResponse toolResponse `json:"tool_response"`
}

type toolResponse struct {
	FunctionResponses []FunctionResponse `json:"function_responses"`
}

// FunctionResponse acknowledges one executed tool call, correlated by the
// id the model attached to the call.
type FunctionResponse struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Response any    `json:"response"`
}

// FunctionCall is a structured request from the model to perform a named
// side effect on the client.
type FunctionCall struct {
	Name string          `json:"name"`
	ID   string          `json:"id"`
	Args json.RawMessage `json:"args,omitempty"`
}

type serverMessage struct {
	Error         *serverError         `json:"error,omitempty"`
	ToolCall      *serverToolCall      `json:"toolCall,omitempty"`
	ServerContent *serverContentDetail `json:"serverContent,omitempty"`
}

type serverError struct {
	Message string `json:"message"`
}

type serverToolCall struct {
	FunctionCalls []FunctionCall `json:"functionCalls"`
}

type serverContentDetail struct {
	ModelTurn    *messageContent `json:"modelTurn,omitempty"`
	TurnComplete bool            `json:"turnComplete,omitempty"`
}

func parseServerMessage(raw []byte) (*serverMessage, error) {
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server message: %w", err)
	}
	return &msg, nil
}
