// Package realtime speaks the bidirectional event stream of the
// speech-to-speech AI engine: session configuration and audio out,
// response lifecycle, transcripts and function calls back in.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound event types the session cares about. Anything else decodes as
// Unknown and is skipped, not fatal: the engine adds event types faster
// than we care about them.
const (
	TypeSessionUpdated      = "session.updated"
	TypeResponseCreated     = "response.created"
	TypeResponseDone        = "response.done"
	TypeAudioDelta          = "response.audio.delta"
	TypeSpeechStarted       = "input_audio_buffer.speech_started"
	TypeUserTranscriptDone  = "conversation.item.input_audio_transcription.completed"
	TypeAssistantTranscript = "response.audio_transcript.done"
	TypeFunctionCallDone    = "response.function_call_arguments.done"
	TypeError               = "error"
)

// Event is one decoded inbound engine event.
type Event struct {
	Type string

	// response lifecycle
	ResponseID     string
	ResponseStatus string

	// audio delta, already base64-decoded by the caller when needed
	AudioB64 string

	// transcripts
	Transcript string

	// function call
	CallID    string
	ToolName  string
	Arguments json.RawMessage

	// error
	ErrCode    string
	ErrMessage string
}

type wireEvent struct {
	Type       string          `json:"type"`
	EventID    string          `json:"event_id,omitempty"`
	Delta      string          `json:"delta,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
	CallID     string          `json:"call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	Response   *struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"response,omitempty"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Decode parses one inbound engine message.
func Decode(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("decode engine event: %w", err)
	}
	ev := Event{Type: strings.TrimSpace(w.Type)}
	switch ev.Type {
	case TypeResponseCreated, TypeResponseDone:
		if w.Response != nil {
			ev.ResponseID = w.Response.ID
			ev.ResponseStatus = w.Response.Status
		}
	case TypeAudioDelta:
		ev.AudioB64 = w.Delta
	case TypeUserTranscriptDone, TypeAssistantTranscript:
		ev.Transcript = w.Transcript
	case TypeFunctionCallDone:
		ev.CallID = w.CallID
		ev.ToolName = w.Name
		ev.Arguments = w.Arguments
	case TypeError:
		if w.Error != nil {
			ev.ErrCode = w.Error.Code
			ev.ErrMessage = w.Error.Message
		}
	}
	return ev, nil
}

// TurnDetection configures the engine's server-side voice activity
// detection.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

// SessionConfig is the outbound session.update payload.
type SessionConfig struct {
	Instructions      string          `json:"instructions"`
	Voice             string          `json:"voice"`
	InputAudioFormat  string          `json:"input_audio_format"`
	OutputAudioFormat string          `json:"output_audio_format"`
	TurnDetection     TurnDetection   `json:"turn_detection"`
	Tools             json.RawMessage `json:"tools,omitempty"`
	Transcription     map[string]any  `json:"input_audio_transcription,omitempty"`
}

type outboundEvent struct {
	Type     string         `json:"type"`
	Session  *SessionConfig `json:"session,omitempty"`
	Audio    string         `json:"audio,omitempty"`
	Item     map[string]any `json:"item,omitempty"`
	Response map[string]any `json:"response,omitempty"`
}

// EncodeSessionUpdate renders the session configuration event.
func EncodeSessionUpdate(cfg SessionConfig) ([]byte, error) {
	return json.Marshal(outboundEvent{Type: "session.update", Session: &cfg})
}

// EncodeAudioAppend renders one outbound audio chunk (base64 payload).
func EncodeAudioAppend(audioB64 string) ([]byte, error) {
	return json.Marshal(outboundEvent{Type: "input_audio_buffer.append", Audio: audioB64})
}

// EncodeResponseCreate asks the engine to produce the next response.
// instructions may be empty.
func EncodeResponseCreate(instructions string) ([]byte, error) {
	ev := outboundEvent{Type: "response.create"}
	if strings.TrimSpace(instructions) != "" {
		ev.Response = map[string]any{"instructions": instructions}
	}
	return json.Marshal(ev)
}

// EncodeResponseCancel cancels the in-flight response.
func EncodeResponseCancel() ([]byte, error) {
	return json.Marshal(outboundEvent{Type: "response.cancel"})
}

// EncodeFunctionResult feeds a tool outcome back for the engine to
// speak.
func EncodeFunctionResult(callID string, output any) ([]byte, error) {
	raw, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("encode function output: %w", err)
	}
	return json.Marshal(outboundEvent{
		Type: "conversation.item.create",
		Item: map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  string(raw),
		},
	})
}
