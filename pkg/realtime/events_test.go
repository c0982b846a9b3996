package realtime

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeTranscript(t *testing.T) {
	raw := `{"type":"conversation.item.input_audio_transcription.completed","transcript":"the RO is 3095"}`
	ev, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != TypeUserTranscriptDone {
		t.Fatalf("type = %q", ev.Type)
	}
	if ev.Transcript != "the RO is 3095" {
		t.Fatalf("transcript = %q", ev.Transcript)
	}
}

func TestDecodeResponseLifecycle(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"response.created","response":{"id":"resp_1","status":"in_progress"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ResponseID != "resp_1" || ev.ResponseStatus != "in_progress" {
		t.Fatalf("response = %q %q", ev.ResponseID, ev.ResponseStatus)
	}

	ev, err = Decode([]byte(`{"type":"response.done","response":{"id":"resp_1","status":"cancelled"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != TypeResponseDone || ev.ResponseStatus != "cancelled" {
		t.Fatalf("done = %+v", ev)
	}
}

func TestDecodeFunctionCall(t *testing.T) {
	raw := `{"type":"response.function_call_arguments.done","call_id":"call_9","name":"schedule_job","arguments":"{\"ro_number\":\"3095\"}"}`
	ev, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.CallID != "call_9" || ev.ToolName != "schedule_job" {
		t.Fatalf("call = %+v", ev)
	}
	var args string
	if err := json.Unmarshal(ev.Arguments, &args); err != nil {
		t.Fatalf("arguments: %v", err)
	}
	if !strings.Contains(args, "3095") {
		t.Fatalf("args = %q", args)
	}
}

func TestDecodeError(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"error","error":{"code":"session_expired","message":"gone"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ErrCode != "session_expired" || ev.ErrMessage != "gone" {
		t.Fatalf("error = %+v", ev)
	}
}

func TestDecodeUnknownTypeIsNotFatal(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"rate_limits.updated"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != "rate_limits.updated" {
		t.Fatalf("type = %q", ev.Type)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{nope`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestEncodeSessionUpdate(t *testing.T) {
	data, err := EncodeSessionUpdate(SessionConfig{
		Instructions:      "you handle intake calls",
		Voice:             "alloy",
		InputAudioFormat:  "g711_ulaw",
		OutputAudioFormat: "g711_ulaw",
		TurnDetection:     TurnDetection{Type: "server_vad", Threshold: 0.5, SilenceDurationMS: 500},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if m["type"] != "session.update" {
		t.Fatalf("type = %v", m["type"])
	}
	sess, ok := m["session"].(map[string]any)
	if !ok {
		t.Fatal("missing session")
	}
	if sess["voice"] != "alloy" {
		t.Fatalf("voice = %v", sess["voice"])
	}
}

func TestEncodeResponseCreate(t *testing.T) {
	data, err := EncodeResponseCreate("greet the caller")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp, ok := m["response"].(map[string]any)
	if !ok || resp["instructions"] != "greet the caller" {
		t.Fatalf("response = %v", m["response"])
	}

	data, err = EncodeResponseCreate("")
	if err != nil {
		t.Fatalf("encode empty: %v", err)
	}
	if strings.Contains(string(data), "response") {
		t.Fatalf("empty instructions should omit response: %s", data)
	}
}

func TestEncodeFunctionResult(t *testing.T) {
	data, err := EncodeFunctionResult("call_9", map[string]any{"ok": true, "say": "done"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	item, ok := m["item"].(map[string]any)
	if !ok {
		t.Fatal("missing item")
	}
	if item["call_id"] != "call_9" || item["type"] != "function_call_output" {
		t.Fatalf("item = %v", item)
	}
	out, _ := item["output"].(string)
	if !strings.Contains(out, `"say":"done"`) {
		t.Fatalf("output = %q", out)
	}
}
