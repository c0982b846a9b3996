// Package telephony speaks the media-stream WebSocket protocol of the
// telephony provider: narrowband mulaw audio frames plus call-lifecycle
// events, addressed by stream SID.
package telephony

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
	EventMark      = "mark"
	EventClear     = "clear"
)

// Audio shape for media streams: 8-bit mulaw at 8 kHz.
const (
	AudioEncoding   = "audio/x-mulaw"
	AudioSampleRate = 8000
)

// Frame is one decoded inbound message.
type Frame struct {
	Event string

	// start
	StreamSID  string
	CallSID    string
	Parameters map[string]string

	// media
	Audio []byte

	// mark
	MarkName string
}

type wireFrame struct {
	Event     string     `json:"event"`
	StreamSid string     `json:"streamSid,omitempty"`
	Start     *wireStart `json:"start,omitempty"`
	Media     *wireMedia `json:"media,omitempty"`
	Mark      *wireMark  `json:"mark,omitempty"`
}

type wireStart struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

type wireMedia struct {
	Payload string `json:"payload"`
}

type wireMark struct {
	Name string `json:"name"`
}

// DecodeFrame parses one inbound message. Unknown events decode with
// just the Event field set; the session ignores what it doesn't know.
func DecodeFrame(data []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return Frame{}, fmt.Errorf("decode media frame: %w", err)
	}
	f := Frame{Event: strings.TrimSpace(w.Event), StreamSID: w.StreamSid}
	switch f.Event {
	case EventStart:
		if w.Start == nil {
			return Frame{}, fmt.Errorf("start frame missing start block")
		}
		f.StreamSID = w.Start.StreamSid
		f.CallSID = w.Start.CallSid
		f.Parameters = w.Start.CustomParameters
	case EventMedia:
		if w.Media == nil {
			return Frame{}, fmt.Errorf("media frame missing media block")
		}
		audio, err := base64.StdEncoding.DecodeString(w.Media.Payload)
		if err != nil {
			return Frame{}, fmt.Errorf("decode media payload: %w", err)
		}
		f.Audio = audio
	case EventMark:
		if w.Mark != nil {
			f.MarkName = w.Mark.Name
		}
	}
	return f, nil
}

// EncodeMedia renders an outbound audio frame for a stream.
func EncodeMedia(streamSID string, audio []byte) ([]byte, error) {
	return json.Marshal(wireFrame{
		Event:     EventMedia,
		StreamSid: streamSID,
		Media:     &wireMedia{Payload: base64.StdEncoding.EncodeToString(audio)},
	})
}

// EncodeClear renders the buffered-audio flush for a stream.
func EncodeClear(streamSID string) ([]byte, error) {
	return json.Marshal(wireFrame{Event: EventClear, StreamSid: streamSID})
}

// EncodeMark renders a playback mark request.
func EncodeMark(streamSID, name string) ([]byte, error) {
	return json.Marshal(wireFrame{
		Event:     EventMark,
		StreamSid: streamSID,
		Mark:      &wireMark{Name: name},
	})
}
