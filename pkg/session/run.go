package session

import (
	"encoding/base64"
	"time"

	"github.com/adascal/voicedesk/pkg/realtime"
	"github.com/adascal/voicedesk/pkg/telephony"
	"github.com/adascal/voicedesk/pkg/transcript"
)

// goodbyeMark tags the end of goodbye playback on the media stream.
const goodbyeMark = "goodbye-complete"

// phoneLoop pumps telephony frames. Media goes straight to the engine
// so audio never waits on turn processing.
func (s *CallSession) phoneLoop() {
	for {
		f, err := s.deps.Phone.ReadFrame()
		if err != nil {
			s.cancel()
			return
		}
		switch f.Event {
		case telephony.EventStart:
			s.mu.Lock()
			s.callSID = f.CallSID
			s.streamSID = f.StreamSID
			s.mu.Unlock()
			s.deps.Phone.SetStreamSID(f.StreamSID)
			s.log.Info("call started", "call_sid", f.CallSID, "stream_sid", f.StreamSID)
		case telephony.EventMedia:
			if len(f.Audio) == 0 {
				continue
			}
			if err := s.deps.Engine.AppendAudio(base64.StdEncoding.EncodeToString(f.Audio)); err != nil {
				s.log.Warn("audio forward failed", "error", err)
				s.cancel()
				return
			}
		case telephony.EventMark:
			// the provider echoes a mark once everything queued
			// before it has played out
			if f.MarkName == goodbyeMark {
				s.log.Info("goodbye playback drained")
				s.Close()
				return
			}
		case telephony.EventStop:
			s.log.Info("caller hung up")
			s.cancel()
			return
		}
	}
}

func (s *CallSession) handleEngineEvent(ev realtime.Event) {
	switch ev.Type {
	case realtime.TypeSessionUpdated:
		s.mu.Lock()
		first := !s.greeted
		s.greeted = true
		s.mu.Unlock()
		if first {
			// let the media stream settle before speaking
			time.AfterFunc(s.cfg.SettleDelay, func() {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.createResponse(greetingFor(s.Kind))
			})
		}

	case realtime.TypeResponseCreated:
		s.mu.Lock()
		s.responseActive = true
		s.lastResponseID = ev.ResponseID
		s.mu.Unlock()

	case realtime.TypeResponseDone:
		s.mu.Lock()
		s.responseActive = false
		closing := s.closing
		s.mu.Unlock()
		if closing {
			// the mark comes back when the goodbye has played;
			// the timer is the fallback if it never does
			if err := s.deps.Phone.SendMark(goodbyeMark); err != nil {
				s.log.Warn("goodbye mark failed", "error", err)
			}
			time.AfterFunc(s.cfg.HangupDelay, s.Close)
		}

	case realtime.TypeAudioDelta:
		audio, err := base64.StdEncoding.DecodeString(ev.AudioB64)
		if err != nil {
			s.log.Warn("bad audio delta", "error", err)
			return
		}
		if err := s.deps.Phone.SendAudio(audio); err != nil {
			s.log.Warn("audio send failed", "error", err)
		}

	case realtime.TypeSpeechStarted:
		s.bargeIn()

	case realtime.TypeUserTranscriptDone:
		text := ev.Transcript
		s.mu.Lock()
		s.transcript.Append(transcript.RoleUser, text, s.now())
		s.mu.Unlock()
		s.enqueue(func() { s.processUserTurn(text) })

	case realtime.TypeAssistantTranscript:
		s.mu.Lock()
		s.transcript.Append(transcript.RoleAssistant, ev.Transcript, s.now())
		s.mu.Unlock()

	case realtime.TypeFunctionCallDone:
		s.enqueue(func() { s.handleToolCall(ev) })

	case realtime.TypeError:
		// engine errors are logged, never fatal to the call
		s.log.Warn("engine error", "code", ev.ErrCode, "message", ev.ErrMessage)
	}
}

// bargeIn cancels the in-flight response and flushes buffered outbound
// audio so the assistant never talks over the caller.
func (s *CallSession) bargeIn() {
	s.mu.Lock()
	active := s.responseActive
	s.mu.Unlock()
	if active {
		if err := s.deps.Engine.CancelResponse(); err != nil {
			s.log.Warn("barge-in cancel failed", "error", err)
		}
	}
	if err := s.deps.Phone.Clear(); err != nil {
		s.log.Warn("barge-in clear failed", "error", err)
	}
}
