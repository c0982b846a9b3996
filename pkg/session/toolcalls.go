package session

import (
	"encoding/json"
	"strings"

	"github.com/adascal/voicedesk/pkg/realtime"
	"github.com/adascal/voicedesk/pkg/tools"
)

// handleToolCall runs on the serialized worker. Identical (tool, RO)
// calls inside the debounce window replay the cached result instead of
// hitting the bridge again; the engine re-issues calls after cancelled
// responses.
func (s *CallSession) handleToolCall(ev realtime.Event) {
	args := decodeArgs(ev.Arguments)
	ro, when := argFields(args)
	key := strings.ToLower(strings.TrimSpace(ev.ToolName)) + "|" + ro

	now := s.now()
	s.mu.Lock()
	cached, hit := s.arena.recent(key, now)
	s.mu.Unlock()
	if hit {
		s.log.Info("tool call debounced", "tool", ev.ToolName, "ro", ro)
		s.sendToolResult(ev.CallID, cached)
		return
	}

	res := s.deps.Bridge.Execute(s.ctx, ev.ToolName, args)

	s.mu.Lock()
	s.arena.remember(key, res, now)
	if res.Needs == "override_confirmation" {
		s.ops.overridePending = true
		s.ops.pendingRO = ro
		s.ops.pendingWhen = when
	}
	s.mu.Unlock()

	s.sendToolResult(ev.CallID, res)
}

// sendToolResult feeds the outcome back and triggers exactly one
// follow-up response so the assistant speaks it.
func (s *CallSession) sendToolResult(callID string, res tools.Result) {
	if err := s.deps.Engine.SendFunctionResult(callID, res); err != nil {
		s.log.Warn("function result send failed", "error", err)
		return
	}
	s.createResponse("")
}

// decodeArgs unwraps string-encoded argument payloads; the engine
// sends arguments as a JSON string containing JSON.
func decodeArgs(raw json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil {
			return json.RawMessage(inner)
		}
	}
	return raw
}

func argFields(args json.RawMessage) (ro, when string) {
	var in struct {
		RO   string `json:"ro"`
		When string `json:"when"`
	}
	_ = json.Unmarshal(args, &in)
	return strings.TrimSpace(in.RO), strings.TrimSpace(in.When)
}
