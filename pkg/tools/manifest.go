// Package tools maps the speech engine's function calls onto the
// dispatch engine and the record store, enforcing the guards the
// conversation flow depends on.
package tools

import "encoding/json"

// Definition is one tool as advertised to the speech engine: a flat
// JSON-schema object, no vendor extensions.
type Definition struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func def(name, description string, required []string, props map[string]any) Definition {
	if required == nil {
		required = []string{}
	}
	return Definition{
		Type:        "function",
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

func roProp() map[string]any {
	return map[string]any{"type": "string", "description": "Repair order number, digits only"}
}

// EncodeManifest renders a manifest for the session configuration
// payload.
func EncodeManifest(defs []Definition) (json.RawMessage, error) {
	return json.Marshal(defs)
}

// OpsManifest lists the tools exposed to the shop-intake assistant.
func OpsManifest() []Definition {
	return []Definition{
		def("get_job_summary", "Look up a repair order and summarize its current state.",
			[]string{"ro"}, map[string]any{"ro": roProp()}),
		def("check_readiness", "Evaluate whether a repair order is ready for calibration scheduling.",
			[]string{"ro"}, map[string]any{"ro": roProp()}),
		def("assign_technician", "Assign a calibration technician to a scheduled repair order.",
			[]string{"ro"}, map[string]any{"ro": roProp()}),
		def("schedule_job", "Schedule a repair order for calibration at a spoken date and time.",
			[]string{"ro", "when"}, map[string]any{
				"ro":       roProp(),
				"when":     map[string]any{"type": "string", "description": "Spoken date/time phrase"},
				"override": map[string]any{"type": "boolean", "description": "Caller confirmed scheduling despite soft blockers"},
			}),
		def("reschedule_job", "Move an already-scheduled repair order to a new date and time.",
			[]string{"ro", "when"}, map[string]any{
				"ro":   roProp(),
				"when": map[string]any{"type": "string", "description": "Spoken date/time phrase"},
			}),
		def("cancel_job", "Cancel the calibration appointment for a repair order.",
			[]string{"ro"}, map[string]any{"ro": roProp()}),
		def("oem_lookup", "Look up OEM calibration requirements for a vehicle.",
			[]string{"query"}, map[string]any{
				"query": map[string]any{"type": "string", "description": "Make, model and system to look up"},
			}),
	}
}

// TechManifest lists the tools exposed to the technician assistant.
func TechManifest() []Definition {
	return []Definition{
		def("lookup_job", "Look up a repair order for the technician.",
			[]string{"ro"}, map[string]any{"ro": roProp()}),
		def("append_note", "Append a technician note to a repair order.",
			[]string{"ro", "note"}, map[string]any{
				"ro":   roProp(),
				"note": map[string]any{"type": "string", "description": "Free-text note"},
			}),
		def("cancel_job", "Cancel the calibration appointment for a repair order.",
			[]string{"ro"}, map[string]any{"ro": roProp()}),
		def("oem_lookup", "Look up OEM calibration requirements for a vehicle.",
			[]string{"query"}, map[string]any{
				"query": map[string]any{"type": "string", "description": "Make, model and system to look up"},
			}),
	}
}
