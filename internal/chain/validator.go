package chain

import (
	"fmt"
	"strings"

	"courier/internal/assistant/ports"
)

// ValidationResult reports the outcome of a validation pass. Errors block
// execution; warnings are advisory and travel back to the caller.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// resolverTools can supply a recipient or conversation for a later
// send_message step.
var resolverTools = map[string]bool{
	"lookup_contacts":      true,
	"resolve_conversation": true,
}

// ValidateChain runs the structural pre-execution checks on a proposed
// chain. A non-empty Errors list means the chain must not be executed; no
// side effect has happened yet at this point.
func ValidateChain(steps []Step, registry ports.ToolRegistry) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(steps) == 0 {
		result.addError("chain is empty")
		return result
	}

	lookupCount := 0
	for i, step := range steps {
		if step.Tool == "" {
			result.addError("step %d has no tool name", i+1)
			continue
		}
		if registry != nil {
			if _, ok := registry.Get(step.Tool); !ok {
				result.addError("step %d references unknown tool %s", i+1, step.Tool)
			}
		}
		if i > 0 && steps[i-1].Tool == step.Tool {
			result.addError("steps %d and %d repeat tool %s consecutively", i, i+1, step.Tool)
		}
		if step.Tool == "lookup_contacts" {
			lookupCount++
		}
	}
	if lookupCount > 1 {
		result.addError("lookup_contacts appears %d times; at most once per chain", lookupCount)
	}

	for i, step := range steps {
		if step.Tool != "send_message" {
			continue
		}
		if hasConcreteParam(step.Parameters, "conversation_id") || hasConcreteParam(step.Parameters, "recipient_id") {
			continue
		}
		resolved := false
		for _, earlier := range steps[:i] {
			if resolverTools[earlier.Tool] {
				resolved = true
				break
			}
		}
		if !resolved {
			result.addError("step %d: send_message has no conversation_id or recipient_id and no preceding resolver step", i+1)
		}
	}
	return result
}

func hasConcreteParam(params map[string]any, key string) bool {
	if params == nil {
		return false
	}
	v, ok := params[key]
	return ok && !IsPlaceholder(v)
}

// toolParamChecks validates per-tool parameters independent of chain
// position, catching malformed calls the structural pass cannot see.
var toolParamChecks = map[string]func(params map[string]any, r *ValidationResult){
	"lookup_contacts": func(params map[string]any, r *ValidationResult) {
		requireString(params, "query", r)
	},
	"resolve_conversation": func(params map[string]any, r *ValidationResult) {
		if !hasConcreteParam(params, "contact_identifier") && !hasConcreteParam(params, "conversation_id") {
			r.addError("resolve_conversation requires contact_identifier or conversation_id")
		}
	},
	"get_conversation_info": func(params map[string]any, r *ValidationResult) {
		requireString(params, "conversation_id", r)
	},
	"get_messages": func(params map[string]any, r *ValidationResult) {
		requireString(params, "conversation_id", r)
		requirePositiveNumber(params, "max_messages", r)
	},
	"send_message": func(params map[string]any, r *ValidationResult) {
		requireString(params, "content", r)
		// Bracketed targets like "[recipient_id]" are not errors here:
		// the mapper fills them from an earlier resolver step, and the
		// structural pass rejects chains where no resolver precedes.
		// The executor fails the step if one survives mapping.
	},
	"summarize_conversation": func(params map[string]any, r *ValidationResult) {
		requirePositiveNumber(params, "max_messages", r)
	},
	"analyze_conversation": func(params map[string]any, r *ValidationResult) {
		requireString(params, "question", r)
	},
	"search_conversations": func(params map[string]any, r *ValidationResult) {
		requireString(params, "query", r)
	},
}

// ValidateToolParameters runs the per-tool schema checks for one call.
// Unknown tool names pass: the structural pass owns that error.
func ValidateToolParameters(toolName string, params map[string]any) *ValidationResult {
	result := &ValidationResult{Valid: true}
	check, ok := toolParamChecks[toolName]
	if !ok {
		return result
	}
	check(params, result)
	return result
}

func requireString(params map[string]any, key string, r *ValidationResult) {
	v, ok := params[key]
	if !ok || v == nil {
		r.addError("missing required parameter %s", key)
		return
	}
	s, ok := v.(string)
	if !ok {
		r.addError("parameter %s must be a string, got %T", key, v)
		return
	}
	if strings.TrimSpace(s) == "" {
		r.addError("parameter %s must not be empty", key)
	}
}

// requirePositiveNumber validates the parameter only when present; these
// knobs all have defaults.
func requirePositiveNumber(params map[string]any, key string, r *ValidationResult) {
	v, ok := params[key]
	if !ok || v == nil {
		return
	}
	n := numberValue(v)
	if n <= 0 {
		r.addError("parameter %s must be a positive number", key)
	}
}
