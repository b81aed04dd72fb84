package chain

import (
	"regexp"
	"strings"

	"courier/internal/assistant/ports"
)

// MapFunc copies or derives fields from a finished tool's result into the
// parameters of a later tool. Implementations must be idempotent and must
// never overwrite a concrete value the planner supplied.
type MapFunc func(from *ports.ToolResult, params map[string]any)

type mappingKey struct {
	from string
	to   string
}

// Mapper fills parameter gaps the planner left between chain steps. The
// mapping table is finite and built at construction; an absent pair is a
// deliberate no-op.
type Mapper struct {
	table map[mappingKey]MapFunc
}

// NewMapper builds the mapper with the known tool-pair mappings.
func NewMapper() *Mapper {
	m := &Mapper{table: make(map[mappingKey]MapFunc)}
	m.register("lookup_contacts", "send_message", mapContactToSend)
	m.register("lookup_contacts", "resolve_conversation", mapContactToResolve)
	m.register("resolve_conversation", "send_message", mapConversationParam("conversation_id"))
	m.register("resolve_conversation", "get_messages", mapConversationParam("conversation_id"))
	m.register("get_messages", "summarize_conversation", mapConversationParam("conversation_id"))
	m.register("get_messages", "analyze_conversation", mapConversationParam("conversation_id"))
	return m
}

func (m *Mapper) register(from, to string, fn MapFunc) {
	m.table[mappingKey{from: from, to: to}] = fn
}

// Apply runs the mapping for the ordered (from, to) pair if one exists,
// returning params (mutated in place). Unknown pairs return params
// unchanged.
func (m *Mapper) Apply(fromTool string, fromResult *ports.ToolResult, toTool string, params map[string]any) map[string]any {
	if fromResult == nil || !fromResult.Success {
		return params
	}
	fn, ok := m.table[mappingKey{from: fromTool, to: toTool}]
	if !ok {
		return params
	}
	fn(fromResult, params)
	return params
}

// bracketToken matches unresolved planner placeholders like
// "[recipient_id]".
var bracketToken = regexp.MustCompile(`\[[^\]]*\]`)

// IsPlaceholder reports whether a parameter value still needs filling: it
// is missing, empty, a bracketed token, or an unresolved natural-language
// fragment (contains the literal word "from"). Planner-supplied concrete
// values are never placeholders.
func IsPlaceholder(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	if !ok {
		return false
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return true
	}
	if bracketToken.MatchString(trimmed) {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, word := range strings.Fields(lower) {
		if word == "from" {
			return true
		}
	}
	return false
}

// bestContact picks the contact to thread forward: the single match, or
// the highest-confidence one when several candidates exist.
func bestContact(from *ports.ToolResult) map[string]any {
	raw, ok := from.Data["contacts"]
	if !ok {
		return nil
	}
	contacts, ok := raw.([]map[string]any)
	if !ok {
		// Results decoded from JSON arrive as []any.
		anySlice, ok := raw.([]any)
		if !ok {
			return nil
		}
		for _, item := range anySlice {
			if c, ok := item.(map[string]any); ok {
				contacts = append(contacts, c)
			}
		}
	}
	if len(contacts) == 0 {
		return nil
	}
	best := contacts[0]
	bestConf := numberValue(best["confidence"])
	for _, c := range contacts[1:] {
		if conf := numberValue(c["confidence"]); conf > bestConf {
			best, bestConf = c, conf
		}
	}
	return best
}

func mapContactToSend(from *ports.ToolResult, params map[string]any) {
	if !IsPlaceholder(params["recipient_id"]) {
		return
	}
	if contact := bestContact(from); contact != nil {
		if id, ok := contact["id"].(string); ok && id != "" {
			params["recipient_id"] = id
		}
	}
}

func mapContactToResolve(from *ports.ToolResult, params map[string]any) {
	if !IsPlaceholder(params["contact_identifier"]) {
		return
	}
	contact := bestContact(from)
	if contact == nil {
		return
	}
	if email, ok := contact["email"].(string); ok && email != "" {
		params["contact_identifier"] = email
		return
	}
	if id, ok := contact["id"].(string); ok && id != "" {
		params["contact_identifier"] = id
	}
}

// mapConversationParam forwards the source result's conversation_id into
// the named parameter.
func mapConversationParam(param string) MapFunc {
	return func(from *ports.ToolResult, params map[string]any) {
		if !IsPlaceholder(params[param]) {
			return
		}
		if id, ok := from.Data["conversation_id"].(string); ok && id != "" {
			params[param] = id
		}
	}
}

func numberValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
