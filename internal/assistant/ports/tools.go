package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Tool is a single named capability with a declared parameter schema.
// Implementations must never let a panic or an error escape as partial
// state: the executor converts returned errors into failed results, and
// tools are expected to report collaborator failures the same way.
type Tool interface {
	// Definition returns the tool's schema for the planner
	Definition() ToolDefinition

	// Execute runs the tool with the given call
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)
}

// ToolRegistry manages available tools
type ToolRegistry interface {
	// Register adds a tool by name, overwriting any prior registration
	Register(tool Tool)

	// Get retrieves a tool by name; ok is false when unknown
	Get(name string) (Tool, bool)

	// List returns all registered tool definitions
	List() []ToolDefinition

	// Names returns the registered tool names, sorted
	Names() []string
}

// ToolDefinition describes a tool for the planner
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterSpec `json:"parameters"`
}

// ParameterSpec defines a single tool parameter
type ParameterSpec struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"` // string, number, boolean, array, object
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	Items       *ItemSpec `json:"items,omitempty"`
}

// ItemSpec constrains elements of an array parameter
type ItemSpec struct {
	Type string   `json:"type"`
	Enum []string `json:"enum,omitempty"`
}

// Validate checks structural invariants of the definition. Parameter names
// must be unique within a tool.
func (d ToolDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("tool definition missing name")
	}
	seen := make(map[string]bool, len(d.Parameters))
	for _, p := range d.Parameters {
		if p.Name == "" {
			return fmt.Errorf("tool %s: parameter with empty name", d.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("tool %s: duplicate parameter %s", d.Name, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Param returns the spec for a parameter name, if declared.
func (d ToolDefinition) Param(name string) (ParameterSpec, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// ToolCall represents a request to execute a tool
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Context   *ToolContext   `json:"-"`
}

// ToolContext carries per-request state down the chain. Tools read it and
// may only append chain-position metadata; they never mutate identity
// fields.
type ToolContext struct {
	UserID        string      `json:"user_id"`
	RequestID     string      `json:"request_id"`
	App           *AppContext `json:"app_context,omitempty"`
	ChainPosition int         `json:"chain_position"` // 1-indexed
}

// AppContext describes where the user currently is in the client
type AppContext struct {
	CurrentScreen         string   `json:"current_screen,omitempty"`
	CurrentConversationID string   `json:"current_conversation_id,omitempty"`
	RecentConversationIDs []string `json:"recent_conversation_ids,omitempty"`
}

// NextAction tells the caller what should happen after a tool result
type NextAction string

const (
	NextContinue      NextAction = "continue"
	NextClarification NextAction = "clarification_needed"
	NextComplete      NextAction = "complete"
	NextError         NextAction = "error"
)

// ToolResult is the universal return contract for every tool and for the
// executor. The presentation layer renders exactly this shape whether the
// outcome is a definite answer, a clarification or an error.
type ToolResult struct {
	Success          bool               `json:"success"`
	Data             map[string]any     `json:"data,omitempty"`
	Error            string             `json:"error,omitempty"`
	Confidence       float64            `json:"confidence,omitempty"`
	NextAction       NextAction         `json:"next_action,omitempty"`
	Clarification    *ClarificationData `json:"clarification,omitempty"`
	InstructionForAI string             `json:"instruction_for_ai,omitempty"`
	Meta             ResultMeta         `json:"metadata"`
}

// ResultMeta records execution bookkeeping attached by the executor.
// Duration travels over the wire as whole milliseconds.
type ResultMeta struct {
	ToolName      string        `json:"-"`
	ChainPosition int           `json:"-"`
	Duration      time.Duration `json:"-"`
	CacheHit      bool          `json:"-"`
}

type resultMetaWire struct {
	ToolName      string `json:"tool_name,omitempty"`
	ChainPosition int    `json:"chain_position,omitempty"`
	DurationMS    int64  `json:"duration_ms,omitempty"`
	CacheHit      bool   `json:"cache_hit,omitempty"`
}

func (m ResultMeta) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultMetaWire{
		ToolName:      m.ToolName,
		ChainPosition: m.ChainPosition,
		DurationMS:    m.Duration.Milliseconds(),
		CacheHit:      m.CacheHit,
	})
}

func (m *ResultMeta) UnmarshalJSON(data []byte) error {
	var wire resultMetaWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.ToolName = wire.ToolName
	m.ChainPosition = wire.ChainPosition
	m.Duration = time.Duration(wire.DurationMS) * time.Millisecond
	m.CacheHit = wire.CacheHit
	return nil
}

// Failure builds a failed result with a human-readable error.
func Failure(format string, args ...any) *ToolResult {
	return &ToolResult{
		Success:    false,
		Error:      fmt.Sprintf(format, args...),
		NextAction: NextError,
	}
}

// Success builds a successful result carrying the given payload.
func SuccessResult(data map[string]any) *ToolResult {
	return &ToolResult{
		Success:    true,
		Data:       data,
		NextAction: NextContinue,
	}
}

// Clarify builds a clarification result. The chain stops at this result
// and the caller re-submits the original command with the user's choice.
func Clarify(data *ClarificationData, instruction string) *ToolResult {
	return &ToolResult{
		Success:          true,
		NextAction:       NextClarification,
		Clarification:    data,
		InstructionForAI: instruction,
	}
}
