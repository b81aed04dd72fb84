// Package chain validates and executes planner-produced tool chains: an
// ordered list of tool invocations with parameter propagation between
// steps. Chains are short, produced externally and never re-planned here.
package chain

import (
	"context"
	"fmt"
	"time"

	"courier/internal/assistant/ports"
	courerrors "courier/internal/errors"
	"courier/internal/shared/logging"
)

// userFacing rewrites a tool error for the presentation layer.
func userFacing(err error) string {
	return courerrors.UserMessage(err)
}

// Step is one entry of a tool chain.
type Step struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// criticalTools halt the remaining chain when they fail: later steps
// depend on their output and would only produce noise.
var criticalTools = map[string]bool{
	"lookup_contacts":      true,
	"resolve_conversation": true,
}

// Executor runs a validated chain step by step.
type Executor struct {
	registry  ports.ToolRegistry
	mapper    *Mapper
	maxLength int
	metrics   *Metrics
	logger    logging.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxChainLength overrides the step ceiling (default 5).
func WithMaxChainLength(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxLength = n
		}
	}
}

// WithMetrics attaches a metrics instance.
func WithMetrics(m *Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// WithLogger attaches a logger.
func WithLogger(logger logging.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logging.OrNop(logger) }
}

// NewExecutor creates an executor bound to a registry.
func NewExecutor(registry ports.ToolRegistry, mapper *Mapper, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:  registry,
		mapper:    mapper,
		maxLength: 5,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = defaultMetrics()
	}
	return e
}

// Execute runs each step in order, mapping parameters forward between
// steps. The returned list may be shorter than the chain: a failing
// critical tool or a clarification stops execution, and the ceiling
// truncates overlong chains. Errors and panics inside a tool become
// failed results, never escape.
func (e *Executor) Execute(ctx context.Context, steps []Step, tc *ports.ToolContext) []*ports.ToolResult {
	e.metrics.IncActiveChains()
	defer e.metrics.DecActiveChains()

	previous := make(map[string]*ports.ToolResult, len(steps))
	var executed []Step
	results := make([]*ports.ToolResult, 0, len(steps))

	for i, step := range steps {
		if i >= e.maxLength {
			e.logger.Warn("chain truncated at %d steps (request %s)", e.maxLength, tc.RequestID)
			e.metrics.IncChainAbort("max_length")
			break
		}
		position := i + 1

		params := step.Parameters
		if params == nil {
			params = make(map[string]any)
		}
		// Fill gaps the planner left, oldest step first. Mappings only
		// fill placeholders, so the first result to fill a parameter
		// wins and later ones leave it alone.
		for _, prev := range executed {
			if from, ok := previous[prev.Tool]; ok {
				params = e.mapper.Apply(prev.Tool, from, step.Tool, params)
			}
		}

		result := e.runStep(ctx, step.Tool, params, tc, position)
		results = append(results, result)
		previous[step.Tool] = result
		executed = append(executed, step)

		if result.NextAction == ports.NextClarification {
			e.metrics.IncClarification()
			break
		}
		if !result.Success && criticalTools[step.Tool] {
			e.logger.Info("critical tool %s failed, aborting chain (request %s)", step.Tool, tc.RequestID)
			e.metrics.IncChainAbort("critical_failure")
			break
		}
	}
	return results
}

// runStep invokes one tool, containing panics and converting errors into
// failed results.
func (e *Executor) runStep(ctx context.Context, name string, params map[string]any, tc *ports.ToolContext, position int) (result *ports.ToolResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool %s panicked: %v", name, r)
			result = ports.Failure("tool %s failed unexpectedly", name)
		}
		result.Meta.ToolName = name
		result.Meta.ChainPosition = position
		result.Meta.Duration = time.Since(start)
		status := "ok"
		if !result.Success {
			status = "error"
		}
		e.metrics.ObserveStepDuration(name, status, result.Meta.Duration)
	}()

	if name == "send_message" {
		// Bracketed targets that survived mapping mean no earlier step
		// could resolve them; drop them so the tool does not chase a
		// literal "[conversation_id]" into the store.
		for _, key := range []string{"conversation_id", "recipient_id"} {
			if s, ok := params[key].(string); ok && IsPlaceholder(s) {
				delete(params, key)
			}
		}
		if !hasConcreteParam(params, "conversation_id") && !hasConcreteParam(params, "recipient_id") {
			return ports.Failure("send_message: recipient and conversation are still unresolved after parameter mapping")
		}
	}

	tool, ok := e.registry.Get(name)
	if !ok {
		// A missing tool fails its own position only; the critical set
		// never contains unregistered names so the chain continues.
		return ports.Failure("unknown tool: %s", name)
	}

	stepCtx := *tc
	stepCtx.ChainPosition = position
	call := ports.ToolCall{
		ID:        fmt.Sprintf("%s-%d", tc.RequestID, position),
		Name:      name,
		Arguments: params,
		Context:   &stepCtx,
	}

	res, err := tool.Execute(ctx, call)
	if err != nil {
		e.logger.Warn("tool %s returned %s error: %v", name, courerrors.GetErrorType(err), err)
		return ports.Failure("%s", userFacing(err))
	}
	if res == nil {
		return ports.Failure("tool %s returned no result", name)
	}
	return res
}
