package chain

import (
	"context"
	"fmt"
	"testing"

	"courier/internal/assistant/ports"
	"courier/internal/toolregistry"

	"github.com/prometheus/client_golang/prometheus"
)

// fakeTool returns scripted results and records the arguments it was
// called with.
type fakeTool struct {
	name    string
	result  *ports.ToolResult
	err     error
	panics  bool
	lastArg map[string]any
	calls   int
}

func (f *fakeTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{Name: f.name, Description: "test tool"}
}

func (f *fakeTool) Execute(_ context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	f.calls++
	f.lastArg = call.Arguments
	if f.panics {
		panic("boom")
	}
	return f.result, f.err
}

func testExecutor(t *testing.T, tools ...*fakeTool) (*Executor, *toolregistry.Registry) {
	t.Helper()
	reg := toolregistry.NewRegistry(nil)
	for _, tool := range tools {
		reg.Register(tool)
	}
	metrics := MustNewMetrics(prometheus.NewRegistry())
	return NewExecutor(reg, NewMapper(), WithMetrics(metrics)), reg
}

func testContext() *ports.ToolContext {
	return &ports.ToolContext{UserID: "u1", RequestID: "req-1"}
}

func TestExecuteRunsAllSteps(t *testing.T) {
	a := &fakeTool{name: "get_messages", result: ports.SuccessResult(map[string]any{"conversation_id": "c1"})}
	b := &fakeTool{name: "summarize_conversation", result: ports.SuccessResult(nil)}
	e, _ := testExecutor(t, a, b)

	results := e.Execute(context.Background(), []Step{
		{Tool: "get_messages", Parameters: map[string]any{"conversation_id": "c1"}},
		{Tool: "summarize_conversation"},
	}, testContext())

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if !r.Success {
			t.Fatalf("step %d failed: %s", i+1, r.Error)
		}
		if r.Meta.ChainPosition != i+1 {
			t.Fatalf("step %d position = %d", i+1, r.Meta.ChainPosition)
		}
	}
	if b.lastArg["conversation_id"] != "c1" {
		t.Fatalf("conversation_id not mapped forward, got %v", b.lastArg["conversation_id"])
	}
}

func TestExecuteCriticalFailureStopsChain(t *testing.T) {
	lookup := &fakeTool{name: "lookup_contacts", result: ports.Failure("no contacts found")}
	send := &fakeTool{name: "send_message", result: ports.SuccessResult(nil)}
	e, _ := testExecutor(t, lookup, send)

	results := e.Execute(context.Background(), []Step{
		{Tool: "lookup_contacts", Parameters: map[string]any{"query": "john"}},
		{Tool: "send_message", Parameters: map[string]any{"content": "hi"}},
	}, testContext())

	if len(results) != 1 {
		t.Fatalf("expected chain to stop after critical failure, got %d results", len(results))
	}
	if send.calls != 0 {
		t.Fatalf("send_message should not have run")
	}
}

func TestExecuteNonCriticalFailureContinues(t *testing.T) {
	info := &fakeTool{name: "get_conversation_info", result: ports.Failure("backend down")}
	send := &fakeTool{name: "send_message", result: ports.SuccessResult(nil)}
	e, _ := testExecutor(t, info, send)

	results := e.Execute(context.Background(), []Step{
		{Tool: "get_conversation_info", Parameters: map[string]any{"conversation_id": "c1"}},
		{Tool: "send_message", Parameters: map[string]any{"conversation_id": "c1", "content": "hi"}},
	}, testContext())

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Success {
		t.Fatalf("first step should have failed")
	}
	if !results[1].Success {
		t.Fatalf("second step should still run and succeed")
	}
}

func TestExecuteUnknownToolFailsItsStepOnly(t *testing.T) {
	send := &fakeTool{name: "send_message", result: ports.SuccessResult(nil)}
	e, _ := testExecutor(t, send)

	results := e.Execute(context.Background(), []Step{
		{Tool: "no_such_tool"},
		{Tool: "send_message", Parameters: map[string]any{"conversation_id": "c1", "content": "hi"}},
	}, testContext())

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Success {
		t.Fatalf("unknown tool should produce a failed result")
	}
	if results[0].Error != "unknown tool: no_such_tool" {
		t.Fatalf("unexpected error: %q", results[0].Error)
	}
	if !results[1].Success {
		t.Fatalf("chain should continue past the unknown tool")
	}
}

func TestExecuteContainsPanics(t *testing.T) {
	bad := &fakeTool{name: "get_messages", panics: true}
	e, _ := testExecutor(t, bad)

	results := e.Execute(context.Background(), []Step{{Tool: "get_messages"}}, testContext())

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Success {
		t.Fatalf("panicking tool should produce a failed result")
	}
	if results[0].Meta.ToolName != "get_messages" {
		t.Fatalf("metadata missing after panic: %+v", results[0].Meta)
	}
}

func TestExecuteClarificationStopsChain(t *testing.T) {
	data, err := ports.NewClarification(ports.ClarifyContactSelection, "Which John?", []ports.ClarificationOption{
		{ID: "u2", Title: "John Smith", Confidence: 0.6},
		{ID: "u3", Title: "John Doe", Confidence: 0.4},
	})
	if err != nil {
		t.Fatalf("NewClarification: %v", err)
	}
	lookup := &fakeTool{name: "lookup_contacts", result: ports.Clarify(data, "ask the user to pick a contact")}
	send := &fakeTool{name: "send_message", result: ports.SuccessResult(nil)}
	e, _ := testExecutor(t, lookup, send)

	results := e.Execute(context.Background(), []Step{
		{Tool: "lookup_contacts", Parameters: map[string]any{"query": "john"}},
		{Tool: "send_message", Parameters: map[string]any{"content": "hi"}},
	}, testContext())

	if len(results) != 1 {
		t.Fatalf("expected chain to pause at clarification, got %d results", len(results))
	}
	if results[0].NextAction != ports.NextClarification {
		t.Fatalf("next action = %s", results[0].NextAction)
	}
	if results[0].Clarification.BestOption.ID != "u2" {
		t.Fatalf("best option = %s", results[0].Clarification.BestOption.ID)
	}
	if send.calls != 0 {
		t.Fatalf("send_message should not have run")
	}
}

func TestExecuteTruncatesAtMaxLength(t *testing.T) {
	tool := &fakeTool{name: "get_conversation_info", result: ports.SuccessResult(nil)}
	ping := &fakeTool{name: "search_conversations", result: ports.SuccessResult(nil)}
	reg := toolregistry.NewRegistry(nil)
	reg.Register(tool)
	reg.Register(ping)
	e := NewExecutor(reg, NewMapper(),
		WithMetrics(MustNewMetrics(prometheus.NewRegistry())),
		WithMaxChainLength(2))

	steps := []Step{
		{Tool: "get_conversation_info"},
		{Tool: "search_conversations"},
		{Tool: "get_conversation_info"},
	}
	results := e.Execute(context.Background(), steps, testContext())

	if len(results) != 2 {
		t.Fatalf("expected truncation at 2 steps, got %d", len(results))
	}
}

func TestExecuteErrorBecomesFailedResult(t *testing.T) {
	tool := &fakeTool{name: "get_messages", err: fmt.Errorf("connection reset")}
	e, _ := testExecutor(t, tool)

	results := e.Execute(context.Background(), []Step{{Tool: "get_messages"}}, testContext())

	if len(results) != 1 || results[0].Success {
		t.Fatalf("error should become a failed result, got %+v", results)
	}
	if results[0].Error == "" {
		t.Fatalf("failed result must carry a message")
	}
}

func TestExecuteFillsBracketedRecipientFromLookup(t *testing.T) {
	lookup := &fakeTool{name: "lookup_contacts", result: ports.SuccessResult(map[string]any{
		"contacts": []map[string]any{
			{"id": "u7", "name": "Sarah Chen", "email": "sarah@example.com", "confidence": 0.95},
		},
		"count": 1,
	})}
	send := &fakeTool{name: "send_message", result: ports.SuccessResult(nil)}
	e, _ := testExecutor(t, lookup, send)

	results := e.Execute(context.Background(), []Step{
		{Tool: "lookup_contacts", Parameters: map[string]any{"query": "sarah"}},
		{Tool: "send_message", Parameters: map[string]any{"recipient_id": "[recipient_id]", "content": "hi"}},
	}, testContext())

	if len(results) != 2 || !results[1].Success {
		t.Fatalf("send should run with the mapped recipient: %+v", results)
	}
	if send.lastArg["recipient_id"] != "u7" {
		t.Fatalf("bracketed recipient_id not replaced, got %v", send.lastArg["recipient_id"])
	}
}

func TestExecuteFailsSendWhenPlaceholderSurvivesMapping(t *testing.T) {
	// The lookup succeeds but its contacts carry no usable id, so the
	// bracketed recipient cannot be filled.
	lookup := &fakeTool{name: "lookup_contacts", result: ports.SuccessResult(map[string]any{
		"contacts": []map[string]any{{"name": "Sarah Chen", "confidence": 0.95}},
		"count":    1,
	})}
	send := &fakeTool{name: "send_message", result: ports.SuccessResult(nil)}
	e, _ := testExecutor(t, lookup, send)

	results := e.Execute(context.Background(), []Step{
		{Tool: "lookup_contacts", Parameters: map[string]any{"query": "sarah"}},
		{Tool: "send_message", Parameters: map[string]any{"recipient_id": "[recipient_id]", "content": "hi"}},
	}, testContext())

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Success {
		t.Fatalf("send with an unresolved target must fail")
	}
	if send.calls != 0 {
		t.Fatalf("send_message must not be invoked with a surviving placeholder")
	}
	if results[1].Meta.ToolName != "send_message" || results[1].Meta.ChainPosition != 2 {
		t.Fatalf("metadata missing on synthesized failure: %+v", results[1].Meta)
	}
}

func TestExecuteDropsBracketedConversationBesideMappedRecipient(t *testing.T) {
	lookup := &fakeTool{name: "lookup_contacts", result: ports.SuccessResult(map[string]any{
		"contacts": []map[string]any{
			{"id": "u7", "name": "Sarah Chen", "email": "sarah@example.com", "confidence": 0.95},
		},
		"count": 1,
	})}
	send := &fakeTool{name: "send_message", result: ports.SuccessResult(nil)}
	e, _ := testExecutor(t, lookup, send)

	e.Execute(context.Background(), []Step{
		{Tool: "lookup_contacts", Parameters: map[string]any{"query": "sarah"}},
		{Tool: "send_message", Parameters: map[string]any{"conversation_id": "[conversation_id]", "content": "hi"}},
	}, testContext())

	if send.calls != 1 {
		t.Fatalf("send should run on the recipient path")
	}
	if _, present := send.lastArg["conversation_id"]; present {
		t.Fatalf("bracketed conversation_id should have been dropped, got %v", send.lastArg["conversation_id"])
	}
	if send.lastArg["recipient_id"] != "u7" {
		t.Fatalf("recipient_id not filled, got %v", send.lastArg["recipient_id"])
	}
}

func TestExecuteMappingNeverOverwritesEarlierFill(t *testing.T) {
	resolve := &fakeTool{name: "resolve_conversation", result: ports.SuccessResult(map[string]any{"conversation_id": "c-first"})}
	get := &fakeTool{name: "get_messages", result: ports.SuccessResult(map[string]any{"conversation_id": "c-second"})}
	analyze := &fakeTool{name: "analyze_conversation", result: ports.SuccessResult(nil)}
	e, _ := testExecutor(t, resolve, get, analyze)

	e.Execute(context.Background(), []Step{
		{Tool: "resolve_conversation", Parameters: map[string]any{"contact_identifier": "sarah@example.com"}},
		{Tool: "get_messages"},
		{Tool: "analyze_conversation", Parameters: map[string]any{"question": "what time?"}},
	}, testContext())

	// get_messages is filled from resolve_conversation; once filled the
	// value is concrete and nothing later replaces it. analyze has only
	// a get_messages mapping, so it sees that step's conversation.
	if get.lastArg["conversation_id"] != "c-first" {
		t.Fatalf("get_messages should receive the resolved conversation, got %v", get.lastArg["conversation_id"])
	}
	if analyze.lastArg["conversation_id"] != "c-second" {
		t.Fatalf("analyze should receive get_messages' conversation, got %v", analyze.lastArg["conversation_id"])
	}
}

func TestExecuteFillsRecipientFromLookup(t *testing.T) {
	lookup := &fakeTool{name: "lookup_contacts", result: ports.SuccessResult(map[string]any{
		"contacts": []map[string]any{
			{"id": "u7", "name": "Sarah Chen", "email": "sarah@example.com", "confidence": 0.95},
		},
		"count": 1,
	})}
	send := &fakeTool{name: "send_message", result: ports.SuccessResult(nil)}
	e, _ := testExecutor(t, lookup, send)

	e.Execute(context.Background(), []Step{
		{Tool: "lookup_contacts", Parameters: map[string]any{"query": "sarah@example.com"}},
		{Tool: "send_message", Parameters: map[string]any{"content": "running late"}},
	}, testContext())

	if send.lastArg["recipient_id"] != "u7" {
		t.Fatalf("recipient_id not filled from lookup, got %v", send.lastArg["recipient_id"])
	}
	if send.lastArg["content"] != "running late" {
		t.Fatalf("planner content overwritten: %v", send.lastArg["content"])
	}
}
