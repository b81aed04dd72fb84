package toolregistry

import (
	"context"
	"testing"

	"courier/internal/assistant/ports"
)

type stubTool struct {
	def ports.ToolDefinition
}

func (s *stubTool) Definition() ports.ToolDefinition { return s.def }

func (s *stubTool) Execute(_ context.Context, _ ports.ToolCall) (*ports.ToolResult, error) {
	return ports.SuccessResult(nil), nil
}

func newStub(name, description string) *stubTool {
	return &stubTool{def: ports.ToolDefinition{Name: name, Description: description}}
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(newStub("lookup_contacts", "find a contact by name or email"))

	if _, ok := r.Get("lookup_contacts"); !ok {
		t.Fatalf("registered tool not found")
	}
	if _, ok := r.Get("unknown_tool"); ok {
		t.Fatalf("unknown tool should not resolve")
	}
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(newStub("send_message", "first"))
	r.Register(newStub("send_message", "second"))

	tool, ok := r.Get("send_message")
	if !ok {
		t.Fatalf("tool not found after re-registration")
	}
	if tool.Definition().Description != "second" {
		t.Fatalf("expected last registration to win, got %q", tool.Definition().Description)
	}
	if got := len(r.Names()); got != 1 {
		t.Fatalf("expected 1 name, got %d", got)
	}
}

func TestRegisterRejectsDuplicateParameters(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubTool{def: ports.ToolDefinition{
		Name: "broken",
		Parameters: []ports.ParameterSpec{
			{Name: "query", Type: "string"},
			{Name: "query", Type: "string"},
		},
	}})
	if _, ok := r.Get("broken"); ok {
		t.Fatalf("tool with duplicate parameter names must be rejected")
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(newStub("send_message", ""))
	r.Register(newStub("lookup_contacts", ""))
	r.Register(newStub("get_messages", ""))

	names := r.Names()
	want := []string{"get_messages", "lookup_contacts", "send_message"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestFindByCapability(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(newStub("lookup_contacts", "find a contact by name or email"))
	r.Register(newStub("send_message", "deliver a message to a conversation"))

	matches := r.FindByCapability("CONTACT")
	if len(matches) != 1 || matches[0].Name != "lookup_contacts" {
		t.Fatalf("expected lookup_contacts match, got %v", matches)
	}
	if got := r.FindByCapability("message"); len(got) != 1 || got[0].Name != "send_message" {
		t.Fatalf("expected send_message match, got %v", got)
	}
	if got := r.FindByCapability("nothing-here"); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}
