package builtin

import (
	"context"
	"fmt"

	"courier/internal/assistant/ports"
	courerrors "courier/internal/errors"
	"courier/internal/shared/tokenutil"
	"courier/internal/store"
)

const summarizeSystemPrompt = `You summarize chat conversations.
Write a short plain-text summary of the transcript: the topic, decisions made and anything still open. No preamble.`

type summarizeConversation struct {
	store store.Store
	llm   ports.CompletionClient
}

// NewSummarize builds the conversation summary tool.
func NewSummarize(st store.Store, llm ports.CompletionClient) ports.Tool {
	return &summarizeConversation{store: st, llm: llm}
}

func (t *summarizeConversation) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "summarize_conversation",
		Description: "Summarize a conversation's recent messages.",
		Parameters: []ports.ParameterSpec{
			{Name: "conversation_id", Type: "string", Required: true},
			{Name: "max_messages", Type: "number", Default: defaultMessageLimit},
		},
	}
}

func (t *summarizeConversation) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	convID := stringArg(call.Arguments, "conversation_id")
	if convID == "" {
		return ports.Failure("summarize_conversation requires conversation_id"), nil
	}
	limit := intArg(call.Arguments, "max_messages", defaultMessageLimit)

	conv, err := t.store.GetConversation(ctx, convID, call.Context.UserID)
	if err != nil {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}
	msgs, err := t.store.ListMessages(ctx, convID, call.Context.UserID, limit)
	if err != nil {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}
	if len(msgs) == 0 {
		return ports.Failure("conversation %s has no messages to summarize", convID), nil
	}

	transcript := tokenutil.TruncateHead(formatTranscript(msgs), transcriptBudget)
	prompt := fmt.Sprintf("Conversation: %s\n\nTranscript:\n%s", conv.Title, transcript)
	summary, err := t.llm.Complete(ctx, summarizeSystemPrompt, prompt)
	if err != nil {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}

	return ports.SuccessResult(map[string]any{
		"conversation_id": convID,
		"title":           conv.Title,
		"summary":         summary,
		"message_count":   len(msgs),
	}), nil
}
