package builtin

import (
	"context"

	"courier/internal/assistant/ports"
	courerrors "courier/internal/errors"
	"courier/internal/store"
)

type conversationInfo struct {
	store store.Store
}

// NewConversationInfo builds the conversation metadata tool.
func NewConversationInfo(st store.Store) ports.Tool {
	return &conversationInfo{store: st}
}

func (t *conversationInfo) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "get_conversation_info",
		Description: "Return a conversation's title, participants and last activity.",
		Parameters: []ports.ParameterSpec{
			{Name: "conversation_id", Type: "string", Required: true},
		},
	}
}

func (t *conversationInfo) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	convID := stringArg(call.Arguments, "conversation_id")
	if convID == "" {
		return ports.Failure("get_conversation_info requires conversation_id"), nil
	}

	conv, err := t.store.GetConversation(ctx, convID, call.Context.UserID)
	if err != nil {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}

	participants := make([]map[string]any, 0, len(conv.Participants))
	for _, id := range conv.Participants {
		entry := map[string]any{"id": id}
		if user, err := t.store.GetUser(ctx, id); err == nil {
			entry["name"] = user.Name
		}
		participants = append(participants, entry)
	}

	return ports.SuccessResult(map[string]any{
		"conversation_id":   conv.ID,
		"title":             conv.Title,
		"direct":            conv.Direct,
		"participants":      participants,
		"participant_count": len(conv.Participants),
		"last_message":      conv.LastMessage,
		"last_message_at":   conv.LastMessageAt,
	}), nil
}
