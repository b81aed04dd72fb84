package builtin

import (
	"context"

	"courier/internal/assistant/ports"
	courerrors "courier/internal/errors"
	"courier/internal/store"
)

const defaultMessageLimit = 50

type getMessages struct {
	store store.Store
}

// NewGetMessages builds the message reading tool.
func NewGetMessages(st store.Store) ports.Tool {
	return &getMessages{store: st}
}

func (t *getMessages) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "get_messages",
		Description: "Read the most recent messages of a conversation, newest first.",
		Parameters: []ports.ParameterSpec{
			{Name: "conversation_id", Type: "string", Required: true},
			{Name: "max_messages", Type: "number", Default: defaultMessageLimit},
		},
	}
}

func (t *getMessages) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	convID := stringArg(call.Arguments, "conversation_id")
	if convID == "" {
		return ports.Failure("get_messages requires conversation_id"), nil
	}
	limit := intArg(call.Arguments, "max_messages", defaultMessageLimit)

	msgs, err := t.store.ListMessages(ctx, convID, call.Context.UserID, limit)
	if err != nil {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}

	list := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		list = append(list, map[string]any{
			"id":          m.ID,
			"sender_id":   m.SenderID,
			"sender_name": m.SenderName,
			"content":     m.Content,
			"sent_at":     m.SentAt,
		})
	}
	return ports.SuccessResult(map[string]any{
		"conversation_id": convID,
		"messages":        list,
		"count":           len(list),
	}), nil
}
