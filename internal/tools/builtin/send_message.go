package builtin

import (
	"context"
	"time"

	"courier/internal/assistant/ports"
	courerrors "courier/internal/errors"
	"courier/internal/shared/logging"
	"courier/internal/store"

	"github.com/google/uuid"
)

type sendMessage struct {
	store   store.Store
	indexer MessageIndexer
	logger  logging.Logger
}

// NewSendMessage builds the message sending tool. The indexer is
// optional; when present every sent message is handed to it for vector
// indexing.
func NewSendMessage(st store.Store, indexer MessageIndexer, logger logging.Logger) ports.Tool {
	return &sendMessage{store: st, indexer: indexer, logger: logging.OrNop(logger)}
}

func (t *sendMessage) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "send_message",
		Description: "Send a message into a conversation, or to a contact's direct conversation.",
		Parameters: []ports.ParameterSpec{
			{Name: "content", Type: "string", Required: true},
			{Name: "conversation_id", Type: "string", Description: "Target conversation"},
			{Name: "recipient_id", Type: "string", Description: "Target contact when no conversation id is known"},
		},
	}
}

func (t *sendMessage) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	content := stringArg(call.Arguments, "content")
	if content == "" {
		return ports.Failure("send_message requires content"), nil
	}
	userID := call.Context.UserID

	convID := stringArg(call.Arguments, "conversation_id")
	if convID == "" {
		recipient := stringArg(call.Arguments, "recipient_id")
		if recipient == "" {
			return ports.Failure("send_message requires conversation_id or recipient_id"), nil
		}
		conv, err := t.resolveDirect(ctx, userID, recipient)
		if err != nil {
			return ports.Failure("%s", courerrors.UserMessage(err)), nil
		}
		convID = conv.ID
	} else {
		if _, err := t.store.GetConversation(ctx, convID, userID); err != nil {
			return ports.Failure("%s", courerrors.UserMessage(err)), nil
		}
	}

	sender, err := t.store.GetUser(ctx, userID)
	if err != nil {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}

	msg := &store.Message{
		ID:             uuid.NewString(),
		ConversationID: convID,
		SenderID:       userID,
		SenderName:     sender.Name,
		Content:        content,
		SentAt:         time.Now(),
	}
	if err := t.store.AppendMessage(ctx, msg); err != nil {
		t.logger.Warn("appending message to %s failed: %v", convID, err)
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}
	if t.indexer != nil {
		t.indexer.IndexMessage(ctx, msg)
	}

	result := ports.SuccessResult(map[string]any{
		"message_id":      msg.ID,
		"conversation_id": convID,
		"sent_at":         msg.SentAt,
	})
	result.NextAction = ports.NextComplete
	result.InstructionForAI = "Confirm to the user that the message was sent."
	return result, nil
}

// resolveDirect finds the direct conversation with the recipient,
// creating it on first contact.
func (t *sendMessage) resolveDirect(ctx context.Context, userID, recipientID string) (*store.Conversation, error) {
	conv, err := t.store.FindDirectConversation(ctx, userID, recipientID)
	if err == nil {
		return conv, nil
	}
	if !courerrors.IsNotFound(err) {
		return nil, err
	}
	recipient, err := t.store.GetUser(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	conv = &store.Conversation{
		ID:           uuid.NewString(),
		Title:        recipient.Name,
		Direct:       true,
		Participants: []string{userID, recipientID},
		CreatedAt:    time.Now(),
	}
	if err := t.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}
