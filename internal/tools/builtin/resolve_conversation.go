package builtin

import (
	"context"
	"strings"
	"time"

	"courier/internal/assistant/ports"
	courerrors "courier/internal/errors"
	"courier/internal/shared/logging"
	"courier/internal/store"

	"github.com/google/uuid"
)

type conversationResolve struct {
	store  store.Store
	logger logging.Logger
}

// NewConversationResolve builds the conversation resolution tool. Given a
// contact it finds the direct conversation with that contact, creating
// one when none exists yet; given an explicit conversation id it verifies
// access and returns the conversation.
func NewConversationResolve(st store.Store, logger logging.Logger) ports.Tool {
	return &conversationResolve{store: st, logger: logging.OrNop(logger)}
}

func (t *conversationResolve) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "resolve_conversation",
		Description: "Resolve the conversation to act on, from a contact identifier (id or email) or an explicit conversation id. Creates the direct conversation when the contact has none yet.",
		Parameters: []ports.ParameterSpec{
			{Name: "contact_identifier", Type: "string", Description: "Contact user id or email"},
			{Name: "conversation_id", Type: "string", Description: "Explicit conversation id, skips contact resolution"},
		},
	}
}

func (t *conversationResolve) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	userID := call.Context.UserID

	if convID := stringArg(call.Arguments, "conversation_id"); convID != "" {
		conv, err := t.store.GetConversation(ctx, convID, userID)
		if err != nil {
			return ports.Failure("%s", courerrors.UserMessage(err)), nil
		}
		return ports.SuccessResult(conversationData(conv, false)), nil
	}

	identifier := stringArg(call.Arguments, "contact_identifier")
	if identifier == "" {
		return ports.Failure("resolve_conversation requires contact_identifier or conversation_id"), nil
	}

	contact, err := t.findContact(ctx, userID, identifier)
	if err != nil {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}
	if contact == nil {
		return ports.Failure("no contact matches %q", identifier), nil
	}

	conv, err := t.store.FindDirectConversation(ctx, userID, contact.ID)
	if err == nil {
		data := conversationData(conv, false)
		data["contact_id"] = contact.ID
		return ports.SuccessResult(data), nil
	}
	if !courerrors.IsNotFound(err) {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}

	conv = &store.Conversation{
		ID:           uuid.NewString(),
		Title:        contact.Name,
		Direct:       true,
		Participants: []string{userID, contact.ID},
		CreatedAt:    time.Now(),
	}
	if err := t.store.CreateConversation(ctx, conv); err != nil {
		t.logger.Warn("creating direct conversation with %s failed: %v", contact.ID, err)
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}
	t.logger.Info("created direct conversation %s between %s and %s", conv.ID, userID, contact.ID)
	data := conversationData(conv, true)
	data["contact_id"] = contact.ID
	return ports.SuccessResult(data), nil
}

// findContact matches the identifier against contact ids and emails
// exactly, falling back to an exact name match.
func (t *conversationResolve) findContact(ctx context.Context, userID, identifier string) (*store.Contact, error) {
	contacts, err := t.store.ListContacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i, c := range contacts {
		if c.ID == identifier || strings.EqualFold(c.Email, identifier) {
			return &contacts[i], nil
		}
	}
	for i, c := range contacts {
		if strings.EqualFold(c.Name, identifier) {
			return &contacts[i], nil
		}
	}
	return nil, nil
}

func conversationData(conv *store.Conversation, created bool) map[string]any {
	return map[string]any{
		"conversation_id": conv.ID,
		"title":           conv.Title,
		"direct":          conv.Direct,
		"created":         created,
	}
}
