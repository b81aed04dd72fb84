// Package store is the participant-scoped document store: users,
// conversations and nested messages, with the denormalized conversation
// metadata (last message, unread counts) the mobile client reads.
package store

import (
	"context"
	"time"
)

// User is a directory entry.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	AvatarURL string
	LastSeen  time.Time
}

// Complete reports whether the profile has every optional field filled.
// Complete profiles earn a small confidence boost during contact lookup.
func (u User) Complete() bool {
	return u.Name != "" && u.Email != "" && u.Phone != "" && u.AvatarURL != ""
}

// Contact is a user as seen from another user's address book.
type Contact struct {
	User
	// Recent is set when the pair exchanged messages within the recency
	// window (7 days).
	Recent bool
}

// Conversation carries the denormalized metadata kept current on every
// message append.
type Conversation struct {
	ID            string
	Title         string
	Direct        bool // one-to-one conversation
	Participants  []string
	LastMessage   string
	LastMessageAt time.Time
	CreatedAt     time.Time
}

// Message is one message inside a conversation.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	Content        string
	SentAt         time.Time
}

// Store is the document-store query interface consumed by the tools.
type Store interface {
	// GetUser returns the user or a NotFoundError.
	GetUser(ctx context.Context, id string) (*User, error)

	// ListContacts returns every user visible to userID with the Recent
	// flag computed from message activity.
	ListContacts(ctx context.Context, userID string) ([]Contact, error)

	// GetConversation returns the conversation only when userID is a
	// participant; otherwise a NotFoundError (no information leakage).
	GetConversation(ctx context.Context, id, userID string) (*Conversation, error)

	// FindDirectConversation finds the one-to-one conversation between
	// two users, or a NotFoundError.
	FindDirectConversation(ctx context.Context, userA, userB string) (*Conversation, error)

	// CreateConversation persists a new conversation and its participant
	// set.
	CreateConversation(ctx context.Context, conv *Conversation) error

	// ListConversations returns the userID's conversations, most recent
	// activity first.
	ListConversations(ctx context.Context, userID string, limit int) ([]Conversation, error)

	// ListMessages returns up to limit messages of a conversation, newest
	// first, only when userID is a participant.
	ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]Message, error)

	// AppendMessage persists a message, updates the conversation's last
	// message and bumps unread counts for the other participants.
	AppendMessage(ctx context.Context, msg *Message) error

	// SearchMessagesText finds messages by case-insensitive substring
	// match across every conversation userID participates in, newest
	// first. It backs the keyword fallback when semantic search is
	// unavailable.
	SearchMessagesText(ctx context.Context, userID, query string, limit int) ([]Message, error)

	// IsParticipant reports conversation membership.
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)

	// Close releases the underlying database.
	Close() error
}
