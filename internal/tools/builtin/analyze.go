package builtin

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"courier/internal/assistant/ports"
	courerrors "courier/internal/errors"
	"courier/internal/shared/tokenutil"
	"courier/internal/store"
)

const (
	analyzeMessageLimit = 100
	transcriptBudget    = 3000 // tokens

	// Confidence assumed when the completion lacks the expected markers.
	fallbackConfidence = 0.7
)

const analyzeSystemPrompt = `You answer questions about a chat conversation transcript.
Reply in exactly this format:
ANSWER: <the answer, or "not found in this conversation">
CONFIDENCE: <0.0-1.0>
RELEVANT_MESSAGES: <comma-separated senders of the messages you used, or "none">`

var (
	answerPattern     = regexp.MustCompile(`(?s)ANSWER:\s*(.*?)\s*(?:CONFIDENCE:|RELEVANT_MESSAGES:|$)`)
	confidencePattern = regexp.MustCompile(`CONFIDENCE:\s*([0-9]*\.?[0-9]+)`)
	relevantPattern   = regexp.MustCompile(`(?s)RELEVANT_MESSAGES:\s*(.*?)\s*$`)
)

// analysis is the parsed outcome of one per-conversation question.
type analysis struct {
	Answer           string
	Confidence       float64
	RelevantMessages []string
}

// analyzeTranscript asks the completion collaborator one question about
// one conversation's messages. It is the single code path for
// per-conversation extraction, used directly and by aggregation.
func analyzeTranscript(ctx context.Context, client ports.CompletionClient, title string, msgs []store.Message, question string) (*analysis, error) {
	transcript := formatTranscript(msgs)
	transcript = tokenutil.TruncateHead(transcript, transcriptBudget)

	prompt := fmt.Sprintf("Conversation: %s\n\nTranscript:\n%s\n\nQuestion: %s", title, transcript, question)
	raw, err := client.Complete(ctx, analyzeSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return parseAnalysis(raw), nil
}

// parseAnalysis extracts the structured fields from a completion. When
// the markers are absent the raw text is the answer and confidence
// defaults to 0.7.
func parseAnalysis(raw string) *analysis {
	raw = strings.TrimSpace(raw)
	result := &analysis{Answer: raw, Confidence: fallbackConfidence}

	if m := answerPattern.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		result.Answer = strings.TrimSpace(m[1])
	}
	if m := confidencePattern.FindStringSubmatch(raw); m != nil {
		if conf, err := strconv.ParseFloat(m[1], 64); err == nil && conf >= 0 && conf <= 1 {
			result.Confidence = conf
		}
	}
	if m := relevantPattern.FindStringSubmatch(raw); m != nil {
		for _, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(part)
			if part != "" && !strings.EqualFold(part, "none") {
				result.RelevantMessages = append(result.RelevantMessages, part)
			}
		}
	}
	return result
}

// formatTranscript renders messages oldest first, one line per message.
func formatTranscript(msgs []store.Message) string {
	var b strings.Builder
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.SentAt.Format("Jan 2 15:04"), m.SenderName, m.Content)
	}
	return b.String()
}

type analyzeConversation struct {
	store store.Store
	llm   ports.CompletionClient
}

// NewAnalyze builds the single-conversation analysis tool.
func NewAnalyze(st store.Store, llm ports.CompletionClient) ports.Tool {
	return &analyzeConversation{store: st, llm: llm}
}

func (t *analyzeConversation) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "analyze_conversation",
		Description: "Answer a question from one conversation's message history.",
		Parameters: []ports.ParameterSpec{
			{Name: "conversation_id", Type: "string", Required: true},
			{Name: "question", Type: "string", Required: true},
			{Name: "max_messages", Type: "number", Default: analyzeMessageLimit},
		},
	}
}

func (t *analyzeConversation) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	convID := stringArg(call.Arguments, "conversation_id")
	question := stringArg(call.Arguments, "question")
	if convID == "" || question == "" {
		return ports.Failure("analyze_conversation requires conversation_id and question"), nil
	}
	limit := intArg(call.Arguments, "max_messages", analyzeMessageLimit)

	conv, err := t.store.GetConversation(ctx, convID, call.Context.UserID)
	if err != nil {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}
	msgs, err := t.store.ListMessages(ctx, convID, call.Context.UserID, limit)
	if err != nil {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}
	if len(msgs) == 0 {
		return ports.Failure("conversation %s has no messages to analyze", convID), nil
	}

	found, err := analyzeTranscript(ctx, t.llm, conv.Title, msgs, question)
	if err != nil {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}

	result := ports.SuccessResult(map[string]any{
		"conversation_id":   convID,
		"title":             conv.Title,
		"answer":            found.Answer,
		"relevant_messages": found.RelevantMessages,
	})
	result.Confidence = found.Confidence
	result.InstructionForAI = "Relay the answer to the user, naming the conversation it came from."
	return result, nil
}
