package builtin

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"courier/internal/assistant/ports"
	"courier/internal/config"
	courerrors "courier/internal/errors"
	"courier/internal/shared/logging"
	"courier/internal/store"

	"golang.org/x/sync/errgroup"
)

// Group score weights: cumulative relevance dominates, recency breaks
// ties between equally relevant conversations.
const (
	relevanceWeight = 0.70
	recencyWeight   = 0.30
)

// aggregationPattern matches question shapes whose answer is expected to
// span conversations, enabling auto-aggregation instead of asking the
// user to pick one.
var aggregationPattern = regexp.MustCompile(`(?i)\b(who\s+(is|are|was|were|has|have|all)|everyone|everybody|how\s+many|anyone|anybody)\b`)

// conversationGroup collects one conversation's retrieval hits. Built
// fresh per request, discarded after the response.
type conversationGroup struct {
	id         string
	hits       []ports.MessageHit
	lastActive time.Time
	relevance  float64
	score      float64
	conv       *store.Conversation
}

type conversationSearch struct {
	store    store.Store
	searcher ports.SemanticSearcher
	llm      ports.CompletionClient
	cfg      config.SearchConfig
	logger   logging.Logger
}

// NewConversationSearch builds the multi-conversation retrieval and
// aggregation tool.
func NewConversationSearch(st store.Store, searcher ports.SemanticSearcher, llm ports.CompletionClient, cfg config.SearchConfig, logger logging.Logger) ports.Tool {
	return &conversationSearch{
		store:    st,
		searcher: searcher,
		llm:      llm,
		cfg:      cfg,
		logger:   logging.OrNop(logger),
	}
}

func (t *conversationSearch) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "search_conversations",
		Description: "Find the conversations relevant to a question and answer it from their message history. Asks the user to pick a conversation when several are plausible.",
		Parameters: []ports.ParameterSpec{
			{Name: "query", Type: "string", Description: "The question to answer", Required: true},
		},
	}
}

func (t *conversationSearch) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	query := stringArg(call.Arguments, "query")
	if query == "" {
		return ports.Failure("search_conversations requires a query"), nil
	}
	userID := call.Context.UserID

	hits, err := t.searcher.SearchMessages(ctx, query, t.cfg.CandidateLimit)
	if err != nil {
		if !courerrors.IsDegraded(err) {
			t.logger.Warn("semantic search failed for user %s: %v", userID, err)
			return ports.Failure("%s", courerrors.UserMessage(err)), nil
		}
		t.logger.Warn("semantic search degraded for user %s, using keyword match: %v", userID, err)
		hits, err = t.keywordHits(ctx, userID, query)
		if err != nil {
			return ports.Failure("%s", courerrors.UserMessage(err)), nil
		}
	}

	groups := groupByConversation(hits, t.cfg.TimeWindow, time.Now())
	groups = t.enrich(ctx, groups, userID, t.cfg.MaxGroups)
	if len(groups) == 0 {
		return ports.Failure("no recent conversations are relevant to %q", query), nil
	}

	if len(groups) == 1 {
		return t.analyzeDirect(ctx, groups[0], userID, query)
	}
	if aggregationPattern.MatchString(query) && len(groups) <= t.cfg.MaxAggregate {
		return t.aggregate(ctx, groups, userID, query)
	}
	return t.clarify(groups, query)
}

// keywordSimilarity stands in for a vector similarity on substring
// matches, below a strong semantic hit but above the retrieval floor.
const keywordSimilarity = 0.5

// keywordHits is the degraded-mode fallback: a substring search for the
// query's substantive words over the user's own messages in the document
// store.
func (t *conversationSearch) keywordHits(ctx context.Context, userID, query string) ([]ports.MessageHit, error) {
	seen := make(map[string]bool)
	var hits []ports.MessageHit
	for _, token := range keywordTokens(query) {
		msgs, err := t.store.SearchMessagesText(ctx, userID, token, t.cfg.CandidateLimit)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			hits = append(hits, ports.MessageHit{
				MessageID:      m.ID,
				ConversationID: m.ConversationID,
				SenderID:       m.SenderID,
				Content:        m.Content,
				Similarity:     keywordSimilarity,
				SentAt:         m.SentAt,
			})
		}
	}
	return hits, nil
}

// keywordTokens keeps the words worth matching: short filler words carry
// no signal for a substring search.
func keywordTokens(query string) []string {
	var tokens []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		f = strings.Trim(f, `.,!?"'`)
		if len(f) >= 4 {
			tokens = append(tokens, f)
		}
	}
	if len(tokens) > 5 {
		tokens = tokens[:5]
	}
	return tokens
}

// groupByConversation buckets hits by conversation, discarding messages
// older than the window (0 = no limit), and scores each group.
func groupByConversation(hits []ports.MessageHit, window time.Duration, now time.Time) []*conversationGroup {
	byID := make(map[string]*conversationGroup)
	for _, hit := range hits {
		if window > 0 && now.Sub(hit.SentAt) > window {
			continue
		}
		group, ok := byID[hit.ConversationID]
		if !ok {
			group = &conversationGroup{id: hit.ConversationID}
			byID[hit.ConversationID] = group
		}
		group.hits = append(group.hits, hit)
		group.relevance += hit.Similarity
		if hit.SentAt.After(group.lastActive) {
			group.lastActive = hit.SentAt
		}
	}

	groups := make([]*conversationGroup, 0, len(byID))
	for _, group := range byID {
		group.score = relevanceWeight*group.relevance + recencyWeight*recencyScore(group.lastActive, now)
		groups = append(groups, group)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].score > groups[j].score
	})
	return groups
}

// recencyScore decays from 1 toward 0 as the last activity ages, halving
// roughly every day.
func recencyScore(lastActive, now time.Time) float64 {
	if lastActive.IsZero() {
		return 0
	}
	hours := now.Sub(lastActive).Hours()
	if hours < 0 {
		hours = 0
	}
	return 1 / (1 + hours/24)
}

// enrich attaches conversation metadata to the top groups, dropping any
// conversation the user can no longer see.
func (t *conversationSearch) enrich(ctx context.Context, groups []*conversationGroup, userID string, limit int) []*conversationGroup {
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	kept := groups[:0]
	for _, group := range groups {
		conv, err := t.store.GetConversation(ctx, group.id, userID)
		if err != nil {
			t.logger.Debug("dropping conversation %s from search results: %v", group.id, err)
			continue
		}
		group.conv = conv
		kept = append(kept, group)
	}
	return kept
}

// analyzeDirect answers the query from the single candidate group.
func (t *conversationSearch) analyzeDirect(ctx context.Context, group *conversationGroup, userID, query string) (*ports.ToolResult, error) {
	found, err := t.analyzeGroup(ctx, group, userID, query)
	if err != nil {
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}
	result := ports.SuccessResult(map[string]any{
		"answer":             found.Answer,
		"conversation_count": 1,
		"sources":            []map[string]any{sourceEntry(group, found)},
	})
	result.Confidence = found.Confidence
	result.InstructionForAI = "Relay the answer to the user, naming the conversation it came from."
	return result, nil
}

// aggregate analyzes every candidate concurrently and merges the answers
// into one source-attributed composite. A failed branch is excluded; the
// aggregation fails only when every branch fails.
func (t *conversationSearch) aggregate(ctx context.Context, groups []*conversationGroup, userID, query string) (*ports.ToolResult, error) {
	findings := make([]*analysis, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		g.Go(func() error {
			found, err := t.analyzeGroup(gctx, group, userID, query)
			if err != nil {
				t.logger.Warn("analysis of conversation %s failed: %v", group.id, err)
				return nil
			}
			findings[i] = found
			return nil
		})
	}
	_ = g.Wait()

	var (
		sources    []map[string]any
		parts      []string
		confidence float64
	)
	for i, found := range findings {
		if found == nil {
			continue
		}
		sources = append(sources, sourceEntry(groups[i], found))
		parts = append(parts, fmt.Sprintf("From %s: %s", groups[i].conv.Title, found.Answer))
		confidence += found.Confidence
	}
	if len(sources) == 0 {
		return ports.Failure("could not extract an answer from any of the %d matching conversations", len(groups)), nil
	}

	answer := strings.Join(parts, "\n")
	if len(sources) == 1 {
		// A sole surviving branch reads like a direct analysis.
		answer = fmt.Sprint(sources[0]["answer"])
	}
	result := ports.SuccessResult(map[string]any{
		"answer":             answer,
		"conversation_count": len(sources),
		"sources":            sources,
	})
	result.Confidence = confidence / float64(len(sources))
	result.InstructionForAI = "Relay the combined answer, attributing each part to its conversation."
	return result, nil
}

// clarify lists the candidate conversations with a content snippet so
// the user can pick one.
func (t *conversationSearch) clarify(groups []*conversationGroup, query string) (*ports.ToolResult, error) {
	top := groups[0].score
	options := make([]ports.ClarificationOption, 0, len(groups))
	for _, group := range groups {
		confidence := 1.0
		if top > 0 {
			confidence = group.score / top
		}
		snippet := contentSnippet(group.hits[0].Content, 80)
		options = append(options, ports.ClarificationOption{
			ID:          group.id,
			Title:       group.conv.Title,
			Subtitle:    snippet,
			Confidence:  confidence,
			DisplayText: fmt.Sprintf("%s: %s", group.conv.Title, snippet),
		})
	}
	data, err := ports.NewClarification(
		ports.ClarifyConversationSelection,
		fmt.Sprintf("Several conversations could answer %q. Which one did you mean?", query),
		options,
	)
	if err != nil {
		return ports.Failure("could not build conversation options"), nil
	}
	return ports.Clarify(data, "Ask the user to pick the conversation to search, then repeat the question."), nil
}

// analyzeGroup runs the shared per-conversation analyzer against a
// group's full recent history.
func (t *conversationSearch) analyzeGroup(ctx context.Context, group *conversationGroup, userID, query string) (*analysis, error) {
	msgs, err := t.store.ListMessages(ctx, group.id, userID, analyzeMessageLimit)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("conversation %s has no messages", group.id)
	}
	return analyzeTranscript(ctx, t.llm, group.conv.Title, msgs, query)
}

func sourceEntry(group *conversationGroup, found *analysis) map[string]any {
	return map[string]any{
		"conversation_id": group.id,
		"title":           group.conv.Title,
		"answer":          found.Answer,
		"confidence":      found.Confidence,
	}
}
