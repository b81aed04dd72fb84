package builtin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"courier/internal/assistant/ports"
	courerrors "courier/internal/errors"
	"courier/internal/shared/logging"
	"courier/internal/store"
)

// Match-tier base confidences. The combined boost (0.15) never lifts a
// candidate past the next tier up, though it can close the exact/prefix
// gap to a tie.
const (
	confExact     = 0.95
	confPrefix    = 0.8
	confSubstring = 0.6
	confFuzzy     = 0.4

	boostRecent   = 0.1
	boostComplete = 0.05

	fuzzyMaxDistance = 2

	// Clarification policy thresholds.
	singleMatchFloor = 0.6
	topTwoGap        = 0.2
)

type contactMatch struct {
	contact    store.Contact
	confidence float64
}

type contactLookup struct {
	store  store.Store
	logger logging.Logger
}

// NewContactLookup builds the contact resolution tool.
func NewContactLookup(st store.Store, logger logging.Logger) ports.Tool {
	return &contactLookup{store: st, logger: logging.OrNop(logger)}
}

func (t *contactLookup) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "lookup_contacts",
		Description: "Find a contact by name, email or partial match. Returns candidates ranked by confidence and asks for clarification when the match is ambiguous.",
		Parameters: []ports.ParameterSpec{
			{Name: "query", Type: "string", Description: "Name, email or fragment to search for", Required: true},
		},
	}
}

func (t *contactLookup) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	query := stringArg(call.Arguments, "query")
	if query == "" {
		return ports.Failure("lookup_contacts requires a query"), nil
	}

	contacts, err := t.store.ListContacts(ctx, call.Context.UserID)
	if err != nil {
		t.logger.Warn("contact listing failed for user %s: %v", call.Context.UserID, err)
		return ports.Failure("%s", courerrors.UserMessage(err)), nil
	}

	matches := rankContacts(query, contacts)
	if len(matches) == 0 {
		return ports.Failure("no contacts match %q", query), nil
	}

	result := ports.SuccessResult(contactData(matches))
	result.Confidence = matches[0].confidence
	if !needsClarification(matches) {
		return result, nil
	}

	options := make([]ports.ClarificationOption, 0, len(matches))
	for _, m := range matches {
		options = append(options, ports.ClarificationOption{
			ID:          m.contact.ID,
			Title:       m.contact.Name,
			Subtitle:    m.contact.Email,
			Confidence:  m.confidence,
			DisplayText: contactDisplayText(m.contact),
		})
	}
	data, err := ports.NewClarification(
		ports.ClarifyContactSelection,
		fmt.Sprintf("Which contact did you mean by %q?", query),
		options,
	)
	if err != nil {
		return ports.Failure("could not build contact options"), nil
	}
	res := ports.Clarify(data, "Ask the user to pick the intended contact, then repeat the command with the selection.")
	res.Data = contactData(matches)
	res.Confidence = matches[0].confidence
	return res, nil
}

// rankContacts scores every contact against the query and returns the
// non-zero matches ordered best first.
func rankContacts(query string, contacts []store.Contact) []contactMatch {
	var matches []contactMatch
	for _, c := range contacts {
		conf := matchConfidence(query, c)
		if conf <= 0 {
			continue
		}
		matches = append(matches, contactMatch{contact: c, confidence: conf})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].confidence > matches[j].confidence
	})
	return matches
}

// matchConfidence computes a [0,1] score for one candidate: the best
// match tier across name and email, boosted for recent activity and a
// complete profile.
func matchConfidence(query string, c store.Contact) float64 {
	base := matchTier(query, c.Name)
	if emailTier := matchTier(query, c.Email); emailTier > base {
		base = emailTier
	}
	if base == 0 {
		return 0
	}
	conf := base
	if c.Recent {
		conf += boostRecent
	}
	if c.Complete() {
		conf += boostComplete
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

func matchTier(query, field string) float64 {
	if field == "" {
		return 0
	}
	q := strings.ToLower(strings.TrimSpace(query))
	f := strings.ToLower(field)
	switch {
	case f == q:
		return confExact
	case strings.HasPrefix(f, q):
		return confPrefix
	case strings.Contains(f, q):
		return confSubstring
	case fuzzyTokenMatch(q, f, fuzzyMaxDistance):
		return confFuzzy
	}
	return 0
}

// needsClarification applies the shared ambiguity policy: a single
// confident match stands, a single weak guess must be confirmed, and a
// close top pair is handed to the user.
func needsClarification(matches []contactMatch) bool {
	switch {
	case len(matches) == 0:
		return false
	case len(matches) == 1:
		return matches[0].confidence < singleMatchFloor
	default:
		return matches[0].confidence-matches[1].confidence < topTwoGap
	}
}

func contactData(matches []contactMatch) map[string]any {
	list := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		list = append(list, map[string]any{
			"id":         m.contact.ID,
			"name":       m.contact.Name,
			"email":      m.contact.Email,
			"confidence": m.confidence,
		})
	}
	return map[string]any{"contacts": list, "count": len(list)}
}

func contactDisplayText(c store.Contact) string {
	if c.Email == "" {
		return c.Name
	}
	return fmt.Sprintf("%s (%s)", c.Name, c.Email)
}
