package ports

import "fmt"

// Clarification types produced by the built-in tools.
const (
	ClarifyContactSelection      = "contact_selection"
	ClarifyConversationSelection = "select_conversation"
)

// ClarificationOption is one candidate the user can pick.
type ClarificationOption struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle,omitempty"`
	Confidence  float64        `json:"confidence"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	DisplayText string         `json:"display_text"`
}

// ClarificationData is the structured request-for-input a tool returns
// instead of a definite answer. Options are ordered best-first and
// BestOption always references one of them.
type ClarificationData struct {
	Type        string                `json:"clarification_type"`
	Question    string                `json:"question"`
	Options     []ClarificationOption `json:"options"`
	BestOption  *ClarificationOption  `json:"best_option"`
	AllowCancel bool                  `json:"allow_cancel"`
}

// NewClarification builds ClarificationData from ordered options. The
// first (highest-confidence) option becomes BestOption. Returns an error
// when options is empty, which callers should treat as a programming bug.
func NewClarification(kind, question string, options []ClarificationOption) (*ClarificationData, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("clarification %s requires at least one option", kind)
	}
	best := options[0]
	for _, opt := range options[1:] {
		if opt.Confidence > best.Confidence {
			best = opt
		}
	}
	return &ClarificationData{
		Type:        kind,
		Question:    question,
		Options:     options,
		BestOption:  &best,
		AllowCancel: true,
	}, nil
}

// ClarificationResponse is the user's selection folded back into the next
// request together with the original payload, so the planner can produce a
// fully disambiguated chain.
type ClarificationResponse struct {
	SelectedOptionID string             `json:"selected_option_id"`
	Original         *ClarificationData `json:"original,omitempty"`
}
