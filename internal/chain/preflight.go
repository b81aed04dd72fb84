package chain

import (
	"regexp"
	"strings"

	"courier/internal/assistant/ports"
)

// infoExtractionPatterns match commands that ask about conversation
// content. Outside a conversation these usually need a search step first,
// which the planner may have skipped.
var infoExtractionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwho\s+(is|are|was|were|confirmed|said|mentioned)\b`),
	regexp.MustCompile(`(?i)\bwhat\s+(did|does|was|were|time)\b`),
	regexp.MustCompile(`(?i)\bhow\s+many\b`),
	regexp.MustCompile(`(?i)\blist\s+(all|the)\b`),
}

var vaguePronounPattern = regexp.MustCompile(`(?i)\b(send|tell|ask|reply\s+to)\s+(him|her|them|it)\b`)

var vagueRecipientPattern = regexp.MustCompile(`(?i)\b(send|message|text|tell)\s+(someone|somebody|anyone|everybody|everyone)\b`)

// ValidatePreFlight checks a raw command and its application context
// before any planning happens. Hard errors mean the request cannot be
// served; warnings flag likely ambiguity but let the request proceed.
func ValidatePreFlight(command, userID string, app *ports.AppContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if strings.TrimSpace(command) == "" {
		result.addError("command is empty")
	}
	if strings.TrimSpace(userID) == "" {
		result.addError("user id is required")
	}
	if !result.Valid {
		return result
	}

	inConversation := app != nil && app.CurrentConversationID != ""
	if !inConversation {
		for _, p := range infoExtractionPatterns {
			if p.MatchString(command) {
				result.addWarning("command asks about conversation content but no conversation is open; a search step may be needed")
				break
			}
		}
	}

	if vaguePronounPattern.MatchString(command) {
		result.addWarning("recipient is a pronoun; clarification may be needed")
	}
	if vagueRecipientPattern.MatchString(command) {
		result.addWarning("recipient is unspecific; clarification may be needed")
	}
	return result
}
