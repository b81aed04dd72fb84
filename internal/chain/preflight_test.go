package chain

import (
	"testing"

	"courier/internal/assistant/ports"
)

func TestPreFlightHardErrors(t *testing.T) {
	if result := ValidatePreFlight("", "u1", nil); result.Valid {
		t.Fatalf("empty command must be a hard error")
	}
	if result := ValidatePreFlight("send hi to sarah", "", nil); result.Valid {
		t.Fatalf("missing user id must be a hard error")
	}
}

func TestPreFlightInfoExtractionOutsideConversation(t *testing.T) {
	commands := []string{
		"who confirmed for saturday?",
		"what did Alex say about the venue?",
		"how many people are coming?",
		"list all the action items",
	}
	for _, cmd := range commands {
		result := ValidatePreFlight(cmd, "u1", nil)
		if !result.Valid {
			t.Fatalf("%q: info extraction is a warning, not an error: %v", cmd, result.Errors)
		}
		if len(result.Warnings) == 0 {
			t.Fatalf("%q: expected a warning outside a conversation", cmd)
		}
	}
}

func TestPreFlightInfoExtractionInsideConversation(t *testing.T) {
	app := &ports.AppContext{CurrentConversationID: "c1"}
	result := ValidatePreFlight("who confirmed for saturday?", "u1", app)
	if len(result.Warnings) != 0 {
		t.Fatalf("open conversation should suppress the search warning: %v", result.Warnings)
	}
}

func TestPreFlightVagueRecipients(t *testing.T) {
	for _, cmd := range []string{"send him the address", "tell someone about dinner"} {
		result := ValidatePreFlight(cmd, "u1", nil)
		if !result.Valid {
			t.Fatalf("%q: vague recipient is a warning, not an error", cmd)
		}
		if len(result.Warnings) == 0 {
			t.Fatalf("%q: expected a vague-recipient warning", cmd)
		}
	}
}

func TestPreFlightCleanCommand(t *testing.T) {
	result := ValidatePreFlight("send sarah@example.com a note that I'm running late", "u1", nil)
	if !result.Valid || len(result.Warnings) != 0 {
		t.Fatalf("clean command should pass without warnings: %+v", result)
	}
}
