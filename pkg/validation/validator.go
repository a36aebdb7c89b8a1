package validation

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the only accepted event timestamp format. Offsets,
// fractional seconds, and non-UTC zones are rejected.
const TimestampLayout = "2006-01-02T15:04:05Z"

const (
	userIDPrefix    = "usr_"
	sessionIDPrefix = "sess_"
)

// Event carries the raw ingestion fields under validation. Timestamp stays
// a string here: parsing it is part of validating it.
type Event struct {
	Timestamp string
	UserID    string
	EventType string
	PageURL   string
	SessionID string
}

// Error is a validation failure. Rule identifies which check failed (for
// metrics labels); Message is safe to return to the client.
type Error struct {
	Rule    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Rule is a single named check in the validation chain
type Rule struct {
	Name  string
	Check func(Event) error
}

// Validator runs events through a fixed-order rule chain
type Validator struct {
	rules []Rule
}

// NewValidator returns a validator with the standard ingestion rules:
// user ID, session ID, page URL, then timestamp. The first failure wins.
func NewValidator() *Validator {
	return &Validator{
		rules: []Rule{
			{Name: "user_id", Check: checkUserID},
			{Name: "session_id", Check: checkSessionID},
			{Name: "page_url", Check: checkPageURL},
			{Name: "timestamp", Check: checkTimestamp},
		},
	}
}

// Validate runs the chain and returns the first failure, or nil
func (v *Validator) Validate(e Event) error {
	for _, rule := range v.rules {
		if err := rule.Check(e); err != nil {
			return err
		}
	}
	return nil
}

// ParseTimestamp parses an already-validated timestamp. The returned time
// is in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

func checkUserID(e Event) error {
	if strings.TrimSpace(e.UserID) == "" {
		return &Error{Rule: "user_id", Message: "User ID cannot be null or empty"}
	}
	if !strings.HasPrefix(e.UserID, userIDPrefix) {
		return &Error{
			Rule:    "user_id",
			Message: fmt.Sprintf("User ID must start with '%s': %s", userIDPrefix, e.UserID),
		}
	}
	return nil
}

func checkSessionID(e Event) error {
	if strings.TrimSpace(e.SessionID) == "" {
		return &Error{Rule: "session_id", Message: "Session ID cannot be null or empty"}
	}
	if !strings.HasPrefix(e.SessionID, sessionIDPrefix) {
		return &Error{
			Rule:    "session_id",
			Message: fmt.Sprintf("Session ID must start with '%s': %s", sessionIDPrefix, e.SessionID),
		}
	}
	return nil
}

func checkPageURL(e Event) error {
	if strings.TrimSpace(e.PageURL) == "" {
		return &Error{Rule: "page_url", Message: "Page URL cannot be null or empty"}
	}
	if !strings.HasPrefix(e.PageURL, "/") {
		return &Error{
			Rule:    "page_url",
			Message: fmt.Sprintf("Page URL must start with '/': %s", e.PageURL),
		}
	}
	return nil
}

func checkTimestamp(e Event) error {
	if strings.TrimSpace(e.Timestamp) == "" {
		return &Error{Rule: "timestamp", Message: "Timestamp cannot be null"}
	}
	if _, err := time.Parse(TimestampLayout, e.Timestamp); err != nil {
		return &Error{
			Rule:    "timestamp",
			Message: fmt.Sprintf("Timestamp format is invalid. Expected format: %s (e.g., 2024-03-15T14:30:00Z)", TimestampLayout),
		}
	}
	return nil
}
