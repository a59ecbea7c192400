package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Recipient is one destination address attached to an Event.
type Recipient struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	EventID string `json:"event_id"`
}

// emailRegex matches a simple email format (local@domain with at least one dot in domain).
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Address returns the recipient formatted for a message header:
// "Name <email>" when a display name is present, the bare email otherwise.
func (r *Recipient) Address() string {
	if r.Name != "" {
		return fmt.Sprintf("%s <%s>", r.Name, r.Email)
	}
	return r.Email
}

// ParseRecipients parses a comma-separated recipient string into Recipients.
// Each segment is trimmed; the form "Name <email@domain>" yields a display
// name, anything else is taken as a bare address. Order is preserved and
// duplicates are kept. Empty input yields an empty slice; callers must treat
// that as a validation failure at submission time.
func ParseRecipients(raw string) ([]*Recipient, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []*Recipient{}, nil
	}

	segments := strings.Split(raw, ",")
	recipients := make([]*Recipient, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}

		var name, email string
		if open := strings.Index(seg, "<"); open >= 0 && strings.HasSuffix(seg, ">") {
			name = strings.TrimSpace(seg[:open])
			email = strings.TrimSpace(seg[open+1 : len(seg)-1])
		} else {
			email = seg
		}

		if !emailRegex.MatchString(email) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRecipient, seg)
		}
		recipients = append(recipients, &Recipient{Email: email, Name: name})
	}
	return recipients, nil
}
