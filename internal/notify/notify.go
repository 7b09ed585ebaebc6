// Package notify delivers templated notifications to applicants, hospitals and donors.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Template names a notification message.
type Template string

const (
	ApplicationReceived      Template = "application_received"
	ApplicationApproved      Template = "application_approved"
	ApplicationRejected      Template = "application_rejected"
	ApplicationInfoRequested Template = "application_info_requested"
	ConnectionProposed       Template = "connection_proposed"
	ConnectionResolved       Template = "connection_resolved"
)

// Notifier sends a templated message to a recipient address.
type Notifier interface {
	Notify(ctx context.Context, to string, tmpl Template, data map[string]string) error
}

type message struct {
	subject string
	body    string
}

var templates = map[Template]message{
	ApplicationReceived: {
		subject: "Application received: {{hospitalName}}",
		body:    "Hello {{repFirstName}}, we received the registration for {{hospitalName}} ({{city}}). Reference: {{applicationId}}. An administrator will review it shortly.",
	},
	ApplicationApproved: {
		subject: "{{hospitalName}} has been approved",
		body:    "Hello {{repFirstName}}, {{hospitalName}} is now verified. {{notice}}",
	},
	ApplicationRejected: {
		subject: "Application for {{hospitalName}} was not approved",
		body:    "Hello {{repFirstName}}, the registration for {{hospitalName}} was rejected. Reason: {{reason}}",
	},
	ApplicationInfoRequested: {
		subject: "More information needed for {{hospitalName}}",
		body:    "Hello {{repFirstName}}, the reviewer needs more information about {{hospitalName}}: {{notes}}",
	},
	ConnectionProposed: {
		subject: "New donor offer for a {{bloodType}} request",
		body:    "A donor offered to help with blood request {{requestId}} ({{bloodType}}). Review connection {{connectionId}} in the dashboard.",
	},
	ConnectionResolved: {
		subject: "Your donation offer was {{status}}",
		body:    "Your offer for blood request {{requestId}} was {{status}} by the hospital. {{notes}}",
	},
}

// Render fills tmpl with data. Placeholders without a value are removed.
func Render(tmpl Template, data map[string]string) (subject, body string, err error) {
	msg, ok := templates[tmpl]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", tmpl)
	}
	return fill(msg.subject, data), fill(msg.body, data), nil
}

func fill(tmpl string, data map[string]string) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return strings.TrimSpace(result)
}
