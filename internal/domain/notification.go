package domain

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Default notification templates.
const (
	DefaultSubjectTemplate = "New event: {title}"
	DefaultMessageTemplate = "You are invited to {title}!\nVenue: {venue}\nDate: {date}\nDescription: {description}"

	// VenueNotSpecified stands in for a missing venue name.
	VenueNotSpecified = "not specified"

	// NotificationDateLayout renders the event start time in messages.
	NotificationDateLayout = "2006-01-02 15:04:05-07:00"
)

// NotificationConfig drives publication emails. Only one exists.
type NotificationConfig struct {
	SubjectTemplate string
	MessageTemplate string
	// RecipientsList is a comma separated list of addresses.
	RecipientsList string
	SendToAllUsers bool
}

// DefaultNotificationConfig returns the settings a fresh installation starts with.
func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		SubjectTemplate: DefaultSubjectTemplate,
		MessageTemplate: DefaultMessageTemplate,
		SendToAllUsers:  true,
	}
}

// ManualRecipients splits RecipientsList, dropping blanks.
func (c NotificationConfig) ManualRecipients() []string {
	var out []string
	for _, e := range strings.Split(c.RecipientsList, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Recipients returns the deduplicated, sorted union of the manual list and,
// when SendToAllUsers is set, every non-empty user email.
func Recipients(cfg NotificationConfig, userEmails []string) []string {
	set := make(map[string]struct{})
	for _, e := range cfg.ManualRecipients() {
		set[e] = struct{}{}
	}
	if cfg.SendToAllUsers {
		for _, e := range userEmails {
			if e = strings.TrimSpace(e); e != "" {
				set[e] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// RenderNotification fills the configured templates for ev. A template that
// references an unknown placeholder or has unbalanced braces falls back to a
// fixed subject and body instead of failing.
func RenderNotification(cfg NotificationConfig, ev Event, venueName string) Message {
	if strings.TrimSpace(venueName) == "" {
		venueName = VenueNotSpecified
	}
	date := ev.StartAt.Format(NotificationDateLayout)
	values := map[string]string{
		"title":       ev.Title,
		"venue":       venueName,
		"date":        date,
		"description": ev.Description,
	}

	subject, err := renderTemplate(cfg.SubjectTemplate, values)
	if err == nil {
		var body string
		body, err = renderTemplate(cfg.MessageTemplate, values)
		if err == nil {
			return Message{Subject: subject, Body: body}
		}
	}
	return Message{
		Subject: "New event: " + ev.Title,
		Body:    fmt.Sprintf("You are invited to %s (%s)", ev.Title, date),
	}
}

var errUnbalancedBrace = errors.New("unbalanced brace in template")

// Tags standing in for escaped braces. The NUL byte keeps them apart from any
// placeholder a template can name.
const (
	openBraceTag  = "\x00open"
	closeBraceTag = "\x00close"
)

// renderTemplate substitutes {name} placeholders. "{{" and "}}" are literal braces.
func renderTemplate(tmpl string, values map[string]string) (string, error) {
	escaped, err := escapeBraces(tmpl)
	if err != nil {
		return "", err
	}
	return fasttemplate.ExecuteFuncStringWithErr(escaped, "{", "}", func(w io.Writer, tag string) (int, error) {
		switch tag {
		case openBraceTag:
			return io.WriteString(w, "{")
		case closeBraceTag:
			return io.WriteString(w, "}")
		}
		v, ok := values[tag]
		if !ok {
			return 0, fmt.Errorf("unknown placeholder {%s}", tag)
		}
		return io.WriteString(w, v)
	})
}

// escapeBraces rewrites doubled braces as tags and rejects a stray "}" or an
// unterminated "{", which fasttemplate would otherwise pass through.
func escapeBraces(tmpl string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		switch c := tmpl[i]; {
		case c == '{' && strings.HasPrefix(tmpl[i:], "{{"):
			b.WriteString("{" + openBraceTag + "}")
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				return "", errUnbalancedBrace
			}
			b.WriteString(tmpl[i : i+end+1])
			i += end
		case c == '}' && strings.HasPrefix(tmpl[i:], "}}"):
			b.WriteString("{" + closeBraceTag + "}")
			i++
		case c == '}':
			return "", errUnbalancedBrace
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
