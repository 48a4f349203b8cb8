package conversation

import "strings"

// Content is the payload of an inbound message: nil when absent, Text or Document.
type Content interface {
	isContent()
}

// Text is a plain text message.
type Text struct {
	Body string
}

// Document is a generic file attachment. Only its metadata reaches the core.
type Document struct {
	MimeType string
	FileName string
}

func (Text) isContent()     {}
func (Document) isContent() {}

// Message is one inbound chat message as surfaced by a transport.
type Message struct {
	ConversationID string
	FromSelf       bool
	Content        Content
	// RID correlates log lines with the transport update, e.g. a Telegram
	// update id or a Twilio message SID.
	RID string
}

// Text returns the text body, or "" for documents and absent content.
func (m Message) Text() string {
	if t, ok := m.Content.(Text); ok {
		return t.Body
	}
	return ""
}

// Document returns the attached document, if any.
func (m Message) Document() (Document, bool) {
	d, ok := m.Content.(Document)
	return d, ok
}

// Kind names the content variant for logging.
func (m Message) Kind() string {
	switch m.Content.(type) {
	case Text:
		return "text"
	case Document:
		return "document"
	default:
		return "empty"
	}
}

// describe returns a short label for the document used as handoff detail.
func (d Document) describe() string {
	if name := strings.TrimSpace(d.FileName); name != "" {
		return name
	}
	if mt := strings.TrimSpace(d.MimeType); mt != "" {
		return mt
	}
	return "documento"
}

// normalizeChoice strips every whitespace rune so " 1 " and "1\n" select option 1.
func normalizeChoice(text string) string {
	return strings.Join(strings.Fields(text), "")
}

// normalizeCommand lowercases and trims text for global command matching.
func normalizeCommand(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
