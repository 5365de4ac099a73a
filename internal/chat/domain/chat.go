// Package domain defines the types flowing through the conversation layer:
// inbound message and button-click events, and the structured replies the
// assistant sends back.
package domain

// Intents the keyword router can detect.
const (
	IntentGreeting = "greeting"
	IntentBalance  = "balance"
	IntentSchedule = "schedule"
	IntentHistory  = "history"
	IntentRaise    = "raise"
	IntentFarewell = "farewell"
	IntentYes      = "yes"
	IntentNo       = "no"
	IntentUnknown  = "unknown"
)

// MessageEvent is an inbound free-text message from the chat platform.
// ResponseURL is the one-shot destination for replies delivered after the
// original request/response cycle has completed.
type MessageEvent struct {
	Type        string `json:"type"`
	UserID      string `json:"user"`
	Text        string `json:"text"`
	ResponseURL string `json:"response_url"`
}

// ActionClick is one button press inside an interaction event.
type ActionClick struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// InteractionEvent is an inbound button-click callback.
type InteractionEvent struct {
	CallbackID  string        `json:"callback_id"`
	UserID      string        `json:"user"`
	Actions     []ActionClick `json:"actions"`
	ResponseURL string        `json:"response_url"`
}

// Action is a button offered to the user.
type Action struct {
	Name  string `json:"name"`
	Text  string `json:"text"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Attachment groups actions under a title, in the chat platform's
// interactive-message format.
type Attachment struct {
	Title          string   `json:"title"`
	CallbackID     string   `json:"callback_id"`
	AttachmentType string   `json:"attachment_type"`
	Actions        []Action `json:"actions,omitempty"`
}

// Reply is a structured outbound message.
type Reply struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Button builds a default-type action button.
func Button(name, text, value string) Action {
	return Action{Name: name, Text: text, Value: value, Type: "button"}
}
