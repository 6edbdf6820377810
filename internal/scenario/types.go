// Package scenario normalizes the heterogeneous JSON shapes the console
// historically accepted (keyed objects, positional arrays, single-message
// arrays, CSV-derived rows) into one canonical scenario map.
package scenario

// Media is one attachment on a message.
type Media struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Message is one entry in a scenario conversation. Role is always one of
// customer, agent or system; MessageType preserves the raw source type so
// the renderer can distinguish template and escalation events.
type Message struct {
	Role        string  `json:"role"`
	Content     string  `json:"content"`
	MessageType string  `json:"messageType,omitempty"`
	Media       []Media `json:"media,omitempty"`
	DateTime    string  `json:"dateTime,omitempty"`
	ID          string  `json:"id,omitempty"`
}

// Scenario is the canonical record the console renders. Key is the map key
// it is stored under; ID is the stable identifier used for URL addressing
// and assignment correlation.
type Scenario struct {
	Key                   string              `json:"-"`
	ID                    string              `json:"id"`
	CompanyName           string              `json:"companyName"`
	CompanyWebsite        string              `json:"companyWebsite,omitempty"`
	AgentName             string              `json:"agentName,omitempty"`
	AgentInitial          string              `json:"agentInitial,omitempty"`
	MessageTone           string              `json:"messageTone,omitempty"`
	CustomerPhone         string              `json:"customerPhone,omitempty"`
	Conversation          []Message           `json:"conversation"`
	Notes                 map[string][]string `json:"notes,omitempty"`
	RightPanel            map[string]any      `json:"rightPanel,omitempty"`
	BlocklistedWords      []string            `json:"blocklisted_words,omitempty"`
	EscalationPreferences []string            `json:"escalation_preferences,omitempty"`
}
