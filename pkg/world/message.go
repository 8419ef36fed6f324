package world

// Realtime frame types.
const (
	MessageHello      = "hello"
	MessageNarratives = "narratives"
)

// HelloText greets every new realtime connection.
const HelloText = "Connected to Fractured Truths"

// Message is a frame pushed to realtime listeners.
type Message struct {
	Type     string       `json:"type"`
	Message  string       `json:"message,omitempty"`
	ByPlayer NarrativeMap `json:"byPlayer,omitzero"`
	Event    *GameEvent   `json:"event,omitempty"`
}

// NarrativesMessage builds the frame announcing an event's narratives.
func NarrativesMessage(evt GameEvent, byPlayer NarrativeMap) Message {
	return Message{Type: MessageNarratives, ByPlayer: byPlayer, Event: &evt}
}

// ForPlayer returns a copy of a narratives frame restricted to playerID's
// entry. An empty playerID yields an empty, non-nil map.
func (m Message) ForPlayer(playerID string) Message {
	if m.Type != MessageNarratives {
		return m
	}
	out := m
	out.ByPlayer = NarrativeMap{}
	if text, ok := m.ByPlayer[playerID]; ok && playerID != "" {
		out.ByPlayer[playerID] = text
	}
	return out
}
