package models

// -----------------------------------------------------------------------------
// Websocket push structure
// -----------------------------------------------------------------------------

type MHubMessage struct {
	Type      string           `json:"type"` // "INITIAL" or "UPDATE"
	Entries   []MActivityEntry `json:"entries"`
	Timestamp int64            `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string              `json:"command"`
	Categories []MActivityCategory `json:"categories"`
}
