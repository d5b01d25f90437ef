package app

// Event types pushed to a workspace's websocket clients.
const (
	EventMessage        = "chat.message"
	EventUploadProgress = "upload.progress"
	EventUploadDone     = "upload.complete"
	EventUploadFailed   = "upload.error"
	EventUploadCleared  = "upload.cleared"
	EventConnectState   = "connect.state"
	EventHistory        = "history.updated"
)

// Event is one notification for a workspace.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Publisher delivers events to the clients of one workspace.
type Publisher interface {
	Publish(workspaceID string, ev Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, Event) {}
