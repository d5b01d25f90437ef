package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleOfficer UserRole = "officer"
	RoleUser    UserRole = "user"
)

type User struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

// Initials returns the upper-case first letters of each word in the name.
func (u User) Initials() string {
	var out []rune
	start := true
	for _, r := range u.Name {
		if r == ' ' {
			start = true
			continue
		}
		if start {
			out = append(out, r)
			start = false
		}
	}
	return strings.ToUpper(string(out))
}

type MessageType string

const (
	MessageUser MessageType = "user"
	MessageBot  MessageType = "bot"
)

type ChatMessage struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Sources   []string    `json:"sources,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Answer is the responder output.
type Answer struct {
	Response string   `json:"response"`
	Sources  []string `json:"sources"`
}

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadSuccess   UploadStatus = "success"
	UploadError     UploadStatus = "error"
)

// UploadItem is one selected file waiting for or going through a simulated upload.
type UploadItem struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Size        int64        `json:"size"`
	ContentType string       `json:"contentType,omitempty"`
	Status      UploadStatus `json:"status"`
	Progress    int          `json:"progress"`
	Data        []byte       `json:"-"`
}

type UploadHistoryRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status string `json:"status"`
	Size   string `json:"size"`
}

type QueryHistoryRecord struct {
	ID           string `json:"id"`
	Query        string `json:"query"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	SourcesCount int    `json:"sourcesCount"`
}

// History record types.
const (
	RecordDocument = "Document"
	RecordDatabase = "Database"
	RecordWeb      = "Web"
	RecordSuccess  = "Success"
)

type Panel string

const (
	PanelDashboard Panel = "dashboard"
	PanelAskSaral  Panel = "ask-saral"
	PanelAddData   Panel = "add-data"
	PanelHistory   Panel = "history"
	PanelSettings  Panel = "settings"
)

type NavItem struct {
	ID    Panel  `json:"id"`
	Label string `json:"label"`
}

type ConnectKind string

const (
	ConnectWeb      ConnectKind = "web"
	ConnectDatabase ConnectKind = "database"
)

type ConnectStatus string

const (
	ConnectIdle       ConnectStatus = "idle"
	ConnectConnecting ConnectStatus = "connecting"
	ConnectConnected  ConnectStatus = "connected"
)

type ConnectState struct {
	Kind   ConnectKind   `json:"kind"`
	Status ConnectStatus `json:"status"`
	Input  string        `json:"input"`
}

type NotificationPrefs struct {
	Email   bool `json:"emailNotifications"`
	Uploads bool `json:"uploadNotifications"`
	Queries bool `json:"queryAlerts"`
	System  bool `json:"systemUpdates"`
}

// DefaultNotificationPrefs is on, on, off, on.
func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{Email: true, Uploads: true, Queries: false, System: true}
}

type Settings struct {
	Profile       User              `json:"profile"`
	Initials      string            `json:"initials"`
	Notifications NotificationPrefs `json:"notifications"`
}

// Chunk is a slice of ingested text tied to its source.
type Chunk struct {
	ID        string            `json:"id"`
	SourceID  string            `json:"sourceId"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
