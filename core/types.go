// Package core holds the unified data model, configuration, error
// taxonomy, and provider contract shared by all whatsfuse adapters.
package core

import "time"

// MessageKind classifies a unified message.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindImage    MessageKind = "image"
	KindVideo    MessageKind = "video"
	KindAudio    MessageKind = "audio"
	KindDocument MessageKind = "document"
	KindLocation MessageKind = "location"
	KindContact  MessageKind = "contact"
	KindSticker  MessageKind = "sticker"
	KindVoice    MessageKind = "voice"
	KindUnknown  MessageKind = "unknown"
)

// SessionState is the lifecycle state of a provider session.
type SessionState string

const (
	SessionReady    SessionState = "READY"
	SessionStarting SessionState = "STARTING"
	SessionScanQR   SessionState = "SCAN_QR_CODE"
	SessionWorking  SessionState = "WORKING"
	SessionFailed   SessionState = "FAILED"
	SessionStopped  SessionState = "STOPPED"
)

// Message is the unified message record. Identifiers are provider-opaque
// strings. An empty optional field means the provider did not report it.
type Message struct {
	ID     string
	ChatID string
	Text   string

	// Timestamp is taken from the provider response and is the zero
	// value when the provider does not report one. It is never
	// fabricated locally.
	Timestamp time.Time

	FromMe bool
	Sender string
	Kind   MessageKind

	Caption  string
	MediaURL string
	MimeType string
	Filename string

	Latitude     *float64
	Longitude    *float64
	LocationName string

	QuotedMessageID string
	Forwarded       bool
	Starred         bool

	// Metadata carries provider-specific leftovers with no unified
	// meaning.
	Metadata map[string]any
}

// Chat is the unified chat record.
type Chat struct {
	ID            string
	Name          string
	IsGroup       bool
	Archived      bool
	Muted         bool
	LastMessage   string
	LastMessageAt time.Time
	UnreadCount   int
	PictureURL    string
	Metadata      map[string]any
}

// Contact is the unified contact record.
type Contact struct {
	ID           string
	Phone        string
	Name         string
	ShortName    string
	IsBusiness   bool
	IsEnterprise bool
	PictureURL   string
	Status       string
	Metadata     map[string]any
}

// Group is the unified group record.
type Group struct {
	ID           string
	Name         string
	Owner        string
	CreatedAt    time.Time
	Participants []string
	Admins       []string
	Description  string
	PictureURL   string
	Metadata     map[string]any
}

// Session is the unified session record. Only providers with session
// management (WAHA) produce these.
type Session struct {
	Name          string
	State         SessionState
	Authenticated bool
	QRCode        string
	PhoneNumber   string
	Metadata      map[string]any
}

// Media is a message payload: either a URL the provider fetches or raw
// bytes. Exactly one of URL and Data should be set.
type Media struct {
	URL      string
	Data     []byte
	MimeType string
	Filename string
}
