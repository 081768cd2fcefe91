package greenapi

import (
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/whatsfuse/core"
	"github.com/matheus3301/whatsfuse/internal/transport"
)

// wireSendResponse is the only thing Green API returns from its send
// methods. There is no timestamp, so the unified Message keeps a zero
// Timestamp rather than a fabricated one.
type wireSendResponse struct {
	IDMessage string `json:"idMessage"`
}

type wireHistoryMessage struct {
	IDMessage   string `json:"idMessage"`
	Timestamp   int64  `json:"timestamp"`
	Type        string `json:"type"` // incoming | outgoing
	TypeMessage string `json:"typeMessage"`
	ChatID      string `json:"chatId"`
	SenderID    string `json:"senderId"`
	SenderName  string `json:"senderName"`
	TextMessage string `json:"textMessage"`
	Caption     string `json:"caption"`
	DownloadURL string `json:"downloadUrl"`
	FileName    string `json:"fileName"`
	MimeType    string `json:"mimeType"`
	IsForwarded bool   `json:"isForwarded"`
	Location    *struct {
		NameLocation string  `json:"nameLocation"`
		Latitude     float64 `json:"latitude"`
		Longitude    float64 `json:"longitude"`
	} `json:"location"`
	QuotedMessage *struct {
		StanzaID string `json:"stanzaId"`
	} `json:"quotedMessage"`
}

type wireChat struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Archive          bool   `json:"archive"`
	MuteExpiration   int64  `json:"muteExpiration"`
	LastMessageTime  int64  `json:"lastMessageTime"`
	EphemeralExpires int64  `json:"ephemeralExpiration"`
}

type wireContact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContactName string `json:"contactName"`
	Type        string `json:"type"` // user | group
}

type wireContactInfo struct {
	ChatID      string `json:"chatId"`
	Name        string `json:"name"`
	ContactName string `json:"contactName"`
	Avatar      string `json:"avatar"`
	Description string `json:"description"`
	IsArchive   bool   `json:"isArchive"`
	Category    string `json:"category"`
}

type wireCheckWhatsapp struct {
	ExistsWhatsapp bool `json:"existsWhatsapp"`
}

var messageKinds = map[string]core.MessageKind{
	"textMessage":         core.KindText,
	"extendedTextMessage": core.KindText,
	"imageMessage":        core.KindImage,
	"videoMessage":        core.KindVideo,
	"audioMessage":        core.KindAudio,
	"documentMessage":     core.KindDocument,
	"locationMessage":     core.KindLocation,
	"contactMessage":      core.KindContact,
	"stickerMessage":      core.KindSticker,
}

func messageKind(typeMessage string) core.MessageKind {
	if kind, ok := messageKinds[typeMessage]; ok {
		return kind
	}
	return core.KindUnknown
}

func toMessage(w *wireHistoryMessage) core.Message {
	msg := core.Message{
		ID:        w.IDMessage,
		ChatID:    w.ChatID,
		Text:      w.TextMessage,
		FromMe:    w.Type == "outgoing",
		Sender:    w.SenderID,
		Kind:      messageKind(w.TypeMessage),
		Caption:   w.Caption,
		MediaURL:  w.DownloadURL,
		MimeType:  w.MimeType,
		Filename:  w.FileName,
		Forwarded: w.IsForwarded,
		Metadata:  map[string]any{},
	}
	if w.Timestamp > 0 {
		msg.Timestamp = time.Unix(w.Timestamp, 0).UTC()
	}
	if w.Location != nil {
		lat, lon := w.Location.Latitude, w.Location.Longitude
		msg.Latitude = &lat
		msg.Longitude = &lon
		msg.LocationName = w.Location.NameLocation
	}
	if w.QuotedMessage != nil {
		msg.QuotedMessageID = w.QuotedMessage.StanzaID
	}
	if w.SenderName != "" {
		msg.Metadata["sender_name"] = w.SenderName
	}
	return msg
}

func toChat(w *wireChat) core.Chat {
	chat := core.Chat{
		ID:       w.ID,
		Name:     w.Name,
		IsGroup:  strings.HasSuffix(w.ID, "@g.us"),
		Archived: w.Archive,
		Muted:    w.MuteExpiration > 0,
		Metadata: map[string]any{},
	}
	if chat.Name == "" {
		chat.Name = phoneFromChatID(w.ID)
	}
	if w.LastMessageTime > 0 {
		chat.LastMessageAt = time.Unix(w.LastMessageTime, 0).UTC()
	}
	if w.EphemeralExpires > 0 {
		chat.Metadata["ephemeral_expiration"] = w.EphemeralExpires
	}
	return chat
}

func toContact(w *wireContact) core.Contact {
	name := w.Name
	if name == "" {
		name = w.ContactName
	}
	return core.Contact{
		ID:       w.ID,
		Phone:    phoneFromChatID(w.ID),
		Name:     name,
		Metadata: map[string]any{"type": w.Type},
	}
}

func toContactInfo(w *wireContactInfo) core.Contact {
	name := w.Name
	if name == "" {
		name = w.ContactName
	}
	contact := core.Contact{
		ID:         w.ChatID,
		Phone:      phoneFromChatID(w.ChatID),
		Name:       name,
		IsBusiness: w.Category != "",
		PictureURL: w.Avatar,
		Status:     w.Description,
		Metadata:   map[string]any{},
	}
	if w.Category != "" {
		contact.Metadata["category"] = w.Category
	}
	return contact
}

// filenameFromURL derives the mandatory SendFileByUrl file name from
// the URL path's last segment when the caller gave none. "file" is the
// last resort for URLs with no usable path.
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "file"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}

// phoneFromChatID strips the server suffix from a chat id, e.g.
// "79001234567@c.us" -> "79001234567". Group ids have no phone.
func phoneFromChatID(id string) string {
	if strings.HasSuffix(id, "@g.us") {
		return ""
	}
	if i := strings.IndexByte(id, '@'); i >= 0 {
		return id[:i]
	}
	return id
}

// mapError translates transport failures into the unified taxonomy.
// Green API signals an unauthorized instance with 403 and quota
// exhaustion with 466.
func mapError(err error, send bool) error {
	st, ok := err.(*transport.StatusError)
	if !ok {
		return err
	}
	base := core.BaseError{Provider: core.ProviderGreenAPI, Message: st.Error()}
	switch {
	case st.Code == http.StatusUnauthorized:
		return &core.AuthenticationError{BaseError: base}
	case st.Code == http.StatusForbidden:
		return &core.InstanceNotAuthorizedError{BaseError: base}
	case st.Code == http.StatusBadRequest:
		return &core.InvalidRequestError{BaseError: base}
	case st.Code == http.StatusTooManyRequests || st.Code == 466:
		return &core.RateLimitError{BaseError: base, RetryAfter: st.RetryAfter}
	case send:
		return &core.MessageNotSentError{BaseError: base}
	default:
		return &core.ProviderError{BaseError: base}
	}
}

// phonePayload converts a unified phone string into the numeric form
// CheckWhatsapp expects, tolerating a leading plus. Non-numeric input
// is passed through for the provider to reject.
func phonePayload(phone string) any {
	trimmed := strings.TrimPrefix(phone, "+")
	if n, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
		return n
	}
	return phone
}

func mergeExtra(payload map[string]any, extra map[string]any) {
	for k, v := range extra {
		payload[k] = v
	}
}
