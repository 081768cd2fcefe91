package waha

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/matheus3301/whatsfuse/core"
	"github.com/matheus3301/whatsfuse/internal/transport"
)

// wireMessageID is the WAMessage id object. Some WAHA engines return a
// bare string instead; messageID handles both.
type wireMessageID struct {
	FromMe     bool   `json:"fromMe"`
	Remote     string `json:"remote"`
	ID         string `json:"id"`
	Serialized string `json:"_serialized"`
}

// wireMessage is the WAMessage shape returned by sends and history.
type wireMessage struct {
	ID          json.RawMessage `json:"id"`
	Timestamp   int64           `json:"timestamp"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	FromMe      bool            `json:"fromMe"`
	Body        string          `json:"body"`
	Caption     string          `json:"caption"`
	HasMedia    bool            `json:"hasMedia"`
	Media       *wireMedia      `json:"media"`
	QuotedMsgID string          `json:"quotedMsgId"`
	IsForwarded bool            `json:"isForwarded"`
	IsStarred   bool            `json:"isStarred"`
	Location    *wireLocation   `json:"location"`
	Ack         *int            `json:"ack"`
}

type wireMedia struct {
	URL      string `json:"url"`
	MimeType string `json:"mimetype"`
	Filename string `json:"filename"`
}

type wireLocation struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
}

type wireChat struct {
	ID                    json.RawMessage `json:"id"`
	Name                  string          `json:"name"`
	IsGroup               bool            `json:"isGroup"`
	IsArchived            bool            `json:"archived"`
	IsMuted               bool            `json:"isMuted"`
	UnreadCount           int             `json:"unreadCount"`
	ConversationTimestamp int64           `json:"conversationTimestamp"`
	Picture               string          `json:"picture"`
	LastMessage           *wireMessage    `json:"lastMessage"`
}

type wireContact struct {
	ID           json.RawMessage `json:"id"`
	Number       string          `json:"number"`
	Name         string          `json:"name"`
	PushName     string          `json:"pushname"`
	ShortName    string          `json:"shortName"`
	IsBusiness   bool            `json:"isBusiness"`
	IsEnterprise bool            `json:"isEnterprise"`
	ProfilePic   string          `json:"profilePictureUrl"`
	About        string          `json:"about"`
}

type wireSession struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Me     *struct {
		ID       string `json:"id"`
		PushName string `json:"pushName"`
	} `json:"me"`
	QR *struct {
		Value string `json:"value"`
	} `json:"qr"`
}

type wireNumberStatus struct {
	NumberExists bool   `json:"numberExists"`
	ChatID       string `json:"chatId"`
}

// messageID extracts the opaque unified ID from a WAMessage id, which
// is either an object (webjs engine) or a plain string (noweb engine).
func messageID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj wireMessageID
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	if obj.Serialized != "" {
		return obj.Serialized, nil
	}
	return obj.ID, nil
}

func (c *Client) toMessage(w *wireMessage, chatID string) (*core.Message, error) {
	id, err := messageID(w.ID)
	if err != nil {
		return nil, core.ErrTransformation(core.ProviderWAHA, "parse message id: %v", err)
	}

	msg := &core.Message{
		ID:              id,
		ChatID:          chatID,
		Text:            w.Body,
		FromMe:          w.FromMe,
		Sender:          w.From,
		Kind:            core.KindText,
		Caption:         w.Caption,
		QuotedMessageID: w.QuotedMsgID,
		Forwarded:       w.IsForwarded,
		Starred:         w.IsStarred,
		Metadata:        map[string]any{},
	}
	if chatID == "" && w.FromMe {
		msg.ChatID = w.To
	} else if chatID == "" {
		msg.ChatID = w.From
	}
	if w.Timestamp > 0 {
		msg.Timestamp = time.Unix(w.Timestamp, 0).UTC()
	}
	if w.Media != nil {
		msg.MediaURL = w.Media.URL
		msg.MimeType = w.Media.MimeType
		msg.Filename = w.Media.Filename
		msg.Kind = kindFromMime(w.Media.MimeType)
	}
	if w.Location != nil {
		lat, lon := w.Location.Latitude, w.Location.Longitude
		msg.Latitude = &lat
		msg.Longitude = &lon
		msg.LocationName = w.Location.Description
		msg.Kind = core.KindLocation
	}
	if w.Ack != nil {
		msg.Metadata["ack"] = *w.Ack
	}
	return msg, nil
}

func kindFromMime(mime string) core.MessageKind {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return core.KindImage
	case strings.HasPrefix(mime, "video/"):
		return core.KindVideo
	case strings.HasPrefix(mime, "audio/"):
		return core.KindAudio
	default:
		return core.KindDocument
	}
}

func (c *Client) toChat(w *wireChat) (core.Chat, error) {
	id, err := messageID(w.ID)
	if err != nil {
		return core.Chat{}, core.ErrTransformation(core.ProviderWAHA, "parse chat id: %v", err)
	}
	chat := core.Chat{
		ID:          id,
		Name:        w.Name,
		IsGroup:     w.IsGroup,
		Archived:    w.IsArchived,
		Muted:       w.IsMuted,
		UnreadCount: w.UnreadCount,
		PictureURL:  w.Picture,
		Metadata:    map[string]any{},
	}
	if w.ConversationTimestamp > 0 {
		chat.LastMessageAt = time.Unix(w.ConversationTimestamp, 0).UTC()
	}
	if w.LastMessage != nil {
		chat.LastMessage = w.LastMessage.Body
	}
	return chat, nil
}

func toContact(w *wireContact) (core.Contact, error) {
	id, err := messageID(w.ID)
	if err != nil {
		return core.Contact{}, core.ErrTransformation(core.ProviderWAHA, "parse contact id: %v", err)
	}
	name := w.Name
	if name == "" {
		name = w.PushName
	}
	return core.Contact{
		ID:           id,
		Phone:        w.Number,
		Name:         name,
		ShortName:    w.ShortName,
		IsBusiness:   w.IsBusiness,
		IsEnterprise: w.IsEnterprise,
		PictureURL:   w.ProfilePic,
		Status:       w.About,
		Metadata:     map[string]any{},
	}, nil
}

func toSession(w *wireSession) core.Session {
	s := core.Session{
		Name:          w.Name,
		State:         core.SessionState(w.Status),
		Authenticated: w.Status == string(core.SessionWorking),
		Metadata:      map[string]any{},
	}
	if w.Me != nil {
		s.PhoneNumber = w.Me.ID
		s.Metadata["push_name"] = w.Me.PushName
	}
	if w.QR != nil {
		s.QRCode = w.QR.Value
	}
	return s
}

// mediaField translates unified media into the WAHA file object. WAHA
// accepts either a fetchable URL or inline base64 data.
func mediaField(media core.Media, filename string) (map[string]any, error) {
	if media.URL == "" && len(media.Data) == 0 {
		return nil, core.ErrInvalidRequest(core.ProviderWAHA, "media requires a url or data")
	}
	field := map[string]any{}
	if media.URL != "" {
		field["url"] = media.URL
	} else {
		field["data"] = base64.StdEncoding.EncodeToString(media.Data)
	}
	if media.MimeType != "" {
		field["mimetype"] = media.MimeType
	}
	if filename == "" {
		filename = media.Filename
	}
	if filename != "" {
		field["filename"] = filename
	}
	return field, nil
}

// mapError translates transport failures into the unified taxonomy.
// Non-status errors (network, transformation) pass through already
// tagged.
func mapError(err error, send, sessionScoped bool) error {
	st, ok := err.(*transport.StatusError)
	if !ok {
		return err
	}
	base := core.BaseError{Provider: core.ProviderWAHA, Message: st.Error()}
	switch {
	case st.Code == http.StatusUnauthorized || st.Code == http.StatusForbidden:
		return &core.AuthenticationError{BaseError: base}
	case st.Code == http.StatusNotFound && sessionScoped:
		return &core.SessionNotFoundError{BaseError: base}
	case st.Code == http.StatusBadRequest || st.Code == http.StatusUnprocessableEntity:
		return &core.InvalidRequestError{BaseError: base}
	case st.Code == http.StatusTooManyRequests:
		return &core.RateLimitError{BaseError: base, RetryAfter: st.RetryAfter}
	case send:
		return &core.MessageNotSentError{BaseError: base}
	default:
		return &core.ProviderError{BaseError: base}
	}
}

func mergeExtra(payload map[string]any, extra map[string]any) {
	for k, v := range extra {
		payload[k] = v
	}
}
