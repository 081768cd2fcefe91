// Package waha implements the provider contract against a WAHA
// (WhatsApp HTTP API) server.
package waha

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/matheus3301/whatsfuse/core"
	"github.com/matheus3301/whatsfuse/internal/transport"
)

var _ core.Provider = (*Client)(nil)

// Client is the WAHA adapter. One instance owns one transport handle
// bound to a single WAHA server and session name.
type Client struct {
	http    *transport.Client
	session string
	logger  *zap.Logger
}

// New creates a WAHA adapter from a validated config.
func New(cfg *core.Config, logger *zap.Logger) *Client {
	return &Client{
		http: transport.New(transport.Options{
			BaseURL:        cfg.APIURL,
			Headers:        map[string]string{"X-Api-Key": cfg.APIKey},
			Timeout:        cfg.Timeout,
			ConnectTimeout: cfg.ConnectTimeout,
			MaxRetries:     cfg.MaxRetries,
			RetryDelay:     cfg.RetryDelay,
			Provider:       core.ProviderWAHA,
			Logger:         logger,
		}),
		session: cfg.Session,
		logger:  logger,
	}
}

// Capabilities reports WAHA's parameter support. The only dropped
// unified parameter is the location address: WAHA carries a single
// "title" field.
func (c *Client) Capabilities() core.Capabilities {
	return core.Capabilities{
		Provider: core.ProviderWAHA,
		Sessions: true,
		Params: map[core.Param]core.ParamPolicy{
			core.ParamReplyTo:     core.PolicyNative,
			core.ParamMentions:    core.PolicyNative,
			core.ParamLinkPreview: core.PolicyNative,
			core.ParamFilename:    core.PolicyNative,
			core.ParamCaption:     core.PolicyNative,
			core.ParamAddress:     core.PolicyDropped,
		},
	}
}

func (c *Client) payload(chatID string) map[string]any {
	return map[string]any{
		"session": c.session,
		"chatId":  chatID,
	}
}

// SendText sends a text message. reply_to, mentions and linkPreview
// are WAHA-native fields.
func (c *Client) SendText(ctx context.Context, chatID, text string, opts *core.TextOptions) (*core.Message, error) {
	if chatID == "" {
		return nil, core.ErrInvalidRequest(core.ProviderWAHA, "chat id is required")
	}
	if text == "" {
		return nil, core.ErrInvalidRequest(core.ProviderWAHA, "text is required")
	}
	if opts == nil {
		opts = &core.TextOptions{}
	}

	payload := c.payload(chatID)
	payload["text"] = text
	payload["linkPreview"] = !opts.DisableLinkPreview
	if opts.ReplyTo != "" {
		payload["reply_to"] = opts.ReplyTo
	}
	if len(opts.Mentions) > 0 {
		payload["mentions"] = opts.Mentions
	}
	mergeExtra(payload, opts.Extra)

	return c.send(ctx, "/api/sendText", payload, chatID)
}

// SendImage sends an image with an optional caption.
func (c *Client) SendImage(ctx context.Context, chatID string, media core.Media, opts *core.MediaOptions) (*core.Message, error) {
	return c.sendMedia(ctx, "/api/sendImage", chatID, media, opts)
}

// SendFile sends a document.
func (c *Client) SendFile(ctx context.Context, chatID string, media core.Media, opts *core.MediaOptions) (*core.Message, error) {
	return c.sendMedia(ctx, "/api/sendFile", chatID, media, opts)
}

// SendVideo sends a video with an optional caption.
func (c *Client) SendVideo(ctx context.Context, chatID string, media core.Media, opts *core.MediaOptions) (*core.Message, error) {
	return c.sendMedia(ctx, "/api/sendVideo", chatID, media, opts)
}

// SendAudio sends an audio message via WAHA's voice endpoint.
func (c *Client) SendAudio(ctx context.Context, chatID string, media core.Media, opts *core.AudioOptions) (*core.Message, error) {
	if opts == nil {
		opts = &core.AudioOptions{}
	}
	return c.sendMedia(ctx, "/api/sendVoice", chatID, media, &core.MediaOptions{
		ReplyTo: opts.ReplyTo,
		Extra:   opts.Extra,
	})
}

func (c *Client) sendMedia(ctx context.Context, path, chatID string, media core.Media, opts *core.MediaOptions) (*core.Message, error) {
	if chatID == "" {
		return nil, core.ErrInvalidRequest(core.ProviderWAHA, "chat id is required")
	}
	if opts == nil {
		opts = &core.MediaOptions{}
	}

	file, err := mediaField(media, opts.Filename)
	if err != nil {
		return nil, err
	}

	payload := c.payload(chatID)
	payload["file"] = file
	if opts.Caption != "" {
		payload["caption"] = opts.Caption
	}
	if opts.ReplyTo != "" {
		payload["reply_to"] = opts.ReplyTo
	}
	mergeExtra(payload, opts.Extra)

	return c.send(ctx, path, payload, chatID)
}

// SendLocation sends a location pin. The unified address parameter has
// no WAHA field and is dropped; the name maps to WAHA's title.
func (c *Client) SendLocation(ctx context.Context, chatID string, latitude, longitude float64, opts *core.LocationOptions) (*core.Message, error) {
	if chatID == "" {
		return nil, core.ErrInvalidRequest(core.ProviderWAHA, "chat id is required")
	}
	if opts == nil {
		opts = &core.LocationOptions{}
	}

	payload := c.payload(chatID)
	payload["latitude"] = latitude
	payload["longitude"] = longitude
	if opts.Name != "" {
		payload["title"] = opts.Name
	}
	if opts.Address != "" {
		c.logger.Warn("dropping unsupported parameter",
			zap.String("param", string(core.ParamAddress)),
		)
	}
	if opts.ReplyTo != "" {
		payload["reply_to"] = opts.ReplyTo
	}
	mergeExtra(payload, opts.Extra)

	return c.send(ctx, "/api/sendLocation", payload, chatID)
}

func (c *Client) send(ctx context.Context, path string, payload map[string]any, chatID string) (*core.Message, error) {
	var resp wireMessage
	if err := c.http.PostJSON(ctx, path, payload, &resp); err != nil {
		return nil, mapError(err, true, true)
	}
	return c.toMessage(&resp, chatID)
}

// Chats lists chats for the configured session.
func (c *Client) Chats(ctx context.Context, limit int) ([]core.Chat, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp []wireChat
	path := fmt.Sprintf("/api/%s/chats", url.PathEscape(c.session))
	if err := c.http.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, mapError(err, false, true)
	}
	chats := make([]core.Chat, 0, len(resp))
	for i := range resp {
		chat, err := c.toChat(&resp[i])
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

// ChatHistory fetches the most recent messages of a chat.
func (c *Client) ChatHistory(ctx context.Context, chatID string, limit int) ([]core.Message, error) {
	if chatID == "" {
		return nil, core.ErrInvalidRequest(core.ProviderWAHA, "chat id is required")
	}
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	query.Set("downloadMedia", "false")

	path := fmt.Sprintf("/api/%s/chats/%s/messages", url.PathEscape(c.session), url.PathEscape(chatID))
	var resp []wireMessage
	if err := c.http.GetJSON(ctx, path, query, &resp); err != nil {
		return nil, mapError(err, false, true)
	}
	messages := make([]core.Message, 0, len(resp))
	for i := range resp {
		msg, err := c.toMessage(&resp[i], chatID)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

// MarkRead marks a chat (or a single message) as seen.
func (c *Client) MarkRead(ctx context.Context, chatID, messageID string) error {
	if chatID == "" {
		return core.ErrInvalidRequest(core.ProviderWAHA, "chat id is required")
	}
	payload := c.payload(chatID)
	if messageID != "" {
		payload["messageId"] = messageID
	}
	if err := c.http.PostJSON(ctx, "/api/sendSeen", payload, nil); err != nil {
		return mapError(err, false, true)
	}
	return nil
}

// Contacts lists all contacts known to the session.
func (c *Client) Contacts(ctx context.Context) ([]core.Contact, error) {
	query := url.Values{"session": {c.session}}
	var resp []wireContact
	if err := c.http.GetJSON(ctx, "/api/contacts/all", query, &resp); err != nil {
		return nil, mapError(err, false, true)
	}
	contacts := make([]core.Contact, 0, len(resp))
	for i := range resp {
		contact, err := toContact(&resp[i])
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

// ContactInfo fetches a single contact.
func (c *Client) ContactInfo(ctx context.Context, contactID string) (*core.Contact, error) {
	if contactID == "" {
		return nil, core.ErrInvalidRequest(core.ProviderWAHA, "contact id is required")
	}
	query := url.Values{
		"contactId": {contactID},
		"session":   {c.session},
	}
	var resp wireContact
	if err := c.http.GetJSON(ctx, "/api/contacts", query, &resp); err != nil {
		return nil, mapError(err, false, true)
	}
	contact, err := toContact(&resp)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// IsRegistered checks whether a phone number exists on WhatsApp.
func (c *Client) IsRegistered(ctx context.Context, phone string) (bool, error) {
	if phone == "" {
		return false, core.ErrInvalidRequest(core.ProviderWAHA, "phone number is required")
	}
	query := url.Values{
		"phone":   {phone},
		"session": {c.session},
	}
	var resp wireNumberStatus
	if err := c.http.GetJSON(ctx, "/api/contacts/check-exists", query, &resp); err != nil {
		return false, mapError(err, false, true)
	}
	return resp.NumberExists, nil
}

// CreateSession creates and starts a named session.
func (c *Client) CreateSession(ctx context.Context, name string) (*core.Session, error) {
	if name == "" {
		return nil, core.ErrInvalidRequest(core.ProviderWAHA, "session name is required")
	}
	payload := map[string]any{
		"name":  name,
		"start": true,
	}
	var resp wireSession
	if err := c.http.PostJSON(ctx, "/api/sessions", payload, &resp); err != nil {
		return nil, mapError(err, false, false)
	}
	session := toSession(&resp)
	return &session, nil
}

// Sessions lists all sessions on the server, including stopped ones.
func (c *Client) Sessions(ctx context.Context) ([]core.Session, error) {
	query := url.Values{"all": {"true"}}
	var resp []wireSession
	if err := c.http.GetJSON(ctx, "/api/sessions", query, &resp); err != nil {
		return nil, mapError(err, false, false)
	}
	sessions := make([]core.Session, 0, len(resp))
	for i := range resp {
		sessions = append(sessions, toSession(&resp[i]))
	}
	return sessions, nil
}

// Close releases the transport.
func (c *Client) Close() error {
	c.http.Close()
	return nil
}
