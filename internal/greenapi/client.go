// Package greenapi implements the provider contract against the
// Green API hosted WhatsApp gateway.
package greenapi

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/matheus3301/whatsfuse/core"
	"github.com/matheus3301/whatsfuse/internal/transport"
)

// DefaultBaseURL is the hosted Green API endpoint, overridable via
// Config.APIURL for partner domains.
const DefaultBaseURL = "https://api.green-api.com"

var _ core.Provider = (*Client)(nil)

// Client is the Green API adapter. Green API has no session
// management; NoSessions supplies the not-supported defaults.
type Client struct {
	core.NoSessions

	http       *transport.Client
	instanceID string
	token      string
	logger     *zap.Logger
}

// New creates a Green API adapter from a validated config.
func New(cfg *core.Config, logger *zap.Logger) *Client {
	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		NoSessions: core.NoSessions{ProviderName: core.ProviderGreenAPI},
		http: transport.New(transport.Options{
			BaseURL:        baseURL,
			Timeout:        cfg.Timeout,
			ConnectTimeout: cfg.ConnectTimeout,
			MaxRetries:     cfg.MaxRetries,
			RetryDelay:     cfg.RetryDelay,
			Provider:       core.ProviderGreenAPI,
			Logger:         logger,
		}),
		instanceID: cfg.InstanceID,
		token:      cfg.APIToken,
		logger:     logger,
	}
}

// Capabilities reports Green API's parameter support. Mentions have no
// field in its send methods and are dropped. The filename is native
// but mandatory on SendFileByUrl: when the caller omits it, the URL
// path's last segment is used instead.
func (c *Client) Capabilities() core.Capabilities {
	return core.Capabilities{
		Provider: core.ProviderGreenAPI,
		Sessions: false,
		Params: map[core.Param]core.ParamPolicy{
			core.ParamReplyTo:     core.PolicyNative,
			core.ParamMentions:    core.PolicyDropped,
			core.ParamLinkPreview: core.PolicyNative,
			core.ParamFilename:    core.PolicyNative,
			core.ParamCaption:     core.PolicyNative,
			core.ParamAddress:     core.PolicyNative,
		},
	}
}

// method builds the Green API path: /waInstance{id}/{Method}/{token}.
func (c *Client) method(name string) string {
	return fmt.Sprintf("/waInstance%s/%s/%s", c.instanceID, name, c.token)
}

// SendText sends a text message. The unified reply-to translates to
// quotedMessageId; mentions are dropped per the declared policy.
func (c *Client) SendText(ctx context.Context, chatID, text string, opts *core.TextOptions) (*core.Message, error) {
	if chatID == "" {
		return nil, core.ErrInvalidRequest(core.ProviderGreenAPI, "chat id is required")
	}
	if text == "" {
		return nil, core.ErrInvalidRequest(core.ProviderGreenAPI, "text is required")
	}
	if opts == nil {
		opts = &core.TextOptions{}
	}

	payload := map[string]any{
		"chatId":      chatID,
		"message":     text,
		"linkPreview": !opts.DisableLinkPreview,
	}
	if opts.ReplyTo != "" {
		payload["quotedMessageId"] = opts.ReplyTo
	}
	if len(opts.Mentions) > 0 {
		c.logger.Warn("dropping unsupported parameter",
			zap.String("param", string(core.ParamMentions)),
		)
	}
	mergeExtra(payload, opts.Extra)

	return c.send(ctx, "SendMessage", payload, chatID, core.KindText, text, "")
}

// SendImage sends an image by URL.
func (c *Client) SendImage(ctx context.Context, chatID string, media core.Media, opts *core.MediaOptions) (*core.Message, error) {
	return c.sendMedia(ctx, chatID, media, opts, core.KindImage)
}

// SendFile sends a document by URL.
func (c *Client) SendFile(ctx context.Context, chatID string, media core.Media, opts *core.MediaOptions) (*core.Message, error) {
	return c.sendMedia(ctx, chatID, media, opts, core.KindDocument)
}

// SendVideo sends a video by URL.
func (c *Client) SendVideo(ctx context.Context, chatID string, media core.Media, opts *core.MediaOptions) (*core.Message, error) {
	return c.sendMedia(ctx, chatID, media, opts, core.KindVideo)
}

// SendAudio sends an audio file by URL.
func (c *Client) SendAudio(ctx context.Context, chatID string, media core.Media, opts *core.AudioOptions) (*core.Message, error) {
	if opts == nil {
		opts = &core.AudioOptions{}
	}
	return c.sendMedia(ctx, chatID, media, &core.MediaOptions{
		ReplyTo: opts.ReplyTo,
		Extra:   opts.Extra,
	}, core.KindAudio)
}

// sendMedia maps all media kinds onto SendFileByUrl. Green API fetches
// the file itself, so raw bytes are a documented limitation rather
// than a droppable option: the payload is required.
func (c *Client) sendMedia(ctx context.Context, chatID string, media core.Media, opts *core.MediaOptions, kind core.MessageKind) (*core.Message, error) {
	if chatID == "" {
		return nil, core.ErrInvalidRequest(core.ProviderGreenAPI, "chat id is required")
	}
	if opts == nil {
		opts = &core.MediaOptions{}
	}
	if media.URL == "" {
		if len(media.Data) > 0 {
			return nil, core.ErrInvalidRequest(core.ProviderGreenAPI, "green_api sends media by url only; raw bytes are not supported")
		}
		return nil, core.ErrInvalidRequest(core.ProviderGreenAPI, "media requires a url")
	}

	filename := opts.Filename
	if filename == "" {
		filename = media.Filename
	}
	if filename == "" {
		// SendFileByUrl requires a file name to build the document;
		// the recipient sees it, so derive one from the URL.
		filename = filenameFromURL(media.URL)
	}

	payload := map[string]any{
		"chatId":   chatID,
		"urlFile":  media.URL,
		"fileName": filename,
	}
	if opts.Caption != "" {
		payload["caption"] = opts.Caption
	}
	if opts.ReplyTo != "" {
		payload["quotedMessageId"] = opts.ReplyTo
	}
	mergeExtra(payload, opts.Extra)

	msg, err := c.send(ctx, "SendFileByUrl", payload, chatID, kind, "", opts.Caption)
	if err != nil {
		return nil, err
	}
	msg.MediaURL = media.URL
	msg.MimeType = media.MimeType
	msg.Filename = filename
	return msg, nil
}

// SendLocation sends a location pin. Name and address are both native
// Green API fields.
func (c *Client) SendLocation(ctx context.Context, chatID string, latitude, longitude float64, opts *core.LocationOptions) (*core.Message, error) {
	if chatID == "" {
		return nil, core.ErrInvalidRequest(core.ProviderGreenAPI, "chat id is required")
	}
	if opts == nil {
		opts = &core.LocationOptions{}
	}

	payload := map[string]any{
		"chatId":    chatID,
		"latitude":  latitude,
		"longitude": longitude,
	}
	if opts.Name != "" {
		payload["nameLocation"] = opts.Name
	}
	if opts.Address != "" {
		payload["address"] = opts.Address
	}
	if opts.ReplyTo != "" {
		payload["quotedMessageId"] = opts.ReplyTo
	}
	mergeExtra(payload, opts.Extra)

	msg, err := c.send(ctx, "SendLocation", payload, chatID, core.KindLocation, "", "")
	if err != nil {
		return nil, err
	}
	msg.Latitude = &latitude
	msg.Longitude = &longitude
	msg.LocationName = opts.Name
	return msg, nil
}

func (c *Client) send(ctx context.Context, method string, payload map[string]any, chatID string, kind core.MessageKind, text, caption string) (*core.Message, error) {
	var resp wireSendResponse
	if err := c.http.PostJSON(ctx, c.method(method), payload, &resp); err != nil {
		return nil, mapError(err, true)
	}
	if resp.IDMessage == "" {
		return nil, core.ErrTransformation(core.ProviderGreenAPI, "send response missing idMessage")
	}
	return &core.Message{
		ID:       resp.IDMessage,
		ChatID:   chatID,
		Text:     text,
		FromMe:   true,
		Kind:     kind,
		Caption:  caption,
		Metadata: map[string]any{},
	}, nil
}

// Chats lists chats. Green API has no server-side limit parameter, so
// the unified limit is applied locally.
func (c *Client) Chats(ctx context.Context, limit int) ([]core.Chat, error) {
	var resp []wireChat
	if err := c.http.GetJSON(ctx, c.method("GetChats"), nil, &resp); err != nil {
		return nil, mapError(err, false)
	}
	if limit > 0 && limit < len(resp) {
		resp = resp[:limit]
	}
	chats := make([]core.Chat, 0, len(resp))
	for i := range resp {
		chats = append(chats, toChat(&resp[i]))
	}
	return chats, nil
}

// ChatHistory fetches the most recent messages of a chat.
func (c *Client) ChatHistory(ctx context.Context, chatID string, limit int) ([]core.Message, error) {
	if chatID == "" {
		return nil, core.ErrInvalidRequest(core.ProviderGreenAPI, "chat id is required")
	}
	payload := map[string]any{"chatId": chatID}
	if limit > 0 {
		payload["count"] = limit
	}
	var resp []wireHistoryMessage
	if err := c.http.PostJSON(ctx, c.method("GetChatHistory"), payload, &resp); err != nil {
		return nil, mapError(err, false)
	}
	messages := make([]core.Message, 0, len(resp))
	for i := range resp {
		messages = append(messages, toMessage(&resp[i]))
	}
	return messages, nil
}

// MarkRead marks a whole chat, or one message, as read.
func (c *Client) MarkRead(ctx context.Context, chatID, messageID string) error {
	if chatID == "" {
		return core.ErrInvalidRequest(core.ProviderGreenAPI, "chat id is required")
	}
	payload := map[string]any{"chatId": chatID}
	if messageID != "" {
		payload["idMessage"] = messageID
	}
	if err := c.http.PostJSON(ctx, c.method("ReadChat"), payload, nil); err != nil {
		return mapError(err, false)
	}
	return nil
}

// Contacts lists all contacts of the instance.
func (c *Client) Contacts(ctx context.Context) ([]core.Contact, error) {
	var resp []wireContact
	if err := c.http.GetJSON(ctx, c.method("GetContacts"), nil, &resp); err != nil {
		return nil, mapError(err, false)
	}
	contacts := make([]core.Contact, 0, len(resp))
	for i := range resp {
		contacts = append(contacts, toContact(&resp[i]))
	}
	return contacts, nil
}

// ContactInfo fetches a single contact.
func (c *Client) ContactInfo(ctx context.Context, contactID string) (*core.Contact, error) {
	if contactID == "" {
		return nil, core.ErrInvalidRequest(core.ProviderGreenAPI, "contact id is required")
	}
	query := url.Values{"chatId": {contactID}}
	var resp wireContactInfo
	if err := c.http.GetJSON(ctx, c.method("GetContactInfo"), query, &resp); err != nil {
		return nil, mapError(err, false)
	}
	contact := toContactInfo(&resp)
	return &contact, nil
}

// IsRegistered checks whether a phone number exists on WhatsApp.
func (c *Client) IsRegistered(ctx context.Context, phone string) (bool, error) {
	if phone == "" {
		return false, core.ErrInvalidRequest(core.ProviderGreenAPI, "phone number is required")
	}
	payload := map[string]any{"phoneNumber": phonePayload(phone)}
	var resp wireCheckWhatsapp
	if err := c.http.PostJSON(ctx, c.method("CheckWhatsapp"), payload, &resp); err != nil {
		return false, mapError(err, false)
	}
	return resp.ExistsWhatsapp, nil
}

// Close releases the transport.
func (c *Client) Close() error {
	c.http.Close()
	return nil
}
