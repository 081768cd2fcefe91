// Package whatsfuse is a unified client for third-party WhatsApp HTTP
// APIs. One fixed operation set works against every supported provider
// (WAHA, Green API); each adapter translates the unified parameters to
// its provider's wire format and normalizes the responses back into
// the unified records.
//
//	cfg := core.NewConfig(whatsfuse.ProviderWAHA)
//	cfg.APIURL = "http://localhost:3000"
//	cfg.APIKey = "secret"
//	client, err := whatsfuse.New(cfg)
//	if err != nil { ... }
//	defer client.Close()
//
//	msg, err := client.SendText(ctx, "123@c.us", "hello", nil)
package whatsfuse

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/whatsfuse/core"
	"github.com/matheus3301/whatsfuse/internal/greenapi"
	"github.com/matheus3301/whatsfuse/internal/logging"
	"github.com/matheus3301/whatsfuse/internal/waha"
)

// Re-exported so callers only import this package.
type (
	Config          = core.Config
	Message         = core.Message
	Chat            = core.Chat
	Contact         = core.Contact
	Group           = core.Group
	Session         = core.Session
	Media           = core.Media
	TextOptions     = core.TextOptions
	MediaOptions    = core.MediaOptions
	AudioOptions    = core.AudioOptions
	LocationOptions = core.LocationOptions
	Capabilities    = core.Capabilities
)

const (
	ProviderWAHA     = core.ProviderWAHA
	ProviderGreenAPI = core.ProviderGreenAPI
)

// Client is the facade over exactly one provider adapter, selected at
// construction for the client's lifetime. Methods forward directly to
// the adapter; no retries or caching happen at this layer.
type Client struct {
	cfg      *core.Config
	provider core.Provider
	logger   *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// New validates the config and builds the client for the selected
// provider. Configuration problems and unknown provider names fail
// here, before any network access.
func New(cfg *core.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(cfg.LogLevel, cfg.Provider)

	var provider core.Provider
	switch cfg.Provider {
	case core.ProviderWAHA:
		provider = waha.New(cfg, logger)
	case core.ProviderGreenAPI:
		provider = greenapi.New(cfg, logger)
	default:
		// Validate already rejects unknown names; kept for safety.
		return nil, core.ErrUnsupportedProvider(cfg.Provider)
	}

	logger.Debug("client created", zap.String("session", cfg.Session))

	return &Client{
		cfg:      cfg,
		provider: provider,
		logger:   logger,
	}, nil
}

// FromEnv builds a client from the WHATSFUSE_* / GREEN_API_*
// environment variables (see core.FromEnv for names and defaults).
func FromEnv() (*Client, error) {
	return New(core.FromEnv())
}

// Provider returns the active provider name.
func (c *Client) Provider() string { return c.cfg.Provider }

// Capabilities reports the active adapter's declared parameter and
// session support, for capability branching without trial calls.
func (c *Client) Capabilities() Capabilities {
	return c.provider.Capabilities()
}

// SendText sends a text message.
func (c *Client) SendText(ctx context.Context, chatID, text string, opts *TextOptions) (*Message, error) {
	return c.provider.SendText(ctx, chatID, text, opts)
}

// SendImage sends an image message.
func (c *Client) SendImage(ctx context.Context, chatID string, media Media, opts *MediaOptions) (*Message, error) {
	return c.provider.SendImage(ctx, chatID, media, opts)
}

// SendFile sends a document message.
func (c *Client) SendFile(ctx context.Context, chatID string, media Media, opts *MediaOptions) (*Message, error) {
	return c.provider.SendFile(ctx, chatID, media, opts)
}

// SendAudio sends an audio message.
func (c *Client) SendAudio(ctx context.Context, chatID string, media Media, opts *AudioOptions) (*Message, error) {
	return c.provider.SendAudio(ctx, chatID, media, opts)
}

// SendVideo sends a video message.
func (c *Client) SendVideo(ctx context.Context, chatID string, media Media, opts *MediaOptions) (*Message, error) {
	return c.provider.SendVideo(ctx, chatID, media, opts)
}

// SendLocation sends a location message.
func (c *Client) SendLocation(ctx context.Context, chatID string, latitude, longitude float64, opts *LocationOptions) (*Message, error) {
	return c.provider.SendLocation(ctx, chatID, latitude, longitude, opts)
}

// Chats lists chats. A limit of zero or less means the provider
// default.
func (c *Client) Chats(ctx context.Context, limit int) ([]Chat, error) {
	return c.provider.Chats(ctx, limit)
}

// DefaultHistoryLimit is applied by ChatHistory when limit <= 0.
const DefaultHistoryLimit = 50

// ChatHistory fetches the most recent messages of a chat.
func (c *Client) ChatHistory(ctx context.Context, chatID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return c.provider.ChatHistory(ctx, chatID, limit)
}

// MarkRead marks a chat as read; pass a message ID to mark a single
// message.
func (c *Client) MarkRead(ctx context.Context, chatID, messageID string) error {
	return c.provider.MarkRead(ctx, chatID, messageID)
}

// Contacts lists all contacts.
func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	return c.provider.Contacts(ctx)
}

// ContactInfo fetches a single contact.
func (c *Client) ContactInfo(ctx context.Context, contactID string) (*Contact, error) {
	return c.provider.ContactInfo(ctx, contactID)
}

// IsRegistered reports whether a phone number is on WhatsApp.
func (c *Client) IsRegistered(ctx context.Context, phone string) (bool, error) {
	return c.provider.IsRegistered(ctx, phone)
}

// CreateSession creates a session on providers that support session
// management; others return a core.NotSupportedError.
func (c *Client) CreateSession(ctx context.Context, name string) (*Session, error) {
	return c.provider.CreateSession(ctx, name)
}

// Sessions lists sessions on providers that support session
// management; others return a core.NotSupportedError.
func (c *Client) Sessions(ctx context.Context) ([]Session, error) {
	return c.provider.Sessions(ctx)
}

// Close releases the adapter's transport resources. It is idempotent
// and safe on every exit path.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.provider.Close()
		_ = c.logger.Sync()
	})
	return c.closeErr
}
