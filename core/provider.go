package core

import "context"

// Param names a unified optional parameter that adapters translate to
// provider-specific fields.
type Param string

const (
	ParamReplyTo     Param = "reply_to"
	ParamMentions    Param = "mentions"
	ParamLinkPreview Param = "link_preview"
	ParamFilename    Param = "filename"
	ParamCaption     Param = "caption"
	ParamAddress     Param = "address"
)

// ParamPolicy declares how an adapter handles a unified parameter.
type ParamPolicy string

const (
	// PolicyNative: translated to a provider field.
	PolicyNative ParamPolicy = "native"
	// PolicyDropped: silently ignored (logged, never an error).
	PolicyDropped ParamPolicy = "dropped"
	// PolicyEmulated: no provider field, approximated client-side.
	PolicyEmulated ParamPolicy = "emulated"
)

// Capabilities is an adapter's declared support matrix. It is
// documentation made queryable: adapters behave per this table, and
// callers may branch on it, but nothing enforces it at call time.
type Capabilities struct {
	Provider string
	Sessions bool
	Params   map[Param]ParamPolicy
}

// TextOptions are the unified optional parameters of SendText.
type TextOptions struct {
	ReplyTo  string
	Mentions []string
	// DisableLinkPreview inverts the default-on link preview.
	DisableLinkPreview bool
	// Extra is merged into the outgoing payload last, unvalidated.
	Extra map[string]any
}

// MediaOptions are the unified optional parameters of the image, file
// and video sends.
type MediaOptions struct {
	Caption  string
	ReplyTo  string
	Filename string
	Extra    map[string]any
}

// AudioOptions are the unified optional parameters of SendAudio.
type AudioOptions struct {
	ReplyTo string
	Extra   map[string]any
}

// LocationOptions are the unified optional parameters of SendLocation.
type LocationOptions struct {
	Name    string
	Address string
	ReplyTo string
	Extra   map[string]any
}

// Provider is the fixed capability contract every backend implements.
// All operations block for one network round trip and return fresh
// records. Implementations are not guaranteed safe for unsynchronized
// concurrent use.
type Provider interface {
	SendText(ctx context.Context, chatID, text string, opts *TextOptions) (*Message, error)
	SendImage(ctx context.Context, chatID string, media Media, opts *MediaOptions) (*Message, error)
	SendFile(ctx context.Context, chatID string, media Media, opts *MediaOptions) (*Message, error)
	SendAudio(ctx context.Context, chatID string, media Media, opts *AudioOptions) (*Message, error)
	SendVideo(ctx context.Context, chatID string, media Media, opts *MediaOptions) (*Message, error)
	SendLocation(ctx context.Context, chatID string, latitude, longitude float64, opts *LocationOptions) (*Message, error)

	Chats(ctx context.Context, limit int) ([]Chat, error)
	ChatHistory(ctx context.Context, chatID string, limit int) ([]Message, error)
	MarkRead(ctx context.Context, chatID, messageID string) error

	Contacts(ctx context.Context) ([]Contact, error)
	ContactInfo(ctx context.Context, contactID string) (*Contact, error)
	IsRegistered(ctx context.Context, phone string) (bool, error)

	// Session management is optional; providers without it return a
	// NotSupportedError (embed NoSessions).
	CreateSession(ctx context.Context, name string) (*Session, error)
	Sessions(ctx context.Context) ([]Session, error)

	Capabilities() Capabilities
	Close() error
}

// NoSessions provides the default not-supported session operations for
// providers without session management.
type NoSessions struct {
	ProviderName string
}

func (n NoSessions) CreateSession(ctx context.Context, name string) (*Session, error) {
	return nil, ErrNotSupported(n.ProviderName, "session management")
}

func (n NoSessions) Sessions(ctx context.Context) ([]Session, error) {
	return nil, ErrNotSupported(n.ProviderName, "session management")
}
