package waha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matheus3301/whatsfuse/core"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := core.NewConfig(core.ProviderWAHA)
	cfg.APIURL = serverURL
	cfg.APIKey = "test-key"
	cfg.Session = "default"
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = -1
	cfg.RetryDelay = time.Millisecond
	return New(cfg, zap.NewNop())
}

// capture records the last request the fake WAHA server received.
type capture struct {
	method  string
	path    string
	query   map[string][]string
	payload map[string]any
	apiKey  string
}

func newServer(t *testing.T, status int, response string, captured *capture) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.Query()
		captured.apiKey = r.Header.Get("X-Api-Key")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&captured.payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
}

const sentMessage = `{
	"id": {"fromMe": true, "remote": "123@c.us", "id": "ABCDEF", "_serialized": "true_123@c.us_ABCDEF"},
	"timestamp": 1700000000,
	"from": "me@c.us",
	"fromMe": true,
	"body": "hi"
}`

func TestSendTextTranslation(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusCreated, sentMessage, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	msg, err := c.SendText(context.Background(), "123@c.us", "hi", &core.TextOptions{
		ReplyTo:  "msg_456",
		Mentions: []string{"972501234567"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/sendText", got.path)
	assert.Equal(t, "test-key", got.apiKey)
	assert.Equal(t, "default", got.payload["session"])
	assert.Equal(t, "123@c.us", got.payload["chatId"])
	assert.Equal(t, "hi", got.payload["text"])
	assert.Equal(t, "msg_456", got.payload["reply_to"])
	assert.Equal(t, []any{"972501234567"}, got.payload["mentions"])
	assert.Equal(t, true, got.payload["linkPreview"], "link preview defaults on")

	assert.Equal(t, "true_123@c.us_ABCDEF", msg.ID)
	assert.Equal(t, "123@c.us", msg.ChatID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), msg.Timestamp)
	assert.True(t, msg.FromMe)
}

func TestSendTextLinkPreviewDisabled(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusCreated, sentMessage, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.SendText(context.Background(), "123@c.us", "hi", &core.TextOptions{DisableLinkPreview: true})
	require.NoError(t, err)
	assert.Equal(t, false, got.payload["linkPreview"])
}

func TestSendTextOmitsEmptyOptionals(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusCreated, sentMessage, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.SendText(context.Background(), "123@c.us", "hi", nil)
	require.NoError(t, err)
	assert.NotContains(t, got.payload, "reply_to")
	assert.NotContains(t, got.payload, "mentions")
}

func TestSendTextValidation(t *testing.T) {
	c := newTestClient(t, "http://unused.invalid")

	_, err := c.SendText(context.Background(), "", "hi", nil)
	var invalid *core.InvalidRequestError
	require.ErrorAs(t, err, &invalid)

	_, err = c.SendText(context.Background(), "123@c.us", "", nil)
	require.ErrorAs(t, err, &invalid)
}

func TestSendTextStringMessageID(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusCreated, `{"id": "3EB0D15AB7", "timestamp": 1700000001}`, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	msg, err := c.SendText(context.Background(), "123@c.us", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "3EB0D15AB7", msg.ID, "noweb engines return a bare string id")
}

func TestSendTextExtraMergedLast(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusCreated, sentMessage, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.SendText(context.Background(), "123@c.us", "hi", &core.TextOptions{
		Extra: map[string]any{"linkPreviewHighQuality": true},
	})
	require.NoError(t, err)
	assert.Equal(t, true, got.payload["linkPreviewHighQuality"])
}

func TestSendImageTranslation(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusCreated, sentMessage, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.SendImage(context.Background(), "123@c.us", core.Media{
		URL:      "https://example.com/pic.jpg",
		MimeType: "image/jpeg",
	}, &core.MediaOptions{Caption: "look", ReplyTo: "msg_1", Filename: "pic.jpg"})
	require.NoError(t, err)

	assert.Equal(t, "/api/sendImage", got.path)
	file, ok := got.payload["file"].(map[string]any)
	require.True(t, ok, "file field must be an object")
	assert.Equal(t, "https://example.com/pic.jpg", file["url"])
	assert.Equal(t, "image/jpeg", file["mimetype"])
	assert.Equal(t, "pic.jpg", file["filename"])
	assert.Equal(t, "look", got.payload["caption"])
	assert.Equal(t, "msg_1", got.payload["reply_to"])
}

func TestSendFileFromBytes(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusCreated, sentMessage, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.SendFile(context.Background(), "123@c.us", core.Media{
		Data:     []byte("hello"),
		MimeType: "text/plain",
		Filename: "hello.txt",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "/api/sendFile", got.path)
	file := got.payload["file"].(map[string]any)
	assert.Equal(t, "aGVsbG8=", file["data"], "bytes are inlined as base64")
	assert.NotContains(t, file, "url")
}

func TestSendAudioUsesVoiceEndpoint(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusCreated, sentMessage, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.SendAudio(context.Background(), "123@c.us", core.Media{URL: "https://example.com/a.ogg"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/sendVoice", got.path)
}

func TestSendMediaRequiresPayload(t *testing.T) {
	c := newTestClient(t, "http://unused.invalid")
	_, err := c.SendImage(context.Background(), "123@c.us", core.Media{}, nil)
	var invalid *core.InvalidRequestError
	require.ErrorAs(t, err, &invalid)
}

func TestSendLocationDropsAddress(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusCreated, sentMessage, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.SendLocation(context.Background(), "123@c.us", 32.08, 34.78, &core.LocationOptions{
		Name:    "Office",
		Address: "1 Main St", // no WAHA field; must be dropped, not an error
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/sendLocation", got.path)
	assert.Equal(t, 32.08, got.payload["latitude"])
	assert.Equal(t, 34.78, got.payload["longitude"])
	assert.Equal(t, "Office", got.payload["title"])
	assert.NotContains(t, got.payload, "address")
}

func TestChats(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusOK, `[
		{"id": "123@c.us", "name": "Alice", "unreadCount": 2, "conversationTimestamp": 1700000100},
		{"id": {"_serialized": "456@g.us"}, "name": "Team", "isGroup": true}
	]`, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	chats, err := c.Chats(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, "/api/default/chats", got.path)
	assert.Equal(t, []string{"10"}, got.query["limit"])
	require.Len(t, chats, 2)
	assert.Equal(t, "123@c.us", chats[0].ID)
	assert.Equal(t, 2, chats[0].UnreadCount)
	assert.Equal(t, "456@g.us", chats[1].ID)
	assert.True(t, chats[1].IsGroup)
}

func TestChatHistory(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusOK, `[
		{"id": "m1", "timestamp": 1700000000, "from": "123@c.us", "body": "hey"},
		{"id": "m2", "timestamp": 1700000060, "fromMe": true, "body": "hi",
		 "media": {"url": "https://waha/files/x.jpg", "mimetype": "image/jpeg", "filename": "x.jpg"}}
	]`, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	messages, err := c.ChatHistory(context.Background(), "123@c.us", 50)
	require.NoError(t, err)

	assert.Equal(t, "/api/default/chats/123@c.us/messages", got.path)
	assert.Equal(t, []string{"50"}, got.query["limit"])
	assert.Equal(t, []string{"false"}, got.query["downloadMedia"])

	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "123@c.us", messages[0].ChatID)
	assert.Equal(t, core.KindImage, messages[1].Kind)
	assert.Equal(t, "https://waha/files/x.jpg", messages[1].MediaURL)
}

func TestMarkRead(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusOK, `{}`, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	err := c.MarkRead(context.Background(), "123@c.us", "m1")
	require.NoError(t, err)

	assert.Equal(t, "/api/sendSeen", got.path)
	assert.Equal(t, "123@c.us", got.payload["chatId"])
	assert.Equal(t, "m1", got.payload["messageId"])
}

func TestContacts(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusOK, `[
		{"id": "123@c.us", "number": "123", "pushname": "Alice", "isBusiness": true}
	]`, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	contacts, err := c.Contacts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/api/contacts/all", got.path)
	assert.Equal(t, []string{"default"}, got.query["session"])
	require.Len(t, contacts, 1)
	assert.Equal(t, "Alice", contacts[0].Name, "pushname fills a missing name")
	assert.True(t, contacts[0].IsBusiness)
}

func TestIsRegistered(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusOK, `{"numberExists": true, "chatId": "123@c.us"}`, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	ok, err := c.IsRegistered(context.Background(), "123456789")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/api/contacts/check-exists", got.path)
	assert.Equal(t, []string{"123456789"}, got.query["phone"])
}

func TestCreateSession(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusCreated, `{
		"name": "work", "status": "SCAN_QR_CODE", "qr": {"value": "2@abc"}
	}`, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	session, err := c.CreateSession(context.Background(), "work")
	require.NoError(t, err)

	assert.Equal(t, "/api/sessions", got.path)
	assert.Equal(t, "work", got.payload["name"])
	assert.Equal(t, true, got.payload["start"])
	assert.Equal(t, core.SessionScanQR, session.State)
	assert.Equal(t, "2@abc", session.QRCode)
	assert.False(t, session.Authenticated)
}

func TestSessions(t *testing.T) {
	var got capture
	server := newServer(t, http.StatusOK, `[
		{"name": "default", "status": "WORKING", "me": {"id": "9725551234@c.us", "pushName": "Me"}}
	]`, &got)
	defer server.Close()

	c := newTestClient(t, server.URL)
	sessions, err := c.Sessions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"true"}, got.query["all"])
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Authenticated)
	assert.Equal(t, "9725551234@c.us", sessions[0].PhoneNumber)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var authErr *core.AuthenticationError
				require.ErrorAs(t, err, &authErr)
				assert.Equal(t, "waha", authErr.Provider)
			},
		},
		{
			name:   "session not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				var notFound *core.SessionNotFoundError
				require.ErrorAs(t, err, &notFound)
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				var invalid *core.InvalidRequestError
				require.ErrorAs(t, err, &invalid)
			},
		},
		{
			name:   "send failure",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var notSent *core.MessageNotSentError
				require.ErrorAs(t, err, &notSent)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got capture
			server := newServer(t, tt.status, `{"message": "nope"}`, &got)
			defer server.Close()

			c := newTestClient(t, server.URL)
			_, err := c.SendText(context.Background(), "123@c.us", "hi", nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestRateLimitCarriesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.SendText(context.Background(), "123@c.us", "hi", nil)

	var rateLimit *core.RateLimitError
	require.ErrorAs(t, err, &rateLimit)
	assert.Equal(t, 12*time.Second, rateLimit.RetryAfter)
}

func TestCapabilitiesMatchBehavior(t *testing.T) {
	c := newTestClient(t, "http://unused.invalid")
	caps := c.Capabilities()

	assert.True(t, caps.Sessions)
	assert.Equal(t, core.PolicyNative, caps.Params[core.ParamReplyTo])
	assert.Equal(t, core.PolicyNative, caps.Params[core.ParamMentions])
	assert.Equal(t, core.PolicyDropped, caps.Params[core.ParamAddress])
}
