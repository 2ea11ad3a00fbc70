package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/couchcryptid/cyclone-relay/internal/domain"
)

// APIError is a non-2xx response from the Discord REST API.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string

	rest *discordgo.RESTError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord API error: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.rest == nil {
		return nil
	}
	return e.rest
}

// IsNotFound reports whether err is a Discord 404 (unknown message or channel).
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client implements relay.Messenger over a REST-only discordgo session.
// The gateway is never opened.
type Client struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// NewClient creates a Discord client authenticated as a bot. A non-empty
// baseURL replaces discordgo's built-in API endpoint.
func NewClient(token, baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}

	var transport http.RoundTripper = http.DefaultTransport
	if baseURL != "" {
		transport, err = newEndpointRewriter(baseURL, transport)
		if err != nil {
			return nil, err
		}
	}
	session.Client = &http.Client{Timeout: timeout, Transport: transport}

	return &Client{session: session, logger: logger}, nil
}

// CreateMessage posts content to a channel and returns the new message id.
func (c *Client) CreateMessage(ctx context.Context, channelID, content string) (string, error) {
	msg, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr(http.MethodPost, "/channels/"+channelID+"/messages", err)
	}
	return msg.ID, nil
}

// EditMessage replaces the content of an existing message.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	_, err := c.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	return wrapErr(http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID, err)
}

// DeleteMessage removes a message. A message that is already gone is not an error.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := wrapErr(http.MethodDelete, "/channels/"+channelID+"/messages/"+messageID,
		c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
	return c.alreadyGone(err, "delete", channelID, messageID)
}

// CreateImageMessage posts content with a single PNG attachment.
func (c *Client) CreateImageMessage(ctx context.Context, channelID, content, filename string, image []byte) (string, error) {
	send := &discordgo.MessageSend{
		Content: content,
		Files: []*discordgo.File{{
			Name:        filename,
			ContentType: "image/png",
			Reader:      bytes.NewReader(image),
		}},
	}
	msg, err := c.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr(http.MethodPost, "/channels/"+channelID+"/messages", err)
	}
	return msg.ID, nil
}

// PinMessage pins a message in its channel.
func (c *Client) PinMessage(ctx context.Context, channelID, messageID string) error {
	err := c.session.ChannelMessagePin(channelID, messageID, discordgo.WithContext(ctx))
	return wrapErr(http.MethodPut, "/channels/"+channelID+"/pins/"+messageID, err)
}

// UnpinMessage unpins a message. A message that is already gone is not an error.
func (c *Client) UnpinMessage(ctx context.Context, channelID, messageID string) error {
	err := wrapErr(http.MethodDelete, "/channels/"+channelID+"/pins/"+messageID,
		c.session.ChannelMessageUnpin(channelID, messageID, discordgo.WithContext(ctx)))
	return c.alreadyGone(err, "unpin", channelID, messageID)
}

// DirectMessageChannel opens (or reuses) the DM channel with a user.
func (c *Client) DirectMessageChannel(ctx context.Context, userID string) (string, error) {
	ch, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr(http.MethodPost, "/users/@me/channels", err)
	}
	return ch.ID, nil
}

// RecentMessages returns up to limit of the newest messages in a channel,
// newest first.
func (c *Client) RecentMessages(ctx context.Context, channelID string, limit int) ([]domain.ChatMessage, error) {
	msgs, err := c.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapErr(http.MethodGet, "/channels/"+channelID+"/messages", err)
	}

	out := make([]domain.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := domain.ChatMessage{
			ID:        m.ID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
		if m.Author != nil {
			cm.AuthorID = m.Author.ID
			cm.AuthorBot = m.Author.Bot
		}
		out = append(out, cm)
	}
	return out, nil
}

func (c *Client) alreadyGone(err error, op, channelID, messageID string) error {
	if err != nil && IsNotFound(err) {
		c.logger.Debug("discord message already gone",
			"op", op,
			"channel_id", channelID,
			"message_id", messageID,
		)
		return nil
	}
	return err
}

// wrapErr maps discordgo REST failures onto APIError and leaves
// transport and decode errors wrapped with the request line.
func wrapErr(method, path string, err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return &APIError{
			Method: method,
			Path:   path,
			Status: rest.Response.StatusCode,
			Body:   strings.TrimSpace(string(rest.ResponseBody)),
			rest:   rest,
		}
	}
	return fmt.Errorf("discord %s %s: %w", method, path, err)
}

// endpointRewriter sends requests aimed at discordgo's API endpoint to
// another base URL, such as a proxy or a test server.
type endpointRewriter struct {
	api  *url.URL
	base *url.URL
	next http.RoundTripper
}

func newEndpointRewriter(baseURL string, next http.RoundTripper) (*endpointRewriter, error) {
	api, err := url.Parse(discordgo.EndpointAPI)
	if err != nil {
		return nil, fmt.Errorf("parse discord endpoint: %w", err)
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse discord base url %q: %w", baseURL, err)
	}
	return &endpointRewriter{api: api, base: base, next: next}, nil
}

func (t *endpointRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Host != t.api.Host || !strings.HasPrefix(req.URL.Path, t.api.Path) {
		return t.next.RoundTrip(req)
	}

	target := *t.base
	target.Path = t.base.Path + "/" + strings.TrimPrefix(req.URL.Path, t.api.Path)
	target.RawPath = ""
	target.RawQuery = req.URL.RawQuery

	out := req.Clone(req.Context())
	out.URL = &target
	out.Host = target.Host
	return t.next.RoundTrip(out)
}
