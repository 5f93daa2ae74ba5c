// Package eventapi is a client for the event planner REST API and notification socket.
package eventapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"eventplanner/internal/delivery/ws"
	"eventplanner/internal/domain"
)

// Client reads events over REST and follows notifications over /ws.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	dialer  *websocket.Dialer
}

// NewClient returns a client for the server at baseURL. token may be empty for anonymous reads.
func NewClient(baseURL, token string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
		dialer:  websocket.DefaultDialer,
	}
}

type envelope[T any] struct {
	Data  T `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) FetchEvents(ctx context.Context) ([]*domain.Event, error) {
	var events []*domain.Event
	if err := c.get(ctx, "/events", &events); err != nil {
		return nil, err
	}
	return events, nil
}

// FetchEvent returns domain.ErrNotFound when the server has no such event.
func (c *Client) FetchEvent(ctx context.Context, id string) (*domain.Event, error) {
	var ev *domain.Event
	if err := c.get(ctx, "/events/"+url.PathEscape(id), &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	default:
		msg := http.StatusText(resp.StatusCode)
		var body envelope[json.RawMessage]
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Error != nil {
			msg = body.Error.Message
		}
		return fmt.Errorf("api returned status %d: %s", resp.StatusCode, msg)
	}

	var body envelope[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", path, err)
	}
	return nil
}

// Listen connects to /ws and calls handle for every notification until ctx is done
// or the server closes the connection. A server-initiated close returns nil.
func (c *Client) Listen(ctx context.Context, topics []domain.Topic, handle func(domain.Notification)) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	if len(topics) > 0 {
		names := make([]string, len(topics))
		for i, t := range topics {
			names[i] = string(t)
		}
		u.RawQuery = url.Values{"topics": {strings.Join(names, ",")}}.Encode()
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return fmt.Errorf("dial %s: status %d: %w", u.Redacted(), resp.StatusCode, err)
		}
		return fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var frame ws.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil
			}
			return fmt.Errorf("read notification: %w", err)
		}
		n, err := frame.Notification()
		if err != nil {
			// Newer servers may push topics this client does not know.
			continue
		}
		handle(n)
	}
}
