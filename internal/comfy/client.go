// Package comfy talks to a ComfyUI-style job server: prompts are queued over
// HTTP, completion is announced on a WebSocket, and outputs are listed by the
// history endpoint and downloaded from /view.
package comfy

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"codexgen/internal/domain"
)

// ErrClosed is returned by Wait once the event stream is gone.
var ErrClosed = errors.New("comfy: event stream closed")

// Options configures a Client.
type Options struct {
	Address    string
	ClientID   string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Logger     zerolog.Logger
}

// Client is bound to one client id; the job server only reports progress for
// prompts queued under the same id as the WebSocket connection.
type Client struct {
	baseURL  *url.URL
	clientID string
	http     *http.Client
	dialer   *websocket.Dialer
	logger   zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(opts Options) (*Client, error) {
	addr := strings.TrimSpace(opts.Address)
	if addr == "" {
		return nil, errors.New("comfy: server address is required")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("comfy: parse address: %w", err)
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Client{
		baseURL:  base,
		clientID: clientID,
		http:     httpClient,
		dialer:   dialer,
		logger:   opts.Logger.With().Str("component", "comfy").Logger(),
	}, nil
}

func (c *Client) ClientID() string { return c.clientID }

// Connect opens the event stream. It is a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = strings.TrimRight(wsURL.Path, "/") + "/ws"
	wsURL.RawQuery = url.Values{"clientId": {c.clientID}}.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, wsURL.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("comfy: connect: %w", err)
	}
	c.conn = conn
	c.logger.Debug().Str("url", wsURL.String()).Msg("comfy: connected")
	return nil
}

// Close drops the event stream.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

type queueRequest struct {
	Prompt   Workflow `json:"prompt"`
	ClientID string   `json:"client_id"`
}

type queueResponse struct {
	PromptID string `json:"prompt_id"`
}

// QueuePrompt submits a workflow and returns the server's prompt id.
func (c *Client) QueuePrompt(ctx context.Context, wf Workflow) (string, error) {
	body, err := json.Marshal(queueRequest{Prompt: wf, ClientID: c.clientID})
	if err != nil {
		return "", fmt.Errorf("comfy: encode prompt: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/prompt", nil), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out queueResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	if out.PromptID == "" {
		return "", errors.New("comfy: queue response without prompt_id")
	}
	c.logger.Info().Str("prompt_id", out.PromptID).Msg("comfy: prompt queued")
	return out.PromptID, nil
}

type event struct {
	Type string `json:"type"`
	Data struct {
		Node     *string `json:"node"`
		PromptID string  `json:"prompt_id"`
	} `json:"data"`
}

// Wait blocks until the server reports that promptID finished executing.
// Binary frames (previews) and events for other prompts are skipped.
func (c *Client) Wait(ctx context.Context, promptID string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrClosed
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: %v", ErrClosed, err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		var ev event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.logger.Warn().Err(err).Msg("comfy: skipping malformed event")
			continue
		}
		if ev.Type == "executing" && ev.Data.Node == nil && ev.Data.PromptID == promptID {
			c.logger.Info().Str("prompt_id", promptID).Msg("comfy: execution finished")
			return nil
		}
	}
}

// ImageRef is one entry of a node's "images" output.
type ImageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

type nodeOutput struct {
	Images []ImageRef `json:"images"`
}

type historyEntry struct {
	Outputs map[string]nodeOutput `json:"outputs"`
}

// History lists the images produced for promptID, ordered by node id.
func (c *Client) History(ctx context.Context, promptID string) ([]domain.Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/history/"+url.PathEscape(promptID), nil), nil)
	if err != nil {
		return nil, err
	}
	var history map[string]historyEntry
	if err := c.doJSON(req, &history); err != nil {
		return nil, err
	}
	entry, ok := history[promptID]
	if !ok {
		return nil, fmt.Errorf("comfy: no history for prompt %s", promptID)
	}

	nodes := make([]string, 0, len(entry.Outputs))
	for id := range entry.Outputs {
		nodes = append(nodes, id)
	}
	slices.SortFunc(nodes, compareNodeIDs)

	var out []domain.Artifact
	for _, id := range nodes {
		for _, img := range entry.Outputs[id].Images {
			out = append(out, domain.Artifact{Node: id, Filename: img.Filename, Subfolder: img.Subfolder, Type: img.Type})
		}
	}
	return out, nil
}

// compareNodeIDs orders numeric node ids by value, ahead of any
// non-numeric ids, which sort lexically.
func compareNodeIDs(a, b string) int {
	na, aerr := strconv.Atoi(a)
	nb, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return cmp.Compare(na, nb)
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// View downloads one artifact.
func (c *Client) View(ctx context.Context, a domain.Artifact) ([]byte, error) {
	q := url.Values{"filename": {a.Filename}, "subfolder": {a.Subfolder}, "type": {a.Type}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/view", q), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("comfy: view: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("comfy: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("comfy: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("comfy: %s %s: status %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
}
