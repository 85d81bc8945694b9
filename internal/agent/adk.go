package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/suPer8Hu/agent-chat/internal/common"
)

// ADKGateway talks to an agent runtime's HTTP API server.
type ADKGateway struct {
	BaseURL string
	Client  *http.Client
}

func NewADKGateway(baseURL string) *ADKGateway {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &ADKGateway{
		BaseURL: strings.TrimRight(baseURL, "/"),
		// no client timeout: a reply may take as long as the agent needs,
		// the request context bounds it
		Client: &http.Client{},
	}
}

type adkPart struct {
	Text string `json:"text,omitempty"`
}

type adkContent struct {
	Role  string    `json:"role"`
	Parts []adkPart `json:"parts"`
}

type adkRunReq struct {
	AppName    string     `json:"appName"`
	UserID     string     `json:"userId"`
	SessionID  string     `json:"sessionId"`
	NewMessage adkContent `json:"newMessage"`
	Streaming  bool       `json:"streaming"`
}

type adkEvent struct {
	Author  string      `json:"author"`
	Content *adkContent `json:"content"`
}

type adkSession struct {
	ID string `json:"id"`
}

func (g *ADKGateway) ListAgents(ctx context.Context) ([]string, error) {
	var names []string
	if err := g.do(ctx, http.MethodGet, "/list-apps", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (g *ADKGateway) NewSession(ctx context.Context, agentName, userID string) (string, error) {
	path := fmt.Sprintf("/apps/%s/users/%s/sessions", url.PathEscape(agentName), url.PathEscape(userID))
	var s adkSession
	if err := g.do(ctx, http.MethodPost, path, map[string]any{}, &s); err != nil {
		return "", err
	}
	if s.ID == "" {
		return "", common.GatewayFailure(errors.New("adk: empty session id"))
	}
	return s.ID, nil
}

// Send posts one user message to /run. Every returned event that carries
// text becomes one turn; multi-part events are joined.
func (g *ADKGateway) Send(ctx context.Context, agentName, userID, sessionID, text string) ([]Turn, error) {
	req := adkRunReq{
		AppName:   agentName,
		UserID:    userID,
		SessionID: sessionID,
		NewMessage: adkContent{
			Role:  RoleUser,
			Parts: []adkPart{{Text: text}},
		},
	}
	var events []adkEvent
	if err := g.do(ctx, http.MethodPost, "/run", req, &events); err != nil {
		return nil, err
	}

	turns := make([]Turn, 0, len(events))
	for _, ev := range events {
		if ev.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range ev.Content.Parts {
			b.WriteString(p.Text)
		}
		if strings.TrimSpace(b.String()) == "" {
			continue
		}
		role := RoleAgent
		if ev.Content.Role == RoleUser {
			role = RoleUser
		}
		turns = append(turns, Turn{Role: role, Text: b.String()})
	}
	return turns, nil
}

func (g *ADKGateway) do(ctx context.Context, method, path string, body any, out any) error {
	if g.Client == nil {
		return common.GatewayFailure(errors.New("adk: http client is nil"))
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return common.GatewayFailure(err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, rd)
	if err != nil {
		return common.GatewayFailure(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return common.GatewayFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return common.GatewayFailure(fmt.Errorf("adk: %s", msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return common.GatewayFailure(fmt.Errorf("adk: decode %s: %w", path, err))
	}
	return nil
}
