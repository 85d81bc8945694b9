package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/suPer8Hu/agent-chat/internal/common"
)

// ExecGateway runs the agent runtime as a subprocess per call.
//
//	<command> list-agents   stdout: ["a","b"]
//	<command> send          stdin: {"agent","user_id","session_id","text"}
//	                        stdout: [{"role","text"}, ...]
//
// Session ids are minted here; the runtime creates the thread the first
// time it sees an id.
type ExecGateway struct {
	Command string
	Args    []string
}

func NewExecGateway(commandLine string) (*ExecGateway, error) {
	parts := strings.Fields(commandLine)
	if len(parts) == 0 {
		return nil, errors.New("exec gateway: empty command")
	}
	return &ExecGateway{Command: parts[0], Args: parts[1:]}, nil
}

type execSendReq struct {
	Agent     string `json:"agent"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

func (g *ExecGateway) ListAgents(ctx context.Context) ([]string, error) {
	var names []string
	if err := g.run(ctx, "list-agents", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (g *ExecGateway) NewSession(ctx context.Context, agentName, userID string) (string, error) {
	id, err := common.NewULID()
	if err != nil {
		return "", common.GatewayFailure(err)
	}
	return id, nil
}

func (g *ExecGateway) Send(ctx context.Context, agentName, userID, sessionID, text string) ([]Turn, error) {
	req := execSendReq{Agent: agentName, UserID: userID, SessionID: sessionID, Text: text}
	var turns []Turn
	if err := g.run(ctx, "send", req, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func (g *ExecGateway) run(ctx context.Context, sub string, in any, out any) error {
	args := append(append([]string(nil), g.Args...), sub)
	cmd := exec.CommandContext(ctx, g.Command, args...)

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return common.GatewayFailure(err)
		}
		cmd.Stdin = bytes.NewReader(b)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return common.GatewayFailure(fmt.Errorf("exec %s: %w", sub, err))
	}
	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return common.GatewayFailure(fmt.Errorf("exec %s: decode: %w", sub, err))
	}
	return nil
}
