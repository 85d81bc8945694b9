package agent

import "context"

const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Turn is one role-tagged text unit of a conversation.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Gateway is the boundary to the external agent runtime. Each call is a
// single blocking round trip; ctx is the only cancellation.
type Gateway interface {
	// ListAgents returns the agent names the runtime can serve, in the
	// runtime's order.
	ListAgents(ctx context.Context) ([]string, error)
	// NewSession opens a conversation thread for userID with agentName and
	// returns its external session id.
	NewSession(ctx context.Context, agentName, userID string) (string, error)
	// Send delivers text to the thread and returns the reply turns in the
	// order the runtime produced them.
	Send(ctx context.Context, agentName, userID, sessionID, text string) ([]Turn, error)
}
