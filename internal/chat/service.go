package chat

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/suPer8Hu/agent-chat/internal/agent"
	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/models"
)

// Conversation is the chat state of one request: who is talking, which
// thread is active and its history. It is built per request and never
// shared.
type Conversation struct {
	User        *models.User
	Session     *Session
	AgentUserID string
	Messages    []Message
}

// Service coordinates the store and the agent gateway.
type Service struct {
	repo    *Repo
	gateway agent.Gateway
}

func NewService(repo *Repo, gateway agent.Gateway) *Service {
	return &Service{repo: repo, gateway: gateway}
}

// AgentUserID is the stable id a local user is known by in the agent
// runtime: a name based UUID of the username.
func AgentUserID(username string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(username)).String()
}

func (s *Service) ListAgents(ctx context.Context) ([]string, error) {
	names, err := s.gateway.ListAgents(ctx)
	if err != nil {
		return nil, asGatewayErr(err)
	}
	return names, nil
}

// StartSession opens a new thread with agentName: the gateway issues the
// external session id, then the local record is stored. History starts
// empty.
func (s *Service) StartSession(ctx context.Context, user *models.User, agentName, summary string) (*Conversation, error) {
	agentName = strings.TrimSpace(agentName)
	if agentName == "" {
		return nil, common.Validation("agent_name is required")
	}
	agentUID := AgentUserID(user.Username)

	extID, err := s.gateway.NewSession(ctx, agentName, agentUID)
	if err != nil {
		return nil, asGatewayErr(err)
	}

	sess := &Session{
		UserName:          user.Username,
		ExternalSessionID: extID,
		AgentName:         agentName,
		Summary:           optional(summary),
	}
	if _, err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	return &Conversation{
		User:        user,
		Session:     sess,
		AgentUserID: agentUID,
		Messages:    []Message{},
	}, nil
}

// OpenSession selects an existing thread and loads its history. Sessions
// of other users are reported as not found.
func (s *Service) OpenSession(ctx context.Context, user *models.User, dbID string) (*Conversation, error) {
	sess, err := s.ownedSession(ctx, user, dbID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return &Conversation{
		User:        user,
		Session:     sess,
		AgentUserID: AgentUserID(user.Username),
		Messages:    msgs,
	}, nil
}

func (s *Service) ListSessions(ctx context.Context, user *models.User) ([]Session, error) {
	return s.repo.ListSessionsForUser(ctx, user.Username)
}

// RenameSession changes the session label. A blank summary restores the
// default label.
func (s *Service) RenameSession(ctx context.Context, user *models.User, dbID, summary string) (*Session, error) {
	sess, err := s.ownedSession(ctx, user, dbID)
	if err != nil {
		return nil, err
	}
	sum := optional(summary)
	if err := s.repo.UpdateSummary(ctx, sess.ID, sum); err != nil {
		return nil, err
	}
	sess.Summary = sum
	return sess, nil
}

// SendMessage records the user's text, forwards it to the agent and
// records every reply turn in order. If the gateway fails the user message
// stays stored and no reply is added.
func (s *Service) SendMessage(ctx context.Context, conv *Conversation, text string) ([]Message, error) {
	if conv == nil || conv.Session == nil {
		return nil, common.Validation("no session selected")
	}
	if strings.TrimSpace(text) == "" {
		return nil, common.Validation("message is empty")
	}

	userMsg := Message{Role: agent.RoleUser, Text: text}
	if err := s.repo.AppendMessage(ctx, conv.Session.ID, &userMsg); err != nil {
		return nil, err
	}
	conv.Messages = append(conv.Messages, userMsg)

	turns, err := s.gateway.Send(ctx, conv.Session.AgentName, conv.AgentUserID, conv.Session.ExternalSessionID, text)
	if err != nil {
		return nil, asGatewayErr(err)
	}

	replies := make([]Message, 0, len(turns))
	for _, t := range turns {
		role := t.Role
		if role == "" {
			role = agent.RoleAgent
		}
		m := Message{Role: role, Text: t.Text}
		if err := s.repo.AppendMessage(ctx, conv.Session.ID, &m); err != nil {
			return replies, err
		}
		conv.Messages = append(conv.Messages, m)
		replies = append(replies, m)
	}
	return replies, nil
}

func (s *Service) ownedSession(ctx context.Context, user *models.User, dbID string) (*Session, error) {
	sess, err := s.repo.GetSession(ctx, dbID)
	if err != nil {
		return nil, err
	}
	if sess.UserName != user.Username {
		// hide existence
		return nil, common.NotFound(sessionNotFound)
	}
	return sess, nil
}

func asGatewayErr(err error) error {
	if common.KindOf(err) == common.KindGatewayFailure {
		return err
	}
	return common.GatewayFailure(err)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
