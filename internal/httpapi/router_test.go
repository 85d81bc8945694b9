package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/agent-chat/internal/agent"
	"github.com/suPer8Hu/agent-chat/internal/chat"
	"github.com/suPer8Hu/agent-chat/internal/config"
	"github.com/suPer8Hu/agent-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/agent-chat/internal/models"
	"gorm.io/gorm"
)

type echoGateway struct {
	mu    sync.Mutex
	calls int
}

func (g *echoGateway) ListAgents(ctx context.Context) ([]string, error) {
	return []string{"Bibble"}, nil
}

func (g *echoGateway) NewSession(ctx context.Context, agentName, userID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return fmt.Sprintf("%s-%s-%d", agentName, userID, g.calls), nil
}

func (g *echoGateway) Send(ctx context.Context, agentName, userID, sessionID, text string) ([]agent.Turn, error) {
	return []agent.Turn{{Role: agent.RoleAgent, Text: "hello"}}, nil
}

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (r *memRevoker) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = true
	return nil
}

func (r *memRevoker) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[jti], nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}, &chat.Session{}, &chat.Message{}))

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := config.Config{JWTSecret: "test-secret", JWTTTL: time.Hour}
	h := handlers.NewHandler(db, cfg, log, &echoGateway{}, &memRevoker{revoked: map[string]bool{}})
	return &testServer{t: t, router: NewRouter(h)}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w.Code, env
}

func (s *testServer) register(username, password string) envelope {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/register", "", gin.H{
		"username": username, "password": password, "confirm_password": password,
	})
	require.Equal(s.t, http.StatusOK, code, env.Message)
	return env
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/login", "", gin.H{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, code, env.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(s.t, data.Token)
	return data.Token
}

type messageView struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func TestChatFlow(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(http.MethodGet, "/setup", "", nil)
	assert.JSONEq(t, `{"needs_setup":true}`, string(env.Data))

	var reg struct {
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(s.register("alice", "secret1").Data, &reg))
	assert.Equal(t, "admin", reg.Role)
	require.NoError(t, json.Unmarshal(s.register("bob", "secret2").Data, &reg))
	assert.Equal(t, "user", reg.Role)

	_, env = s.do(http.MethodGet, "/setup", "", nil)
	assert.JSONEq(t, `{"needs_setup":false}`, string(env.Data))

	code, _ := s.do(http.MethodPost, "/login", "", gin.H{"username": "bob", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	token := s.login("bob", "secret2")

	code, env = s.do(http.MethodGet, "/agents", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"agents":["Bibble"]}`, string(env.Data))

	code, env = s.do(http.MethodPost, "/chat/sessions", token, gin.H{"agent_name": "Bibble"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var created struct {
		Session struct {
			DBID    string `json:"db_id"`
			Summary string `json:"summary"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Chat com Bibble", created.Session.Summary)
	sid := created.Session.DBID

	code, env = s.do(http.MethodPost, "/chat/sessions/"+sid+"/messages", token, gin.H{"message": "hi"})
	require.Equal(t, http.StatusOK, code, env.Message)
	var sent struct {
		Replies []messageView `json:"replies"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.Equal(t, []messageView{{Role: "agent", Text: "hello"}}, sent.Replies)

	code, env = s.do(http.MethodGet, "/chat/sessions/"+sid+"/messages", token, nil)
	require.Equal(t, http.StatusOK, code)
	var history struct {
		Messages []messageView `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Equal(t, []messageView{
		{Role: "user", Text: "hi"},
		{Role: "agent", Text: "hello"},
	}, history.Messages)

	code, env = s.do(http.MethodGet, "/chat/sessions", token, nil)
	require.Equal(t, http.StatusOK, code)
	var listed struct {
		Sessions []struct {
			DBID string `json:"db_id"`
		} `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed.Sessions, 1)
	assert.Equal(t, sid, listed.Sessions[0].DBID)

	// alice cannot see bob's session
	aliceToken := s.login("alice", "secret1")
	code, _ = s.do(http.MethodGet, "/chat/sessions/"+sid, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRenameSession(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "secret1")
	token := s.login("alice", "secret1")

	_, env := s.do(http.MethodPost, "/chat/sessions", token, gin.H{"agent_name": "Bibble", "summary": "Trip"})
	var created struct {
		Session struct {
			DBID    string `json:"db_id"`
			Summary string `json:"summary"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Trip", created.Session.Summary)

	code, env := s.do(http.MethodPatch, "/chat/sessions/"+created.Session.DBID, token, gin.H{"summary": ""})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Chat com Bibble", created.Session.Summary)
}

func TestRegisterRejections(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "secret1")

	code, env := s.do(http.MethodPost, "/register", "", gin.H{
		"username": "bob", "password": "secret1", "confirm_password": "secret2",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "passwords do not match", env.Message)

	code, env = s.do(http.MethodPost, "/register", "", gin.H{
		"username": "Alice", "password": "secret1", "confirm_password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "username or email already exists", env.Message)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "secret1")

	code, _ := s.do(http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodGet, "/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	token := s.login("alice", "secret1")
	code, env := s.do(http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	var me struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
		Capabilities struct {
			ManageUsers bool `json:"manage_users"`
		} `json:"capabilities"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "alice", me.User.Username)
	assert.True(t, me.Capabilities.ManageUsers)

	code, _ = s.do(http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = s.do(http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "token revoked", env.Message)
}

func TestAdminPanel(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "secret1")
	s.register("bob", "secret2")
	admin := s.login("alice", "secret1")
	bob := s.login("bob", "secret2")

	code, _ := s.do(http.MethodGet, "/admin/users", bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(http.MethodGet, "/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Users []struct {
			Username string `json:"username"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Users, 2)

	code, env = s.do(http.MethodPut, "/admin/users/alice", admin, gin.H{"role": "user", "is_active": true})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "you cannot remove your own admin role", env.Message)

	code, _ = s.do(http.MethodPut, "/admin/users/bob", admin, gin.H{"role": "user"})
	assert.Equal(t, http.StatusBadRequest, code)

	// deactivation takes effect on bob's next request
	code, env = s.do(http.MethodPut, "/admin/users/bob", admin, gin.H{"role": "user", "is_active": false})
	require.Equal(t, http.StatusOK, code, env.Message)
	code, _ = s.do(http.MethodGet, "/chat/sessions", bob, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPost, "/login", "", gin.H{"username": "bob", "password": "secret2"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodDelete, "/admin/users/alice", admin, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodDelete, "/admin/users/bob", admin, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, "/admin/users/bob", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
