package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/email"
	"github.com/suPer8Hu/agent-chat/internal/models"
)

const (
	MinPasswordLen = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
	maxUsernameLen   = 20
)

var (
	ErrInvalidCredentials = common.E(common.KindAuthFailure, "invalid username or password, or inactive account", nil)
	ErrAlreadyExists      = common.E(common.KindDuplicateKey, "username or email already exists", nil)
)

type UserStore interface {
	CountUsers(ctx context.Context) (int64, error)
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByName(ctx context.Context, username string) (*models.User, error)
}

type Service struct {
	users UserStore
}

func NewService(users UserStore) *Service {
	return &Service{users: users}
}

// NormalizeUsername trims and lowercases a login name.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidatePassword enforces the password policy.
func ValidatePassword(p string) error {
	if len(p) < MinPasswordLen {
		return common.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLen))
	}
	if len(p) > maxPasswordBytes {
		return common.Validation(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

// Register creates an account. The first account ever created is the
// admin; every later one is a plain user. It returns the stored user and a
// message for the person registering.
func (s *Service) Register(ctx context.Context, username, password, rawEmail string) (*models.User, string, error) {
	username = NormalizeUsername(username)
	if username == "" || password == "" {
		return nil, "", common.Validation("username and password are required")
	}
	if len(username) > maxUsernameLen {
		return nil, "", common.Validation(fmt.Sprintf("username must be at most %d characters", maxUsernameLen))
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return nil, "", common.Validation("username must not contain spaces")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, "", err
	}
	addr, err := email.Normalize(rawEmail)
	if err != nil {
		return nil, "", common.Validation(err.Error())
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, "", err
	}
	first := n == 0

	u := newUser(username, hash, addr, first)
	err = s.users.CreateUser(ctx, u)
	if first && common.KindOf(err) == common.KindDuplicateKey {
		// Lost the race for the bootstrap slot to a concurrent registration.
		if n, cerr := s.users.CountUsers(ctx); cerr != nil {
			return nil, "", cerr
		} else if n > 0 {
			first = false
			u = newUser(username, hash, addr, false)
			err = s.users.CreateUser(ctx, u)
		}
	}
	if err != nil {
		if common.KindOf(err) == common.KindDuplicateKey {
			return nil, "", ErrAlreadyExists
		}
		return nil, "", err
	}

	if first {
		return u, fmt.Sprintf("admin user %q registered, please log in", username), nil
	}
	return u, fmt.Sprintf("user %q registered, please log in", username), nil
}

func newUser(username, hash string, addr *string, first bool) *models.User {
	u := &models.User{
		Username:     username,
		PasswordHash: hash,
		Email:        addr,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if first {
		t := true
		u.Role = models.RoleAdmin
		u.FirstUser = &t
	}
	return u
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// Authenticate returns the user for a valid, active login. Unknown user,
// inactive account and wrong password all yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.users.GetUserByName(ctx, NormalizeUsername(username))
	if err != nil {
		if common.KindOf(err) == common.KindNotFound {
			// keep timing close to the found-user path
			dummyOnce.Do(func() { dummyHash, _ = HashPassword("not-a-real-password") })
			CheckPassword(password, dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(password, u.PasswordHash) || !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
