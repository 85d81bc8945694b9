package users

import (
	"context"

	"github.com/suPer8Hu/agent-chat/internal/auth"
	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/email"
	"github.com/suPer8Hu/agent-chat/internal/models"
)

var (
	ErrNotAdmin         = common.Forbidden("admin role required")
	ErrSelfDemote       = common.Forbidden("you cannot remove your own admin role")
	ErrSelfDeactivate   = common.Forbidden("you cannot deactivate your own account")
	ErrSelfDelete       = common.Forbidden("you cannot delete your own account")
	ErrRenameNotAllowed = common.Validation("username cannot be changed")
	ErrPasswordMismatch = common.Validation("passwords do not match")
	ErrEmailTaken       = common.E(common.KindDuplicateKey, "email already exists", nil)
)

// Update is an admin edit of one account. Email replaces the stored
// address (empty clears it); Password is optional.
type Update struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Role            models.Role
	IsActive        bool
}

// Service is the admin panel: user listing and edits guarded by the
// actor's role capabilities.
type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListUsers(ctx context.Context, actor *models.User) ([]models.User, error) {
	if !actor.Role.Capabilities().ManageUsers {
		return nil, ErrNotAdmin
	}
	return s.repo.GetAllUsers(ctx)
}

func (s *Service) UpdateUser(ctx context.Context, actor *models.User, target string, in Update) (*models.User, error) {
	if !actor.Role.Capabilities().ManageUsers {
		return nil, ErrNotAdmin
	}
	target = auth.NormalizeUsername(target)
	if !in.Role.Valid() {
		return nil, common.Validation("role must be admin or user")
	}
	if target == actor.Username {
		if !in.Role.Capabilities().ManageUsers {
			return nil, ErrSelfDemote
		}
		if !in.IsActive {
			return nil, ErrSelfDeactivate
		}
	}
	if in.Username != "" && auth.NormalizeUsername(in.Username) != target {
		return nil, ErrRenameNotAllowed
	}

	var hash string
	if in.Password != "" || in.ConfirmPassword != "" {
		if in.Password != in.ConfirmPassword {
			return nil, ErrPasswordMismatch
		}
		if err := auth.ValidatePassword(in.Password); err != nil {
			return nil, err
		}
		h, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	addr, err := email.Normalize(in.Email)
	if err != nil {
		return nil, common.Validation(err.Error())
	}

	u, err := s.repo.GetUserByName(ctx, target)
	if err != nil {
		return nil, err
	}
	u.Email = addr
	u.Role = in.Role
	u.IsActive = in.IsActive
	if hash != "" {
		u.PasswordHash = hash
	}

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		if common.KindOf(err) == common.KindDuplicateKey {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, actor *models.User, target string) error {
	if !actor.Role.Capabilities().ManageUsers {
		return ErrNotAdmin
	}
	target = auth.NormalizeUsername(target)
	if target == actor.Username {
		return ErrSelfDelete
	}
	return s.repo.DeleteUser(ctx, target)
}
