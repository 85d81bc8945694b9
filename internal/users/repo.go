package users

import (
	"context"

	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/db"
	"github.com/suPer8Hu/agent-chat/internal/models"
	"gorm.io/gorm"
)

const userNotFound = "user not found"

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateUser inserts u. A username, email or bootstrap-flag collision
// comes back as KindDuplicateKey.
func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	return db.Classify(r.db.WithContext(ctx).Create(u).Error, userNotFound)
}

func (r *Repo) GetUserByName(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&u).Error; err != nil {
		return nil, db.Classify(err, userNotFound)
	}
	return &u, nil
}

func (r *Repo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, db.Classify(err, userNotFound)
	}
	return &u, nil
}

func (r *Repo) GetAllUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("username ASC").
		Find(&out).Error; err != nil {
		return nil, db.Classify(err, userNotFound)
	}
	return out, nil
}

// UpdateUser writes the mutable columns of u (email, password hash, role,
// active flag). The username is the row key and is never rewritten.
func (r *Repo) UpdateUser(ctx context.Context, u *models.User) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", u.Username).
		Select("email", "hashed_password", "role", "is_active").
		Updates(map[string]any{
			"email":           u.Email,
			"hashed_password": u.PasswordHash,
			"role":            u.Role,
			"is_active":       u.IsActive,
		})
	if res.Error != nil {
		return db.Classify(res.Error, userNotFound)
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 rows for a no-op update, so confirm the row exists.
		if _, err := r.GetUserByName(ctx, u.Username); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUser removes the user; their sessions and messages go with them
// through the foreign key cascade.
func (r *Repo) DeleteUser(ctx context.Context, username string) error {
	res := r.db.WithContext(ctx).Where("username = ?", username).Delete(&models.User{})
	if res.Error != nil {
		return db.Classify(res.Error, userNotFound)
	}
	if res.RowsAffected == 0 {
		return common.NotFound(userNotFound)
	}
	return nil
}

func (r *Repo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, db.Classify(err, userNotFound)
	}
	return n, nil
}
