package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sessionNotFound = "session not found"

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateSession inserts s and returns its db id, generating one when
// s.ID is empty. Generated ids are UUIDv7, so they sort in creation order.
// A reused external session id is KindDuplicateKey.
func (r *Repo) CreateSession(ctx context.Context, s *Session) (string, error) {
	if s.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", common.StoreFailure(err)
		}
		s.ID = id.String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Omit("User").Create(s).Error; err != nil {
		return "", db.Classify(err, sessionNotFound)
	}
	return s.ID, nil
}

func (r *Repo) GetSession(ctx context.Context, dbID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).First(&s, "id = ?", dbID).Error; err != nil {
		return nil, db.Classify(err, sessionNotFound)
	}
	return &s, nil
}

// ListSessionsForUser returns the user's sessions, newest first. Sessions
// created in the same instant fall back to id order.
func (r *Repo) ListSessionsForUser(ctx context.Context, username string) ([]Session, error) {
	var out []Session
	if err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC").
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, db.Classify(err, sessionNotFound)
	}
	return out, nil
}

// UpdateSummary sets the display label; nil restores the default.
func (r *Repo) UpdateSummary(ctx context.Context, dbID string, summary *string) error {
	res := r.db.WithContext(ctx).
		Model(&Session{}).
		Where("id = ?", dbID).
		Update("summary", summary)
	if res.Error != nil {
		return db.Classify(res.Error, sessionNotFound)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetSession(ctx, dbID); err != nil {
			return err
		}
	}
	return nil
}

// AppendMessage inserts m into the session. Timestamp defaults to now.
func (r *Repo) AppendMessage(ctx context.Context, sessionDBID string, m *Message) error {
	if sessionDBID == "" {
		return common.Validation("session id is required")
	}
	m.SessionDBID = sessionDBID
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	return db.Classify(r.db.WithContext(ctx).Omit("Session").Create(m).Error, sessionNotFound)
}

// ListMessages returns the session's messages oldest first; equal
// timestamps keep insertion order.
func (r *Repo) ListMessages(ctx context.Context, sessionDBID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_db_id = ?", sessionDBID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Find(&msgs).Error; err != nil {
		return nil, db.Classify(err, sessionNotFound)
	}
	return msgs, nil
}
