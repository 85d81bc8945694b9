package chat

import (
	"fmt"
	"time"

	"github.com/suPer8Hu/agent-chat/internal/models"
)

// Session is one conversation thread with an agent. ID is the local db id;
// ExternalSessionID is the id the agent runtime knows the thread by.
type Session struct {
	ID                string       `gorm:"type:varchar(36);primaryKey" json:"db_id"`
	UserName          string       `gorm:"column:username;type:varchar(20);index;not null" json:"user_name"`
	ExternalSessionID string       `gorm:"type:varchar(100);uniqueIndex;not null" json:"external_session_id"`
	AgentName         string       `gorm:"type:varchar(30);not null" json:"agent_name"`
	Summary           *string      `gorm:"type:text" json:"-"`
	CreatedAt         time.Time    `gorm:"index" json:"created_at"`
	User              *models.User `gorm:"foreignKey:UserName;references:Username;constraint:OnDelete:CASCADE" json:"-"`
}

func (Session) TableName() string { return "sessions" }

// DisplaySummary is the label shown for the session.
func (s *Session) DisplaySummary() string {
	if s.Summary != nil && *s.Summary != "" {
		return *s.Summary
	}
	return fmt.Sprintf("Chat com %s", s.AgentName)
}

type Message struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionDBID string    `gorm:"column:session_db_id;type:varchar(36);not null;index:idx_messages_session_ts,priority:1" json:"session_db_id"`
	Role        string    `gorm:"type:varchar(16);not null" json:"role"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Timestamp   time.Time `gorm:"not null;index:idx_messages_session_ts,priority:2" json:"timestamp"`
	Session     *Session  `gorm:"foreignKey:SessionDBID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Message) TableName() string { return "messages" }
