package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TurnLog is the audit row for one chat turn. It never stores message text.
type TurnLog struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionHash      string         `gorm:"type:varchar(64);not null;index"`
	ClientHash       string         `gorm:"type:varchar(64);not null"`
	Stage            string         `gorm:"type:varchar(20);not null;index"`
	Rule             string         `gorm:"type:varchar(30);not null"`
	Provider         string         `gorm:"type:varchar(30)"`
	Attempts         int            `gorm:"not null;default:0"`
	Fallback         bool           `gorm:"not null;default:false;index"`
	KnowledgeMatches int            `gorm:"not null;default:0"`
	LatencyMs        int64          `gorm:"not null"`
	TokenUsage       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"default:now();not null;index"`
}

func (TurnLog) TableName() string {
	return "turn_logs"
}
