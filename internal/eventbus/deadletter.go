package eventbus

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeadLetter captures a message whose handler failed, for later inspection
// and replay. The consumer loop commits the offset after recording one, so
// a poisoned message never blocks the subscription.
type DeadLetter struct {
	ID        snowflake.ID   `gorm:"primaryKey" json:"id"`
	Topic     string         `gorm:"type:text;not null;index" json:"topic"`
	GroupID   string         `gorm:"column:group_id;type:text;not null" json:"group_id"`
	Key       string         `gorm:"type:text" json:"key"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Reason    string         `gorm:"type:text;not null" json:"reason"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (DeadLetter) TableName() string { return "dead_letters" }

type DeadLetterStore struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewDeadLetterStore(db *gorm.DB, genID *snowflake.Node) *DeadLetterStore {
	return &DeadLetterStore{db: db, genID: genID}
}

func (s *DeadLetterStore) Record(ctx context.Context, topic, groupID string, key, payload []byte, cause error) error {
	if s == nil || s.db == nil {
		return nil
	}
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	entry := DeadLetter{
		ID:        s.genID.Generate(),
		Topic:     topic,
		GroupID:   groupID,
		Key:       string(key),
		Payload:   datatypes.JSON(payload),
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

func (s *DeadLetterStore) List(ctx context.Context, topic string, limit int) ([]DeadLetter, error) {
	var entries []DeadLetter
	stmt := s.db.WithContext(ctx).Model(&DeadLetter{}).Order("created_at desc, id desc")
	if topic != "" {
		stmt = stmt.Where("topic = ?", topic)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
