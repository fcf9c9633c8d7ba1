package audit

import "time"

type Entry struct {
	ID         string    `gorm:"column:id;primaryKey;size:26"`
	EventID    string    `gorm:"column:event_id;uniqueIndex;not null"`
	EventType  string    `gorm:"column:event_type;not null"`
	CaseID     string    `gorm:"column:case_id;index"`
	ActorID    string    `gorm:"column:actor_id"`
	ActorRole  string    `gorm:"column:actor_role"`
	Action     string    `gorm:"column:action"`
	Outcome    string    `gorm:"column:outcome;not null"`
	Message    string    `gorm:"column:message"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Entry) TableName() string {
	return "audit_entries"
}
