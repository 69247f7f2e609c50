package models

import "time"

const (
	MessageTable  = "eqm_messages"
	SequenceTable = "eqm_sequences"
)

// Message is one audit trail entry posted on a record.
type Message struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectType string    `gorm:"size:20;index:idx_eqm_msg_subject;not null" json:"subjectType"`
	SubjectID   string    `gorm:"type:uuid;index:idx_eqm_msg_subject;not null" json:"subjectId"`
	Subject     string    `gorm:"size:255" json:"subject"`
	Body        string    `gorm:"type:text" json:"body"`
	AuthorID    *string   `gorm:"type:uuid" json:"authorId,omitempty"`
	Recipients  string    `gorm:"type:text" json:"recipients,omitempty"` // comma separated user ids
	CreatedAt   time.Time `json:"createdAt"`
}

func (Message) TableName() string { return MessageTable }

// Sequence backs human readable reference numbers.
type Sequence struct {
	Code      string `gorm:"primaryKey;size:40"`
	NextValue int64  `gorm:"not null;default:1"`
}

func (Sequence) TableName() string { return SequenceTable }
