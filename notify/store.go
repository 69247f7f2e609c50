package notify

import (
	"context"
	"fmt"
	"strings"

	"Gin_postgres_redis_equipment_tool/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DBSink appends events to the message table, the record's history.
type DBSink struct{ DB *gorm.DB }

func (s DBSink) Post(ctx context.Context, ev Event) error {
	m := &models.Message{
		ID:          uuid.NewString(),
		SubjectType: ev.SubjectType,
		SubjectID:   ev.SubjectID,
		Subject:     ev.Subject,
		Body:        ev.Body,
		Recipients:  strings.Join(ev.Recipients, ","),
	}
	if ev.AuthorID != "" {
		a := ev.AuthorID
		m.AuthorID = &a
	}
	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}
