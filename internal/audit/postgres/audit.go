package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/rahat-dashboard/internal/audit"
	auditDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/audit"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.RepositoryAPI {
	return &AuditRepository{db: db}
}

// Create ignores an event that was already recorded.
func (r *AuditRepository) Create(ctx context.Context, entry *auditDatamodel.Entry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(entry).Error
}

func (r *AuditRepository) ListByCase(ctx context.Context, caseID string, limit int) ([]auditDatamodel.Entry, error) {
	var entries []auditDatamodel.Entry
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("occurred_at ASC, id ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
