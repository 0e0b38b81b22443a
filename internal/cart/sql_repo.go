package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLRepository stores carts in the cart_snapshots table.
type SQLRepository struct {
	db *gorm.DB
}

func NewSQLRepository(db *gorm.DB) (*SQLRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db required")
	}
	return &SQLRepository{db: db}, nil
}

func (r *SQLRepository) Load(ctx context.Context, sessionID string) ([]byte, error) {
	var row models.CartSnapshot
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select cart snapshot: %w", err)
	}
	return []byte(row.Payload), nil
}

func (r *SQLRepository) Save(ctx context.Context, sessionID string, payload []byte) error {
	row := models.CartSnapshot{SessionID: sessionID, Payload: string(payload)}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert cart snapshot: %w", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.CartSnapshot{}).Error
}

// PurgeBefore deletes snapshots last written before cutoff, i.e. carts whose
// session cookie has expired.
func (r *SQLRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.CartSnapshot{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge cart snapshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}
