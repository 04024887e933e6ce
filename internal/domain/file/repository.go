package file

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, f *FileUpload) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *GormRepository) GetByID(ctx context.Context, id string) (*FileUpload, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormRepository) GetByBlobID(ctx context.Context, blobID string) (*FileUpload, error) {
	return r.first(r.db.WithContext(ctx).Where("blob_id = ?", blobID))
}

func (r *GormRepository) first(q *gorm.DB) (*FileUpload, error) {
	var f FileUpload
	err := q.First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// MarkUploaded records a completed blob write. Finalized uploads are left
// untouched.
func (r *GormRepository) MarkUploaded(ctx context.Context, id string, size int64, checksum, contentType string, at time.Time) error {
	return r.transition(ctx, id, []State{StateInitiated, StateBlobUploaded}, map[string]any{
		"state":        StateBlobUploaded,
		"size":         size,
		"checksum":     checksum,
		"content_type": contentType,
		"updated_at":   at,
	})
}

func (r *GormRepository) MarkFinalized(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, []State{StateBlobUploaded}, map[string]any{
		"state":        StateFinalized,
		"finalized_at": at,
		"updated_at":   at,
	})
}

// transition applies updates only while the row is in one of from. A miss is
// reported as ErrFileNotFound; callers hold the row lock and have already
// checked the state.
func (r *GormRepository) transition(ctx context.Context, id string, from []State, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&FileUpload{}).
		Where("id = ? AND state IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&FileUpload{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

// ListStale returns uploads still in state that were created before cutoff.
func (r *GormRepository) ListStale(ctx context.Context, state State, cutoff time.Time, limit int) ([]FileUpload, error) {
	var out []FileUpload
	err := r.db.WithContext(ctx).
		Where("state = ? AND created_at < ?", state, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
