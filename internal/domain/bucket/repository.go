package bucket

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, row *bucketRow) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *GormRepository) List(ctx context.Context) ([]bucketRow, error) {
	var rows []bucketRow
	err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *GormRepository) GetByID(ctx context.Context, id string) (*bucketRow, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// GetByName returns the oldest bucket with the given name.
func (r *GormRepository) GetByName(ctx context.Context, name string) (*bucketRow, error) {
	return r.first(r.db.WithContext(ctx).Where("name = ?", name).Order("created_at ASC, id ASC"))
}

// GetByNameInRegion returns the oldest bucket with the given name in region.
func (r *GormRepository) GetByNameInRegion(ctx context.Context, name, region string) (*bucketRow, error) {
	return r.first(r.db.WithContext(ctx).
		Where("name = ? AND region = ?", name, region).
		Order("created_at ASC, id ASC"))
}

func (r *GormRepository) first(q *gorm.DB) (*bucketRow, error) {
	var row bucketRow
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBucketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Replace overwrites every mutable column of an existing row.
func (r *GormRepository) Replace(ctx context.Context, row *bucketRow) error {
	res := r.db.WithContext(ctx).Model(&bucketRow{}).
		Where("id = ?", row.ID).
		Select("name", "region", "endpoint", "access_key_sealed", "secret_key_sealed",
			"use_ssl", "s3_provider", "storage_type", "custom_config", "updated_at").
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBucketNotFound
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&bucketRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrBucketNotFound
	}
	return nil
}
