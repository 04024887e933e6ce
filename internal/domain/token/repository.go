package token

import (
	"context"
	"errors"
	"time"

	"kineticafs/internal/database"

	"gorm.io/gorm"
)

// GormRepository stores tokens and the first-run flag.
type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) FirstRun(ctx context.Context) (bool, error) {
	var st SystemState
	err := r.db.WithContext(ctx).First(&st, systemStateID).Error
	if err != nil {
		return false, err
	}
	return st.FirstRun, nil
}

// Bootstrap flips first_run and inserts the admin token in one transaction.
// Only the caller whose conditional update touches the row may insert.
func (r *GormRepository) Bootstrap(ctx context.Context, admin *ServiceToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&SystemState{}).
			Where("id = ? AND first_run = ?", systemStateID, true).
			Updates(map[string]any{"first_run": false, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyBootstrapped
		}
		if err := tx.Create(admin).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrAlreadyBootstrapped
			}
			return err
		}
		return nil
	})
}

func (r *GormRepository) Create(ctx context.Context, t *ServiceToken) error {
	err := r.db.WithContext(ctx).Create(t).Error
	if database.IsUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

func (r *GormRepository) List(ctx context.Context) ([]ServiceToken, error) {
	var out []ServiceToken
	err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

func (r *GormRepository) GetByID(ctx context.Context, id string) (*ServiceToken, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormRepository) GetByDigest(ctx context.Context, digest string) (*ServiceToken, error) {
	return r.first(ctx, "key_digest = ?", digest)
}

func (r *GormRepository) first(ctx context.Context, query string, arg any) (*ServiceToken, error) {
	var t ServiceToken
	err := r.db.WithContext(ctx).Where(query, arg).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormRepository) Rename(ctx context.Context, id, name string) error {
	res := r.db.WithContext(ctx).Model(&ServiceToken{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "updated_at": time.Now().UTC()})
	if database.IsUniqueViolation(res.Error) {
		return ErrNameTaken
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ServiceToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}
