package bucket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kineticafs/internal/pkg/keylock"
	"kineticafs/internal/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	Create(ctx context.Context, row *bucketRow) error
	List(ctx context.Context) ([]bucketRow, error)
	GetByID(ctx context.Context, id string) (*bucketRow, error)
	GetByName(ctx context.Context, name string) (*bucketRow, error)
	GetByNameInRegion(ctx context.Context, name, region string) (*bucketRow, error)
	Replace(ctx context.Context, row *bucketRow) error
	Delete(ctx context.Context, id string) error
}

// Sealer protects backend credentials at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Service is the Bucket Registry. Registration never contacts the backend.
type Service struct {
	repo   Repository
	sealer Sealer
	locks  *keylock.Locks
	logger logrus.FieldLogger
}

func NewService(repo Repository, sealer Sealer, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:   repo,
		sealer: sealer,
		locks:  keylock.New(),
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, spec Spec) (*Bucket, error) {
	spec, err := normalize(spec)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := &bucketRow{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := s.apply(row, spec); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket_id": row.ID,
		"name":      row.Name,
		"region":    row.Region,
		"provider":  row.S3Provider,
	}).Info("bucket registered")
	return s.open(row)
}

func (s *Service) List(ctx context.Context) ([]Bucket, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Bucket, 0, len(rows))
	for i := range rows {
		b, err := s.open(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Bucket, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.open(row)
}

// GetByName resolves a bucket code to its record. Names are not unique: a
// bucket registered in region wins, otherwise the oldest with the name.
func (s *Service) GetByName(ctx context.Context, name, region string) (*Bucket, error) {
	row, err := s.repo.GetByNameInRegion(ctx, name, region)
	if errors.Is(err, ErrBucketNotFound) {
		row, err = s.repo.GetByName(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	return s.open(row)
}

// Update replaces every field of the bucket with spec.
func (s *Service) Update(ctx context.Context, id string, spec Spec) (*Bucket, error) {
	spec, err := normalize(spec)
	if err != nil {
		return nil, err
	}
	if err := checkID(id); err != nil {
		return nil, err
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(row, spec); err != nil {
		return nil, err
	}
	row.UpdatedAt = time.Now().UTC()
	if err := s.repo.Replace(ctx, row); err != nil {
		if errors.Is(err, ErrBucketNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update bucket: %w", err)
	}

	s.logger.WithField("bucket_id", id).Info("bucket updated")
	return s.open(row)
}

// Delete removes the registration. Uploads that reference the bucket are left
// in place.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("bucket_id", id).Info("bucket deleted")
	return nil
}

func (s *Service) apply(row *bucketRow, spec Spec) error {
	access, err := s.sealer.Seal(spec.AccessKey)
	if err != nil {
		return fmt.Errorf("seal access key: %w", err)
	}
	secret, err := s.sealer.Seal(spec.SecretKey)
	if err != nil {
		return fmt.Errorf("seal secret key: %w", err)
	}

	row.Name = spec.Name
	row.Region = spec.Region
	row.Endpoint = spec.Endpoint
	row.AccessKeySealed = access
	row.SecretKeySealed = secret
	row.UseSSL = *spec.UseSSL
	row.S3Provider = spec.S3Provider
	row.StorageType = *spec.StorageType
	row.CustomConfig = spec.CustomConfig
	return nil
}

func (s *Service) open(row *bucketRow) (*Bucket, error) {
	access, err := s.sealer.Open(row.AccessKeySealed)
	if err != nil {
		return nil, fmt.Errorf("open access key of bucket %s: %w", row.ID, err)
	}
	secret, err := s.sealer.Open(row.SecretKeySealed)
	if err != nil {
		return nil, fmt.Errorf("open secret key of bucket %s: %w", row.ID, err)
	}
	return &Bucket{
		ID:           row.ID,
		Name:         row.Name,
		Region:       row.Region,
		Endpoint:     row.Endpoint,
		AccessKey:    access,
		SecretKey:    secret,
		UseSSL:       row.UseSSL,
		S3Provider:   row.S3Provider,
		StorageType:  row.StorageType,
		CustomConfig: row.CustomConfig,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func normalize(spec Spec) (Spec, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	spec.Region = strings.TrimSpace(spec.Region)
	spec.Endpoint = strings.TrimSpace(spec.Endpoint)
	spec.S3Provider = strings.ToLower(strings.TrimSpace(spec.S3Provider))
	if fields := validator.Validate(spec); fields != nil {
		return spec, &ValidationError{Fields: fields}
	}
	return spec, nil
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrBucketNotFound
	}
	return nil
}
