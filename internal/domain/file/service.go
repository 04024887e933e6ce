package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"time"

	"kineticafs/internal/blobstore"
	"kineticafs/internal/domain/bucket"
	"kineticafs/internal/pkg/guid"
	"kineticafs/internal/pkg/keylock"
	"kineticafs/internal/region"

	"github.com/fishy/errbatch"
	"github.com/sirupsen/logrus"
)

const purgeBatchSize = 100

type Repository interface {
	Create(ctx context.Context, f *FileUpload) error
	GetByID(ctx context.Context, id string) (*FileUpload, error)
	GetByBlobID(ctx context.Context, blobID string) (*FileUpload, error)
	MarkUploaded(ctx context.Context, id string, size int64, checksum, contentType string, at time.Time) error
	MarkFinalized(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	ListStale(ctx context.Context, state State, cutoff time.Time, limit int) ([]FileUpload, error)
}

// Buckets resolves bucket registrations.
type Buckets interface {
	Get(ctx context.Context, id string) (*bucket.Bucket, error)
	GetByName(ctx context.Context, name, region string) (*bucket.Bucket, error)
}

type Options struct {
	// MaxBlobSize caps a single blob in bytes; zero means unlimited.
	MaxBlobSize int64
}

// Service is the File Upload Coordinator.
type Service struct {
	repo    Repository
	buckets Buckets
	blobs   blobstore.Opener
	regions *region.Catalog
	locks   *keylock.Locks
	opts    Options
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewService(repo Repository, buckets Buckets, blobs blobstore.Opener, regions *region.Catalog, opts Options, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:    repo,
		buckets: buckets,
		blobs:   blobs,
		regions: regions,
		locks:   keylock.New(),
		opts:    opts,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Initiate reserves a file id and a blob slot in the bucket named bucketCode.
func (s *Service) Initiate(ctx context.Context, regionID, bucketCode string) (*FileUpload, error) {
	regionID = strings.TrimSpace(regionID)
	bucketCode = strings.TrimSpace(bucketCode)
	if regionID == "" || bucketCode == "" {
		return nil, ErrInvalidRequest
	}

	b, err := s.buckets.GetByName(ctx, bucketCode, regionID)
	if err != nil {
		return nil, err
	}
	if _, ok := s.regions.Lookup(regionID); !ok {
		s.logger.WithField("region", regionID).Warn("region not in catalog, using derived code")
	}

	now := s.now()
	regionCode := s.regions.Code(regionID)
	code := bucketNumber(b.ID)
	id, err := guid.NewAt(now, regionCode, code)
	if err != nil {
		return nil, fmt.Errorf("allocate file id: %w", err)
	}
	blobID, err := guid.NewAt(now, regionCode, code)
	if err != nil {
		return nil, fmt.Errorf("allocate blob id: %w", err)
	}

	f := &FileUpload{
		ID:         id.String(),
		BucketID:   b.ID,
		BucketCode: bucketCode,
		RegionID:   regionID,
		BlobID:     blobID.String(),
		ObjectKey:  "files/" + id.String(),
		State:      StateInitiated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create file upload: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"file_id":   f.ID,
		"blob_id":   f.BlobID,
		"bucket_id": b.ID,
		"region":    regionID,
	}).Info("file upload initiated")
	return f, nil
}

func (s *Service) Get(ctx context.Context, id string) (*FileUpload, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// UploadBlob streams body to the backend. size is -1 when unknown. The state
// only advances after the backend write succeeds, so a cancelled request
// leaves the upload where it was.
func (s *Service) UploadBlob(ctx context.Context, blobID string, body io.Reader, size int64, contentType string) (*FileUpload, error) {
	if err := checkID(blobID); err != nil {
		return nil, err
	}
	f, err := s.repo.GetByBlobID(ctx, blobID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(f.ID)
	defer s.locks.Unlock(f.ID)

	// reload under the lock
	f, err = s.repo.GetByID(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	if f.State == StateFinalized {
		return nil, ErrAlreadyFinalized
	}
	if s.opts.MaxBlobSize > 0 && size > s.opts.MaxBlobSize {
		return nil, ErrBlobTooLarge
	}

	store, err := s.storeFor(ctx, f.BucketID)
	if err != nil {
		return nil, err
	}

	counter := &countingReader{r: body, limit: s.opts.MaxBlobSize}
	hash := sha256.New()
	if err := store.Put(ctx, f.ObjectKey, io.TeeReader(counter, hash), size, contentType); err != nil {
		switch {
		case counter.exceeded:
			return nil, ErrBlobTooLarge
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}
		return nil, err
	}

	checksum := hex.EncodeToString(hash.Sum(nil))
	if err := s.repo.MarkUploaded(ctx, f.ID, counter.n, checksum, contentType, s.now()); err != nil {
		return nil, fmt.Errorf("record blob upload: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"file_id": f.ID,
		"size":    counter.n,
	}).Info("blob uploaded")
	return s.repo.GetByID(ctx, f.ID)
}

// Finalize seals an uploaded blob. Finalizing twice is a no-op.
func (s *Service) Finalize(ctx context.Context, id string) (*FileUpload, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch f.State {
	case StateFinalized:
		return f, nil
	case StateInitiated:
		return nil, ErrBlobNotUploaded
	}

	if err := s.repo.MarkFinalized(ctx, id, s.now()); err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	s.logger.WithField("file_id", id).Info("file upload finalized")
	return s.repo.GetByID(ctx, id)
}

// Delete removes the upload from any state. Removing the backend object is
// best effort; failures are logged.
func (s *Service) Delete(ctx context.Context, id string) (*FileUpload, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}

	entry := s.logger.WithField("file_id", id)
	if f.State != StateInitiated {
		if err := s.deleteBlob(ctx, f); err != nil {
			entry.WithError(err).Warn("backend object not removed")
		}
	}
	entry.Info("file upload deleted")

	f.State = StateDeleted
	return f, nil
}

// PurgeStale deletes uploads that never received a blob within ttl and
// returns how many were removed. Pages are read until none remain or a page
// makes no progress.
func (s *Service) PurgeStale(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := s.now().Add(-ttl)

	purged := 0
	batch := &errbatch.ErrBatch{}
	for {
		if err := ctx.Err(); err != nil {
			batch.Add(err)
			break
		}
		stale, err := s.repo.ListStale(ctx, StateInitiated, cutoff, purgeBatchSize)
		if err != nil {
			batch.Add(fmt.Errorf("list stale uploads: %w", err))
			break
		}

		progress := 0
		for _, f := range stale {
			if err := s.purgeOne(ctx, f.ID); err != nil {
				if errors.Is(err, ErrFileNotFound) {
					progress++
				} else {
					batch.Add(fmt.Errorf("purge %s: %w", f.ID, err))
				}
				continue
			}
			purged++
			progress++
		}
		if len(stale) < purgeBatchSize || progress == 0 {
			break
		}
	}

	if purged > 0 {
		s.logger.WithField("purged", purged).Info("stale uploads purged")
	}
	return purged, batch.Compile()
}

func (s *Service) purgeOne(ctx context.Context, id string) error {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// a blob may have landed since the listing
	if f.State != StateInitiated {
		return ErrFileNotFound
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) deleteBlob(ctx context.Context, f *FileUpload) error {
	store, err := s.storeFor(ctx, f.BucketID)
	if err != nil {
		return err
	}
	return store.Delete(ctx, f.ObjectKey)
}

func (s *Service) storeFor(ctx context.Context, bucketID string) (blobstore.Store, error) {
	b, err := s.buckets.Get(ctx, bucketID)
	if err != nil {
		return nil, err
	}
	opts, err := blobstore.ParseOptions(b.CustomConfig)
	if err != nil {
		return nil, fmt.Errorf("bucket %s: %w", b.ID, err)
	}
	return s.blobs.Open(ctx, blobstore.Target{
		Provider:  b.S3Provider,
		Endpoint:  b.Endpoint,
		Bucket:    b.Name,
		AccessKey: b.AccessKey,
		SecretKey: b.SecretKey,
		UseSSL:    b.UseSSL,
		Options:   opts,
	})
}

// checkID rejects ids that cannot name an upload before any lock or query.
func checkID(id string) error {
	if _, err := guid.Parse(id); err != nil {
		return ErrFileNotFound
	}
	return nil
}

// bucketNumber folds a bucket id into the 16-bit code embedded in file ids.
func bucketNumber(bucketID string) uint16 {
	h := fnv.New32a()
	h.Write([]byte(bucketID))
	sum := h.Sum32()
	return uint16(sum ^ sum>>16)
}

type countingReader struct {
	r        io.Reader
	n        int64
	limit    int64
	exceeded bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		c.exceeded = true
		return n, ErrBlobTooLarge
	}
	return n, err
}
