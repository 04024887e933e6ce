package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"kineticafs/internal/credstore"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxNameLength = 128

// Repository is the persistence the Token Authority needs.
type Repository interface {
	FirstRun(ctx context.Context) (bool, error)
	Bootstrap(ctx context.Context, admin *ServiceToken) error
	Create(ctx context.Context, t *ServiceToken) error
	List(ctx context.Context) ([]ServiceToken, error)
	GetByID(ctx context.Context, id string) (*ServiceToken, error)
	GetByDigest(ctx context.Context, digest string) (*ServiceToken, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

// Digester turns an access key into its stored form.
type Digester interface {
	Digest(secret string) string
}

// Service is the Token Authority.
type Service struct {
	repo   Repository
	keys   Digester
	logger logrus.FieldLogger

	bootstrapMu sync.Mutex
	// bootstrapped caches the terminal first_run=false state.
	bootstrapped atomic.Bool
}

func NewService(repo Repository, keys Digester, logger logrus.FieldLogger) *Service {
	return &Service{repo: repo, keys: keys, logger: logger}
}

func (s *Service) CheckFirstRun(ctx context.Context) (bool, error) {
	if s.bootstrapped.Load() {
		return false, nil
	}
	firstRun, err := s.repo.FirstRun(ctx)
	if err != nil {
		return false, fmt.Errorf("read first-run state: %w", err)
	}
	if !firstRun {
		s.bootstrapped.Store(true)
	}
	return firstRun, nil
}

// Bootstrap mints the sole admin token. Exactly one call ever succeeds; the
// rest get ErrAlreadyBootstrapped.
func (s *Service) Bootstrap(ctx context.Context) (*Issued, error) {
	s.bootstrapMu.Lock()
	defer s.bootstrapMu.Unlock()

	if s.bootstrapped.Load() {
		return nil, ErrAlreadyBootstrapped
	}

	issued, err := s.mint(AdminTokenName, RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Bootstrap(ctx, issued.Token); err != nil {
		if errors.Is(err, ErrAlreadyBootstrapped) {
			s.bootstrapped.Store(true)
			return nil, err
		}
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	s.bootstrapped.Store(true)

	s.logger.WithField("token_id", issued.Token.ID).Info("admin token bootstrapped")
	return issued, nil
}

// Create issues a user-role token.
func (s *Service) Create(ctx context.Context, name string) (*Issued, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	issued, err := s.mint(name, RoleUser)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, issued.Token); err != nil {
		if errors.Is(err, ErrNameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create token: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"token_id": issued.Token.ID, "name": name}).Info("service token created")
	return issued, nil
}

func (s *Service) List(ctx context.Context) ([]ServiceToken, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*ServiceToken, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Rename(ctx context.Context, id, name string) (*ServiceToken, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, id, name); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes any token. Removing the admin token leaves the system
// without an administrator; bootstrap does not reopen.
func (s *Service) Delete(ctx context.Context, id string) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	entry := s.logger.WithFields(logrus.Fields{"token_id": id, "name": t.Name})
	if t.Role == RoleAdmin {
		entry.Warn("admin token deleted, no administrator remains")
	} else {
		entry.Info("service token deleted")
	}
	return nil
}

// Resolve maps a presented access key to an identity. Malformed and unknown
// keys both yield ErrUnauthenticated.
func (s *Service) Resolve(ctx context.Context, accessKey string) (*Identity, error) {
	if !credstore.WellFormedSecret(accessKey) {
		return nil, ErrUnauthenticated
	}
	t, err := s.repo.GetByDigest(ctx, s.keys.Digest(accessKey))
	if errors.Is(err, ErrTokenNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	return &Identity{TokenID: t.ID, Name: t.Name, Role: t.Role}, nil
}

func (s *Service) mint(name string, role Role) (*Issued, error) {
	key, err := credstore.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate access key: %w", err)
	}
	return &Issued{
		Token: &ServiceToken{
			ID:        uuid.NewString(),
			Name:      name,
			KeyDigest: s.keys.Digest(key),
			Role:      role,
		},
		AccessKey: key,
	}, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
