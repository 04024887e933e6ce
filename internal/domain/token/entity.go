package token

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// AdminTokenName is the name given to the token minted by bootstrap.
const AdminTokenName = "admin"

const systemStateID = 1

// ServiceToken is a stored bearer credential. The access key itself is never
// persisted, only its keyed digest.
type ServiceToken struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"not null;uniqueIndex"`
	KeyDigest string    `gorm:"column:key_digest;not null;uniqueIndex"`
	Role      Role      `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ServiceToken) TableName() string {
	return "service_tokens"
}

// SystemState holds the single first-run row.
type SystemState struct {
	ID        int  `gorm:"primaryKey"`
	FirstRun  bool `gorm:"column:first_run"`
	UpdatedAt time.Time
}

func (SystemState) TableName() string {
	return "system_state"
}

// Identity is what a presented access key resolves to.
type Identity struct {
	TokenID string
	Name    string
	Role    Role
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Issued is a freshly minted token together with its one-time access key.
type Issued struct {
	Token     *ServiceToken
	AccessKey string
}
