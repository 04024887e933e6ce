package bucket

import "time"

// Bucket is a registered storage backend with its credentials in the clear.
// It only exists in memory; rows hold sealed credentials.
type Bucket struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Region       string    `json:"region"`
	Endpoint     string    `json:"endpoint"`
	AccessKey    string    `json:"access_key"`
	SecretKey    string    `json:"secret_key,omitempty"`
	UseSSL       bool      `json:"use_ssl"`
	S3Provider   string    `json:"s3_provider"`
	StorageType  int       `json:"storage_type"`
	CustomConfig string    `json:"custom_config,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Redacted hides the secret key.
func (b Bucket) Redacted() Bucket {
	b.SecretKey = ""
	return b
}

type bucketRow struct {
	ID              string `gorm:"primaryKey;size:36"`
	Name            string `gorm:"index"`
	Region          string `gorm:"index"`
	Endpoint        string
	AccessKeySealed string `gorm:"column:access_key_sealed"`
	SecretKeySealed string `gorm:"column:secret_key_sealed"`
	UseSSL          bool   `gorm:"column:use_ssl"`
	S3Provider      string `gorm:"column:s3_provider"`
	StorageType     int    `gorm:"column:storage_type"`
	CustomConfig    string `gorm:"column:custom_config"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (bucketRow) TableName() string {
	return "buckets"
}
