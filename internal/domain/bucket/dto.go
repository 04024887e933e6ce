package bucket

// Spec is the full set of client-supplied bucket fields. Update replaces all
// of them, so it uses the same shape as create.
type Spec struct {
	Name         string `json:"name" validate:"required,max=255"`
	Region       string `json:"region" validate:"required,max=64"`
	Endpoint     string `json:"endpoint" validate:"required,endpoint"`
	AccessKey    string `json:"access_key" validate:"required"`
	SecretKey    string `json:"secret_key" validate:"required"`
	UseSSL       *bool  `json:"use_ssl" validate:"required"`
	S3Provider   string `json:"s3_provider" validate:"required,max=32"`
	StorageType  *int   `json:"storage_type" validate:"required,min=0"`
	CustomConfig string `json:"custom_config,omitempty"`
}

type DeletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
