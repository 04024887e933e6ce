package file

import "time"

type State string

const (
	StateInitiated    State = "Initiated"
	StateBlobUploaded State = "BlobUploaded"
	StateFinalized    State = "Finalized"
	// StateDeleted is reported by Delete; deleted uploads have no row.
	StateDeleted State = "Deleted"
)

// FileUpload tracks one file through initiate, blob upload and finalize.
type FileUpload struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	BucketID    string     `json:"bucketId" gorm:"size:36"`
	BucketCode  string     `json:"bucketCode"`
	RegionID    string     `json:"regionId"`
	BlobID      string     `json:"blobId" gorm:"size:36;uniqueIndex"`
	ObjectKey   string     `json:"objectKey"`
	State       State      `json:"state" gorm:"size:16"`
	Size        int64      `json:"size"`
	ContentType string     `json:"contentType,omitempty"`
	Checksum    string     `json:"checksum,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	FinalizedAt *time.Time `json:"finalizedAt,omitempty"`
}

func (FileUpload) TableName() string {
	return "file_uploads"
}
