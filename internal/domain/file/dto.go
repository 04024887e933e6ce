package file

type InitiateRequest struct {
	RegionID   string `json:"regionId" binding:"required"`
	BucketCode string `json:"bucketCode" binding:"required"`
}

type DeletedResponse struct {
	ID    string `json:"id"`
	State State  `json:"state"`
}
