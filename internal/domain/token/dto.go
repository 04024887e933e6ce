package token

import "time"

type CreateTokenRequest struct {
	Name string `json:"name" binding:"required"`
}

type RenameTokenRequest struct {
	Name string `json:"name" binding:"required"`
}

// TokenResponse never carries the access key except right after issuance.
type TokenResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	AccessKey string    `json:"access_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FirstRunResponse struct {
	FirstRun bool `json:"first_run"`
}

type DeletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func toResponse(t *ServiceToken) TokenResponse {
	return TokenResponse{
		ID:        t.ID,
		Name:      t.Name,
		Role:      t.Role,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func issuedResponse(i *Issued) TokenResponse {
	resp := toResponse(i.Token)
	resp.AccessKey = i.AccessKey
	return resp
}
