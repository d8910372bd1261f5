package social

import "time"

// StartRequest is the body for POST /api/social/start. Action is optional
// when the per-action route is used; the combined /api/social endpoint
// dispatches on it.
type StartRequest struct {
	Action      string `json:"action,omitempty"`
	Platform    string `json:"platform"`
	RedirectURI string `json:"redirectUri"`
}

type StartResponse struct {
	AuthURL string `json:"authUrl"`
}

// CallbackRequest is the body for POST /api/social/callback.
type CallbackRequest struct {
	Action      string `json:"action,omitempty"`
	Platform    string `json:"platform"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
	State       string `json:"state,omitempty"`
}

type CallbackResponse struct {
	Success   bool   `json:"success"`
	Provider  string `json:"provider"`
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Connection is the display view of a stored credential. Tokens never
// appear here.
type Connection struct {
	Provider  string     `json:"provider"`
	AccountID string     `json:"accountId"`
	Name      string     `json:"name"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type ConnectionsResponse struct {
	Connections []Connection `json:"connections"`
}
