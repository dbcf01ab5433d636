package models

import "github.com/dmitrijs2005/melvin/internal/timex"

// Credentials is the body of POST /auth/request and POST /auth/login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AccountRequest is a sign-up request waiting for an administrator.
type AccountRequest struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Status    string          `json:"status"`
	CreatedAt timex.Timestamp `json:"created_at"`
}
