package domain

import (
	"context"
	"time"
)

// Credentials identifies one Lighter sub-account and the API key material
// used to issue its bearer token. Exactly one of PrivateKey or
// EncryptedKeyPath (with KeyPassword) should be set when fills are to be
// retrieved from the exchange.
type Credentials struct {
	AccountIndex     int64  `json:"account_index"`
	APIKeyIndex      int64  `json:"api_key_index"`
	PrivateKey       string `json:"private_key,omitempty"`
	EncryptedKeyPath string `json:"encrypted_key_path,omitempty"`
	KeyPassword      string `json:"key_password,omitempty"`
}

// TokenIssuer produces short-lived bearer tokens for the trade-history API
// from an account's key material. Implementations reject bad key material
// with ErrBadCredential.
type TokenIssuer interface {
	IssueToken(creds Credentials) (string, error)
}

// RateLimiter provides distributed rate limiting for the service's own
// endpoints.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
