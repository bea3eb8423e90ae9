package auth

import "time"

// Principal is the identity asserted by a validated token. It lives only in
// the token payload and, per request, in the request context.
type Principal struct {
	UserID    int64
	Name      string
	RoleCode  string
	TokenID   string
	ExpiresAt time.Time
}

// Seed carries the facts copied into a new token.
type Seed struct {
	UserID   int64
	Name     string
	RoleCode string
}

// Token is a signed bearer credential.
type Token struct {
	Value     string
	TokenID   string
	ExpiresAt time.Time
}
