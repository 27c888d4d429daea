package storage

// TokenRecord is the persisted form of a session token.
type TokenRecord struct {
	Token string `json:"token"`
	// Expire is the epoch millisecond after which the token is no longer used.
	Expire int64 `json:"expire"`
}
