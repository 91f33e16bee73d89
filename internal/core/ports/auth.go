package ports

// TokenStore manages the per-user tokens build servers use to authenticate
// clients.
//
//go:generate mockgen -source=auth.go -destination=mocks/mock_auth.go -package=mocks
type TokenStore interface {
	// Token returns the user's token, creating or refreshing it when needed.
	Token(user string) (string, error)

	// Verify checks a token presented by a client claiming to be user.
	Verify(user string, uid int, token string) bool
}
