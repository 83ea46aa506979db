package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidCredentials represents login failure.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Authenticator checks the single configured operator account and issues tokens.
type Authenticator struct {
	username     string
	passwordHash string
	hasher       Hasher
	tokens       *TokenService
	logger       *zap.Logger
}

// NewAuthenticator builds Authenticator.
func NewAuthenticator(username, passwordHash string, hasher Hasher, tokens *TokenService, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		username:     strings.TrimSpace(username),
		passwordHash: passwordHash,
		hasher:       hasher,
		tokens:       tokens,
		logger:       logger,
	}
}

// Login authenticates the operator and produces a JWT.
func (a *Authenticator) Login(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || a.passwordHash == "" {
		return "", ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) != 1 {
		return "", ErrInvalidCredentials
	}
	if err := a.hasher.Compare(a.passwordHash, password); err != nil {
		a.logger.Warn("operator login rejected", zap.String("username", username))
		return "", ErrInvalidCredentials
	}

	token, err := a.tokens.GenerateToken(username, RoleOperator)
	if err != nil {
		return "", err
	}

	a.logger.Info("operator logged in", zap.String("username", username))
	return token, nil
}
