package service

import (
	"errors"

	"github.com/user/uniapi-stats/internal/apiconfig"
	"github.com/user/uniapi-stats/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrUnauthorized means the key is not in the credential list.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the key is known but lacks the admin role.
	ErrForbidden = errors.New("forbidden")
)

// DocumentStore is the operator document as the services need it.
// *apiconfig.File implements it.
type DocumentStore interface {
	Load() (*apiconfig.Document, error)
	Raw() (string, error)
	Save(content string) error
}

// AuthService resolves API keys against the credential list. The list is
// re-read on every call.
type AuthService struct {
	docs   DocumentStore
	logger *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(docs DocumentStore, logger *zap.Logger) *AuthService {
	return &AuthService{docs: docs, logger: logger}
}

// Authenticate returns the credential for key, or ErrUnauthorized.
// Document faults (apiconfig.ErrNotFound, ErrInvalid, ErrSyntax) pass through.
func (s *AuthService) Authenticate(key string) (*models.Credential, error) {
	doc, err := s.docs.Load()
	if err != nil {
		return nil, err
	}
	return s.lookup(doc, key)
}

// ResolveRole returns the role bound to key.
func (s *AuthService) ResolveRole(key string) (models.Role, error) {
	cred, err := s.Authenticate(key)
	if err != nil {
		return "", err
	}
	return cred.Role, nil
}

// RequireAdmin returns the credential for key if it is an admin.
func (s *AuthService) RequireAdmin(key string) (*models.Credential, error) {
	cred, err := s.Authenticate(key)
	if err != nil {
		return nil, err
	}
	if !cred.IsAdmin() {
		s.logger.Warn("admin operation refused", zap.String("key", MaskKey(key)))
		return nil, ErrForbidden
	}
	return cred, nil
}

// AvailableKeys lists every credential entry. Admin only.
func (s *AuthService) AvailableKeys(adminKey string) ([]models.Credential, error) {
	doc, err := s.docs.Load()
	if err != nil {
		return nil, err
	}
	cred, err := s.lookup(doc, adminKey)
	if err != nil {
		return nil, err
	}
	if !cred.IsAdmin() {
		return nil, ErrForbidden
	}

	keys := make([]models.Credential, len(doc.Credentials))
	copy(keys, doc.Credentials)
	return keys, nil
}

func (s *AuthService) lookup(doc *apiconfig.Document, key string) (*models.Credential, error) {
	cred, ok := doc.Lookup(key)
	if !ok {
		return nil, ErrUnauthorized
	}
	return cred, nil
}

// MaskKey shortens a key for logs.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
