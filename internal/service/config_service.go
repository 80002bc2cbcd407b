package service

import (
	"errors"
	"fmt"

	"github.com/user/uniapi-stats/internal/apiconfig"
	"github.com/user/uniapi-stats/internal/models"
	"go.uber.org/zap"
)

// ErrRejectedDocument wraps parse failures of a document submitted for save,
// as opposed to faults in the document already on disk.
var ErrRejectedDocument = errors.New("submitted document rejected")

// ConfigService backs the config editor and the provider catalog.
type ConfigService struct {
	docs   DocumentStore
	auth   *AuthService
	logger *zap.Logger
}

// NewConfigService creates a new ConfigService.
func NewConfigService(docs DocumentStore, auth *AuthService, logger *zap.Logger) *ConfigService {
	return &ConfigService{docs: docs, auth: auth, logger: logger}
}

// LoadRaw returns the document text for an admin.
func (s *ConfigService) LoadRaw(apiKey string) (string, error) {
	if _, err := s.auth.RequireAdmin(apiKey); err != nil {
		return "", err
	}
	return s.docs.Raw()
}

// Save replaces the document for an admin. The admin check runs against the
// document being replaced.
func (s *ConfigService) Save(apiKey, content string) error {
	cred, err := s.auth.RequireAdmin(apiKey)
	if err != nil {
		return err
	}
	if err := s.docs.Save(content); err != nil {
		if errors.Is(err, apiconfig.ErrSyntax) || errors.Is(err, apiconfig.ErrInvalid) {
			return fmt.Errorf("%w: %w", ErrRejectedDocument, err)
		}
		return err
	}
	s.logger.Info("config replaced", zap.String("by", cred.Name), zap.String("key", MaskKey(apiKey)))
	return nil
}

// Providers returns the provider catalog to any known key.
func (s *ConfigService) Providers(apiKey string) ([]models.ProviderInfo, error) {
	doc, err := s.docs.Load()
	if err != nil {
		return nil, err
	}
	if _, ok := doc.Lookup(apiKey); !ok {
		return nil, ErrUnauthorized
	}
	return doc.Providers, nil
}
