package adminService

import (
	"VideoPresence/internal/api/admin"
	adminRepository "VideoPresence/internal/api/admin/repository"
	"strings"

	"golang.org/x/net/context"
)

// APIKeyVerifier checks keys against the api_keys table. The middleware needs
// it before the rest of the admin service can be assembled.
type APIKeyVerifier struct {
	repo adminRepository.Repository
}

func NewAPIKeyVerifier(repo adminRepository.Repository) *APIKeyVerifier {
	return &APIKeyVerifier{repo: repo}
}

func (v *APIKeyVerifier) VerifyAPIKey(c context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return admin.ErrInvalidAPIKey
	}

	repo, err := v.repo.NewClient(false)
	if err != nil {
		return err
	}

	if _, err := repo.APIKeys.GetByValue(c, key); err != nil {
		return err
	}

	return nil
}
