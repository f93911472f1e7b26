package adminService

import (
	"VideoPresence/internal/api/admin"
	adminRepository "VideoPresence/internal/api/admin/repository"
	"VideoPresence/internal/api/auth"
	"VideoPresence/internal/entity"
	"VideoPresence/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// apiKeyAttempts bounds retries when a generated key collides with a stored one.
const apiKeyAttempts = 3

type AdminService interface {
	GenerateAPIKey(c context.Context) (admin.APIKeyResponse, error)
	VerifyAPIKey(c context.Context, key string) error
	AllUsers(c context.Context) (admin.UsersResponse, error)
	AllResponses(c context.Context) (admin.ResponsesResponse, error)
	ResponsesByAPIKey(c context.Context, apiKey string) (admin.ResponsesResponse, error)
}

type UserLister interface {
	GetAll(c context.Context) ([]auth.UserResponse, error)
}

type ResponseLister interface {
	AllVideoResponses(c context.Context) ([]entity.VideoResponse, error)
	VideoResponsesByAPIKey(c context.Context, apiKey string) ([]entity.VideoResponse, error)
}

type adminService struct {
	log       *logrus.Logger
	repo      adminRepository.Repository
	users     UserLister
	responses ResponseLister
	utils     utils.IUtils
	verifier  *APIKeyVerifier
}

func New(
	log *logrus.Logger,
	repo adminRepository.Repository,
	users UserLister,
	responses ResponseLister,
	utils utils.IUtils,
) AdminService {
	return &adminService{
		log:       log,
		repo:      repo,
		users:     users,
		responses: responses,
		utils:     utils,
		verifier:  NewAPIKeyVerifier(repo),
	}
}
