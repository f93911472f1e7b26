package adminService

import (
	"VideoPresence/internal/api/admin"
	"VideoPresence/internal/api/auth"
	"VideoPresence/internal/entity"
	contextPkg "VideoPresence/pkg/context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *adminService) GenerateAPIKey(c context.Context) (admin.APIKeyResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return admin.APIKeyResponse{}, err
	}

	for attempt := 1; ; attempt++ {
		id, err := s.utils.NewULIDFromTimestamp(time.Now())
		if err != nil {
			return admin.APIKeyResponse{}, err
		}

		key := entity.APIKey{
			ID:        id,
			Value:     s.utils.NewAPIKey(),
			CreatedAt: time.Now(),
		}

		err = repo.APIKeys.CreateAPIKey(c, key)
		if err == nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"key_id":     key.ID,
			}).Info("API key generated")
			return admin.APIKeyResponse{APIKey: key.Value, Status: "success"}, nil
		}

		if !errors.Is(err, admin.ErrAPIKeyCollision) || attempt >= apiKeyAttempts {
			return admin.APIKeyResponse{}, err
		}
	}
}

func (s *adminService) VerifyAPIKey(c context.Context, key string) error {
	return s.verifier.VerifyAPIKey(c, key)
}

func (s *adminService) AllUsers(c context.Context) (admin.UsersResponse, error) {
	users, err := s.users.GetAll(c)
	if err != nil {
		return admin.UsersResponse{}, err
	}
	if users == nil {
		users = []auth.UserResponse{}
	}
	return admin.UsersResponse{Users: users, Total: len(users)}, nil
}

func (s *adminService) AllResponses(c context.Context) (admin.ResponsesResponse, error) {
	responses, err := s.responses.AllVideoResponses(c)
	if err != nil {
		return admin.ResponsesResponse{}, err
	}
	return makeResponses(responses), nil
}

func (s *adminService) ResponsesByAPIKey(c context.Context, apiKey string) (admin.ResponsesResponse, error) {
	if apiKey == "" {
		return admin.ResponsesResponse{}, admin.ErrInvalidAPIKey
	}

	responses, err := s.responses.VideoResponsesByAPIKey(c, apiKey)
	if err != nil {
		return admin.ResponsesResponse{}, err
	}
	return makeResponses(responses), nil
}

func makeResponses(responses []entity.VideoResponse) admin.ResponsesResponse {
	if responses == nil {
		responses = []entity.VideoResponse{}
	}
	return admin.ResponsesResponse{Responses: responses, Total: len(responses)}
}
