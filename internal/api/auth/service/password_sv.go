package authService

import (
	"VideoPresence/internal/api/auth"
	contextPkg "VideoPresence/pkg/context"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *passwordDomainImpl) ChangePassword(c context.Context, userID string, req auth.ChangePasswordRequest) error {
	requestID := contextPkg.GetRequestID(c)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return err
	}

	user, err := repo.Users.GetByID(c, userID)
	if err != nil {
		return err
	}

	if err := s.bcryptUtils.ComparePassword(user.Password, req.OldPassword); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"user_id":    userID,
		}).Warn("Old password does not match")
		return auth.ErrIncorrectOldPassword
	}

	hashedPassword, err := s.bcryptUtils.HashPassword(req.NewPassword)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to hash password")
		return err
	}

	if err := repo.Users.UpdateUserPassword(c, userID, hashedPassword); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to update user password")
		return err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    userID,
	}).Info("Password changed")

	return nil
}
