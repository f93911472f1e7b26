package authService

import (
	"VideoPresence/internal/api/auth"
	contextPkg "VideoPresence/pkg/context"
	jwtPkg "VideoPresence/pkg/jwt"
	"VideoPresence/pkg/redis"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *authDomainImpl) VerifyEmail(c context.Context, req auth.VerifyEmailRequest) error {
	requestID := contextPkg.GetRequestID(c)
	email := normalizeEmail(req.Email)

	storedCode, err := s.redisServer.GetVerificationCode(c, email)
	if err != nil {
		if errors.Is(err, redis.ErrCodeNotFound) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"email":      email,
			}).Warn("No verification code pending")
			return auth.ErrInvalidVerificationCode
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to get verification code from Redis")
		return err
	}

	if storedCode != req.VerificationCode {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"email":      email,
		}).Warn("Invalid verification code")
		return auth.ErrInvalidVerificationCode
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return err
	}

	if err := repo.Users.VerifyUserByEmail(c, email); err != nil {
		return err
	}

	if err := s.redisServer.DeleteVerificationCode(c, email); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to delete used verification code")
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"email":      email,
	}).Info("Email verified")

	return nil
}

func (s *authDomainImpl) Login(c context.Context, req auth.LoginRequest) (auth.LoginResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return auth.LoginResponse{}, err
	}

	user, err := repo.Users.GetByUsername(c, req.Username)
	if err != nil {
		return auth.LoginResponse{}, err
	}

	if user.Email != normalizeEmail(req.Email) {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"username":   req.Username,
		}).Warn("Login email does not match username")
		return auth.LoginResponse{}, auth.ErrUserNotFound
	}

	if !user.IsVerified {
		return auth.LoginResponse{}, auth.ErrEmailNotVerified
	}

	if err := s.bcryptUtils.ComparePassword(user.Password, req.Password); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Password comparison failed")
		return auth.LoginResponse{}, auth.ErrIncorrectPassword
	}

	userData := MakeUserData(user)

	token, expired, err := jwtPkg.Sign(userData, accessTokenTTL)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to sign token")
		return auth.LoginResponse{}, err
	}

	refreshToken, _, err := jwtPkg.SignRefresh(userData, refreshTokenTTL)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to sign refresh token")
		return auth.LoginResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    user.ID,
	}).Info("Token created")

	return auth.LoginResponse{
		Status:       "success",
		AccessToken:  token,
		RefreshToken: refreshToken,
		ExpiresAt:    expired,
	}, nil
}

func (s *authDomainImpl) Refresh(c context.Context, refreshToken string) (auth.RefreshResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	if refreshToken == "" {
		return auth.RefreshResponse{}, auth.ErrMissingRefreshToken
	}

	token, err := jwtPkg.VerifyToken(refreshToken, jwtPkg.RefreshTokenSecret)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Refresh token rejected")
		return auth.RefreshResponse{}, auth.ErrInvalidRefreshToken
	}

	login, err := jwtPkg.UserFromToken(token)
	if err != nil {
		return auth.RefreshResponse{}, auth.ErrInvalidRefreshToken
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return auth.RefreshResponse{}, err
	}

	user, err := repo.Users.GetByID(c, login.ID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return auth.RefreshResponse{}, auth.ErrInvalidRefreshToken
		}
		return auth.RefreshResponse{}, err
	}

	accessToken, expired, err := jwtPkg.Sign(MakeUserData(user), accessTokenTTL)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to sign token")
		return auth.RefreshResponse{}, err
	}

	return auth.RefreshResponse{AccessToken: accessToken, ExpiresAt: expired}, nil
}
