package authService

import (
	"VideoPresence/internal/api/auth"
	authRepository "VideoPresence/internal/api/auth/repository"
	"VideoPresence/internal/entity"
	contextPkg "VideoPresence/pkg/context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *userDomainImpl) RegisterUser(ctx context.Context, req auth.RegisterRequest) (auth.UserResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	email := normalizeEmail(req.Email)
	if !s.utils.IsValidEmail(email) {
		return auth.UserResponse{}, auth.ErrInvalidEmail
	}
	if !s.utils.IsValidPhoneNumber(req.PhoneNumber) {
		return auth.UserResponse{}, auth.ErrInvalidPhoneNumber
	}

	repo, err := s.repo.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return auth.UserResponse{}, err
	}
	defer repo.Rollback()

	if err := s.ensureAvailable(ctx, repo, "", req.Username, email, req.PhoneNumber); err != nil {
		return auth.UserResponse{}, err
	}

	hashedPassword, err := s.bcryptUtils.HashPassword(req.Password)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to hash password")
		return auth.UserResponse{}, err
	}

	ULID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return auth.UserResponse{}, err
	}

	user := entity.User{
		ID:          ULID,
		Username:    req.Username,
		Email:       email,
		PhoneNumber: req.PhoneNumber,
		Password:    hashedPassword,
		Department:  req.Department,
		Role:        req.Role,
		CreatedAt:   time.Now(),
	}

	if err := repo.Users.CreateUser(ctx, user); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create user")
		return auth.UserResponse{}, err
	}

	if err := s.sendVerification(ctx, email); err != nil {
		return auth.UserResponse{}, err
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit transaction")
		return auth.UserResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    user.ID,
	}).Info("User registered")

	res := MakeUserResponse(user)
	res.Message = "verification email sent"
	return res, nil
}

func (s *userDomainImpl) GetByID(ctx context.Context, id string) (auth.UserResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return auth.UserResponse{}, err
	}

	user, err := repo.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"user_id":    id,
			}).Warn("User not found")
		}
		return auth.UserResponse{}, err
	}

	return MakeUserResponse(user), nil
}

func (s *userDomainImpl) GetAll(ctx context.Context) ([]auth.UserResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return nil, err
	}

	users, err := repo.Users.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]auth.UserResponse, 0, len(users))
	for _, user := range users {
		res = append(res, MakeUserResponse(user))
	}
	return res, nil
}

// UpdateUser applies the changed fields. The bool result reports whether the
// email changed, in which case the account is unverified again and a fresh
// code has been mailed.
func (s *userDomainImpl) UpdateUser(ctx context.Context, login entity.UserLoginData, req auth.UpdateUserRequest) (auth.UserResponse, bool, error) {
	requestID := contextPkg.GetRequestID(ctx)

	email := normalizeEmail(req.Email)
	if !s.utils.IsValidEmail(email) {
		return auth.UserResponse{}, false, auth.ErrInvalidEmail
	}
	if !s.utils.IsValidPhoneNumber(req.PhoneNumber) {
		return auth.UserResponse{}, false, auth.ErrInvalidPhoneNumber
	}

	repo, err := s.repo.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return auth.UserResponse{}, false, err
	}
	defer repo.Rollback()

	user, err := repo.Users.GetByID(ctx, login.ID)
	if err != nil {
		return auth.UserResponse{}, false, err
	}

	if err := s.ensureAvailable(ctx, repo, user.ID, req.Username, email, req.PhoneNumber); err != nil {
		return auth.UserResponse{}, false, err
	}

	emailChanged := email != user.Email
	user.Username = req.Username
	user.Email = email
	user.PhoneNumber = req.PhoneNumber
	if emailChanged {
		user.IsVerified = false
	}

	if err := repo.Users.UpdateUser(ctx, user); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to update user")
		return auth.UserResponse{}, false, err
	}

	if emailChanged {
		if err := s.sendVerification(ctx, email); err != nil {
			return auth.UserResponse{}, false, err
		}
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit transaction")
		return auth.UserResponse{}, false, err
	}

	res := MakeUserResponse(user)
	if emailChanged {
		res.Message = "email changed, verify the new address and log in again"
	}
	return res, emailChanged, nil
}

func (s *userDomainImpl) DeleteUser(ctx context.Context, login entity.UserLoginData) error {
	requestID := contextPkg.GetRequestID(ctx)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return err
	}

	if err := repo.Users.DeleteUser(ctx, login.ID); err != nil {
		return err
	}

	if err := s.redisServer.DeleteVerificationCode(ctx, login.Email); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to drop verification code of deleted user")
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    login.ID,
	}).Info("User deleted")

	return nil
}

// ensureAvailable rejects a username, email or phone number held by any user
// other than selfID.
func (s *userDomainImpl) ensureAvailable(ctx context.Context, repo authRepository.Client, selfID, username, email, phoneNumber string) error {
	checks := []struct {
		get      func(context.Context, string) (entity.User, error)
		value    string
		conflict error
	}{
		{repo.Users.GetByUsername, username, auth.ErrUsernameAlreadyExists},
		{repo.Users.GetByEmail, email, auth.ErrEmailAlreadyExists},
		{repo.Users.GetByPhoneNumber, phoneNumber, auth.ErrPhoneNumberAlreadyExists},
	}

	for _, check := range checks {
		existing, err := check.get(ctx, check.value)
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			continue
		case err != nil:
			return err
		case existing.ID != selfID:
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(ctx),
				"error":      check.conflict.Error(),
			}).Warn("Identity already taken")
			return check.conflict
		}
	}

	return nil
}

func (s *userDomainImpl) sendVerification(ctx context.Context, email string) error {
	requestID := contextPkg.GetRequestID(ctx)

	code, err := s.utils.NewVerificationCode()
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate verification code")
		return err
	}

	if err := s.redisServer.SetVerificationCode(ctx, email, code, verificationCodeTTL); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to store verification code")
		return err
	}

	if err := s.smtpMailer.SendVerificationCode(email, code); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to send verification email")
		return err
	}

	return nil
}
