package authService

import (
	"VideoPresence/internal/api/auth"
	authRepository "VideoPresence/internal/api/auth/repository"
	"VideoPresence/internal/entity"
	"VideoPresence/pkg/bcrypt"
	"VideoPresence/pkg/redis"
	"VideoPresence/pkg/smtp"
	"VideoPresence/pkg/utils"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	accessTokenTTL      = time.Hour
	refreshTokenTTL     = 7 * 24 * time.Hour
	verificationCodeTTL = 24 * time.Hour
)

type AuthService interface {
	User() UserDomain
	Auth() AuthDomain
	Password() PasswordDomain
	GetRepository() authRepository.Repository
}

type UserDomain interface {
	RegisterUser(c context.Context, req auth.RegisterRequest) (auth.UserResponse, error)
	GetByID(c context.Context, id string) (auth.UserResponse, error)
	GetAll(c context.Context) ([]auth.UserResponse, error)
	UpdateUser(c context.Context, user entity.UserLoginData, req auth.UpdateUserRequest) (auth.UserResponse, bool, error)
	DeleteUser(c context.Context, user entity.UserLoginData) error
}

type AuthDomain interface {
	VerifyEmail(c context.Context, req auth.VerifyEmailRequest) error
	Login(c context.Context, req auth.LoginRequest) (auth.LoginResponse, error)
	Refresh(c context.Context, refreshToken string) (auth.RefreshResponse, error)
}

type PasswordDomain interface {
	ChangePassword(c context.Context, userID string, req auth.ChangePasswordRequest) error
}

type authService struct {
	log            *logrus.Logger
	authRepository authRepository.Repository

	userDomain     UserDomain
	authDomain     AuthDomain
	passwordDomain PasswordDomain
}

func (a *authService) User() UserDomain {
	return a.userDomain
}

func (a *authService) Auth() AuthDomain {
	return a.authDomain
}

func (a *authService) Password() PasswordDomain {
	return a.passwordDomain
}

func (a *authService) GetRepository() authRepository.Repository {
	return a.authRepository
}

type userDomainImpl struct {
	log         *logrus.Logger
	repo        authRepository.Repository
	redisServer redis.IRedis
	smtpMailer  smtp.ItfSmtp
	bcryptUtils bcrypt.IBcrypt
	utils       utils.IUtils
}

type authDomainImpl struct {
	log         *logrus.Logger
	repo        authRepository.Repository
	redisServer redis.IRedis
	bcryptUtils bcrypt.IBcrypt
}

type passwordDomainImpl struct {
	log         *logrus.Logger
	repo        authRepository.Repository
	bcryptUtils bcrypt.IBcrypt
}

func New(log *logrus.Logger,
	authRepo authRepository.Repository,
	smtpMailer smtp.ItfSmtp,
	redisServer redis.IRedis,
	bcryptUtils bcrypt.IBcrypt,
	utils utils.IUtils,
) AuthService {
	return &authService{
		log:            log,
		authRepository: authRepo,

		userDomain:     &userDomainImpl{log: log, repo: authRepo, redisServer: redisServer, smtpMailer: smtpMailer, bcryptUtils: bcryptUtils, utils: utils},
		authDomain:     &authDomainImpl{log: log, repo: authRepo, redisServer: redisServer, bcryptUtils: bcryptUtils},
		passwordDomain: &passwordDomainImpl{log: log, repo: authRepo, bcryptUtils: bcryptUtils},
	}
}
