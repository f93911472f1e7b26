package jwtPkg

import (
	"VideoPresence/internal/entity"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenSecret  = "JWT_ACCESS_TOKEN_SECRET"
	RefreshTokenSecret = "JWT_REFRESH_TOKEN_SECRET"
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

func Sign(Data map[string]interface{}, ExpiredAt time.Duration) (string, int64, error) {
	return SignWithSecret(Data, ExpiredAt, AccessTokenSecret)
}

func SignRefresh(Data map[string]interface{}, ExpiredAt time.Duration) (string, int64, error) {
	return SignWithSecret(Data, ExpiredAt, RefreshTokenSecret)
}

func SignWithSecret(Data map[string]interface{}, ExpiredAt time.Duration, secretEnvKey string) (string, int64, error) {
	expiredAt := time.Now().Add(ExpiredAt).Unix()

	JWTSecretKey := os.Getenv(secretEnvKey)
	if JWTSecretKey == "" {
		return "", 0, fmt.Errorf("%s not set", secretEnvKey)
	}

	claims := jwt.MapClaims{}
	claims["exp"] = expiredAt
	claims["authorization"] = true

	for i, v := range Data {
		claims[i] = v
	}

	to := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := to.SignedString([]byte(JWTSecretKey))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return token, expiredAt, nil
}

// VerifyTokenHeader reads the bearer token from the Authorization header and
// falls back to the access_token cookie.
func VerifyTokenHeader(c *fiber.Ctx, secretEnvKey string) (*jwt.Token, error) {
	log := logrus.WithField("func", "VerifyTokenHeader")

	var accessToken string
	if header := c.Get("Authorization"); header != "" {
		parts := strings.Split(header, "Bearer ")
		if len(parts) != 2 {
			log.WithField("header_parts", len(parts)).Warn("Invalid Authorization format")
			return nil, errors.New("invalid Authorization format")
		}
		accessToken = strings.TrimSpace(parts[1])
	} else {
		accessToken = c.Cookies(AccessTokenCookie)
	}

	if accessToken == "" {
		return nil, errors.New("empty token")
	}

	return VerifyToken(accessToken, secretEnvKey)
}

func VerifyToken(tokenString string, secretEnvKey string) (*jwt.Token, error) {
	JWTSecretKey := os.Getenv(secretEnvKey)
	if JWTSecretKey == "" {
		logrus.WithField("secret", secretEnvKey).Error("JWT secret environment variable not set")
		return nil, errors.New("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(JWTSecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

func UserFromToken(token *jwt.Token) (entity.UserLoginData, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return entity.UserLoginData{}, errors.New("invalid token claims")
	}

	id, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	username, _ := claims["username"].(string)
	if id == "" || email == "" || username == "" {
		return entity.UserLoginData{}, errors.New("token claims are missing required fields")
	}

	return entity.UserLoginData{
		ID:       id,
		Email:    email,
		Username: username,
	}, nil
}

func GetUserLoginData(c *fiber.Ctx) (entity.UserLoginData, error) {
	user, ok := c.Locals("user").(entity.UserLoginData)
	if !ok {
		return entity.UserLoginData{}, fiber.ErrUnauthorized
	}

	return user, nil
}
