package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrCodeNotFound = errors.New("verification code not found or expired")

const verificationPrefix = "verification:"

type IRedis interface {
	SetVerificationCode(ctx context.Context, email string, code string, expiration time.Duration) error
	GetVerificationCode(ctx context.Context, email string) (string, error)
	DeleteVerificationCode(ctx context.Context, email string) error
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return NewWithClient(client)
}

func NewWithClient(client *redis.Client) IRedis {
	return &redisClient{client: client}
}

func verificationKey(email string) string {
	return verificationPrefix + email
}

func (r *redisClient) SetVerificationCode(ctx context.Context, email string, code string, expiration time.Duration) error {
	key := verificationKey(email)
	logrus.Debug(fmt.Sprintf("Setting verification code for key %s with expiration %v", key, expiration))
	if err := r.client.Set(ctx, key, code, expiration).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error setting verification code for key %s: %v", key, err))
		return err
	}
	return nil
}

func (r *redisClient) GetVerificationCode(ctx context.Context, email string) (string, error) {
	key := verificationKey(email)
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		logrus.Debug(fmt.Sprintf("Verification code not found for key %s", key))
		return "", ErrCodeNotFound
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting verification code for key %s: %v", key, err))
		return "", err
	}
	return val, nil
}

func (r *redisClient) DeleteVerificationCode(ctx context.Context, email string) error {
	key := verificationKey(email)
	result, err := r.client.Del(ctx, key).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error deleting verification code for key %s: %v", key, err))
		return err
	}

	if result == 0 {
		logrus.Debug(fmt.Sprintf("Verification code key %s not found for deletion", key))
	}

	return nil
}
