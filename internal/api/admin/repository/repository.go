package adminRepository

import (
	"VideoPresence/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var db sqlx.ExtContext
	var commitFunc, rollbackFunc func() error

	db = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		db = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		APIKeys:  &apiKeyRepository{q: db, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type APIKeyStore interface {
	CreateAPIKey(c context.Context, key entity.APIKey) error
	GetByValue(c context.Context, value string) (entity.APIKey, error)
}

type Client struct {
	APIKeys APIKeyStore

	Commit   func() error
	Rollback func() error
}

type apiKeyRepository struct {
	q   sqlx.ExtContext
	log *logrus.Logger
}
