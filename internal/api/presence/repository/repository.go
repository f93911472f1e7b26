package presenceRepository

import (
	"VideoPresence/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

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
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Responses: &responseRepository{q: sqlExecutor, log: r.log},
		Commit:    commitFunc,
		Rollback:  rollbackFunc,
	}, nil
}

type ResponseStore interface {
	CreateVideoResponse(c context.Context, res entity.VideoResponse) error
	CreateImageResponse(c context.Context, res entity.ImageResponse) error
	GetAllVideoResponses(c context.Context) ([]entity.VideoResponse, error)
	GetVideoResponsesByAPIKey(c context.Context, apiKey string) ([]entity.VideoResponse, error)
	GetLatestImageResponse(c context.Context, userID string) (entity.ImageResponse, error)
}

type Client struct {
	Responses ResponseStore

	Commit   func() error
	Rollback func() error
}

type responseRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
