package adminRepository

import (
	"VideoPresence/internal/api/admin"
	"VideoPresence/internal/entity"
	contextPkg "VideoPresence/pkg/context"
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type APIKeyDB struct {
	ID        sql.NullString `db:"id"`
	Value     sql.NullString `db:"value"`
	CreatedAt sql.NullTime   `db:"created_at"`
}

func (r *apiKeyRepository) CreateAPIKey(c context.Context, key entity.APIKey) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":         key.ID,
		"value":      key.Value,
		"created_at": key.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateAPIKey, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateAPIKey")
		return err
	}
	query = r.q.Rebind(query)

	if _, err = r.q.ExecContext(c, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"constraint": pqErr.Constraint,
			}).Warn("CreateAPIKey unique constraint violated")
			return admin.ErrAPIKeyCollision
		}

		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating api key")
		return err
	}

	return nil
}

func (r *apiKeyRepository) GetByValue(c context.Context, value string) (entity.APIKey, error) {
	requestID := contextPkg.GetRequestID(c)
	var row APIKeyDB

	query, args, err := sqlx.Named(queryGetAPIKeyByValue, map[string]interface{}{"value": value})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByValue named query preparation err")
		return entity.APIKey{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.APIKey{}, admin.ErrInvalidAPIKey
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByValue execution err")
		return entity.APIKey{}, err
	}

	return entity.APIKey{
		ID:        row.ID.String,
		Value:     row.Value.String,
		CreatedAt: row.CreatedAt.Time,
	}, nil
}
