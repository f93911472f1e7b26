package presenceRepository

import (
	"VideoPresence/internal/api/presence"
	"VideoPresence/internal/attendance"
	"VideoPresence/internal/entity"
	contextPkg "VideoPresence/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type VideoResponseDB struct {
	ID        sql.NullString `db:"id"`
	Names     []byte         `db:"names"`
	Records   []byte         `db:"records"`
	Date      sql.NullTime   `db:"date"`
	VideoName sql.NullString `db:"video_name"`
	APIKey    sql.NullString `db:"api_key"`
	JSONFile  sql.NullString `db:"json_file"`
}

type ImageResponseDB struct {
	ID            sql.NullString `db:"id"`
	UserID        sql.NullString `db:"user_id"`
	Names         []byte         `db:"names"`
	Date          sql.NullTime   `db:"date"`
	JSONFile      sql.NullString `db:"json_file"`
	AnnotatedFile sql.NullString `db:"annotated_file"`
}

func (r *responseRepository) CreateVideoResponse(c context.Context, res entity.VideoResponse) error {
	requestID := contextPkg.GetRequestID(c)

	names, err := jsoniter.MarshalToString(res.Names)
	if err != nil {
		return err
	}
	records, err := jsoniter.MarshalToString(res.Records)
	if err != nil {
		return err
	}

	argsKV := map[string]interface{}{
		"id":         res.ID,
		"names":      names,
		"records":    records,
		"date":       orNow(res.Date),
		"video_name": res.VideoName,
		"api_key":    res.APIKey,
		"json_file":  nullString(res.JSONFile),
	}

	return r.exec(c, requestID, "CreateVideoResponse", queryCreateVideoResponse, argsKV)
}

func (r *responseRepository) CreateImageResponse(c context.Context, res entity.ImageResponse) error {
	requestID := contextPkg.GetRequestID(c)

	names, err := jsoniter.MarshalToString(res.Names)
	if err != nil {
		return err
	}

	argsKV := map[string]interface{}{
		"id":             res.ID,
		"user_id":        res.UserID,
		"names":          names,
		"date":           orNow(res.Date),
		"json_file":      nullString(res.JSONFile),
		"annotated_file": nullString(res.AnnotatedFile),
	}

	return r.exec(c, requestID, "CreateImageResponse", queryCreateImageResponse, argsKV)
}

func (r *responseRepository) exec(c context.Context, requestID, op, namedQuery string, argsKV map[string]interface{}) error {
	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for " + op)
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error in " + op)
		return err
	}

	return nil
}

func (r *responseRepository) GetAllVideoResponses(c context.Context) ([]entity.VideoResponse, error) {
	return r.selectVideoResponses(c, "GetAllVideoResponses", queryGetAllVideoResponses, map[string]interface{}{})
}

func (r *responseRepository) GetVideoResponsesByAPIKey(c context.Context, apiKey string) ([]entity.VideoResponse, error) {
	return r.selectVideoResponses(c, "GetVideoResponsesByAPIKey", queryGetVideoResponsesByAPIKey, map[string]interface{}{"api_key": apiKey})
}

func (r *responseRepository) selectVideoResponses(c context.Context, op, namedQuery string, argsKV map[string]interface{}) ([]entity.VideoResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	var rows []VideoResponseDB

	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " execution err")
		return nil, err
	}

	result := make([]entity.VideoResponse, 0, len(rows))
	for _, row := range rows {
		res, err := r.makeVideoResponse(row)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"id":         row.ID.String,
				"error":      err.Error(),
			}).Error(op + " decode err")
			return nil, err
		}
		result = append(result, res)
	}

	return result, nil
}

func (r *responseRepository) GetLatestImageResponse(c context.Context, userID string) (entity.ImageResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	var row ImageResponseDB

	query, args, err := sqlx.Named(queryGetLatestImageResponse, map[string]interface{}{"user_id": userID})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetLatestImageResponse named query preparation err")
		return entity.ImageResponse{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"user_id":    userID,
			}).Debug("GetLatestImageResponse no rows found")
			return entity.ImageResponse{}, presence.ErrResponseNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetLatestImageResponse execution err")
		return entity.ImageResponse{}, err
	}

	return r.makeImageResponse(row)
}

func (r *responseRepository) makeVideoResponse(row VideoResponseDB) (entity.VideoResponse, error) {
	res := entity.VideoResponse{
		ID:        row.ID.String,
		Date:      row.Date.Time,
		VideoName: row.VideoName.String,
		APIKey:    row.APIKey.String,
		JSONFile:  row.JSONFile.String,
	}

	if err := jsoniter.Unmarshal(row.Names, &res.Names); err != nil {
		return entity.VideoResponse{}, err
	}
	if len(row.Records) > 0 {
		var records []attendance.Record
		if err := jsoniter.Unmarshal(row.Records, &records); err != nil {
			return entity.VideoResponse{}, err
		}
		res.Records = records
	}

	return res, nil
}

func (r *responseRepository) makeImageResponse(row ImageResponseDB) (entity.ImageResponse, error) {
	res := entity.ImageResponse{
		ID:            row.ID.String,
		UserID:        row.UserID.String,
		Date:          row.Date.Time,
		JSONFile:      row.JSONFile.String,
		AnnotatedFile: row.AnnotatedFile.String,
	}

	if err := jsoniter.Unmarshal(row.Names, &res.Names); err != nil {
		return entity.ImageResponse{}, err
	}

	return res, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
