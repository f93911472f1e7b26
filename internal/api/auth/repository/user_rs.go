package authRepository

import (
	"VideoPresence/internal/api/auth"
	"VideoPresence/internal/entity"
	contextPkg "VideoPresence/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type UserDB struct {
	ID          sql.NullString `db:"id"`
	Username    sql.NullString `db:"username"`
	Email       sql.NullString `db:"email"`
	PhoneNumber sql.NullString `db:"phone_number"`
	Password    sql.NullString `db:"password"`
	Department  sql.NullString `db:"department"`
	Role        sql.NullString `db:"role"`
	IsVerified  bool           `db:"is_verified"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at"`
}

func (r *userRepository) CreateUser(c context.Context, user entity.User) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"phone_number": user.PhoneNumber,
		"password":     user.Password,
		"department":   user.Department,
		"role":         user.Role,
		"is_verified":  user.IsVerified,
		"created_at":   time.Now(),
	}

	query, args, err := sqlx.Named(queryCreateUser, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateUser")
		return err
	}
	query = r.q.Rebind(query)

	if _, err = r.q.ExecContext(c, query, args...); err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("CreateUser unique constraint violated")
			return conflict
		}

		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating user")
		return err
	}

	return nil
}

func (r *userRepository) GetByID(c context.Context, id string) (entity.User, error) {
	return r.getOne(c, "GetByID", queryGetByID, map[string]interface{}{"id": id})
}

func (r *userRepository) GetByUsername(c context.Context, username string) (entity.User, error) {
	return r.getOne(c, "GetByUsername", queryGetByUsername, map[string]interface{}{"username": username})
}

func (r *userRepository) GetByEmail(c context.Context, email string) (entity.User, error) {
	return r.getOne(c, "GetByEmail", queryGetByEmail, map[string]interface{}{"email": email})
}

func (r *userRepository) GetByPhoneNumber(c context.Context, phoneNumber string) (entity.User, error) {
	return r.getOne(c, "GetByPhoneNumber", queryGetByPhoneNumber, map[string]interface{}{"phone_number": phoneNumber})
}

func (r *userRepository) getOne(c context.Context, op, namedQuery string, argsKV map[string]interface{}) (entity.User, error) {
	requestID := contextPkg.GetRequestID(c)
	var user UserDB

	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " named query preparation err")
		return entity.User{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Debug(op + " no rows found")
			return entity.User{}, auth.ErrUserNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " execution err")
		return entity.User{}, err
	}

	return r.makeUser(user), nil
}

func (r *userRepository) GetAll(c context.Context) ([]entity.User, error) {
	requestID := contextPkg.GetRequestID(c)

	rows, err := r.q.QueryxContext(c, queryGetAll)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAll execution err")
		return nil, err
	}
	defer rows.Close()

	users := make([]entity.User, 0)
	for rows.Next() {
		var user UserDB
		if err := rows.StructScan(&user); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("GetAll scan err")
			return nil, err
		}
		users = append(users, r.makeUser(user))
	}

	return users, rows.Err()
}

func (r *userRepository) UpdateUser(c context.Context, user entity.User) error {
	argsKV := map[string]interface{}{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"phone_number": user.PhoneNumber,
		"is_verified":  user.IsVerified,
		"updated_at":   time.Now(),
	}

	return r.execAffecting(c, "UpdateUser", queryUpdateUser, argsKV, auth.ErrUserNotFound)
}

func (r *userRepository) UpdateUserPassword(c context.Context, id string, password string) error {
	argsKV := map[string]interface{}{
		"id":         id,
		"password":   password,
		"updated_at": time.Now(),
	}

	return r.execAffecting(c, "UpdateUserPassword", queryUpdateUserPassword, argsKV, auth.ErrUserNotFound)
}

func (r *userRepository) VerifyUserByEmail(c context.Context, email string) error {
	argsKV := map[string]interface{}{
		"email":      email,
		"updated_at": time.Now(),
	}

	return r.execAffecting(c, "VerifyUserByEmail", queryVerifyUserByEmail, argsKV, auth.ErrInvalidVerificationCode)
}

func (r *userRepository) DeleteUser(c context.Context, id string) error {
	return r.execAffecting(c, "DeleteUser", queryDeleteUser, map[string]interface{}{"id": id}, auth.ErrUserNotFound)
}

// execAffecting runs a write that must touch at least one row, returning
// notFound otherwise.
func (r *userRepository) execAffecting(c context.Context, op, namedQuery string, argsKV map[string]interface{}, notFound error) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " named query preparation err")
		return err
	}

	query = r.q.Rebind(query)

	res, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn(op + " unique constraint violated")
			return conflict
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " execution err")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
		}).Warn(op + " no rows affected")
		return notFound
	}

	return nil
}

func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}

	switch pqErr.Constraint {
	case "users_username_key":
		return auth.ErrUsernameAlreadyExists
	case "users_email_key":
		return auth.ErrEmailAlreadyExists
	case "users_phone_number_key":
		return auth.ErrPhoneNumberAlreadyExists
	}
	return nil
}

func (r *userRepository) makeUser(user UserDB) entity.User {
	return entity.User{
		ID:          user.ID.String,
		Username:    user.Username.String,
		Email:       user.Email.String,
		PhoneNumber: user.PhoneNumber.String,
		Password:    user.Password.String,
		Department:  user.Department.String,
		Role:        user.Role.String,
		IsVerified:  user.IsVerified,
		CreatedAt:   user.CreatedAt.Time,
		UpdatedAt:   user.UpdatedAt.Time,
	}
}
