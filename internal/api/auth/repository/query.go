package authRepository

const (
	queryCreateUser = `
INSERT INTO users (id, username, email, phone_number, password, department, role, is_verified, created_at)
VALUES (:id, :username, :email, :phone_number, :password, :department, :role, :is_verified, :created_at)`

	querySelectUser = `
SELECT id, username, email, phone_number, password, department, role, is_verified, created_at, updated_at
FROM users`

	queryGetByID = querySelectUser + `
    WHERE id = :id`

	queryGetByUsername = querySelectUser + `
    WHERE username = :username`

	queryGetByEmail = querySelectUser + `
    WHERE email = :email`

	queryGetByPhoneNumber = querySelectUser + `
    WHERE phone_number = :phone_number`

	queryGetAll = querySelectUser + `
ORDER BY created_at`

	queryUpdateUser = `
UPDATE users
SET username = :username,
    email = :email,
    phone_number = :phone_number,
    is_verified = :is_verified,
    updated_at = :updated_at
WHERE id = :id`

	queryUpdateUserPassword = `
UPDATE users
SET password = :password, updated_at = :updated_at
WHERE id = :id`

	queryVerifyUserByEmail = `
UPDATE users
SET is_verified = TRUE, updated_at = :updated_at
WHERE email = :email`

	queryDeleteUser = `
DELETE FROM users
WHERE id = :id`
)
