package adminRepository

const (
	queryCreateAPIKey = `
INSERT INTO api_keys (id, value, created_at)
VALUES (:id, :value, :created_at)`

	queryGetAPIKeyByValue = `
SELECT id, value, created_at
FROM api_keys
WHERE value = :value`
)
