package presenceRepository

const (
	queryCreateVideoResponse = `
INSERT INTO video_responses (id, names, records, date, video_name, api_key, json_file)
VALUES (:id, :names, :records, :date, :video_name, :api_key, :json_file)`

	queryCreateImageResponse = `
INSERT INTO image_responses (id, user_id, names, date, json_file, annotated_file)
VALUES (:id, :user_id, :names, :date, :json_file, :annotated_file)`

	querySelectVideoResponse = `
SELECT id, names, records, date, video_name, api_key, json_file
FROM video_responses`

	queryGetAllVideoResponses = querySelectVideoResponse + `
ORDER BY date DESC`

	queryGetVideoResponsesByAPIKey = querySelectVideoResponse + `
WHERE api_key = :api_key
ORDER BY date DESC`

	queryGetLatestImageResponse = `
SELECT id, user_id, names, date, json_file, annotated_file
FROM image_responses
WHERE user_id = :user_id
ORDER BY date DESC
LIMIT 1`
)
