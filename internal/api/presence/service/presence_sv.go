package presenceService

import (
	"VideoPresence/internal/api/presence"
	"VideoPresence/internal/attendance"
	"VideoPresence/internal/entity"
	contextPkg "VideoPresence/pkg/context"
	"VideoPresence/pkg/utils"
	"VideoPresence/pkg/video"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const imageProcessedMessage = "Processing completed. Check JSON file for results."

func (s *presenceService) ProcessVideo(c context.Context, apiKey string, videoPath string, videoName string) (presence.VideoProcessResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	session, id, err := s.newSession(c, attendance.ModeVideo, nil)
	if err != nil {
		return presence.VideoProcessResponse{}, err
	}

	src, err := s.openVideo(c, videoPath)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"video":      videoName,
			"error":      err.Error(),
		}).Warn("Failed to open video")
		return presence.VideoProcessResponse{}, err
	}

	res, err := session.Run(c, src)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": id,
			"error":      err.Error(),
		}).Error("Video session failed")
		return presence.VideoProcessResponse{}, err
	}

	return s.finishVideo(c, res, apiKey, videoName)
}

// finishVideo publishes the duration map and stores the record. The row is
// written exactly once; a failed write removes the published artifact.
func (s *presenceService) finishVideo(c context.Context, res *attendance.Result, apiKey, videoName string) (presence.VideoProcessResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	durations := res.DurationMap()

	jsonFile := s.publishArtifact(c, fmt.Sprintf("presence/video/%s.json", res.SessionID), durations)

	record := entity.VideoResponse{
		ID:        res.SessionID,
		Names:     durations,
		Records:   res.Records,
		Date:      res.FinishedAt,
		VideoName: videoName,
		APIKey:    apiKey,
		JSONFile:  jsonFile,
	}

	if err := s.persist(c, func(client storeClient) error {
		return client.CreateVideoResponse(c, record)
	}); err != nil {
		s.discardArtifact(c, jsonFile)
		return presence.VideoProcessResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id":    requestID,
		"session_id":    res.SessionID,
		"frames_read":   res.FramesRead,
		"frames_failed": res.FramesFailed,
		"present":       res.PresentCount(),
	}).Info("Video attendance recorded")

	return presence.VideoProcessResponse{
		ID:           res.SessionID,
		Results:      res.Records,
		VideoFile:    videoName,
		JSONFile:     jsonFile,
		FrameRate:    res.FrameRate,
		FramesRead:   res.FramesRead,
		FramesFailed: res.FramesFailed,
		PresentCount: res.PresentCount(),
	}, nil
}

func (s *presenceService) ProcessImage(c context.Context, userID string, file *multipart.FileHeader) (presence.ImageProcessResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	if err := s.utils.ValidateImageFile(file); err != nil {
		if errors.Is(err, utils.ErrNoFile) || errors.Is(err, utils.ErrFileTooLarge) {
			return presence.ImageProcessResponse{}, err
		}
		return presence.ImageProcessResponse{}, fmt.Errorf("%w: %v", presence.ErrInvalidImageFile, err)
	}

	data, err := s.utils.ReadFile(file)
	if err != nil {
		return presence.ImageProcessResponse{}, err
	}

	src, err := video.NewImageSource(data)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"file_name":  file.Filename,
			"error":      err.Error(),
		}).Warn("Uploaded image could not be decoded")
		return presence.ImageProcessResponse{}, err
	}

	session, id, err := s.newSession(c, attendance.ModeImage, nil)
	if err != nil {
		return presence.ImageProcessResponse{}, err
	}

	res, err := session.Run(c, src)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": id,
			"error":      err.Error(),
		}).Error("Image session failed")
		return presence.ImageProcessResponse{}, err
	}

	jsonFile := s.publishArtifact(c, fmt.Sprintf("presence/image/%s.json", id), res.DurationMap())
	imageFile := s.publishUpload(c, "presence/image", file)
	annotatedFile := s.publishAnnotated(c, fmt.Sprintf("presence/image/%s_boxes.jpg", id), data, res, session.Roster())

	record := entity.ImageResponse{
		ID:            id,
		UserID:        userID,
		Names:         res.Records,
		Date:          res.FinishedAt,
		JSONFile:      jsonFile,
		AnnotatedFile: annotatedFile,
	}

	if err := s.persist(c, func(client storeClient) error {
		return client.CreateImageResponse(c, record)
	}); err != nil {
		s.discardArtifact(c, jsonFile)
		s.discardArtifact(c, imageFile)
		s.discardArtifact(c, annotatedFile)
		return presence.ImageProcessResponse{}, err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"session_id": id,
		"user_id":    userID,
		"present":    res.PresentCount(),
	}).Info("Image attendance recorded")

	return presence.ImageProcessResponse{
		ID:             id,
		Message:        imageProcessedMessage,
		Results:        res.Records,
		JSONFile:       jsonFile,
		ImageFile:      imageFile,
		ImageWithBoxes: annotatedFile,
	}, nil
}

func (s *presenceService) LatestJSONFile(c context.Context, userID string) (presence.FileDownloadResponse, error) {
	return s.latestFile(c, userID, "json_file", presence.ErrArtifactNotFound, func(r entity.ImageResponse) string {
		return r.JSONFile
	})
}

func (s *presenceService) LatestImageFile(c context.Context, userID string) (presence.FileDownloadResponse, error) {
	return s.latestFile(c, userID, "annotated_file", presence.ErrAnnotatedNotFound, func(r entity.ImageResponse) string {
		return r.AnnotatedFile
	})
}

// latestFile presigns one stored file of the user's most recent image
// response. A missing file or a presign failure is reported as notFound.
func (s *presenceService) latestFile(c context.Context, userID, field string, notFound error, pick func(entity.ImageResponse) string) (presence.FileDownloadResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return presence.FileDownloadResponse{}, err
	}

	latest, err := repo.Responses.GetLatestImageResponse(c, userID)
	if err != nil {
		return presence.FileDownloadResponse{}, err
	}

	location := pick(latest)
	if location == "" || s.s3Client == nil {
		return presence.FileDownloadResponse{}, notFound
	}

	link, err := s.s3Client.PresignUrl(location)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			field:        location,
			"error":      err.Error(),
		}).Warn("Failed to presign stored file")
		return presence.FileDownloadResponse{}, fmt.Errorf("%w: %v", notFound, err)
	}

	return presence.FileDownloadResponse{
		DownloadLink: link,
		Description:  fmt.Sprintf("attendance of %s", latest.Date.Format(time.RFC3339)),
	}, nil
}

func (s *presenceService) AllVideoResponses(c context.Context) ([]entity.VideoResponse, error) {
	repo, err := s.repo.NewClient(false)
	if err != nil {
		return nil, err
	}
	return repo.Responses.GetAllVideoResponses(c)
}

func (s *presenceService) VideoResponsesByAPIKey(c context.Context, apiKey string) ([]entity.VideoResponse, error) {
	repo, err := s.repo.NewClient(false)
	if err != nil {
		return nil, err
	}
	return repo.Responses.GetVideoResponsesByAPIKey(c, apiKey)
}

// newSession loads the roster fresh so edits to the roster file apply to the
// next request.
func (s *presenceService) newSession(c context.Context, mode attendance.Mode, onFrame attendance.FrameHook) (*attendance.Session, string, error) {
	requestID := contextPkg.GetRequestID(c)

	roster, err := attendance.LoadRoster(s.cfg.RosterPath)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"roster_path": s.cfg.RosterPath,
			"error":       err.Error(),
		}).Error("Failed to load roster")
		return nil, "", err
	}

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return nil, "", err
	}

	session, err := attendance.NewSession(attendance.SessionConfig{
		ID:           id,
		Mode:         mode,
		Roster:       roster,
		Detector:     s.detector,
		Lookup:       s.lookup,
		FrameTimeout: s.cfg.FrameTimeout,
		Workers:      s.cfg.Workers,
		Logger:       s.log,
		OnFrame:      onFrame,
	})
	if err != nil {
		return nil, "", err
	}

	return session, id, nil
}

type storeClient interface {
	CreateVideoResponse(c context.Context, res entity.VideoResponse) error
	CreateImageResponse(c context.Context, res entity.ImageResponse) error
}

func (s *presenceService) persist(c context.Context, write func(storeClient) error) error {
	requestID := contextPkg.GetRequestID(c)

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return err
	}

	if err := write(repo.Responses); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to store attendance response")
		return err
	}

	return nil
}

// publishArtifact uploads the JSON artifact and returns its location. Upload
// failures leave the location empty; the attendance record is still kept.
func (s *presenceService) publishArtifact(c context.Context, key string, artifact map[string]string) string {
	if s.s3Client == nil {
		return ""
	}
	requestID := contextPkg.GetRequestID(c)

	body, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(artifact)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode artifact")
		return ""
	}

	location, err := s.s3Client.PutObject(c, key, body, "application/json")
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"key":        key,
			"error":      err.Error(),
		}).Warn("Failed to upload artifact")
		return ""
	}

	return location
}

func (s *presenceService) publishUpload(c context.Context, prefix string, file *multipart.FileHeader) string {
	if s.s3Client == nil {
		return ""
	}

	location, err := s.s3Client.UploadFile(c, prefix, file)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"file_name":  file.Filename,
			"error":      err.Error(),
		}).Warn("Failed to upload source image")
		return ""
	}

	return location
}

// publishAnnotated uploads the image with its detection boxes drawn on. Like
// the JSON artifact, a failure only leaves the location empty.
func (s *presenceService) publishAnnotated(c context.Context, key string, data []byte, res *attendance.Result, roster attendance.Roster) string {
	if s.s3Client == nil {
		return ""
	}
	requestID := contextPkg.GetRequestID(c)

	body, err := video.Annotate(data, res.Detections, roster.Labels())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": res.SessionID,
			"error":      err.Error(),
		}).Warn("Failed to draw detection boxes")
		return ""
	}

	location, err := s.s3Client.PutObject(c, key, body, "image/jpeg")
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"key":        key,
			"error":      err.Error(),
		}).Warn("Failed to upload annotated image")
		return ""
	}

	return location
}

func (s *presenceService) discardArtifact(c context.Context, location string) {
	if location == "" || s.s3Client == nil {
		return
	}
	if err := s.s3Client.DeleteFile(location); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"location":   location,
			"error":      err.Error(),
		}).Warn("Failed to remove orphaned artifact")
	}
}
