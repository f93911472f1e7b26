package presenceService

import (
	"VideoPresence/internal/api/presence"
	presenceRepository "VideoPresence/internal/api/presence/repository"
	"VideoPresence/internal/attendance"
	"VideoPresence/internal/entity"
	"VideoPresence/pkg/s3"
	"VideoPresence/pkg/utils"
	"VideoPresence/pkg/video"
	"mime/multipart"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type PresenceService interface {
	ProcessVideo(c context.Context, apiKey string, videoPath string, videoName string) (presence.VideoProcessResponse, error)
	ProcessImage(c context.Context, userID string, file *multipart.FileHeader) (presence.ImageProcessResponse, error)
	LatestJSONFile(c context.Context, userID string) (presence.FileDownloadResponse, error)
	LatestImageFile(c context.Context, userID string) (presence.FileDownloadResponse, error)
	StartStream(c context.Context, apiKey string, fps float64, onFrame attendance.FrameHook) (LiveStream, error)
	AllVideoResponses(c context.Context) ([]entity.VideoResponse, error)
	VideoResponsesByAPIKey(c context.Context, apiKey string) ([]entity.VideoResponse, error)
}

// LiveStream is a running video session fed by a client connection.
type LiveStream interface {
	Push(c context.Context, frame []byte) error
	Finish(c context.Context) (presence.VideoProcessResponse, error)
	Abort()
}

type Config struct {
	RosterPath   string
	UploadDir    string
	FrameTimeout time.Duration
	Workers      int
	StreamBuffer int
}

func ConfigFromEnv() Config {
	cfg := Config{
		RosterPath:   os.Getenv("ROSTER_PATH"),
		UploadDir:    os.Getenv("UPLOAD_DIR"),
		FrameTimeout: 10 * time.Second,
		Workers:      4,
		StreamBuffer: 32,
	}
	if cfg.RosterPath == "" {
		cfg.RosterPath = "./storage/roster.json"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./storage/uploads"
	}
	if d, err := time.ParseDuration(os.Getenv("DETECTOR_FRAME_TIMEOUT")); err == nil && d > 0 {
		cfg.FrameTimeout = d
	}
	if n, err := strconv.Atoi(os.Getenv("DETECTOR_WORKERS")); err == nil && n > 0 {
		cfg.Workers = n
	}
	return cfg
}

type videoOpener func(ctx context.Context, path string) (attendance.FrameSource, error)

type presenceService struct {
	log      *logrus.Logger
	repo     presenceRepository.Repository
	detector attendance.Detector
	lookup   attendance.MetadataLookup
	s3Client s3.ItfS3
	utils    utils.IUtils
	cfg      Config

	openVideo videoOpener
}

func New(
	log *logrus.Logger,
	repo presenceRepository.Repository,
	detector attendance.Detector,
	lookup attendance.MetadataLookup,
	s3Client s3.ItfS3,
	utils utils.IUtils,
	cfg Config,
) PresenceService {
	return &presenceService{
		log:      log,
		repo:     repo,
		detector: detector,
		lookup:   lookup,
		s3Client: s3Client,
		utils:    utils,
		cfg:      cfg,
		openVideo: func(ctx context.Context, path string) (attendance.FrameSource, error) {
			src, err := video.Open(ctx, path)
			if err != nil {
				return nil, err
			}
			return src, nil
		},
	}
}
