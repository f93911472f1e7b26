package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrFileTooLarge    = errors.New("file size exceeds limit")
	ErrNotAnImage      = errors.New("uploaded file is not an image")
	ErrNotAVideo       = errors.New("uploaded file is not a video")
	emailPattern       = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneNumberPattern = regexp.MustCompile(`^[0-9]{8}$`)
	videoExtensions    = map[string]bool{".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true}
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	NewAPIKey() string
	NewVerificationCode() (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ValidateVideoFile(file *multipart.FileHeader) error
	ReadFile(file *multipart.FileHeader) ([]byte, error)
	IsValidEmail(email string) bool
	IsValidPhoneNumber(phoneNumber string) bool
}

type utils struct {
	maxImageSize int64
	maxVideoSize int64
}

func New() IUtils {
	return &utils{
		maxImageSize: 5 * 1024 * 1024,
		maxVideoSize: 500 * 1024 * 1024,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) NewAPIKey() string {
	return uuid.NewString()
}

// NewVerificationCode returns 6 random bytes as url-safe base64.
func (u *utils) NewVerificationCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxImageSize {
		return ErrFileTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return ErrNotAnImage
	}

	return nil
}

func (u *utils) ValidateVideoFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxVideoSize {
		return ErrFileTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "video/") {
		return nil
	}
	if videoExtensions[strings.ToLower(filepath.Ext(file.Filename))] {
		return nil
	}

	return ErrNotAVideo
}

func (u *utils) ReadFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return io.ReadAll(src)
}

func (u *utils) IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func (u *utils) IsValidPhoneNumber(phoneNumber string) bool {
	return phoneNumberPattern.MatchString(phoneNumber)
}
