package authService

import (
	"VideoPresence/internal/api/auth"
	authRepository "VideoPresence/internal/api/auth/repository"
	"VideoPresence/internal/attendance"
	"context"
	"errors"
)

// MetadataLookup resolves roster names against registered users by username.
type MetadataLookup struct {
	repo authRepository.Repository
}

func NewMetadataLookup(repo authRepository.Repository) *MetadataLookup {
	return &MetadataLookup{repo: repo}
}

func (l *MetadataLookup) Lookup(ctx context.Context, name string) (attendance.Metadata, bool, error) {
	repo, err := l.repo.NewClient(false)
	if err != nil {
		return attendance.Metadata{}, false, err
	}

	user, err := repo.Users.GetByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return attendance.Metadata{}, false, nil
		}
		return attendance.Metadata{}, false, err
	}

	return attendance.Metadata{
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Department:  user.Department,
		Role:        user.Role,
	}, true, nil
}
