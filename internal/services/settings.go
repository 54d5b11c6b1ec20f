package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/abrezinsky/moherun/internal/errors"
	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/repository"
	"github.com/abrezinsky/moherun/internal/scoring"
)

const (
	settingMakeupWeek = "makeup_week_id"
	settingBaseURL    = "base_url"
)

// SettingsService handles settings that can change while the server runs
type SettingsService struct {
	log           logger.Logger
	repo          repository.SettingsRepository
	defaultMakeup string
	defaultBase   string
}

// NewSettingsService creates a new SettingsService. The defaults come from the config
// file and apply until a setting is stored.
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository, makeupWeekID, baseURL string) *SettingsService {
	return &SettingsService{log: log, repo: repo, defaultMakeup: makeupWeekID, defaultBase: baseURL}
}

// MakeupWeekID returns the week the make-up window serves. Empty means disabled.
func (s *SettingsService) MakeupWeekID(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, settingMakeupWeek)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return s.defaultMakeup, nil
		}
		return "", err
	}
	return value, nil
}

// SetMakeupWeekID overrides the make-up week. "3" is stored as "W3"; an empty id
// disables the make-up window.
func (s *SettingsService) SetMakeupWeekID(ctx context.Context, weekID string) error {
	weekID = strings.TrimSpace(weekID)
	if weekID != "" {
		n, ok := scoring.WeekNumber(weekID)
		if !ok {
			return &InvalidWeekError{Week: weekID}
		}
		weekID = fmt.Sprintf("W%d", n)
	}
	if err := s.repo.SetSetting(ctx, settingMakeupWeek, weekID); err != nil {
		return err
	}
	s.log.Info("Make-up week changed", "week", weekID)
	return nil
}

// ResetMakeupWeekID drops the override so the configured week applies again
func (s *SettingsService) ResetMakeupWeekID(ctx context.Context) error {
	return s.repo.DeleteSetting(ctx, settingMakeupWeek)
}

// GetBaseURL returns the public dashboard URL
func (s *SettingsService) GetBaseURL(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, settingBaseURL)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return s.defaultBase, nil
		}
		return "", err
	}
	return value, nil
}

// SetBaseURL saves the public dashboard URL
func (s *SettingsService) SetBaseURL(ctx context.Context, url string) error {
	return s.repo.SetSetting(ctx, settingBaseURL, strings.TrimRight(strings.TrimSpace(url), "/"))
}

// ShareQRCode renders a QR code PNG that opens the public dashboard
func (s *SettingsService) ShareQRCode(ctx context.Context) ([]byte, error) {
	baseURL, err := s.GetBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		return nil, &ServiceError{Message: "base_url not configured"}
	}
	png, err := qrcode.Encode(baseURL+"/", qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return png, nil
}

// AllSettings returns the runtime settings as a map
func (s *SettingsService) AllSettings(ctx context.Context) (map[string]any, error) {
	makeup, err := s.MakeupWeekID(ctx)
	if err != nil {
		return nil, err
	}
	baseURL, err := s.GetBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		settingMakeupWeek: makeup,
		settingBaseURL:    baseURL,
	}, nil
}

// Settings represents a partial settings update. Nil fields are left alone.
type Settings struct {
	MakeupWeekID *string
	BaseURL      *string
}

// UpdateSettings updates multiple settings at once
func (s *SettingsService) UpdateSettings(ctx context.Context, settings Settings) error {
	if settings.MakeupWeekID != nil {
		if err := s.SetMakeupWeekID(ctx, *settings.MakeupWeekID); err != nil {
			return err
		}
	}
	if settings.BaseURL != nil {
		if err := s.SetBaseURL(ctx, *settings.BaseURL); err != nil {
			return err
		}
	}
	return nil
}
