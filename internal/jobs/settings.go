package jobs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	KeyFFmpegPath        = "ffmpeg_path"
	KeyDeleteAfterExport = "delete_after_export"
	KeyOpenAfterAction   = "open_after_action"
	KeyAuthToken         = "auth_token"
)

// Settings are the user-editable runtime options. Values saved in the
// settings table override the environment defaults.
type Settings struct {
	FFmpegPath        string `json:"ffmpeg_path"`
	DeleteAfterExport bool   `json:"delete_after_export"`
	OpenAfterAction   bool   `json:"open_after_action"`
}

// SettingsPatch changes only the non-nil fields.
type SettingsPatch struct {
	FFmpegPath        *string `json:"ffmpeg_path"`
	DeleteAfterExport *bool   `json:"delete_after_export"`
	OpenAfterAction   *bool   `json:"open_after_action"`
}

type SettingsStore struct {
	repo     Repository
	defaults Settings
	onChange func(Settings)
}

// NewSettingsStore returns a store falling back to defaults for unset keys.
func NewSettingsStore(repo Repository, defaults Settings) *SettingsStore {
	return &SettingsStore{repo: repo, defaults: defaults}
}

// OnChange registers a callback run after every successful Update.
func (s *SettingsStore) OnChange(fn func(Settings)) {
	s.onChange = fn
}

func (s *SettingsStore) Get(ctx context.Context) (Settings, error) {
	out := s.defaults

	if v, err := s.repo.GetSetting(ctx, KeyFFmpegPath); err != nil {
		return out, err
	} else if v != "" {
		out.FFmpegPath = v
	}
	if v, err := s.getBool(ctx, KeyDeleteAfterExport); err != nil {
		return out, err
	} else if v != nil {
		out.DeleteAfterExport = *v
	}
	if v, err := s.getBool(ctx, KeyOpenAfterAction); err != nil {
		return out, err
	} else if v != nil {
		out.OpenAfterAction = *v
	}
	return out, nil
}

func (s *SettingsStore) Update(ctx context.Context, p SettingsPatch) (Settings, error) {
	if p.FFmpegPath != nil {
		if err := s.repo.SetSetting(ctx, KeyFFmpegPath, strings.TrimSpace(*p.FFmpegPath)); err != nil {
			return Settings{}, err
		}
	}
	if p.DeleteAfterExport != nil {
		if err := s.repo.SetSetting(ctx, KeyDeleteAfterExport, strconv.FormatBool(*p.DeleteAfterExport)); err != nil {
			return Settings{}, err
		}
	}
	if p.OpenAfterAction != nil {
		if err := s.repo.SetSetting(ctx, KeyOpenAfterAction, strconv.FormatBool(*p.OpenAfterAction)); err != nil {
			return Settings{}, err
		}
	}

	out, err := s.Get(ctx)
	if err == nil && s.onChange != nil {
		s.onChange(out)
	}
	return out, err
}

// FFmpegPath is read by the extractor locator on every request. Errors
// fall back to the default.
func (s *SettingsStore) FFmpegPath() string {
	v, err := s.repo.GetSetting(context.Background(), KeyFFmpegPath)
	if err != nil || v == "" {
		return s.defaults.FFmpegPath
	}
	return v
}

func (s *SettingsStore) getBool(ctx context.Context, key string) (*bool, error) {
	v, err := s.repo.GetSetting(ctx, key)
	if err != nil || v == "" {
		return nil, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, nil
	}
	return &b, nil
}

// EnsureAuthToken returns the API bearer token, generating and storing one
// on first run.
func EnsureAuthToken(ctx context.Context, repo Repository) (string, error) {
	existing, err := repo.GetSetting(ctx, KeyAuthToken)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetSetting(ctx, KeyAuthToken, token); err != nil {
		return "", err
	}
	return token, nil
}
