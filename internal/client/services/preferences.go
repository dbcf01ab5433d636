package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/samber/lo"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/models"
	"github.com/dmitrijs2005/melvin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/melvin/internal/client/session"
	"github.com/dmitrijs2005/melvin/internal/dbx"
)

// Resolve returns the value in effect for an owner: the override when one
// is set (an explicit empty string included), else the global default.
func Resolve(override *string, globalDefault string) (string, error) {
	if override != nil {
		return *override, nil
	}
	if globalDefault == "" {
		return "", ErrNoEffectiveValue
	}
	return globalDefault, nil
}

const noModelStatus = "No model is configured. Ask an administrator to pick a default."

// PreferenceStatus holds the last user-facing outcome of each preference area.
type PreferenceStatus struct {
	Models    string
	Own       string
	UserPrefs string
}

// PreferenceService layers model selection (global default, per-user
// override) and the locally persisted chat style.
//
// LoadAll, SaveFor and SelectGlobal need a privileged session and fail
// with ErrNotPrivileged, without a request, otherwise. A nil value passed
// to SaveOwn or SaveFor clears the override.
type PreferenceService interface {
	LoadOwn(ctx context.Context) (*models.ModelPreference, error)
	SaveOwn(ctx context.Context, value *string) (*models.ModelPreference, error)
	LoadAll(ctx context.Context) ([]models.UserModelPreference, error)
	SaveFor(ctx context.Context, userID int64, value *string) (*models.UserModelPreference, error)
	LoadModels(ctx context.Context) (*models.ModelOptions, error)
	SelectGlobal(ctx context.Context, model string) (*models.ModelOptions, error)

	Own() *models.ModelPreference
	All() []models.UserModelPreference
	Models() *models.ModelOptions
	Status() PreferenceStatus

	LoadStyle(ctx context.Context) (models.ChatStyle, error)
	Style() models.ChatStyle
	SetTone(ctx context.Context, tone string) error
	SetDetail(ctx context.Context, detail string) error

	Reset()
}

type preferenceService struct {
	client  client.Client
	session *session.Session
	db      *sql.DB

	mu     sync.Mutex
	own    *models.ModelPreference
	all    []models.UserModelPreference
	models *models.ModelOptions
	status PreferenceStatus
	style  models.ChatStyle
	// gen changes on Reset; results of requests issued before it are dropped.
	gen uint64
}

func NewPreferenceService(c client.Client, sess *session.Session, db *sql.DB) PreferenceService {
	return &preferenceService{client: c, session: sess, db: db, style: models.DefaultChatStyle()}
}

func (s *preferenceService) setStatus(fn func(st *PreferenceStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.status)
}

func (s *preferenceService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// resolveLocked recomputes pref.Effective from its override and the global
// default, preferring the server's value as the default. s.mu must be held.
func (s *preferenceService) resolveLocked(pref *models.ModelPreference) error {
	def := pref.Effective
	if def == "" && s.models != nil {
		def = s.models.Current
	}
	eff, err := Resolve(pref.Preferred, def)
	if err != nil {
		return err
	}
	pref.Effective = eff
	return nil
}

func (s *preferenceService) LoadOwn(ctx context.Context) (*models.ModelPreference, error) {
	gen := s.generation()

	var pref models.ModelPreference
	err := s.client.Do(ctx, client.Call{Method: http.MethodGet, Path: "/models/preferences/me"}, &pref)
	if err != nil {
		if !isSilent(err) {
			s.setStatus(func(st *PreferenceStatus) { st.Own = "Failed to load model preference." })
		}
		return nil, fmt.Errorf("load model preference: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, fmt.Errorf("load model preference: %w", client.ErrSessionEnded)
	}
	if err := s.resolveLocked(&pref); err != nil {
		s.status.Own = noModelStatus
		return nil, fmt.Errorf("load model preference: %w", err)
	}
	s.own = &pref
	s.status.Own = ""
	return &pref, nil
}

func (s *preferenceService) SaveOwn(ctx context.Context, value *string) (*models.ModelPreference, error) {
	gen := s.generation()
	s.setStatus(func(st *PreferenceStatus) { st.Own = "Saving preference..." })

	var pref models.ModelPreference
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodPost,
		Path:     "/models/preferences/me",
		Body:     models.ModelPreferenceUpdate{Model: value},
		Fallback: "Failed to save preference",
	}, &pref)
	if err != nil {
		if !isSilent(err) {
			s.setStatus(func(st *PreferenceStatus) { st.Own = "Failed to save preference." })
		}
		return nil, fmt.Errorf("save model preference: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, fmt.Errorf("save model preference: %w", client.ErrSessionEnded)
	}
	if err := s.resolveLocked(&pref); err != nil {
		s.status.Own = noModelStatus
		return nil, fmt.Errorf("save model preference: %w", err)
	}
	s.own = &pref
	if value != nil {
		s.status.Own = fmt.Sprintf("Preference saved (%s).", *value)
	} else {
		s.status.Own = "Preference cleared. Using default model."
	}
	return &pref, nil
}

func (s *preferenceService) LoadAll(ctx context.Context) ([]models.UserModelPreference, error) {
	if !s.session.IsPrivileged() {
		return nil, ErrNotPrivileged
	}
	gen := s.generation()

	var all []models.UserModelPreference
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodGet,
		Path:     "/models/preferences/users",
		Fallback: "Failed to load user model preferences",
	}, &all)
	if err != nil {
		if !isSilent(err) {
			s.setStatus(func(st *PreferenceStatus) { st.UserPrefs = "Failed to load user preferences." })
		}
		return nil, fmt.Errorf("load user model preferences: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, fmt.Errorf("load user model preferences: %w", client.ErrSessionEnded)
	}
	for i := range all {
		if err := s.resolveLocked(&all[i].ModelPreference); err != nil {
			s.status.UserPrefs = noModelStatus
			return nil, fmt.Errorf("load user model preferences: user %d: %w", all[i].ID, err)
		}
	}
	s.all = all
	s.status.UserPrefs = ""
	return all, nil
}

func (s *preferenceService) SaveFor(ctx context.Context, userID int64, value *string) (*models.UserModelPreference, error) {
	if !s.session.IsPrivileged() {
		return nil, ErrNotPrivileged
	}
	gen := s.generation()

	var updated models.UserModelPreference
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodPost,
		Path:     fmt.Sprintf("/models/preferences/users/%d", userID),
		Body:     models.ModelPreferenceUpdate{Model: value},
		Fallback: "Failed to update user model preference",
	}, &updated)
	if err != nil {
		if !isSilent(err) {
			s.setStatus(func(st *PreferenceStatus) { st.UserPrefs = "Failed to update user preference." })
		}
		return nil, fmt.Errorf("update model preference of user %d: %w", userID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, fmt.Errorf("update model preference of user %d: %w", userID, client.ErrSessionEnded)
	}
	if err := s.resolveLocked(&updated.ModelPreference); err != nil {
		s.status.UserPrefs = noModelStatus
		return nil, fmt.Errorf("update model preference of user %d: %w", userID, err)
	}
	s.all = lo.Map(s.all, func(u models.UserModelPreference, _ int) models.UserModelPreference {
		if u.ID == userID {
			return updated
		}
		return u
	})
	if value != nil {
		s.status.UserPrefs = "Updated user preference."
	} else {
		s.status.UserPrefs = "Cleared user preference."
	}
	return &updated, nil
}

func (s *preferenceService) LoadModels(ctx context.Context) (*models.ModelOptions, error) {
	gen := s.generation()
	s.setStatus(func(st *PreferenceStatus) { st.Models = "" })

	var opts models.ModelOptions
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodGet,
		Path:     "/models/ollama",
		Fallback: "Failed to load model list",
	}, &opts)
	if err != nil {
		if !isSilent(err) {
			s.setStatus(func(st *PreferenceStatus) { st.Models = "Could not load available models from Ollama." })
		}
		return nil, fmt.Errorf("load models: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, fmt.Errorf("load models: %w", client.ErrSessionEnded)
	}
	s.models = &opts
	return &opts, nil
}

// SelectGlobal changes the global default model, then reloads the caller's
// own preference and the user listing, whose effective values may follow.
func (s *preferenceService) SelectGlobal(ctx context.Context, model string) (*models.ModelOptions, error) {
	if !s.session.IsPrivileged() {
		return nil, ErrNotPrivileged
	}
	gen := s.generation()

	var opts models.ModelOptions
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodPost,
		Path:     "/models/ollama",
		Body:     models.ModelSelection{Model: model},
		Fallback: "Failed to switch model",
	}, &opts)
	if err != nil {
		if !isSilent(err) {
			s.setStatus(func(st *PreferenceStatus) { st.Models = "Model change failed." })
		}
		return nil, fmt.Errorf("select model: %w", err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil, fmt.Errorf("select model: %w", client.ErrSessionEnded)
	}
	s.models = &opts
	s.status.Models = fmt.Sprintf("Model switched to %s", model)
	s.mu.Unlock()

	if _, err := s.LoadOwn(ctx); err != nil {
		return &opts, err
	}
	if _, err := s.LoadAll(ctx); err != nil {
		return &opts, err
	}
	return &opts, nil
}

func (s *preferenceService) Own() *models.ModelPreference {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.own == nil {
		return nil
	}
	p := *s.own
	return &p
}

func (s *preferenceService) All() []models.UserModelPreference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UserModelPreference(nil), s.all...)
}

func (s *preferenceService) Models() *models.ModelOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.models == nil {
		return nil
	}
	m := *s.models
	m.Available = append([]string(nil), s.models.Available...)
	return &m
}

func (s *preferenceService) Status() PreferenceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LoadStyle restores the persisted chat style. Missing or no longer valid
// values fall back to the defaults.
func (s *preferenceService) LoadStyle(ctx context.Context) (models.ChatStyle, error) {
	repo := metadata.NewSQLiteRepository(s.db)
	style := models.DefaultChatStyle()

	tone, err := repo.Get(ctx, metadata.KeyTone)
	if err != nil {
		return style, err
	}
	detail, err := repo.Get(ctx, metadata.KeyDetailLevel)
	if err != nil {
		return style, err
	}
	if lo.Contains(models.ToneOptions, string(tone)) {
		style.Tone = string(tone)
	}
	if lo.Contains(models.DetailOptions, string(detail)) {
		style.DetailLevel = string(detail)
	}

	s.mu.Lock()
	s.style = style
	s.mu.Unlock()
	return style, nil
}

func (s *preferenceService) Style() models.ChatStyle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

func (s *preferenceService) SetTone(ctx context.Context, tone string) error {
	if !lo.Contains(models.ToneOptions, tone) {
		return fmt.Errorf("%w: tone %q", ErrUnknownOption, tone)
	}
	return s.saveStyle(ctx, func(st *models.ChatStyle) { st.Tone = tone })
}

func (s *preferenceService) SetDetail(ctx context.Context, detail string) error {
	if !lo.Contains(models.DetailOptions, detail) {
		return fmt.Errorf("%w: detail level %q", ErrUnknownOption, detail)
	}
	return s.saveStyle(ctx, func(st *models.ChatStyle) { st.DetailLevel = detail })
}

// saveStyle writes both style keys in one transaction and only then
// updates the in-memory copy.
func (s *preferenceService) saveStyle(ctx context.Context, change func(st *models.ChatStyle)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.style
	change(&next)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, metadata.KeyTone, []byte(next.Tone)); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyDetailLevel, []byte(next.DetailLevel))
	})
	if err != nil {
		return fmt.Errorf("save chat style: %w", err)
	}

	s.style = next
	return nil
}

// Reset drops everything loaded for the session. The chat style is a
// local setting and survives.
func (s *preferenceService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.own = nil
	s.all = nil
	s.models = nil
	s.status = PreferenceStatus{}
}

// isSilent reports errors the user must not see a status for: the session
// ended (and said so itself) or the call was abandoned.
func isSilent(err error) bool {
	return errors.Is(err, client.ErrUnauthorized) ||
		errors.Is(err, client.ErrUnauthenticated) ||
		errors.Is(err, client.ErrCanceled) ||
		errors.Is(err, client.ErrSessionEnded) ||
		errors.Is(err, context.Canceled)
}
