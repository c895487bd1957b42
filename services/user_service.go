package services

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cppla/gymchallenge/models"
	"github.com/cppla/gymchallenge/store"
	"github.com/cppla/gymchallenge/utils"
)

const (
	maxDisplayNameRunes = 64
	maxAvatarRunes      = 8
	minSearchRunes      = 2
	searchLimit         = 10
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// Registration is the input of Register.
type Registration struct {
	Username    string
	Password    string
	Email       string
	DisplayName string
	Avatar      string
}

// ProfileUpdate changes the presentation fields of a member. Nil fields are kept.
type ProfileUpdate struct {
	DisplayName *string
	Avatar      *string
	Email       *string
}

// UserService manages member accounts and profiles.
type UserService struct {
	users store.UserStore
	cache StatsCache
	log   *zap.Logger
}

// NewUserService builds a UserService. cache may be nil; when set, rankings
// are dropped whenever the member list or a member's name or avatar changes.
func NewUserService(users store.UserStore, cache StatsCache, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{users: users, cache: cache, log: log.Named("users")}
}

func (s *UserService) invalidateStats(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidatePrefix(ctx, StatsCachePrefix)
	}
}

// Register creates a member with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, r Registration) (models.User, error) {
	username := strings.TrimSpace(r.Username)
	if !usernamePattern.MatchString(username) {
		return models.User{}, invalid("username must be 3-32 letters, digits, '.', '_' or '-'")
	}
	email, err := normalizeEmail(r.Email)
	if err != nil {
		return models.User{}, err
	}
	hash, err := utils.HashPassword(r.Password)
	if err != nil {
		if errors.Is(err, utils.ErrWeakPassword) {
			return models.User{}, invalid("password must have at least %d characters", utils.MinPasswordLength)
		}
		return models.User{}, err
	}

	_, err = s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return models.User{}, ErrUsernameTaken
	case !errors.Is(err, store.ErrNotFound):
		return models.User{}, unavailable("check username", err)
	}

	u := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  utils.SanitizeText(r.DisplayName, maxDisplayNameRunes),
		Avatar:       utils.SanitizeText(r.Avatar, maxAvatarRunes),
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, unavailable("create user", err)
	}
	s.invalidateStats(ctx)
	s.log.Info("member registered", zap.Uint("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Authenticate checks a username and password.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return models.User{}, ErrInvalidCredentials
	case err != nil:
		return models.User{}, unavailable("load user", err)
	}
	if !utils.CheckPassword(u.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Get returns the member with id.
func (s *UserService) Get(ctx context.Context, id uint) (models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return models.User{}, errors.Join(ErrUserNotFound, err)
	case err != nil:
		return models.User{}, unavailable("load user", err)
	}
	return u, nil
}

// UpdateProfile applies p to the member. Display names lose any markup and are
// limited to 64 characters; avatars to 8.
func (s *UserService) UpdateProfile(ctx context.Context, id uint, p ProfileUpdate) (models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if p.DisplayName != nil {
		u.DisplayName = utils.SanitizeText(*p.DisplayName, maxDisplayNameRunes)
	}
	if p.Avatar != nil {
		u.Avatar = utils.SanitizeText(*p.Avatar, maxAvatarRunes)
	}
	if p.Email != nil {
		email, err := normalizeEmail(*p.Email)
		if err != nil {
			return models.User{}, err
		}
		u.Email = email
	}
	if err := s.users.Update(ctx, &u); err != nil {
		return models.User{}, unavailable("update user", err)
	}
	s.invalidateStats(ctx)
	return u, nil
}

// Search finds other members by username, email or display name.
func (s *UserService) Search(ctx context.Context, query string, callerID uint) ([]UserSummary, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < minSearchRunes {
		return nil, invalid("query must have at least %d characters", minSearchRunes)
	}
	found, err := s.users.Search(ctx, q, callerID, searchLimit)
	if err != nil {
		return nil, unavailable("search users", err)
	}
	out := make([]UserSummary, 0, len(found))
	for _, u := range found {
		out = append(out, summarize(u))
	}
	return out, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("invalid email address")
	}
	return email, nil
}
