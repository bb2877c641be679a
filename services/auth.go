package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"virtual-campus/config"
	"virtual-campus/logger"
	"virtual-campus/models"
	"virtual-campus/storage"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var nameSeparators = strings.NewReplacer(".", " ", "_", " ", "-", " ", "+", " ")

// AuthService is the demo login. Any well-formed email with a non-empty
// password gets a session; nothing is checked against an account store.
type AuthService struct {
	KV            storage.KV
	InitialPoints int
	// GlobalScope puts every user on the same badge record.
	GlobalScope bool
	Clock       Clock
}

func NewAuthService(kv storage.KV, initialPoints int, globalScope bool) *AuthService {
	return &AuthService{
		KV:            kv,
		InitialPoints: initialPoints,
		GlobalScope:   globalScope,
		Clock:         time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" || !emailPattern.MatchString(email) {
		return nil, ErrInvalidCredentials
	}

	name := email[:strings.Index(email, "@")]
	user := &models.User{
		Token:       uuid.NewString(),
		Email:       email,
		Name:        name,
		DisplayName: displayName(name),
		Points:      s.InitialPoints,
		LoginTime:   s.Clock().UTC(),
		Scope:       s.scopeFor(email),
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	logger.Info().Str("scope", user.Scope).Msg("[AUTH] login")
	return user, nil
}

func (s *AuthService) scopeFor(email string) string {
	if s.GlobalScope {
		return config.ScopeGlobal
	}
	return ScopeForEmail(email)
}

// ScopeForEmail derives the per-user badge scope: the slug of the address
// followed by a hash of the lowercased address. The slug alone is lossy
// ("a.b@c.com" and "a-b@c.com" share one), the hash keeps users apart.
func ScopeForEmail(email string) string {
	addr := strings.ToLower(strings.TrimSpace(email))
	sum := uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+addr))
	return slug.Make(addr) + "-" + strings.ReplaceAll(sum.String(), "-", "")[:12]
}

func displayName(name string) string {
	return cases.Title(language.Und).String(nameSeparators.Replace(name))
}

func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	raw, err := s.KV.Get(ctx, UserKey(token))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Key: UserKey(token), Err: err}
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.Token != token {
		logger.Warn().Msg("[AUTH] malformed session record")
		return nil, ErrUnauthenticated
	}
	return &user, nil
}

func (s *AuthService) IsAuthenticated(ctx context.Context, token string) bool {
	_, err := s.CurrentUser(ctx, token)
	return err == nil
}

func (s *AuthService) UpdatePoints(ctx context.Context, token string, points int) (*models.User, error) {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	user.Points = points
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout removes the session and every campus key of the user's scope
// (badge record, reset sentinel, unlock feed).
func (s *AuthService) Logout(ctx context.Context, token string) error {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return err
	}

	keys, err := s.KV.Keys(ctx, KeyPrefix)
	if err != nil {
		return &PersistenceError{Op: "read", Key: KeyPrefix + "*", Err: err}
	}

	remove := []string{UserKey(token)}
	for _, key := range keys {
		if strings.HasSuffix(key, ":"+user.Scope) {
			remove = append(remove, key)
		}
	}
	if err := s.KV.Delete(ctx, remove...); err != nil {
		return &PersistenceError{Op: "delete", Key: UserKey(token), Err: err}
	}

	logger.Info().Str("scope", user.Scope).Int("keys", len(remove)).Msg("[AUTH] logout")
	return nil
}

func (s *AuthService) save(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.KV.Set(ctx, UserKey(user.Token), string(data)); err != nil {
		return &PersistenceError{Op: "write", Key: UserKey(user.Token), Err: err}
	}
	return nil
}
