package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Additional-Code/backorder/internal/cache"
	"github.com/Additional-Code/backorder/internal/config"
	"github.com/Additional-Code/backorder/internal/entity"
	userrepo "github.com/Additional-Code/backorder/internal/repository/user"
	"github.com/Additional-Code/backorder/internal/service/guard"
	"github.com/Additional-Code/backorder/pkg/errorbank"
)

const instrumentation = "github.com/Additional-Code/backorder/service/auth"

var serviceTracer = otel.Tracer(instrumentation)

const (
	invalidCredentials = "invalid username or password"
	duplicateUsername  = "username already exists"
)

// Identity is the per-request view of an authenticated user.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Session is a signed session assertion and the server-side record it names.
type Session struct {
	Token     string
	ID        string
	ExpiresAt time.Time
	Identity  Identity
}

// LoginResult carries what a successful login hands back to the client.
// RememberToken is empty unless remember-me was requested.
type LoginResult struct {
	Session       Session
	RememberToken string
	FirstLogin    bool
}

// Credentials are the tokens a request presents.
type Credentials struct {
	SessionToken  string
	RememberToken string
}

// Resolution is the outcome of session resolution. Restored is set when the
// session was re-established from a remember token.
type Resolution struct {
	Identity Identity
	Restored *Session
}

// bcrypt rejects longer inputs; the limit is in bytes, not runes.
const maxPasswordBytes = 72

// Registration is the input of Register.
type Registration struct {
	Username        string `json:"username" validate:"required,max=64"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm"`
	Name            string `json:"name" validate:"required,max=128"`
}

// Service implements login, session resolution and account management.
type Service struct {
	users  *userrepo.Repository
	store  cache.Store
	cfg    config.Auth
	logger *zap.Logger
	logins metric.Int64Counter
	now    func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Users  *userrepo.Repository
	Store  cache.Store
	Config config.Config
	Logger *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return New(p.Users, p.Store, p.Config.Auth, p.Logger)
}

// New builds a Service from explicit collaborators.
func New(users *userrepo.Repository, store cache.Store, cfg config.Auth, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	counter, err := otel.Meter(instrumentation).Int64Counter("auth.logins",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		logger.Warn("login counter unavailable", zap.Error(err))
	}
	return &Service{
		users:  users,
		store:  store,
		cfg:    cfg,
		logger: logger,
		logins: counter,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a regular user with empty detail and settings rows.
func (s *Service) Register(ctx context.Context, r Registration) (*entity.User, error) {
	return s.CreateUser(ctx, r, entity.GroupRegular)
}

// CreateUser creates a user in group. Usernames are unique by exact match.
func (s *Service) CreateUser(ctx context.Context, r Registration, group int) (*entity.User, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.CreateUser", trace.WithAttributes(attribute.String("user.username", r.Username)))
	defer span.End()

	r.Username = strings.TrimSpace(r.Username)
	r.Name = strings.TrimSpace(r.Name)
	if err := guard.Struct(r); err != nil {
		return nil, err
	}
	if len(r.Password) > maxPasswordBytes {
		return nil, errorbank.Validation("password too long", errorbank.WithDetail("password", "max"))
	}
	if r.PasswordConfirm != "" && r.PasswordConfirm != r.Password {
		return nil, errorbank.Validation("passwords do not match", errorbank.WithDetail("password_confirm", "eqfield"))
	}
	if group != entity.GroupRegular && group != entity.GroupAdmin {
		return nil, errorbank.BadRequest("unknown user group", errorbank.WithDetail("group", group))
	}

	_, err := s.users.FindByUsername(ctx, r.Username)
	switch {
	case err == nil:
		span.SetStatus(codes.Error, "duplicate username")
		return nil, errorbank.Validation(duplicateUsername, errorbank.WithDetail("username", r.Username))
	case !errors.Is(err, userrepo.ErrNotFound):
		return nil, guard.Storage(span, "failed to check username", "", err)
	}

	hash, salt, err := s.hashPassword(r.Password)
	if err != nil {
		return nil, errorbank.Internal("failed to hash password", errorbank.WithCause(err))
	}
	u := &entity.User{
		Username: r.Username,
		Password: hash,
		Salt:     salt,
		Name:     r.Name,
		Group:    group,
		Joined:   s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, guard.Storage(span, "failed to create user", duplicateUsername, err)
	}
	s.logger.Info("user registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

func (s *Service) hashPassword(plain string) (string, string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), s.cfg.BcryptCost)
	if err != nil {
		return "", "", err
	}
	hash := string(b)
	// $2a$10$ followed by the 22 character salt.
	salt := ""
	if len(hash) >= 29 {
		salt = hash[:29]
	}
	return hash, salt, nil
}

// Login verifies credentials and opens a session. With remember set it also
// issues a remember token that replaces any earlier one for the user.
func (s *Service) Login(ctx context.Context, username, password string, remember bool) (*LoginResult, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Login", trace.WithAttributes(attribute.String("user.username", username)))
	defer span.End()

	if strings.TrimSpace(username) == "" || password == "" {
		return nil, errorbank.Validation("username and password are required")
	}

	u, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, userrepo.ErrNotFound) {
		// Unknown usernames still pay for one comparison.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, s.rejectLogin(ctx, span)
	}
	if err != nil {
		return nil, guard.Storage(span, "failed to load user", "", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, s.rejectLogin(ctx, span)
	}

	session, err := s.openSession(ctx, identityOf(u))
	if err != nil {
		return nil, err
	}
	out := &LoginResult{Session: session}

	if remember {
		token, err := newRememberToken()
		if err != nil {
			return nil, errorbank.Internal("failed to generate remember token", errorbank.WithCause(err))
		}
		if err := s.users.ReplaceSession(ctx, u.ID, digest(token)); err != nil {
			return nil, guard.Storage(span, "failed to store remember token", "", err)
		}
		out.RememberToken = token
	}

	if profile, err := s.users.Profile(ctx, u.ID); err == nil && profile.FirstTimeLogin {
		out.FirstLogin = true
		if err := s.users.MarkLoggedIn(ctx, u.ID); err != nil {
			s.logger.Warn("failed to clear first login flag", zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}

	s.countLogin(ctx, "success")
	return out, nil
}

// dummyHash is compared against when the username is unknown.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3hZ1RwGJZLkzxGWf9bDOS6e"

func (s *Service) rejectLogin(ctx context.Context, span trace.Span) error {
	span.SetStatus(codes.Error, "invalid credentials")
	s.countLogin(ctx, "rejected")
	return errorbank.Unauthenticated(invalidCredentials)
}

func (s *Service) countLogin(ctx context.Context, outcome string) {
	if s.logins == nil {
		return
	}
	s.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func identityOf(u *entity.User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Name: u.Name}
}

func (s *Service) openSession(ctx context.Context, id Identity) (Session, error) {
	session, err := signSession([]byte(s.cfg.SessionSecret), id, s.now(), s.cfg.SessionTTL)
	if err != nil {
		return Session{}, errorbank.Internal("failed to sign session", errorbank.WithCause(err))
	}
	payload, err := json.Marshal(id)
	if err != nil {
		return Session{}, errorbank.Internal("failed to encode session", errorbank.WithCause(err))
	}
	if err := s.store.Set(ctx, sessionKey(session.ID), payload, s.cfg.SessionTTL); err != nil {
		return Session{}, errorbank.Storage("failed to store session", errorbank.WithCause(err))
	}
	return session, nil
}

// ResolveSession authenticates a request. A valid session wins; otherwise a
// matching remember token re-establishes one transparently.
func (s *Service) ResolveSession(ctx context.Context, creds Credentials) (*Resolution, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.ResolveSession")
	defer span.End()

	if id, ok := s.activeSession(ctx, creds.SessionToken); ok {
		return &Resolution{Identity: id}, nil
	}

	if creds.RememberToken == "" {
		return nil, errorbank.Unauthenticated("authentication required")
	}
	hash := digest(creds.RememberToken)
	u, err := s.users.FindBySessionHash(ctx, hash)
	switch {
	case errors.Is(err, userrepo.ErrNoSession), errors.Is(err, userrepo.ErrNotFound):
		span.SetStatus(codes.Error, "unknown remember token")
		return nil, errorbank.Unauthenticated("authentication required")
	case err != nil:
		return nil, guard.Storage(span, "failed to verify remember token", "", err)
	}
	stored, err := s.users.SessionHash(ctx, u.ID)
	if err != nil || !digestsEqual(stored, hash) {
		span.SetStatus(codes.Error, "remember token mismatch")
		return nil, errorbank.Unauthenticated("authentication required")
	}

	session, err := s.openSession(ctx, identityOf(u))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("session restored from remember token", zap.Int64("user_id", u.ID))
	return &Resolution{Identity: session.Identity, Restored: &session}, nil
}

func (s *Service) activeSession(ctx context.Context, token string) (Identity, bool) {
	if token == "" {
		return Identity{}, false
	}
	claims, err := parseSession([]byte(s.cfg.SessionSecret), token, s.now())
	if err != nil {
		return Identity{}, false
	}
	raw, err := s.store.Get(ctx, sessionKey(claims.ID))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("session store read failed", zap.Error(err))
		}
		return Identity{}, false
	}
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return Identity{}, false
	}
	if strconv.FormatInt(id.UserID, 10) != claims.Subject {
		return Identity{}, false
	}
	return id, true
}

// IsGuest reports whether the presented session token is absent or no longer valid.
func (s *Service) IsGuest(ctx context.Context, sessionToken string) bool {
	_, ok := s.activeSession(ctx, sessionToken)
	return !ok
}

// RequireAdmin reloads the user and rejects anyone outside the admin group.
func (s *Service) RequireAdmin(ctx context.Context, userID int64) error {
	ctx, span := serviceTracer.Start(ctx, "AuthService.RequireAdmin", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, userrepo.ErrNotFound) {
		return errorbank.Unauthenticated("authentication required")
	}
	if err != nil {
		return guard.Storage(span, "failed to load user", "", err)
	}
	if !u.IsAdmin() {
		span.SetStatus(codes.Error, "not an admin")
		return errorbank.Unauthorized("you do not have permission to access this resource")
	}
	return nil
}

// Logout ends the session and drops the user's remember token. Repeating it is harmless.
func (s *Service) Logout(ctx context.Context, creds Credentials) error {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	var userID int64
	if creds.SessionToken != "" {
		if claims, err := parseSession([]byte(s.cfg.SessionSecret), creds.SessionToken, s.now()); err == nil {
			if err := s.store.Delete(ctx, sessionKey(claims.ID)); err != nil {
				return errorbank.Storage("failed to end session", errorbank.WithCause(err))
			}
			userID, _ = strconv.ParseInt(claims.Subject, 10, 64)
		}
	}
	if userID == 0 && creds.RememberToken != "" {
		if u, err := s.users.FindBySessionHash(ctx, digest(creds.RememberToken)); err == nil {
			userID = u.ID
		}
	}
	if userID == 0 {
		return nil
	}
	if err := s.users.DeleteSession(ctx, userID); err != nil {
		return guard.Storage(span, "failed to delete remember token", "", err)
	}
	return nil
}

// Profile returns the user's account and contact details.
func (s *Service) Profile(ctx context.Context, userID int64) (*entity.UserProfile, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Profile", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	p, err := s.users.Profile(ctx, userID)
	if errors.Is(err, userrepo.ErrNotFound) {
		return nil, errorbank.NotFound("user not found")
	}
	if err != nil {
		return nil, guard.Storage(span, "failed to load profile", "", err)
	}
	return p, nil
}

// UpdateProfile writes the present fields of ch.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, ch userrepo.ProfileChanges) error {
	ctx, span := serviceTracer.Start(ctx, "AuthService.UpdateProfile", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	if ch.Name == nil && ch.Email == nil && ch.Phone == nil {
		return errorbank.Validation("no changes supplied")
	}
	if err := guard.Required("name", ch.Name); err != nil {
		return err
	}
	if ch.Name != nil {
		name := strings.TrimSpace(*ch.Name)
		ch.Name = &name
	}
	if _, err := s.Profile(ctx, userID); err != nil {
		return err
	}
	if err := s.users.UpdateProfile(ctx, userID, ch); err != nil {
		return guard.Storage(span, "failed to update profile", "", err)
	}
	return nil
}

// ChangePassword replaces the password after verifying the current one and
// revokes the user's remember token.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	ctx, span := serviceTracer.Start(ctx, "AuthService.ChangePassword", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	if next == "" || len(next) > maxPasswordBytes {
		return errorbank.Validation("invalid new password", errorbank.WithDetail("password", "required"))
	}
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, userrepo.ErrNotFound) {
		return errorbank.NotFound("user not found")
	}
	if err != nil {
		return guard.Storage(span, "failed to load user", "", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(current)); err != nil {
		return errorbank.Validation("current password is incorrect", errorbank.WithDetail("current_password", "mismatch"))
	}
	hash, salt, err := s.hashPassword(next)
	if err != nil {
		return errorbank.Internal("failed to hash password", errorbank.WithCause(err))
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, salt); err != nil {
		return guard.Storage(span, "failed to update password", "", err)
	}
	if err := s.users.DeleteSession(ctx, userID); err != nil {
		return guard.Storage(span, "failed to revoke remember token", "", err)
	}
	return nil
}

// ListUsers returns a page of user profiles.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]entity.UserProfile, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.ListUsers")
	defer span.End()

	out, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, guard.Storage(span, "failed to list users", "", err)
	}
	return out, nil
}
