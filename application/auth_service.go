package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shiftmatch/domain"
)

const (
	WorkerTokenTTL   = 7 * 24 * time.Hour
	AdminSessionTTL  = 24 * time.Hour
	PasswordResetTTL = time.Hour

	workerRole = "worker"
)

var errBadCredentials = domain.NewError(domain.ErrUnauthorized, "INVALID_CREDENTIALS", "メールアドレスまたはパスワードが正しくありません")

// WorkerClaims is the payload of a worker bearer token.
type WorkerClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=128"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

type AuthDeps struct {
	Sessions  SessionStore
	Notifier  *Notifier
	Settings  *SettingsService
	Activity  *ActivityService
	Clock     domain.Clock
	JWTSecret []byte
}

// AuthService handles worker tokens, admin sessions and password resets.
type AuthService struct {
	users          UserRepository
	facilityAdmins FacilityAdminRepository
	systemAdmins   SystemAdminRepository
	resets         PasswordResetRepository
	sessions       SessionStore
	notifier       *Notifier
	settings       *SettingsService
	activity       *ActivityService
	clock          domain.Clock
	secret         []byte
	logger         *zap.Logger
}

func NewAuthService(r Repositories, d AuthDeps, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:          r.Users,
		facilityAdmins: r.FacilityAdmins,
		systemAdmins:   r.SystemAdmins,
		resets:         r.PasswordResets,
		sessions:       d.Sessions,
		notifier:       d.Notifier,
		settings:       d.Settings,
		activity:       d.Activity,
		clock:          d.Clock,
		secret:         d.JWTSecret,
		logger:         logger,
	}
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a worker account and signs the worker in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*TokenResponse, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, domain.Conflict("EMAIL_TAKEN", "このメールアドレスは既に登録されています")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{Email: in.Email, Name: in.Name, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("worker registered", zap.Uint("user_id", u.ID))

	notify(ctx, s.notifier, s.logger, NotifyParams{
		Key:        domain.KeyAdminNewWorker,
		TargetType: domain.TargetSystemAdmin,
		Emails:     s.settings.AdminAlertEmails(ctx),
		Vars: map[string]string{
			"worker_name":  u.Name,
			"worker_email": u.Email,
			"worker_id":    itoa(u.ID),
		},
	})
	return s.issueWorkerToken(u)
}

func (s *AuthService) WorkerLogin(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	u, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(u.PasswordHash, in.Password) {
		return nil, errBadCredentials
	}
	if u.IsSuspended {
		return nil, domain.Forbidden("このアカウントは停止されています")
	}
	return s.issueWorkerToken(u)
}

func (s *AuthService) issueWorkerToken(u *domain.User) (*TokenResponse, error) {
	now := s.clock.Now()
	exp := now.Add(WorkerTokenTTL)
	claims := WorkerClaims{
		Role: workerRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &TokenResponse{Token: token, ExpiresAt: exp, User: u}, nil
}

// ParseWorkerToken validates a bearer token and returns the worker id.
func (s *AuthService) ParseWorkerToken(token string) (uint, error) {
	claims := &WorkerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !parsed.Valid {
		return 0, domain.NewError(domain.ErrUnauthorized, "INVALID_TOKEN", "認証が必要です")
	}
	if claims.Role != workerRole {
		return 0, domain.NewError(domain.ErrUnauthorized, "INVALID_TOKEN", "認証が必要です")
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, domain.NewError(domain.ErrUnauthorized, "INVALID_TOKEN", "認証が必要です")
	}
	return uint(id), nil
}

// FacilityLogin authenticates a facility admin and opens a server-side session.
func (s *AuthService) FacilityLogin(ctx context.Context, in LoginInput) (*domain.Session, error) {
	in.Email = normalizeEmail(in.Email)
	sess, err := s.facilityLogin(ctx, in)
	s.activity.Record(ctx, ActivityEntry{
		Actor:  Actor{Type: domain.AccountFacilityAdmin, Email: in.Email},
		Action: "ADMIN_LOGIN",
		Err:    err,
	})
	return sess, err
}

func (s *AuthService) facilityLogin(ctx context.Context, in LoginInput) (*domain.Session, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	a, err := s.facilityAdmins.FindByEmail(ctx, in.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(a.PasswordHash, in.Password) {
		return nil, errBadCredentials
	}
	return s.openSession(ctx, domain.Session{
		AccountType: domain.AccountFacilityAdmin,
		AccountID:   a.ID,
		FacilityID:  a.FacilityID,
		Email:       a.Email,
		Name:        a.Name,
	})
}

func (s *AuthService) SystemAdminLogin(ctx context.Context, in LoginInput) (*domain.Session, error) {
	in.Email = normalizeEmail(in.Email)
	sess, err := s.systemAdminLogin(ctx, in)
	s.activity.Record(ctx, ActivityEntry{
		Actor:  Actor{Type: domain.AccountSystemAdmin, Email: in.Email},
		Action: "SYSTEM_ADMIN_LOGIN",
		Err:    err,
	})
	return sess, err
}

func (s *AuthService) systemAdminLogin(ctx context.Context, in LoginInput) (*domain.Session, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	a, err := s.systemAdmins.FindByEmail(ctx, in.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(a.PasswordHash, in.Password) {
		return nil, errBadCredentials
	}
	return s.openSession(ctx, domain.Session{
		AccountType: domain.AccountSystemAdmin,
		AccountID:   a.ID,
		Email:       a.Email,
		Name:        a.Name,
	})
}

func (s *AuthService) openSession(ctx context.Context, sess domain.Session) (*domain.Session, error) {
	sess.ID = uuid.NewString()
	sess.ExpiresAt = s.clock.Now().Add(AdminSessionTTL)
	if err := s.sessions.Put(ctx, sess, AdminSessionTTL); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &sess, nil
}

// Session resolves a session cookie. Expired or unknown ids are unauthorized.
func (s *AuthService) Session(ctx context.Context, id string, want domain.AccountType) (*domain.Session, error) {
	unauthorized := domain.NewError(domain.ErrUnauthorized, "SESSION_REQUIRED", "認証が必要です")
	if id == "" {
		return nil, unauthorized
	}
	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, unauthorized
	}
	if err != nil {
		return nil, err
	}
	if sess.AccountType != want || !s.clock.Now().Before(sess.ExpiresAt) {
		return nil, unauthorized
	}
	return sess, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

type PasswordResetRequest struct {
	Email       string             `json:"email" validate:"required,email"`
	AccountType domain.AccountType `json:"account_type" validate:"omitempty,oneof=WORKER FACILITY_ADMIN SYSTEM_ADMIN"`
}

type PasswordResetConfirm struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// RequestPasswordReset emails a reset link. Unknown addresses succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, in PasswordResetRequest) error {
	in.Email = normalizeEmail(in.Email)
	if in.AccountType == "" {
		in.AccountType = domain.AccountWorker
	}
	if err := validate.Struct(in); err != nil {
		return validationError(err)
	}
	name, id, target, err := s.lookupAccount(ctx, in.AccountType, in.Email)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Info("password reset for unknown email", zap.String("account_type", string(in.AccountType)))
		return nil
	}
	if err != nil {
		return err
	}
	now := s.clock.Now()
	t := &domain.PasswordResetToken{
		Token:       uuid.NewString(),
		Email:       in.Email,
		AccountType: in.AccountType,
		ExpiresAt:   now.Add(PasswordResetTTL),
	}
	if err := s.resets.Create(ctx, t); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	notify(ctx, s.notifier, s.logger, NotifyParams{
		Key:            domain.KeyPasswordReset,
		TargetType:     target,
		RecipientID:    id,
		RecipientName:  name,
		RecipientEmail: in.Email,
		NoInApp:        true,
		Vars: map[string]string{
			"worker_name": name,
			"reset_url":   s.notifier.URL("/password-reset?token=" + t.Token),
		},
	})
	return nil
}

func (s *AuthService) lookupAccount(ctx context.Context, t domain.AccountType, email string) (string, uint, domain.TargetType, error) {
	switch t {
	case domain.AccountFacilityAdmin:
		a, err := s.facilityAdmins.FindByEmail(ctx, email)
		if err != nil {
			return "", 0, "", err
		}
		return a.Name, a.ID, domain.TargetFacility, nil
	case domain.AccountSystemAdmin:
		a, err := s.systemAdmins.FindByEmail(ctx, email)
		if err != nil {
			return "", 0, "", err
		}
		return a.Name, a.ID, domain.TargetSystemAdmin, nil
	default:
		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return "", 0, "", err
		}
		return u.Name, u.ID, domain.TargetWorker, nil
	}
}

// ResetPassword consumes a reset token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, in PasswordResetConfirm) error {
	if err := validate.Struct(in); err != nil {
		return validationError(err)
	}
	invalid := domain.NewError(domain.ErrValidation, "INVALID_RESET_TOKEN", "リンクが無効か期限切れです")
	t, err := s.resets.FindByToken(ctx, in.Token)
	if errors.Is(err, domain.ErrNotFound) {
		return invalid
	}
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if !t.Usable(now) {
		return invalid
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, t.AccountType, t.Email, hash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return invalid
		}
		return err
	}
	t.UsedAt = &now
	if err := s.resets.Save(ctx, t); err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, t domain.AccountType, email, hash string) error {
	switch t {
	case domain.AccountFacilityAdmin:
		a, err := s.facilityAdmins.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		a.PasswordHash = hash
		return s.facilityAdmins.Save(ctx, a)
	case domain.AccountSystemAdmin:
		a, err := s.systemAdmins.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		a.PasswordHash = hash
		return s.systemAdmins.Save(ctx, a)
	default:
		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		return s.users.Save(ctx, u)
	}
}
