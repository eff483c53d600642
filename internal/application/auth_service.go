package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kakomonhub/api/config"
	"github.com/kakomonhub/api/internal/domain/entity"
	"github.com/kakomonhub/api/internal/infrastructure/supabase"
	"github.com/kakomonhub/api/pkg/helpers"
	"github.com/kakomonhub/api/pkg/mailer"
	tpl "github.com/kakomonhub/api/pkg/mailer/templates"
)

const (
	otpTTL         = 10 * time.Minute
	resendCooldown = time.Minute
)

// EmailPublisher enqueues a job for the email worker.
type EmailPublisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// AuthService drives signup and verification against the external auth
// provider. It holds no state of its own; everything lives in GoTrue, Redis
// and the email queue.
type AuthService struct {
	Gateway *supabase.AdminClient
	RDB     *redis.Client
	Policy  *DomainPolicy
	Pub     EmailPublisher
	Logger  *logrus.Logger
	Cfg     *config.Config
}

func NewAuthService(gw *supabase.AdminClient, rdb *redis.Client, policy *DomainPolicy, pub EmailPublisher, logger *logrus.Logger, cfg *config.Config) *AuthService {
	return &AuthService{Gateway: gw, RDB: rdb, Policy: policy, Pub: pub, Logger: logger, Cfg: cfg}
}

// RegisterResult is what the signup page needs to render its next step.
type RegisterResult struct {
	UserID              string
	Email               string
	IsResend            bool
	PendingVerification bool
}

// Register creates a fresh identity for the email. An existing confirmed
// identity fails with ErrAlreadyRegistered; an existing unconfirmed one is
// deleted first, so an abandoned signup stays reclaimable without tripping
// the provider's unique-email constraint.
func (s *AuthService) Register(ctx context.Context, email string) (*RegisterResult, error) {
	if !s.Policy.IsAllowed(email) {
		return nil, &DomainNotAllowedError{Domain: DomainOf(email)}
	}

	isResend := false
	existing, err := s.Gateway.ListUsersByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	for _, u := range existing {
		if u.Identity().Confirmed() {
			return nil, ErrAlreadyRegistered
		}
		if derr := s.Gateway.DeleteUser(ctx, u.ID); derr != nil {
			return nil, fmt.Errorf("delete unconfirmed identity: %w", derr)
		}
		isResend = true
		s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": email}).
			Info("deleted unconfirmed identity before re-registration")
	}

	md := entity.IdentityMetadata{University: s.Cfg.UniversityName}
	created, err := s.Gateway.CreateUser(ctx, email, md.ToMap())
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	// Primary path: provider-generated confirmation link. The provider also
	// dispatches its own email; the link here feeds the backup channel.
	link, err := s.Gateway.GenerateLink(ctx, email, s.Cfg.LandingPath)
	if err != nil {
		return nil, fmt.Errorf("generate confirmation link: %w", err)
	}

	// Secondary path: local one-time code for environments where the
	// provider's outbound email is unreliable. Only a bcrypt hash is kept.
	code, err := helpers.GenOTPCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	hash, err := helpers.HashOTP(code)
	if err != nil {
		return nil, fmt.Errorf("hash otp: %w", err)
	}
	if err := s.RDB.Set(ctx, helpers.KeySignupOTP(email), hash, otpTTL).Err(); err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}

	s.enqueueBackupEmail(ctx, email, link.ActionLink, code)

	return &RegisterResult{
		UserID:              created.ID,
		Email:               email,
		IsResend:            isResend,
		PendingVerification: true,
	}, nil
}

// VerifyOTP confirms an email with a one-time code. The provider's own OTP is
// tried first; the local backup code is the fallback. Both paths end with an
// explicit email-confirm write because not every provider path sets the
// timestamp together with OTP consumption.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*entity.Identity, *supabase.Session, error) {
	sess, err := s.Gateway.VerifyOTP(ctx, email, code)
	if err == nil && sess.User != nil {
		ident := sess.User.Identity()
		if !ident.Confirmed() {
			if cerr := s.Gateway.ConfirmEmail(ctx, ident.ID); cerr != nil {
				return nil, nil, fmt.Errorf("confirm email: %w", cerr)
			}
			now := time.Now().UTC()
			ident.ConfirmedAt = &now
		}
		return ident, sess, nil
	}
	if err != nil && !isClientRejection(err) {
		return nil, nil, fmt.Errorf("provider verify: %w", err)
	}

	// Backup path: compare against the hashed local code.
	hash, rerr := s.RDB.Get(ctx, helpers.KeySignupOTP(email)).Result()
	if rerr != nil || !helpers.CompareOTP(hash, code) {
		return nil, nil, ErrInvalidOTP
	}
	users, lerr := s.Gateway.ListUsersByEmail(ctx, email)
	if lerr != nil {
		return nil, nil, fmt.Errorf("list identities: %w", lerr)
	}
	if len(users) == 0 {
		return nil, nil, ErrInvalidOTP
	}
	ident := users[0].Identity()
	if cerr := s.Gateway.ConfirmEmail(ctx, ident.ID); cerr != nil {
		return nil, nil, fmt.Errorf("confirm email: %w", cerr)
	}
	now := time.Now().UTC()
	ident.ConfirmedAt = &now
	_ = helpers.RedisDel(ctx, s.RDB, helpers.KeySignupOTP(email))
	return ident, nil, nil
}

// ExchangeCode trades the callback auth code for a provider session.
func (s *AuthService) ExchangeCode(ctx context.Context, code string) (*supabase.Session, error) {
	sess, err := s.Gateway.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return sess, nil
}

// SendBackupEmail enqueues a verification email through the transactional
// channel, used when the provider's own dispatch did not arrive. The returned
// id lets the caller correlate with the worker's send.
func (s *AuthService) SendBackupEmail(ctx context.Context, email, confirmationURL, code string) (string, error) {
	if s.Pub == nil || !s.Cfg.MailSendEnabled {
		return "", fmt.Errorf("backup email channel disabled")
	}

	// Per-email cooldown; a failed Redis round trip must not block the send.
	ok, err := s.RDB.SetNX(ctx, helpers.KeySignupCooldown(email), "1", resendCooldown).Result()
	if err == nil && !ok {
		return "", ErrEmailCooldown
	}

	data := tpl.VerifyData{
		AppName:         s.Cfg.AppName,
		Email:           email,
		University:      s.Cfg.UniversityName,
		ConfirmationURL: confirmationURL,
		Code:            code,
		ExpiresAt:       time.Now().Add(otpTTL),
	}
	job := mailer.EmailJob{
		MessageID: uuid.NewString(),
		To:        email,
		Template:  tpl.SignupVerify,
		Data:      data.ToMap(),
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil {
		// Nothing left the queue, so the cooldown must not hold.
		_ = helpers.RedisDel(ctx, s.RDB, helpers.KeySignupCooldown(email))
		return "", err
	}
	return job.MessageID, nil
}

// enqueueBackupEmail is best-effort: a dead queue must not fail the signup,
// since the provider's own email path is still in flight.
func (s *AuthService) enqueueBackupEmail(ctx context.Context, email, confirmationURL, code string) {
	if _, err := s.SendBackupEmail(ctx, email, confirmationURL, code); err != nil {
		s.Logger.WithError(err).WithField("email", email).Warn("backup verification email not enqueued")
	}
}

// isClientRejection distinguishes "the provider said no" from "the provider
// is unreachable"; only the former may fall through to the backup code.
func isClientRejection(err error) bool {
	for _, status := range []int{400, 401, 403, 404, 410, 422} {
		if supabase.IsStatus(err, status) {
			return true
		}
	}
	return false
}
