package user

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/identity-api/config"
	"github.com/jwalitptl/identity-api/internal/model"
	"github.com/jwalitptl/identity-api/internal/notifier"
	"github.com/jwalitptl/identity-api/internal/repository"
	"github.com/jwalitptl/identity-api/internal/service/role"
	"github.com/jwalitptl/identity-api/pkg/apperror"
	"github.com/jwalitptl/identity-api/pkg/logger"
	"github.com/jwalitptl/identity-api/pkg/metrics"
	"github.com/jwalitptl/identity-api/pkg/security"
)

const (
	codeLength       = 6
	authAttemptLimit = 10
	authWindow       = 15 * time.Minute
)

type UserServicer interface {
	Register(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, filter *model.UserFilter) ([]*model.User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, password string, algorithm security.Algorithm) error
	Authenticate(ctx context.Context, email, password string) (bool, error)
	GeneratePassphrase() (string, error)
	VerifyContact(ctx context.Context, id uuid.UUID, contactType, code string) error
	ResendCode(ctx context.Context, id uuid.UUID, contactType string) (bool, error)
}

type Service struct {
	repo       repository.UserRepository
	hasher     *security.PasswordHasher
	policy     *security.PasswordPolicy
	passphrase *security.PassphraseGenerator
	roles      *role.Validator
	email      notifier.EmailSender
	sms        notifier.SMSSender
	limiter    repository.AttemptLimiter
	validation config.ValidationConfig
	defaults   config.DefaultsConfig
	log        *logger.Logger
	metrics    *metrics.Metrics
}

func NewService(
	repo repository.UserRepository,
	hasher *security.PasswordHasher,
	policy *security.PasswordPolicy,
	passphrase *security.PassphraseGenerator,
	roles *role.Validator,
	email notifier.EmailSender,
	sms notifier.SMSSender,
	limiter repository.AttemptLimiter,
	validation config.ValidationConfig,
	defaults config.DefaultsConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:       repo,
		hasher:     hasher,
		policy:     policy,
		passphrase: passphrase,
		roles:      roles,
		email:      email,
		sms:        sms,
		limiter:    limiter,
		validation: validation,
		defaults:   defaults,
		log:        log,
		metrics:    m,
	}
}

// Register creates a new identity record. The password is optional; a
// federated account may never set one. Verification emails are
// fire-and-forget: a delivery failure is logged, never fatal.
func (s *Service) Register(ctx context.Context, user *model.User) error {
	if user.Provider == "" {
		user.Provider = model.ProviderLocal
	}

	if err := s.validateUser(user); err != nil {
		return err
	}

	if len(user.Roles) == 0 {
		user.Roles = append(user.Roles, s.defaults.Roles...)
	}
	for _, name := range user.Roles {
		exists, err := s.roles.RoleExists(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to validate roles: %w", err)
		}
		if !exists {
			return apperror.RoleInvalid(name)
		}
	}

	if err := s.PreparePasswordChange(user, user.Password, user.Algorithm); err != nil {
		return err
	}
	user.Password = ""

	if err := s.seedValidations(user); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.dispatchCodes(ctx, user)
	return nil
}

func (s *Service) validateUser(user *model.User) error {
	if user.Email == "" {
		return apperror.BadRequest("email is required", nil)
	}
	if user.Name == "" {
		return apperror.BadRequest("name is required", nil)
	}
	for _, field := range s.validation.RequiredFields {
		if field == model.ContactPhone && user.Phone == "" {
			return apperror.BadRequest("phone is required", nil)
		}
	}
	if !model.ValidPhone(user.Phone, user.Provider, false) {
		return apperror.BadRequest("invalid phone number", nil)
	}
	return nil
}

// PreparePasswordChange gates a plaintext password through the strength
// policy, generates a fresh salt for the chosen algorithm and writes the
// hash onto the record. The record is only mutated when every step
// succeeds. An empty plaintext is a no-op: the account keeps whatever
// credential state it had.
func (s *Service) PreparePasswordChange(user *model.User, plaintext string, algorithm security.Algorithm) error {
	if plaintext == "" {
		return nil
	}

	if user.IsLocal() {
		if result := s.policy.Evaluate(plaintext); !result.OK {
			if s.metrics != nil {
				s.metrics.PolicyViolations.Inc()
			}
			return apperror.NewPolicyViolation(result.Violations)
		}
	}

	if algorithm == "" {
		algorithm = s.hasher.Default()
	}

	salt, err := s.hasher.GenerateSalt(algorithm)
	if err != nil {
		return apperror.HashingUnavailable(err)
	}

	start := time.Now()
	hash, err := s.hasher.Hash(plaintext, salt, algorithm)
	if err != nil {
		return apperror.HashingUnavailable(err)
	}
	if s.metrics != nil {
		s.metrics.HashOperations.WithLabelValues(string(algorithm)).Inc()
		s.metrics.HashLatency.WithLabelValues(string(algorithm)).Observe(time.Since(start).Seconds())
	}

	user.PasswordHash = hash
	user.Salt = salt
	user.Algorithm = algorithm
	return nil
}

// ChangePassword rehashes the stored credential under the given algorithm,
// or the deployment default when none is chosen. A policy violation leaves
// the stored hash, salt and algorithm untouched.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, password string, algorithm security.Algorithm) error {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperror.NotFound("user", err)
	}

	if password == "" {
		return apperror.BadRequest("password is required", nil)
	}

	if err := s.PreparePasswordChange(user, password, algorithm); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Authenticate verifies a candidate password against the stored credential
// using the record's own algorithm tag. It returns false for a missing
// user, a missing password and a mismatch alike; none of those cases is
// distinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (bool, error) {
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "auth:"+email, authAttemptLimit, authWindow)
		if err != nil {
			return false, fmt.Errorf("failed to check attempt limit: %w", err)
		}
		if !allowed {
			s.countAuth("throttled")
			return false, nil
		}
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.countAuth("failure")
		return false, nil
	}

	ok := s.hasher.Verify(password, user.PasswordHash, user.Salt, user.Algorithm)
	if ok {
		s.countAuth("success")
	} else {
		s.countAuth("failure")
	}
	return ok, nil
}

func (s *Service) countAuth(outcome string) {
	if s.metrics != nil {
		s.metrics.AuthAttempts.WithLabelValues(outcome).Inc()
	}
}

// GeneratePassphrase returns a random policy-compliant passphrase.
func (s *Service) GeneratePassphrase() (string, error) {
	passphrase, err := s.passphrase.Generate()
	if err != nil {
		return "", apperror.GenerationFailure(err)
	}
	return passphrase, nil
}

// VerifyContact checks a submitted code against the pending attempt for
// the channel and marks it validated on match.
func (s *Service) VerifyContact(ctx context.Context, id uuid.UUID, contactType, code string) error {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperror.NotFound("user", err)
	}

	attempt := user.Validation(contactType)
	if attempt == nil {
		return apperror.NotFound("validation", nil)
	}
	if attempt.Validated {
		return nil
	}
	if s.validation.MaxTries > 0 && attempt.TryCount >= s.validation.MaxTries {
		return apperror.BadRequest("too many verification attempts", nil)
	}

	now := time.Now()
	attempt.TryCount++
	attempt.LastTryAt = &now

	if subtle.ConstantTimeCompare([]byte(attempt.Code), []byte(code)) == 1 {
		attempt.Validated = true
		attempt.Code = ""
	}

	if err := s.repo.UpdateValidation(ctx, user.ID, attempt); err != nil {
		return fmt.Errorf("failed to record verification attempt: %w", err)
	}

	if !attempt.Validated {
		return apperror.BadRequest("invalid verification code", nil)
	}
	return nil
}

// ResendCode regenerates and redelivers the verification code for a
// channel. The returned bool is the delivery outcome; an unconfigured or
// failing channel is not an error.
func (s *Service) ResendCode(ctx context.Context, id uuid.UUID, contactType string) (bool, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, apperror.NotFound("user", err)
	}

	attempt := user.Validation(contactType)
	if attempt == nil {
		return false, apperror.NotFound("validation", nil)
	}
	if attempt.Validated {
		return false, apperror.BadRequest("contact already validated", nil)
	}
	if s.validation.MaxResends > 0 && attempt.ResendCount >= s.validation.MaxResends {
		return false, apperror.BadRequest("too many resends", nil)
	}

	if s.limiter != nil && s.validation.ResendWindow > 0 {
		allowed, err := s.limiter.Allow(ctx, fmt.Sprintf("resend:%s:%s", user.ID, contactType), 1, s.validation.ResendWindow)
		if err != nil {
			return false, fmt.Errorf("failed to check resend limit: %w", err)
		}
		if !allowed {
			return false, apperror.BadRequest("resend requested too soon", nil)
		}
	}

	code, err := generateCode()
	if err != nil {
		return false, apperror.Internal(err)
	}

	attempt.Code = code
	attempt.ResendCount++
	if err := s.repo.UpdateValidation(ctx, user.ID, attempt); err != nil {
		return false, fmt.Errorf("failed to store new code: %w", err)
	}

	return s.deliverCode(ctx, user, attempt), nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("user", err)
	}
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context, filter *model.UserFilter) ([]*model.User, error) {
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// seedValidations creates one pending attempt per enabled contact channel.
func (s *Service) seedValidations(user *model.User) error {
	now := time.Now()

	if s.validation.EmailEnabled {
		code, err := generateCode()
		if err != nil {
			return apperror.Internal(err)
		}
		user.Validations = append(user.Validations, model.ValidationAttempt{
			Type:      model.ContactEmail,
			Code:      code,
			CreatedAt: now,
		})
	}

	if s.validation.PhoneEnabled && user.Phone != "" {
		code, err := generateCode()
		if err != nil {
			return apperror.Internal(err)
		}
		user.Validations = append(user.Validations, model.ValidationAttempt{
			Type:      model.ContactPhone,
			Code:      code,
			CreatedAt: now,
		})
	}

	return nil
}

// dispatchCodes sends the initial verification codes. Failures degrade to a
// log line and a metric; registration already succeeded.
func (s *Service) dispatchCodes(ctx context.Context, user *model.User) {
	for i := range user.Validations {
		if user.Validations[i].Validated {
			continue
		}
		delivered := s.deliverCode(ctx, user, &user.Validations[i])
		if !delivered {
			s.log.Info("verification code not delivered", "user_id", user.ID, "channel", user.Validations[i].Type)
		}
	}
}

func (s *Service) deliverCode(ctx context.Context, user *model.User, attempt *model.ValidationAttempt) bool {
	var err error
	switch attempt.Type {
	case model.ContactEmail:
		body := fmt.Sprintf("<p>Hi %s,</p><p>Your verification code is <b>%s</b>.</p>", user.Name, attempt.Code)
		err = s.email.Send(ctx, []string{user.Email}, "Verify your email", body)
	case model.ContactPhone:
		err = s.sms.Send(ctx, user.Phone, fmt.Sprintf("Your verification code is %s", attempt.Code))
	default:
		err = fmt.Errorf("unsupported channel: %s", attempt.Type)
	}

	if err != nil {
		if s.metrics != nil {
			s.metrics.NotificationsFailed.WithLabelValues(attempt.Type).Inc()
		}
		s.log.Error(err, "failed to send verification code", "channel", attempt.Type)
		return false
	}

	if s.metrics != nil {
		s.metrics.NotificationsSent.WithLabelValues(attempt.Type).Inc()
	}
	return true
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("code generation: %w", err)
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}
