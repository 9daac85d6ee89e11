package user

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/identity-api/config"
	"github.com/jwalitptl/identity-api/internal/model"
	"github.com/jwalitptl/identity-api/internal/repository"
	"github.com/jwalitptl/identity-api/internal/service/role"
	"github.com/jwalitptl/identity-api/pkg/apperror"
	"github.com/jwalitptl/identity-api/pkg/logger"
	"github.com/jwalitptl/identity-api/pkg/security"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func copyUser(u *model.User) *model.User {
	cp := *u
	cp.Validations = append([]model.ValidationAttempt(nil), u.Validations...)
	cp.Roles = append([]string(nil), u.Roles...)
	return &cp
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	f.users[user.ID] = copyUser(user)
	return nil
}

func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return copyUser(user), nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return fmt.Errorf("not found")
	}
	f.users[user.ID] = copyUser(user)
	return nil
}

func (f *fakeUserRepo) UpdateValidation(_ context.Context, userID uuid.UUID, attempt *model.ValidationAttempt) error {
	user, ok := f.users[userID]
	if !ok {
		return fmt.Errorf("not found")
	}
	for i := range user.Validations {
		if user.Validations[i].Type == attempt.Type {
			user.Validations[i] = *attempt
			return nil
		}
	}
	return fmt.Errorf("validation not found")
}

func (f *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, _ *model.UserFilter) ([]*model.User, error) {
	var out []*model.User
	for _, user := range f.users {
		out = append(out, copyUser(user))
	}
	return out, nil
}

func (f *fakeUserRepo) DeleteExpired(_ context.Context, _ *model.ExpiryRule, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeRoleRepo struct {
	known map[string]bool
}

func (f *fakeRoleRepo) Exists(_ context.Context, name string) (bool, error) {
	return f.known[name], nil
}

type fakeEmailSender struct {
	sent []string
	fail bool
}

func (f *fakeEmailSender) Send(_ context.Context, to []string, _, _ string) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, to...)
	return nil
}

type fakeSMSSender struct {
	sent []string
}

func (f *fakeSMSSender) Send(_ context.Context, phone, _ string) error {
	f.sent = append(f.sent, phone)
	return nil
}

type fakeLimiter struct {
	counts map[string]int
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[key]++
	return f.counts[key] <= limit, nil
}

var _ repository.AttemptLimiter = (*fakeLimiter)(nil)

type fixture struct {
	svc   *Service
	repo  *fakeUserRepo
	email *fakeEmailSender
	sms   *fakeSMSSender
}

func newFixture(t *testing.T, opts ...func(*config.ValidationConfig)) *fixture {
	t.Helper()

	validation := config.ValidationConfig{
		EmailEnabled: true,
		PhoneEnabled: false,
		MaxTries:     3,
		MaxResends:   2,
	}
	for _, opt := range opts {
		opt(&validation)
	}

	hasher := security.NewPasswordHasher(security.HasherConfig{BcryptCost: 4, PBKDF2Iterations: 10000})
	policy := security.NewPasswordPolicy(security.PolicyConfig{MinLength: 10, MinClasses: 3, MaxRepeatRun: 2})

	repo := newFakeUserRepo()
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}

	svc := NewService(
		repo,
		hasher,
		policy,
		security.NewPassphraseGenerator(policy),
		role.NewValidator(&fakeRoleRepo{known: map[string]bool{"member": true, "admin": true}}),
		email,
		sms,
		&fakeLimiter{},
		validation,
		config.DefaultsConfig{Roles: []string{"member"}},
		logger.NewLogger(nil),
		nil,
	)

	return &fixture{svc: svc, repo: repo, email: email, sms: sms}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:     "alice@example.com",
		Name:      "Alice",
		Password:  "Abc123!@#xyz",
		Provider:  model.ProviderLocal,
		Algorithm: security.AlgorithmBcrypt,
	}
	require.NoError(t, f.svc.Register(context.Background(), u))

	stored := f.repo.users[u.ID]
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.Equal(t, security.AlgorithmBcrypt, stored.Algorithm)
	assert.Empty(t, stored.Password)
	assert.Equal(t, []string{"member"}, stored.Roles)

	ok, err := f.svc.Authenticate(context.Background(), "alice@example.com", "Abc123!@#xyz")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Authenticate(context.Background(), "alice@example.com", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterWeakPasswordRejected(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:    "bob@example.com",
		Name:     "Bob",
		Password: "aaa",
		Provider: model.ProviderLocal,
	}
	err := f.svc.Register(context.Background(), u)

	var policyErr *apperror.PolicyViolationError
	require.ErrorAs(t, err, &policyErr)
	assert.Contains(t, policyErr.Violations[0], "at least 10 characters")
	assert.GreaterOrEqual(t, len(policyErr.Violations), 2)

	// Nothing persisted
	assert.Empty(t, f.repo.users)
	assert.Empty(t, u.PasswordHash)
}

func TestRegisterWithoutPassword(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:    "carol@example.com",
		Name:     "Carol",
		Provider: "google",
	}
	require.NoError(t, f.svc.Register(context.Background(), u))

	stored := f.repo.users[u.ID]
	assert.Empty(t, stored.PasswordHash)

	// Authentication against a passwordless account is false, not an error
	ok, err := f.svc.Authenticate(context.Background(), "carol@example.com", "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterFederatedBypassesPolicy(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:    "dave@example.com",
		Name:     "Dave",
		Password: "weak",
		Provider: "google",
	}
	require.NoError(t, f.svc.Register(context.Background(), u))
	assert.NotEmpty(t, f.repo.users[u.ID].PasswordHash)
}

func TestRegisterUnknownRole(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:    "eve@example.com",
		Name:     "Eve",
		Provider: model.ProviderLocal,
		Roles:    []string{"superuser"},
	}
	err := f.svc.Register(context.Background(), u)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrRoleInvalid, appErr.Code)
	assert.Empty(t, f.repo.users)
}

func TestRegisterSurvivesEmailFailure(t *testing.T) {
	f := newFixture(t)
	f.email.fail = true

	u := &model.User{
		Email:    "frank@example.com",
		Name:     "Frank",
		Password: "Abc123!@#xyz",
		Provider: model.ProviderLocal,
	}
	require.NoError(t, f.svc.Register(context.Background(), u))
	assert.NotEmpty(t, f.repo.users)
}

func TestChangePasswordRejectionLeavesHashUntouched(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:    "gina@example.com",
		Name:     "Gina",
		Password: "Abc123!@#xyz",
		Provider: model.ProviderLocal,
	}
	require.NoError(t, f.svc.Register(context.Background(), u))
	before := f.repo.users[u.ID]

	err := f.svc.ChangePassword(context.Background(), u.ID, "short", "")
	var policyErr *apperror.PolicyViolationError
	require.ErrorAs(t, err, &policyErr)

	after := f.repo.users[u.ID]
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	assert.Equal(t, before.Salt, after.Salt)
	assert.Equal(t, before.Algorithm, after.Algorithm)
}

func TestChangePasswordMigratesAlgorithm(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:     "hank@example.com",
		Name:      "Hank",
		Password:  "Abc123!@#xyz",
		Provider:  model.ProviderLocal,
		Algorithm: security.AlgorithmPBKDF2,
	}
	require.NoError(t, f.svc.Register(context.Background(), u))
	require.Equal(t, security.AlgorithmPBKDF2, f.repo.users[u.ID].Algorithm)
	require.NotEmpty(t, f.repo.users[u.ID].Salt)

	// Old records verify under their stored tag
	ok, err := f.svc.Authenticate(context.Background(), "hank@example.com", "Abc123!@#xyz")
	require.NoError(t, err)
	assert.True(t, ok)

	// The change rehashes under the new algorithm
	require.NoError(t, f.svc.ChangePassword(context.Background(), u.ID, "Xyz789!@#abc", security.AlgorithmBcrypt))

	stored := f.repo.users[u.ID]
	assert.Equal(t, security.AlgorithmBcrypt, stored.Algorithm)
	assert.Empty(t, stored.Salt)

	ok, err = f.svc.Authenticate(context.Background(), "hank@example.com", "Xyz789!@#abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	f := newFixture(t)

	ok, err := f.svc.Authenticate(context.Background(), "ghost@example.com", "whatever")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticateThrottled(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:    "ivy@example.com",
		Name:     "Ivy",
		Password: "Abc123!@#xyz",
		Provider: model.ProviderLocal,
	}
	require.NoError(t, f.svc.Register(context.Background(), u))

	for i := 0; i < authAttemptLimit; i++ {
		_, err := f.svc.Authenticate(context.Background(), "ivy@example.com", "wrong")
		require.NoError(t, err)
	}

	// Even the right password is refused once over the limit
	ok, err := f.svc.Authenticate(context.Background(), "ivy@example.com", "Abc123!@#xyz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGeneratePassphrase(t *testing.T) {
	f := newFixture(t)

	passphrase, err := f.svc.GeneratePassphrase()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(passphrase), 20)
}

func TestVerifyContact(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:    "judy@example.com",
		Name:     "Judy",
		Provider: model.ProviderLocal,
	}
	require.NoError(t, f.svc.Register(context.Background(), u))

	stored := f.repo.users[u.ID]
	require.Len(t, stored.Validations, 1)
	code := stored.Validations[0].Code
	require.NotEmpty(t, code)

	// Wrong code increments the try counter
	err := f.svc.VerifyContact(context.Background(), u.ID, model.ContactEmail, "000000")
	require.Error(t, err)
	assert.Equal(t, 1, f.repo.users[u.ID].Validations[0].TryCount)
	assert.False(t, f.repo.users[u.ID].Validations[0].Validated)

	// Right code validates and clears the stored code
	require.NoError(t, f.svc.VerifyContact(context.Background(), u.ID, model.ContactEmail, code))
	assert.True(t, f.repo.users[u.ID].Validations[0].Validated)
	assert.Empty(t, f.repo.users[u.ID].Validations[0].Code)

	// Verifying again is a no-op
	require.NoError(t, f.svc.VerifyContact(context.Background(), u.ID, model.ContactEmail, "anything"))
}

func TestVerifyContactMaxTries(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:    "kate@example.com",
		Name:     "Kate",
		Provider: model.ProviderLocal,
	}
	require.NoError(t, f.svc.Register(context.Background(), u))
	code := f.repo.users[u.ID].Validations[0].Code

	for i := 0; i < 3; i++ {
		require.Error(t, f.svc.VerifyContact(context.Background(), u.ID, model.ContactEmail, "000000"))
	}

	// The cap holds even for the right code
	err := f.svc.VerifyContact(context.Background(), u.ID, model.ContactEmail, code)
	require.Error(t, err)
	assert.False(t, f.repo.users[u.ID].Validations[0].Validated)
}

func TestResendCode(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:    "liam@example.com",
		Name:     "Liam",
		Provider: model.ProviderLocal,
	}
	require.NoError(t, f.svc.Register(context.Background(), u))
	original := f.repo.users[u.ID].Validations[0].Code

	delivered, err := f.svc.ResendCode(context.Background(), u.ID, model.ContactEmail)
	require.NoError(t, err)
	assert.True(t, delivered)

	refreshed := f.repo.users[u.ID].Validations[0]
	assert.NotEqual(t, original, refreshed.Code)
	assert.Equal(t, 1, refreshed.ResendCount)

	// Second resend is the cap
	_, err = f.svc.ResendCode(context.Background(), u.ID, model.ContactEmail)
	require.NoError(t, err)

	_, err = f.svc.ResendCode(context.Background(), u.ID, model.ContactEmail)
	assert.Error(t, err)
}

func TestResendReportsDeliveryFailure(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:    "mia@example.com",
		Name:     "Mia",
		Provider: model.ProviderLocal,
	}
	require.NoError(t, f.svc.Register(context.Background(), u))

	f.email.fail = true
	delivered, err := f.svc.ResendCode(context.Background(), u.ID, model.ContactEmail)
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestRegisterRequiredPhone(t *testing.T) {
	f := newFixture(t, func(v *config.ValidationConfig) {
		v.RequiredFields = []string{model.ContactPhone}
	})

	u := &model.User{
		Email:    "nina@example.com",
		Name:     "Nina",
		Provider: model.ProviderLocal,
	}
	err := f.svc.Register(context.Background(), u)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrBadRequest, appErr.Code)
}

func TestRegisterInvalidPhone(t *testing.T) {
	f := newFixture(t)

	u := &model.User{
		Email:    "oly@example.com",
		Name:     "Oly",
		Phone:    "not-a-phone",
		Provider: model.ProviderLocal,
	}
	err := f.svc.Register(context.Background(), u)
	require.Error(t, err)
	assert.Empty(t, f.repo.users)
}

func TestRegisterSeedsPhoneValidation(t *testing.T) {
	f := newFixture(t, func(v *config.ValidationConfig) {
		v.PhoneEnabled = true
	})

	u := &model.User{
		Email:    "pam@example.com",
		Name:     "Pam",
		Phone:    "+15551234567",
		Provider: model.ProviderLocal,
	}
	require.NoError(t, f.svc.Register(context.Background(), u))

	stored := f.repo.users[u.ID]
	require.Len(t, stored.Validations, 2)
	assert.Equal(t, model.ContactEmail, stored.Validations[0].Type)
	assert.Equal(t, model.ContactPhone, stored.Validations[1].Type)
	assert.Equal(t, []string{"+15551234567"}, f.sms.sent)
}
