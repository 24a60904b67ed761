package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bookshop/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Mock store, cache, and mailer for testing

type mockAuthStore struct {
	users     map[primitive.ObjectID]*models.User
	byEmail   map[string]*models.User
	createErr error
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		users:   make(map[primitive.ObjectID]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (m *mockAuthStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.byEmail[email], nil
}

func (m *mockAuthStore) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.users[id], nil
}

func (m *mockAuthStore) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	if m.createErr != nil {
		return primitive.NilObjectID, m.createErr
	}
	id := primitive.NewObjectID()
	u := *user
	u.ID = id
	m.users[id] = &u
	m.byEmail[u.Email] = &u
	return id, nil
}

func (m *mockAuthStore) SetUserOTP(ctx context.Context, id primitive.ObjectID, otp string, expiry time.Time) error {
	if u, ok := m.users[id]; ok {
		u.OTP = otp
		u.OTPExpiry = &expiry
	}
	return nil
}

func (m *mockAuthStore) ActivateUser(ctx context.Context, id primitive.ObjectID) error {
	if u, ok := m.users[id]; ok {
		u.IsActivated = true
		u.OTP = ""
		u.OTPExpiry = nil
	}
	return nil
}

func (m *mockAuthStore) UpdateUserPassword(ctx context.Context, id primitive.ObjectID, hashedPassword string) error {
	if u, ok := m.users[id]; ok {
		u.Password = hashedPassword
		u.OTP = ""
		u.OTPExpiry = nil
	}
	return nil
}

type mockTokenCache struct {
	tokens map[string]string
}

func newMockTokenCache() *mockTokenCache {
	return &mockTokenCache{tokens: make(map[string]string)}
}

func (m *mockTokenCache) StoreToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	m.tokens[userID] = token
	return nil
}

func (m *mockTokenCache) Token(ctx context.Context, userID string) (string, error) {
	return m.tokens[userID], nil
}

func (m *mockTokenCache) DeleteToken(ctx context.Context, userID string) error {
	delete(m.tokens, userID)
	return nil
}

type mockMailer struct {
	sent    []string
	sendErr error
}

func (m *mockMailer) SendVerificationOTP(to, name, otp string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, to)
	return nil
}

func (m *mockMailer) SendPasswordResetOTP(to, otp string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, to)
	return nil
}

func newTestAuthService() (*AuthService, *mockAuthStore, *mockTokenCache, *mockMailer) {
	store := newMockAuthStore()
	cache := newMockTokenCache()
	mailer := &mockMailer{}
	svc := &AuthService{
		Store:     store,
		Cache:     cache,
		Mailer:    mailer,
		JWTSecret: "test-secret",
		TokenTTL:  7 * 24 * time.Hour,
	}
	return svc, store, cache, mailer
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, store, _, _ := newTestAuthService()

	user, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	stored := store.byEmail["ana@x.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret1")))
	assert.False(t, user.IsActivated)
	assert.Len(t, user.OTP, 6)
	require.NotNil(t, user.OTPExpiry)
	assert.WithinDuration(t, time.Now().Add(3*time.Minute), *user.OTPExpiry, 5*time.Second)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterSurvivesEmailFailure(t *testing.T) {
	svc, store, _, mailer := newTestAuthService()
	mailer.sendErr = errors.New("smtp down")

	_, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	assert.NotNil(t, store.byEmail["ana@x.com"])
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, store, _, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), "Ana", "  Ana@X.Com ", "secret1")
	require.NoError(t, err)
	assert.NotNil(t, store.byEmail["ana@x.com"])
}

func TestVerifyOTPActivatesOnce(t *testing.T) {
	svc, store, _, _ := newTestAuthService()

	user, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.VerifyOTP(context.Background(), "ana@x.com", user.OTP))
	stored := store.byEmail["ana@x.com"]
	assert.True(t, stored.IsActivated)
	assert.Empty(t, stored.OTP)
	assert.Nil(t, stored.OTPExpiry)

	// Activation is one-way
	err = svc.VerifyOTP(context.Background(), "ana@x.com", user.OTP)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyOTPErrors(t *testing.T) {
	svc, store, _, _ := newTestAuthService()
	user, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	t.Run("unknown user", func(t *testing.T) {
		err := svc.VerifyOTP(context.Background(), "nobody@x.com", "123456")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong code", func(t *testing.T) {
		wrong := "000000"
		if user.OTP == wrong {
			wrong = "000001"
		}
		err := svc.VerifyOTP(context.Background(), "ana@x.com", wrong)
		assert.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("expired code", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		store.byEmail["ana@x.com"].OTPExpiry = &past
		err := svc.VerifyOTP(context.Background(), "ana@x.com", user.OTP)
		assert.ErrorIs(t, err, ErrOTPExpired)
	})
}

func TestResendOTPRegeneratesCode(t *testing.T) {
	svc, store, _, mailer := newTestAuthService()
	user, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	first := user.OTP

	require.NoError(t, svc.ResendOTP(context.Background(), "ana@x.com"))
	stored := store.byEmail["ana@x.com"]
	assert.Len(t, stored.OTP, 6)
	assert.False(t, stored.IsActivated)
	assert.Equal(t, []string{"ana@x.com", "ana@x.com"}, mailer.sent)

	// A fresh code is overwhelmingly likely; tolerate the rare collision by
	// checking the expiry moved instead of the code text.
	if stored.OTP == first {
		assert.WithinDuration(t, time.Now().Add(3*time.Minute), *stored.OTPExpiry, 5*time.Second)
	}

	require.NoError(t, svc.VerifyOTP(context.Background(), "ana@x.com", stored.OTP))
	err = svc.ResendOTP(context.Background(), "ana@x.com")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestLoginRequiresActivation(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	_, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "ana@x.com", "secret1")
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestLoginIssuesRevocableToken(t *testing.T) {
	svc, store, cache, _ := newTestAuthService()
	user, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.VerifyOTP(context.Background(), "ana@x.com", user.OTP))

	token, loggedIn, err := svc.Login(context.Background(), "ana@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "ana@x.com", loggedIn.Email)

	id := store.byEmail["ana@x.com"].ID.Hex()
	cached, err := cache.Token(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, token, cached)

	// Logout empties the cache entry; a second logout is a no-op.
	require.NoError(t, svc.Logout(context.Background(), id))
	cached, err = cache.Token(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, cached)
	require.NoError(t, svc.Logout(context.Background(), id))
}

func TestLoginMergesCredentialErrors(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	user, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.VerifyOTP(context.Background(), "ana@x.com", user.OTP))

	_, _, unknownErr := svc.Login(context.Background(), "nobody@x.com", "secret1")
	_, _, wrongPassErr := svc.Login(context.Background(), "ana@x.com", "wrong")
	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongPassErr, ErrInvalidCredentials)
}

func TestNewLoginOverwritesCacheEntry(t *testing.T) {
	svc, store, cache, _ := newTestAuthService()
	user, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.VerifyOTP(context.Background(), "ana@x.com", user.OTP))

	_, _, err = svc.Login(context.Background(), "ana@x.com", "secret1")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond) // IssuedAt has second resolution
	second, _, err := svc.Login(context.Background(), "ana@x.com", "secret1")
	require.NoError(t, err)

	id := store.byEmail["ana@x.com"].ID.Hex()
	cached, err := cache.Token(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, second, cached)
}

func TestForgetAndResetPassword(t *testing.T) {
	svc, store, _, _ := newTestAuthService()
	user, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.VerifyOTP(context.Background(), "ana@x.com", user.OTP))

	assert.ErrorIs(t, svc.ForgetPassword(context.Background(), "nobody@x.com"), ErrUserNotFound)

	require.NoError(t, svc.ForgetPassword(context.Background(), "ana@x.com"))
	stored := store.byEmail["ana@x.com"]
	require.Len(t, stored.OTP, 6)
	require.NotNil(t, stored.OTPExpiry)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *stored.OTPExpiry, 5*time.Second)

	wrong := "000000"
	if stored.OTP == wrong {
		wrong = "000001"
	}
	assert.ErrorIs(t, svc.ResetPassword(context.Background(), "ana@x.com", wrong, "newpass1"), ErrInvalidOTP)

	require.NoError(t, svc.ResetPassword(context.Background(), "ana@x.com", stored.OTP, "newpass1"))
	assert.Empty(t, stored.OTP)
	assert.Nil(t, stored.OTPExpiry)

	_, _, err = svc.Login(context.Background(), "ana@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(context.Background(), "ana@x.com", "newpass1")
	assert.NoError(t, err)
}

func TestUpdatePassword(t *testing.T) {
	svc, store, _, _ := newTestAuthService()
	_, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	id := store.byEmail["ana@x.com"].ID

	assert.ErrorIs(t, svc.UpdatePassword(context.Background(), id, "wrong", "newpass1"), ErrWrongOldPassword)
	require.NoError(t, svc.UpdatePassword(context.Background(), id, "secret1", "newpass1"))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.users[id].Password), []byte("newpass1")))
}
