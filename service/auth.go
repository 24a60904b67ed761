package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/bookshop/backend/middleware"
	"github.com/bookshop/backend/models"
	"github.com/bookshop/backend/utils"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	verifyOTPTTL = 3 * time.Minute
	resetOTPTTL  = 10 * time.Minute
)

// AuthStore is the slice of the user store the session manager needs.
type AuthStore interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	SetUserOTP(ctx context.Context, id primitive.ObjectID, otp string, expiry time.Time) error
	ActivateUser(ctx context.Context, id primitive.ObjectID) error
	UpdateUserPassword(ctx context.Context, id primitive.ObjectID, hashedPassword string) error
}

// TokenCache registers the active token per user so logout can revoke it.
type TokenCache interface {
	StoreToken(ctx context.Context, userID, token string, ttl time.Duration) error
	Token(ctx context.Context, userID string) (string, error)
	DeleteToken(ctx context.Context, userID string) error
}

// AuthService owns the account lifecycle: registration with OTP verification,
// login issuing a revocable JWT, logout, and the OTP-gated password reset.
type AuthService struct {
	Store     AuthStore
	Cache     TokenCache
	Mailer    Mailer
	JWTSecret string
	TokenTTL  time.Duration
}

// Register creates an inactive account with a pending OTP and mails the code.
// Mail failure is logged, not returned: the account exists either way and the
// code can be re-sent.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	existing, err := s.Store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		return nil, err
	}
	expiry := time.Now().Add(verifyOTPTTL)
	now := time.Now()
	user := &models.User{
		Name:        name,
		Email:       email,
		Password:    string(hash),
		OTP:         otp,
		OTPExpiry:   &expiry,
		IsActivated: false,
		Role:        models.RoleUser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.Store.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id

	if err := s.Mailer.SendVerificationOTP(email, name, otp); err != nil {
		log.Printf("register: email to %s failed but user created: %v", email, err)
	}
	return user, nil
}

// VerifyOTP activates a pending account. Activation is one-way: a second call
// fails with ErrAlreadyVerified.
func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) error {
	user, err := s.Store.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.IsActivated {
		return ErrAlreadyVerified
	}
	if user.OTP == "" || user.OTP != otp {
		return ErrInvalidOTP
	}
	if user.OTPExpiry == nil || time.Now().After(*user.OTPExpiry) {
		return ErrOTPExpired
	}
	return s.Store.ActivateUser(ctx, user.ID)
}

// ResendOTP regenerates the verification code for a still-pending account.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.Store.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.IsActivated {
		return ErrAlreadyVerified
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.Store.SetUserOTP(ctx, user.ID, otp, time.Now().Add(verifyOTPTTL)); err != nil {
		return err
	}
	if err := s.Mailer.SendVerificationOTP(email, user.Name, otp); err != nil {
		log.Printf("resend-otp: email to %s failed: %v", email, err)
	}
	return nil
}

// Login verifies the credentials, signs a token, and registers it in the
// session cache. A missing user and a wrong password return the same error so
// the endpoint cannot be used to enumerate accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.Store.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsActivated {
		return "", nil, ErrNotVerified
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.createToken(user)
	if err != nil {
		return "", nil, err
	}
	if err := s.Cache.StoreToken(ctx, user.ID.Hex(), token, s.TokenTTL); err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Logout revokes the user's session. Idempotent.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.Cache.DeleteToken(ctx, userID)
}

// ForgetPassword sets a reset OTP and mails it (best-effort).
func (s *AuthService) ForgetPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.Store.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.Store.SetUserOTP(ctx, user.ID, otp, time.Now().Add(resetOTPTTL)); err != nil {
		return err
	}
	if err := s.Mailer.SendPasswordResetOTP(email, otp); err != nil {
		log.Printf("forget-password: email to %s failed: %v", email, err)
	}
	return nil
}

// ResetPassword replaces the password after OTP validation and clears the OTP
// fields.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	user, err := s.Store.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.OTP == "" || user.OTP != otp {
		return ErrInvalidOTP
	}
	if user.OTPExpiry == nil || time.Now().After(*user.OTPExpiry) {
		return ErrOTPExpired
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Store.UpdateUserPassword(ctx, user.ID, string(hash))
}

// UpdatePassword changes the password for a logged-in user after checking the
// old one.
func (s *AuthService) UpdatePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	user, err := s.Store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrWrongOldPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Store.UpdateUserPassword(ctx, user.ID, string(hash))
}

func (s *AuthService) createToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &middleware.Claims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.JWTSecret))
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
