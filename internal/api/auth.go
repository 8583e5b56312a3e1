package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirana-labs/kiranapos/internal/otp"
	"github.com/kirana-labs/kiranapos/internal/signup"
	"github.com/kirana-labs/kiranapos/internal/store"
)

var (
	// ErrInvalidCredentials covers unknown usernames and wrong passwords
	// alike; login failures are not distinguished to the caller.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrPhoneTaken is returned when registering an already-known number.
	ErrPhoneTaken = errors.New("auth: phone number already registered")
)

// Auth implements registration and session issuance against the domain
// store. It satisfies signup.Registrar so completed signup flows register
// and log in through the same path as the direct endpoints.
type Auth struct {
	store         *store.MemoryStore
	otp           *otp.Engine
	logger        *slog.Logger
	rewardPercent int64
}

// NewAuth creates the auth service. rewardPercent seeds new shops' reward
// rate.
func NewAuth(st *store.MemoryStore, engine *otp.Engine, logger *slog.Logger, rewardPercent int64) *Auth {
	return &Auth{store: st, otp: engine, logger: logger, rewardPercent: rewardPercent}
}

// Register creates the account plus its role-specific record: a shop for
// shopkeepers, a loyalty customer (zero points) for customers.
func (a *Auth) Register(ctx context.Context, f signup.Form) error {
	if _, exists := a.store.AccountByPhone(f.PhoneNumber); exists {
		return ErrPhoneTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(f.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := a.store.Clock.Now().UTC().Format(time.RFC3339)
	acct := store.Account{
		ID:           a.store.Accounts.NextID(),
		UserType:     f.UserType,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		PhoneNumber:  f.PhoneNumber,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	a.store.Accounts.Set(acct.ID, acct)

	switch f.UserType {
	case store.RoleShopkeeper:
		shop := store.Shop{
			ID:            a.store.Shops.NextID(),
			OwnerID:       acct.ID,
			Name:          f.StoreName,
			Pincode:       f.Pincode,
			State:         f.State,
			RewardPercent: a.rewardPercent,
			CreatedAt:     now,
		}
		a.store.Shops.Set(shop.ID, shop)
	case store.RoleCustomer:
		cust := store.Customer{
			ID:          a.store.Customers.NextID(),
			FirstName:   f.FirstName,
			LastName:    f.LastName,
			PhoneNumber: f.PhoneNumber,
			CreatedAt:   now,
		}
		a.store.Customers.Set(cust.ID, cust)
	}

	a.logger.Info("account registered", "accountId", acct.ID, "role", acct.UserType)
	return nil
}

// Login checks the password for the account whose phone number is username
// and issues an opaque session token.
func (a *Auth) Login(ctx context.Context, username, password string) (string, error) {
	acct, ok := a.store.AccountByPhone(username)
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.issueSession(acct), nil
}

// LoginWithOTP verifies a previously issued code for the phone number and
// issues a session. All OTP failures collapse to ErrInvalidCredentials.
func (a *Auth) LoginWithOTP(ctx context.Context, phoneNumber, code string) (string, error) {
	acct, ok := a.store.AccountByPhone(phoneNumber)
	if !ok {
		// Still burn a verify so response shape does not reveal whether the
		// number has an account.
		a.otp.Verify(phoneNumber, code)
		return "", ErrInvalidCredentials
	}
	if !a.otp.Verify(phoneNumber, code) {
		return "", ErrInvalidCredentials
	}
	return a.issueSession(acct), nil
}

// AccountForToken resolves a bearer token to its account.
func (a *Auth) AccountForToken(token string) (store.Account, bool) {
	sess, ok := a.store.Sessions.Get(token)
	if !ok {
		return store.Account{}, false
	}
	return a.store.Accounts.Get(sess.AccountID)
}

func (a *Auth) issueSession(acct store.Account) string {
	token := uuid.NewString()
	a.store.Sessions.Set(token, store.Session{
		Token:     token,
		AccountID: acct.ID,
		CreatedAt: a.store.Clock.Now().UTC().Format(time.RFC3339),
	})
	return token
}
