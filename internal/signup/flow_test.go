package signup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirana-labs/kiranapos/internal/otp"
	"github.com/kirana-labs/kiranapos/pkg/kv"
)

// codeCapture records the last OTP dispatched per phone number.
type codeCapture struct {
	mu    sync.Mutex
	codes map[string]string
}

var codePattern = regexp.MustCompile(`[0-9]{6}`)

func (c *codeCapture) Send(_ context.Context, to, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[to] = codePattern.FindString(body)
	return nil
}

func (c *codeCapture) last(to string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[to]
}

// fakeRegistrar records registrations and can be made to fail.
type fakeRegistrar struct {
	registered  []Form
	registerErr error
	loginErr    error
}

func (r *fakeRegistrar) Register(_ context.Context, f Form) error {
	if r.registerErr != nil {
		return r.registerErr
	}
	r.registered = append(r.registered, f)
	return nil
}

func (r *fakeRegistrar) Login(_ context.Context, username, password string) (string, error) {
	if r.loginErr != nil {
		return "", r.loginErr
	}
	return "tok_" + username, nil
}

func newService(t *testing.T) (*Service, *codeCapture, *fakeRegistrar, *kv.Clock) {
	t.Helper()
	clock := kv.NewClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	capture := &codeCapture{codes: make(map[string]string)}
	engine := otp.New(kv.New[otp.Record]("otp", clock), capture, logger, otp.DefaultTTL)
	registrar := &fakeRegistrar{}
	svc := NewService(kv.New[Flow]("signup", clock), engine, registrar, clock)
	return svc, capture, registrar, clock
}

func accountDetails(phone string) Patch {
	return Patch{Form: Form{
		FirstName:       "Asha",
		LastName:        "Patel",
		PhoneNumber:     phone,
		Password:        "secret123",
		ConfirmPassword: "secret123",
	}}
}

func TestShopkeeperFullFlow(t *testing.T) {
	svc, capture, registrar, _ := newService(t)
	ctx := context.Background()
	phone := "9876543210"

	f := svc.Start()
	assert.Equal(t, StepUserType, f.Step)

	f, _, err := svc.Advance(ctx, f.ID, Patch{Form: Form{UserType: "Shopkeeper"}})
	require.NoError(t, err)
	assert.Equal(t, StepAccountDetails, f.Step)

	f, _, err = svc.Advance(ctx, f.ID, accountDetails(phone))
	require.NoError(t, err)
	assert.Equal(t, StepVerifyOTP, f.Step)
	assert.True(t, f.OTPSent)
	require.NotEmpty(t, capture.last(phone), "entering the step should dispatch a code")

	f, _, err = svc.Advance(ctx, f.ID, Patch{OTP: capture.last(phone)})
	require.NoError(t, err)
	assert.Equal(t, StepShopAddress, f.Step)

	f, _, err = svc.Advance(ctx, f.ID, Patch{Form: Form{StoreName: "Asha Kirana", Pincode: "560001", State: "Karnataka"}})
	require.NoError(t, err)
	assert.Equal(t, StepTerms, f.Step)

	f, token, err := svc.Advance(ctx, f.ID, Patch{Form: Form{TermsAccepted: true, PrivacyAccepted: true}})
	require.NoError(t, err)
	assert.Equal(t, StepComplete, f.Step)
	assert.Equal(t, "tok_"+phone, token)
	require.Len(t, registrar.registered, 1)
	assert.Equal(t, "Asha Kirana", registrar.registered[0].StoreName)
}

func TestCustomerSkipsShopAddress(t *testing.T) {
	svc, capture, _, _ := newService(t)
	ctx := context.Background()
	phone := "9000000001"

	f := svc.Start()
	f, _, err := svc.Advance(ctx, f.ID, Patch{Form: Form{UserType: "Customer"}})
	require.NoError(t, err)
	f, _, err = svc.Advance(ctx, f.ID, accountDetails(phone))
	require.NoError(t, err)

	f, _, err = svc.Advance(ctx, f.ID, Patch{OTP: capture.last(phone)})
	require.NoError(t, err)
	assert.Equal(t, StepTerms, f.Step, "customers go straight to terms")

	// Backward navigation also skips the shop-address step.
	f, err = svc.Back(f.ID)
	require.NoError(t, err)
	assert.Equal(t, StepVerifyOTP, f.Step)

	assert.NotContains(t, f.Steps(), StepShopAddress)
}

func TestShopkeeperBackFromTerms(t *testing.T) {
	svc, capture, _, _ := newService(t)
	ctx := context.Background()
	phone := "9000000002"

	f := svc.Start()
	f, _, _ = svc.Advance(ctx, f.ID, Patch{Form: Form{UserType: "Shopkeeper"}})
	f, _, _ = svc.Advance(ctx, f.ID, accountDetails(phone))
	f, _, err := svc.Advance(ctx, f.ID, Patch{OTP: capture.last(phone)})
	require.NoError(t, err)
	f, _, err = svc.Advance(ctx, f.ID, Patch{Form: Form{StoreName: "S", Pincode: "110001", State: "Delhi"}})
	require.NoError(t, err)

	f, err = svc.Back(f.ID)
	require.NoError(t, err)
	assert.Equal(t, StepShopAddress, f.Step)
}

func TestGuards(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	f := svc.Start()

	// No role selected.
	_, _, err := svc.Advance(ctx, f.ID, Patch{})
	var guard *GuardError
	require.ErrorAs(t, err, &guard)
	assert.Equal(t, StepUserType, guard.Step)

	got, err := svc.Get(f.ID)
	require.NoError(t, err)
	assert.Equal(t, StepUserType, got.Step, "failed guard must not advance")

	f, _, err = svc.Advance(ctx, f.ID, Patch{Form: Form{UserType: "Customer"}})
	require.NoError(t, err)

	// Mismatched passwords.
	p := accountDetails("9000000003")
	p.ConfirmPassword = "different"
	_, _, err = svc.Advance(ctx, f.ID, p)
	require.ErrorAs(t, err, &guard)
	assert.Contains(t, guard.Reason, "passwords")

	// Malformed phone number.
	p = accountDetails("12345")
	_, _, err = svc.Advance(ctx, f.ID, p)
	require.ErrorAs(t, err, &guard)
	assert.Contains(t, guard.Reason, "10 digits")
}

func TestWrongOTPHoldsPosition(t *testing.T) {
	svc, capture, _, _ := newService(t)
	ctx := context.Background()
	phone := "9000000004"

	f := svc.Start()
	f, _, _ = svc.Advance(ctx, f.ID, Patch{Form: Form{UserType: "Customer"}})
	f, _, err := svc.Advance(ctx, f.ID, accountDetails(phone))
	require.NoError(t, err)

	wrong := "000000"
	if capture.last(phone) == wrong {
		wrong = "000001"
	}
	_, _, err = svc.Advance(ctx, f.ID, Patch{OTP: wrong})
	assert.ErrorIs(t, err, ErrInvalidOTP)

	got, _ := svc.Get(f.ID)
	assert.Equal(t, StepVerifyOTP, got.Step)

	// Correct code still works after the failed attempt.
	_, _, err = svc.Advance(ctx, f.ID, Patch{OTP: capture.last(phone)})
	require.NoError(t, err)
}

func TestResendOTPInvalidatesOldCode(t *testing.T) {
	svc, capture, _, _ := newService(t)
	ctx := context.Background()
	phone := "9000000005"

	f := svc.Start()
	f, _, _ = svc.Advance(ctx, f.ID, Patch{Form: Form{UserType: "Customer"}})
	f, _, err := svc.Advance(ctx, f.ID, accountDetails(phone))
	require.NoError(t, err)

	first := capture.last(phone)
	f, err = svc.ResendOTP(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, StepVerifyOTP, f.Step, "resend must not change state")

	second := capture.last(phone)
	if first != second {
		_, _, err = svc.Advance(ctx, f.ID, Patch{OTP: first})
		assert.ErrorIs(t, err, ErrInvalidOTP)
	}
	_, _, err = svc.Advance(ctx, f.ID, Patch{OTP: second})
	require.NoError(t, err)
}

func TestRegistrarFailureHoldsPosition(t *testing.T) {
	svc, capture, registrar, _ := newService(t)
	ctx := context.Background()
	phone := "9000000006"

	f := svc.Start()
	f, _, _ = svc.Advance(ctx, f.ID, Patch{Form: Form{UserType: "Customer"}})
	f, _, _ = svc.Advance(ctx, f.ID, accountDetails(phone))
	f, _, err := svc.Advance(ctx, f.ID, Patch{OTP: capture.last(phone)})
	require.NoError(t, err)

	registrar.registerErr = errors.New("backend unavailable")
	_, _, err = svc.Advance(ctx, f.ID, Patch{Form: Form{TermsAccepted: true, PrivacyAccepted: true}})
	require.Error(t, err)

	got, _ := svc.Get(f.ID)
	assert.Equal(t, StepTerms, got.Step, "collaborator failure must hold position for retry")

	registrar.registerErr = nil
	_, token, err := svc.Advance(ctx, f.ID, Patch{Form: Form{TermsAccepted: true, PrivacyAccepted: true}})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestExpiredFlowNotFound(t *testing.T) {
	svc, _, _, clock := newService(t)

	f := svc.Start()
	clock.Advance(FlowTTL + FlowTTL)

	_, err := svc.Get(f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
