// Package signup implements the multi-step signup flow as a server-side
// state machine. Each flow is a short-lived session that advances through
// role selection, account details, OTP verification, an optional shop
// address step (shopkeepers only), and terms acceptance. The terminal step
// registers the account with the auth collaborator and auto-logs-in with the
// collected credentials.
package signup

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/kirana-labs/kiranapos/internal/otp"
	"github.com/kirana-labs/kiranapos/internal/store"
	"github.com/kirana-labs/kiranapos/pkg/kv"
)

// Step names mirror the signup screens.
type Step string

const (
	StepUserType       Step = "userType"
	StepAccountDetails Step = "accountDetails"
	StepVerifyOTP      Step = "verifyOTP"
	StepShopAddress    Step = "shopAddress"
	StepTerms          Step = "termsAndConditions"
	StepComplete       Step = "complete"
)

// FlowTTL bounds how long an unfinished signup session is kept.
const FlowTTL = 30 * time.Minute

var (
	// ErrNotFound is returned for an unknown or expired flow ID.
	ErrNotFound = errors.New("signup: flow not found")
	// ErrInvalidOTP is the single error for every OTP failure mode; wrong,
	// expired, and never-issued codes are indistinguishable to the caller.
	ErrInvalidOTP = errors.New("signup: invalid OTP")
	// ErrComplete is returned when advancing or rewinding a finished flow.
	ErrComplete = errors.New("signup: flow already complete")
)

// GuardError reports which transition guard blocked an advance. The flow
// stays on its current step.
type GuardError struct {
	Step   Step
	Reason string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("signup: step %s: %s", e.Step, e.Reason)
}

// Form accumulates everything collected across the steps.
type Form struct {
	UserType        string `json:"userType"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	PhoneNumber     string `json:"phoneNumber"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	StoreName       string `json:"storeName"`
	Pincode         string `json:"pincode"`
	State           string `json:"state"`
	TermsAccepted   bool   `json:"termsAccepted"`
	PrivacyAccepted bool   `json:"privacyAccepted"`
}

// Flow is one signup session.
type Flow struct {
	ID        string `json:"id"`
	Step      Step   `json:"step"`
	Form      Form   `json:"form"`
	OTPSent   bool   `json:"otpSent"`
	CreatedAt string `json:"createdAt"`
}

// Patch carries the per-step input submitted with an advance. The OTP field
// is transient and never stored on the flow.
type Patch struct {
	Form
	OTP string `json:"otp"`
}

// Registrar is the external auth collaborator: account creation plus the
// automatic login that follows it.
type Registrar interface {
	Register(ctx context.Context, f Form) error
	Login(ctx context.Context, username, password string) (token string, err error)
}

// Service drives signup flows.
type Service struct {
	flows     *kv.Store[Flow]
	otp       *otp.Engine
	registrar Registrar
	clock     *kv.Clock
}

// NewService creates a flow service backed by the given store and engines.
func NewService(flows *kv.Store[Flow], engine *otp.Engine, registrar Registrar, clock *kv.Clock) *Service {
	return &Service{flows: flows, otp: engine, registrar: registrar, clock: clock}
}

// Start opens a new flow at the role-selection step.
func (s *Service) Start() Flow {
	f := Flow{
		ID:        s.flows.NextID(),
		Step:      StepUserType,
		CreatedAt: s.clock.Now().UTC().Format(time.RFC3339),
	}
	s.flows.SetTTL(f.ID, f, FlowTTL)
	return f
}

// Get returns a flow by ID.
func (s *Service) Get(id string) (Flow, error) {
	f, ok := s.flows.Get(id)
	if !ok {
		return Flow{}, ErrNotFound
	}
	return f, nil
}

// Advance merges the patch into the flow's form, checks the current step's
// guard, and moves to the next step. Entering the OTP step issues a code as
// a side effect. Completing the terms step registers the account and logs in
// with the collected credentials; the session token is returned alongside
// the finished flow.
//
// A failed guard or collaborator call leaves the flow on its current step so
// the caller can retry.
func (s *Service) Advance(ctx context.Context, id string, p Patch) (Flow, string, error) {
	f, ok := s.flows.Get(id)
	if !ok {
		return Flow{}, "", ErrNotFound
	}

	switch f.Step {
	case StepUserType:
		if p.UserType != store.RoleShopkeeper && p.UserType != store.RoleCustomer {
			return f, "", &GuardError{Step: f.Step, Reason: "a role must be selected"}
		}
		f.Form.UserType = p.UserType
		f.Step = StepAccountDetails

	case StepAccountDetails:
		f.Form.FirstName = p.FirstName
		f.Form.LastName = p.LastName
		f.Form.PhoneNumber = p.PhoneNumber
		f.Form.Password = p.Password
		f.Form.ConfirmPassword = p.ConfirmPassword
		if err := validateAccountDetails(f.Form); err != nil {
			f.Form.Password = ""
			f.Form.ConfirmPassword = ""
			return f, "", err
		}
		// Entering the verification step issues a code for the number just
		// collected.
		if _, err := s.otp.Issue(ctx, f.Form.PhoneNumber); err != nil {
			return f, "", fmt.Errorf("sending verification code: %w", err)
		}
		f.OTPSent = true
		f.Step = StepVerifyOTP

	case StepVerifyOTP:
		if !otpShape.MatchString(p.OTP) {
			return f, "", &GuardError{Step: f.Step, Reason: "a 6-digit code is required"}
		}
		if !s.otp.Verify(f.Form.PhoneNumber, p.OTP) {
			return f, "", ErrInvalidOTP
		}
		if f.Form.UserType == store.RoleShopkeeper {
			f.Step = StepShopAddress
		} else {
			f.Step = StepTerms
		}

	case StepShopAddress:
		f.Form.StoreName = p.StoreName
		f.Form.Pincode = p.Pincode
		f.Form.State = p.State
		if f.Form.StoreName == "" || f.Form.Pincode == "" || f.Form.State == "" {
			return f, "", &GuardError{Step: f.Step, Reason: "store name, pincode, and state are required"}
		}
		f.Step = StepTerms

	case StepTerms:
		f.Form.TermsAccepted = p.TermsAccepted
		f.Form.PrivacyAccepted = p.PrivacyAccepted
		if !f.Form.TermsAccepted || !f.Form.PrivacyAccepted {
			return f, "", &GuardError{Step: f.Step, Reason: "terms and privacy policy must both be accepted"}
		}
		if err := s.registrar.Register(ctx, f.Form); err != nil {
			return f, "", fmt.Errorf("registering account: %w", err)
		}
		token, err := s.registrar.Login(ctx, f.Form.PhoneNumber, f.Form.Password)
		if err != nil {
			// Registration stuck; the caller falls back to the login page,
			// matching the reference flow.
			return f, "", fmt.Errorf("logging in after registration: %w", err)
		}
		f.Step = StepComplete
		s.flows.SetTTL(id, f, FlowTTL)
		return f, token, nil

	case StepComplete:
		return f, "", ErrComplete

	default:
		return f, "", fmt.Errorf("signup: unknown step %q", f.Step)
	}

	s.flows.SetTTL(id, f, FlowTTL)
	return f, "", nil
}

// Back rewinds one step, mirroring the forward order. Customers skip the
// shop-address step in both directions.
func (s *Service) Back(id string) (Flow, error) {
	f, ok := s.flows.Get(id)
	if !ok {
		return Flow{}, ErrNotFound
	}

	switch f.Step {
	case StepUserType:
		// Already at the first step; no-op.
	case StepAccountDetails:
		f.Step = StepUserType
	case StepVerifyOTP:
		f.Step = StepAccountDetails
	case StepShopAddress:
		f.Step = StepVerifyOTP
	case StepTerms:
		if f.Form.UserType == store.RoleShopkeeper {
			f.Step = StepShopAddress
		} else {
			f.Step = StepVerifyOTP
		}
	case StepComplete:
		return f, ErrComplete
	}

	s.flows.SetTTL(id, f, FlowTTL)
	return f, nil
}

// ResendOTP re-issues a code for the flow's phone number without changing
// state. Valid only on the verification step.
func (s *Service) ResendOTP(ctx context.Context, id string) (Flow, error) {
	f, ok := s.flows.Get(id)
	if !ok {
		return Flow{}, ErrNotFound
	}
	if f.Step != StepVerifyOTP {
		return f, &GuardError{Step: f.Step, Reason: "not on the verification step"}
	}
	if _, err := s.otp.Issue(ctx, f.Form.PhoneNumber); err != nil {
		return f, fmt.Errorf("resending verification code: %w", err)
	}
	return f, nil
}

// Steps returns the ordered step names for the flow's role, for progress
// display. Before a role is chosen the shopkeeper path is assumed.
func (f Flow) Steps() []Step {
	steps := []Step{StepUserType, StepAccountDetails, StepVerifyOTP}
	if f.Form.UserType != store.RoleCustomer {
		steps = append(steps, StepShopAddress)
	}
	return append(steps, StepTerms)
}

var (
	otpShape   = regexp.MustCompile(`^[0-9]{6}$`)
	phoneShape = regexp.MustCompile(`^[0-9]{10}$`)
)

func validateAccountDetails(f Form) error {
	switch {
	case f.FirstName == "":
		return &GuardError{Step: StepAccountDetails, Reason: "first name is required"}
	case f.LastName == "":
		return &GuardError{Step: StepAccountDetails, Reason: "last name is required"}
	case f.PhoneNumber == "":
		return &GuardError{Step: StepAccountDetails, Reason: "phone number is required"}
	case !phoneShape.MatchString(f.PhoneNumber):
		return &GuardError{Step: StepAccountDetails, Reason: "phone number must be 10 digits"}
	case f.Password == "":
		return &GuardError{Step: StepAccountDetails, Reason: "password is required"}
	case f.Password != f.ConfirmPassword:
		return &GuardError{Step: StepAccountDetails, Reason: "passwords do not match"}
	}
	return nil
}
