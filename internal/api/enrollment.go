package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quasar/mclauncher-core/internal/core"
)

// EnrollmentStatus names the state an in-progress account enrollment is in.
type EnrollmentStatus string

const (
	EnrollmentRequestingCode  EnrollmentStatus = "requesting_code"
	EnrollmentPollingCode     EnrollmentStatus = "polling_code"
	EnrollmentMcLogin         EnrollmentStatus = "mc_login"
	EnrollmentPopulateAccount EnrollmentStatus = "populate_account"
	EnrollmentComplete        EnrollmentStatus = "complete"
	EnrollmentFailed          EnrollmentStatus = "failed"
)

// EnrollmentUpdate is pushed to the caller's progress channel as the
// enrollment advances; UserCode/VerificationURI are only populated once the
// device code step completes.
type EnrollmentUpdate struct {
	Status          EnrollmentStatus
	UserCode        string
	VerificationURI string
	Err             error
	Account         *core.Account
}

// Enrollment drives the device-code -> MSA -> Xbox -> XSTS -> Minecraft
// chain as an explicit state machine, replacing a single blocking call with
// a sequence a caller can observe and cancel. Only one run may be in
// flight per Enrollment at a time.
type Enrollment struct {
	client   *AuthClient
	updates  chan EnrollmentUpdate
	cancel   context.CancelFunc
	mu       sync.Mutex
	running  bool
}

// NewEnrollment creates an enrollment bound to client. Call Start to begin
// the flow; updates are delivered on the returned channel until it closes.
func NewEnrollment(client *AuthClient) *Enrollment {
	return &Enrollment{
		client:  client,
		updates: make(chan EnrollmentUpdate, 8),
	}
}

// Start begins the device-code flow in the background. It returns an error
// immediately if an enrollment is already running on this instance.
func (e *Enrollment) Start(ctx context.Context) (<-chan EnrollmentUpdate, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, fmt.Errorf("enrollment already in progress")
	}
	e.running = true
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	go e.run(ctx)
	return e.updates, nil
}

// Cancel aborts an in-progress enrollment. It is a no-op if nothing is
// running.
func (e *Enrollment) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Enrollment) run(ctx context.Context) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.updates)
	}()

	e.emit(EnrollmentUpdate{Status: EnrollmentRequestingCode})
	deviceCode, err := e.client.RequestDeviceCode(ctx)
	if err != nil {
		e.fail(err)
		return
	}
	e.emit(EnrollmentUpdate{
		Status:          EnrollmentPollingCode,
		UserCode:        deviceCode.UserCode,
		VerificationURI: deviceCode.VerificationURI,
	})

	msaToken, err := e.client.PollForToken(ctx, deviceCode)
	if err != nil {
		e.fail(err)
		return
	}

	e.emit(EnrollmentUpdate{Status: EnrollmentMcLogin})
	xboxToken, err := e.client.AuthenticateXbox(ctx, msaToken.AccessToken)
	if err != nil {
		e.fail(err)
		return
	}
	xstsToken, err := e.client.AuthenticateXSTS(ctx, xboxToken.Token)
	if err != nil {
		e.fail(err)
		return
	}
	if len(xstsToken.DisplayClaims.XUI) == 0 {
		e.fail(fmt.Errorf("xsts response missing user hash"))
		return
	}
	uhs := xstsToken.DisplayClaims.XUI[0].UHS

	mcAuth, err := e.client.LoginWithXbox(ctx, uhs, xstsToken.Token)
	if err != nil {
		e.fail(err)
		return
	}

	e.emit(EnrollmentUpdate{Status: EnrollmentPopulateAccount})
	if _, err := e.client.CheckEntitlement(ctx, mcAuth.AccessToken); err != nil {
		e.fail(fmt.Errorf("entitlement check: %w", err))
		return
	}

	profile, err := e.client.FetchProfile(ctx, mcAuth.AccessToken)
	if err != nil {
		e.fail(err)
		return
	}

	id := profile.ID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}

	account := &core.Account{
		ID:              id,
		Name:            profile.Name,
		Type:            core.AccountTypeMSA,
		MSAAccessToken:  msaToken.AccessToken,
		MSARefreshToken: msaToken.RefreshToken,
		MCAccessToken:   mcAuth.AccessToken,
		MCTokenExpiry:   time.Now().Add(time.Duration(mcAuth.ExpiresIn) * time.Second),
	}
	e.emit(EnrollmentUpdate{Status: EnrollmentComplete, Account: account})
}

func (e *Enrollment) fail(err error) {
	e.emit(EnrollmentUpdate{Status: EnrollmentFailed, Err: err})
}

func (e *Enrollment) emit(u EnrollmentUpdate) {
	select {
	case e.updates <- u:
	default:
	}
}
