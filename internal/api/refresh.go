package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quasar/mclauncher-core/internal/core"
)

// RefreshManager coordinates Minecraft token refreshes across concurrent
// callers. A process can have many callers needing a fresh token for the
// same account at once (an instance about to launch, a background
// entitlement recheck); without coordination each would fire its own
// refresh request. RefreshManager keeps a single in-flight refresh per
// account id and fans the result out to every waiter.
type RefreshManager struct {
	client *AuthClient

	mu       sync.Mutex
	inFlight map[string]*refreshCall
}

type refreshCall struct {
	done    chan struct{}
	account *core.Account
	err     error
}

// NewRefreshManager creates a refresh coordinator bound to client.
func NewRefreshManager(client *AuthClient) *RefreshManager {
	return &RefreshManager{client: client, inFlight: make(map[string]*refreshCall)}
}

// Refresh returns acc unchanged if its token is not expired, otherwise
// refreshes it using the MSA refresh token. Concurrent callers refreshing
// the same account id share one outstanding request.
func (r *RefreshManager) Refresh(ctx context.Context, acc *core.Account) (*core.Account, error) {
	if !acc.IsExpired() {
		return acc, nil
	}

	r.mu.Lock()
	if call, ok := r.inFlight[acc.ID]; ok {
		r.mu.Unlock()
		select {
		case <-call.done:
			return call.account, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	r.inFlight[acc.ID] = call
	r.mu.Unlock()

	account, err := r.doRefresh(ctx, acc)
	call.account, call.err = account, err
	close(call.done)

	r.mu.Lock()
	delete(r.inFlight, acc.ID)
	r.mu.Unlock()

	return account, err
}

func (r *RefreshManager) doRefresh(ctx context.Context, acc *core.Account) (*core.Account, error) {
	if acc.MSARefreshToken == "" {
		return nil, fmt.Errorf("account %s has no refresh token", acc.ID)
	}

	msaToken, err := r.client.RefreshMSAToken(ctx, acc.MSARefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refreshing msa token: %w", err)
	}

	xboxToken, err := r.client.AuthenticateXbox(ctx, msaToken.AccessToken)
	if err != nil {
		return nil, err
	}
	xstsToken, err := r.client.AuthenticateXSTS(ctx, xboxToken.Token)
	if err != nil {
		return nil, err
	}
	if len(xstsToken.DisplayClaims.XUI) == 0 {
		return nil, fmt.Errorf("xsts response missing user hash")
	}

	mcAuth, err := r.client.LoginWithXbox(ctx, xstsToken.DisplayClaims.XUI[0].UHS, xstsToken.Token)
	if err != nil {
		return nil, err
	}

	refreshed := *acc
	refreshed.MSAAccessToken = msaToken.AccessToken
	if msaToken.RefreshToken != "" {
		refreshed.MSARefreshToken = msaToken.RefreshToken
	}
	refreshed.MCAccessToken = mcAuth.AccessToken
	refreshed.MCTokenExpiry = time.Now().Add(time.Duration(mcAuth.ExpiresIn) * time.Second)

	return &refreshed, nil
}
