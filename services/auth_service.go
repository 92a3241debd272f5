package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"venue-booking/internal/securestore"
	"venue-booking/internal/services/backend"
	"venue-booking/internal/status"
	"venue-booking/models"
)

// minVerificationCodeLen is checked before the backend round trip; the
// texted codes are never shorter.
const minVerificationCodeLen = 5

// Secure store keys.
const (
	keyRefreshToken = "refresh_token"
	keyProfile      = "profile"
)

// AuthBackend is the slice of the backend client the auth flow needs.
type AuthBackend interface {
	InitPhoneVerification(ctx context.Context, phoneNumber string) error
	CreateSession(ctx context.Context, phoneNumber, code string) (*backend.SessionGrant, error)
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Tokens, error)
	RefreshSession(ctx context.Context, refreshToken string) (*backend.Tokens, error)
	PopulateUser(ctx context.Context, bearer, firstName, lastName, email, dateOfBirth string) error
	GetProfile(ctx context.Context, bearer string) (*models.UserInfo, error)
}

// AuthService signs users in by phone number and keeps the session in
// the encrypted store. Accounts are password-less from the user's view;
// the session function provisions a password bound to a dummy email
// derived from the phone number, and that pair drives the token grants.
type AuthService struct {
	backend AuthBackend
	store   *securestore.Store

	// mu serializes token refreshes so concurrent callers cannot burn
	// the same refresh token twice.
	mu sync.Mutex
}

func NewAuthService(b AuthBackend, store *securestore.Store) *AuthService {
	return &AuthService{backend: b, store: store}
}

// StartPhoneVerification asks the backend to text a code to the number.
func (s *AuthService) StartPhoneVerification(ctx context.Context, phoneNumber string) error {
	if phoneNumber == "" {
		return fmt.Errorf("StartPhoneVerification: empty phone number")
	}
	return s.backend.InitPhoneVerification(ctx, phoneNumber)
}

// VerifyCode exchanges the texted code for a session and reports
// whether the profile still needs population. Codes below the minimum
// length are rejected locally as status.ErrCodeTooShort.
func (s *AuthService) VerifyCode(ctx context.Context, phoneNumber, code string) (bool, error) {
	if len(code) < minVerificationCodeLen {
		return false, status.ErrCodeTooShort
	}

	grant, err := s.backend.CreateSession(ctx, phoneNumber, code)
	if err != nil {
		return false, err
	}

	tokens, err := s.backend.SignInWithPassword(ctx, dummyEmail(phoneNumber), grant.Password)
	if err != nil {
		return false, fmt.Errorf("VerifyCode: sign in: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(keyRefreshToken, tokens.RefreshToken); err != nil {
		return false, fmt.Errorf("VerifyCode: store session: %v", err)
	}

	if !grant.NeedsPopulation {
		if err := s.cacheProfile(ctx, tokens.AccessToken); err != nil {
			return false, err
		}
	}
	return grant.NeedsPopulation, nil
}

// CompleteProfile writes first sign-in details onto the user row. The
// date of birth must be YYYY-MM-DD.
func (s *AuthService) CompleteProfile(ctx context.Context, firstName, lastName, email, dateOfBirth string) error {
	if _, err := time.Parse("2006-01-02", dateOfBirth); err != nil {
		return fmt.Errorf("CompleteProfile: date of birth must be YYYY-MM-DD: %v", err)
	}

	bearer, err := s.Bearer(ctx)
	if err != nil {
		return err
	}

	if err := s.backend.PopulateUser(ctx, bearer, firstName, lastName, email, dateOfBirth); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cacheProfile(ctx, bearer)
}

// Bearer refreshes the session and returns a fresh access token.
// Refreshing on every call keeps long-lived carts from dying on an
// expired token mid-checkout.
func (s *AuthService) Bearer(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refresh, err := s.store.Get(keyRefreshToken)
	if errors.Is(err, securestore.ErrNotFound) {
		return "", status.ErrNotSignedIn
	}
	if err != nil {
		return "", fmt.Errorf("Bearer: %v", err)
	}

	tokens, err := s.backend.RefreshSession(ctx, refresh)
	if err != nil {
		return "", fmt.Errorf("Bearer: refresh: %v", err)
	}
	if err := s.store.Set(keyRefreshToken, tokens.RefreshToken); err != nil {
		return "", fmt.Errorf("Bearer: store session: %v", err)
	}
	return tokens.AccessToken, nil
}

// SignedIn reports whether a session is stored.
func (s *AuthService) SignedIn() bool {
	_, err := s.store.Get(keyRefreshToken)
	return err == nil
}

// Profile returns the signed-in user's profile, from the local cache
// when present.
func (s *AuthService) Profile(ctx context.Context) (*models.UserInfo, error) {
	if raw, err := s.store.Get(keyProfile); err == nil {
		var profile models.UserInfo
		if err := json.Unmarshal([]byte(raw), &profile); err == nil {
			return &profile, nil
		}
	}

	bearer, err := s.Bearer(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cacheProfile(ctx, bearer); err != nil {
		return nil, err
	}

	raw, err := s.store.Get(keyProfile)
	if err != nil {
		return nil, fmt.Errorf("Profile: %v", err)
	}
	var profile models.UserInfo
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, fmt.Errorf("Profile: json.Unmarshal: %v", err)
	}
	return &profile, nil
}

// SignOut drops the stored session and profile.
func (s *AuthService) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(keyRefreshToken); err != nil {
		return fmt.Errorf("SignOut: %v", err)
	}
	if err := s.store.Delete(keyProfile); err != nil {
		return fmt.Errorf("SignOut: %v", err)
	}
	return nil
}

// cacheProfile fetches and stores the profile row. Callers hold s.mu.
func (s *AuthService) cacheProfile(ctx context.Context, bearer string) error {
	profile, err := s.backend.GetProfile(ctx, bearer)
	if err != nil {
		return fmt.Errorf("cacheProfile: %v", err)
	}
	buf, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("cacheProfile: json.Marshal: %v", err)
	}
	return s.store.Set(keyProfile, string(buf))
}

// dummyEmail derives the placeholder email a phone account signs in
// with. The address is never delivered to.
func dummyEmail(phoneNumber string) string {
	return phoneNumber + "@dummy.null"
}
