package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-booking/internal/securestore"
	"venue-booking/internal/services/backend"
	"venue-booking/internal/status"
	"venue-booking/models"
)

type fakeAuthBackend struct {
	grant   *backend.SessionGrant
	tokens  *backend.Tokens
	profile *models.UserInfo
	err     error

	initCalls      int
	populateBearer string
	signInEmail    string
	refreshedWith  string
}

func (f *fakeAuthBackend) InitPhoneVerification(ctx context.Context, phoneNumber string) error {
	f.initCalls++
	return f.err
}

func (f *fakeAuthBackend) CreateSession(ctx context.Context, phoneNumber, code string) (*backend.SessionGrant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.grant, nil
}

func (f *fakeAuthBackend) SignInWithPassword(ctx context.Context, email, password string) (*backend.Tokens, error) {
	f.signInEmail = email
	return f.tokens, nil
}

func (f *fakeAuthBackend) RefreshSession(ctx context.Context, refreshToken string) (*backend.Tokens, error) {
	f.refreshedWith = refreshToken
	return f.tokens, nil
}

func (f *fakeAuthBackend) PopulateUser(ctx context.Context, bearer, firstName, lastName, email, dateOfBirth string) error {
	f.populateBearer = bearer
	return f.err
}

func (f *fakeAuthBackend) GetProfile(ctx context.Context, bearer string) (*models.UserInfo, error) {
	return f.profile, nil
}

func newAuthFixture(t *testing.T, b AuthBackend) *AuthService {
	t.Helper()
	store, err := securestore.Open(filepath.Join(t.TempDir(), "store.bin"), "test-passphrase")
	require.NoError(t, err)
	return NewAuthService(b, store)
}

func TestAuthService_VerifyCode_TooShort(t *testing.T) {
	s := newAuthFixture(t, &fakeAuthBackend{})

	_, err := s.VerifyCode(context.Background(), "+15550001111", "1234")

	assert.ErrorIs(t, err, status.ErrCodeTooShort)
}

func TestAuthService_VerifyCode_WrongCode(t *testing.T) {
	s := newAuthFixture(t, &fakeAuthBackend{err: status.ErrWrongCode})

	_, err := s.VerifyCode(context.Background(), "+15550001111", "12345")

	assert.ErrorIs(t, err, status.ErrWrongCode)
	assert.False(t, s.SignedIn())
}

func TestAuthService_VerifyCode_SignsInWithDummyEmail(t *testing.T) {
	b := &fakeAuthBackend{
		grant:   &backend.SessionGrant{Password: "pw", NeedsPopulation: true},
		tokens:  &backend.Tokens{AccessToken: "at-1", RefreshToken: "rt-1"},
		profile: &models.UserInfo{ID: "user-1"},
	}
	s := newAuthFixture(t, b)

	needsPopulation, err := s.VerifyCode(context.Background(), "+15550001111", "12345")

	require.NoError(t, err)
	assert.True(t, needsPopulation)
	assert.Equal(t, "+15550001111@dummy.null", b.signInEmail)
	assert.True(t, s.SignedIn())
}

func TestAuthService_VerifyCode_ExistingUserCachesProfile(t *testing.T) {
	b := &fakeAuthBackend{
		grant:   &backend.SessionGrant{Password: "pw", NeedsPopulation: false},
		tokens:  &backend.Tokens{AccessToken: "at-1", RefreshToken: "rt-1"},
		profile: &models.UserInfo{ID: "user-1", FirstName: "Ada"},
	}
	s := newAuthFixture(t, b)

	needsPopulation, err := s.VerifyCode(context.Background(), "+15550001111", "12345")
	require.NoError(t, err)
	assert.False(t, needsPopulation)

	profile, err := s.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.Empty(t, b.refreshedWith, "cached profile must not trigger a refresh")
}

func TestAuthService_Bearer_RefreshesAndRotates(t *testing.T) {
	b := &fakeAuthBackend{
		grant:  &backend.SessionGrant{Password: "pw", NeedsPopulation: true},
		tokens: &backend.Tokens{AccessToken: "at-1", RefreshToken: "rt-1"},
	}
	s := newAuthFixture(t, b)

	_, err := s.VerifyCode(context.Background(), "+15550001111", "12345")
	require.NoError(t, err)

	b.tokens = &backend.Tokens{AccessToken: "at-2", RefreshToken: "rt-2"}

	bearer, err := s.Bearer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-2", bearer)
	assert.Equal(t, "rt-1", b.refreshedWith)

	// The rotated refresh token is stored for next time.
	b.tokens = &backend.Tokens{AccessToken: "at-3", RefreshToken: "rt-3"}
	_, err = s.Bearer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rt-2", b.refreshedWith)
}

func TestAuthService_Bearer_NotSignedIn(t *testing.T) {
	s := newAuthFixture(t, &fakeAuthBackend{})

	_, err := s.Bearer(context.Background())

	assert.ErrorIs(t, err, status.ErrNotSignedIn)
}

func TestAuthService_CompleteProfile_RejectsBadDateOfBirth(t *testing.T) {
	s := newAuthFixture(t, &fakeAuthBackend{})

	err := s.CompleteProfile(context.Background(), "Ada", "Lovelace", "ada@example.com", "12/10/1995")

	assert.Error(t, err)
}

func TestAuthService_CompleteProfile(t *testing.T) {
	b := &fakeAuthBackend{
		grant:   &backend.SessionGrant{Password: "pw", NeedsPopulation: true},
		tokens:  &backend.Tokens{AccessToken: "at-1", RefreshToken: "rt-1"},
		profile: &models.UserInfo{ID: "user-1", FirstName: "Ada"},
	}
	s := newAuthFixture(t, b)

	_, err := s.VerifyCode(context.Background(), "+15550001111", "12345")
	require.NoError(t, err)

	err = s.CompleteProfile(context.Background(), "Ada", "Lovelace", "ada@example.com", "1995-10-12")
	require.NoError(t, err)
	assert.Equal(t, "at-1", b.populateBearer)

	profile, err := s.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.FirstName)
}

func TestAuthService_SignOut(t *testing.T) {
	b := &fakeAuthBackend{
		grant:  &backend.SessionGrant{Password: "pw", NeedsPopulation: true},
		tokens: &backend.Tokens{AccessToken: "at-1", RefreshToken: "rt-1"},
	}
	s := newAuthFixture(t, b)

	_, err := s.VerifyCode(context.Background(), "+15550001111", "12345")
	require.NoError(t, err)
	require.True(t, s.SignedIn())

	require.NoError(t, s.SignOut())

	assert.False(t, s.SignedIn())
	_, err = s.Bearer(context.Background())
	assert.ErrorIs(t, err, status.ErrNotSignedIn)
}

func TestAuthService_StartPhoneVerification_EmptyNumber(t *testing.T) {
	b := &fakeAuthBackend{}
	s := newAuthFixture(t, b)

	err := s.StartPhoneVerification(context.Background(), "")

	assert.Error(t, err)
	assert.Zero(t, b.initCalls)
}
