package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"venue-booking/internal/status"
)

// SessionGrant is the create-session success body: a one-time password
// for the managed auth service plus whether the user row still needs
// profile population.
type SessionGrant struct {
	Password        string `json:"password"`
	NeedsPopulation bool   `json:"needsPopulation"`
}

// Tokens is the managed auth service's token pair.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// InitPhoneVerification asks the backend to text a verification code.
func (c *Client) InitPhoneVerification(ctx context.Context, phoneNumber string) error {
	code, body, err := c.callFunction(ctx, "init-phone-verification", map[string]string{
		"phoneNumber": phoneNumber,
	}, "")
	if err != nil {
		return fmt.Errorf("InitPhoneVerification: %v", err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("InitPhoneVerification: status %d: %s", code, body)
	}
	return nil
}

// CreateSession exchanges the texted code for a session grant. A 400
// with body "Wrong code" means the user mistyped the code.
func (c *Client) CreateSession(ctx context.Context, phoneNumber, verificationCode string) (*SessionGrant, error) {
	code, body, err := c.callFunction(ctx, "create-session", map[string]string{
		"phoneNumber": phoneNumber,
		"code":        verificationCode,
	}, "")
	if err != nil {
		return nil, fmt.Errorf("CreateSession: %v", err)
	}
	if code == http.StatusBadRequest && strings.TrimSpace(string(body)) == "Wrong code" {
		return nil, status.ErrWrongCode
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("CreateSession: status %d: %s", code, body)
	}

	var grant SessionGrant
	if err := json.Unmarshal(body, &grant); err != nil {
		return nil, fmt.Errorf("CreateSession: json.Unmarshal: %v", err)
	}
	return &grant, nil
}

// PopulateUser writes the profile details onto the authenticated user row.
func (c *Client) PopulateUser(ctx context.Context, bearer, firstName, lastName, email, dateOfBirth string) error {
	code, body, err := c.callFunction(ctx, "populate-user", map[string]string{
		"firstName":   firstName,
		"lastName":    lastName,
		"email":       email,
		"dateOfBirth": dateOfBirth,
	}, bearer)
	if err != nil {
		return fmt.Errorf("PopulateUser: %v", err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("PopulateUser: status %d: %s", code, body)
	}
	return nil
}

// SignInWithPassword performs a password grant against the managed auth
// service. Phone users sign in with the dummy email derived from their
// number, as the session function provisions them.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Tokens, error) {
	return c.tokenGrant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// RefreshSession trades a refresh token for a fresh token pair. Issued
// before every authenticated call, as the original client did.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Tokens, error) {
	return c.tokenGrant(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
}

func (c *Client) tokenGrant(ctx context.Context, grantType string, payload map[string]string) (*Tokens, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tokenGrant: json.Marshal: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/token?grant_type=%s", c.authURL, grantType), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tokenGrant: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokenGrant: http.Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokenGrant: %s: status %d", grantType, resp.StatusCode)
	}

	var tokens Tokens
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&tokens); err != nil {
		return nil, fmt.Errorf("tokenGrant: json.Decode: %v", err)
	}
	return &tokens, nil
}
