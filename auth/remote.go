package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stonixai/dashcore/session"
)

// LoginPath is where Remote posts credentials.
const LoginPath = "/auth/login"

// LoginRequest is the JSON body posted to LoginPath.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the JSON body of a successful login.
type LoginResponse struct {
	Assertion    string `json:"assertion"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Remote authenticates against a monitoring service over HTTP.
type Remote struct {
	baseURL  string
	client   *http.Client
	verifier *Verifier
	header   http.Header
}

// NewRemote returns a Remote posting to baseURL+LoginPath. A nil client
// selects http.DefaultClient.
func NewRemote(baseURL string, client *http.Client, verifier *Verifier, header http.Header) (*Remote, error) {
	if verifier == nil {
		return nil, errors.New("remote authenticator requires an assertion verifier")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		verifier: verifier,
		header:   header.Clone(),
	}, nil
}

func (r *Remote) VerifyCredentials(ctx context.Context, identity, secret string) (session.Credentials, error) {
	body, err := json.Marshal(LoginRequest{Username: identity, Password: secret})
	if err != nil {
		return session.Credentials{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+LoginPath, bytes.NewReader(body))
	if err != nil {
		return session.Credentials{}, err
	}
	for k, v := range r.header {
		req.Header[k] = append([]string(nil), v...)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return session.Credentials{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return session.Credentials{}, session.ErrRejected
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return session.Credentials{}, fmt.Errorf("login endpoint returned HTTP %d", resp.StatusCode)
	}

	var out LoginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return session.Credentials{}, fmt.Errorf("decode login response: %w", err)
	}
	user, err := r.verifier.Verify(out.Assertion)
	if err != nil {
		return session.Credentials{}, err
	}
	if user.Username != identity {
		return session.Credentials{}, fmt.Errorf("%w: assertion is for %q", ErrInvalidAssertion, user.Username)
	}

	return session.Credentials{
		User:         user,
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}, nil
}
