package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const userAgent = "lunaria/1.0"

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signUpResponse carries a session only when the server signs new accounts
// in immediately.
type signUpResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type apiError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// postSignUp posts the registration and returns the issued token, or nil
// when confirmation is pending. Retries up to 3 times on 429 (1s, 2s, 4s).
func (c *Client) postSignUp(ctx context.Context, email, password string) (*oauth2.Token, error) {
	payload, err := json.Marshal(signUpRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("encoding sign-up request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.delays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.delays[attempt-1]):
			}
		}

		body, err := c.doSingleRequest(ctx, payload)
		if err == nil {
			return parseSignUp(body)
		}
		if errors.Is(err, ErrRateLimited) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (c *Client) doSingleRequest(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.signUpURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.oauth.ClientID != "" {
		req.SetBasicAuth(c.oauth.ClientID, c.oauth.ClientSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 400:
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			if apiErr.Description != "" {
				return nil, fmt.Errorf("sign up failed (%d): %s: %s", resp.StatusCode, apiErr.Error, apiErr.Description)
			}
			return nil, fmt.Errorf("sign up failed (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("sign up failed: %s", resp.Status)
	}
	return body, nil
}

func parseSignUp(body []byte) (*oauth2.Token, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var resp signUpResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing sign-up response: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, nil
	}

	token := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return token, nil
}
