package funifiersvc

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/edupilot/core/user"
)

var _ user.Authenticator = (*Client)(nil)

type (
	tokenRequest struct {
		APIKey    string `json:"apiKey"`
		GrantType string `json:"grant_type"`
		Username  string `json:"username"`
		Password  string `json:"password"`
	}

	tokenResponse struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
)

// Authenticate exchanges the teacher's credentials for a Funifier access token.
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	var tok tokenResponse
	err := c.do(ctx, request{
		method: rest.Post,
		path:   "/auth/token",
		body: tokenRequest{
			APIKey:    c.apiKey,
			GrantType: "password",
			Username:  username,
			Password:  password,
		},
	}, &tok)
	if err != nil {
		if IsStatus(err, http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden) {
			return "", user.ErrAuthenticationFailed
		}
		return "", errors.Wrap(err, "requesting token")
	}
	if tok.AccessToken == "" {
		return "", user.ErrAuthenticationFailed
	}
	return tok.AccessToken, nil
}
