package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	ihttp "github.com/abdul-hamid-achik/ideacheck/packages/http"
	"github.com/abdul-hamid-achik/ideacheck/packages/idea"
)

// ConfigError means no usable token could be determined from configuration
// or from the login response.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// AuthenticationError means the login call was rejected
type AuthenticationError struct {
	StatusCode int
	Body       string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("failed to authenticate: status code %d, content: %s", e.StatusCode, e.Body)
}

// Options controls how a token is resolved
type Options struct {
	StaticToken string
	Email       string
	Password    string

	// ClientOptions configure the temporary login client
	ClientOptions []ihttp.ClientOption
}

// Source reports where a resolved token came from
type Source string

const (
	SourceStatic Source = "static"
	SourceLogin  Source = "login"
)

// ResolveToken returns the static token when one is configured and performs
// exactly one login call otherwise.
func ResolveToken(ctx context.Context, baseURL string, opts Options) (string, Source, error) {
	if strings.TrimSpace(opts.StaticToken) != "" {
		return opts.StaticToken, SourceStatic, nil
	}

	if opts.Email == "" || opts.Password == "" {
		return "", "", &ConfigError{Reason: "no static token configured and login credentials are incomplete"}
	}

	token, err := Login(ctx, baseURL, opts.Email, opts.Password, opts.ClientOptions...)
	if err != nil {
		return "", "", err
	}
	return token, SourceLogin, nil
}

// Login posts credentials to the authentication endpoint and returns the
// accessToken from the response.
func Login(ctx context.Context, baseURL, email, password string, clientOpts ...ihttp.ClientOption) (string, error) {
	opts := append([]ihttp.ClientOption{ihttp.WithBaseURL(baseURL)}, clientOpts...)
	client := ihttp.NewClient(opts...)
	defer client.Close()

	resp, err := idea.NewClient(client).Authenticate(ctx, idea.Credentials{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &AuthenticationError{StatusCode: resp.StatusCode, Body: resp.BodyString()}
	}

	token := resp.JSON().Get("accessToken").String()
	if strings.TrimSpace(token) == "" {
		return "", &ConfigError{Reason: "failed to retrieve JWT token from the response"}
	}

	return token, nil
}
