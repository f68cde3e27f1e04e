package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/oauth2/github"
)

// Profile is the identity an OAuth provider vouches for, already mapped to
// CourseHub's user fields.
type Profile struct {
	Provider string
	ID       string // stable account id at the provider
	Name     string
	Email    string
	Image    string
}

// Provider runs the Authorization Code flow against one identity provider.
//
//  1. AuthURL sends the browser to the provider with a CSRF state.
//  2. The provider redirects back to the callback with a short-lived code.
//  3. Exchange trades the code for an access token (server to server) and
//     fetches the user's profile with it.
type Provider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// ProviderConfig holds the credentials registered with the provider.
// CallbackURL must match the registered redirect URL exactly.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Enabled reports whether credentials are present.
func (c ProviderConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type googleUserInfo struct {
	Sub        string `json:"sub"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Picture    string `json:"picture"`
}

// GoogleProvider signs users in with Google's OpenID Connect userinfo.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(cfg ProviderConfig) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
	}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange maps the userinfo claims: the display name is
// "given_name family_name" when Google provides both parts, otherwise the
// plain name claim.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	client, err := exchangeClient(ctx, p.config, code)
	if err != nil {
		return nil, err
	}

	var info googleUserInfo
	if err := getJSON(ctx, client, p.userInfoURL, &info); err != nil {
		return nil, fmt.Errorf("auth: google userinfo: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("auth: google returned a profile without a subject")
	}

	name := strings.TrimSpace(info.GivenName + " " + info.FamilyName)
	if info.GivenName == "" || info.FamilyName == "" {
		name = info.Name
	}

	return &Profile{
		Provider: p.Name(),
		ID:       info.Sub,
		Name:     name,
		Email:    info.Email,
		Image:    info.Picture,
	}, nil
}

type gitHubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"` // empty when hidden in GitHub settings
	AvatarURL string `json:"avatar_url"`
}

type gitHubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider signs users in with a GitHub OAuth App.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

// NewGitHubProvider requests "read:user" for the profile and "user:email"
// so hidden addresses can still be read from /user/emails.
func NewGitHubProvider(cfg ProviderConfig) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiURL: "https://api.github.com",
	}
}

func (p *GitHubProvider) Name() string { return "github" }

func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	client, err := exchangeClient(ctx, p.config, code)
	if err != nil {
		return nil, err
	}

	var gh gitHubUser
	if err := getJSON(ctx, client, p.apiURL+"/user", &gh); err != nil {
		return nil, fmt.Errorf("auth: github /user: %w", err)
	}
	if gh.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	if gh.Email == "" {
		var emails []gitHubEmail
		if err := getJSON(ctx, client, p.apiURL+"/user/emails", &emails); err != nil {
			return nil, fmt.Errorf("auth: github /user/emails: %w", err)
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				gh.Email = e.Email
				break
			}
		}
	}

	name := gh.Name
	if name == "" {
		name = gh.Login
	}

	return &Profile{
		Provider: p.Name(),
		ID:       strconv.FormatInt(gh.ID, 10),
		Name:     name,
		Email:    gh.Email,
		Image:    gh.AvatarURL,
	}, nil
}

// exchangeClient trades code for a token and returns an *http.Client that
// adds "Authorization: Bearer <token>" to every request.
func exchangeClient(ctx context.Context, cfg *oauth2.Config, code string) (*http.Client, error) {
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	return cfg.Client(ctx, token), nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
