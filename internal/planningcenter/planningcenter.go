// Package planningcenter talks to Planning Center Online: OAuth2 sign-in for
// staff and the People API for pushing new contacts.
package planningcenter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/rtepass1986/reallifeberlin/internal/domain"
)

const DefaultBaseURL = "https://api.planningcenteronline.com"

var (
	ErrNotConfigured    = errors.New("planning center is not configured")
	ErrUnexpectedStatus = errors.New("unexpected planning center response")
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AppID        string
	APIKey       string
}

type Client struct {
	baseURL string
	oauth   *oauth2.Config
	appID   string
	apiKey  string
	http    *http.Client
}

func New(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	c := &Client{
		baseURL: base,
		appID:   cfg.AppID,
		apiKey:  cfg.APIKey,
		http:    hc,
	}
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		c.oauth = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth/authorize",
				TokenURL:  base + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
	}
	return c
}

// OAuthConfigured reports whether staff sign-in is available.
func (c *Client) OAuthConfigured() bool { return c.oauth != nil }

// PeopleConfigured reports whether the People API credentials are set.
func (c *Client) PeopleConfigured() bool { return c.appID != "" && c.apiKey != "" }

func (c *Client) AuthCodeURL(state string) (string, error) {
	if c.oauth == nil {
		return "", ErrNotConfigured
	}
	return c.oauth.AuthCodeURL(state), nil
}

type UserInfo struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// DisplayName falls back from the full name to given + family name to the email.
func (u UserInfo) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if n := strings.TrimSpace(u.GivenName + " " + u.FamilyName); n != "" {
		return n
	}
	return u.LoginEmail()
}

// LoginEmail is the email, or the subject when no email was released.
func (u UserInfo) LoginEmail() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Sub
}

// Identify exchanges an authorization code and returns the signed-in user.
func (c *Client) Identify(ctx context.Context, code string) (UserInfo, error) {
	if c.oauth == nil {
		return UserInfo{}, ErrNotConfigured
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return UserInfo{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/oauth/userinfo", nil)
	if err != nil {
		return UserInfo{}, err
	}
	token.SetAuthHeader(req)

	var info UserInfo
	if err := c.do(req, &info); err != nil {
		return UserInfo{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	return info, nil
}

type Person struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type personAttributes struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type personResource struct {
	ID         string           `json:"id"`
	Attributes personAttributes `json:"attributes"`
}

func (r personResource) person() Person {
	return Person{
		ID:        r.ID,
		FirstName: r.Attributes.FirstName,
		LastName:  r.Attributes.LastName,
		Email:     r.Attributes.Email,
		Phone:     r.Attributes.Phone,
	}
}

// PersonFromContact splits the contact name at the first space.
func PersonFromContact(contact domain.Contact) Person {
	first, last, _ := strings.Cut(strings.TrimSpace(contact.Name), " ")
	return Person{
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Email:     contact.Email,
		Phone:     contact.Phone,
	}
}

func (c *Client) CreatePerson(ctx context.Context, p Person) (Person, error) {
	if !c.PeopleConfigured() {
		return Person{}, ErrNotConfigured
	}

	body, err := json.Marshal(personAttributes{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
	})
	if err != nil {
		return Person{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/people/v2/people", bytes.NewReader(body))
	if err != nil {
		return Person{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.appID, c.apiKey)

	var resp struct {
		Data personResource `json:"data"`
	}
	if err := c.do(req, &resp); err != nil {
		return Person{}, fmt.Errorf("create person: %w", err)
	}
	return resp.Data.person(), nil
}

// FindPersonByEmail reports ok=false when nobody matches.
func (c *Client) FindPersonByEmail(ctx context.Context, email string) (Person, bool, error) {
	if !c.PeopleConfigured() {
		return Person{}, false, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("where[email_address]", email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/people/v2/people?"+q.Encode(), nil)
	if err != nil {
		return Person{}, false, err
	}
	req.SetBasicAuth(c.appID, c.apiKey)

	var resp struct {
		Data []personResource `json:"data"`
	}
	if err := c.do(req, &resp); err != nil {
		return Person{}, false, fmt.Errorf("find person: %w", err)
	}
	if len(resp.Data) == 0 {
		return Person{}, false, nil
	}
	return resp.Data[0].person(), true, nil
}

// SyncContact pushes a contact to the People API as a new person.
func (c *Client) SyncContact(ctx context.Context, contact domain.Contact) error {
	_, err := c.CreatePerson(ctx, PersonFromContact(contact))
	return err
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s %s: %d", ErrUnexpectedStatus, req.Method, req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}
