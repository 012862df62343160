// Package supabase implementa store.Store contra la admin API de GoTrue
// (/auth/v1/admin/users) usando la service-role key.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/firebridge/internal/store"
)

const usersPerPage = 100

type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

func New(baseURL, serviceRoleKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     serviceRoleKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	// GoTrue admin: la service-role key va duplicada en apikey y Bearer.
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, b, nil
}

// ─── wire types ───

type wireUser struct {
	ID               string         `json:"id"`
	Phone            string         `json:"phone"`
	Email            string         `json:"email"`
	PhoneConfirmedAt *time.Time     `json:"phone_confirmed_at"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
	AppMetadata      map[string]any `json:"app_metadata"`
}

type wireUserList struct {
	Users []wireUser `json:"users"`
}

func (u wireUser) account() store.Account {
	a := store.Account{
		ID:             u.ID,
		Phone:          u.Phone,
		Email:          u.Email,
		PhoneConfirmed: u.PhoneConfirmedAt != nil,
		EmailConfirmed: u.EmailConfirmedAt != nil,
		Metadata:       u.UserMetadata,
	}
	if u.AppMetadata != nil {
		if raw, ok := u.AppMetadata["roles"].([]any); ok {
			for _, r := range raw {
				if s, ok := r.(string); ok {
					a.Roles = append(a.Roles, s)
				}
			}
		}
	}
	return a
}

// ─── store.Store ───

func (c *Client) ListAccounts(ctx context.Context) ([]store.Account, error) {
	var out []store.Account
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", fmt.Sprint(page))
		q.Set("per_page", fmt.Sprint(usersPerPage))

		status, body, err := c.do(ctx, http.MethodGet, "/auth/v1/admin/users?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("supabase: list users: %w", err)
		}
		if status/100 != 2 {
			return nil, apiError("list users", status, body)
		}

		var list wireUserList
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("supabase: decode user list: %w", err)
		}
		for _, u := range list.Users {
			out = append(out, u.account())
		}
		if len(list.Users) < usersPerPage {
			return out, nil
		}
	}
}

func (c *Client) CreateAccount(ctx context.Context, p store.CreateParams) (*store.Account, error) {
	payload := map[string]any{
		"user_metadata": p.Metadata,
		"app_metadata":  map[string]any{"roles": p.Roles},
	}
	if p.Phone != "" {
		payload["phone"] = p.Phone
		payload["phone_confirm"] = p.PhoneConfirmed
	}
	if p.Email != "" {
		payload["email"] = p.Email
		payload["email_confirm"] = p.EmailConfirmed
	}
	body, _ := json.Marshal(payload)

	status, resp, err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", body)
	if err != nil {
		return nil, fmt.Errorf("supabase: create user: %w", err)
	}
	if status/100 != 2 {
		return nil, apiError("create user", status, resp)
	}

	var u wireUser
	if err := json.Unmarshal(resp, &u); err != nil {
		return nil, fmt.Errorf("supabase: decode created user: %w", err)
	}
	a := u.account()
	return &a, nil
}

func (c *Client) UpdateAccount(ctx context.Context, id string, p store.UpdateParams) (*store.Account, error) {
	payload := map[string]any{}
	if p.Metadata != nil {
		payload["user_metadata"] = p.Metadata
	}
	if p.Roles != nil {
		payload["app_metadata"] = map[string]any{"roles": p.Roles}
	}
	body, _ := json.Marshal(payload)

	status, resp, err := c.do(ctx, http.MethodPut, "/auth/v1/admin/users/"+url.PathEscape(id), body)
	if err != nil {
		return nil, fmt.Errorf("supabase: update user: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, store.ErrNotFound
	}
	if status/100 != 2 {
		return nil, apiError("update user", status, resp)
	}

	var u wireUser
	if err := json.Unmarshal(resp, &u); err != nil {
		return nil, fmt.Errorf("supabase: decode updated user: %w", err)
	}
	a := u.account()
	return &a, nil
}

func (c *Client) Ping(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/auth/v1/health", nil)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("supabase: health http %d", status)
	}
	return nil
}

// apiError arma un error con el msg de GoTrue si lo hay. Este texto nunca
// llega al cliente HTTP de firebridge, solo a los logs.
func apiError(op string, status int, body []byte) error {
	var e struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &e)
	detail := e.Msg
	if detail == "" {
		detail = e.Message
	}
	if detail != "" {
		return fmt.Errorf("supabase: %s http %d: %s", op, status, detail)
	}
	return fmt.Errorf("supabase: %s http %d", op, status)
}
