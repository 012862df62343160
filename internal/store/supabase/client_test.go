package supabase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/firebridge/internal/store"
	"github.com/dropDatabas3/firebridge/internal/store/supabase"
)

const testKey = "service-role-test-key"

func requireAdminHeaders(t *testing.T, r *http.Request) {
	t.Helper()
	require.Equal(t, testKey, r.Header.Get("apikey"))
	require.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
}

func TestListAccounts_Pagination(t *testing.T) {
	// Primera página llena (100), segunda corta (1): dos requests en total.
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireAdminHeaders(t, r)
		require.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		page := r.URL.Query().Get("page")
		pages = append(pages, page)

		users := []map[string]any{}
		switch page {
		case "1":
			for i := 0; i < 100; i++ {
				users = append(users, map[string]any{"id": fmt.Sprintf("u-%d", i)})
			}
		case "2":
			users = append(users, map[string]any{
				"id":                 "u-last",
				"phone":              "+1234567890",
				"phone_confirmed_at": "2024-01-01T00:00:00Z",
				"user_metadata":      map[string]any{"firebase_uid": "fb-1"},
				"app_metadata":       map[string]any{"roles": []string{"authenticated", "admin"}},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"users": users})
	}))
	defer srv.Close()

	c := supabase.New(srv.URL, testKey)
	accounts, err := c.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 101)
	require.Equal(t, []string{"1", "2"}, pages)

	last := accounts[100]
	require.Equal(t, "u-last", last.ID)
	require.Equal(t, "+1234567890", last.Phone)
	require.True(t, last.PhoneConfirmed)
	require.False(t, last.EmailConfirmed)
	require.Equal(t, "fb-1", last.Metadata["firebase_uid"])
	require.Equal(t, []string{"authenticated", "admin"}, last.Roles)
}

func TestCreateAccount_PayloadMapping(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireAdminHeaders(t, r)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                 "new-id",
			"phone":              "+1234567890",
			"phone_confirmed_at": "2024-01-01T00:00:00Z",
			"user_metadata":      got["user_metadata"],
			"app_metadata":       got["app_metadata"],
		})
	}))
	defer srv.Close()

	c := supabase.New(srv.URL, testKey)
	a, err := c.CreateAccount(context.Background(), store.CreateParams{
		Phone:          "+1234567890",
		PhoneConfirmed: true,
		Metadata:       map[string]any{"firebase_uid": "fb-1", "provider": "firebase-phone"},
		Roles:          []string{"authenticated"},
	})
	require.NoError(t, err)

	require.Equal(t, "+1234567890", got["phone"])
	require.Equal(t, true, got["phone_confirm"])
	// Sin email en los params no se manda email ni email_confirm.
	require.NotContains(t, got, "email")
	require.NotContains(t, got, "email_confirm")
	meta, _ := got["user_metadata"].(map[string]any)
	require.Equal(t, "fb-1", meta["firebase_uid"])

	require.Equal(t, "new-id", a.ID)
	require.True(t, a.PhoneConfirmed)
	require.Equal(t, []string{"authenticated"}, a.Roles)
}

func TestUpdateAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireAdminHeaders(t, r)
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/auth/v1/admin/users/acc-1", r.URL.Path)

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "acc-1",
			"user_metadata": got["user_metadata"],
			"app_metadata":  got["app_metadata"],
		})
	}))
	defer srv.Close()

	c := supabase.New(srv.URL, testKey)
	a, err := c.UpdateAccount(context.Background(), "acc-1", store.UpdateParams{
		Metadata: map[string]any{"firebase_uid": "fb-2"},
		Roles:    []string{"admin", "authenticated"},
	})
	require.NoError(t, err)
	require.Equal(t, "acc-1", a.ID)
	require.Equal(t, "fb-2", a.Metadata["firebase_uid"])
	require.Equal(t, []string{"admin", "authenticated"}, a.Roles)
}

func TestUpdateAccount_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"msg":"User not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := supabase.New(srv.URL, testKey)
	_, err := c.UpdateAccount(context.Background(), "missing", store.UpdateParams{})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateAccount_APIErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"msg":"Phone number already registered"}`))
	}))
	defer srv.Close()

	c := supabase.New(srv.URL, testKey)
	_, err := c.CreateAccount(context.Background(), store.CreateParams{Phone: "+1234567890"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "http 422")
	require.Contains(t, err.Error(), "Phone number already registered")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := supabase.New(srv.URL, testKey)
	require.NoError(t, c.Ping(context.Background()))
}
