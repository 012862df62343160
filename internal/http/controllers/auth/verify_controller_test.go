package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	ctrl "github.com/dropDatabas3/firebridge/internal/http/controllers/auth"
	svc "github.com/dropDatabas3/firebridge/internal/http/services/auth"
)

type fakeVerifyService struct {
	result *svc.VerifyResult
	err    error

	gotToken string
}

func (f *fakeVerifyService) VerifyAndReconcile(ctx context.Context, idToken string) (*svc.VerifyResult, error) {
	f.gotToken = idToken
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// longToken supera el largo mínimo que exige el controller.
var longToken = strings.Repeat("x", 150)

func doVerify(t *testing.T, service svc.VerifyService, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	c := ctrl.NewVerifyController(service)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/firebase/verify", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	c.Verify(rec, req)
	return rec
}

func TestVerify_Success(t *testing.T) {
	fs := &fakeVerifyService{result: &svc.VerifyResult{
		UID:         "firebase-uid-1",
		PhoneNumber: "+1234567890",
		AccountID:   "acc-1",
	}}

	rec := doVerify(t, fs, "application/json", `{"idToken":"`+longToken+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, longToken, fs.gotToken)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["ok"])
	require.Equal(t, "firebase-uid-1", resp["uid"])
	require.Equal(t, "+1234567890", resp["phoneNumber"])
	require.Nil(t, resp["email"])
	require.Equal(t, "acc-1", resp["supabaseUserId"])
	require.Equal(t, "Verified Firebase token and ensured Supabase user exists.", resp["note"])
}

func TestVerify_RejectsNonJSONContentType(t *testing.T) {
	rec := doVerify(t, &fakeVerifyService{}, "text/plain", longToken)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	requireErrorBody(t, rec, "Unsupported content type")
}

func TestVerify_RejectsMalformedJSON(t *testing.T) {
	rec := doVerify(t, &fakeVerifyService{}, "application/json", `{"idToken":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	requireErrorBody(t, rec, "Invalid payload")
}

func TestVerify_RejectsShortToken(t *testing.T) {
	rec := doVerify(t, &fakeVerifyService{}, "application/json", `{"idToken":"abc123"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	requireErrorBody(t, rec, "Invalid payload")
}

func TestVerify_InvalidTokenReturns401(t *testing.T) {
	fs := &fakeVerifyService{err: svc.ErrInvalidToken}
	rec := doVerify(t, fs, "application/json", `{"idToken":"`+longToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	requireErrorBody(t, rec, "Invalid or expired Firebase ID token")
}

func TestVerify_ReconcileFailureReturns500(t *testing.T) {
	fs := &fakeVerifyService{err: svc.ErrReconcileFailed}
	rec := doVerify(t, fs, "application/json", `{"idToken":"`+longToken+`"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	requireErrorBody(t, rec, "Internal error")
}

func TestVerify_MethodNotAllowed(t *testing.T) {
	c := ctrl.NewVerifyController(&fakeVerifyService{})
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/firebase/verify", nil)
	rec := httptest.NewRecorder()
	c.Verify(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "POST", rec.Header().Get("Allow"))
}

func TestVerify_AllResponsesAreNoStore(t *testing.T) {
	cases := []struct {
		name string
		rec  *httptest.ResponseRecorder
	}{
		{"success", doVerify(t, &fakeVerifyService{result: &svc.VerifyResult{UID: "u"}}, "application/json", `{"idToken":"`+longToken+`"}`)},
		{"bad content type", doVerify(t, &fakeVerifyService{}, "text/plain", longToken)},
		{"short token", doVerify(t, &fakeVerifyService{}, "application/json", `{"idToken":"abc"}`)},
		{"unauthorized", doVerify(t, &fakeVerifyService{err: svc.ErrInvalidToken}, "application/json", `{"idToken":"`+longToken+`"}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, "no-store", tc.rec.Header().Get("Cache-Control"))
			require.Equal(t, "no-cache", tc.rec.Header().Get("Pragma"))
		})
	}
}

func requireErrorBody(t *testing.T, rec *httptest.ResponseRecorder, msg string) {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, false, resp["ok"])
	require.Equal(t, msg, resp["error"])
}
