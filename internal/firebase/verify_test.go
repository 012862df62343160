package firebase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/firebridge/internal/cache/memory"
)

const testProject = "demo-project"

type jwksServer struct {
	*httptest.Server
	key    *rsa.PrivateKey
	kid    string
	hits   atomic.Int64
	maxAge string
}

func newJWKSServer(t *testing.T) *jwksServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	s := &jwksServer{key: key, kid: "test-kid-1"}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if s.maxAge != "" {
			w.Header().Set("Cache-Control", "public, max-age="+s.maxAge)
		}
		doc := map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"kid": s.kid,
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		}
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) verifier(t *testing.T) *Verifier {
	t.Helper()
	ks := NewKeySet(memory.New(time.Minute), time.Hour)
	ks.url = s.URL
	return NewVerifier(ks, testProject)
}

// sign emite un token RS256 con el kid del server y las claims dadas, con
// defaults válidos para todo lo que no se pise.
func (s *jwksServer) sign(t *testing.T, override map[string]any) string {
	t.Helper()
	claims := jwtv5.MapClaims{
		"iss":          issuerPrefix + testProject,
		"aud":          testProject,
		"sub":          "user-1",
		"phone_number": "+1234567890",
		"exp":          time.Now().Add(time.Hour).Unix(),
		"iat":          time.Now().Add(-time.Minute).Unix(),
	}
	for k, v := range override {
		if v == nil {
			delete(claims, k)
		} else {
			claims[k] = v
		}
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tok.Header["kid"] = s.kid
	signed, err := tok.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

func TestVerifyIDToken_Valid(t *testing.T) {
	srv := newJWKSServer(t)
	v := srv.verifier(t)

	claims, err := v.VerifyIDToken(context.Background(), srv.sign(t, map[string]any{
		"email": "a@b.com",
	}))
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.SubjectID())
	require.Equal(t, "+1234567890", claims.PhoneNumber)
	require.Equal(t, "a@b.com", claims.Email)
	require.Equal(t, testProject, claims.Audience)
}

func TestVerifyIDToken_SubjectFallbackUserID(t *testing.T) {
	srv := newJWKSServer(t)
	v := srv.verifier(t)

	claims, err := v.VerifyIDToken(context.Background(), srv.sign(t, map[string]any{
		"sub":     nil,
		"user_id": "alt-user-9",
	}))
	require.NoError(t, err)
	require.Equal(t, "alt-user-9", claims.SubjectID())
}

func TestVerifyIDToken_IssuerExactness(t *testing.T) {
	srv := newJWKSServer(t)
	v := srv.verifier(t)

	// Firma válida, issuer ajeno: falla igual.
	for _, iss := range []string{
		"https://securetoken.google.com/other-project",
		"https://evil.example/" + testProject,
		issuerPrefix + testProject + "/",
	} {
		_, err := v.VerifyIDToken(context.Background(), srv.sign(t, map[string]any{"iss": iss}))
		require.ErrorIs(t, err, ErrInvalidToken, "iss=%s", iss)
	}
}

func TestVerifyIDToken_AudienceExactness(t *testing.T) {
	srv := newJWKSServer(t)
	v := srv.verifier(t)

	_, err := v.VerifyIDToken(context.Background(), srv.sign(t, map[string]any{"aud": "other-project"}))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyIDToken_Expired(t *testing.T) {
	srv := newJWKSServer(t)
	v := srv.verifier(t)

	_, err := v.VerifyIDToken(context.Background(), srv.sign(t, map[string]any{
		"exp": time.Now().Add(-time.Hour).Unix(),
	}))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyIDToken_NotYetValid(t *testing.T) {
	srv := newJWKSServer(t)
	v := srv.verifier(t)

	_, err := v.VerifyIDToken(context.Background(), srv.sign(t, map[string]any{
		"nbf": time.Now().Add(time.Hour).Unix(),
	}))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyIDToken_RejectsNonRS256(t *testing.T) {
	srv := newJWKSServer(t)
	v := srv.verifier(t)

	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss": issuerPrefix + testProject,
		"aud": testProject,
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = srv.kid
	signed, err := tok.SignedString([]byte("hmac-secret"))
	require.NoError(t, err)

	_, err = v.VerifyIDToken(context.Background(), signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyIDToken_UnknownKid(t *testing.T) {
	srv := newJWKSServer(t)
	v := srv.verifier(t)

	token := srv.sign(t, nil)
	srv.kid = "rotated-away" // el server ahora publica otro kid

	_, err := v.VerifyIDToken(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyIDToken_Garbage(t *testing.T) {
	srv := newJWKSServer(t)
	v := srv.verifier(t)

	for _, tok := range []string{"", "abc", "a.b", "xxxx.yyyy.zzzz"} {
		_, err := v.VerifyIDToken(context.Background(), tok)
		require.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestKeySet_CachesAcrossVerifies(t *testing.T) {
	srv := newJWKSServer(t)
	v := srv.verifier(t)

	for i := 0; i < 5; i++ {
		_, err := v.VerifyIDToken(context.Background(), srv.sign(t, nil))
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, srv.hits.Load(), "un solo fetch para varios verifies")
}

func TestParseMaxAge(t *testing.T) {
	require.Equal(t, 3600*time.Second, parseMaxAge("public, max-age=3600, must-revalidate"))
	require.Equal(t, time.Duration(0), parseMaxAge("no-store"))
	require.Equal(t, time.Duration(0), parseMaxAge(""))
}
