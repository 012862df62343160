package firebase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/firebridge/internal/observability/logger"
)

// ErrInvalidToken es el único error que cruza la frontera del verifier.
// Firma, issuer, audience o expiry inválidos colapsan todos acá: no le
// damos al caller un oráculo de qué chequeo falló.
var ErrInvalidToken = errors.New("invalid firebase id token")

const issuerPrefix = "https://securetoken.google.com/"

// Verifier valida ID tokens de Firebase contra el KeySet de Google.
type Verifier struct {
	keys      *KeySet
	projectID string
}

func NewVerifier(keys *KeySet, projectID string) *Verifier {
	return &Verifier{keys: keys, projectID: projectID}
}

// VerifyIDToken valida firma (RS256 por kid), exp/nbf con leeway chica,
// iss == https://securetoken.google.com/<projectID> y aud == projectID.
// Chequeo único, sin reintentos: el caller reintenta con un token fresco.
func (v *Verifier) VerifyIDToken(ctx context.Context, token string) (*IDClaims, error) {
	log := logger.From(ctx).With(logger.Component("firebase.verify"))

	kid, err := headerKID(token)
	if err != nil {
		log.Debug("token header rejected", logger.Err(err))
		return nil, ErrInvalidToken
	}

	key, err := v.keys.Key(ctx, kid)
	if err != nil {
		log.Debug("key resolution failed", logger.Err(err))
		return nil, ErrInvalidToken
	}

	tok, err := jwtv5.Parse(token,
		func(t *jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithLeeway(30*time.Second),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		log.Debug("signature or time claims rejected", logger.Err(err))
		return nil, ErrInvalidToken
	}

	mc, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	// iss y aud exactos; ningún otro valor se acepta aunque la firma valga.
	if iss, _ := mc["iss"].(string); iss != issuerPrefix+v.projectID {
		log.Debug("issuer mismatch")
		return nil, ErrInvalidToken
	}
	if aud, _ := mc["aud"].(string); aud != v.projectID {
		log.Debug("audience mismatch")
		return nil, ErrInvalidToken
	}

	return claimsFrom(mc), nil
}

// headerKID decodifica el header del JWT y exige alg RS256 + kid presente.
func headerKID(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", errors.New("bad jwt format")
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return "", err
	}
	if header.Alg != "RS256" {
		return "", errors.New("unexpected alg")
	}
	if header.Kid == "" {
		return "", errors.New("missing kid")
	}
	return header.Kid, nil
}
