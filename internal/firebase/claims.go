package firebase

import jwtv5 "github.com/golang-jwt/jwt/v5"

// IDClaims son las claims de un ID token de Firebase ya verificado.
// Los campos conocidos van tipados; todo lo demás queda en Raw.
type IDClaims struct {
	Sub         string
	UserID      string // claim alternativa "user_id" (compat SDK)
	Issuer      string
	Audience    string
	PhoneNumber string // E.164
	Email       string

	Raw jwtv5.MapClaims
}

// SubjectID resuelve el identificador estable del usuario: primero "sub",
// después "user_id". Retorna "" si ninguna está presente.
func (c *IDClaims) SubjectID() string {
	if c.Sub != "" {
		return c.Sub
	}
	return c.UserID
}

func claimsFrom(m jwtv5.MapClaims) *IDClaims {
	return &IDClaims{
		Sub:         strClaim(m, "sub"),
		UserID:      strClaim(m, "user_id"),
		Issuer:      strClaim(m, "iss"),
		Audience:    strClaim(m, "aud"),
		PhoneNumber: strClaim(m, "phone_number"),
		Email:       strClaim(m, "email"),
		Raw:         m,
	}
}

func strClaim(m jwtv5.MapClaims, k string) string {
	s, _ := m[k].(string)
	return s
}
