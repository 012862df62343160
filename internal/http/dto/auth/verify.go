package dto

// VerifyRequest es el body de POST /v1/auth/firebase/verify.
type VerifyRequest struct {
	IDToken string `json:"idToken"`
}

// VerifyResponse es la respuesta de éxito. Los campos opcionales van como
// punteros para serializar null (no string vacío) cuando la claim no vino.
type VerifyResponse struct {
	OK             bool    `json:"ok"`
	UID            *string `json:"uid"`
	PhoneNumber    *string `json:"phoneNumber"`
	Email          *string `json:"email"`
	SupabaseUserID *string `json:"supabaseUserId"`
	Note           string  `json:"note"`
}

// OptStr retorna nil para "" (serializa como null).
func OptStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
