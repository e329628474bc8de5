// Package auth signs and verifies the bearer tokens exchanged with the answer service.
//
// # Tokens
//
// JWTVerifier issues and checks HS256 JWTs with a shared secret. Tokens carry
// the caller identity in "sub" plus "iat" and "exp":
//
//	v := auth.NewJWTVerifier([]byte(cfg.Answerer.JWTSecret))
//	token, err := v.Generate("ragchat", time.Minute)
//	subject, err := v.Verify(token)
//
// Verify reports ErrExpiredToken for expired tokens and wraps ErrInvalidToken
// for everything else. Both operations refuse to work with an empty secret.
//
// # HTTP
//
// RequireBearer guards a handler: the Authorization header must hold
// "Bearer <token>" that verifies, otherwise the request is answered with
// 401 and a JSON error body. The verified subject is available to handlers
// through SubjectFromContext.
package auth
