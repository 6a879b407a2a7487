package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"timeline-hub-backend/pkg/config"
	"timeline-hub-backend/pkg/database"
	"timeline-hub-backend/pkg/models"
	"timeline-hub-backend/pkg/utils"
)

// ContextKey is the type for request-context keys set by this package.
type ContextKey string

const (
	UserContextKey ContextKey = "user"
)

// AuthMiddleware requires a valid bearer token and puts the resolved user on
// the request context. The token only identifies the actor; roles always come
// from the user record so that a role change takes effect immediately, not at
// next token refresh.
func AuthMiddleware(cfg *config.Config, db database.DatabaseInterface) func(http.Handler) http.Handler {
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				utils.WriteUnauthorizedResponse(w, "Missing or malformed authorization header")
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				utils.WriteUnauthorizedResponse(w, "Invalid token")
				return
			}
			if claims.Type != "access" {
				utils.WriteUnauthorizedResponse(w, "Invalid token type")
				return
			}

			user, err := resolveUser(cfg, db, claims)
			if err != nil {
				utils.WriteInternalServerErrorResponse(w, "Failed to resolve user")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware resolves a user when a valid token is present and
// passes the request through anonymously otherwise. Used on read endpoints
// where anonymous access is legitimate and the policy engine restricts the
// result set.
func OptionalAuthMiddleware(cfg *config.Config, db database.DatabaseInterface) func(http.Handler) http.Handler {
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil || claims.Type != "access" || time.Now().Unix() > claims.Exp {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolveUser(cfg, db, claims)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveUser loads the current user record, creating it on first
// authentication. Emails on the bootstrap list become super admins when the
// account is created.
func resolveUser(cfg *config.Config, db database.DatabaseInterface, claims *models.TokenClaims) (*models.User, error) {
	user, err := db.GetUserByID(claims.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	user = &models.User{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  models.GlobalRoleStandardUser,
	}
	if cfg.IsBootstrapAdmin(claims.Email) {
		user.Role = models.GlobalRoleSuperAdmin
	}
	if err := db.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return "", false
	}
	return tokenString, true
}

// GetUserFromContext returns the authenticated user, if any. A nil user means
// the request is anonymous; callers pass it to the policy engine as-is.
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// RequireUser returns the authenticated user or an error for anonymous
// requests.
func RequireUser(ctx context.Context) (*models.User, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok || user == nil {
		return nil, errors.New("user not authenticated")
	}
	return user, nil
}
