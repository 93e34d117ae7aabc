package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/evalua-t/evaluation-service/internal/config"
	"github.com/evalua-t/evaluation-service/internal/models"
	"github.com/evalua-t/evaluation-service/internal/repositories"
	"github.com/evalua-t/evaluation-service/internal/services"
)

// CasdoorAuthMiddleware authenticates requests with Casdoor-issued tokens.
// The token only proves identity; effective roles always come from the
// identity service, so a forged or stale role claim in a token is inert.
type CasdoorAuthMiddleware struct {
	client   *casdoorsdk.Client
	userRepo repositories.UserRepository
	identity services.IdentityService
	config   config.CasdoorConfig
}

// NewCasdoorAuthMiddleware creates a new Casdoor authentication middleware
func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, userRepo repositories.UserRepository, identity services.IdentityService) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)

	return &CasdoorAuthMiddleware{
		client:   client,
		userRepo: userRepo,
		identity: identity,
		config:   cfg,
	}
}

// AuthMiddleware requires a valid bearer token and sets the principal in
// the request context.
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "missing or malformed authorization header",
			})
			c.Abort()
			return
		}

		claims, err := cam.client.ParseJwtToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: fmt.Sprintf("invalid token: %v", err),
			})
			c.Abort()
			return
		}

		user, err := cam.extractUserFromClaims(c.Request.Context(), claims)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "failed to resolve principal",
			})
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Set("user_email", user.Email)

		c.Next()
	}
}

// OptionalAuthMiddleware sets the principal when a valid token is present
// and lets anonymous requests through untouched.
func (cam *CasdoorAuthMiddleware) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := cam.client.ParseJwtToken(token)
		if err != nil {
			c.Next()
			return
		}

		if user, err := cam.extractUserFromClaims(c.Request.Context(), claims); err == nil {
			c.Set("user_id", user.ID)
			c.Set("user", user)
			c.Set("user_email", user.Email)
		}

		c.Next()
	}
}

// RequireRoleMiddleware resolves the caller's effective role through the
// identity service and denies anything below required. Resolution errors
// deny; this path fails closed.
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(required models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Message: "user not found in context",
			})
			c.Abort()
			return
		}

		id, ok := userID.(string)
		if !ok || id == "" {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Message: "invalid user identity",
			})
			c.Abort()
			return
		}

		if err := cam.identity.RequireRole(c.Request.Context(), id, required); err != nil {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Message: fmt.Sprintf("requires %s role", required),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}

// extractUserFromClaims resolves the principal behind a validated token,
// preferring the cached repository lookup over raw claims.
func (cam *CasdoorAuthMiddleware) extractUserFromClaims(ctx context.Context, claims *casdoorsdk.Claims) (*models.User, error) {
	userID := claims.Id
	if userID == "" {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	user, err := cam.userRepo.GetByID(ctx, userID)
	if err != nil {
		// Provider unavailable: fall back to what the token itself carries.
		user = &models.User{
			ID:       userID,
			FullName: claims.User.DisplayName,
			Email:    claims.User.Email,
			Role:     models.RoleUser,
		}
	}

	return user, nil
}
