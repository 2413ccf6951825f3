//go:build unit

package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"academy-booking/internal/domain/user"
	"academy-booking/internal/handler/middleware"
	"academy-booking/internal/pkg/cookie"
	"academy-booking/internal/pkg/jwt"
	"academy-booking/internal/usecase"
	"academy-booking/tests/common/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

const (
	testSecret = "test-secret"
	testIssuer = "academy-identity-test"
)

type AuthMiddlewareTestSuite struct {
	suite.Suite
	router *gin.Engine
	jwt    *jwt.Service
}

func (s *AuthMiddlewareTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.jwt = jwt.NewService(testSecret, time.Hour, testIssuer)
	auth := middleware.NewAuthMiddleware(usecase.NewTokenValidator(s.jwt))

	whoami := func(c *gin.Context) {
		actor, ok := middleware.GetActor(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": actor.UserID.String(), "role": string(actor.Role)})
	}
	s.router.GET("/me", auth.RequireAuth(), whoami)
	s.router.GET("/admin", auth.RequireAuth(), auth.RequireRole(user.RoleAdmin), whoami)
	s.router.GET("/misconfigured", auth.RequireRole(user.RoleAdmin), whoami)
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareTestSuite))
}

func (s *AuthMiddlewareTestSuite) token(id uuid.UUID, role user.Role) string {
	tok, err := s.jwt.GenerateToken(id, role)
	s.Require().NoError(err)
	return tok
}

func (s *AuthMiddlewareTestSuite) TestRequireAuth() {
	id := uuid.New()

	s.Run("bearer token", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/me", nil, s.token(id, user.RoleUser))

		var body map[string]string
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(id.String(), body["userId"])
		s.Equal("user", body["role"])
	})

	s.Run("cookie token", func() {
		cookies := []*http.Cookie{{Name: cookie.AccessTokenCookieName, Value: s.token(id, user.RoleAcademy)}}
		rec := httptest.PerformRequestWithCookies(s.T(), s.router, http.MethodGet, "/me", nil, cookies, "")

		var body map[string]string
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("academy", body["role"])
	})

	s.Run("missing token", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/me", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Access token required")
	})

	s.Run("wrong secret", func() {
		other := jwt.NewService("another-secret", time.Hour, testIssuer)
		tok, err := other.GenerateToken(id, user.RoleUser)
		s.Require().NoError(err)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/me", nil, tok)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Invalid or expired token")
	})

	s.Run("wrong issuer", func() {
		other := jwt.NewService(testSecret, time.Hour, "someone-else")
		tok, err := other.GenerateToken(id, user.RoleUser)
		s.Require().NoError(err)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/me", nil, tok)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("expired", func() {
		expired := jwt.NewService(testSecret, -time.Hour, testIssuer)
		tok, err := expired.GenerateToken(id, user.RoleUser)
		s.Require().NoError(err)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/me", nil, tok)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("unknown role", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/me", nil, s.token(id, user.Role("system")))
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *AuthMiddlewareTestSuite) TestRequireRole() {
	s.Run("allowed", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/admin", nil, s.token(uuid.New(), user.RoleAdmin))
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("forbidden", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/admin", nil, s.token(uuid.New(), user.RoleAcademy))
		httptest.AssertErrorResponse(s.T(), rec, http.StatusForbidden, "Insufficient permissions")
	})

	s.Run("without RequireAuth", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/misconfigured", nil, s.token(uuid.New(), user.RoleAdmin))
		s.Equal(http.StatusInternalServerError, rec.Code)
	})
}
