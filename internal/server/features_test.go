package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bolify/internal/config"
	"bolify/internal/featureflags"
	"bolify/internal/middleware"
	"bolify/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFeatures_DefaultsOn(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, http.MethodGet, "/api/users/features", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{
		"google_login": true,
		"search":       true,
		"comments":     true,
	}, body["features"])
}

func TestFeatureGate_DisabledRoutesAreNotFound(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.FeatureFlags = "google_login=off,search=off"
	})

	resp, body := env.request(t, http.MethodPost, "/api/auth/google-login", map[string]string{"token": "good-token"}, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, body["code"])
	n, _ := env.users.Count(context.Background())
	assert.Zero(t, n)

	resp, _ = env.request(t, http.MethodGet, "/api/blog/search?q=go", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = env.request(t, http.MethodGet, "/api/blog/blogs", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestFeatureGate_CommentsOff(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.FeatureFlags = "comments=0%" })
	author := env.createUser(t, "Ada Writer", "ada@example.com", models.RoleUser)
	blog := env.seedBlog(t, author, "Gated")

	resp, _ := env.request(t, http.MethodPost, "/api/blog/"+blog.ID+"/comments",
		map[string]string{"text": "hello"}, env.token(t, author))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestFeatureSubject(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "Ada Writer", "ada@example.com", models.RoleUser)

	app := fiber.New()
	app.Get("/subject", middleware.OptionalAuth(env.srv.tokens, env.srv.blacklist), func(c *fiber.Ctx) error {
		return c.SendString(featureSubject(c) + "|" + c.IP())
	})

	read := func(token string) (string, string) {
		req := httptest.NewRequest(http.MethodGet, "/subject", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		subject, ip, _ := strings.Cut(string(raw), "|")
		return subject, ip
	}

	subject, ip := read("")
	assert.Equal(t, "anon:"+ip, subject)

	subject, _ = read(env.token(t, user))
	assert.Equal(t, user.ID, subject)
}

func TestGetFeatures_PercentageRolloutUsesCaller(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.FeatureFlags = "search=50%" })
	user := env.createUser(t, "Ada Writer", "ada@example.com", models.RoleUser)

	_, body := env.request(t, http.MethodGet, "/api/users/features", nil, env.token(t, user))
	features := body["features"].(map[string]interface{})
	assert.Equal(t, env.srv.features.Enabled(featureflags.Search, user.ID), features["search"])
}
