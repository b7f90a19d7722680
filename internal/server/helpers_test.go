package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"comma separated", []string{"go, fiber,,  web "}, []string{"go", "fiber", "web"}},
		{"repeated", []string{"go", "fiber"}, []string{"go", "fiber"}},
		{"mixed", []string{"a,b", " c "}, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitTags(tt.in))
		})
	}
}

func TestParsePage(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		page, limit := parsePage(c)
		return c.JSON(fiber.Map{"page": page, "limit": limit})
	})

	for query, want := range map[string][2]float64{
		"":                 {1, 10},
		"?page=3&limit=25": {3, 25},
		"?page=abc":        {1, 10},
	} {
		req := httptest.NewRequest(http.MethodGet, "/items"+query, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		var body map[string]float64
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()
		assert.Equal(t, want[0], body["page"], query)
		assert.Equal(t, want[1], body["limit"], query)
	}
}

func TestParseBody(t *testing.T) {
	type payload struct {
		Text string `json:"text"`
	}
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		var p payload
		if err := parseBody(c, &p); err != nil {
			return respondWithError(c, err)
		}
		return c.JSON(p)
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "empty body is not an error")
	_ = resp.Body.Close()

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}
