package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, "u1"), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, "u1"), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=x%")

	assert.True(t, m.Enabled("always", "u1"))
	assert.False(t, m.Enabled("never", "u1"))
	assert.False(t, m.Enabled("broken", "u1"))

	first := m.Enabled("canary", "64b0c3")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", "64b0c3"), "rollout must be deterministic per subject")
	}
	assert.False(t, m.Enabled("canary", ""), "percentage rollout requires a subject")
}

func TestDefaults(t *testing.T) {
	m := NewManager("")
	assert.True(t, m.Enabled(GoogleLogin, ""))
	assert.True(t, m.Enabled(Search, ""))
	assert.True(t, m.Enabled(Comments, ""))

	m = NewManager("Google_Login = OFF")
	assert.False(t, m.Enabled(GoogleLogin, "u1"))
	assert.True(t, m.Enabled(Search, "u1"))
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off ")

	raw := m.Raw()
	require.Len(t, raw, len(defaults)+3)
	assert.Equal(t, "on", raw["x"])
	assert.Equal(t, "20%", raw["y"])
	assert.Equal(t, "off", raw["z"])

	snap := m.Snapshot("u123")
	assert.Len(t, snap, len(raw))
	assert.False(t, snap["z"])
	assert.True(t, snap[Comments])
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(GoogleLogin, "u1"))
}
