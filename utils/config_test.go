package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("CONTENT_KEY", "")
	t.Setenv("DEFAULT_COURSE_ID", "")
	t.Setenv("AUTO_COMPLETE_ON_VIEW", "")

	cfg := LoadConfig()
	assert.Equal(t, "5300", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "./portal.db", cfg.DatabasePath)
	assert.Equal(t, "computer-vision", cfg.DefaultCourseID)
	assert.Equal(t, "content.json", cfg.ContentKey)
	assert.False(t, cfg.AutoCompleteOnView)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("AUTO_COMPLETE_ON_VIEW", "TRUE")
	t.Setenv("CONTENT_FILE", "/tmp/content.json")

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.AutoCompleteOnView)
	assert.Equal(t, "/tmp/content.json", cfg.ContentFile)
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"development", "production", "prod", ""} {
		log, err := NewLogger(env)
		assert.NoError(t, err, env)
		assert.NotNil(t, log, env)
	}
}
