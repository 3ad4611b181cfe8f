package utils

import (
	"os"
	"strings"
)

// Config collects every environment knob the portal reads. Values are loaded
// once in main after godotenv has had a chance to populate the process env.
type Config struct {
	Port string
	Env  string

	// Path of the sqlite file backing the durable local store.
	DatabasePath string

	// Catalog source: exactly one of file path, HTTP URL, or object-store
	// bucket+key is expected. File wins, then URL, then bucket.
	ContentFile   string
	ContentURL    string
	ContentBucket string
	ContentKey    string

	SupabaseURL     string
	SupabaseAnonKey string

	DefaultCourseID    string
	AutoCompleteOnView bool

	AllowedOrigins string
}

func LoadConfig() Config {
	return Config{
		Port:               getEnv("PORT", "5300"),
		Env:                getEnv("APP_ENV", "development"),
		DatabasePath:       getEnv("DATABASE_PATH", "./portal.db"),
		ContentFile:        os.Getenv("CONTENT_FILE"),
		ContentURL:         os.Getenv("CONTENT_URL"),
		ContentBucket:      os.Getenv("CONTENT_BUCKET"),
		ContentKey:         getEnv("CONTENT_KEY", "content.json"),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:    os.Getenv("SUPABASE_ANON_KEY"),
		DefaultCourseID:    getEnv("DEFAULT_COURSE_ID", "computer-vision"),
		AutoCompleteOnView: strings.EqualFold(os.Getenv("AUTO_COMPLETE_ON_VIEW"), "true"),
		AllowedOrigins:     getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
