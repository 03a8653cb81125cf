package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Dashboard.CacheEnabled)
	assert.Equal(t, 30, cfg.Dashboard.DueSoonDays)
	assert.Equal(t, 15*time.Minute, cfg.Files.PreviewTTL)
	assert.Equal(t, []string{"application/pdf", "image/png", "image/jpeg"}, cfg.Files.AllowedMIMEs)
	assert.InDelta(t, 0.8, cfg.OCR.MinConfidence, 0.0001)
	assert.Equal(t, 10*time.Second, cfg.OCR.Timeout)
	assert.True(t, cfg.RunMigrations)
}

func TestFromViperSanitisesOutOfRangeValues(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("OCR_MIN_CONFIDENCE", 4.2)
	v.Set("DASHBOARD_DUE_SOON_DAYS", -1)
	v.Set("FILES_MAX_FILE_SIZE", 0)
	v.Set("PREVIEW_TTL", "not-a-duration")

	cfg := fromViper(v)

	assert.InDelta(t, 0.8, cfg.OCR.MinConfidence, 0.0001)
	assert.Equal(t, 30, cfg.Dashboard.DueSoonDays)
	assert.Equal(t, int64(10*1024*1024), cfg.Files.MaxFileSizeBytes)
	assert.Equal(t, 15*time.Minute, cfg.Files.PreviewTTL)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , ,b "))
}

func TestLocationFallsBackToLocal(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	assert.Equal(t, time.Local, cfg.Location())

	cfg.Timezone = "UTC"
	assert.Equal(t, "UTC", cfg.Location().String())
}
