package config

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Run("GetEnv", func(t *testing.T) {
		t.Setenv("TEST_KEY", "value")
		if got := GetEnv("TEST_KEY", "fallback"); got != "value" {
			t.Errorf("GetEnv = %q", got)
		}
		if got := GetEnv("TEST_MISSING", "fallback"); got != "fallback" {
			t.Errorf("GetEnv fallback = %q", got)
		}
	})

	t.Run("GetEnvInt", func(t *testing.T) {
		t.Setenv("TEST_INT", "42")
		t.Setenv("TEST_BAD_INT", "forty-two")
		if got := GetEnvInt("TEST_INT", 7); got != 42 {
			t.Errorf("GetEnvInt = %d", got)
		}
		if got := GetEnvInt("TEST_BAD_INT", 7); got != 7 {
			t.Errorf("GetEnvInt invalid = %d, want fallback", got)
		}
		if got := GetEnvInt("TEST_MISSING", 7); got != 7 {
			t.Errorf("GetEnvInt missing = %d, want fallback", got)
		}
	})

	t.Run("GetEnvMillis", func(t *testing.T) {
		t.Setenv("TEST_MS", "2500")
		if got := GetEnvMillis("TEST_MS", 1000); got != 2500*time.Millisecond {
			t.Errorf("GetEnvMillis = %s", got)
		}
		if got := GetEnvMillis("TEST_MISSING", 1000); got != time.Second {
			t.Errorf("GetEnvMillis missing = %s", got)
		}
	})
}

func TestFromEnvDefaults(t *testing.T) {
	s := FromEnv()

	if s.Port != "8080" {
		t.Errorf("port = %q", s.Port)
	}
	if s.StabilityStrategy != "dual" {
		t.Errorf("strategy = %q", s.StabilityStrategy)
	}
	if s.StabilityMaxWait != time.Minute {
		t.Errorf("stability max wait = %s", s.StabilityMaxWait)
	}
	if s.StabilityRequiredIterations != 2 {
		t.Errorf("required iterations = %d", s.StabilityRequiredIterations)
	}
	if s.MaxInputsPerJob != 149 {
		t.Errorf("max inputs per job = %d", s.MaxInputsPerJob)
	}
	if s.MaxBatchWait != 10*time.Minute {
		t.Errorf("max batch wait = %s", s.MaxBatchWait)
	}
	if s.ClipExtension != ".mp4" {
		t.Errorf("clip extension = %q", s.ClipExtension)
	}
	if s.VideoWidth != 1280 || s.VideoHeight != 720 {
		t.Errorf("video size = %dx%d", s.VideoWidth, s.VideoHeight)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Settings {
		return Settings{
			EngineRoleARN:     "arn:aws:iam::123456789012:role/transcode",
			SessionsTable:     "sessions",
			MaxInputsPerJob:   149,
			StabilityStrategy: "dual",
		}
	}

	t.Run("valid settings pass", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"missing role", func(s *Settings) { s.EngineRoleARN = "" }},
		{"missing table", func(s *Settings) { s.SessionsTable = "" }},
		{"access key without secret", func(s *Settings) { s.AccessKeyID = "AKIA..." }},
		{"secret without access key", func(s *Settings) { s.SecretAccessKey = "shh" }},
		{"zero max inputs", func(s *Settings) { s.MaxInputsPerJob = 0 }},
		{"unknown strategy", func(s *Settings) { s.StabilityStrategy = "vibes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	t.Run("credential pair passes", func(t *testing.T) {
		s := valid()
		s.AccessKeyID = "AKIA..."
		s.SecretAccessKey = "shh"
		if err := s.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})
}
