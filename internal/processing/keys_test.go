package processing

import "testing"

func TestStorageKeys(t *testing.T) {
	t.Run("clips prefix", func(t *testing.T) {
		if got := ClipsPrefix("sessions/sess-1"); got != "sessions/sess-1/clips/" {
			t.Errorf("ClipsPrefix = %q", got)
		}
	})

	t.Run("root slashes are normalized", func(t *testing.T) {
		if got := ClipsPrefix("/sessions/sess-1/"); got != "sessions/sess-1/clips/" {
			t.Errorf("ClipsPrefix = %q", got)
		}
		if got := ClipsPrefix(""); got != "clips/" {
			t.Errorf("ClipsPrefix(\"\") = %q", got)
		}
	})

	t.Run("part keys align with the batch destination", func(t *testing.T) {
		dest := PartsDestination("recordings", "sessions/sess-1")
		if dest != "s3://recordings/sessions/sess-1/parts/" {
			t.Errorf("PartsDestination = %q", dest)
		}
		if got := PartKey("sessions/sess-1", 3); got != "sessions/sess-1/parts/part-003.mp4" {
			t.Errorf("PartKey = %q", got)
		}
		if got := PartKey("sessions/sess-1", 12); got != "sessions/sess-1/parts/part-012.mp4" {
			t.Errorf("PartKey = %q", got)
		}
	})

	t.Run("final destination and output key", func(t *testing.T) {
		if got := FinalDestination("recordings", "sessions/sess-1"); got != "s3://recordings/sessions/sess-1/final-video/index" {
			t.Errorf("FinalDestination = %q", got)
		}
		if got := FinalOutputKey("sessions/sess-1"); got != "sessions/sess-1/final-video/index.m3u8" {
			t.Errorf("FinalOutputKey = %q", got)
		}
	})

	t.Run("object uri", func(t *testing.T) {
		if got := ObjectURI("recordings", "a/b.mp4"); got != "s3://recordings/a/b.mp4" {
			t.Errorf("ObjectURI = %q", got)
		}
	})
}
