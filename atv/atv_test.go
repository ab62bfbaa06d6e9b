package atv

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandMapped(t *testing.T) {
	for code, want := range KeyMapping {
		assert.Equal(t, want, Command(code), code)
	}
}

func TestCommandFallbackStripsPrefix(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{KeyPlayPause, "MEDIA_PLAY_PAUSE"},
		{Key7, "7"},
		{KeyChannelUp, "CHANNEL_UP"},
		{"ENTER", "ENTER"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Command(tt.code), tt.code)
	}
}

func TestResolveApp(t *testing.T) {
	tests := []struct {
		name   string
		target string
		ok     bool
	}{
		{"youtube", "https://www.youtube.com", true},
		{"  YouTube ", "https://www.youtube.com", true},
		{"Amazon Prime", "com.amazon.amazonvideo.livingroom", true},
		{"DISNEY+", "com.disney.disneyplus", true},
		{"plex", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		target, ok := ResolveApp(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.target, target, tt.name)
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrCannotConnect))
	assert.True(t, Retryable(fmt.Errorf("dial: %w", ErrConnectionClosed)))
	assert.False(t, Retryable(ErrInvalidAuth))
	assert.False(t, Retryable(nil))
}
