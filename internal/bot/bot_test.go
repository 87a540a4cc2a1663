// ABOUTME: Tests for the Telegram bot
// ABOUTME: Covers optional construction and greeting composition

package bot

import (
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyTokenDisablesBot(t *testing.T) {
	b, err := New("", "https://t.me/kartos/app")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = New("   ", "")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		name       string
		miniAppURL string
		from       *models.User
		wantIntro  string
		wantApp    bool
	}{
		{
			name:       "full name with app",
			miniAppURL: "https://t.me/kartos/app",
			from:       &models.User{FirstName: "Ada", LastName: "Lovelace"},
			wantIntro:  "Привет, Ada Lovelace!",
			wantApp:    true,
		},
		{
			name:       "first name only",
			miniAppURL: "https://t.me/kartos/app",
			from:       &models.User{FirstName: "Ada"},
			wantIntro:  "Привет, Ada!",
			wantApp:    true,
		},
		{
			name:      "anonymous without app",
			from:      nil,
			wantIntro: "Привет!",
		},
		{
			name:      "blank names fall back",
			from:      &models.User{FirstName: "  ", LastName: " "},
			wantIntro: "Привет!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Bot{miniAppURL: tt.miniAppURL}
			got := b.greeting(tt.from)

			assert.True(t, strings.HasPrefix(got, tt.wantIntro), "got %q", got)
			if tt.wantApp {
				assert.Contains(t, got, "Нажми кнопку ниже")
			} else {
				assert.Contains(t, got, "временно недоступно")
			}
		})
	}
}
