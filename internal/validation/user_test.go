package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{name: "lowercase", username: "alice"},
		{name: "mixed case with digits", username: "Alice_42"},
		{name: "max length", username: strings.Repeat("a", 32)},
		{name: "empty", username: "", wantErr: true},
		{name: "too short", username: "ab", wantErr: true},
		{name: "too long", username: strings.Repeat("a", 33), wantErr: true},
		{name: "dash", username: "alice-smith", wantErr: true},
		{name: "cyrillic", username: "алиса", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("exactly12chr"))
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("short"))
}

func TestValidateDisplayName(t *testing.T) {
	assert.NoError(t, ValidateDisplayName(""))
	assert.NoError(t, ValidateDisplayName("Dr. Ада Лавлейс"))
	assert.Error(t, ValidateDisplayName(" padded"))
	assert.Error(t, ValidateDisplayName(strings.Repeat("я", MaxDisplayNameLen+1)))
}

func TestValidateColor(t *testing.T) {
	assert.NoError(t, ValidateColor(""))
	assert.NoError(t, ValidateColor("#1A2b3C"))
	assert.Error(t, ValidateColor("red"))
	assert.Error(t, ValidateColor("#12345"))
}
