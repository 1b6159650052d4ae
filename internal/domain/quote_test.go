package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  Category
		expectErr bool
	}{
		{"motivation", "motivation", CategoryMotivation, false},
		{"love", "love", CategoryLove, false},
		{"success", "success", CategorySuccess, false},
		{"wisdom", "wisdom", CategoryWisdom, false},
		{"humor", "humor", CategoryHumor, false},
		{"unknown value", "philosophy", "", true},
		{"empty string", "", "", true},
		{"wrong case", "Wisdom", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCategory(tt.input)
			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, c)
		})
	}
}

func TestCategory_Valid(t *testing.T) {
	assert.True(t, CategoryHumor.Valid())
	assert.False(t, Category("sports").Valid())
}

func TestQuote_Same(t *testing.T) {
	a := Quote{ID: "1", Text: "original"}
	b := Quote{ID: "1", Text: "edited"}
	c := Quote{ID: "2", Text: "original"}

	assert.True(t, a.Same(b))
	assert.False(t, a.Same(c))
}
