package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{" art, travel ", []string{"art", "travel"}},
		{"art,travel", []string{"art", "travel"}},
		{",,a,, ,b,", []string{"a", "b"}},
		{"new york, los angeles", []string{"newyork", "losangeles"}},
		{"tab\tbed,\nline", []string{"tabbed", "line"}},
		{"b,a,b", []string{"b", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got := ParseTags(tt.in)
			assert.Equal(t, tt.want, got)
			for _, tag := range got {
				assert.NotEmpty(t, tag)
			}
			assert.Equal(t, got, ParseTags(FormatTags(got)))
		})
	}
}

func TestInitialsAvatarURL(t *testing.T) {
	t.Parallel()

	const base = "https://ui-avatars.com/api/"
	assert.Equal(t, "https://ui-avatars.com/api/?name=Ada+Lovelace", InitialsAvatarURL(base, "Ada Lovelace"))
	assert.Equal(t, InitialsAvatarURL(base, "Ada Lovelace"), InitialsAvatarURL(base, " Ada Lovelace "))
	assert.Equal(t, "https://a.test/?s=1&name=Bo", InitialsAvatarURL("https://a.test/?s=1", "Bo"))
}
