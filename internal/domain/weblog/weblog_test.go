package weblog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNew(t *testing.T) {
	w, err := New(Params{
		Handle:  " myblog ",
		Name:    " My Blog ",
		Locale:  "en_US",
		Enabled: true,
		Active:  true,
	})
	require.NoError(t, err)
	require.Equal(t, "myblog", w.Handle)
	require.Equal(t, "My Blog", w.Name)
	require.True(t, w.Enabled)
}

func TestNew_Invalid(t *testing.T) {
	tests := map[string]Params{
		"empty handle":     {Name: "n"},
		"uppercase handle": {Handle: "MyBlog", Name: "n"},
		"spaced handle":    {Handle: "my blog", Name: "n"},
		"leading dash":     {Handle: "-blog", Name: "n"},
		"empty name":       {Handle: "myblog", Name: " "},
	}
	for name, params := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(params)
			require.ErrorIs(t, err, ErrInvalidWeblog)
		})
	}
}

func TestTouch_NeverRewinds(t *testing.T) {
	now := time.Now()
	w := &Weblog{LastModified: now}

	w.Touch(now.Add(-time.Hour))
	require.Equal(t, now, w.LastModified)

	later := now.Add(time.Hour)
	w.Touch(later)
	require.Equal(t, later, w.LastModified)
}

func TestLanguageTag(t *testing.T) {
	w := &Weblog{Locale: "en_US"}
	require.Equal(t, language.MustParse("en-US"), w.LanguageTag())

	require.Equal(t, language.Und, (&Weblog{}).LanguageTag())
	require.Equal(t, language.Und, (&Weblog{Locale: "???"}).LanguageTag())

	var nilBlog *Weblog
	require.Equal(t, language.Und, nilBlog.LanguageTag())
}

func TestLocation(t *testing.T) {
	w := &Weblog{TimeZone: "America/New_York"}
	require.Equal(t, "America/New_York", w.Location().String())

	require.Equal(t, time.UTC, (&Weblog{}).Location())
	require.Equal(t, time.UTC, (&Weblog{TimeZone: "Nowhere/Nothing"}).Location())
}
