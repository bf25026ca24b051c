package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "Simple", in: "Acme Pharmacy", want: "acme-pharmacy"},
		{name: "Punctuation_Collapsed", in: "  Al-Noor   Pharmacy!! ", want: "al-noor-pharmacy"},
		{name: "Diacritics_Stripped", in: "Pharmacie Génération", want: "pharmacie-generation"},
		{name: "Digits_Kept", in: "Care 24/7", want: "care-24-7"},
		{name: "Arabic_Kept", in: "صيدلية النور", want: "صيدلية-النور"},
		{name: "Only_Symbols", in: "!!! ---", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Make(tc.in))
		})
	}
}

func TestMake_Deterministic(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Make("Acme Pharmacy"), Make("acme   PHARMACY"))
}

func TestMake_Truncates(t *testing.T) {
	t.Parallel()
	out := Make(strings.Repeat("pharmacy ", 20))
	assert.LessOrEqual(t, len(out), MaxLength)
	assert.False(t, strings.HasSuffix(out, "-"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "acme-pharmacy", Normalize("  Acme-Pharmacy "))
}
