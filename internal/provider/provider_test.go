package provider

import (
	"errors"
	"testing"
)

func TestParse_Known(t *testing.T) {
	cases := map[string]Name{
		"google":    Google,
		"facebook":  Facebook,
		"instagram": Instagram,
		"linkedin":  LinkedIn,
		" Google ":  Google, // espacios y mayúsculas se normalizan
		"LINKEDIN":  LinkedIn,
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) err: %v", in, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParse_Unknown(t *testing.T) {
	for _, in := range []string{"", "twitter", "goog le"} {
		if _, err := Parse(in); !errors.Is(err, ErrUnsupported) {
			t.Fatalf("Parse(%q) err = %v, want ErrUnsupported", in, err)
		}
	}
}

func TestCredentialVarNames(t *testing.T) {
	if got := ClientIDVar(Google); got != "GOOGLE_CLIENT_ID" {
		t.Fatalf("ClientIDVar = %q", got)
	}
	if got := ClientSecretVar(LinkedIn); got != "LINKEDIN_CLIENT_SECRET" {
		t.Fatalf("ClientSecretVar = %q", got)
	}
}
