package config

import (
	"errors"
	"testing"

	"unpackrr/internal/errs"
)

func TestLooksLikeRegex(t *testing.T) {
	regexy := []string{"[abc]", "a*", "a+b", "x?", "a|b", "^start", "end$", `a\d`, "Mod.ba2", "(group)"}
	for _, p := range regexy {
		if !LooksLikeRegex(p) {
			t.Errorf("%q should look like a regex", p)
		}
	}
	plain := []string{"Textures", "Mod - Main", "HD_pack", "", "some file"}
	for _, p := range plain {
		if LooksLikeRegex(p) {
			t.Errorf("%q should not look like a regex", p)
		}
	}
}

func TestIgnoreSet_LiteralSubstring(t *testing.T) {
	set, err := NewIgnoreSet([]string{"Sounds"})
	if err != nil {
		t.Fatal(err)
	}
	if !set.MatchesName("Mod - Sounds - Main") {
		t.Fatalf("literal should match by containment")
	}
	if set.MatchesName("Mod - Textures") {
		t.Fatalf("unrelated name matched")
	}
}

func TestIgnoreSet_RegexIsAnchoredNotSubstring(t *testing.T) {
	set, err := NewIgnoreSet([]string{`Mod.*Main`})
	if err != nil {
		t.Fatal(err)
	}
	if !set.MatchesName("Mod - Main") {
		t.Fatalf("full-string regex match should hit")
	}
	// Would match as a substring, must not match anchored.
	if set.MatchesName("SomeMod - Main.ba2") {
		t.Fatalf("regex pattern must never match by containment")
	}
}

func TestIgnoreSet_DotPromotesToRegex(t *testing.T) {
	set, err := NewIgnoreSet([]string{"Mod.ba2"})
	if err != nil {
		t.Fatal(err)
	}
	if !set.MatchesName("Mod.ba2") {
		t.Fatalf("anchored match on exact name should hit")
	}
	if set.MatchesName("BigMod.ba2") {
		t.Fatalf("dot pattern must be anchored, not a substring")
	}
}

func TestIgnoreSet_ExactPath(t *testing.T) {
	set, err := NewIgnoreSet([]string{"/mods/Foo/Foo - Main.ba2"})
	if err != nil {
		t.Fatal(err)
	}
	if !set.MatchesPath("/mods/Foo/Foo - Main.ba2") {
		t.Fatalf("exact path should match")
	}
}

func TestIgnoreSet_BadRegex(t *testing.T) {
	_, err := NewIgnoreSet([]string{"[unclosed"})
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	s := Settings{}
	if err := s.Validate(); err == nil {
		t.Fatalf("empty postfixes should fail validation")
	}
	s.Postfixes = []string{"- Main.ba2"}
	if err := s.Validate(); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}
	s.IgnorePatterns = []string{"(bad"}
	if err := s.Validate(); err == nil {
		t.Fatalf("bad ignore regex should fail validation")
	}
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"", 0},
		{"100 MB", 100 * 1000 * 1000},
		{"1 KiB", 1024},
		{"2048", 2048},
	}
	for _, tc := range cases {
		got, err := ParseSize(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("parse %q = %d, want %d", tc.in, got, tc.want)
		}
	}
	if _, err := ParseSize("lots"); err == nil {
		t.Fatalf("garbage size should fail")
	}
}
