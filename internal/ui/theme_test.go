package ui

import "testing"

func TestStatusColorLookup(t *testing.T) {
	th := GetTheme("Nightfox")
	styles := th.Styles()

	if got := styles.StatusColor("  Playing "); got != th.StatusColors["playing"] {
		t.Fatalf("StatusColor = %q, want %q", got, th.StatusColors["playing"])
	}
	if got := styles.StatusColor("gettingNextPage"); got != th.StatusColors["gettingnextpage"] {
		t.Fatalf("StatusColor camel case = %q, want %q", got, th.StatusColors["gettingnextpage"])
	}
	if got := styles.StatusColor("unknown"); got != th.Muted {
		t.Fatalf("StatusColor unknown = %q, want %q", got, th.Muted)
	}
}

func TestThemesColorEveryStatus(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, key := range []string{"initial", "content", "error", "playing", "paused", "running", "offline"} {
			if th.StatusColors[key] == "" {
				t.Fatalf("%s has no color for %q", name, key)
			}
		}
	}
}

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 {
		t.Fatalf("ThemeNames() returned %d names, want 3", len(names))
	}
	if names[0] != "Nightfox" || names[1] != "Kanagawa" || names[2] != "Slate" {
		t.Fatalf("ThemeNames() = %v, want [Nightfox Kanagawa Slate]", names)
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Nightfox"); got != "Kanagawa" {
		t.Fatalf("NextTheme(Nightfox) = %q, want Kanagawa", got)
	}
	if got := NextTheme("Slate"); got != "Nightfox" {
		t.Fatalf("NextTheme(Slate) = %q, want Nightfox", got)
	}
	if got := NextTheme("Unknown"); got != "Nightfox" {
		t.Fatalf("NextTheme(Unknown) = %q, want Nightfox", got)
	}
}

func TestGetThemeFallsBack(t *testing.T) {
	if got := GetTheme("Kanagawa").Name; got != "Kanagawa" {
		t.Fatalf("GetTheme(Kanagawa).Name = %q", got)
	}
	if got := GetTheme("Dracula").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(Dracula).Name = %q, want Nightfox (fallback)", got)
	}
}
