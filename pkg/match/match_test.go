package match

import "testing"

func TestGlob(t *testing.T) {
	cases := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*", "anything", true},
		{"event*", "event3", true},
		{"event*", "mouse0", false},
		{"event?", "event3", true},
		{"event?", "event33", false},
		{"{mouse,keyboard}*", "mouse0", true},
		{"{mouse,keyboard}*", "keyboard1", true},
		{"{mouse,keyboard}*", "gamepad0", false},
		{"usb-{0000,1d6b}:*", "usb-1d6b:0002", true},
		{"usb-{0000,1d6b}:*", "usb-feed:0002", false},
		{"a{b,c{d,e}}f", "abf", true},
		{"a{b,c{d,e}}f", "acdf", true},
		{"a{b,c{d,e}}f", "acef", true},
		{"a{b,c{d,e}}f", "acf", false},
	}
	for _, c := range cases {
		if got := Glob(c.pattern, c.name); got != c.want {
			t.Errorf("Glob(%q, %q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}

func TestAny(t *testing.T) {
	if !Any([]string{"foo*", "bar*"}, "barbaz") {
		t.Fatal("expected match")
	}
	if Any([]string{"foo*", "bar*"}, "qux") {
		t.Fatal("expected no match")
	}
}
