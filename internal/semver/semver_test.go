package semver

import "testing"

func TestParseStrict(t *testing.T) {
	valid := []string{"0.0.0", "1.2.3", "10.20.30", "999.0.1"}
	for _, s := range valid {
		v, err := Parse(s)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", s, err)
			continue
		}
		if v.String() != s {
			t.Errorf("Parse(%q).String() = %q", s, v.String())
		}
	}

	invalid := []string{
		"",
		"1.2",
		"1.2.3.4",
		"v1.2.3",
		"1.2.3-beta",
		"1.2.3+build.5",
		"1.2.x",
		" 1.2.3",
		"1.2.3 ",
		"latest",
	}
	for _, s := range invalid {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) accepted a non-strict version", s)
		}
		if IsValid(s) {
			t.Errorf("IsValid(%q) = true", s)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.1", "1.0.0", 1},
		{"1.0.0", "1.0.1", -1},
		{"1.1.0", "1.0.9", 1},
		{"2.0.0", "1.9.9", 1},
		{"0.9.9", "1.0.0", -1},
		{"10.0.0", "9.0.0", 1},
		{"1.10.0", "1.9.0", 1},
		{"1.0.10", "1.0.9", 1},
	}

	for _, tt := range tests {
		a := MustParse(tt.a)
		b := MustParse(tt.b)
		if got := Compare(a, b); got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

// IsStrictlyNewer must agree with Compare for every pair, and be irreflexive.
func TestIsStrictlyNewerAgreesWithCompare(t *testing.T) {
	versions := []string{
		"0.0.0", "0.0.1", "0.1.0", "1.0.0", "1.0.1",
		"1.2.3", "1.10.0", "2.0.0", "10.0.0",
	}

	for _, as := range versions {
		for _, bs := range versions {
			a := MustParse(as)
			b := MustParse(bs)
			want := Compare(a, b) > 0
			if got := IsStrictlyNewer(a, b); got != want {
				t.Errorf("IsStrictlyNewer(%s, %s) = %v, Compare = %d", as, bs, got, Compare(a, b))
			}
		}
	}

	for _, s := range versions {
		v := MustParse(s)
		if IsStrictlyNewer(v, v) {
			t.Errorf("IsStrictlyNewer(%s, %s) = true, want false", s, s)
		}
	}
}
