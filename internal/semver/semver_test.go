package semver

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		tag  string
		want Version
		ok   bool
	}{
		{"v0.0.0", New(0, 0, 0), true},
		{"v1.2.3", New(1, 2, 3), true},
		{"v10.20.30", New(10, 20, 30), true},
		{" v1.2.3\n", New(1, 2, 3), true},
		{"1.2.3", Version{}, false},
		{"v1.2", Version{}, false},
		{"v1.2.3-rc.1", Version{}, false},
		{"v01.2.3", Version{}, false},
		{"v1.02.3", Version{}, false},
		{"v1.2.x", Version{}, false},
		{"V1.2.3", Version{}, false},
		{"", Version{}, false},
		{"v99999999999999999999.0.0", Version{}, false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.tag)
		if ok != tt.ok {
			t.Errorf("Parse(%q) ok = %v, want %v", tt.tag, ok, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestParse_RoundTrip(t *testing.T) {
	for _, tag := range []string{"v0.0.0", "v0.1.0", "v1.0.0", "v3.14.159", "v100.0.7"} {
		v, ok := Parse(tag)
		if !ok {
			t.Fatalf("Parse(%q) failed", tag)
		}
		again, ok := Parse(v.String())
		if !ok || again != v {
			t.Errorf("round trip of %q = %v, want %v", tag, again, v)
		}
		if v.String() != tag {
			t.Errorf("String() = %q, want %q", v.String(), tag)
		}
	}
}

func TestBump(t *testing.T) {
	v := New(1, 4, 7)
	tests := []struct {
		kind string
		want Version
	}{
		{Major, New(2, 0, 0)},
		{Minor, New(1, 5, 0)},
		{Patch, New(1, 4, 8)},
	}
	for _, tt := range tests {
		if got := Bump(v, tt.kind); got != tt.want {
			t.Errorf("Bump(%v, %q) = %v, want %v", v, tt.kind, got, tt.want)
		}
	}
}

func TestBump_Compositional(t *testing.T) {
	for _, v := range []Version{New(0, 0, 0), New(0, 9, 3), New(4, 1, 1)} {
		got := Bump(Bump(v, Major), Patch)
		want := New(v.Major()+1, 0, 1)
		if got != want {
			t.Errorf("Bump(Bump(%v, major), patch) = %v, want %v", v, got, want)
		}
	}
}

func TestBump_UnknownKindPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unsupported bump kind")
		}
	}()
	Bump(New(1, 0, 0), "none")
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Version
		want int
	}{
		{New(1, 0, 0), New(1, 0, 0), 0},
		{New(1, 0, 0), New(2, 0, 0), -1},
		{New(1, 10, 0), New(1, 9, 99), 1},
		{New(1, 1, 2), New(1, 1, 10), -1},
	}
	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFindLatest(t *testing.T) {
	latest, ok := FindLatest([]string{"v1.2.3", "nightly", "v1.10.0", "v1.9.9", "v2.0.0-beta"})
	if !ok {
		t.Fatal("expected a latest tag")
	}
	if latest != "v1.10.0" {
		t.Errorf("latest = %q, want v1.10.0", latest)
	}

	if _, ok := FindLatest([]string{"latest", "release-1"}); ok {
		t.Error("expected no latest tag when nothing parses")
	}
	if _, ok := FindLatest(nil); ok {
		t.Error("expected no latest tag for nil input")
	}
}

func TestIsValidBump(t *testing.T) {
	for _, kind := range []string{Major, Minor, Patch} {
		if !IsValidBump(kind) {
			t.Errorf("IsValidBump(%q) = false", kind)
		}
	}
	for _, kind := range []string{"none", "", "MAJOR", "prerelease"} {
		if IsValidBump(kind) {
			t.Errorf("IsValidBump(%q) = true", kind)
		}
	}
}
