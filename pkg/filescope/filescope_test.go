package filescope

import (
	"testing"

	"github.com/Zhangdroid/vanilla-extract/internal/errors"
)

func TestEncode_Basic(t *testing.T) {
	id, err := Encode(Scope{FilePath: "src/theme.css.ts"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if id != "src/theme.css.ts.ts" {
		t.Errorf("Encode = %q, want %q", id, "src/theme.css.ts.ts")
	}
}

func TestEncode_DebugID(t *testing.T) {
	id, err := Encode(Scope{FilePath: "src/theme.css.ts", DebugID: "dark"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if id != "src/theme.css.ts$dark.ts" {
		t.Errorf("Encode = %q, want %q", id, "src/theme.css.ts$dark.ts")
	}
}

func TestEncode_InvalidPath(t *testing.T) {
	tests := []string{
		"",
		"/abs/path.css.ts",
		`src\theme.css.ts`,
	}

	for _, path := range tests {
		if _, err := Encode(Scope{FilePath: path}); err == nil {
			t.Errorf("Encode(%q) should fail", path)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	scopes := []Scope{
		{FilePath: "src/theme.css.ts"},
		{FilePath: "src/theme.css.ts", DebugID: "dark"},
		{FilePath: "deep/nested/dir/button.css.ts", DebugID: "variant-2"},
		{FilePath: "odd%name.css.ts"},
		{FilePath: "odd$name.css.ts", DebugID: "a$b"},
		{FilePath: "odd%25name.css.ts", DebugID: "x%24y"},
		{FilePath: "a.css.ts", DebugID: "with.dots"},
	}

	for _, s := range scopes {
		id, err := Encode(s)
		if err != nil {
			t.Fatalf("Encode(%+v) failed: %v", s, err)
		}
		got, err := Decode(id)
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", id, err)
		}
		if got != s {
			t.Errorf("round trip %+v -> %q -> %+v", s, id, got)
		}
	}
}

func TestEncode_NoCollisions(t *testing.T) {
	// Scopes that would collide under naive concatenation.
	pairs := [][2]Scope{
		{{FilePath: "a.css.ts", DebugID: "b"}, {FilePath: "a.css.ts$b"}},
		{{FilePath: "a%b.css.ts"}, {FilePath: "a%25b.css.ts"}},
	}

	for _, pair := range pairs {
		left, err := Encode(pair[0])
		if err != nil {
			t.Fatalf("Encode(%+v) failed: %v", pair[0], err)
		}
		right, err := Encode(pair[1])
		if err != nil {
			t.Fatalf("Encode(%+v) failed: %v", pair[1], err)
		}
		if left == right {
			t.Errorf("distinct scopes %+v and %+v encode to %q", pair[0], pair[1], left)
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []string{
		"",
		"no-marker",
		".ts",
		"a$b$c.ts",
		"a$.ts",
		"trailing%2.ts",
		"bad%zzescape.ts",
		"/abs/path.css.ts.ts",
	}

	for _, id := range tests {
		_, err := Decode(id)
		if err == nil {
			t.Errorf("Decode(%q) should fail", id)
			continue
		}
		if !errors.IsCode(err, errors.CodeMalformedIdentifier) {
			t.Errorf("Decode(%q) error = %v, want code %s", id, err, errors.CodeMalformedIdentifier)
		}
	}
}

func TestDecode_PlainPath(t *testing.T) {
	got, err := Decode("src/theme.css.ts.ts")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := Scope{FilePath: "src/theme.css.ts"}
	if got != want {
		t.Errorf("Decode = %+v, want %+v", got, want)
	}
}
