package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew_RegisteredCode(t *testing.T) {
	err := New("E202")

	if err.Code != "E202" {
		t.Errorf("Code = %q, want %q", err.Code, "E202")
	}
	if err.Category != CategoryResolve {
		t.Errorf("Category = %q, want %q", err.Category, CategoryResolve)
	}
	if err.Message == "" {
		t.Error("Message should not be empty")
	}
	if err.DocURL == "" {
		t.Error("DocURL should not be empty")
	}
}

func TestNew_UnknownCode(t *testing.T) {
	err := New("E999")

	if err.Code != "E999" {
		t.Errorf("Code = %q, want %q", err.Code, "E999")
	}
	if err.Message != "Unknown error" {
		t.Errorf("Message = %q, want %q", err.Message, "Unknown error")
	}
}

func TestError_ErrorString(t *testing.T) {
	err := New("E201")
	want := fmt.Sprintf("E201: %s", err.Message)
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	noCode := Newf(CategoryBuild, "something went %s", "sideways")
	if noCode.Error() != "something went sideways" {
		t.Errorf("Error() = %q, want %q", noCode.Error(), "something went sideways")
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := stderrors.New("disk full")
	err := New("E401").Wrap(inner)

	if !stderrors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E301") != nil {
		t.Error("FromError(nil) should be nil")
	}

	ve := New("E201")
	if got := FromError(ve, "E301"); got != ve {
		t.Error("FromError should pass through an existing *Error")
	}

	plain := stderrors.New("boom")
	wrapped := FromError(plain, "E301")
	if wrapped.Code != "E301" {
		t.Errorf("Code = %q, want %q", wrapped.Code, "E301")
	}
	if !stderrors.Is(wrapped, plain) {
		t.Error("wrapped error should be reachable via errors.Is")
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeUnregisteredScope)

	if !IsCode(err, "E202") {
		t.Error("IsCode should match the error's own code")
	}
	if IsCode(err, "E201") {
		t.Error("IsCode should not match a different code")
	}

	wrapped := fmt.Errorf("load failed: %w", err)
	if !IsCode(wrapped, "E202") {
		t.Error("IsCode should match through fmt.Errorf wrapping")
	}

	if IsCode(nil, "E202") {
		t.Error("IsCode(nil) should be false")
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		loc  *Location
		want string
	}{
		{nil, ""},
		{&Location{File: "src/theme.css.ts", Line: 3}, "src/theme.css.ts:3"},
		{&Location{File: "src/theme.css.ts", Line: 3, Column: 7}, "src/theme.css.ts:3:7"},
	}

	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFormat_ContainsParts(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E202").
		WithDetail("requested a scope the pipeline never produced").
		WithSuggestion("restart the dev server")

	out := err.Format()
	if !strings.Contains(out, "E202") {
		t.Error("Format should contain the error code")
	}
	if !strings.Contains(out, "Hint: restart the dev server") {
		t.Error("Format should contain the suggestion")
	}
	if !strings.Contains(out, err.DocURL) {
		t.Error("Format should contain the doc URL")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E201")
	err.Location = &Location{File: "src/theme.css.ts", Line: 1}

	got := err.FormatCompact()
	want := "src/theme.css.ts:1: E201: " + err.Message
	if got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("aaa bbb ccc ddd", 7)
	for _, line := range lines {
		if len(line) > 7 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if strings.Join(lines, " ") != "aaa bbb ccc ddd" {
		t.Errorf("wrapText lost content: %v", lines)
	}

	if wrapText("", 10) != nil {
		t.Error("wrapText of empty string should be nil")
	}
}
