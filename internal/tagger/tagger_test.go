package tagger

import (
	"strings"
	"testing"
)

func TestAddFileScope_Wraps(t *testing.T) {
	out := AddFileScope(Input{
		Source:      `export const red = style({ color: "red" });`,
		FilePath:    "src/theme.css.ts",
		PackageName: "my-app",
	})

	if !strings.HasPrefix(out.Source, `import { setFileScope, endFileScope } from "@vanilla-extract/css/fileScope";`) {
		t.Errorf("tagged source should start with the runtime import, got:\n%s", out.Source)
	}
	if !strings.Contains(out.Source, `setFileScope("src/theme.css.ts", "my-app");`) {
		t.Errorf("tagged source should set the file scope, got:\n%s", out.Source)
	}
	if !strings.Contains(out.Source, `export const red = style({ color: "red" });`) {
		t.Error("tagged source should preserve the original module body")
	}
	if !strings.HasSuffix(out.Source, "endFileScope();\n") {
		t.Errorf("tagged source should end the file scope, got:\n%s", out.Source)
	}
}

func TestAddFileScope_Idempotent(t *testing.T) {
	in := Input{
		Source:      `export const red = style({ color: "red" });`,
		FilePath:    "src/theme.css.ts",
		PackageName: "my-app",
	}

	once := AddFileScope(in)
	twice := AddFileScope(Input{
		Source:      once.Source,
		FilePath:    in.FilePath,
		PackageName: in.PackageName,
	})

	if twice.Source != once.Source {
		t.Errorf("retagging changed the source:\nfirst:\n%s\nsecond:\n%s", once.Source, twice.Source)
	}
	if n := strings.Count(twice.Source, "setFileScope("); n != 1 {
		t.Errorf("setFileScope appears %d times, want 1", n)
	}
}

func TestAddFileScope_RetagMovedFile(t *testing.T) {
	original := AddFileScope(Input{
		Source:      `export const red = style({ color: "red" });`,
		FilePath:    "src/old.css.ts",
		PackageName: "my-app",
	})

	moved := AddFileScope(Input{
		Source:      original.Source,
		FilePath:    "src/new.css.ts",
		PackageName: "my-app",
	})

	if strings.Contains(moved.Source, "src/old.css.ts") {
		t.Error("retagging should drop the stale file path")
	}
	if !strings.Contains(moved.Source, `setFileScope("src/new.css.ts", "my-app")`) {
		t.Errorf("retagging should carry the new file path, got:\n%s", moved.Source)
	}
}
