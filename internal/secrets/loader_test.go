package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	if err := os.WriteFile(tokenFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("writing token file: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("writing empty file: %v", err)
	}
	t.Setenv("MATCHBOARD_TEST_SECRET", " from-env ")

	tests := []struct {
		name    string
		src     Source
		expect  string
		wantErr bool
	}{
		{name: "file wins over value", src: Source{File: tokenFile, Value: "inline"}, expect: "from-file"},
		{name: "inline value", src: Source{Value: " inline "}, expect: "inline"},
		{name: "value wins over env", src: Source{Value: "inline", Env: "MATCHBOARD_TEST_SECRET"}, expect: "inline"},
		{name: "env fallback", src: Source{Env: "MATCHBOARD_TEST_SECRET"}, expect: "from-env"},
		{name: "missing required", src: Source{Name: "api token"}, wantErr: true},
		{name: "missing optional", src: Source{Optional: true}, expect: ""},
		{name: "empty file is an error even when optional", src: Source{File: emptyFile, Optional: true}, wantErr: true},
		{name: "unreadable file", src: Source{File: filepath.Join(dir, "absent")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
