package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

type testData struct {
	Name  string `yaml:"name"`
	Value int    `yaml:"value"`
}

func TestReadYAML(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantErr   bool
		wantName  string
		wantValue int
	}{
		{
			name:      "valid YAML",
			content:   "name: test\nvalue: 42\n",
			wantErr:   false,
			wantName:  "test",
			wantValue: 42,
		},
		{
			name:    "invalid YAML",
			content: "name: [test\n",
			wantErr: true,
		},
		{
			name:      "empty document",
			content:   "",
			wantErr:   false,
			wantName:  "",
			wantValue: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test file: %v", err)
			}

			var got testData
			err := ReadYAML(path, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadYAML() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Name != tt.wantName || got.Value != tt.wantValue {
				t.Errorf("ReadYAML() = %+v, want name=%q value=%d", got, tt.wantName, tt.wantValue)
			}
		})
	}
}

func TestReadYAML_FileNotFound(t *testing.T) {
	var data testData
	err := ReadYAML(filepath.Join(t.TempDir(), "missing.yaml"), &data)
	if !os.IsNotExist(err) {
		t.Errorf("ReadYAML() error = %v, want not-exist", err)
	}
}

func TestWriteYAMLAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")

	if err := WriteYAMLAtomic(path, testData{Name: "atomic", Value: 7}, 0600); err != nil {
		t.Fatalf("WriteYAMLAtomic() failed: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after atomic write")
	}

	var got testData
	if err := ReadYAML(path, &got); err != nil {
		t.Fatalf("ReadYAML() failed: %v", err)
	}
	if got.Name != "atomic" || got.Value != 7 {
		t.Errorf("round trip = %+v", got)
	}
}

func TestWriteAtomic_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "out.yaml")
	if err := WriteAtomic(path, []byte("x"), 0600); err == nil {
		t.Error("WriteAtomic() into a missing directory should fail")
	}
}
