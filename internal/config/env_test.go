package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFiles_FromHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".healthrisk")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	content := `# Test env file
HR_TEST_KEY1=value1
HR_TEST_KEY2="quoted value"
HR_TEST_KEY3='single quoted'
`
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	for _, k := range []string{"HR_TEST_KEY1", "HR_TEST_KEY2", "HR_TEST_KEY3"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	if err := LoadEnvFiles(); err != nil {
		t.Fatalf("LoadEnvFiles failed: %v", err)
	}

	if os.Getenv("HR_TEST_KEY1") != "value1" {
		t.Errorf("HR_TEST_KEY1 not set correctly: %s", os.Getenv("HR_TEST_KEY1"))
	}
	if os.Getenv("HR_TEST_KEY2") != "quoted value" {
		t.Errorf("HR_TEST_KEY2 not set correctly: %s", os.Getenv("HR_TEST_KEY2"))
	}
	if os.Getenv("HR_TEST_KEY3") != "single quoted" {
		t.Errorf("HR_TEST_KEY3 not set correctly: %s", os.Getenv("HR_TEST_KEY3"))
	}
}

func TestLoadEnvFiles_DoesNotOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "healthrisk")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HR_EXISTING_KEY=new_value"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HR_EXISTING_KEY", "original_value")

	if err := LoadEnvFiles(); err != nil {
		t.Fatalf("LoadEnvFiles failed: %v", err)
	}

	if os.Getenv("HR_EXISTING_KEY") != "original_value" {
		t.Error("LoadEnvFiles should not override existing env vars")
	}
}

func TestLoadEnvFiles_NoFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := LoadEnvFiles(); err != nil {
		t.Fatalf("expected no error without env files, got %v", err)
	}
}

func TestResolveEnvWithAliases(t *testing.T) {
	t.Setenv("HEALTHRISK_AI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	if result := ResolveEnvWithAliases("HEALTHRISK_AI_API_KEY"); result != "" {
		t.Error("Expected empty when no keys set")
	}

	t.Setenv("GOOGLE_API_KEY", "google-key")
	if result := ResolveEnvWithAliases("HEALTHRISK_AI_API_KEY"); result != "google-key" {
		t.Errorf("Expected google-key from alias, got %s", result)
	}

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	if result := ResolveEnvWithAliases("HEALTHRISK_AI_API_KEY"); result != "gemini-key" {
		t.Errorf("Expected gemini-key (first alias), got %s", result)
	}

	t.Setenv("HEALTHRISK_AI_API_KEY", "canonical")
	if result := ResolveEnvWithAliases("HEALTHRISK_AI_API_KEY"); result != "canonical" {
		t.Errorf("Expected canonical key to win, got %s", result)
	}
}
