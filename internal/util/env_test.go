package util

import "testing"

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("LEADLINE_TEST_VAR", "set")
	if got := GetEnvWithDefault("LEADLINE_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("GetEnvWithDefault = %q, want %q", got, "set")
	}
	t.Setenv("LEADLINE_TEST_VAR", "")
	if got := GetEnvWithDefault("LEADLINE_TEST_VAR", "fallback"); got != "fallback" {
		t.Errorf("GetEnvWithDefault = %q, want %q", got, "fallback")
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"garbage", true, true},
		{"garbage", false, false},
	}

	for _, tt := range tests {
		t.Setenv("LEADLINE_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("LEADLINE_TEST_BOOL", tt.def); got != tt.expected {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
		}
	}
}
