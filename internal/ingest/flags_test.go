package ingest

import "testing"

func TestHasError(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Error: connection refused", true},
		{"the build failed again", true},
		{"file not found", true},
		{"that module doesn't exist", true},
		{"unable to parse the config", true},
		{"all tests pass", false},
	}
	for _, tc := range tests {
		if got := hasError(tc.text); got != tc.want {
			t.Errorf("hasError(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestIsRetry(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Let me try a different approach", true},
		{"That didn't work, let me check the imports", true},
		{"The issue is the stale cache", true},
		{"Actually, the problem is elsewhere", true},
		{"Here is the implementation", false},
	}
	for _, tc := range tests {
		if got := isRetry(tc.text); got != tc.want {
			t.Errorf("isRetry(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestIsCorrection(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"No, use the staging database", true},
		{"wrong file", true},
		{"Actually, I wanted the v2 endpoint", true},
		{"that's not what I asked for", true},
		{"I meant the other branch", true},
		{"looks good, continue", false},
		{"nothing to correct here", false}, // "no" only counts at the start
	}
	for _, tc := range tests {
		if got := isCorrection(tc.text); got != tc.want {
			t.Errorf("isCorrection(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestIsDiscovery(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"I found the root cause", true},
		{"The problem was a stale lock file", true},
		{"Now I understand what happens on restart", true},
		{"Tests are working now", true},
		{"Deployed successfully", true},
		{"still digging", false},
	}
	for _, tc := range tests {
		if got := isDiscovery(tc.text); got != tc.want {
			t.Errorf("isDiscovery(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
