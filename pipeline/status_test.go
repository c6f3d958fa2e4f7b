package pipeline

import "testing"

func TestCanAdvance_ForwardOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusQueued, StatusStarting, true},
		{StatusQueued, StatusProcessing, true},
		{StatusQueued, StatusFailed, true},
		{StatusStarting, StatusProcessing, true},
		{StatusStarting, StatusQueued, false},
		{StatusProcessing, StatusSucceeded, true},
		{StatusProcessing, StatusStarting, false},
		{StatusProcessing, StatusQueued, false},
		{StatusSucceeded, StatusProcessing, false},
		{StatusFailed, StatusSucceeded, false},
		{StatusCanceled, StatusProcessing, false},
		{"bogus", StatusProcessing, false},
		{StatusQueued, "bogus", false},
	}
	for _, tt := range tests {
		if got := CanAdvance(tt.from, tt.to); got != tt.want {
			t.Errorf("CanAdvance(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	for _, status := range []string{StatusSucceeded, StatusFailed, StatusCanceled} {
		if !IsTerminal(status) {
			t.Errorf("IsTerminal(%q) = false, want true", status)
		}
	}
	for _, status := range []string{StatusQueued, StatusStarting, StatusProcessing} {
		if IsTerminal(status) {
			t.Errorf("IsTerminal(%q) = true, want false", status)
		}
	}
}

func TestMapProviderStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider string
		want     string
	}{
		{"queued", StatusStarting},
		{"pending", StatusStarting},
		{"running", StatusProcessing},
		{"processing", StatusProcessing},
		{"completed", StatusSucceeded},
		{"succeeded", StatusSucceeded},
		{"failed", StatusFailed},
		{"error", StatusFailed},
		{"canceled", StatusCanceled},
		{"cancelled", StatusCanceled},
	}
	for _, tt := range tests {
		got, err := MapProviderStatus(tt.provider)
		if err != nil {
			t.Errorf("MapProviderStatus(%q) returned error: %v", tt.provider, err)
			continue
		}
		if got != tt.want {
			t.Errorf("MapProviderStatus(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}

	if _, err := MapProviderStatus("warming-up"); err == nil {
		t.Error("MapProviderStatus accepted an unknown status")
	}
}

func TestClampProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw, want int
	}{
		{-5, 0},
		{0, 0},
		{42, 42},
		{100, 100},
		{250, 100},
	}
	for _, tt := range tests {
		if got := ClampProgress(tt.raw); got != tt.want {
			t.Errorf("ClampProgress(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
