package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

// --- CategorizeError Tests ---

func TestCategorizeError_NilError(t *testing.T) {
	result := CategorizeError(nil)
	if result != "None" {
		t.Errorf("CategorizeError(nil) = %q, want %q", result, "None")
	}
}

func TestCategorizeError_SentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"EmptyArtifact", ErrEmptyArtifact, "Artifact_Empty"},
		{"UnclassifiedArtifact", ErrUnclassifiedArtifact, "Artifact_Unclassified"},
		{"CorruptArtifact", ErrCorruptArtifact, "Artifact_Corrupt"},
		{"InputFormat", ErrInputFormat, "Input_Format"},
		{"RobotsDisallowed", ErrRobotsDisallowed, "Policy_Robots"},
		{"RequestCreation", ErrRequestCreation, "Internal_RequestCreation"},
		{"ResponseBodyRead", ErrResponseBodyRead, "Network_BodyRead"},
		{"ConfigValidation", ErrConfigValidation, "Config_Validation"},
		{"ServerHTTPError", ErrServerHTTPError, "HTTP_5xx"},
		{"OtherHTTPError", ErrOtherHTTPError, "HTTP_OtherStatus"},
		{"Database", ErrDatabase, "Database_Other"},
		{"Filesystem", ErrFilesystem, "Filesystem_Other"},
		{"BrowserCapture", ErrBrowserCapture, "Browser_Capture"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_WrappedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "WrappedEmptyArtifact",
			err:      fmt.Errorf("downloading img_001: %w", ErrEmptyArtifact),
			expected: "Artifact_Empty",
		},
		{
			name:     "WrappedInputFormat",
			err:      fmt.Errorf("pages.txt line 3: %w", ErrInputFormat),
			expected: "Input_Format",
		},
		{
			name:     "DoubleWrapped",
			err:      fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrCorruptArtifact)),
			expected: "Artifact_Corrupt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_HTTPStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"NotFound", WrapErrorf(ErrClientHTTPError, "received status 404 fetching asset"), "HTTP_404"},
		{"Forbidden", WrapErrorf(ErrClientHTTPError, "received status 403 fetching asset"), "HTTP_403"},
		{"TooManyRequests", WrapErrorf(ErrClientHTTPError, "received status 429 fetching asset"), "HTTP_429"},
		{"GenericClient", WrapErrorf(ErrClientHTTPError, "received status 418"), "HTTP_4xx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CategorizeError(tt.err)
			if result != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestCategorizeError_RetryFailed(t *testing.T) {
	tests := []struct {
		name     string
		last     error
		expected string
	}{
		{"ServerError", fmt.Errorf("%w: status 503", ErrServerHTTPError), "RetryFailed_HTTPServer"},
		{"RateLimited", fmt.Errorf("%w: status 429", ErrClientHTTPError), "RetryFailed_HTTPClient"},
		{"Timeout", errors.New("dial tcp: i/o timeout"), "RetryFailed_NetworkTimeout"},
		{"Refused", errors.New("dial tcp: connection refused"), "RetryFailed_ConnectionRefused"},
		{"Other", errors.New("unexpected EOF"), "RetryFailed_NetworkOther"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("%w: %w", ErrRetryFailed, tt.last)
			if got := CategorizeError(wrapped); got != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", wrapped, got, tt.expected)
			}
		})
	}
}

func TestCategorizeError_ContextErrors(t *testing.T) {
	if got := CategorizeError(context.Canceled); got != "System_ContextCanceled" {
		t.Errorf("CategorizeError(context.Canceled) = %q", got)
	}
	if got := CategorizeError(context.DeadlineExceeded); got != "System_ContextDeadlineExceeded" {
		t.Errorf("CategorizeError(context.DeadlineExceeded) = %q", got)
	}
}

func TestCategorizeError_NetworkStrings(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ConnectionRefused", errors.New("dial tcp 127.0.0.1:80: connection refused"), "Network_ConnectionRefused"},
		{"DNSFailure", errors.New("lookup nohost.invalid: no such host"), "Network_DNSLookup"},
		{"TLS", errors.New("x509: certificate signed by unknown authority"), "Network_TLS"},
		{"Unknown", errors.New("something novel"), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err); got != tt.expected {
				t.Errorf("CategorizeError(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

// --- WrapErrorf Tests ---

func TestWrapErrorf(t *testing.T) {
	wrapped := WrapErrorf(ErrFilesystem, "writing %s", "out.json")
	if wrapped == nil {
		t.Fatal("WrapErrorf returned nil for non-nil error")
	}
	if !errors.Is(wrapped, ErrFilesystem) {
		t.Error("wrapped error lost its sentinel")
	}
	want := "writing out.json: filesystem error"
	if wrapped.Error() != want {
		t.Errorf("WrapErrorf message = %q, want %q", wrapped.Error(), want)
	}
}

func TestWrapErrorf_NilPassthrough(t *testing.T) {
	if WrapErrorf(nil, "context") != nil {
		t.Error("WrapErrorf(nil, ...) should return nil")
	}
}

// --- SanitizeFilename Tests ---

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Simple", "Red Dragon Card", "Red Dragon Card"},
		{"Slashes", "cards/dragons", "cards_dragons"},
		{"Reserved", "a<b>c:d", "a_b_c_d"},
		{"CollapsedUnderscores", "a///b", "a_b"},
		{"TrimmedEdges", "_a_", "a"},
		{"Empty", "", "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeFilename_Truncation(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	got := SanitizeFilename(string(long))
	if len(got) > 100 {
		t.Errorf("sanitized length = %d, want <= 100", len(got))
	}
}

func TestSanitizeFilename_TruncationRuneBoundary(t *testing.T) {
	// 99 ASCII bytes followed by a two-byte rune straddling the limit; a byte
	// cut would leave half the rune behind
	input := strings.Repeat("a", 99) + "é"
	got := SanitizeFilename(input)
	if !utf8.ValidString(got) {
		t.Errorf("SanitizeFilename(%q) = %q is not valid UTF-8", input, got)
	}
	if len(got) > 100 {
		t.Errorf("sanitized length = %d, want <= 100", len(got))
	}
	if got != strings.Repeat("a", 99) {
		t.Errorf("SanitizeFilename dropped the wrong bytes: %q", got)
	}
}

// --- CompileIgnorePatterns Tests ---

func TestCompileIgnorePatterns(t *testing.T) {
	res, err := CompileIgnorePatterns([]string{`thumb`, `\d+x\d+`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d patterns, want 2", len(res))
	}
	if !res[0].MatchString("THUMBNAIL.jpg") {
		t.Error("patterns should be case-insensitive")
	}
}

func TestCompileIgnorePatterns_Invalid(t *testing.T) {
	_, err := CompileIgnorePatterns([]string{`([`})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if !errors.Is(err, ErrConfigValidation) {
		t.Errorf("error should wrap ErrConfigValidation, got %v", err)
	}
}
