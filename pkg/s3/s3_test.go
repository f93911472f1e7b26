package s3

import (
	"strings"
	"testing"
)

func TestExtractKeyFromS3Url(t *testing.T) {
	tests := map[string]string{
		"https://bucket.s3.amazonaws.com/artifacts/video/abc.json": "artifacts/video/abc.json",
		"artifacts/image/abc.json":                                 "artifacts/image/abc.json",
		"https://bucket.s3.amazonaws.com/a.com/b.json":             "a.com/b.json",
	}

	for in, want := range tests {
		if got := ExtractKeyFromS3Url(in); got != want {
			t.Errorf("ExtractKeyFromS3Url(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerateUniqueFileName(t *testing.T) {
	name := generateUniqueFileName("uploads", "../../etc/clip.mp4")
	if !strings.HasPrefix(name, "uploads/") || !strings.HasSuffix(name, "-clip.mp4") {
		t.Errorf("unexpected name %q", name)
	}
	if strings.Contains(name, "..") {
		t.Errorf("name %q should not escape the prefix", name)
	}
}
