package ingest

import (
	"archive/zip"
	"bytes"
	"testing"
)

// Minimal valid signatures for each supported format.
var (
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	pngBytes  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	webpBytes = []byte{'R', 'I', 'F', 'F', 0x24, 0x00, 0x00, 0x00, 'W', 'E', 'B', 'P'}
	gifBytes  = []byte("GIF89a")
	bmpBytes  = []byte{'B', 'M', 0x00, 0x00}
)

type zipEntry struct {
	name    string
	content []byte
}

func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e.name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", e.name, err)
		}
		if _, err := f.Write(e.content); err != nil {
			t.Fatalf("write zip entry %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractImages_AcceptsValidSignatures(t *testing.T) {
	data := buildZip(t,
		zipEntry{"a.jpg", jpegBytes},
		zipEntry{"b.png", pngBytes},
		zipEntry{"c.webp", webpBytes},
		zipEntry{"d.gif", gifBytes},
		zipEntry{"e.bmp", bmpBytes},
	)
	result := ExtractImages(data, []string{"a.jpg", "b.png", "c.webp", "d.gif", "e.bmp"})

	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
	if len(result.Images) != 5 {
		t.Fatalf("expected 5 images, got %d", len(result.Images))
	}

	wantMime := map[string]string{
		"a.jpg":  "image/jpeg",
		"b.png":  "image/png",
		"c.webp": "image/webp",
		"d.gif":  "image/gif",
		"e.bmp":  "image/bmp",
	}
	for name, mime := range wantMime {
		img, ok := result.Images[name]
		if !ok {
			t.Errorf("image %s missing from result", name)
			continue
		}
		if img.MimeType != mime {
			t.Errorf("%s: MimeType = %q, want %q", name, img.MimeType, mime)
		}
		if img.SizeBytes != len(img.Content) {
			t.Errorf("%s: SizeBytes = %d, want %d", name, img.SizeBytes, len(img.Content))
		}
	}
}

func TestExtractImages_RejectsSignatureMismatch(t *testing.T) {
	// A text file renamed to .jpg must be rejected by the content check.
	data := buildZip(t, zipEntry{"fake.jpg", []byte("this is not an image at all")})
	result := ExtractImages(data, nil)

	if len(result.Images) != 0 {
		t.Fatalf("fake image must not be extracted, got %v", result.Images)
	}
	if len(result.Errors) != 1 || result.Errors[0].Kind != IssueInvalidImageFile {
		t.Fatalf("expected one %s error, got %v", IssueInvalidImageFile, result.Errors)
	}
	if result.Errors[0].Filename != "fake.jpg" {
		t.Errorf("Filename = %q, want fake.jpg", result.Errors[0].Filename)
	}
}

func TestExtractImages_EnforcesSizeCap(t *testing.T) {
	big := make([]byte, MaxImageBytes+1)
	copy(big, jpegBytes)

	data := buildZip(t, zipEntry{"huge.jpg", big})
	result := ExtractImages(data, nil)

	if len(result.Images) != 0 {
		t.Fatalf("oversized image must be rejected")
	}
	if len(result.Errors) != 1 || result.Errors[0].Kind != IssueFileTooLarge {
		t.Fatalf("expected one %s error, got %v", IssueFileTooLarge, result.Errors)
	}

	// Exactly at the cap is fine.
	exact := make([]byte, MaxImageBytes)
	copy(exact, jpegBytes)
	result = ExtractImages(buildZip(t, zipEntry{"exact.jpg", exact}), nil)
	if len(result.Errors) != 0 {
		t.Fatalf("image at the cap must be accepted, got %v", result.Errors)
	}
	if _, ok := result.Images["exact.jpg"]; !ok {
		t.Fatal("image at the cap missing from result")
	}
}

func TestExtractImages_StripsDirectoryComponents(t *testing.T) {
	data := buildZip(t,
		zipEntry{"photos/week1/a.jpg", jpegBytes},
		zipEntry{`photos\week2\b.png`, pngBytes},
	)
	result := ExtractImages(data, nil)

	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
	if _, ok := result.Images["a.jpg"]; !ok {
		t.Errorf("nested entry should be keyed by basename, keys: %v", imageKeys(result))
	}
	if _, ok := result.Images["b.png"]; !ok {
		t.Errorf("backslash path should be keyed by basename, keys: %v", imageKeys(result))
	}
	if got := result.Images["a.jpg"].ArchivePath; got != "photos/week1/a.jpg" {
		t.Errorf("ArchivePath = %q, want original entry path", got)
	}
}

func TestExtractImages_BasenameCollisionLastWriterWins(t *testing.T) {
	data := buildZip(t,
		zipEntry{"week1/day1.jpg", jpegBytes},
		zipEntry{"week2/day1.jpg", pngBytes},
	)
	result := ExtractImages(data, []string{"day1.jpg"})

	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
	img, ok := result.Images["day1.jpg"]
	if !ok {
		t.Fatal("collided basename missing from result")
	}
	if img.ArchivePath != "week2/day1.jpg" {
		t.Errorf("ArchivePath = %q, want the last extracted entry", img.ArchivePath)
	}
	if img.MimeType != "image/png" {
		t.Errorf("MimeType = %q, want the last entry's type", img.MimeType)
	}
}

func TestExtractImages_MissingRequiredImage(t *testing.T) {
	data := buildZip(t, zipEntry{"present.jpg", jpegBytes})
	result := ExtractImages(data, []string{"present.jpg", "absent.png"})

	if len(result.Errors) != 1 || result.Errors[0].Kind != IssueMissingImage {
		t.Fatalf("expected one %s error, got %v", IssueMissingImage, result.Errors)
	}
	if result.Errors[0].Filename != "absent.png" {
		t.Errorf("Filename = %q, want absent.png", result.Errors[0].Filename)
	}
}

func TestExtractImages_ExtraImageIsWarning(t *testing.T) {
	data := buildZip(t,
		zipEntry{"used.jpg", jpegBytes},
		zipEntry{"orphan.png", pngBytes},
	)
	result := ExtractImages(data, []string{"used.jpg"})

	if len(result.Errors) != 0 {
		t.Fatalf("extra image must not be a hard error, got %v", result.Errors)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Kind != IssueExtraImage {
		t.Fatalf("expected one %s warning, got %v", IssueExtraImage, result.Warnings)
	}
	// The extra image is still extracted and usable.
	if _, ok := result.Images["orphan.png"]; !ok {
		t.Error("extra image should still be present in the map")
	}
}

func TestExtractImages_RequiredMatchingIsCaseInsensitive(t *testing.T) {
	data := buildZip(t, zipEntry{"Day1.JPG", jpegBytes})
	result := ExtractImages(data, []string{"day1.jpg"})

	if len(result.Errors) != 0 {
		t.Fatalf("case difference must not report a missing image, got %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("case difference must not report an extra image, got %v", result.Warnings)
	}
}

func TestExtractImages_IgnoresNonImageEntries(t *testing.T) {
	data := buildZip(t,
		zipEntry{"notes.txt", []byte("readme")},
		zipEntry{"a.jpg", jpegBytes},
	)
	result := ExtractImages(data, []string{"a.jpg"})

	if len(result.Errors) != 0 || len(result.Warnings) != 0 {
		t.Fatalf("non-image entries must be skipped silently, got errors %v warnings %v", result.Errors, result.Warnings)
	}
	if len(result.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(result.Images))
	}
}

func TestExtractImages_CorruptArchive(t *testing.T) {
	result := ExtractImages([]byte("definitely not a zip file"), []string{"a.jpg"})

	if len(result.Errors) != 1 || result.Errors[0].Kind != IssueZipError {
		t.Fatalf("expected one %s error, got %v", IssueZipError, result.Errors)
	}
	if len(result.Images) != 0 {
		t.Errorf("corrupt archive must yield no images")
	}
}

func TestSniffImageType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"jpeg", jpegBytes, "image/jpeg"},
		{"png", pngBytes, "image/png"},
		{"webp", webpBytes, "image/webp"},
		{"gif", gifBytes, "image/gif"},
		{"bmp", bmpBytes, "image/bmp"},
		{"riff but not webp", []byte("RIFF0000WAVE"), ""},
		{"empty", nil, ""},
		{"text", []byte("hello"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffImageType(tt.content); got != tt.want {
				t.Errorf("SniffImageType = %q, want %q", got, tt.want)
			}
		})
	}
}

func imageKeys(result ExtractResult) []string {
	keys := make([]string, 0, len(result.Images))
	for k := range result.Images {
		keys = append(keys, k)
	}
	return keys
}
