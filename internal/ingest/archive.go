package ingest

// archive.go unpacks the uploaded ZIP into an in-memory filename -> image map.
// File extensions are not trusted; every candidate entry's leading bytes are
// checked against known image signatures before it is accepted.

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// MaxImageBytes caps the decompressed size of a single archive entry.
const MaxImageBytes = 5 * 1024 * 1024

// archiveImageExtensions filter which entries are considered at all. Broader
// than the CSV side so that stray gif/bmp assets produce a signature check
// instead of being silently ignored.
var archiveImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp"}

// ExtractImages decompresses every image-typed entry of the archive,
// validates its content signature and size, and returns a basename-keyed map.
// Entries whose basenames collide keep the last one extracted. requiredNames
// (typically the image filenames referenced by the CSV) are matched
// case-insensitively: each one missing yields an error, each extracted image
// nothing references yields a warning.
func ExtractImages(data []byte, requiredNames []string) ExtractResult {
	result := ExtractResult{Images: make(map[string]ExtractedImage)}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		result.Errors = append(result.Errors, Issue{
			Kind:    IssueZipError,
			Message: fmt.Sprintf("could not open archive: %v", err),
		})
		return result
	}

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if !hasArchiveImageExtension(entry.Name) {
			continue
		}

		if entry.UncompressedSize64 > MaxImageBytes {
			result.Errors = append(result.Errors, Issue{
				Kind:     IssueFileTooLarge,
				Filename: baseName(entry.Name),
				Message:  fmt.Sprintf("%s exceeds the %d MiB limit", entry.Name, MaxImageBytes/(1024*1024)),
			})
			continue
		}

		content, err := readEntry(entry)
		if err != nil {
			result.Errors = append(result.Errors, Issue{
				Kind:     IssueExtractionError,
				Filename: baseName(entry.Name),
				Message:  fmt.Sprintf("could not extract %s: %v", entry.Name, err),
			})
			continue
		}
		if len(content) > MaxImageBytes {
			// Header lied about the uncompressed size.
			result.Errors = append(result.Errors, Issue{
				Kind:     IssueFileTooLarge,
				Filename: baseName(entry.Name),
				Message:  fmt.Sprintf("%s exceeds the %d MiB limit", entry.Name, MaxImageBytes/(1024*1024)),
			})
			continue
		}

		mimeType := SniffImageType(content)
		if mimeType == "" {
			result.Errors = append(result.Errors, Issue{
				Kind:     IssueInvalidImageFile,
				Filename: baseName(entry.Name),
				Message:  fmt.Sprintf("%s does not look like a supported image (content signature mismatch)", entry.Name),
			})
			continue
		}

		name := baseName(entry.Name)
		result.Images[name] = ExtractedImage{
			Filename:    name,
			Content:     content,
			SizeBytes:   len(content),
			MimeType:    mimeType,
			ArchivePath: entry.Name,
		}
	}

	for _, required := range requiredNames {
		if _, ok := FindImage(result.Images, required); !ok {
			result.Errors = append(result.Errors, Issue{
				Kind:     IssueMissingImage,
				Filename: required,
				Message:  fmt.Sprintf("image %q referenced by the CSV was not found in the archive", required),
			})
		}
	}

	for name := range result.Images {
		if !nameIsRequired(requiredNames, name) {
			result.Warnings = append(result.Warnings, Issue{
				Kind:     IssueExtraImage,
				Filename: name,
				Message:  fmt.Sprintf("image %q is not referenced by any CSV row", name),
			})
		}
	}

	return result
}

// FindImage looks up an image by filename, case-insensitively. The stored
// keys preserve original case.
func FindImage(images map[string]ExtractedImage, name string) (ExtractedImage, bool) {
	if img, ok := images[name]; ok {
		return img, true
	}
	for key, img := range images {
		if strings.EqualFold(key, name) {
			return img, true
		}
	}
	return ExtractedImage{}, false
}

// SniffImageType returns the MIME type derived from the content signature,
// or "" if the leading bytes match no supported image format.
func SniffImageType(content []byte) string {
	switch {
	case len(content) >= 3 && content[0] == 0xFF && content[1] == 0xD8 && content[2] == 0xFF:
		return "image/jpeg"
	case len(content) >= 4 && content[0] == 0x89 && content[1] == 0x50 && content[2] == 0x4E && content[3] == 0x47:
		return "image/png"
	case len(content) >= 12 && string(content[0:4]) == "RIFF" && string(content[8:12]) == "WEBP":
		return "image/webp"
	case len(content) >= 3 && string(content[0:3]) == "GIF":
		return "image/gif"
	case len(content) >= 2 && string(content[0:2]) == "BM":
		return "image/bmp"
	}
	return ""
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// Read one byte past the cap so oversized entries are detected without
	// buffering the whole thing.
	content, err := io.ReadAll(io.LimitReader(rc, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	return content, nil
}

// baseName strips directory components using both separators, since archives
// built on Windows may carry backslash paths.
func baseName(entryPath string) string {
	if idx := strings.LastIndexAny(entryPath, `/\`); idx >= 0 {
		return entryPath[idx+1:]
	}
	return entryPath
}

func hasArchiveImageExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range archiveImageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func nameIsRequired(requiredNames []string, name string) bool {
	for _, required := range requiredNames {
		if strings.EqualFold(required, name) {
			return true
		}
	}
	return false
}
