package ingest

// csv.go parses the bulk-upload CSV into validated rows.
//
// Validation happens at two levels:
//  1. Header validation: all required columns must be present, or parsing
//     stops immediately with a single missing-columns error.
//  2. Row validation: every field check is independent, so one row can
//     collect several errors at once.
//
// Row numbers in messages are 2-indexed (the header is row 1) to match what
// a spreadsheet shows the admin.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"habitloop/habit-app/internal/domain"
)

const (
	MaxDayNumber     = 15
	MaxCohortNameLen = 50
	MinTitleLen      = 5
	MaxTitleLen      = 100
	MinDescLen       = 10
	MaxDescLen       = 500
)

// requiredColumns must all be present (after normalization) in the header.
var requiredColumns = []string{
	"cohort_name",
	"day_number",
	"challenge_title",
	"challenge_description",
	"image_file_name",
}

// knownVideoHosts are matched case-insensitively as substrings of the URL
// host. Anything else is tolerated with a warning.
var knownVideoHosts = []string{"youtube.com", "youtu.be", "vimeo.com", "wistia.com"}

// acceptedImageExtensions are the only extensions a CSV row may reference.
// The archive side accepts a few more (gif, bmp) for leniency.
var acceptedImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// ParseChallengeCSV parses the uploaded CSV into validated rows plus errors
// and warnings. Rows with only warnings are kept; rows with any hard error
// are dropped. existingCohorts, when non-empty, is used to warn about cohort
// names that do not match any known cohort.
func ParseChallengeCSV(data []byte, existingCohorts []domain.Cohort) ParseResult {
	result := ParseResult{}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		result.Errors = append(result.Errors, Issue{
			Kind:    IssueParseError,
			Message: fmt.Sprintf("could not read CSV header: %v", err),
		})
		return result
	}

	colIdx := indexColumns(header)

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		// Fail fast on schema problems; no row-level parsing is attempted.
		result.Errors = append(result.Errors, Issue{
			Kind:    IssueMissingColumns,
			Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
		})
		return result
	}

	rowNum := 1 // header was row 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			result.Errors = append(result.Errors, Issue{
				Kind:    IssueParseError,
				Row:     rowNum,
				Message: fmt.Sprintf("row %d: %v", rowNum, err),
			})
			// csv.Reader cannot reliably resume after a malformed record.
			break
		}
		if isEmptyRecord(record) {
			continue
		}

		row, issues := validateRow(record, colIdx, rowNum, existingCohorts)
		hardErrors := 0
		for _, issue := range issues {
			if isWarningKind(issue.Kind) {
				result.Warnings = append(result.Warnings, issue)
			} else {
				result.Errors = append(result.Errors, issue)
				hardErrors++
			}
		}
		if hardErrors == 0 {
			result.Rows = append(result.Rows, row)
		}
	}

	// Duplicate (cohort, day) detection runs over the accepted rows so
	// duplicates surface as explicit errors instead of silently dropping.
	seen := make(map[string]int) // key -> first row number
	for _, row := range result.Rows {
		key := row.CohortName + "\x00" + strconv.Itoa(row.DayNumber)
		if firstRow, ok := seen[key]; ok {
			result.Errors = append(result.Errors, Issue{
				Kind: IssueDuplicateDay,
				Row:  row.RowNum,
				Message: fmt.Sprintf("row %d: duplicate day %d for cohort %q (first used in row %d)",
					row.RowNum, row.DayNumber, row.CohortName, firstRow),
			})
		} else {
			seen[key] = row.RowNum
		}
	}

	return result
}

// validateRow checks every field independently and returns the row plus all
// issues it produced. The row is usable only when none of the issues is a
// hard error.
func validateRow(record []string, colIdx map[string]int, rowNum int, existingCohorts []domain.Cohort) (Row, []Issue) {
	var issues []Issue

	field := func(name string) string {
		idx, ok := colIdx[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := Row{RowNum: rowNum}

	// cohort_name
	row.CohortName = field("cohort_name")
	if row.CohortName == "" {
		issues = append(issues, Issue{
			Kind:    IssueInvalidCohort,
			Row:     rowNum,
			Message: fmt.Sprintf("row %d: cohort name is required", rowNum),
		})
	} else {
		if !isCohortNameCharset(row.CohortName) {
			issues = append(issues, Issue{
				Kind:    IssueInvalidCohortFormat,
				Row:     rowNum,
				Message: fmt.Sprintf("row %d: cohort name %q may only contain letters, digits, underscores and hyphens", rowNum, row.CohortName),
			})
		}
		if len(row.CohortName) > MaxCohortNameLen {
			issues = append(issues, Issue{
				Kind:    IssueCohortNameTooLong,
				Row:     rowNum,
				Message: fmt.Sprintf("row %d: cohort name exceeds %d characters", rowNum, MaxCohortNameLen),
			})
		}
		if len(existingCohorts) > 0 && !cohortExists(existingCohorts, row.CohortName) {
			issues = append(issues, Issue{
				Kind:    IssueUnknownCohort,
				Row:     rowNum,
				Message: fmt.Sprintf("row %d: cohort %q does not match any existing cohort", rowNum, row.CohortName),
			})
		}
	}

	// day_number
	dayRaw := field("day_number")
	if dayRaw == "" {
		issues = append(issues, Issue{
			Kind:    IssueInvalidDay,
			Row:     rowNum,
			Message: fmt.Sprintf("row %d: day number is required", rowNum),
		})
	} else if day, err := strconv.Atoi(dayRaw); err != nil {
		issues = append(issues, Issue{
			Kind:    IssueInvalidDay,
			Row:     rowNum,
			Message: fmt.Sprintf("row %d: day number %q is not a whole number", rowNum, dayRaw),
		})
	} else if day < 1 || day > MaxDayNumber {
		issues = append(issues, Issue{
			Kind:    IssueInvalidDayRange,
			Row:     rowNum,
			Message: fmt.Sprintf("row %d: day number must be between 1 and %d, got %d", rowNum, MaxDayNumber, day),
		})
	} else {
		row.DayNumber = day
	}

	// challenge_title
	row.Title = field("challenge_title")
	if row.Title == "" {
		issues = append(issues, Issue{
			Kind:    IssueInvalidTitle,
			Row:     rowNum,
			Message: fmt.Sprintf("row %d: challenge title is required", rowNum),
		})
	} else if len(row.Title) < MinTitleLen || len(row.Title) > MaxTitleLen {
		issues = append(issues, Issue{
			Kind:    IssueInvalidTitleLength,
			Row:     rowNum,
			Message: fmt.Sprintf("row %d: challenge title must be %d to %d characters, got %d", rowNum, MinTitleLen, MaxTitleLen, len(row.Title)),
		})
	}

	// challenge_description
	row.Description = field("challenge_description")
	if row.Description == "" {
		issues = append(issues, Issue{
			Kind:    IssueInvalidDescription,
			Row:     rowNum,
			Message: fmt.Sprintf("row %d: challenge description is required", rowNum),
		})
	} else if len(row.Description) < MinDescLen || len(row.Description) > MaxDescLen {
		issues = append(issues, Issue{
			Kind:    IssueInvalidDescriptionLength,
			Row:     rowNum,
			Message: fmt.Sprintf("row %d: challenge description must be %d to %d characters, got %d", rowNum, MinDescLen, MaxDescLen, len(row.Description)),
		})
	}

	// video_url (optional)
	if videoRaw := field("video_url"); videoRaw != "" {
		parsed, err := url.Parse(videoRaw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			issues = append(issues, Issue{
				Kind:    IssueInvalidVideoURL,
				Row:     rowNum,
				Message: fmt.Sprintf("row %d: video URL %q is not a valid URL", rowNum, videoRaw),
			})
		} else {
			row.VideoURL = videoRaw
			if !isKnownVideoHost(parsed.Host) {
				issues = append(issues, Issue{
					Kind:    IssueUnknownVideoProvider,
					Row:     rowNum,
					Message: fmt.Sprintf("row %d: video host %q is not a recognized provider", rowNum, parsed.Host),
				})
			}
		}
	}

	// image_file_name
	row.ImageFileName = field("image_file_name")
	if row.ImageFileName == "" {
		issues = append(issues, Issue{
			Kind:    IssueInvalidImageName,
			Row:     rowNum,
			Message: fmt.Sprintf("row %d: image file name is required", rowNum),
		})
	} else {
		if !hasAcceptedImageExtension(row.ImageFileName) {
			issues = append(issues, Issue{
				Kind:    IssueInvalidImageExtension,
				Row:     rowNum,
				Message: fmt.Sprintf("row %d: image file %q must end in %s", rowNum, row.ImageFileName, strings.Join(acceptedImageExtensions, ", ")),
			})
		}
		if !isImageNameCharset(row.ImageFileName) {
			issues = append(issues, Issue{
				Kind:    IssueInvalidImageNameFormat,
				Row:     rowNum,
				Message: fmt.Sprintf("row %d: image file name %q may only contain letters, digits, dots, underscores and hyphens", rowNum, row.ImageFileName),
			})
		}
	}

	return row, issues
}

// SampleCSV returns a downloadable template: the exact header set plus three
// example rows, every field quoted.
func SampleCSV() []byte {
	// csv.Writer only quotes when needed; assemble quoted lines directly so
	// the template is uniformly quoted.
	lines := [][]string{
		{"cohort_name", "day_number", "challenge_title", "challenge_description", "video_url", "image_file_name"},
		{"spring-2026", "1", "Morning Focus Challenge", "Start your day with a 10 minute mindfulness session to improve focus.", "https://youtube.com/watch?v=example1", "morning-focus-day1.jpg"},
		{"spring-2026", "2", "Digital Sunset", "Put every screen away one hour before bed and notice how you sleep.", "", "digital-sunset-day2.png"},
		{"spring-2026", "3", "Gratitude Notes", "Write down three things you are grateful for and why they matter today.", "https://vimeo.com/123456789", "gratitude-notes-day3.jpg"},
	}

	var buf bytes.Buffer
	for _, line := range lines {
		quoted := make([]string, len(line))
		for i, fieldVal := range line {
			quoted[i] = `"` + strings.ReplaceAll(fieldVal, `"`, `""`) + `"`
		}
		buf.WriteString(strings.Join(quoted, ","))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// indexColumns maps normalized header names to their positions. Normalization
// trims, lowercases and collapses any non-alphanumeric run to an underscore,
// so "Day Number" and "day_number" both resolve.
func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		normalized := normalizeColumnName(name)
		if normalized == "" {
			continue
		}
		if _, exists := idx[normalized]; !exists {
			idx[normalized] = i
		}
	}
	return idx
}

func normalizeColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

func isEmptyRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isWarningKind(kind IssueKind) bool {
	switch kind {
	case IssueUnknownVideoProvider, IssueUnknownCohort, IssueExtraImage:
		return true
	}
	return false
}

// ValidCohortName reports whether a name satisfies the cohort naming rules
// shared by the CSV ingestor and the cohort admin API.
func ValidCohortName(name string) bool {
	return name != "" && len(name) <= MaxCohortNameLen && isCohortNameCharset(name)
}

func isCohortNameCharset(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func isImageNameCharset(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func hasAcceptedImageExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range acceptedImageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func isKnownVideoHost(host string) bool {
	lower := strings.ToLower(host)
	for _, known := range knownVideoHosts {
		if strings.Contains(lower, known) {
			return true
		}
	}
	return false
}

func cohortExists(cohorts []domain.Cohort, name string) bool {
	for _, c := range cohorts {
		if c.Name == name {
			return true
		}
	}
	return false
}
