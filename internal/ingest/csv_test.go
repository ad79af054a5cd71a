package ingest

import (
	"strings"
	"testing"

	"habitloop/habit-app/internal/domain"
)

const csvHeader = "cohort_name,day_number,challenge_title,challenge_description,video_url,image_file_name"

func buildCSV(rows ...string) []byte {
	return []byte(csvHeader + "\n" + strings.Join(rows, "\n") + "\n")
}

func validRow() string {
	return `spring-2026,1,Morning Focus,Start the day with ten minutes of quiet focus.,https://youtube.com/watch?v=abc,day1.jpg`
}

func TestParseChallengeCSV_ValidRow(t *testing.T) {
	result := ParseChallengeCSV(buildCSV(validRow()), nil)

	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}

	row := result.Rows[0]
	if row.RowNum != 2 {
		t.Errorf("RowNum = %d, want 2 (header is row 1)", row.RowNum)
	}
	if row.CohortName != "spring-2026" {
		t.Errorf("CohortName = %q", row.CohortName)
	}
	if row.DayNumber != 1 {
		t.Errorf("DayNumber = %d, want 1", row.DayNumber)
	}
	if row.Title != "Morning Focus" {
		t.Errorf("Title = %q", row.Title)
	}
	if row.VideoURL != "https://youtube.com/watch?v=abc" {
		t.Errorf("VideoURL = %q", row.VideoURL)
	}
	if row.ImageFileName != "day1.jpg" {
		t.Errorf("ImageFileName = %q", row.ImageFileName)
	}
}

func TestParseChallengeCSV_MissingColumnsFailsFast(t *testing.T) {
	data := []byte("cohort_name,day_number\nspring-2026,1\n")
	result := ParseChallengeCSV(data, nil)

	if len(result.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %d: %v", len(result.Errors), result.Errors)
	}
	issue := result.Errors[0]
	if issue.Kind != IssueMissingColumns {
		t.Errorf("Kind = %q, want %q", issue.Kind, IssueMissingColumns)
	}
	for _, col := range []string{"challenge_title", "challenge_description", "image_file_name"} {
		if !strings.Contains(issue.Message, col) {
			t.Errorf("message %q does not mention missing column %q", issue.Message, col)
		}
	}
	if len(result.Rows) != 0 {
		t.Errorf("expected no rows after header failure, got %d", len(result.Rows))
	}
}

func TestParseChallengeCSV_HeaderNormalization(t *testing.T) {
	data := []byte("Cohort Name, Day Number ,Challenge Title,Challenge Description,Video URL,Image File Name\n" +
		validRow() + "\n")
	result := ParseChallengeCSV(data, nil)

	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors with spaced/capitalized header, got %v", result.Errors)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
}

func TestParseChallengeCSV_TitleBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"too short", strings.Repeat("a", MinTitleLen-1), true},
		{"min length", strings.Repeat("a", MinTitleLen), false},
		{"max length", strings.Repeat("a", MaxTitleLen), false},
		{"too long", strings.Repeat("a", MaxTitleLen+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := `spring-2026,1,` + tt.title + `,A perfectly reasonable description text.,,day1.jpg`
			result := ParseChallengeCSV(buildCSV(row), nil)

			if tt.wantErr {
				if len(result.Errors) != 1 || result.Errors[0].Kind != IssueInvalidTitleLength {
					t.Fatalf("expected one %s error, got %v", IssueInvalidTitleLength, result.Errors)
				}
				if len(result.Rows) != 0 {
					t.Errorf("row with invalid title should be dropped")
				}
			} else {
				if len(result.Errors) != 0 {
					t.Fatalf("expected no errors for %d-char title, got %v", len(tt.title), result.Errors)
				}
			}
		})
	}
}

func TestParseChallengeCSV_DayNumberBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		day      string
		wantKind IssueKind
	}{
		{"zero", "0", IssueInvalidDayRange},
		{"one", "1", ""},
		{"max", "15", ""},
		{"above max", "16", IssueInvalidDayRange},
		{"not a number", "three", IssueInvalidDay},
		{"empty", "", IssueInvalidDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := `spring-2026,` + tt.day + `,Morning Focus,A perfectly reasonable description text.,,day1.jpg`
			result := ParseChallengeCSV(buildCSV(row), nil)

			if tt.wantKind == "" {
				if len(result.Errors) != 0 {
					t.Fatalf("expected no errors for day %q, got %v", tt.day, result.Errors)
				}
				return
			}
			if len(result.Errors) != 1 || result.Errors[0].Kind != tt.wantKind {
				t.Fatalf("expected one %s error for day %q, got %v", tt.wantKind, tt.day, result.Errors)
			}
		})
	}
}

func TestParseChallengeCSV_CollectsMultipleErrorsPerRow(t *testing.T) {
	// Bad cohort charset, day out of range, short title, short description and
	// a bad image extension, all in one row.
	row := `bad cohort!,99,shrt,tiny,,image.tiff`
	result := ParseChallengeCSV(buildCSV(row), nil)

	if len(result.Rows) != 0 {
		t.Fatalf("invalid row must be dropped, got %d rows", len(result.Rows))
	}

	wantKinds := map[IssueKind]bool{
		IssueInvalidCohortFormat:      false,
		IssueInvalidDayRange:          false,
		IssueInvalidTitleLength:       false,
		IssueInvalidDescriptionLength: false,
		IssueInvalidImageExtension:    false,
	}
	for _, issue := range result.Errors {
		if _, ok := wantKinds[issue.Kind]; ok {
			wantKinds[issue.Kind] = true
		}
		if issue.Row != 2 {
			t.Errorf("issue %s reported row %d, want 2", issue.Kind, issue.Row)
		}
	}
	for kind, seen := range wantKinds {
		if !seen {
			t.Errorf("expected a %s error, errors were %v", kind, result.Errors)
		}
	}
}

func TestParseChallengeCSV_DuplicateDay(t *testing.T) {
	result := ParseChallengeCSV(buildCSV(
		`spring-2026,3,Morning Focus,A perfectly reasonable description text.,,day3.jpg`,
		`spring-2026,3,Evening Recap,Another perfectly reasonable description.,,day3b.jpg`,
	), nil)

	var dupes []Issue
	for _, issue := range result.Errors {
		if issue.Kind == IssueDuplicateDay {
			dupes = append(dupes, issue)
		}
	}
	if len(dupes) != 1 {
		t.Fatalf("expected exactly one duplicate-day error, got %d: %v", len(dupes), result.Errors)
	}
	if dupes[0].Row != 3 {
		t.Errorf("duplicate reported on row %d, want 3 (the second occurrence)", dupes[0].Row)
	}
	if !strings.Contains(dupes[0].Message, "first used in row 2") {
		t.Errorf("message %q should reference the first occurrence", dupes[0].Message)
	}
}

func TestParseChallengeCSV_SameDayDifferentCohortsAllowed(t *testing.T) {
	result := ParseChallengeCSV(buildCSV(
		`spring-2026,3,Morning Focus,A perfectly reasonable description text.,,day3.jpg`,
		`autumn-2026,3,Morning Focus,A perfectly reasonable description text.,,day3.jpg`,
	), nil)

	if len(result.Errors) != 0 {
		t.Fatalf("same day in different cohorts must not conflict, got %v", result.Errors)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
}

func TestParseChallengeCSV_UnknownCohortIsWarning(t *testing.T) {
	cohorts := []domain.Cohort{{Name: "spring-2026"}}
	result := ParseChallengeCSV(buildCSV(
		`winter-2027,1,Morning Focus,A perfectly reasonable description text.,,day1.jpg`,
	), cohorts)

	if len(result.Errors) != 0 {
		t.Fatalf("unknown cohort must not be a hard error, got %v", result.Errors)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Kind != IssueUnknownCohort {
		t.Fatalf("expected one unknown-cohort warning, got %v", result.Warnings)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("row with only warnings must be kept, got %d rows", len(result.Rows))
	}
}

func TestParseChallengeCSV_VideoURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		wantErrKind  IssueKind
		wantWarnKind IssueKind
	}{
		{"known host", "https://youtu.be/abc123", "", ""},
		{"unknown host", "https://example.com/video", "", IssueUnknownVideoProvider},
		{"no scheme", "youtube.com/watch", IssueInvalidVideoURL, ""},
		{"blank is optional", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := `spring-2026,1,Morning Focus,A perfectly reasonable description text.,` + tt.url + `,day1.jpg`
			result := ParseChallengeCSV(buildCSV(row), nil)

			if tt.wantErrKind != "" {
				if len(result.Errors) != 1 || result.Errors[0].Kind != tt.wantErrKind {
					t.Fatalf("expected %s error, got %v", tt.wantErrKind, result.Errors)
				}
				return
			}
			if len(result.Errors) != 0 {
				t.Fatalf("expected no errors, got %v", result.Errors)
			}
			if tt.wantWarnKind != "" {
				if len(result.Warnings) != 1 || result.Warnings[0].Kind != tt.wantWarnKind {
					t.Fatalf("expected %s warning, got %v", tt.wantWarnKind, result.Warnings)
				}
				// Warnings never drop the row or the URL.
				if len(result.Rows) != 1 || result.Rows[0].VideoURL != tt.url {
					t.Fatalf("row with provider warning must keep its URL")
				}
			}
		})
	}
}

func TestParseChallengeCSV_SkipsEmptyRows(t *testing.T) {
	data := []byte(csvHeader + "\n\n" + validRow() + "\n,,,,,\n")
	result := ParseChallengeCSV(data, nil)

	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row after skipping blanks, got %d", len(result.Rows))
	}
}

func TestSampleCSV_ParsesCleanly(t *testing.T) {
	result := ParseChallengeCSV(SampleCSV(), nil)

	if len(result.Errors) != 0 {
		t.Fatalf("template must parse without errors, got %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("template must parse without warnings, got %v", result.Warnings)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("template should contain 3 example rows, got %d", len(result.Rows))
	}
}

func TestNormalizeColumnName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"day_number", "day_number"},
		{" Day Number ", "day_number"},
		{"CHALLENGE-TITLE", "challenge_title"},
		{"video   url", "video_url"},
		{"trailing_", "trailing"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeColumnName(tt.in); got != tt.want {
			t.Errorf("normalizeColumnName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidCohortName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"spring-2026", true},
		{"Cohort_A", true},
		{"", false},
		{"has space", false},
		{"emojié", false},
		{strings.Repeat("a", MaxCohortNameLen), true},
		{strings.Repeat("a", MaxCohortNameLen+1), false},
	}
	for _, tt := range tests {
		if got := ValidCohortName(tt.name); got != tt.want {
			t.Errorf("ValidCohortName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
