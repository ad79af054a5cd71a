package ingest

// IssueKind classifies a problem found while parsing the CSV or extracting
// the image archive. Kinds ending in "warning" semantics are listed in the
// warning slices of the stage results and never block a row or entry.
type IssueKind string

const (
	// CSV issues
	IssueMissingColumns           IssueKind = "missing_columns"
	IssueInvalidCohort            IssueKind = "invalid_cohort"
	IssueInvalidCohortFormat      IssueKind = "invalid_cohort_format"
	IssueCohortNameTooLong        IssueKind = "cohort_name_too_long"
	IssueInvalidDay               IssueKind = "invalid_day"
	IssueInvalidDayRange          IssueKind = "invalid_day_range"
	IssueInvalidTitle             IssueKind = "invalid_title"
	IssueInvalidTitleLength       IssueKind = "invalid_title_length"
	IssueInvalidDescription       IssueKind = "invalid_description"
	IssueInvalidDescriptionLength IssueKind = "invalid_description_length"
	IssueInvalidVideoURL          IssueKind = "invalid_video_url"
	IssueUnknownVideoProvider     IssueKind = "unknown_video_provider" // warning
	IssueInvalidImageName         IssueKind = "invalid_image_name"
	IssueInvalidImageExtension    IssueKind = "invalid_image_extension"
	IssueInvalidImageNameFormat   IssueKind = "invalid_image_name_format"
	IssueDuplicateDay             IssueKind = "duplicate_day"
	IssueUnknownCohort            IssueKind = "unknown_cohort" // warning
	IssueParseError               IssueKind = "parse_error"

	// Archive issues
	IssueFileTooLarge     IssueKind = "file_too_large"
	IssueInvalidImageFile IssueKind = "invalid_image_file"
	IssueExtractionError  IssueKind = "extraction_error"
	IssueMissingImage     IssueKind = "missing_image"
	IssueExtraImage       IssueKind = "extra_image" // warning
	IssueZipError         IssueKind = "zip_error"
)

// Issue is one diagnostic produced by the CSV ingestor or archive extractor.
// Row is the 2-indexed spreadsheet row for CSV issues (the header is row 1),
// 0 when the issue is not tied to a row. Filename is set for archive issues.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Row      int       `json:"row,omitempty"`
	Filename string    `json:"filename,omitempty"`
	Message  string    `json:"message"`
}

// Row is a fully validated CSV row, ready for the upload orchestrator.
// Rows are never mutated after parsing.
type Row struct {
	RowNum        int    `json:"rowNum"` // 2-indexed source row, for messages
	CohortName    string `json:"cohortName"`
	DayNumber     int    `json:"dayNumber"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	VideoURL      string `json:"videoUrl,omitempty"` // empty when the column was blank
	ImageFileName string `json:"imageFileName"`
}

// ParseResult is the outcome of parsing one CSV file.
type ParseResult struct {
	Rows     []Row   `json:"rows"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// ExtractedImage is one image pulled out of the uploaded archive.
type ExtractedImage struct {
	// Filename is the basename with directory components stripped. Original
	// case is preserved; lookups against it are case-insensitive.
	Filename    string `json:"filename"`
	Content     []byte `json:"-"`
	SizeBytes   int    `json:"sizeBytes"`
	MimeType    string `json:"mimeType"`
	ArchivePath string `json:"archivePath"` // entry path as it appeared in the archive
}

// ExtractResult is the outcome of extracting one archive.
type ExtractResult struct {
	Images   map[string]ExtractedImage `json:"images"`
	Errors   []Issue                   `json:"errors"`
	Warnings []Issue                   `json:"warnings"`
}

// RowStatus reports where a row is in its lifecycle during the upload loop.
type RowStatus string

const (
	StatusProcessing RowStatus = "processing"
	StatusCompleted  RowStatus = "completed"
	StatusError      RowStatus = "error"
)

// RowStep is the step within one row's processing.
type RowStep string

const (
	StepValidating    RowStep = "validating"
	StepUploadingImage RowStep = "uploading_image"
	StepSavingRecord  RowStep = "saving_database"
	StepDone          RowStep = "done"
)

// ProgressEvent is pushed to the caller's callback at every step transition.
// Events for a batch arrive strictly in order.
type ProgressEvent struct {
	Index  int       `json:"index"`
	Total  int       `json:"total"`
	Row    Row       `json:"row"`
	Status RowStatus `json:"status"`
	Step   RowStep   `json:"step"`
	Error  string    `json:"error,omitempty"`
}

// ProgressFunc receives progress events. It is invoked synchronously from the
// upload loop, so it must not block for long.
type ProgressFunc func(ProgressEvent)

// RowAction records whether the upsert created a new challenge or updated an
// existing one.
type RowAction string

const (
	ActionCreated RowAction = "created"
	ActionUpdated RowAction = "updated"
)

// RowResult is the final outcome for one row of the batch.
type RowResult struct {
	Index         int       `json:"index"`
	Row           Row       `json:"row"`
	Success       bool      `json:"success"`
	Action        RowAction `json:"action,omitempty"`
	ChallengeID   string    `json:"challengeId,omitempty"`
	ImageUploaded bool      `json:"imageUploaded"`
	Error         string    `json:"error,omitempty"`
}

// BatchSummary is produced once per BulkUpload invocation.
type BatchSummary struct {
	Success   bool        `json:"success"`
	Total     int         `json:"total"`
	Completed int         `json:"completed"`
	Failed    int         `json:"failed"`
	Results   []RowResult `json:"results"`
	Errors    []string    `json:"errors,omitempty"`
}

// SummaryView carries display-ready aggregates derived from a BatchSummary.
type SummaryView struct {
	SuccessRate  int         `json:"successRate"` // rounded percentage, 0 when total is 0
	Created      int         `json:"created"`
	Updated      int         `json:"updated"`
	WithImage    int         `json:"withImage"`
	WithoutImage int         `json:"withoutImage"`
	FailedRows   []RowResult `json:"failedRows"`
}

// RollbackResult aggregates the outcome of rolling back a batch.
type RollbackResult struct {
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors,omitempty"`
}
