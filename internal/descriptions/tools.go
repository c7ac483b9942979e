// Package descriptions holds the long-form help text of the main tools.
package descriptions

const (
	AddFilesDescription = `Add drawing PDFs to the working session and get a quick match count per file.

**When to use:** Starting a review, or adding more drawings to one already in progress.

**What happens:** Each new PDF is scanned once on its own. Only items whose base number is the configured prefix followed by up to max_digits digits are counted (with prefix "W" and 5 digits, "W12345" and "W12345-7" count, "W123456" does not). Non-PDF names and files already in the session are skipped.

**Examples:**
• "Add /projects/site-a/W100_r2.pdf and W200_r1.pdf"
• "Add the three drawings the client sent today"

**Common workflows:**
1. Review: pdf_add_files → pdf_set_filter latest_revision → pdf_analyze → pdf_results
2. Spot check: pdf_add_files → pdf_export with file set to one drawing

**Best practices:** Pass full paths. A file whose scan fails stays in the session with its error shown.`

	AddDirectoryDescription = `Add every PDF below a directory to the session.

**When to use:** A project folder holds many drawings and listing them by hand is tedious.

**What happens:** The directory is walked recursively. Hidden folders, non-PDF files, empty or oversized files and symlinks leading outside the directory are skipped. Each added file gets the same quick scan as pdf_add_files.

**Examples:**
• "Add all drawings under /projects/site-a"
• "Add only the W100 drawings from /projects/site-a" (query "W100")`

	SetFilterDescription = `Narrow the file list by name and choose whether older revisions take part.

**When to use:** The session holds several revisions of the same drawing, or you want to analyze a subset.

**Revision naming:** "W100_r3.pdf" is revision 3 of base "W100". With latest_revision on, only the highest revision of each base is analyzed; a tie keeps the first one added. A name without a suffix ranks below any revision.

**Best practices:** The filter applies to pdf_analyze and to the total shown with the file list. Files hidden by the name filter are not analyzed.`

	AnalyzeDescription = `Run the full analysis over the files that are visible and current.

**When to use:** After adding files and setting filters, to build the result list that exports are made from.

**What happens:** One batch goes to the analysis engine with the current settings. New matches are merged into the existing results; an item already present (same text, page, grid and source file) keeps its exclusion flag and comment. A batch started before the session was cleared or before a newer analysis is discarded.

**Common workflows:**
1. pdf_analyze → pdf_results → pdf_toggle_exclude / pdf_set_comment → pdf_export
2. Change settings_save use_ocr → pdf_analyze again to pick up scanned sheets`

	ToggleExcludeDescription = `Exclude a matched item from counts and exports, or include it again.

**When to use:** An item is a false positive, a duplicate callout or out of scope.

**Best practices:** Use the index shown by pdf_results. Excluded items stay in the list so the decision can be reverted.`

	ExportDescription = `Save a report of the non-excluded matches as PDF, CSV or TXT.

**When to use:** The review is finished and the results need to be shared.

**What happens:** Items are grouped by source file and rendered by the engine with the current settings. Without a destination the report lands in the export directory as report-<timestamp>.<format>; a destination without the format's extension gets it appended. With file set, only that file's quick-scan matches are exported.

**Examples:**
• "Export a PDF report to /tmp/site-a-review"
• "Export W100_r2.pdf's matches as CSV"

**Best practices:** Nothing is rendered when every item is excluded.`

	ValidateFileDescription = `Verify that a file is a readable PDF before adding it.

**When to use:** Checking a suspicious or freshly downloaded drawing.

**Best practices:** Reports the page count of a valid file. Files larger than the configured limit are rejected.`

	SettingsSaveDescription = `Change one or more settings and persist them.

**Fields:** prefix, max_digits, include_revision, process_latest_revision, remove_duplicates, use_ocr, screenshot_width, screenshot_height, text_pos_x, text_pos_y, theme, language, uiScale, pdf_viewer_mode.

**What happens:** The given fields are merged over the current settings, completed with defaults and clamped to their valid ranges before saving. Saving with process_latest_revision true also turns the revision filter on.

**Examples:**
• "Use prefix D with 4 digits": {"prefix": "D", "max_digits": 4}
• "Turn on OCR": {"use_ocr": true}`
)
