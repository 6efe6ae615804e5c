// Package parser extracts plain text from the document formats the
// ingestion pipeline accepts: PDF, DOCX, XLSX, CSV/TSV and plain text.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/gen2brain/go-fitz"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupported is returned when a file's extension has no registered parser.
var ErrUnsupported = errors.New("unsupported file type")

// ParseError wraps a failure to extract text from a single file.
// Batch callers record it and move on; it is never fatal to a run.
type ParseError struct {
	Path   string
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// cellDelimiter joins row cells in tabular formats.
const cellDelimiter = " | "

var extensions = map[string]func(string) (string, error){
	".pdf":  parsePDF,
	".docx": parseDocx,
	".doc":  parseDocx,
	".xlsx": parseXlsx,
	".xls":  parseXlsx,
	".csv":  parseCSV,
	".tsv":  parseTSV,
	".txt":  parseText,
	".md":   parseText,
	".json": parseText,
}

// Supported reports whether files with the given extension can be parsed.
// The extension comparison is case-insensitive and expects a leading dot.
func Supported(ext string) bool {
	_, ok := extensions[strings.ToLower(ext)]
	return ok
}

// SupportedExtensions returns the set of parseable extensions.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensions))
	for ext := range extensions {
		exts = append(exts, ext)
	}
	return exts
}

// Parse extracts the readable text content of the file at path as a single
// blob. Unknown extensions return ErrUnsupported; extraction failures are
// returned as *ParseError.
func Parse(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := extensions[ext]
	if !ok {
		return "", &ParseError{Path: path, Format: ext, Err: ErrUnsupported}
	}
	text, err := fn(path)
	if err != nil {
		return "", &ParseError{Path: path, Format: ext, Err: err}
	}
	return text, nil
}

// parsePDF extracts per-page text, skipping pages that yield nothing,
// and joins pages with blank lines.
func parsePDF(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err == nil && strings.TrimSpace(text) != "" {
			pages = append(pages, strings.TrimSpace(text))
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

// parseDocx extracts paragraph and table text from Word documents.
// docconv flattens tables into delimiter-joined rows already.
func parseDocx(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to convert document: %w", err)
	}

	var paragraphs []string
	for _, line := range strings.Split(res.Body, "\n") {
		if strings.TrimSpace(line) != "" {
			paragraphs = append(paragraphs, strings.TrimSpace(line))
		}
	}

	return strings.Join(paragraphs, "\n\n"), nil
}

// parseXlsx reads every sheet, emitting a sheet header line followed by one
// delimiter-joined line per non-blank row.
func parseXlsx(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var content []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		content = append(content, fmt.Sprintf("=== Sheet: %s ===", sheet))
		for _, row := range rows {
			if rowHasContent(row) {
				content = append(content, strings.Join(row, cellDelimiter))
			}
		}
	}

	return strings.Join(content, "\n"), nil
}

func parseCSV(path string) (string, error) { return parseDelimited(path, ',') }
func parseTSV(path string) (string, error) { return parseDelimited(path, '\t') }

// parseDelimited emits one delimiter-joined line per non-blank row.
func parseDelimited(path string, comma rune) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read delimited file: %w", err)
	}

	var content []string
	for _, row := range rows {
		if rowHasContent(row) {
			content = append(content, strings.Join(row, cellDelimiter))
		}
	}

	return strings.Join(content, "\n"), nil
}

// parseText reads the file raw, replacing undecodable bytes rather than
// failing on mixed encodings.
func parseText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

func rowHasContent(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}
