package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"vlink/internal/models"
)

// Format is an export file format.
type Format string

const (
	JSON Format = "json"
	XLSX Format = "xlsx"
)

const sheetName = "Links"

var ErrUnknownFormat = errors.New("unknown export format")

var header = []string{"id", "code", "destination", "is_custom", "visit_count", "qr_downloads", "created_at", "last_accessed_at"}

// ParseFormat accepts json and xlsx, case insensitive.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, XLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Write encodes links to w in the given format.
func Write(w io.Writer, format Format, links []models.Link) error {
	switch format {
	case JSON:
		return WriteJSON(w, links)
	case XLSX:
		return WriteXLSX(w, links)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteJSON writes links as an indented JSON array.
func WriteJSON(w io.Writer, links []models.Link) error {
	if links == nil {
		links = []models.Link{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(links)
}

// ReadJSON reads an array written by WriteJSON.
func ReadJSON(r io.Reader) ([]models.Link, error) {
	var links []models.Link
	if err := json.NewDecoder(r).Decode(&links); err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}
	return links, nil
}

// WriteXLSX writes links to a single sheet workbook, one row per link.
func WriteXLSX(w io.Writer, links []models.Link) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), sheetName); err != nil {
		return err
	}
	if err := xl.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, link := range links {
		lastAccessed := ""
		if link.LastAccessedAt != nil {
			lastAccessed = link.LastAccessedAt.UTC().Format(time.RFC3339)
		}
		row := []interface{}{
			link.ID,
			link.Code,
			link.Destination,
			link.IsCustom,
			link.VisitCount,
			link.QRDownloads,
			link.CreatedAt.UTC().Format(time.RFC3339),
			lastAccessed,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := xl.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	if _, err := xl.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
