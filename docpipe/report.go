package docpipe

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WriteReport exports an analysis as an XLSX workbook with Overview,
// Segments, and Citations sheets.
func WriteReport(path string, analysis *Analysis) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeOverviewSheet(f, analysis); err != nil {
		return err
	}
	if err := writeSegmentsSheet(f, analysis); err != nil {
		return err
	}
	if err := writeCitationsSheet(f, analysis); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

func writeOverviewSheet(f *excelize.File, analysis *Analysis) error {
	const sheet = "Overview"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"File", analysis.Path},
		{"Document Type", analysis.DocType.Label},
		{"Confidence", analysis.DocType.Confidence},
		{"Pages", analysis.Pages},
		{"Text Length", analysis.TextLength},
		{"Segments", len(analysis.Segments)},
		{"Total Citations", analysis.TotalCitations},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeSegmentsSheet(f *excelize.File, analysis *Analysis) error {
	const sheet = "Segments"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []interface{}{"#", "Label", "Summary", "Citations", "Content"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, seg := range analysis.Segments {
		row := []interface{}{
			i + 1,
			seg.Label,
			seg.Summary,
			seg.Citations.Total(),
			seg.Content,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeCitationsSheet(f *excelize.File, analysis *Analysis) error {
	const sheet = "Citations"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []interface{}{"Segment", "Category", "Citation"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	rowNum := 2
	var writeErr error
	for _, seg := range analysis.Segments {
		seg.Citations.Each(func(category, text string) {
			if writeErr != nil {
				return
			}
			row := []interface{}{
				seg.Label,
				strings.ReplaceAll(category, "_", " "),
				text,
			}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				writeErr = err
				return
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				writeErr = err
				return
			}
			rowNum++
		})
	}
	return writeErr
}
