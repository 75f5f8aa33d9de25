package output

import (
	"fmt"
	"io"

	"github.com/RexQian/kubectl-view-allocations/internal/logging"
	"github.com/RexQian/kubectl-view-allocations/pkg/aggregate"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName   = "allocations"
	columnWidth = 16

	// built-in number formats
	numFmtDecimal = 2 // 0.00
	numFmtPercent = 9 // 0%
)

type workbookStyles struct {
	header, number, percent int
}

func renderXLSX(w io.Writer, groups []aggregate.Group, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	styles, err := createStyles(f)
	if err != nil {
		return err
	}

	header, records := report(groups, opts)
	if err := writeHeader(f, header, styles); err != nil {
		return err
	}
	for i, record := range records {
		if err := writeRecord(f, i+2, record, styles); err != nil {
			return err
		}
	}

	if opts.OutputFile == "" {
		_, err := f.WriteTo(w)
		return err
	}
	if err := f.SaveAs(opts.OutputFile); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	logging.Success("Saved allocations to %s", opts.OutputFile)
	return nil
}

func createStyles(f *excelize.File) (workbookStyles, error) {
	var styles workbookStyles
	var err error
	styles.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return styles, fmt.Errorf("failed to create header style: %w", err)
	}
	if styles.number, err = f.NewStyle(&excelize.Style{NumFmt: numFmtDecimal}); err != nil {
		return styles, fmt.Errorf("failed to create number style: %w", err)
	}
	if styles.percent, err = f.NewStyle(&excelize.Style{NumFmt: numFmtPercent}); err != nil {
		return styles, fmt.Errorf("failed to create percent style: %w", err)
	}
	return styles, nil
}

func writeHeader(f *excelize.File, header []string, styles workbookStyles) error {
	for i, title := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, styles.header); err != nil {
			return err
		}
	}
	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheetName, "A", last, columnWidth)
}

func writeRecord(f *excelize.File, rowNum int, record []any, styles workbookStyles) error {
	for i, v := range record {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		switch v := v.(type) {
		case nil:
			continue
		case percent:
			err = f.SetCellValue(sheetName, cell, float64(v)/100)
			if err == nil {
				err = f.SetCellStyle(sheetName, cell, cell, styles.percent)
			}
		case float64:
			err = f.SetCellValue(sheetName, cell, v)
			if err == nil {
				err = f.SetCellStyle(sheetName, cell, cell, styles.number)
			}
		default:
			err = f.SetCellValue(sheetName, cell, v)
		}
		if err != nil {
			return fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
	}
	return nil
}
