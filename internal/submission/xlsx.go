package submission

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/TreePack/internal/model"
)

// SheetName is the worksheet EncodeXLSX writes to.
const SheetName = "submission"

// EncodeXLSX writes sub to an Excel workbook at path. Every cell is stored
// as a string so the "s" prefix and all decimals survive.
func EncodeXLSX(path string, sub model.Submission, decimals int) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	for r, row := range Rows(sub, decimals) {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellStr(SheetName, cell, val); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// DecodeXLSX reads the first sheet of an Excel workbook.
func DecodeXLSX(path string, opts DecodeOptions) (model.Submission, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, model.NewParticipantVisibleError(0, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return DecodeRows(rows, "row", opts)
}
