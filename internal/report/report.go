// Package report renders checklists as spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ldi/jobsite/internal/checklist"
	"github.com/ldi/jobsite/pkg/models"
)

var columns = []string{"Section", "Order", "Title", "Status", "Assignee", "Inspection", "Photo Required", "Blocked By"}

var sheetNames = map[models.Phase]string{
	models.PhasePreCon:      "Pre-Con",
	models.PhaseKickoff:     "Kickoff",
	models.PhasePostProject: "Post Project",
}

func SheetName(p models.Phase) string {
	if name, ok := sheetNames[p]; ok {
		return name
	}
	return string(p)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Workbook builds one sheet per phase. Each task row carries the title of
// the inspection that blocks it, if any.
func Workbook(v *checklist.View) (*excelize.File, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	phases := models.Phases
	if v.Phase != nil {
		phases = []models.Phase{*v.Phase}
	}

	for i, phase := range phases {
		sheet := SheetName(phase)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to name sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}
		if err := writePhase(f, sheet, header, phase, v.Sections); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writePhase(f *excelize.File, sheet string, header int, phase models.Phase, sections []checklist.SectionView) error {
	if err := f.SetSheetRow(sheet, "A1", &columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetCellStyle(sheet, "A1", last+"1", header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	row := 2
	for _, sec := range sections {
		if sec.Phase != phase {
			continue
		}
		for _, t := range sec.Tasks {
			blockedBy := ""
			if t.BlockedBy != nil {
				blockedBy = t.BlockedBy.Title
			}
			values := []any{
				sec.Title,
				t.SortOrder,
				t.Title,
				string(t.Status),
				t.AssigneeName,
				yesNo(t.IsInspection),
				yesNo(t.RequiresPicture),
				blockedBy,
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}

	widths := map[string]float64{"A": 24, "C": 40, "E": 20, "H": 32}
	for col, w := range widths {
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}
	return nil
}

// Write streams the checklist workbook to w.
func Write(w io.Writer, v *checklist.View) error {
	f, err := Workbook(v)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
