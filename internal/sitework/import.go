package sitework

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/ldi/jobsite/pkg/models"
)

const maxImportRows = 100000

var materialHeaders = map[string]string{
	"material_name": "material_name",
	"material":      "material_name",
	"name":          "material_name",
	"quantity":      "quantity",
	"qty":           "quantity",
	"unit_measure":  "unit_measure",
	"unit":          "unit_measure",
	"unit_cost":     "unit_cost",
	"cost":          "unit_cost",
}

// readRows returns the cells of the first worksheet of an .xls or .xlsx file.
func readRows(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable xls file: %v", models.ErrValidation, err)
		}
		if workbook.NumSheets() == 0 {
			return nil, fmt.Errorf("%w: no worksheet found", models.ErrValidation)
		}
		return workbook.ReadAllCells(maxImportRows), nil
	case ".xlsx":
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable xlsx file: %v", models.ErrValidation, err)
		}
		defer func() { _ = file.Close() }()

		sheet := file.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("%w: no worksheet found", models.ErrValidation)
		}
		rows, err := file.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read worksheet: %w", err)
		}
		return rows, nil
	}
	return nil, fmt.Errorf("%w: unsupported file type %q (use .xls or .xlsx)", models.ErrValidation, filepath.Ext(filename))
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseNumber(s string) (float64, error) {
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// ParseMaterials reads a material list whose first row holds the headers
// material_name, quantity, unit_measure and unit_cost. Blank rows are
// skipped; any malformed row rejects the whole file.
func ParseMaterials(r io.Reader, filename, projectID string) ([]*models.Material, error) {
	rows, err := readRows(r, filename)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: worksheet is empty", models.ErrValidation)
	}

	cols := map[string]int{"material_name": -1, "quantity": -1, "unit_measure": -1, "unit_cost": -1}
	for i, h := range rows[0] {
		if field, ok := materialHeaders[normalizeHeader(h)]; ok && cols[field] < 0 {
			cols[field] = i
		}
	}
	if cols["material_name"] < 0 {
		return nil, fmt.Errorf("%w: header row must contain material_name", models.ErrValidation)
	}

	var items []*models.Material
	for i, row := range rows[1:] {
		line := i + 2
		name := cellValue(row, cols["material_name"])
		if name == "" {
			continue
		}
		qty, err := parseNumber(cellValue(row, cols["quantity"]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid quantity %q", models.ErrValidation, line, cellValue(row, cols["quantity"]))
		}
		cost, err := parseNumber(cellValue(row, cols["unit_cost"]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid unit_cost %q", models.ErrValidation, line, cellValue(row, cols["unit_cost"]))
		}
		m := &models.Material{
			ProjectID:    projectID,
			MaterialName: name,
			Quantity:     qty,
			UnitMeasure:  cellValue(row, cols["unit_measure"]),
			UnitCost:     cost,
			Status:       models.SupplyToBeOrdered,
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		items = append(items, m)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no materials found", models.ErrValidation)
	}
	return items, nil
}
