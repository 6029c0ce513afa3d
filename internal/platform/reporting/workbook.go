package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ehr/analysis/internal/domain/patient"
)

// Sheet names in the generated workbook.
const (
	PatientsSheet   = "Patients"
	LabSummarySheet = "Lab Summary"
)

var (
	patientHeaders = []string{"Patient ID", "Gender", "Date of Birth", "Age", "Age at First Admission", "Lab Count"}
	patientWidths  = []float64{40, 10, 14, 8, 22, 10}

	labHeaders = []string{"Lab Name", "Units", "Count", "Patients", "Min", "Max", "Mean"}
	labWidths  = []float64{36, 10, 8, 10, 10, 10, 10}
)

// Workbook renders patients as an XLSX workbook with a per-patient sheet and
// a per-lab summary sheet. Ages are computed as of asOf.
func Workbook(patients []*patient.Patient, asOf time.Time) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close is called explicitly on every path.

	index, err := f.NewSheet(PatientsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if _, err := f.NewSheet(LabSummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeHeader(f, PatientsSheet, patientHeaders, patientWidths, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	for i, p := range patients {
		row := []interface{}{
			p.ID,
			p.Gender,
			p.DateOfBirth.Format(patient.DateLayout),
			p.Age(asOf),
			nil,
			len(p.Labs),
		}
		if age, err := p.AgeAtFirstEncounter(); err == nil {
			row[4] = age
		}
		if err := writeRow(f, PatientsSheet, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := writeHeader(f, LabSummarySheet, labHeaders, labWidths, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	for i, m := range LabMeasures(patients) {
		row := []interface{}{m.Name, m.Units, m.Count, m.Patients, m.Min, m.Max, m.Mean}
		if err := writeRow(f, LabSummarySheet, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, widths []float64, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("set header %s!%s: %w", sheet, cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("style header %s!%s: %w", sheet, cell, err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return fmt.Errorf("set width %s!%s: %w", sheet, col, err)
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// writeRow writes values starting at column A. Nil values leave the cell empty.
func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
