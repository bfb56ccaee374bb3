package xlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

const sheetName = "Denuncias"

var header = []any{
	"Código",
	"Tipo",
	"Fecha del incidente",
	"Estado",
	"Departamento",
	"Trabajador",
	"Cargo",
	"Ubicación",
	"Descripción",
	"Enviada",
}

// Exporter renders a complaint listing as a single-sheet workbook.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(ctx context.Context, w io.Writer, complaints []domain.Complaint) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheetName, 1, 1, style)
	}

	for i, c := range complaints {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := []any{
			c.Code,
			string(c.Type),
			c.IncidentDate.String(),
			string(c.DisplayStatus()),
			string(c.Department),
			c.WorkerFullName,
			c.WorkerPosition,
			c.Location,
			c.Description,
			submittedAt(c),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "A", 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "I", "I", 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func submittedAt(c domain.Complaint) string {
	if c.SubmittedAt.IsZero() {
		return ""
	}
	return c.SubmittedAt.UTC().Format("2006-01-02 15:04")
}
