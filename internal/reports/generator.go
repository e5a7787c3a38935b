package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fdg312/coach-hub/internal/mealplans"
	"github.com/fdg312/coach-hub/internal/nutrition"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

const (
	pdfFont     = "Helvetica"
	xlsxSheet   = "Plan"
	dateLayout  = "02/01/2006"
	noClientTag = "-"
)

// Generator renders sheets and plans; all values arrive fully computed.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// RenderSheetPDF renders a nutrition sheet as a one-page PDF.
func (g *Generator) RenderSheetPDF(clientName string, sheet nutrition.SheetDTO) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 16)
	pdf.Cell(0, 10, tr("Fiche nutritionnelle"))
	pdf.Ln(10)

	pdf.SetFont(pdfFont, "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Client : %s", orDash(clientName))))
	pdf.Ln(6)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Date : %s", sheet.CreatedAt.Format(dateLayout))))
	pdf.Ln(12)

	rows := [][2]string{
		{"Poids", fmt.Sprintf("%.1f kg", sheet.WeightKg)},
		{"Objectif", sheet.Goal},
		{"Protéines par kg", fmt.Sprintf("%.1f g", sheet.ProteinPerKg)},
		{"Part des glucides", fmt.Sprintf("%.0f %%", sheet.CarbRatio*100)},
		{"Maintenance", fmt.Sprintf("%d kcal", sheet.MaintenanceKcal)},
		{"Apport cible", fmt.Sprintf("%d kcal", sheet.ObjectiveKcal)},
		{"Protéines", fmt.Sprintf("%d g", sheet.ProteinG)},
		{"Glucides", fmt.Sprintf("%d g", sheet.CarbsG)},
		{"Lipides", fmt.Sprintf("%d g", sheet.FatG)},
	}

	pdf.SetFont(pdfFont, "", 10)
	for _, row := range rows {
		pdf.CellFormat(70, 7, tr(row[0]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, tr(row[1]), "1", 1, "R", false, 0, "")
	}

	return output(pdf)
}

// RenderPlanPDF renders a plan with one table per meal and the plan totals.
func (g *Generator) RenderPlanPDF(clientName string, plan mealplans.PlanDTO) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 16)
	pdf.Cell(0, 10, tr(plan.Name))
	pdf.Ln(10)
	pdf.SetFont(pdfFont, "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Client : %s", orDash(clientName))))
	pdf.Ln(10)

	widths := []float64{70, 25, 25, 22, 22, 22}
	header := []string{"Aliment", "Quantité (g)", "Kcal", "Prot. (g)", "Gluc. (g)", "Lip. (g)"}

	for _, meal := range plan.Meals {
		pdf.SetFont(pdfFont, "B", 12)
		pdf.Cell(0, 8, tr(meal.Name))
		pdf.Ln(8)

		pdf.SetFont(pdfFont, "B", 9)
		for i, h := range header {
			pdf.CellFormat(widths[i], 6, tr(h), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont(pdfFont, "", 9)
		for _, item := range meal.Items {
			cells := append([]string{item.FoodName, num(item.Quantity)}, totalsCells(item.Totals)...)
			for i, c := range cells {
				align := "R"
				if i == 0 {
					align = "L"
				}
				pdf.CellFormat(widths[i], 6, tr(c), "1", 0, align, false, 0, "")
			}
			pdf.Ln(-1)
		}

		pdf.SetFont(pdfFont, "B", 9)
		pdf.CellFormat(widths[0]+widths[1], 6, tr("Total repas"), "1", 0, "L", false, 0, "")
		for i, c := range totalsCells(meal.Totals) {
			pdf.CellFormat(widths[i+2], 6, c, "1", 0, "R", false, 0, "")
		}
		pdf.Ln(10)
	}

	pdf.SetFont(pdfFont, "B", 11)
	t := plan.Totals
	pdf.Cell(0, 8, tr(fmt.Sprintf("Total du plan : %s kcal, protéines %s g, glucides %s g, lipides %s g",
		num(t.Kcal), num(t.ProteinG), num(t.CarbsG), num(t.FatG))))

	return output(pdf)
}

// RenderPlanCSV writes one row per item, a total row per meal and a final plan total.
func (g *Generator) RenderPlanCSV(plan mealplans.PlanDTO) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(planHeader()); err != nil {
		return nil, err
	}
	for _, row := range planRows(plan) {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPlanXLSX writes the same rows as the CSV export into a single "Plan" sheet.
func (g *Generator) RenderPlanXLSX(plan mealplans.PlanDTO) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#2E75B6"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	header := planHeader()
	if err := setRow(f, 1, header); err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(xlsxSheet, "A1", last, headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(xlsxSheet, "A", "B", 28); err != nil {
		return nil, err
	}

	for i, row := range planRows(plan) {
		n := i + 2
		if err := setRow(f, n, row); err != nil {
			return nil, err
		}
		if row[1] == "" {
			first, _ := excelize.CoordinatesToCellName(1, n)
			end, _ := excelize.CoordinatesToCellName(len(row), n)
			if err := f.SetCellStyle(xlsxSheet, first, end, totalStyle); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes rendered bytes to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func planHeader() []string {
	return []string{"meal", "food", "quantity_g", "kcal", "protein_g", "carbs_g", "fat_g"}
}

// planRows: строки позиций, итог приёма пищи (food пустой) и итог плана
func planRows(plan mealplans.PlanDTO) [][]string {
	var rows [][]string
	for _, meal := range plan.Meals {
		for _, item := range meal.Items {
			rows = append(rows, append([]string{meal.Name, item.FoodName, num(item.Quantity)}, totalsCells(item.Totals)...))
		}
		rows = append(rows, append([]string{meal.Name + " (total)", "", ""}, totalsCells(meal.Totals)...))
	}
	rows = append(rows, append([]string{"TOTAL", "", ""}, totalsCells(plan.Totals)...))
	return rows
}

func setRow(f *excelize.File, n int, row []string) error {
	cell, _ := excelize.CoordinatesToCellName(1, n)
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", n, err)
	}
	return nil
}

func totalsCells(t mealplans.Totals) []string {
	return []string{num(t.Kcal), num(t.ProteinG), num(t.CarbsG), num(t.FatG)}
}

func num(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return noClientTag
	}
	return s
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
