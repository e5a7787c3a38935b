package foods

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fdg312/coach-hub/internal/storage"
)

//go:embed seed/catalog.csv
var defaultCatalog []byte

// Logger is the minimal logger used while seeding.
type Logger interface {
	Printf(format string, v ...any)
}

// LoadCatalog parses a catalog CSV with the columns
// Aliment, Catégorie, Type, Kcal, Protéines (g), Glucides (g), Lipides (g),
// Fibres (g), Healthy (Indice), Commun (Indice). Rows without a name are skipped.
func LoadCatalog(r io.Reader) ([]storage.FoodUpsert, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["Aliment"]; !ok {
		return nil, errors.New("catalog header has no Aliment column")
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []storage.FoodUpsert
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog row: %w", err)
		}

		name := get(row, "Aliment")
		if name == "" {
			continue
		}
		out = append(out, storage.FoodUpsert{
			Name:           name,
			Category:       get(row, "Catégorie"),
			DietType:       get(row, "Type"),
			KcalPer100g:    parseFloat(get(row, "Kcal")),
			ProteinPer100g: parseFloat(get(row, "Protéines (g)")),
			CarbsPer100g:   parseFloat(get(row, "Glucides (g)")),
			FatPer100g:     parseFloat(get(row, "Lipides (g)")),
			FiberPer100g:   parseOptionalFloat(get(row, "Fibres (g)")),
			BaseUnit:       DefaultBaseUnit,
			HealthyIndex:   parseOptionalInt(get(row, "Healthy (Indice)")),
			CommonIndex:    parseOptionalInt(get(row, "Commun (Indice)")),
		})
	}
	return out, nil
}

// Seed loads the embedded catalog into an empty store. Each food gets a 100 g portion.
func Seed(ctx context.Context, st storage.FoodCatalogStorage, logger Logger) (int, error) {
	existing, err := st.ListFoods(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list foods: %w", err)
	}
	if len(existing) > 0 {
		logger.Printf("INFO foods: seed skipped, catalog has %d foods", len(existing))
		return 0, nil
	}

	rows, err := LoadCatalog(bytes.NewReader(defaultCatalog))
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, row := range rows {
		dup, err := st.GetFoodByName(ctx, row.Name)
		if err != nil {
			return inserted, fmt.Errorf("failed to check food %q: %w", row.Name, err)
		}
		if dup != nil {
			continue
		}
		f, err := st.CreateFood(ctx, row)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert food %q: %w", row.Name, err)
		}
		if _, err := st.CreatePortion(ctx, f.ID, "100g", 100); err != nil {
			return inserted, fmt.Errorf("failed to insert portion for %q: %w", row.Name, err)
		}
		inserted++
	}

	logger.Printf("INFO foods: seeded %d foods", inserted)
	return inserted, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	return v
}

func parseOptionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseOptionalInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
