package foods

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"

	"github.com/fdg312/coach-hub/internal/storage/memory"
)

func TestLoadCatalog(t *testing.T) {
	csvData := "Aliment,Catégorie,Kcal,Protéines (g),Glucides (g),Lipides (g),Fibres (g),Healthy (Indice)\n" +
		"Brocoli,Légumes,34,\"2,8\",6.6,0.4,2.6,10\n" +
		",Fruits,1,1,1,1,,\n" +
		"Sel,Condiments et épices,0,0,0,0,,\n"

	rows, err := LoadCatalog(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ProteinPer100g != 2.8 {
		t.Errorf("expected comma decimal to parse, got %v", rows[0].ProteinPer100g)
	}
	if rows[0].HealthyIndex == nil || *rows[0].HealthyIndex != 10 {
		t.Errorf("expected healthy index 10, got %v", rows[0].HealthyIndex)
	}
	if rows[1].FiberPer100g != nil || rows[1].DietType != "" {
		t.Errorf("expected empty optional columns, got %+v", rows[1])
	}

	if _, err := LoadCatalog(strings.NewReader("Nom,Kcal\nx,1\n")); err == nil {
		t.Error("expected error without Aliment column")
	}
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	catalog := memory.New().GetFoodCatalogStorage()
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	n, err := Seed(ctx, catalog, logger)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n == 0 {
		t.Fatal("expected foods to be seeded")
	}

	all, _ := catalog.ListFoods(ctx)
	if len(all) != n {
		t.Errorf("expected %d foods, got %d", n, len(all))
	}
	portions, _ := catalog.ListPortions(ctx, all[0].ID)
	if len(portions) != 1 || portions[0].GramsEquivalent != 100 {
		t.Errorf("expected one 100g portion, got %+v", portions)
	}

	again, err := Seed(ctx, catalog, logger)
	if err != nil || again != 0 {
		t.Errorf("expected second seed to be skipped, got %d, %v", again, err)
	}
	if !strings.Contains(buf.String(), "seed skipped") {
		t.Errorf("expected skip to be logged, got %q", buf.String())
	}
}
