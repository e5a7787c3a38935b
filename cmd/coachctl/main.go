// Command coachctl renders exports to files and runs catalog maintenance
// against the configured database (Postgres or SQLite).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/coach-hub/internal/blob"
	"github.com/fdg312/coach-hub/internal/config"
	"github.com/fdg312/coach-hub/internal/foods"
	"github.com/fdg312/coach-hub/internal/mealplans"
	"github.com/fdg312/coach-hub/internal/nutrition"
	"github.com/fdg312/coach-hub/internal/reports"
	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/fdg312/coach-hub/internal/storage/postgres"
	"github.com/fdg312/coach-hub/internal/storage/sqlite"
	"github.com/fdg312/coach-hub/internal/userctx"
	"github.com/google/uuid"
)

const usage = `usage: coachctl <command> [flags]

commands:
  sheet   -client <uuid> -out <file.pdf> [-owner <user id>]
  plan    -plan <id> -format pdf|csv|xlsx -out <file> [-owner <user id>]
  seed    load the default food catalog into an empty store
  purge   delete exports older than EXPORTS_TTL_HOURS`

type store interface {
	storage.Storage
	GetFoodCatalogStorage() storage.FoodCatalogStorage
	GetNutritionSheetsStorage() storage.NutritionSheetsStorage
	GetMealPlansStorage() storage.MealPlansStorage
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	st, exports, err := open(ctx, cfg)
	if err != nil {
		log.Fatalf("FATAL coachctl: %v", err)
	}
	defer st.Close()

	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "sheet":
		err = runSheet(ctx, st, args)
	case "plan":
		err = runPlan(ctx, st, args)
	case "seed":
		_, err = foods.Seed(ctx, st.GetFoodCatalogStorage(), log.Default())
	case "purge":
		err = runPurge(ctx, cfg, exports)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("FATAL coachctl %s: %v", os.Args[1], err)
	}
}

// open подключается к Postgres или SQLite
func open(ctx context.Context, cfg *config.Config) (store, storage.ExportsStorage, error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.GetExportsStorage(), nil
	case cfg.SQLitePath != "":
		sq, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sq, sq.GetExportsStorage(), nil
	default:
		return nil, nil, fmt.Errorf("set DATABASE_URL or SQLITE_PATH")
	}
}

func runSheet(ctx context.Context, st store, args []string) error {
	fs := flag.NewFlagSet("sheet", flag.ExitOnError)
	clientRaw := fs.String("client", "", "client id")
	out := fs.String("out", "", "output file")
	owner := fs.String("owner", userctx.DefaultUserID, "owner user id")
	fs.Parse(args)

	clientID, err := uuid.Parse(*clientRaw)
	if err != nil {
		return fmt.Errorf("invalid -client: %w", err)
	}
	if *out == "" {
		return fmt.Errorf("-out is required")
	}
	ctx = userctx.WithUserID(ctx, *owner)

	client, err := st.GetClient(ctx, clientID)
	if err != nil {
		return err
	}
	if client == nil || client.OwnerUserID != *owner {
		return fmt.Errorf("client %s not found for owner %s", clientID, *owner)
	}

	sheet, err := nutrition.NewService(st, st.GetNutritionSheetsStorage()).Latest(ctx, clientID)
	if err != nil {
		return err
	}
	data, err := reports.NewGenerator().RenderSheetPDF(client.FirstName+" "+client.LastName, sheet)
	if err != nil {
		return err
	}
	return write(*out, data)
}

func runPlan(ctx context.Context, st store, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	planID := fs.String("plan", "", "meal plan id")
	format := fs.String("format", reports.FormatPDF, "pdf, csv or xlsx")
	out := fs.String("out", "", "output file")
	owner := fs.String("owner", userctx.DefaultUserID, "owner user id")
	fs.Parse(args)

	if *planID == "" || *out == "" {
		return fmt.Errorf("-plan and -out are required")
	}
	ctx = userctx.WithUserID(ctx, *owner)

	plan, err := mealplans.NewService(st, st.GetMealPlansStorage(), st.GetFoodCatalogStorage()).Get(ctx, *planID)
	if err != nil {
		return err
	}

	gen := reports.NewGenerator()
	var data []byte
	switch *format {
	case reports.FormatPDF:
		data, err = gen.RenderPlanPDF("", plan)
	case reports.FormatCSV:
		data, err = gen.RenderPlanCSV(plan)
	case reports.FormatXLSX:
		data, err = gen.RenderPlanXLSX(plan)
	default:
		return fmt.Errorf("unknown -format %q", *format)
	}
	if err != nil {
		return err
	}
	return write(*out, data)
}

func runPurge(ctx context.Context, cfg *config.Config, exports storage.ExportsStorage) error {
	blobStore, _, err := blob.NewBlobStore(ctx, cfg.Blob, log.Default())
	if err != nil {
		return err
	}
	janitor := reports.NewJanitor(exports, blobStore, time.Duration(cfg.ExportsTTLHours)*time.Hour, log.Default())
	n, err := janitor.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	log.Printf("INFO coachctl: purged %d exports", n)
	return nil
}

func write(path string, data []byte) error {
	if err := reports.WriteFile(path, data); err != nil {
		return err
	}
	log.Printf("INFO coachctl: wrote %s (%d bytes)", path, len(data))
	return nil
}
