package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fdg312/coach-hub/internal/auth"
	"github.com/fdg312/coach-hub/internal/blob"
	"github.com/fdg312/coach-hub/internal/clients"
	"github.com/fdg312/coach-hub/internal/config"
	"github.com/fdg312/coach-hub/internal/foods"
	"github.com/fdg312/coach-hub/internal/mealgen"
	"github.com/fdg312/coach-hub/internal/mealplans"
	"github.com/fdg312/coach-hub/internal/nutrition"
	"github.com/fdg312/coach-hub/internal/profiles"
	"github.com/fdg312/coach-hub/internal/reports"
	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/fdg312/coach-hub/internal/storage/memory"
	"github.com/fdg312/coach-hub/internal/storage/postgres"
	"github.com/fdg312/coach-hub/internal/storage/sqlite"
)

// backend: хранилище клиентов вместе с под-хранилищами; его реализуют memory, postgres и sqlite
type backend interface {
	storage.Storage
	GetFoodCatalogStorage() storage.FoodCatalogStorage
	GetNutritionSheetsStorage() storage.NutritionSheetsStorage
	GetNutritionProfilesStorage() storage.NutritionProfilesStorage
	GetMealPlansStorage() storage.MealPlansStorage
}

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        backend
	storageKind    string
	blobStore      blob.Store
	blobMode       string
	janitor        *reports.Janitor
	authMiddleware *auth.Middleware
	httpServer     *http.Server
}

// New создаёт новый HTTP сервер
func New(cfg *config.Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	s.initStorage()
	s.initBlobStore()
	s.seedCatalog()
	s.routes()
	return s
}

// initStorage выбирает storage: Postgres > SQLite > Memory
func (s *Server) initStorage() {
	ctx := context.Background()

	if s.config.DatabaseURL != "" {
		log.Println("INFO storage: connecting to PostgreSQL...")
		pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
		if err == nil {
			log.Println("INFO storage: PostgreSQL connected")
			s.storage, s.storageKind = pgStorage, "postgres"
			return
		}
		log.Printf("WARN storage: PostgreSQL connection failed: %v", err)
	}

	if s.config.SQLitePath != "" {
		sqliteStorage, err := sqlite.New(s.config.SQLitePath)
		if err == nil {
			log.Printf("INFO storage: sqlite path=%s", s.config.SQLitePath)
			s.storage, s.storageKind = sqliteStorage, "sqlite"
			return
		}
		log.Printf("WARN storage: sqlite open failed: %v", err)
	}

	log.Println("INFO storage: using in-memory storage")
	s.storage, s.storageKind = memory.New(), "memory"
}

// initBlobStore подключает хранилище файлов экспорта; при ошибке экспорт остаётся в базе
func (s *Server) initBlobStore() {
	store, mode, err := blob.NewBlobStore(context.Background(), s.config.Blob, log.Default())
	if err != nil {
		log.Printf("WARN blob: %v, fallback=local", err)
		store, mode = nil, config.BlobModeLocal
	}
	s.blobStore, s.blobMode = store, mode
}

func (s *Server) seedCatalog() {
	if !s.config.SeedFoodCatalog {
		return
	}
	if _, err := foods.Seed(context.Background(), s.storage.GetFoodCatalogStorage(), log.Default()); err != nil {
		log.Printf("WARN foods: seed failed: %v", err)
	}
}

// getExportsStorage returns the exports storage based on storage type
func (s *Server) getExportsStorage() storage.ExportsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetExportsStorage()
	case *postgres.PostgresStorage:
		return st.GetExportsStorage()
	case *sqlite.SQLiteStorage:
		return st.GetExportsStorage()
	default:
		log.Fatal("unknown storage type")
		return nil
	}
}

// routes регистрирует маршруты
func (s *Server) routes() {
	// Health check (no auth required)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Auth API
	authService := auth.NewService(s.config)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)
	if s.config.AuthMode == "dev" {
		authHandler := auth.NewHandlers(authService)
		s.mux.HandleFunc("POST /v1/auth/dev", authHandler.HandleDevAuth)
	}

	catalog := s.storage.GetFoodCatalogStorage()
	sheets := s.storage.GetNutritionSheetsStorage()
	profileStore := s.storage.GetNutritionProfilesStorage()

	// Clients API
	clientsHandler := clients.NewHandler(clients.NewService(s.storage))
	s.mux.HandleFunc("GET /v1/clients", clientsHandler.HandleList)
	s.mux.HandleFunc("POST /v1/clients", clientsHandler.HandleCreate)
	s.mux.HandleFunc("PATCH /v1/clients/{id}", clientsHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/clients/{id}", clientsHandler.HandleDelete)

	// Nutrition targets and sheets
	nutritionService := nutrition.NewService(s.storage, sheets)
	nutritionHandler := nutrition.NewHandler(nutritionService)
	s.mux.HandleFunc("POST /v1/nutrition/targets/preview", nutritionHandler.HandlePreview)
	s.mux.HandleFunc("POST /v1/nutrition/sheets", nutritionHandler.HandleCalculate)
	s.mux.HandleFunc("GET /v1/nutrition/sheets", nutritionHandler.HandleHistory)
	s.mux.HandleFunc("GET /v1/nutrition/sheets/latest", nutritionHandler.HandleLatest)

	// Nutrition profiles
	profilesHandler := profiles.NewHandler(profiles.NewService(s.storage, profileStore, catalog))
	s.mux.HandleFunc("GET /v1/profiles/{client_id}", profilesHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/profiles/{client_id}", profilesHandler.HandleUpsert)
	s.mux.HandleFunc("DELETE /v1/profiles/{client_id}", profilesHandler.HandleDelete)
	s.mux.HandleFunc("GET /v1/profiles/{client_id}/hydration", profilesHandler.HandleHydration)
	s.mux.HandleFunc("GET /v1/profiles/{client_id}/compatibility", profilesHandler.HandleCompatibility)

	// Food catalog
	foodsHandler := foods.NewHandler(foods.NewService(catalog))
	s.mux.HandleFunc("GET /v1/foods", foodsHandler.HandleList)
	s.mux.HandleFunc("POST /v1/foods", foodsHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/foods/search", foodsHandler.HandleSearch)
	s.mux.HandleFunc("GET /v1/foods/top", foodsHandler.HandleTop)
	s.mux.HandleFunc("GET /v1/foods/by-category", foodsHandler.HandleByCategories)
	s.mux.HandleFunc("GET /v1/foods/{id}", foodsHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/foods/{id}", foodsHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/foods/{id}", foodsHandler.HandleDelete)
	s.mux.HandleFunc("GET /v1/foods/{id}/portions", foodsHandler.HandleListPortions)
	s.mux.HandleFunc("POST /v1/foods/{id}/portions", foodsHandler.HandleAddPortion)
	s.mux.HandleFunc("DELETE /v1/portions/{id}", foodsHandler.HandleDeletePortion)

	// Meal plans
	plansService := mealplans.NewService(s.storage, s.storage.GetMealPlansStorage(), catalog)
	plansHandler := mealplans.NewHandler(plansService)
	s.mux.HandleFunc("GET /v1/plans", plansHandler.HandleList)
	s.mux.HandleFunc("POST /v1/plans", plansHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/plans/{id}", plansHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/plans/{id}", plansHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/plans/{id}", plansHandler.HandleDelete)
	s.mux.HandleFunc("GET /v1/plans/{id}/totals", plansHandler.HandleTotals)
	s.mux.HandleFunc("POST /v1/plans/{id}/meals", plansHandler.HandleAddMeal)
	s.mux.HandleFunc("PATCH /v1/meals/{id}", plansHandler.HandleUpdateMeal)
	s.mux.HandleFunc("DELETE /v1/meals/{id}", plansHandler.HandleDeleteMeal)
	s.mux.HandleFunc("POST /v1/meals/{id}/items", plansHandler.HandleAddItem)
	s.mux.HandleFunc("PATCH /v1/items/{id}", plansHandler.HandleUpdateItem)
	s.mux.HandleFunc("DELETE /v1/items/{id}", plansHandler.HandleDeleteItem)
	s.mux.HandleFunc("POST /v1/clients/{id}/plan", plansHandler.HandleClientPlan)

	// Meal plan generator
	genService := mealgen.NewService(s.storage, catalog, sheets, profileStore, plansService, mealgen.Defaults{
		Days:        s.config.MealGen.DefaultDays,
		MealsPerDay: s.config.MealGen.DefaultMeals,
		Tolerance:   s.config.MealGen.DefaultTolerance,
		MaxDays:     s.config.MealGen.MaxDays,
	}, log.Default())
	genHandler := mealgen.NewHandler(genService)
	s.mux.HandleFunc("POST /v1/mealgen/generate", genHandler.HandleGenerate)
	s.mux.HandleFunc("POST /v1/mealgen/analyze", genHandler.HandleAnalyze)
	s.mux.HandleFunc("GET /v1/foods/suggestions", genHandler.HandleSuggestions)

	// Exports
	exportsStorage := s.getExportsStorage()
	exportsService := reports.NewService(exportsStorage, s.storage, nutritionService, plansService, s.blobStore, reports.Options{
		PresignTTLSeconds: s.config.Blob.S3.PresignTTLSeconds,
		PublicBaseURL:     s.config.Blob.S3.PublicBaseURL,
		PreferPublicURL:   s.config.Blob.S3.PreferPublicURL,
	}, log.Default())
	exportsHandler := reports.NewHandlers(exportsService)
	s.mux.HandleFunc("POST /v1/exports", exportsHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/exports", exportsHandler.HandleList)
	s.mux.HandleFunc("GET /v1/exports/{id}/download", exportsHandler.HandleDownload)
	s.mux.HandleFunc("DELETE /v1/exports/{id}", exportsHandler.HandleDelete)

	s.janitor = reports.NewJanitor(exportsStorage, s.blobStore, time.Duration(s.config.ExportsTTLHours)*time.Hour, log.Default())
}

// Handler builds the middleware chain (outermost first): CORS → Rate Limit → Auth → Router
func (s *Server) Handler() http.Handler {
	handler := s.authMiddleware.Wrap(s.mux)
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"storage": s.storageKind,
		"blob":    s.blobMode,
	})
}

// Start запускает HTTP сервер и очистку экспортов
func (s *Server) Start() error {
	if err := s.janitor.Start(s.config.ExportsPurgeSchedule); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("INFO server: listening on http://localhost%s", addr)
	log.Printf("INFO server: health check http://localhost%s/healthz", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает приём запросов и очистку
func (s *Server) Shutdown(ctx context.Context) error {
	s.janitor.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Close закрывает storage и освобождает ресурсы
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
