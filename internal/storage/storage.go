package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound возвращается при изменении или удалении несуществующей записи
	ErrNotFound = errors.New("not found")
	// ErrInvalidMetric возвращается TopByMetric для неизвестной метрики
	ErrInvalidMetric = errors.New("invalid metric")
)

// Метрики, по которым можно ранжировать продукты
const (
	MetricProtein = "proteines_100g"
	MetricFiber   = "fibres_100g"
	MetricHealthy = "indice_healthy"
)

// ValidMetric сообщает, поддерживается ли метрика TopByMetric
func ValidMetric(metric string) bool {
	switch metric {
	case MetricProtein, MetricFiber, MetricHealthy:
		return true
	}
	return false
}

// Client: клиент тренера
type Client struct {
	ID          uuid.UUID
	OwnerUserID string // "default" когда аутентификация выключена
	FirstName   string
	LastName    string
	Email       *string
	BirthDate   *string // YYYY-MM-DD
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Storage: интерфейс для работы с клиентами
type Storage interface {
	// ListClients возвращает клиентов владельца, отсортированных по фамилии
	ListClients(ctx context.Context, ownerUserID string) ([]Client, error)

	// GetClient возвращает клиента по ID (nil, nil если не найден)
	GetClient(ctx context.Context, id uuid.UUID) (*Client, error)

	// CreateClient создаёт клиента
	CreateClient(ctx context.Context, client *Client) error

	// UpdateClient обновляет клиента
	UpdateClient(ctx context.Context, client *Client) error

	// DeleteClient удаляет клиента вместе с его карточками и профилем
	DeleteClient(ctx context.Context, id uuid.UUID) error

	// Close закрывает соединение (для Postgres и SQLite)
	Close() error
}

// Food: продукт справочника, значения на 100 г
type Food struct {
	ID             string
	Name           string
	Category       string
	DietType       string
	KcalPer100g    float64
	ProteinPer100g float64
	CarbsPer100g   float64
	FatPer100g     float64
	FiberPer100g   *float64
	BaseUnit       string
	HealthyIndex   *int
	CommonIndex    *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FoodUpsert: поля для создания или обновления продукта
type FoodUpsert struct {
	Name           string
	Category       string
	DietType       string
	KcalPer100g    float64
	ProteinPer100g float64
	CarbsPer100g   float64
	FatPer100g     float64
	FiberPer100g   *float64
	BaseUnit       string
	HealthyIndex   *int
	CommonIndex    *int
}

// FoodSearchFilter: фильтр расширенного поиска; пустые поля не применяются.
// Diet оставляет продукты этого типа питания и продукты без типа.
type FoodSearchFilter struct {
	Query      string
	Category   string
	MinProtein *float64
	MaxKcal    *float64
	MinFiber   *float64
	Diet       string
	Limit      int
}

// Portion: порция продукта в граммах
type Portion struct {
	ID              string
	FoodID          string
	Description     string
	GramsEquivalent float64
}

// FoodCatalogStorage: справочник продуктов и порций
type FoodCatalogStorage interface {
	// ListFoods возвращает все продукты по имени
	ListFoods(ctx context.Context) ([]Food, error)
	// GetFood возвращает продукт (nil, nil если не найден)
	GetFood(ctx context.Context, id string) (*Food, error)
	// GetFoodByName ищет продукт по точному имени (nil, nil если не найден)
	GetFoodByName(ctx context.Context, name string) (*Food, error)
	CreateFood(ctx context.Context, req FoodUpsert) (Food, error)
	// UpdateFood возвращает ErrNotFound для неизвестного id
	UpdateFood(ctx context.Context, id string, req FoodUpsert) (Food, error)
	// DeleteFood удаляет продукт и его порции
	DeleteFood(ctx context.Context, id string) error
	// SearchByName: подстрока без учёта регистра
	SearchByName(ctx context.Context, query string) ([]Food, error)
	SearchAdvanced(ctx context.Context, filter FoodSearchFilter) ([]Food, error)
	ListByCategories(ctx context.Context, categories []string) ([]Food, error)
	// TopByMetric возвращает ErrInvalidMetric для неизвестной метрики
	TopByMetric(ctx context.Context, metric string, limit int, excludeCategories []string) ([]Food, error)

	ListPortions(ctx context.Context, foodID string) ([]Portion, error)
	GetPortion(ctx context.Context, id string) (*Portion, error)
	CreatePortion(ctx context.Context, foodID, description string, grams float64) (Portion, error)
	DeletePortion(ctx context.Context, id string) error
}

// NutritionSheet: карточка питания, рассчитанная для клиента
type NutritionSheet struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	CreatedAt       time.Time
	WeightKg        float64
	Goal            string
	ProteinPerKg    float64
	CarbRatio       float64
	MaintenanceKcal int
	ObjectiveKcal   int
	ProteinG        int
	CarbsG          int
	FatG            int
}

// NutritionSheetsStorage: история карточек питания (только добавление)
type NutritionSheetsStorage interface {
	// InsertSheet сохраняет новую карточку, заполняет ID и CreatedAt
	InsertSheet(ctx context.Context, sheet *NutritionSheet) error
	// GetSheet возвращает карточку по ID (nil, nil если не найдена)
	GetSheet(ctx context.Context, id uuid.UUID) (*NutritionSheet, error)
	// GetLatestSheet возвращает самую свежую карточку клиента (nil, nil если нет)
	GetLatestSheet(ctx context.Context, clientID uuid.UUID) (*NutritionSheet, error)
	// ListSheets возвращает карточки клиента, новые первыми
	ListSheets(ctx context.Context, clientID uuid.UUID, limit int) ([]NutritionSheet, error)
}

// MacroBreakdown: разбивка макронутриентов в граммах и процентах
type MacroBreakdown struct {
	ProteinG   float64
	CarbsG     float64
	FatG       float64
	ProteinPct float64
	CarbsPct   float64
	FatPct     float64
}

// NutritionProfile: профиль питания клиента (один на клиента)
type NutritionProfile struct {
	ID               uuid.UUID
	ClientID         uuid.UUID
	Age              int
	Sex              string
	WeightKg         float64
	HeightCm         float64
	Goal             string
	ActivityLevel    string
	Restrictions     []string
	CompatibleDiets  []string
	PreferredFoodIDs []string
	ExcludedFoodIDs  []string
	MealsPerDay      int
	BMR              float64
	CalorieNeeds     float64
	Macros           MacroBreakdown
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NutritionProfilesStorage: профили питания, уникальные по client_id
type NutritionProfilesStorage interface {
	// GetProfileByClient возвращает профиль (nil, nil если нет)
	GetProfileByClient(ctx context.Context, clientID uuid.UUID) (*NutritionProfile, error)
	// UpsertProfile создаёт или заменяет профиль клиента, сохраняя ID и CreatedAt существующего
	UpsertProfile(ctx context.Context, profile *NutritionProfile) error
	// DeleteProfile возвращает ErrNotFound, если профиля нет
	DeleteProfile(ctx context.Context, clientID uuid.UUID) error
}

// MealPlan: план питания с упорядоченными приёмами пищи
type MealPlan struct {
	ID          string
	OwnerUserID string
	ClientID    *string
	Name        string
	Description *string
	Tags        *string
	Meals       []Meal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Meal: приём пищи внутри плана
type Meal struct {
	ID       string
	PlanID   string
	Name     string
	Position int
	Items    []MealItem
}

// MealItem: продукт в приёме пищи; Quantity в граммах
type MealItem struct {
	ID        string
	MealID    string
	FoodID    string
	PortionID *string
	Quantity  float64
}

// MealPlansStorage: планы, приёмы пищи и их позиции (каскадное удаление)
type MealPlansStorage interface {
	// ListPlans возвращает планы без приёмов пищи, по имени; clientID фильтрует, если задан
	ListPlans(ctx context.Context, ownerUserID string, clientID *string) ([]MealPlan, error)
	// GetPlan возвращает план с деревом (nil, nil если не найден)
	GetPlan(ctx context.Context, ownerUserID, id string) (*MealPlan, error)
	// FindPlanByClient возвращает первый план клиента по имени (nil, nil если нет)
	FindPlanByClient(ctx context.Context, ownerUserID, clientID string) (*MealPlan, error)
	// CreatePlan сохраняет план с деревом, заполняет все ID
	CreatePlan(ctx context.Context, plan *MealPlan) error
	// UpdatePlan заменяет заголовок, приёмы пищи и позиции
	UpdatePlan(ctx context.Context, plan *MealPlan) error
	DeletePlan(ctx context.Context, ownerUserID, id string) error

	// GetMeal возвращает приём пищи с позициями (nil, nil если не найден)
	GetMeal(ctx context.Context, ownerUserID, mealID string) (*Meal, error)
	AddMeal(ctx context.Context, ownerUserID, planID string, meal *Meal) error
	UpdateMeal(ctx context.Context, ownerUserID string, meal Meal) error
	DeleteMeal(ctx context.Context, ownerUserID, mealID string) error

	AddItem(ctx context.Context, ownerUserID, mealID string, item *MealItem) error
	UpdateItem(ctx context.Context, ownerUserID string, item MealItem) error
	DeleteItem(ctx context.Context, ownerUserID, itemID string) error
}

// ExportsStorage: интерфейс для работы с экспортами
type ExportsStorage interface {
	// CreateExport создаёт экспорт (metadata + optional data for memory mode)
	CreateExport(ctx context.Context, export *ExportMeta) error

	// GetExport возвращает экспорт по ID (nil, nil если не найден)
	GetExport(ctx context.Context, id uuid.UUID) (*ExportMeta, error)

	// ListExports возвращает экспорты владельца, новые первыми
	ListExports(ctx context.Context, ownerUserID string, clientID *uuid.UUID, limit, offset int) ([]ExportMeta, error)

	// ListExpiredExports возвращает экспорты, созданные раньше before
	ListExpiredExports(ctx context.Context, before time.Time) ([]ExportMeta, error)

	// DeleteExport удаляет экспорт (metadata и данные)
	DeleteExport(ctx context.Context, id uuid.UUID) error
}

// ExportMeta: метаданные экспорта
type ExportMeta struct {
	ID          uuid.UUID
	OwnerUserID string
	ClientID    *uuid.UUID
	Kind        string // "sheet" or "plan"
	Format      string // "pdf", "csv" or "xlsx"
	SubjectID   string // sheet or plan id
	FileName    string
	ObjectKey   *string // S3 object key (NULL for memory mode)
	SizeBytes   int64
	Status      string // "ready" or "failed"
	Error       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Data        []byte // Only used in memory mode (not stored in S3)
}
