package sqlite

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringSlice хранит []string в JSON-колонке
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type clientModel struct {
	ID          string  `gorm:"type:char(36);primaryKey"`
	OwnerUserID string  `gorm:"type:varchar(255);not null;index"`
	FirstName   string  `gorm:"type:varchar(255);not null"`
	LastName    string  `gorm:"type:varchar(255);not null"`
	Email       *string `gorm:"type:varchar(255)"`
	BirthDate   *string `gorm:"type:char(10)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (clientModel) TableName() string { return "clients" }

type foodModel struct {
	ID             string   `gorm:"type:char(36);primaryKey"`
	Name           string   `gorm:"type:varchar(255);uniqueIndex;not null"`
	Category       string   `gorm:"type:varchar(100);index"`
	DietType       string   `gorm:"type:varchar(50)"`
	KcalPer100g    float64  `gorm:"column:kcal_100g"`
	ProteinPer100g float64  `gorm:"column:protein_100g"`
	CarbsPer100g   float64  `gorm:"column:carbs_100g"`
	FatPer100g     float64  `gorm:"column:fat_100g"`
	FiberPer100g   *float64 `gorm:"column:fiber_100g"`
	BaseUnit       string   `gorm:"type:varchar(20);default:'g'"`
	HealthyIndex   *int
	CommonIndex    *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (foodModel) TableName() string { return "foods" }

type portionModel struct {
	ID              string `gorm:"type:char(36);primaryKey"`
	FoodID          string `gorm:"type:char(36);not null;index"`
	Description     string `gorm:"type:varchar(255);not null"`
	GramsEquivalent float64
}

func (portionModel) TableName() string { return "portions" }

type sheetModel struct {
	ID              string `gorm:"type:char(36);primaryKey"`
	ClientID        string `gorm:"type:char(36);not null;index"`
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

func (sheetModel) TableName() string { return "nutrition_sheets" }

type profileModel struct {
	ID               string      `gorm:"type:char(36);primaryKey"`
	ClientID         string      `gorm:"type:char(36);uniqueIndex;not null"`
	Age              int
	Sex              string
	WeightKg         float64
	HeightCm         float64
	Goal             string
	ActivityLevel    string
	Restrictions     StringSlice `gorm:"type:json"`
	CompatibleDiets  StringSlice `gorm:"type:json"`
	PreferredFoodIDs StringSlice `gorm:"type:json"`
	ExcludedFoodIDs  StringSlice `gorm:"type:json"`
	MealsPerDay      int
	BMR              float64
	CalorieNeeds     float64
	ProteinG         float64
	CarbsG           float64
	FatG             float64
	ProteinPct       float64
	CarbsPct         float64
	FatPct           float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (profileModel) TableName() string { return "nutrition_profiles" }

type planModel struct {
	ID          string  `gorm:"type:char(36);primaryKey"`
	OwnerUserID string  `gorm:"type:varchar(255);not null;index"`
	ClientID    *string `gorm:"type:char(36);index"`
	Name        string  `gorm:"type:varchar(255);not null"`
	Description *string `gorm:"type:text"`
	Tags        *string `gorm:"type:text"`
	Meals       []mealModel `gorm:"foreignKey:PlanID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (planModel) TableName() string { return "meal_plans" }

type mealModel struct {
	ID       string      `gorm:"type:char(36);primaryKey"`
	PlanID   string      `gorm:"type:char(36);not null;index"`
	Name     string      `gorm:"type:varchar(255);not null"`
	Position int         `gorm:"default:0"`
	Items    []itemModel `gorm:"foreignKey:MealID"`
}

func (mealModel) TableName() string { return "meals" }

type itemModel struct {
	ID        string  `gorm:"type:char(36);primaryKey"`
	MealID    string  `gorm:"type:char(36);not null;index"`
	FoodID    string  `gorm:"type:char(36);not null"`
	PortionID *string `gorm:"type:char(36)"`
	Quantity  float64
}

func (itemModel) TableName() string { return "meal_items" }

type exportModel struct {
	ID          string  `gorm:"type:char(36);primaryKey"`
	OwnerUserID string  `gorm:"type:varchar(255);not null;index"`
	ClientID    *string `gorm:"type:char(36);index"`
	Kind        string  `gorm:"type:varchar(20);not null"`
	Format      string  `gorm:"type:varchar(10);not null"`
	SubjectID   string  `gorm:"type:varchar(64)"`
	FileName    string  `gorm:"type:varchar(255)"`
	ObjectKey   *string `gorm:"type:text"`
	Data        []byte
	SizeBytes   int64
	Status      string  `gorm:"type:varchar(20)"`
	Error       *string `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

func (exportModel) TableName() string { return "exports" }
