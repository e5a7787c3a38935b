package mealgen

import (
	"math"

	"github.com/fdg312/coach-hub/internal/storage"
)

const (
	baseQuantity    = 80.0
	minQuantity     = 20.0
	maxQuantity     = 200.0
	maxIterations   = 10
	kcalConvergence = 0.05
)

// Optimize подбирает граммовки так, чтобы сумма калорий приблизилась к targetKcal.
// Все продукты стартуют с 80 г и масштабируются пропорционально, каждая
// граммовка остаётся в [20, 200]. Белки, углеводы и жиры не учитываются.
// Если за 10 итераций сходимости нет, возвращаются последние значения.
func Optimize(foods []storage.Food, targetKcal float64) []float64 {
	quantities := make([]float64, len(foods))
	for i := range quantities {
		quantities[i] = baseQuantity
	}

	for iter := 0; iter < maxIterations; iter++ {
		total := totalKcal(foods, quantities)
		if math.Abs(total-targetKcal) < targetKcal*kcalConvergence {
			break
		}

		factor := targetKcal / math.Max(total, 1)
		for i, q := range quantities {
			quantities[i] = math.Max(minQuantity, math.Min(maxQuantity, q*factor))
		}
	}
	return quantities
}

func totalKcal(foods []storage.Food, quantities []float64) float64 {
	var total float64
	for i, f := range foods {
		total += f.KcalPer100g * quantities[i] / 100
	}
	return total
}
