package nutrition

import (
	"math/rand/v2"
	"sync"
)

var mockDishes = []string{
	"Салат с курицей",
	"Стейк с овощами",
	"Паста карбонара",
	"Суши-сет",
	"Борщ",
	"Пицца",
	"Греческий салат",
	"Бургер с картофелем фри",
}

const (
	commentaryHealthy  = "Очень полезное блюдо, богатое питательными веществами и с низким содержанием вредных жиров."
	commentaryModerate = "Умеренно полезное блюдо, сбалансированное по питательным веществам, но с некоторыми ограничениями."
	commentaryPoor     = "Блюдо с высоким содержанием калорий и низкой питательной ценностью. Рекомендуется ограничить потребление."
)

// mockGenerator produces plausible random analyses when no model is available.
type mockGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newMockGenerator(src rand.Source) *mockGenerator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &mockGenerator{rng: rand.New(src)}
}

func (g *mockGenerator) analysis() *FoodAnalysis {
	g.mu.Lock()
	defer g.mu.Unlock()

	score := float64(g.rng.IntN(100))
	return &FoodAnalysis{
		Name:        mockDishes[g.rng.IntN(len(mockDishes))],
		Calories:    float64(g.rng.IntN(600) + 200),
		Protein:     float64(g.rng.IntN(30) + 5),
		Fats:        float64(g.rng.IntN(25) + 5),
		Carbs:       float64(g.rng.IntN(50) + 10),
		HealthScore: score,
		Commentary:  commentaryForScore(score),
	}
}

func commentaryForScore(score float64) string {
	switch {
	case score >= 80:
		return commentaryHealthy
	case score >= 50:
		return commentaryModerate
	default:
		return commentaryPoor
	}
}
