package backtest

import (
	"math/rand/v2"
	"sort"

	"alphafusion/pkg/model"
)

// MonteCarloResult contains trade-order resampling results
type MonteCarloResult struct {
	Simulations     int     `json:"simulations"`
	MedianReturn    float64 `json:"median_return"`
	WorstCase       float64 `json:"worst_case"` // 5th percentile
	BestCase        float64 `json:"best_case"`  // 95th percentile
	MedianDrawdown  float64 `json:"median_drawdown"`
	WorstDrawdown   float64 `json:"worst_drawdown"` // 95th percentile
	RuinProbability float64 `json:"ruin_probability"` // runs ending at or below half the initial cash
}

// RunMonteCarlo reshuffles the order of closed-trade net returns and
// compounds them from initialCash. The same seed gives the same result.
func RunMonteCarlo(trades []model.Trade, initialCash float64, simulations int, seed uint64) *MonteCarloResult {
	var returns []float64
	for _, t := range trades {
		if !t.Open {
			returns = append(returns, t.NetReturn())
		}
	}
	if len(returns) == 0 || simulations < 1 {
		return nil
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	finalReturns := make([]float64, simulations)
	maxDDs := make([]float64, simulations)
	ruinCount := 0
	shuffled := make([]float64, len(returns))

	for sim := 0; sim < simulations; sim++ {
		copy(shuffled, returns)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		capital := initialCash
		peak := capital
		for _, r := range shuffled {
			capital *= 1 + r
			if capital > peak {
				peak = capital
			}
			if dd := (peak - capital) / peak; dd > maxDDs[sim] {
				maxDDs[sim] = dd
			}
		}
		if capital <= initialCash*0.5 {
			ruinCount++
		}
		finalReturns[sim] = capital/initialCash - 1
	}

	sort.Float64s(finalReturns)
	sort.Float64s(maxDDs)

	return &MonteCarloResult{
		Simulations:     simulations,
		MedianReturn:    finalReturns[simulations/2],
		WorstCase:       finalReturns[simulations/20],
		BestCase:        finalReturns[simulations*19/20],
		MedianDrawdown:  maxDDs[simulations/2],
		WorstDrawdown:   maxDDs[simulations*19/20],
		RuinProbability: float64(ruinCount) / float64(simulations),
	}
}
