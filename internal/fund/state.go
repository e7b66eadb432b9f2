package fund

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"DCAAdvisor/internal/model"
)

// LoadState reads the portfolio state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*model.PortfolioState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyState(), nil
		}
		return nil, err
	}
	var state model.PortfolioState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.TargetAllocations == nil {
		state.TargetAllocations = map[string]float64{}
	}
	if state.CurrentHoldings == nil {
		state.CurrentHoldings = map[string]int64{}
	}
	return &state, nil
}

// SaveState writes the portfolio state to a JSON file, creating the directory if needed.
func SaveState(filePath string, state *model.PortfolioState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}

func emptyState() *model.PortfolioState {
	return &model.PortfolioState{
		TargetAllocations: map[string]float64{},
		CurrentHoldings:   map[string]int64{},
	}
}
