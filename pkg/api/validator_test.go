package api

import (
	"civsim-server/internal/domain"
	"testing"
)

// BatchRequest проверяется тем же контрактом, что и payload-структуры.
var _ domain.Validator = BatchRequest{}

func TestBatchRequest_Validate(t *testing.T) {
	seed := int64(3)
	tests := []struct {
		name    string
		req     BatchRequest
		wantErr bool
	}{
		{"zero values", BatchRequest{}, false},
		{"full", BatchRequest{Workers: 4, SimulationsPerWorker: 10, MaxTurns: 200, StatTurns: []int{50}, Seed: &seed}, false},
		{"limits", BatchRequest{Workers: MaxWorkers, SimulationsPerWorker: MaxSimulationsPerWorker, MaxTurns: MaxTurnsLimit}, false},
		{"negative workers", BatchRequest{Workers: -1}, true},
		{"too many workers", BatchRequest{Workers: MaxWorkers + 1}, true},
		{"too many sims", BatchRequest{SimulationsPerWorker: MaxSimulationsPerWorker + 1}, true},
		{"too many turns", BatchRequest{MaxTurns: MaxTurnsLimit + 1}, true},
		{"zero stat turn", BatchRequest{StatTurns: []int{10, 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if got := err != nil; got != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
