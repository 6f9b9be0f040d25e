package cogsched

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

func errTLXField(field string) error {
	return fmt.Errorf("%w: %s out of range", ErrMalformedTask, field)
}

// TLXEntry is one NASA-TLX response for a completed block. Both scales run
// 1-7; the log is append-only per user.
type TLXEntry struct {
	BlockIndex   int       `json:"block_index"`
	MentalDemand int       `json:"mental_demand"`
	Effort       int       `json:"effort"`
	Timestamp    time.Time `json:"timestamp"`
}

// Validate checks the TLX scales.
func (e TLXEntry) Validate() error {
	if e.BlockIndex < 0 {
		return errTLXField("block_index")
	}
	if e.MentalDemand < 1 || e.MentalDemand > 7 {
		return errTLXField("mental_demand")
	}
	if e.Effort < 1 || e.Effort > 7 {
		return errTLXField("effort")
	}
	return nil
}

// Recalibration nudge sizes and clamp ranges.
const (
	recalibrateEvery  = 3   // run after every 3rd entry
	recalibrateWindow = 6   // average over the most recent entries
	recalAlpha        = 0.05
	recalBeta         = 0.05
	recalBaseline     = 0.5

	weightMin = 0.05
	weightMax = 0.60
	forceMin  = 0.40
	forceMax  = 0.90
)

// Recalibrate nudges the three fatigue weights from the TLX log. It fires
// only when the entry count is a multiple of three; otherwise the config is
// returned unchanged. High reported demand and effort raise the weights and
// lower the force-break threshold, so breaks trigger earlier.
func Recalibrate(cfg Config, history []TLXEntry) (Config, bool) {
	n := len(history)
	if n < recalibrateEvery || n%recalibrateEvery != 0 {
		return cfg, false
	}

	window := history
	if n > recalibrateWindow {
		window = history[n-recalibrateWindow:]
	}

	demands := make([]float64, len(window))
	efforts := make([]float64, len(window))
	for i, e := range window {
		demands[i] = (float64(e.MentalDemand) - 1) / 6
		efforts[i] = (float64(e.Effort) - 1) / 6
	}
	md := stat.Mean(demands, nil)
	ef := stat.Mean(efforts, nil)

	cfg.FatigueConsecWeight = clamp(cfg.FatigueConsecWeight+recalAlpha*(md-recalBaseline), weightMin, weightMax)
	cfg.FatigueTotalWeight = clamp(cfg.FatigueTotalWeight+recalAlpha*(ef-recalBaseline), weightMin, weightMax)
	cfg.FatigueForceBreak = clamp(cfg.FatigueForceBreak-recalBeta*((md+ef)/2-recalBaseline), forceMin, forceMax)

	return cfg, true
}
