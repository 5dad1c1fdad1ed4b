// Package machine ties the chip set together: it generates every chip's
// witness matrix from one execution trace and checks each matrix against
// its chip's constraints.
package machine

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zkir/zkir-prover/internal/zkir/air"
	"github.com/zkir/zkir-prover/internal/zkir/chips"
	"github.com/zkir/zkir-prover/internal/zkir/trace"
)

// ChipWitness pairs a chip with its generated witness matrix.
type ChipWitness struct {
	Chip   chips.Chip
	Matrix *air.Matrix
}

// Machine is the fixed multi-chip arithmetization of the ZK IR virtual
// machine.
type Machine struct {
	chips []chips.Chip
}

// New creates a machine over the full chip set.
func New() *Machine {
	return &Machine{chips: chips.AllChips()}
}

// Chips returns the machine's chip set.
func (m *Machine) Chips() []chips.Chip {
	return m.chips
}

// GenerateAll fills every chip's witness matrix from the trace. Chips
// are independent, so generation runs in parallel. The result is ordered
// like Chips.
func (m *Machine) GenerateAll(t *trace.ExecutionTrace) []ChipWitness {
	witnesses := make([]ChipWitness, len(m.chips))

	var wg sync.WaitGroup
	for i, chip := range m.chips {
		wg.Add(1)
		go func(idx int, chip chips.Chip) {
			defer wg.Done()

			start := time.Now()
			matrix := chip.GenerateTrace(t)
			witnesses[idx] = ChipWitness{Chip: chip, Matrix: matrix}

			log.WithFields(log.Fields{
				"chip":     chip.Name(),
				"width":    matrix.Width(),
				"height":   matrix.Height(),
				"duration": time.Since(start),
			}).Debug("generated chip witness")
		}(i, chip)
	}
	wg.Wait()

	return witnesses
}

// CheckAll verifies every generated witness against its chip's
// constraint set. The first failing chip aborts the check.
func (m *Machine) CheckAll(witnesses []ChipWitness) error {
	for _, w := range witnesses {
		if err := chips.ConstraintSet(w.Chip).Check(w.Matrix); err != nil {
			return fmt.Errorf("chip %s: %w", w.Chip.Name(), err)
		}
	}

	return nil
}

// Prove generates and checks all chip witnesses for a trace. This is the
// arithmetization front half of the proving pipeline; the commitment and
// FRI layers consume its output.
func (m *Machine) Prove(t *trace.ExecutionTrace) ([]ChipWitness, error) {
	key, err := t.ContentKey()
	if err != nil {
		return nil, fmt.Errorf("trace content key: %w", err)
	}

	log.WithFields(log.Fields{
		"trace":  fmt.Sprintf("%x", key[:8]),
		"cycles": t.NumCycles(),
		"chips":  len(m.chips),
	}).Info("arithmetizing execution trace")

	witnesses := m.GenerateAll(t)
	if err := m.CheckAll(witnesses); err != nil {
		return nil, fmt.Errorf("witness check failed: %w", err)
	}

	return witnesses, nil
}
