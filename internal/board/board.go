// Package board turns the mirrored inventory and transactions of a branch
// into its simulated status board.
package board

import (
	"context"
	"fmt"
	"time"

	"laundry-branch-monitor/config"
	"laundry-branch-monitor/internal/model"
	"laundry-branch-monitor/internal/parse"
	"laundry-branch-monitor/internal/sim"
	"laundry-branch-monitor/internal/store"
)

// Board computes status boards from the store.
type Board struct {
	store          store.Store
	defaultWashers int
	defaultDryers  int
}

// New creates a Board using the simulator defaults from cfg.
func New(s store.Store, cfg config.SimulationConfig) *Board {
	return &Board{
		store:          s,
		defaultWashers: cfg.DefaultWashers,
		defaultDryers:  cfg.DefaultDryers,
	}
}

// Compute simulates the branch at now, in the branch's own timezone.
func (b *Board) Compute(ctx context.Context, branch model.Branch, now time.Time) (*sim.Result, error) {
	loc := config.Location(branch.Timezone)

	machines, err := b.store.ListMachines(ctx, branch.ID)
	if err != nil {
		return nil, err
	}
	txs, err := b.store.ListTransactions(ctx, branch.ID, parse.FormatDate(now, loc))
	if err != nil {
		return nil, err
	}

	res := sim.Run(sim.Input{
		Records:        Records(txs),
		Machines:       Machines(machines),
		Location:       loc,
		Now:            now,
		DefaultWashers: b.defaultWashers,
		DefaultDryers:  b.defaultDryers,
	})
	return res, nil
}

// ComputeByCode resolves the branch first.
func (b *Board) ComputeByCode(ctx context.Context, code string, now time.Time) (model.Branch, *sim.Result, error) {
	branch, err := b.store.GetBranch(ctx, code)
	if err != nil {
		return model.Branch{}, nil, err
	}
	res, err := b.Compute(ctx, branch, now)
	if err != nil {
		return branch, nil, fmt.Errorf("failed to compute board for %q: %w", code, err)
	}
	return branch, res, nil
}

// Machines converts mirror rows to simulator machines.
func Machines(rows []model.Machine) []sim.Machine {
	out := make([]sim.Machine, 0, len(rows))
	for _, m := range rows {
		out = append(out, sim.Machine{
			ID:          m.ID,
			Number:      m.Number,
			Type:        sim.MachineType(m.Type),
			Operability: sim.Operability(m.Status),
			Label:       m.DisplayName,
		})
	}
	return out
}

// Records converts mirror rows to simulator records.
func Records(rows []model.Transaction) []sim.Record {
	out := make([]sim.Record, 0, len(rows))
	for _, t := range rows {
		out = append(out, sim.Record{
			Code:     t.Code,
			Clock:    t.Clock,
			Date:     t.Date,
			Services: t.Services,
			Canceled: t.Canceled,
			Own:      t.Own,
		})
	}
	return out
}

// States extracts the per-machine states to record. Machines of the default
// pool have no mirror row and are left out.
func States(res *sim.Result) []store.MachineState {
	states := make([]store.MachineState, 0, len(res.Machines))
	for _, m := range res.Machines {
		if m.ID == 0 {
			continue
		}
		states = append(states, store.MachineState{
			MachineID: m.ID,
			Status:    string(m.Status),
			Message:   m.Label,
			FinishAt:  m.FinishAt,
		})
	}
	return states
}
