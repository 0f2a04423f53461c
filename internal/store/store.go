package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-branch-monitor/internal/model"
	"laundry-branch-monitor/internal/parse"
)

// Store defines the interface for all database operations.
type Store interface {
	UpsertBranch(ctx context.Context, code, name, timezone string) (model.Branch, error)
	ListBranches(ctx context.Context) ([]model.Branch, error)
	GetBranch(ctx context.Context, code string) (model.Branch, error)
	UpsertMachines(ctx context.Context, branchID int64, items []ApiMachine) error
	ListMachines(ctx context.Context, branchID int64) ([]model.Machine, error)
	ReplaceTransactions(ctx context.Context, branchID int64, date string, items []ApiTransaction) error
	ListTransactions(ctx context.Context, branchID int64, date string) ([]model.Transaction, error)
	UpdateOccupancy(ctx context.Context, now time.Time, branchID int64, states []MachineState) ([]int64, error)
	SaveSubscription(ctx context.Context, sub model.PushSubscription, machineIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for handlers that query directly.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// UpsertBranch creates the branch or refreshes its name and timezone.
func (s *gormStore) UpsertBranch(ctx context.Context, code, name, timezone string) (model.Branch, error) {
	branch := model.Branch{Code: code, Name: name, Timezone: timezone}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "timezone", "updated_at"}),
	}).Create(&branch).Error; err != nil {
		return model.Branch{}, fmt.Errorf("upsert branch %q failed: %w", code, err)
	}
	// The conflict path does not report the existing primary key on every dialect.
	return s.GetBranch(ctx, code)
}

func (s *gormStore) ListBranches(ctx context.Context) ([]model.Branch, error) {
	var branches []model.Branch
	if err := s.db.WithContext(ctx).Order("code").Find(&branches).Error; err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, nil
}

func (s *gormStore) GetBranch(ctx context.Context, code string) (model.Branch, error) {
	var branch model.Branch
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&branch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Branch{}, fmt.Errorf("branch %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return model.Branch{}, fmt.Errorf("failed to load branch %q: %w", code, err)
	}
	return branch, nil
}

// UpsertMachines mirrors the inventory of one branch. Machines are matched by
// type and number; the back-office id is informational. Items whose type or
// number cannot be determined are skipped. Machines missing from a non-empty
// inventory are removed; an empty inventory leaves the mirror as it was.
func (s *gormStore) UpsertMachines(ctx context.Context, branchID int64, items []ApiMachine) error {
	existingMachines, err := s.fetchMachines(ctx, branchID)
	if err != nil {
		return fmt.Errorf("failed to load machines for branch %d: %w", branchID, err)
	}

	var machinesToCreate, machinesToUpdate []model.Machine
	seen := make(map[machineKey]bool, len(items))
	for _, item := range items {
		machine, err := prepareMachine(item, branchID)
		if err != nil {
			log.Printf("Error normalizing machine %d (%s): %v", item.ID, item.Name, err)
			continue
		}
		key := keyOf(machine)
		if seen[key] {
			log.Printf("Warning: branch %d lists %s %d twice; keeping the first", branchID, machine.Type, machine.Number)
			continue
		}
		seen[key] = true

		old, exists := existingMachines[key]
		switch {
		case !exists:
			machinesToCreate = append(machinesToCreate, machine)
		case !sameMachine(old, machine):
			machine.ID = old.ID
			machinesToUpdate = append(machinesToUpdate, machine)
		}
	}

	var stale []int64
	if len(seen) > 0 {
		for key, m := range existingMachines {
			if !seen[key] {
				stale = append(stale, m.ID)
			}
		}
	}

	if len(machinesToCreate) == 0 && len(machinesToUpdate) == 0 && len(stale) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(machinesToCreate) > 0 {
			log.Printf("Inserting %d machines for branch %d...", len(machinesToCreate), branchID)
			if err := batchUpsertMachines(tx, machinesToCreate); err != nil {
				return fmt.Errorf("failed to insert machines for branch %d: %w", branchID, err)
			}
		}
		for _, m := range machinesToUpdate {
			if err := tx.Model(&model.Machine{}).Where("id = ?", m.ID).Updates(map[string]any{
				"upstream_id":  m.UpstreamID,
				"display_name": m.DisplayName,
				"status":       m.Status,
			}).Error; err != nil {
				return fmt.Errorf("failed to update machine %d: %w", m.ID, err)
			}
		}
		if len(stale) > 0 {
			log.Printf("Removing %d machines no longer listed for branch %d", len(stale), branchID)
			if err := tx.Exec("DELETE FROM subscription_machine_mapping WHERE machine_id IN ?", stale).Error; err != nil {
				return fmt.Errorf("failed to unmap stale machines: %w", err)
			}
			if err := tx.Delete(&model.Machine{}, stale).Error; err != nil {
				return fmt.Errorf("failed to delete stale machines: %w", err)
			}
		}
		return nil
	})
}

func (s *gormStore) ListMachines(ctx context.Context, branchID int64) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("type DESC, number").
		Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to list machines for branch %d: %w", branchID, err)
	}
	return machines, nil
}

// ReplaceTransactions makes the feed of (branch, date) equal to items: known
// codes are updated, new ones inserted, vanished ones deleted. Rows keep their
// own order date, which may precede date.
func (s *gormStore) ReplaceTransactions(ctx context.Context, branchID int64, date string, items []ApiTransaction) error {
	rows := make([]model.Transaction, 0, len(items))
	codes := make([]string, 0, len(items))
	for _, item := range items {
		if item.Code == "" {
			log.Printf("Warning: transaction without code at %s %s in branch %d; skipping", item.Date, item.Time, branchID)
			continue
		}
		rowDate := item.Date
		if rowDate == "" {
			rowDate = date
		}
		rows = append(rows, model.Transaction{
			BranchID: branchID,
			Code:     item.Code,
			FeedDate: date,
			Date:     rowDate,
			Clock:    item.Time,
			Services: item.Services,
			Canceled: item.Canceled(),
			Own:      item.IsOwn,
		})
		codes = append(codes, item.Code)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("branch_id = ? AND feed_date = ?", branchID, date)
		if len(codes) > 0 {
			del = del.Where("code NOT IN ?", codes)
		}
		if err := del.Delete(&model.Transaction{}).Error; err != nil {
			return fmt.Errorf("failed to prune transactions for branch %d: %w", branchID, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "branch_id"}, {Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"feed_date", "date", "clock", "services", "canceled", "own", "updated_at"}),
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to upsert transactions for branch %d: %w", branchID, err)
		}
		return nil
	})
}

func (s *gormStore) ListTransactions(ctx context.Context, branchID int64, date string) ([]model.Transaction, error) {
	var txs []model.Transaction
	if err := s.db.WithContext(ctx).
		Where("branch_id = ? AND feed_date = ?", branchID, date).
		Order("date, clock, id").
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions for branch %d: %w", branchID, err)
	}
	return txs, nil
}

// UpdateOccupancy records state changes of a branch's machines transactionally.
// It returns the IDs of machines that just became available.
func (s *gormStore) UpdateOccupancy(ctx context.Context, now time.Time, branchID int64, states []MachineState) ([]int64, error) {
	currentOpenRecords, err := s.fetchOpenOccupancies(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open occupancy records: %w", err)
	}

	var becameAvailable []int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, state := range states {
			oldRecord, exists := currentOpenRecords[state.MachineID]

			if exists {
				switch {
				case state.Status != oldRecord.Status:
					if err := archiveRecord(tx, oldRecord, now); err != nil {
						return err
					}
					if state.Available() {
						if err := tx.Delete(&model.OccupancyOpen{}, oldRecord.MachineID).Error; err != nil {
							return fmt.Errorf("failed to delete open occupancy record for machine %d: %w", oldRecord.MachineID, err)
						}
						becameAvailable = append(becameAvailable, state.MachineID)
					} else {
						updated := prepareOccupancy(branchID, state, now)
						if err := tx.Save(&updated).Error; err != nil {
							return fmt.Errorf("failed to update occupancy record for machine %d: %w", state.MachineID, err)
						}
					}
				case !sameFinish(oldRecord.FinishAt, state.FinishAt):
					// Same state, later work queued behind it: move the estimate only.
					if err := tx.Model(&model.OccupancyOpen{}).
						Where("machine_id = ?", state.MachineID).
						Update("finish_at", state.FinishAt).Error; err != nil {
						return fmt.Errorf("failed to move finish estimate for machine %d: %w", state.MachineID, err)
					}
				}
				delete(currentOpenRecords, state.MachineID)
				continue
			}

			if !state.Available() {
				newRecord := prepareOccupancy(branchID, state, now)
				if err := tx.Create(&newRecord).Error; err != nil {
					return fmt.Errorf("failed to create new occupancy record for machine %d: %w", state.MachineID, err)
				}
			}
		}

		// Machines that vanished from the inventory are closed out.
		for _, remainingRecord := range currentOpenRecords {
			if err := archiveRecord(tx, remainingRecord, now); err != nil {
				return err
			}
			if err := tx.Delete(&model.OccupancyOpen{}, remainingRecord.MachineID).Error; err != nil {
				return fmt.Errorf("failed to delete open occupancy record for machine %d: %w", remainingRecord.MachineID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return becameAvailable, nil
}

// archiveRecord creates a historical record of a completed machine state.
func archiveRecord(tx *gorm.DB, recordToArchive model.OccupancyOpen, observationTime time.Time) error {
	startTime := recordToArchive.ObservedAt
	// The period ends at the predicted finish when there was one, otherwise
	// when the change was observed (broken, maintenance).
	periodEnd := observationTime
	if recordToArchive.FinishAt != nil && recordToArchive.FinishAt.After(startTime) {
		periodEnd = *recordToArchive.FinishAt
	}

	historyRecord := model.OccupancyHistory{
		MachineID:   recordToArchive.MachineID,
		ObservedAt:  observationTime,
		Status:      recordToArchive.Status,
		Message:     recordToArchive.Message,
		PeriodStart: startTime,
		PeriodEnd:   periodEnd,
	}

	if err := tx.Create(&historyRecord).Error; err != nil {
		return fmt.Errorf("failed to archive occupancy record for machine %d: %w", recordToArchive.MachineID, err)
	}
	return nil
}

func (s *gormStore) fetchOpenOccupancies(ctx context.Context, branchID int64) (map[int64]model.OccupancyOpen, error) {
	var openRecords []model.OccupancyOpen
	if err := s.db.WithContext(ctx).Where("branch_id = ?", branchID).Find(&openRecords).Error; err != nil {
		return nil, err
	}
	recordMap := make(map[int64]model.OccupancyOpen, len(openRecords))
	for _, r := range openRecords {
		recordMap[r.MachineID] = r
	}
	return recordMap, nil
}

// machineKey is the identity of a machine within its branch.
type machineKey struct {
	typ    string
	number int
}

func keyOf(m model.Machine) machineKey {
	return machineKey{typ: m.Type, number: m.Number}
}

func (s *gormStore) fetchMachines(ctx context.Context, branchID int64) (map[machineKey]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Where("branch_id = ?", branchID).Find(&machines).Error; err != nil {
		return nil, err
	}
	machineMap := make(map[machineKey]model.Machine, len(machines))
	for _, m := range machines {
		machineMap[keyOf(m)] = m
	}
	return machineMap, nil
}

func prepareOccupancy(branchID int64, state MachineState, now time.Time) model.OccupancyOpen {
	return model.OccupancyOpen{
		MachineID:  state.MachineID,
		BranchID:   branchID,
		ObservedAt: now,
		Status:     state.Status,
		Message:    state.Message,
		FinishAt:   state.FinishAt,
	}
}

// prepareMachine normalizes an inventory item, falling back to the display
// label for type and number.
func prepareMachine(item ApiMachine, branchID int64) (model.Machine, error) {
	typ, typeOK := parse.ParseMachineType(item.Type)
	number := item.Number
	if !typeOK || number <= 0 {
		parsed, err := parse.ParseMachineLabel(item.Name)
		if err != nil {
			return model.Machine{}, err
		}
		if !typeOK {
			typ = parsed.Type
		}
		if number <= 0 {
			number = parsed.Number
		}
	}

	status, ok := parse.ParseOperability(item.Status)
	if !ok {
		status = parse.OperabilityAvailable
	}

	name := item.Name
	if name == "" {
		name = fmt.Sprintf("%s %d", typ, number)
	}

	return model.Machine{
		BranchID:    branchID,
		UpstreamID:  item.ID,
		Type:        typ,
		Number:      number,
		DisplayName: name,
		Status:      status,
	}, nil
}

func sameMachine(a, b model.Machine) bool {
	return a.UpstreamID == b.UpstreamID &&
		a.DisplayName == b.DisplayName &&
		a.Status == b.Status
}

func sameFinish(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func batchUpsertMachines(tx *gorm.DB, machines []model.Machine) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "branch_id"}, {Name: "type"}, {Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{"upstream_id", "display_name", "status", "updated_at"}),
	}).Create(&machines).Error
}
