package sim

import (
	"sort"
	"time"
)

// Task is one atomic service unit occupying a machine for [Start, Finish).
type Task struct {
	Code    string      `json:"code"`
	Service ServiceName `json:"service"`
	Unit    int         `json:"unit"`
	Start   time.Time   `json:"start"`
	Finish  time.Time   `json:"finish"`

	seq int // position of the owning transaction in FIFO order
}

func (t Task) overlaps(o Task) bool {
	return t.Start.Before(o.Finish) && o.Start.Before(t.Finish)
}

// Assignment binds a task to a machine of the pool.
type Assignment struct {
	Task
	MachineType   MachineType `json:"machine_type"`
	MachineIndex  int         `json:"machine_index"`
	MachineNumber int         `json:"machine_number"`
}

// Schedule is the per-machine occupancy built by Assign. Washers[i] and
// Dryers[i] are the task queues of Pool.Washers[i] and Pool.Dryers[i].
type Schedule struct {
	Washers     [][]Task
	Dryers      [][]Task
	Assignments []Assignment
	// Overflow holds units for which every machine of the type was busy,
	// out of order or already claimed by the same transaction.
	Overflow []Task
}

// Assign places every unit of txs onto pool. The result depends only on the
// transactions and the pool, never on the wall clock.
func Assign(txs []Transaction, pool Pool) *Schedule {
	s := &Schedule{
		Washers: make([][]Task, len(pool.Washers)),
		Dryers:  make([][]Task, len(pool.Dryers)),
	}

	ordered := make([]Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start.Before(ordered[j].Start) })

	for seq, tx := range ordered {
		if tx.Services.Empty() {
			continue
		}
		h := Hash(tx.key())
		s.assignWashers(seq, tx, h, pool.Washers)
		s.assignDryers(seq, tx, h, pool.Dryers)
	}
	return s
}

func (s *Schedule) assignWashers(seq int, tx Transaction, h int, washers []Machine) {
	size := len(washers)
	if size == 0 {
		return
	}
	first := h % size

	washed := tx.Services.Cuci > 0
	claimed := make(map[int]bool)
	cursor := first
	for u := 0; u < tx.Services.Cuci; u++ {
		task := newTask(seq, tx, Cuci, u, tx.Start)
		idx := probe(s.Washers, washers, cursor, task, claimed)
		if idx < 0 {
			s.Overflow = append(s.Overflow, task)
			continue
		}
		claimed[idx] = true
		s.place(Washer, idx, washers[idx], task)
		cursor = idx + 1
	}

	// Rinse goes to the hashed slots without probing: the load is assumed to
	// stay in the washer it started in.
	rinseStart := tx.Start
	if washed {
		rinseStart = tx.Start.Add(serviceDurations[Cuci])
	}
	for u := 0; u < tx.Services.Bilas; u++ {
		idx := (first + u) % size
		s.place(Washer, idx, washers[idx], newTask(seq, tx, Bilas, u, rinseStart))
	}
}

func (s *Schedule) assignDryers(seq int, tx Transaction, h int, dryers []Machine) {
	size := len(dryers)
	if size == 0 || tx.Services.Kering == 0 {
		return
	}

	start := tx.Start
	if tx.Services.Cuci > 0 {
		start = tx.Start.Add(serviceDurations[Cuci])
	}

	claimed := make(map[int]bool)
	cursor := h % size
	for u := 0; u < tx.Services.Kering; u++ {
		task := newTask(seq, tx, Kering, u, start)
		idx := probe(s.Dryers, dryers, cursor, task, claimed)
		if idx < 0 {
			s.Overflow = append(s.Overflow, task)
			continue
		}
		claimed[idx] = true
		s.place(Dryer, idx, dryers[idx], task)
		cursor = idx + 1
	}
}

// probe walks the pool from cursor, wrapping once, and returns the first
// machine that is assignable, not claimed by this transaction and free of
// overlapping work from other transactions. It returns -1 if none is.
func probe(queues [][]Task, machines []Machine, cursor int, task Task, claimed map[int]bool) int {
	size := len(machines)
	for i := 0; i < size; i++ {
		idx := (cursor + i) % size
		if claimed[idx] || !machines[idx].Operability.Assignable() {
			continue
		}
		if busyForOthers(queues[idx], task) {
			continue
		}
		return idx
	}
	return -1
}

func busyForOthers(queue []Task, task Task) bool {
	for _, q := range queue {
		if q.seq != task.seq && q.overlaps(task) {
			return true
		}
	}
	return false
}

func (s *Schedule) place(t MachineType, idx int, m Machine, task Task) {
	if t == Dryer {
		s.Dryers[idx] = append(s.Dryers[idx], task)
	} else {
		s.Washers[idx] = append(s.Washers[idx], task)
	}
	s.Assignments = append(s.Assignments, Assignment{
		Task:          task,
		MachineType:   t,
		MachineIndex:  idx,
		MachineNumber: m.Number,
	})
}

func newTask(seq int, tx Transaction, name ServiceName, unit int, start time.Time) Task {
	return Task{
		Code:    tx.Code,
		Service: name,
		Unit:    unit,
		Start:   start,
		Finish:  start.Add(serviceDurations[name]),
		seq:     seq,
	}
}

// Queue returns the tasks of machine idx of type t.
func (s *Schedule) Queue(t MachineType, idx int) []Task {
	if t == Dryer {
		return s.Dryers[idx]
	}
	return s.Washers[idx]
}

// AssignmentsFor returns the assignments of one transaction code, in placement order.
func (s *Schedule) AssignmentsFor(code string) []Assignment {
	var out []Assignment
	for _, a := range s.Assignments {
		if a.Code == code {
			out = append(out, a)
		}
	}
	return out
}
