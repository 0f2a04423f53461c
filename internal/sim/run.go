package sim

import "time"

// Input is everything one simulation run needs. It is a snapshot; Run never
// modifies it.
type Input struct {
	Records        []Record
	Machines       []Machine
	Location       *time.Location
	Now            time.Time
	DefaultWashers int
	DefaultDryers  int
}

// SkippedRecord is a record left out because it could not be resolved.
type SkippedRecord struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Result is the complete board for one branch at Input.Now.
type Result struct {
	Now          time.Time             `json:"now"`
	Day          string                `json:"day"`
	Machines     []MachineStatus       `json:"machines"`
	Transactions []TransactionProgress `json:"transactions"`
	Availability Availability          `json:"availability"`
	Overflow     []Task                `json:"overflow,omitempty"`
	Skipped      []SkippedRecord       `json:"skipped,omitempty"`
	Schedule     *Schedule             `json:"-"`
}

// Run resolves the records, assigns today's active transactions to the pool
// and derives every machine's status. A record with a malformed clock or date
// is skipped on its own; the rest of the board is still computed.
func Run(in Input) *Result {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	res := &Result{
		Now: in.Now,
		Day: in.Now.In(loc).Format("2006-01-02"),
	}

	var active []Transaction
	for _, rec := range in.Records {
		tx, err := NewTransaction(rec, loc)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedRecord{Code: rec.Code, Reason: err.Error()})
			continue
		}
		res.Transactions = append(res.Transactions, Progress(tx, in.Now, loc))
		if tx.Occupies(in.Now, loc) {
			active = append(active, tx)
		}
	}

	pool := NewPool(in.Machines, in.DefaultWashers, in.DefaultDryers)
	res.Schedule = Assign(active, pool)
	res.Overflow = res.Schedule.Overflow
	res.Machines = DeriveStatuses(res.Schedule, pool, in.Now)
	res.Availability = Summarize(res.Machines)
	return res
}
