package sim

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wib = time.FixedZone("WIB", 7*3600)

const today = "2026-10-19"

func at(h, m int) time.Time {
	return time.Date(2026, 10, 19, h, m, 0, 0, wib)
}

func mustTx(t *testing.T, code, clock, services string) Transaction {
	t.Helper()
	tx, err := NewTransaction(Record{Code: code, Clock: clock, Date: today, Services: services}, wib)
	require.NoError(t, err)
	return tx
}

func TestServiceDurationTable(t *testing.T) {
	assert.Equal(t, 15*time.Minute, ServiceDuration(Cuci))
	assert.Equal(t, 45*time.Minute, ServiceDuration(Kering))
	assert.Equal(t, 7*time.Minute, ServiceDuration(Bilas))
	assert.Equal(t, ServiceDuration(Cuci)+ServiceDuration(Kering), ServiceDuration(CKL))
	assert.Equal(t, time.Duration(0), ServiceDuration("Setrika"))

	assert.Equal(t, ParseServices("Cuci, Kering"), ParseServices("CKL"))
}

func TestParseServices(t *testing.T) {
	testCases := []struct {
		raw      string
		expected ServiceCounts
	}{
		{raw: "Cuci, Cuci, Kering", expected: ServiceCounts{Cuci: 2, Kering: 1}},
		{raw: "cuci ,BILAS, Setrika", expected: ServiceCounts{Cuci: 1, Bilas: 1}},
		{raw: "CKL, CKL", expected: ServiceCounts{Cuci: 2, Kering: 2}},
		{raw: "", expected: ServiceCounts{}},
		{raw: " , ,", expected: ServiceCounts{}},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseServices(tc.raw))
		})
	}

	assert.Equal(t, ServiceCounts{Cuci: 1, Bilas: 2}, ParseServiceList([]string{"Bilas", "Cuci", "Bilas"}))
	assert.True(t, ParseServices("Lipat").Empty())
	assert.Equal(t, "2x Cuci, 1x Kering", ServiceCounts{Cuci: 2, Kering: 1}.String())
}

func TestServiceCountsDuration(t *testing.T) {
	testCases := []struct {
		services string
		minutes  int
	}{
		{"Cuci", 15},
		{"Bilas", 7},
		{"Cuci, Bilas", 22},
		{"Kering", 45},
		{"Cuci, Kering", 60},
		{"CKL", 60},
		{"Bilas, Kering", 52},
		{"Cuci, Bilas, Kering", 67},
		{"Cuci, Cuci, Bilas", 22},
		{"Setrika", 0},
	}
	for _, tc := range testCases {
		t.Run(tc.services, func(t *testing.T) {
			assert.Equal(t, time.Duration(tc.minutes)*time.Minute, ParseServices(tc.services).Duration())
		})
	}
}

func TestHash(t *testing.T) {
	assert.Equal(t, 0, Hash(""))
	assert.Equal(t, 65, Hash("A"))
	assert.Equal(t, 97*31+98, Hash("ab"))
	assert.Equal(t, Hash("TRX-20261019-0001"), Hash("TRX-20261019-0001"))

	long := "a very long transaction code that overflows thirty-two bits many times over"
	assert.GreaterOrEqual(t, Hash(long), 0)
}

func TestNewTransaction_Malformed(t *testing.T) {
	_, err := NewTransaction(Record{Code: "X", Clock: "25.00", Date: today, Services: "Cuci"}, wib)
	assert.True(t, errors.Is(err, ErrMalformedClock))

	_, err = NewTransaction(Record{Code: "X", Clock: "10.00", Date: "19-10-2026", Services: "Cuci"}, wib)
	assert.True(t, errors.Is(err, ErrMalformedDate))
}

func TestScenario_SingleWash(t *testing.T) {
	res := Run(Input{
		Records:        []Record{{Code: "A", Clock: "10.00", Date: today, Services: "Cuci"}},
		Location:       wib,
		Now:            at(10, 5),
		DefaultWashers: 5,
		DefaultDryers:  5,
	})

	var inUse []MachineStatus
	for _, ms := range res.Machines {
		if ms.Status == StatusInUse {
			inUse = append(inUse, ms)
		}
	}
	require.Len(t, inUse, 1)
	assert.Equal(t, Washer, inUse[0].Type)
	assert.Equal(t, 1, inUse[0].Number) // Hash("A") = 65, 65 % 5 = 0
	require.NotNil(t, inUse[0].FinishAt)
	assert.True(t, at(10, 15).Equal(*inUse[0].FinishAt))
	assert.Equal(t, "Digunakan", inUse[0].Label)
	assert.Equal(t, 10, inUse[0].MinutesRemaining)

	assert.Equal(t, 5, res.Availability.DryersAvailable)
	assert.Equal(t, "4/5", res.Availability.Washers)
	assert.Equal(t, "5/5", res.Availability.Dryers)
}

func TestScenario_WashThenDry(t *testing.T) {
	tx := mustTx(t, "B", "09:00", "Cuci, Kering")
	s := Assign([]Transaction{tx}, DefaultPool(5, 5))

	as := s.AssignmentsFor("B")
	require.Len(t, as, 2)

	assert.Equal(t, Washer, as[0].MachineType)
	assert.True(t, at(9, 0).Equal(as[0].Start))
	assert.True(t, at(9, 15).Equal(as[0].Finish))

	assert.Equal(t, Dryer, as[1].MachineType)
	assert.True(t, at(9, 15).Equal(as[1].Start))
	assert.True(t, at(10, 0).Equal(as[1].Finish))

	assert.Equal(t, 60*time.Minute, as[1].Finish.Sub(tx.Start))
	assert.Equal(t, tx.Finish(), as[1].Finish)
}

func TestScenario_StandaloneRinse(t *testing.T) {
	tx := mustTx(t, "C", "08.00", "Bilas")
	s := Assign([]Transaction{tx}, DefaultPool(5, 5))

	as := s.AssignmentsFor("C")
	require.Len(t, as, 1)
	assert.Equal(t, Washer, as[0].MachineType)
	assert.Equal(t, Bilas, as[0].Service)
	assert.True(t, at(8, 0).Equal(as[0].Start))
	assert.True(t, at(8, 7).Equal(as[0].Finish))
	for _, q := range s.Dryers {
		assert.Empty(t, q)
	}
}

func TestScenario_RinseAfterWashReusesWasher(t *testing.T) {
	tx := mustTx(t, "D", "08.00", "Cuci, Bilas")
	s := Assign([]Transaction{tx}, DefaultPool(5, 5))

	as := s.AssignmentsFor("D")
	require.Len(t, as, 2)
	assert.Equal(t, as[0].MachineIndex, as[1].MachineIndex)
	assert.True(t, at(8, 15).Equal(as[1].Start))
	assert.True(t, at(8, 22).Equal(as[1].Finish))
}

func TestScenario_CKLMatchesWashAndDry(t *testing.T) {
	pool := DefaultPool(5, 5)
	ckl := Assign([]Transaction{mustTx(t, "E", "11.00", "CKL")}, pool)
	pair := Assign([]Transaction{mustTx(t, "E", "11.00", "Cuci, Kering")}, pool)

	assert.Equal(t, pair.Assignments, ckl.Assignments)
	assert.Equal(t, pair.Washers, ckl.Washers)
	assert.Equal(t, pair.Dryers, ckl.Dryers)
}

func TestAssign_NoSelfCollision(t *testing.T) {
	for _, size := range []int{3, 4, 5, 8} {
		t.Run(fmt.Sprintf("pool %d", size), func(t *testing.T) {
			tx := mustTx(t, "MULTI", "10.00", "Cuci, Cuci, Cuci")
			s := Assign([]Transaction{tx}, DefaultPool(size, size))

			seen := make(map[int]bool)
			for _, a := range s.AssignmentsFor("MULTI") {
				assert.False(t, seen[a.MachineIndex], "machine %d used twice", a.MachineIndex)
				seen[a.MachineIndex] = true
			}
			assert.Len(t, seen, 3)
			assert.Empty(t, s.Overflow)
		})
	}
}

func TestAssign_NoCrossTransactionOverlap(t *testing.T) {
	services := []string{"Cuci", "Cuci, Kering", "CKL", "Cuci, Cuci", "Kering", "Cuci, Cuci, Kering, Kering"}
	var txs []Transaction
	for i := 0; i < 18; i++ {
		clock := fmt.Sprintf("%02d.%02d", 8+i/6, (i%6)*10)
		txs = append(txs, mustTx(t, fmt.Sprintf("TRX-%03d", i), clock, services[i%len(services)]))
	}
	s := Assign(txs, DefaultPool(5, 5))

	check := func(queues [][]Task) {
		for idx, q := range queues {
			for i := range q {
				for j := i + 1; j < len(q); j++ {
					if q[i].Code == q[j].Code {
						continue
					}
					assert.False(t, q[i].overlaps(q[j]),
						"machine %d: %s %s overlaps %s %s", idx, q[i].Code, q[i].Service, q[j].Code, q[j].Service)
				}
			}
		}
	}
	check(s.Washers)
	check(s.Dryers)
}

func TestAssign_Deterministic(t *testing.T) {
	in := Input{
		Records: []Record{
			{Code: "TRX-1", Clock: "09.00", Date: today, Services: "Cuci, Kering"},
			{Code: "TRX-2", Clock: "09.00", Date: today, Services: "CKL, Bilas"},
			{Code: "TRX-3", Clock: "09.05", Date: today, Services: "Cuci, Cuci"},
			{Code: "", Clock: "09.10", Date: today, Services: "Kering"},
		},
		Location:       wib,
		Now:            at(9, 20),
		DefaultWashers: 5,
		DefaultDryers:  5,
	}
	first := Run(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Run(in))
	}

	// Assignment ignores the clock; only status derivation reads it.
	later := in
	later.Now = at(23, 0)
	assert.Equal(t, first.Schedule, Run(later).Schedule)
}

func TestAssign_FIFOOrderIndependentOfInputOrder(t *testing.T) {
	a := mustTx(t, "A", "10.00", "Cuci")
	f := mustTx(t, "F", "10.05", "Cuci") // Hash("F") = 70, same slot as "A" in a pool of 5

	s1 := Assign([]Transaction{a, f}, DefaultPool(5, 5))
	s2 := Assign([]Transaction{f, a}, DefaultPool(5, 5))
	assert.Equal(t, s1.Assignments, s2.Assignments)

	require.Len(t, s1.Assignments, 2)
	assert.Equal(t, 0, s1.Assignments[0].MachineIndex)
	assert.Equal(t, 1, s1.Assignments[1].MachineIndex, "second transaction probes past the busy washer")
}

func TestAssign_SkipsBrokenAndMaintenance(t *testing.T) {
	machines := []Machine{
		{Number: 1, Type: Washer, Operability: OperMaintenance},
		{Number: 2, Type: Washer, Operability: OperAvailable},
		{Number: 3, Type: Washer, Operability: OperBroken},
		{Number: 1, Type: Dryer, Operability: OperInUse},
		{Number: 2, Type: Dryer, Operability: OperAvailable},
	}
	// Hash("A") % 3 = 2, which is broken; the probe wraps to index 0 (maintenance) and lands on 1.
	res := Run(Input{
		Records:  []Record{{Code: "A", Clock: "10.00", Date: today, Services: "Cuci, Kering"}},
		Machines: machines,
		Location: wib,
		Now:      at(10, 1),
	})

	as := res.Schedule.AssignmentsFor("A")
	require.Len(t, as, 2)
	assert.Equal(t, 2, as[0].MachineNumber)
	assert.Equal(t, Dryer, as[1].MachineType)
	assert.Equal(t, 2, as[1].MachineNumber) // 65 % 2 = 1

	byName := make(map[string]MachineStatus)
	for _, ms := range res.Machines {
		byName[ms.Name] = ms
	}
	assert.Equal(t, StatusMaintenance, byName["Cuci 1"].Status)
	assert.Equal(t, "Maintenance", byName["Cuci 1"].Label)
	assert.Equal(t, StatusInUse, byName["Cuci 2"].Status)
	assert.Equal(t, StatusBroken, byName["Cuci 3"].Status)
	assert.Equal(t, "Rusak", byName["Cuci 3"].Label)
	assert.Nil(t, byName["Cuci 3"].FinishAt)

	// An in-use dryer with no simulated work reads as available.
	assert.Equal(t, StatusAvailable, byName["Kering 1"].Status)
}

func TestAssign_OverflowWhenSaturated(t *testing.T) {
	txs := []Transaction{
		mustTx(t, "A", "10.00", "Cuci"),
		mustTx(t, "B", "10.01", "Cuci"),
	}
	s := Assign(txs, DefaultPool(1, 1))

	require.Len(t, s.Washers[0], 1)
	assert.Equal(t, "A", s.Washers[0][0].Code)
	require.Len(t, s.Overflow, 1)
	assert.Equal(t, "B", s.Overflow[0].Code)
}

func TestAssign_SequentialReuseAfterFinish(t *testing.T) {
	txs := []Transaction{
		mustTx(t, "A", "10.00", "Cuci"),
		mustTx(t, "B", "10.15", "Cuci"),
	}
	s := Assign(txs, DefaultPool(1, 0))
	assert.Len(t, s.Washers[0], 2)
	assert.Empty(t, s.Overflow)
}

func TestAssign_EmptyPoolIsSafe(t *testing.T) {
	res := Run(Input{
		Records:  []Record{{Code: "A", Clock: "10.00", Date: today, Services: "Cuci, Bilas, Kering"}},
		Machines: []Machine{{Number: 1, Type: Dryer}},
		Location: wib,
		Now:      at(10, 20),
	})

	assert.Equal(t, 0, res.Availability.WashersAvailable)
	assert.Equal(t, 0, res.Availability.WashersTotal)
	assert.Equal(t, "0/0", res.Availability.Washers)
	assert.Equal(t, "0/1", res.Availability.Dryers)
	assert.Empty(t, res.Overflow)

	none := Assign([]Transaction{mustTx(t, "Z", "10.00", "CKL")}, Pool{})
	assert.Empty(t, none.Assignments)
}

// Rinse units reuse the hashed washer without probing, so two standalone
// rinses hashing to the same washer overlap. This pins the current behavior.
func TestAssign_KnownGap_RinseOverlap(t *testing.T) {
	a := mustTx(t, "A", "08.00", "Bilas")
	f := mustTx(t, "F", "08.03", "Bilas")
	s := Assign([]Transaction{a, f}, DefaultPool(5, 5))

	require.Len(t, s.Washers[0], 2)
	assert.True(t, s.Washers[0][0].overlaps(s.Washers[0][1]))

	statuses := DeriveStatuses(s, DefaultPool(5, 5), at(8, 5))
	require.NotNil(t, statuses[0].FinishAt)
	assert.True(t, at(8, 10).Equal(*statuses[0].FinishAt), "the later finish wins")
	assert.Equal(t, 5, statuses[0].MinutesRemaining)
	assert.Len(t, statuses[0].Active, 2)
}

// The rinse slot is the hashed washer for the unit index, even when the wash
// itself was probed onto another washer.
func TestAssign_KnownGap_RinseIgnoresProbedWash(t *testing.T) {
	c := mustTx(t, "C", "07.55", "Cuci")        // Hash("C") % 2 = 1
	a := mustTx(t, "A", "08.00", "Cuci, Bilas") // Hash("A") % 2 = 1, busy until 08:10
	s := Assign([]Transaction{a, c}, DefaultPool(2, 0))

	as := s.AssignmentsFor("A")
	require.Len(t, as, 2)
	assert.Equal(t, Cuci, as[0].Service)
	assert.Equal(t, 0, as[0].MachineIndex, "the wash probes past the busy washer")
	assert.Equal(t, Bilas, as[1].Service)
	assert.Equal(t, 1, as[1].MachineIndex, "the rinse stays on the hashed washer")
	assert.True(t, at(8, 15).Equal(as[1].Start))
}

func TestRun_ExcludesCanceledPriorDayAndMalformed(t *testing.T) {
	res := Run(Input{
		Records: []Record{
			{Code: "OK", Clock: "10.00", Date: today, Services: "Cuci"},
			{Code: "CANCEL", Clock: "10.00", Date: today, Services: "Cuci", Canceled: true},
			{Code: "YESTERDAY", Clock: "23.50", Date: "2026-10-18", Services: "Kering"},
			{Code: "BAD", Clock: "1000", Date: today, Services: "Cuci"},
		},
		Location:       wib,
		Now:            at(10, 5),
		DefaultWashers: 5,
		DefaultDryers:  5,
	})

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "BAD", res.Skipped[0].Code)
	assert.Len(t, res.Transactions, 3)
	assert.Len(t, res.Schedule.Assignments, 1)
	assert.Equal(t, "OK", res.Schedule.Assignments[0].Code)
	assert.Equal(t, "2026-10-19", res.Day)

	for _, p := range res.Transactions {
		switch p.Code {
		case "CANCEL":
			assert.False(t, p.Running)
			assert.True(t, p.Canceled)
		case "YESTERDAY":
			assert.False(t, p.SameDay)
			assert.False(t, p.Running)
		}
	}
}

func TestProgress_Countdown(t *testing.T) {
	tx := mustTx(t, "A", "10.00", "Cuci") // finishes 10:15

	p := Progress(tx, at(10, 10), wib)
	assert.True(t, p.Running)
	assert.Equal(t, 5, p.MinutesRemaining)

	p = Progress(tx, at(10, 10).Add(30*time.Second), wib)
	assert.Equal(t, 5, p.MinutesRemaining, "partial minutes round up")

	p = Progress(tx, at(10, 20).Add(30*time.Second), wib)
	assert.False(t, p.Running)
	assert.Equal(t, 0, p.MinutesRemaining)
	assert.Equal(t, 5, p.MinutesSinceFinish)

	p = Progress(tx, at(10, 15), wib)
	assert.False(t, p.Running)
	assert.Equal(t, 0, p.MinutesSinceFinish)
}

func TestProgress_NotSameDay(t *testing.T) {
	tx, err := NewTransaction(Record{Code: "Y", Clock: "23.50", Date: "2026-10-18", Services: "Kering"}, wib)
	require.NoError(t, err)

	// 00:10 the next day the dry cycle is still nominally running, but the
	// transaction belongs to yesterday.
	p := Progress(tx, at(0, 10), wib)
	assert.False(t, p.SameDay)
	assert.False(t, p.Running)
	assert.Equal(t, 0, p.MinutesRemaining)
}

func TestSummarize_Utilization(t *testing.T) {
	res := Run(Input{
		Records:        []Record{{Code: "A", Clock: "10.00", Date: today, Services: "Cuci"}},
		Location:       wib,
		Now:            at(10, 5),
		DefaultWashers: 5,
		DefaultDryers:  5,
	})
	assert.True(t, decimal.NewFromInt(10).Equal(res.Availability.Utilization), res.Availability.Utilization.String())

	empty := Summarize(nil)
	assert.True(t, empty.Utilization.IsZero())
	assert.Equal(t, "0/0", empty.Washers)
}

func TestNewPool_DefaultsOnlyWhenInventoryEmpty(t *testing.T) {
	p := NewPool(nil, 5, 5)
	assert.Len(t, p.Washers, 5)
	assert.Len(t, p.Dryers, 5)

	p = NewPool([]Machine{{Number: 3, Type: Washer}, {Number: 1, Type: Washer}}, 5, 5)
	require.Len(t, p.Washers, 2)
	assert.Equal(t, 1, p.Washers[0].Number)
	assert.Equal(t, OperAvailable, p.Washers[0].Operability)
	assert.Empty(t, p.Dryers)
}
