package donation

import (
	"errors"
	"math"
	"math/big"
	"math/rand"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/lober-org/welovedogs/core/events"
)

type memoryStore struct {
	data   map[string][]byte
	writes int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.data[string(key)] = encoded
	m.writes++
	return nil
}

func (m *memoryStore) KVGet(key []byte, out interface{}) (bool, error) {
	encoded, ok := m.data[string(key)]
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(encoded, out); err != nil {
		return false, err
	}
	return true, nil
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

var usd = addr(0xaa)

func allowAll() Authorizer {
	return AuthorizerFunc(func([20]byte) bool { return true })
}

func newTestEngine(t *testing.T) (*Engine, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	engine := NewEngine(store)
	engine.SetAuthorizer(allowAll())
	ts := uint64(1700000000)
	engine.SetNowFunc(func() uint64 {
		ts++
		return ts
	})
	if err := engine.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return engine, store
}

func mustDonate(t *testing.T, e *Engine, donor, recipient [20]byte, amount int64) uint64 {
	t.Helper()
	id, err := e.Donate(donor, recipient, big.NewInt(amount), usd, nil)
	if err != nil {
		t.Fatalf("donate: %v", err)
	}
	return id
}

func TestDonationScenario(t *testing.T) {
	engine, _ := newTestEngine(t)
	a, b, c, d := addr(1), addr(2), addr(3), addr(4)

	if id := mustDonate(t, engine, a, b, 100); id != 0 {
		t.Fatalf("expected id 0, got %d", id)
	}
	if id := mustDonate(t, engine, a, c, 50); id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}
	if id := mustDonate(t, engine, d, b, 25); id != 2 {
		t.Fatalf("expected id 2, got %d", id)
	}

	count, err := engine.DonationCount()
	if err != nil || count != 3 {
		t.Fatalf("expected count 3, got %d err=%v", count, err)
	}
	if total, _ := engine.TotalDonated(b); total.Cmp(big.NewInt(125)) != 0 {
		t.Fatalf("expected total(B)=125, got %s", total)
	}
	if total, _ := engine.TotalDonated(c); total.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected total(C)=50, got %s", total)
	}

	byA, err := engine.GetDonorDonations(a, 10)
	if err != nil {
		t.Fatalf("donor donations: %v", err)
	}
	if len(byA) != 2 || byA[0].ID != 1 || byA[1].ID != 0 {
		t.Fatalf("unexpected donor scan: %+v", byA)
	}
	if byA[0].Recipient != c || byA[0].Amount.Int64() != 50 || byA[1].Recipient != b || byA[1].Amount.Int64() != 100 {
		t.Fatalf("unexpected donor records: %+v %+v", byA[0], byA[1])
	}

	toB, err := engine.GetRecipientDonations(b, 1)
	if err != nil {
		t.Fatalf("recipient donations: %v", err)
	}
	if len(toB) != 1 || toB[0].ID != 2 || toB[0].Donor != d || toB[0].Amount.Int64() != 25 {
		t.Fatalf("unexpected recipient scan: %+v", toB)
	}
}

func TestDonateRoundTripsRecords(t *testing.T) {
	engine, _ := newTestEngine(t)
	memo := "for the shelter"
	empty := ""
	inputs := []struct {
		amount *big.Int
		memo   *string
	}{
		{big.NewInt(0), nil},
		{big.NewInt(-42), &memo},
		{new(big.Int).Set(MaxAmount), &empty},
		{new(big.Int).Set(MinAmount), nil},
	}
	for i, in := range inputs {
		id, err := engine.Donate(addr(1), addr(2), in.amount, usd, in.memo)
		if err != nil {
			t.Fatalf("donate %d: %v", i, err)
		}
		if id != uint64(i) {
			t.Fatalf("expected id %d, got %d", i, id)
		}
	}
	count, _ := engine.DonationCount()
	if count != uint64(len(inputs)) {
		t.Fatalf("expected count %d, got %d", len(inputs), count)
	}
	for i, in := range inputs {
		rec, ok, err := engine.GetDonation(uint64(i))
		if err != nil || !ok {
			t.Fatalf("get %d: ok=%v err=%v", i, ok, err)
		}
		if rec.Amount.Cmp(in.amount) != 0 || rec.Donor != addr(1) || rec.Recipient != addr(2) || rec.Asset != usd {
			t.Fatalf("record %d mismatch: %+v", i, rec)
		}
		if (rec.Memo == nil) != (in.memo == nil) {
			t.Fatalf("record %d memo presence mismatch", i)
		}
		if rec.Memo != nil && *rec.Memo != *in.memo {
			t.Fatalf("record %d memo mismatch: %q", i, *rec.Memo)
		}
		if rec.Timestamp == 0 {
			t.Fatalf("record %d missing timestamp", i)
		}
	}
}

func TestDonateCopiesInputs(t *testing.T) {
	engine, _ := newTestEngine(t)
	amount := big.NewInt(10)
	memo := "hello"
	if _, err := engine.Donate(addr(1), addr(2), amount, usd, &memo); err != nil {
		t.Fatalf("donate: %v", err)
	}
	amount.SetInt64(99)
	memo = "changed"
	rec, _, _ := engine.GetDonation(0)
	if rec.Amount.Int64() != 10 || *rec.Memo != "hello" {
		t.Fatalf("stored record aliased caller inputs: %+v", rec)
	}
}

func TestGetDonationAbsent(t *testing.T) {
	engine, _ := newTestEngine(t)
	mustDonate(t, engine, addr(1), addr(2), 1)
	rec, ok, err := engine.GetDonation(1)
	if err != nil {
		t.Fatalf("absent donation must not error: %v", err)
	}
	if ok || rec != nil {
		t.Fatalf("expected absent result, got %+v", rec)
	}
}

func TestReadsDefaultWithoutInitialize(t *testing.T) {
	engine := NewEngine(newMemoryStore())
	count, err := engine.DonationCount()
	if err != nil || count != 0 {
		t.Fatalf("expected zero count, got %d err=%v", count, err)
	}
	total, err := engine.TotalDonated(addr(9))
	if err != nil || total.Sign() != 0 {
		t.Fatalf("expected zero total, got %v err=%v", total, err)
	}
	list, err := engine.GetDonorDonations(addr(9), 5)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v err=%v", list, err)
	}

	engine.SetAuthorizer(allowAll())
	id, err := engine.Donate(addr(1), addr(2), big.NewInt(5), usd, nil)
	if err != nil || id != 0 {
		t.Fatalf("donate without initialize: id=%d err=%v", id, err)
	}
}

func TestTotalsMatchRecordSums(t *testing.T) {
	engine, _ := newTestEngine(t)
	rng := rand.New(rand.NewSource(7))
	recipients := [][20]byte{addr(10), addr(11), addr(12)}
	expected := map[[20]byte]*big.Int{}
	for i := 0; i < 60; i++ {
		recipient := recipients[rng.Intn(len(recipients))]
		amount := big.NewInt(rng.Int63n(2000) - 500)
		if _, err := engine.Donate(addr(byte(rng.Intn(4)+1)), recipient, amount, usd, nil); err != nil {
			t.Fatalf("donate: %v", err)
		}
		if expected[recipient] == nil {
			expected[recipient] = big.NewInt(0)
		}
		expected[recipient].Add(expected[recipient], amount)

		for _, r := range recipients {
			got, err := engine.TotalDonated(r)
			if err != nil {
				t.Fatalf("total: %v", err)
			}
			want := expected[r]
			if want == nil {
				want = big.NewInt(0)
			}
			if got.Cmp(want) != 0 {
				t.Fatalf("after %d donations total mismatch for %x: got %s want %s", i+1, r, got, want)
			}
		}
	}

	sums := map[[20]byte]*big.Int{}
	count, _ := engine.DonationCount()
	for id := uint64(0); id < count; id++ {
		rec, ok, err := engine.GetDonation(id)
		if err != nil || !ok {
			t.Fatalf("record %d missing", id)
		}
		if sums[rec.Recipient] == nil {
			sums[rec.Recipient] = big.NewInt(0)
		}
		sums[rec.Recipient].Add(sums[rec.Recipient], rec.Amount)
	}
	for r, sum := range sums {
		total, _ := engine.TotalDonated(r)
		if total.Cmp(sum) != 0 {
			t.Fatalf("total for %x does not equal record sum", r)
		}
	}
}

func TestScanProperties(t *testing.T) {
	target := addr(1)
	cases := map[string]struct {
		party func(*DonationRecord) [20]byte
		scan  func(*Engine, [20]byte, uint32) ([]*DonationRecord, error)
	}{
		"donor": {
			party: func(rec *DonationRecord) [20]byte { return rec.Donor },
			scan:  (*Engine).GetDonorDonations,
		},
		"recipient": {
			party: func(rec *DonationRecord) [20]byte { return rec.Recipient },
			scan:  (*Engine).GetRecipientDonations,
		},
	}
	for name, tc := range cases {
		engine, _ := newTestEngine(t)
		rng := rand.New(rand.NewSource(42))
		var matches []uint64
		for i := 0; i < 40; i++ {
			donor := addr(byte(rng.Intn(3) + 1))
			recipient := addr(byte(rng.Intn(3) + 1))
			id := mustDonate(t, engine, donor, recipient, int64(i))
			rec, _, _ := engine.GetDonation(id)
			if tc.party(rec) == target {
				matches = append(matches, id)
			}
		}
		// newest first
		for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
			matches[i], matches[j] = matches[j], matches[i]
		}

		for _, limit := range []uint32{0, 1, 3, uint32(len(matches)), 1000, math.MaxUint32} {
			got, err := tc.scan(engine, target, limit)
			if err != nil {
				t.Fatalf("%s scan: %v", name, err)
			}
			want := len(matches)
			if uint64(limit) < uint64(want) {
				want = int(limit)
			}
			if len(got) != want {
				t.Fatalf("%s limit %d: expected %d records, got %d", name, limit, want, len(got))
			}
			for i, rec := range got {
				if tc.party(rec) != target {
					t.Fatalf("%s limit %d: record %d does not match", name, limit, rec.ID)
				}
				if rec.ID != matches[i] {
					t.Fatalf("%s limit %d: position %d expected id %d, got %d", name, limit, i, matches[i], rec.ID)
				}
				if i > 0 && rec.ID >= got[i-1].ID {
					t.Fatalf("%s limit %d: ids not strictly decreasing", name, limit)
				}
			}
		}
	}
}

func TestReadsAreIdempotent(t *testing.T) {
	engine, store := newTestEngine(t)
	mustDonate(t, engine, addr(1), addr(2), 5)
	mustDonate(t, engine, addr(2), addr(1), 7)
	writes := store.writes

	first, _ := engine.GetRecipientDonations(addr(1), 10)
	second, _ := engine.GetRecipientDonations(addr(1), 10)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("recipient scan not idempotent")
	}
	r1, _, _ := engine.GetDonation(0)
	r2, _, _ := engine.GetDonation(0)
	if !reflect.DeepEqual(r1, r2) {
		t.Fatalf("get donation not idempotent")
	}
	t1, _ := engine.TotalDonated(addr(2))
	t2, _ := engine.TotalDonated(addr(2))
	if t1.Cmp(t2) != 0 {
		t.Fatalf("total not idempotent")
	}
	if store.writes != writes {
		t.Fatalf("reads wrote to the store")
	}
}

func TestUnauthorizedDonorLeavesLedgerUnchanged(t *testing.T) {
	engine, store := newTestEngine(t)
	owner := addr(1)
	engine.SetAuthorizer(AuthorizerFunc(func(id [20]byte) bool { return id == owner }))
	mustDonate(t, engine, owner, addr(2), 10)
	writes := store.writes

	_, err := engine.Donate(addr(3), addr(2), big.NewInt(10), usd, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	count, _ := engine.DonationCount()
	if count != 1 {
		t.Fatalf("count changed after unauthorized donate: %d", count)
	}
	if store.writes != writes {
		t.Fatalf("unauthorized donate wrote to the store")
	}
}

func TestNilAuthorizerDenies(t *testing.T) {
	engine := NewEngine(newMemoryStore())
	if _, err := engine.Donate(addr(1), addr(2), big.NewInt(1), usd, nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAggregateOverflowRejected(t *testing.T) {
	engine, store := newTestEngine(t)
	recipient := addr(2)
	if _, err := engine.Donate(addr(1), recipient, new(big.Int).Set(MaxAmount), usd, nil); err != nil {
		t.Fatalf("donate max: %v", err)
	}
	writes := store.writes

	_, err := engine.Donate(addr(1), recipient, big.NewInt(1), usd, nil)
	if !errors.Is(err, ErrAggregateOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if store.writes != writes {
		t.Fatalf("overflowing donate wrote to the store")
	}
	if _, ok, _ := engine.GetDonation(1); ok {
		t.Fatalf("overflowing donation was recorded")
	}
	total, _ := engine.TotalDonated(recipient)
	if total.Cmp(MaxAmount) != 0 {
		t.Fatalf("total changed: %s", total)
	}

	_, err = engine.Donate(addr(1), addr(3), new(big.Int).Set(MinAmount), usd, nil)
	if err != nil {
		t.Fatalf("min amount to fresh recipient: %v", err)
	}
	if _, err := engine.Donate(addr(1), addr(3), big.NewInt(-1), usd, nil); !errors.Is(err, ErrAggregateOverflow) {
		t.Fatalf("expected negative overflow, got %v", err)
	}
}

func TestAmountRangeEnforced(t *testing.T) {
	engine, _ := newTestEngine(t)
	tooBig := new(big.Int).Add(MaxAmount, big.NewInt(1))
	if _, err := engine.Donate(addr(1), addr(2), tooBig, usd, nil); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if _, err := engine.Donate(addr(1), addr(2), nil, usd, nil); !errors.Is(err, ErrAmountRequired) {
		t.Fatalf("expected amount required, got %v", err)
	}
	if count, _ := engine.DonationCount(); count != 0 {
		t.Fatalf("rejected donations changed the count")
	}
}

func TestIdentifierSpaceExhausted(t *testing.T) {
	engine, store := newTestEngine(t)
	if err := store.KVPut(countKey, ^uint64(0)); err != nil {
		t.Fatalf("seed count: %v", err)
	}
	if _, err := engine.Donate(addr(1), addr(2), big.NewInt(1), usd, nil); !errors.Is(err, ErrIDSpaceExhausted) {
		t.Fatalf("expected exhausted id space, got %v", err)
	}
}

func TestReinitializeResetsCounterOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	mustDonate(t, engine, addr(1), addr(2), 100)
	mustDonate(t, engine, addr(1), addr(2), 50)

	if err := engine.Initialize(); err != nil {
		t.Fatalf("reinitialize: %v", err)
	}
	if count, _ := engine.DonationCount(); count != 0 {
		t.Fatalf("expected counter reset, got %d", count)
	}
	if _, ok, _ := engine.GetDonation(1); !ok {
		t.Fatalf("records must survive re-initialisation")
	}
	if total, _ := engine.TotalDonated(addr(2)); total.Int64() != 150 {
		t.Fatalf("totals must survive re-initialisation, got %s", total)
	}

	// The next donation reuses slot 0 while the total keeps accumulating.
	if id := mustDonate(t, engine, addr(3), addr(2), 1); id != 0 {
		t.Fatalf("expected slot 0, got %d", id)
	}
	if total, _ := engine.TotalDonated(addr(2)); total.Int64() != 151 {
		t.Fatalf("unexpected total %s", total)
	}
}

func TestStrictInitializeRefusesReset(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.SetStrictInitialize(true)
	if err := engine.Initialize(); err != nil {
		t.Fatalf("strict initialize on empty ledger: %v", err)
	}
	mustDonate(t, engine, addr(1), addr(2), 1)
	if err := engine.Initialize(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected already initialized, got %v", err)
	}
	if count, _ := engine.DonationCount(); count != 1 {
		t.Fatalf("strict initialize changed the count")
	}
}

func TestScanSkipsMissingSlots(t *testing.T) {
	engine, store := newTestEngine(t)
	for i := 0; i < 4; i++ {
		mustDonate(t, engine, addr(1), addr(2), int64(i))
	}
	delete(store.data, string(recordKey(2)))
	got, err := engine.GetDonorDonations(addr(1), 10)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 3 || got[0].ID != 3 || got[1].ID != 1 || got[2].ID != 0 {
		t.Fatalf("unexpected scan over hole: %+v", got)
	}
}

func TestDonateEmitsEvent(t *testing.T) {
	engine, _ := newTestEngine(t)
	buf := &events.Buffer{}
	engine.SetEmitter(buf)
	memo := "walk"
	if _, err := engine.Donate(addr(1), addr(2), big.NewInt(12), usd, &memo); err != nil {
		t.Fatalf("donate: %v", err)
	}
	if _, err := engine.Donate(addr(1), addr(2), nil, usd, nil); err == nil {
		t.Fatalf("expected failure")
	}
	evts := buf.Events()
	if len(evts) != 1 {
		t.Fatalf("expected one event, got %d", len(evts))
	}
	if evts[0].Type != events.TypeDonationRecorded || evts[0].Attributes["amount"] != "12" || evts[0].Attributes["memo"] != memo {
		t.Fatalf("unexpected event: %+v", evts[0])
	}
}

func TestNilEngineGuards(t *testing.T) {
	var engine *Engine
	if _, err := engine.DonationCount(); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if _, err := NewEngine(nil).DonationCount(); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}
