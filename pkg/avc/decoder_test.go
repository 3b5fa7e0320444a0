package avc

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"

	"github.com/jdeng/goavc/internal/cabac"
	"github.com/jdeng/goavc/internal/cabactest"
)

func TestNewSliceDecoderErrors(t *testing.T) {
	if _, err := NewSliceDecoder(nil, 0, Options{}); err == nil {
		t.Error("expected error for empty data")
	}
	if _, err := NewSliceDecoder([]byte{1, 2}, 0, Options{}); !errors.Is(err, ErrOutOfData) {
		t.Errorf("expected ErrOutOfData, got %v", err)
	}
	if _, err := NewSliceDecoder([]byte{1, 2, 3, 4}, 0, Options{CabacInitIDC: 5}); err == nil {
		t.Error("expected error for cabac_init_idc 5")
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusNotStarted, "NotStarted"},
		{StatusDecoding, "Decoding"},
		{StatusTerminated, "Terminated"},
		{StatusFailed, "Failed"},
	}
	for _, test := range tests {
		if got := test.status.String(); got != test.expected {
			t.Errorf("Status %d string mismatch: got %q, want %q", test.status, got, test.expected)
		}
	}
	if got := Status(99).String(); got != "Status(99)" {
		t.Errorf("Unexpected fallback status string: got %q", got)
	}
}

func TestSliceTypeNames(t *testing.T) {
	if st, err := ParseSliceType("9"); err != nil || st != SliceSI {
		t.Errorf("ParseSliceType(9) = %v, %v", st, err)
	}
	for _, name := range []string{"P", "B", "I", "SP", "SI"} {
		st, err := ParseSliceType(name)
		if err != nil {
			t.Fatalf("ParseSliceType(%q) returned error: %v", name, err)
		}
		if st.String() != name {
			t.Errorf("round trip of %q gave %q", name, st.String())
		}
	}
	if CatChromaAC.String() != "ChromaAC" {
		t.Errorf("unexpected block category name %q", CatChromaAC.String())
	}
}

func TestLowLevelOperations(t *testing.T) {
	const qp = 30
	table := cabac.NewContextTable(qp, nil)
	enc := cabactest.NewEncoder()
	ctx, _ := table.Index(105)
	enc.EncodeDecision(ctx, true)
	enc.EncodeBypass(true)
	enc.EncodeBypass(false)
	set, _ := table.Range(60, 4)
	enc.EncodeUnary(set, cabac.Incrementing(0, 3), 6, false, 0)
	set, _ = table.Range(64, 3)
	enc.EncodeUnary(set, cabac.Incrementing(0, 2), 2, true, 2)
	set, _ = table.Range(40, 7)
	enc.EncodeUEGk(set, cabac.Mvd(1), -77, true)
	enc.EncodeBypassBits(0x5a3, 12)
	enc.EncodeExpGolombBypass(300, 1)
	enc.EncodeTerminate(false)
	payload := enc.Payload()

	d, err := NewSliceDecoder(payload, 0, Options{SliceType: SliceP, QP: qp})
	if err != nil {
		t.Fatalf("NewSliceDecoder returned error: %v", err)
	}
	if d.Status() != StatusDecoding {
		t.Fatalf("expected StatusDecoding, got %v", d.Status())
	}
	if regs := d.Registers(); regs.Range != cabac.Half || regs.BitsLeft != 15 || regs.Offset != 3 {
		t.Errorf("unexpected initial registers %+v", regs)
	}
	if b, err := d.Decision(105); err != nil || !b {
		t.Fatalf("Decision = %v, %v", b, err)
	}
	if b, err := d.Bypass(); err != nil || !b {
		t.Fatalf("Bypass = %v, %v", b, err)
	}
	if b, err := d.Bypass(); err != nil || b {
		t.Fatalf("Bypass = %v, %v", b, err)
	}
	if v, err := d.Unary(60, 3); err != nil || v != 6 {
		t.Fatalf("Unary = %d, %v", v, err)
	}
	if v, err := d.UnaryTruncated(64, 2, 2); err != nil || v != 2 {
		t.Fatalf("UnaryTruncated = %d, %v", v, err)
	}
	if v, err := d.ExpGolombEscape(40, 1); err != nil || v != -77 {
		t.Fatalf("ExpGolombEscape = %d, %v", v, err)
	}
	if v, err := d.BypassBits(12); err != nil || v != 0x5a3 {
		t.Fatalf("BypassBits = 0x%x, %v", v, err)
	}
	if v, err := d.ExpGolombBypass(1); err != nil || v != 300 {
		t.Fatalf("ExpGolombBypass = %d, %v", v, err)
	}
	if b, err := d.Terminate(); err != nil || b {
		t.Fatalf("Terminate = %v, %v", b, err)
	}
	if b, err := d.Terminate(); err != nil || !b {
		t.Fatalf("final Terminate = %v, %v", b, err)
	}
	if d.Status() != StatusTerminated {
		t.Fatalf("expected StatusTerminated, got %v", d.Status())
	}
	if d.BitsConsumed() != uint32(enc.BitCount()) {
		t.Errorf("consumed %d bits, encoder wrote %d", d.BitsConsumed(), enc.BitCount())
	}
	if _, err := d.Decision(cabac.NumContexts); !errors.Is(err, ErrContextIndexOutOfRange) {
		t.Errorf("expected ErrContextIndexOutOfRange, got %v", err)
	}
	if _, err := d.Bypass(); !errors.Is(err, ErrTerminated) {
		t.Errorf("expected ErrTerminated, got %v", err)
	}
}

func TestInitTableAndTrace(t *testing.T) {
	src := "3 20 -15\n4 -3 70\n5 10 30\n"
	params, err := ParseInitTable(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseInitTable returned error: %v", err)
	}
	if _, err := ParseInitTable(strings.NewReader("3 1\n")); err == nil {
		t.Fatal("expected parse error")
	}

	table := cabac.NewContextTable(26, params.table)
	enc := cabactest.NewEncoder()
	ctx, _ := table.At(cabac.FamilyMbTypeI, 1)
	enc.EncodeDecision(ctx, false)
	payload := enc.Payload()

	var events []Event
	d, err := NewSliceDecoder(payload, 0, Options{
		SliceType: SliceI,
		QP:        26,
		IntraInit: params,
		Trace:     func(ev Event) { events = append(events, ev) },
	})
	if err != nil {
		t.Fatalf("NewSliceDecoder returned error: %v", err)
	}
	mbType, err := d.MbType(1, 0)
	if err != nil || mbType != 0 {
		t.Fatalf("MbType = %d, %v", mbType, err)
	}
	if d.IsPCM(mbType) || !d.IsPCM(25) {
		t.Error("IsPCM mismatch for I slices")
	}
	if end, err := d.EndOfSlice(); err != nil || !end || !d.Ended() {
		t.Fatalf("EndOfSlice = %v, %v", end, err)
	}
	if len(events) != 2 || events[0].Element != "mb_type" || events[1].Element != "end_of_slice_flag" {
		t.Fatalf("unexpected events %+v", events)
	}
}

// encodeMvdSlice builds a P slice payload holding vals as horizontal mvd.
func encodeMvdSlice(qp int, vals []int) []byte {
	table := cabac.NewContextTable(qp, nil)
	enc := cabactest.NewEncoder()
	for _, v := range vals {
		enc.EncodeUEGk(table.Set(cabac.FamilyMvdX), cabac.Mvd(0), int32(v), true)
	}
	return enc.Payload()
}

func TestDecodeSlices(t *testing.T) {
	const numSlices = 12
	jobs := make([]SliceJob, numSlices)
	want := make([][]int, numSlices)
	for i := range jobs {
		for j := 0; j < 20; j++ {
			want[i] = append(want[i], (i*31+j*17)%200-100)
		}
		qp := 20 + i
		jobs[i] = SliceJob{Data: encodeMvdSlice(qp, want[i]), Options: Options{SliceType: SliceP, QP: qp}}
	}

	got := make([][]int, numSlices)
	var running, peak int32
	err := DecodeSlices(context.Background(), jobs, 3, func(ctx context.Context, i int, d *SliceDecoder) error {
		n := atomic.AddInt32(&running, 1)
		defer atomic.AddInt32(&running, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		for range want[i] {
			v, err := d.Mvd(0, 0)
			if err != nil {
				return err
			}
			got[i] = append(got[i], v)
		}
		end, err := d.EndOfSlice()
		if err != nil {
			return err
		}
		if !end {
			return errors.New("slice did not end")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("DecodeSlices returned error: %v", err)
	}
	if peak > 3 {
		t.Errorf("expected at most 3 concurrent slices, saw %d", peak)
	}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("slice %d value %d: got %d, want %d", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestDecodeSlicesReportsFirstError(t *testing.T) {
	jobs := []SliceJob{
		{Data: encodeMvdSlice(26, []int{1, 2, 3}), Options: Options{QP: 26}},
		{Data: []byte{0x01, 0x02}, Options: Options{QP: 26}},
	}
	err := DecodeSlices(context.Background(), jobs, 0, func(ctx context.Context, i int, d *SliceDecoder) error {
		_, err := d.Mvd(0, 0)
		return err
	})
	if !errors.Is(err, ErrOutOfData) {
		t.Fatalf("expected ErrOutOfData, got %v", err)
	}
	if !strings.Contains(err.Error(), "slice 1") {
		t.Errorf("expected the failing slice index in %q", err.Error())
	}
	if err := DecodeSlices(context.Background(), jobs, 1, nil); err == nil {
		t.Error("expected error for nil function")
	}
}
