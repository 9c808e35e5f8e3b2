package dynamodb

import (
	"strings"
	"testing"
	"time"
)

func TestExecPK(t *testing.T) {
	got := execPK("01JABC")
	if got != "EXEC#01JABC" {
		t.Errorf("execPK = %q, want %q", got, "EXEC#01JABC")
	}
}

func TestExecPK_NoExecutionID_SystemPartition(t *testing.T) {
	got := execPK("")
	if got != "DR#SYSTEM" {
		t.Errorf("execPK(\"\") = %q, want %q", got, "DR#SYSTEM")
	}
}

func TestHistorySK_SortsByTime(t *testing.T) {
	early := historySK(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), "a")
	late := historySK(time.Date(2026, 6, 7, 8, 9, 10, 0, time.UTC), "b")
	if !(early < late) {
		t.Errorf("history SKs not time-ordered: %q >= %q", early, late)
	}
}

func TestEventSK_PrefixAndUniqueness(t *testing.T) {
	ts := time.Now()
	a := eventSK(ts)
	b := eventSK(ts)
	if !strings.HasPrefix(a, "EVENT#") {
		t.Errorf("eventSK missing prefix: %q", a)
	}
	if a == b {
		t.Errorf("eventSK collision for same timestamp: %q", a)
	}
}
