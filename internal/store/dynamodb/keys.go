package dynamodb

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// PK/SK prefix constants.
const (
	pkControl   = "DR#CONTROL"
	pkHistory   = "DR#HISTORY"
	pkSystem    = "DR#SYSTEM"
	prefixExec  = "EXEC#"
	prefixEvent = "EVENT#"

	skActive  = "ACTIVE"
	skPosture = "POSTURE"
	skTruth   = "TRUTH"
)

// execPK partitions events and records by execution. Events emitted before
// an execution exists (duplicate triggers, health signals, debounce trips)
// carry no execution id and land in a shared system partition so they stay
// queryable.
func execPK(executionID string) string {
	if executionID == "" {
		return pkSystem
	}
	return prefixExec + executionID
}

func historySK(startedAt time.Time, executionID string) string {
	return prefixExec + startedAt.UTC().Format(time.RFC3339Nano) + "#" + executionID
}

func eventSK(ts time.Time) string {
	millis := ts.UnixMilli()
	nonce := make([]byte, 4)
	_, _ = rand.Read(nonce)
	return fmt.Sprintf("%s%013d#%s", prefixEvent, millis, hex.EncodeToString(nonce))
}
