package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	id "lifedrop/pkg/domain"
)

// GenesisHash is the previous-hash marker carried by the first block.
const GenesisHash = "0"

// Ledger event labels. The values are part of the persisted chain and must
// not change; "Donor Accepted Request" is written for declines too (the
// payload carries the actual decision).
const (
	EventRequestInitialized = "Request Initialized"
	EventDonorResponded     = "Donor Accepted Request"
	EventBagDispatched      = "Blood Bag Dispatched"
	EventProcessCompleted   = "Blood Received & Process Completed"
)

// LedgerBlock is one immutable, hash-linked record of a lifecycle event.
// Blocks are write-once: no update or delete operation exists. The chain is
// global across all requests; RequestID only scopes the filtered read view.
type LedgerBlock struct {
	Index        int64           `json:"index"`
	RequestID    id.RequestID    `json:"request_id"`
	Event        string          `json:"event"`
	Data         json.RawMessage `json:"data"`
	PreviousHash string          `json:"previous_hash"`
	CurrentHash  string          `json:"current_hash"`
	Timestamp    time.Time       `json:"timestamp"`
}

// hashTimestamp is the canonical encoding of a block timestamp inside the
// hash input. UTC RFC3339Nano survives store round-trips unchanged.
func hashTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ComputeBlockHash hashes a block's fields in the fixed order
// index, previous hash, timestamp, data, concatenated as strings.
func ComputeBlockHash(index int64, previousHash string, ts time.Time, data []byte) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(index, 10)))
	h.Write([]byte(previousHash))
	h.Write([]byte(hashTimestamp(ts)))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes the block hash from its own fields and compares it to
// the stored value. Linkage to the predecessor is checked by the ledger
// service, which sees both blocks.
func (b LedgerBlock) Verify() bool {
	return b.CurrentHash == ComputeBlockHash(b.Index, b.PreviousHash, b.Timestamp, b.Data)
}
