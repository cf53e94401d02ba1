package amqp

import (
	"encoding/json"
	"time"

	"github.com/marcosilvestroni/summarize-commits/internal/ports"
)

// RoutingSnapshotUpdated is the routing key of SnapshotUpdated events.
const RoutingSnapshotUpdated = "snapshot.updated"

// RefreshRequest asks a worker to re-aggregate the CSV input.
type RefreshRequest struct {
	RequestedBy string    `json:"requested_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRefreshRequest creates a refresh request stamped with the current time
func NewRefreshRequest(requestedBy string) *RefreshRequest {
	return &RefreshRequest{
		RequestedBy: requestedBy,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshRequestFromJSON creates a message from JSON bytes
func RefreshRequestFromJSON(data []byte) (*RefreshRequest, error) {
	var msg RefreshRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SnapshotUpdated announces that a new aggregate has been stored.
type SnapshotUpdated struct {
	RunID       string    `json:"run_id"`
	Days        int       `json:"days"`
	Total       int       `json:"total"`
	FilesRead   int       `json:"files_read"`
	FilesFailed int       `json:"files_failed"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewSnapshotUpdated builds the event for a finished run
func NewSnapshotUpdated(res ports.RunResult) *SnapshotUpdated {
	ts := res.FinishedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return &SnapshotUpdated{
		RunID:       res.RunID,
		Days:        res.Days,
		Total:       res.Total,
		FilesRead:   res.FilesRead,
		FilesFailed: res.FilesFailed,
		Timestamp:   ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotUpdated) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotUpdatedFromJSON creates a message from JSON bytes
func SnapshotUpdatedFromJSON(data []byte) (*SnapshotUpdated, error) {
	var msg SnapshotUpdated
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
