package core

import (
	"encoding/json"
	"time"
)

// Snapshot is a stored analysis result for one user and period. Payload is
// the JSON the HTTP API would have returned for the same request.
type Snapshot struct {
	ID        int64
	UserID    int64
	Period    string
	Policy    string
	Payload   json.RawMessage
	CreatedAt time.Time
}
