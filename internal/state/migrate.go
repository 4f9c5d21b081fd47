package state

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Migration upgrades the data of one envelope version to the next.
//
// Migrations[n] receives version n data and returns version n+1 data. Versions without a migration pass through.
type Migration func(data json.RawMessage) (json.RawMessage, error)

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// parseEnvelope treats anything that is not a {"version","data"} object as version 0 data.
func parseEnvelope(raw []byte) envelope {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil && len(fields) == 2 {
		version, hasVersion := fields["version"]
		data, hasData := fields["data"]
		var v int
		if hasVersion && hasData && json.Unmarshal(version, &v) == nil {
			return envelope{Version: v, Data: data}
		}
	}
	return envelope{Version: 0, Data: bytes.TrimSpace(raw)}
}

func migrate(env envelope, target int, migrations map[int]Migration) (json.RawMessage, error) {
	if env.Version > target {
		return nil, fmt.Errorf("stored version %d is newer than supported version %d", env.Version, target)
	}

	data := env.Data
	for v := env.Version; v < target; v++ {
		m, ok := migrations[v]
		if !ok {
			continue
		}
		next, err := m(data)
		if err != nil {
			return nil, fmt.Errorf("migration from version %d failed: %w", v, err)
		}
		data = next
	}
	return data, nil
}
