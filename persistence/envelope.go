package persistence

import (
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/blake2b"

	"github.com/edirooss/actorkit/gen"
)

// envelope is the on-disk shape of a persisted state: the serialized state
// plus a checksum and timestamp, so Restore can detect truncated writes and
// enforce MaxStateAge (spec.md §4.4 data model, "persisted state envelope").
type envelope struct {
	Version     int             `json:"version"`
	PersistedAt time.Time       `json:"persistedAt"`
	Checksum    []byte          `json:"checksum"`
	State       json.RawMessage `json:"state"`
}

const envelopeVersion = 1

func encodeEnvelope(state any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, gen.Annotatef(err, "marshal state")
	}
	sum := blake2b.Sum256(raw)
	env := envelope{
		Version:     envelopeVersion,
		PersistedAt: now,
		Checksum:    sum[:],
		State:       raw,
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, gen.Annotatef(err, "marshal envelope")
	}
	return out, nil
}

func decodeEnvelope(data []byte, out any) (persistedAt time.Time, err error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return time.Time{}, gen.Annotatef(err, "unmarshal envelope")
	}
	sum := blake2b.Sum256(env.State)
	if len(env.Checksum) != len(sum) || string(env.Checksum) != string(sum[:]) {
		return time.Time{}, gen.Annotatef(gen.ErrStateNotFound, "checksum mismatch")
	}
	if err := json.Unmarshal(env.State, out); err != nil {
		return time.Time{}, gen.Annotatef(err, "unmarshal state")
	}
	return env.PersistedAt, nil
}
