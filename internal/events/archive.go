package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"anchorcore/internal/blob/core"
)

const archiveTimeLayout = "20060102T150405.000000000Z"

// Archive writes every event as a JSON object to a blob store, keyed by
// protocol and transaction so a transaction's history lists in order.
type Archive struct {
	store  core.Store
	prefix string
}

var _ Publisher = (*Archive)(nil)

// NewArchive returns an archive writing below prefix ("events" when empty).
func NewArchive(store core.Store, prefix string) *Archive {
	if prefix == "" {
		prefix = "events"
	}
	return &Archive{store: store, prefix: prefix}
}

func (a *Archive) dir(protocol, id string) string {
	return path.Join(a.prefix, protocol, id) + "/"
}

// Publish implements Publisher.
func (a *Archive) Publish(ctx context.Context, evt Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", evt.ID, err)
	}
	key := a.dir(string(evt.Protocol), evt.TransactionID) + evt.OccurredAt.UTC().Format(archiveTimeLayout) + "-" + evt.ID + ".json"
	_, err = a.store.Put(ctx, key, bytes.NewReader(raw), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"type": evt.Type, "action": evt.Action},
	})
	if err != nil {
		return fmt.Errorf("archive event %s: %w", evt.ID, err)
	}
	return nil
}

// History reads back the archived events of one transaction, oldest first.
func (a *Archive) History(ctx context.Context, protocol, id string) ([]Event, error) {
	infos, err := a.store.List(ctx, a.dir(protocol, id))
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(infos))
	for _, info := range infos {
		evt, err := a.read(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, nil
}

func (a *Archive) read(ctx context.Context, key string) (Event, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return Event{}, err
	}
	defer rc.Close()
	var evt Event
	if err := json.NewDecoder(rc).Decode(&evt); err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return evt, nil
}
