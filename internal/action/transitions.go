package action

import (
	"sort"

	"anchorcore/pkg/domain"
)

// Transition is one row of the action state machine.
type Transition struct {
	Action   string          `json:"action"`
	Protocol domain.Protocol `json:"protocol"`
	// Kind is "*" when the row applies to every kind.
	Kind domain.Kind   `json:"kind"`
	From domain.Status `json:"from"`
	To   domain.Status `json:"to"`
	// UntilReceived marks rows that only apply before the inbound transfer
	// is recorded.
	UntilReceived bool `json:"until_received,omitempty"`
}

// TransitionTable enumerates every source and target status pair of the
// registered actions, in registration order.
func TransitionTable() []Transition {
	var rows []Transition
	for _, h := range Handlers(Deps{}) {
		if t, ok := h.(interface{ transitions() []Transition }); ok {
			rows = append(rows, t.transitions()...)
		}
	}
	return rows
}

func (h *handler) transitions() []Transition {
	protocols := make([]domain.Protocol, 0, len(h.sources))
	for p := range h.sources {
		protocols = append(protocols, p)
	}
	sort.Slice(protocols, func(i, j int) bool { return protocols[i] < protocols[j] })

	var rows []Transition
	for _, p := range protocols {
		kinds := make([]domain.Kind, 0, len(h.sources[p]))
		for k := range h.sources[p] {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, k := range kinds {
			for _, s := range h.sources[p][k] {
				rows = append(rows, Transition{
					Action:        h.name,
					Protocol:      p,
					Kind:          k,
					From:          s.status,
					To:            h.target,
					UntilReceived: s.untilReceived,
				})
			}
		}
	}
	return rows
}
