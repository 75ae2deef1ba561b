package specials

import (
	"strings"

	"tokenflow/internal/model"
)

// Group is an event with a registered handler and the event emitted right before it.
type Group struct {
	Index    int
	Event    model.LogEvent
	Previous *model.LogEvent
}

// Handler reconstructs transfers and balances for contracts whose events
// predate the token standards.
type Handler interface {
	Transfers(group Group) ([]model.TransferRecord, error)
	Balances(group Group) ([]model.BalanceDelta, error)
}

// Key selects a handler by contract and event name.
type Key struct {
	Contract  string
	EventName string
}

func newKey(contract, eventName string) Key {
	return Key{Contract: strings.ToLower(contract), EventName: eventName}
}

// Registry maps (contract, event name) to handlers.
type Registry struct {
	handlers map[Key]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Key]Handler)}
}

// DefaultRegistry returns a registry with every built-in handler.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterCryptoPunks(r)
	return r
}

// Register binds handler to the named events of contract.
func (r *Registry) Register(contract string, handler Handler, eventNames ...string) {
	for _, name := range eventNames {
		r.handlers[newKey(contract, name)] = handler
	}
}

// Lookup returns the handler bound to contract and eventName.
func (r *Registry) Lookup(contract, eventName string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	handler, ok := r.handlers[newKey(contract, eventName)]
	return handler, ok
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.handlers)
}

// Correlate pairs every handled event with its predecessor in emission order.
func (r *Registry) Correlate(events []model.LogEvent) []Group {
	if r.Len() == 0 {
		return nil
	}
	var groups []Group
	for i := range events {
		if _, ok := r.Lookup(events[i].ContractAddress, events[i].EventName); !ok {
			continue
		}
		group := Group{Index: i, Event: events[i]}
		if i > 0 {
			group.Previous = &events[i-1]
		}
		groups = append(groups, group)
	}
	return groups
}
