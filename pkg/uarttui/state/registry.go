/*
Copyright 2018-2024 Craig Johnston <cjimti@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package state

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/txn2/uartdbg/pkg/uarttui/events"
)

type panel struct {
	id      events.PanelID
	name    string
	text    strings.Builder
	created time.Time
	updated time.Time
}

// Registry holds the live panels. It belongs to the presentation loop
// and is not safe for concurrent use; other goroutines read the
// published Snapshot instead.
type Registry struct {
	panels map[events.PanelID]*panel
	order  []events.PanelID

	// AllowClose controls whether close events remove panels
	AllowClose bool

	linkLost   bool
	linkErr    string
	linkLostAt time.Time
	applied    uint64
	ignored    uint64
	snapshot   atomic.Pointer[Snapshot]
}

func NewRegistry(allowClose bool) *Registry {
	r := &Registry{
		panels:     make(map[events.PanelID]*panel),
		AllowClose: allowClose,
	}
	r.snapshot.Store(&Snapshot{})
	return r
}

// Apply updates the registry from one event. Append and close events
// for unknown ids are ignored. It reports whether anything changed.
func (r *Registry) Apply(e events.Event) bool {
	changed := r.apply(e)
	if changed {
		r.applied++
	} else {
		r.ignored++
	}
	return changed
}

func (r *Registry) apply(e events.Event) bool {
	switch e.Type {
	case events.PanelCreate:
		if _, ok := r.panels[e.ID]; ok {
			return false
		}
		r.panels[e.ID] = &panel{id: e.ID, name: e.Name, created: e.Timestamp, updated: e.Timestamp}
		r.order = append(r.order, e.ID)
		return true

	case events.PanelAppend:
		p, ok := r.panels[e.ID]
		if !ok {
			return false
		}
		p.text.WriteString(e.Text)
		p.updated = e.Timestamp
		return true

	case events.PanelClose:
		if !r.AllowClose {
			return false
		}
		if _, ok := r.panels[e.ID]; !ok {
			return false
		}
		delete(r.panels, e.ID)
		for i, id := range r.order {
			if id == e.ID {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
		return true

	case events.LinkLost:
		r.linkLost = true
		r.linkErr = ""
		if e.Err != nil {
			r.linkErr = e.Err.Error()
		}
		r.linkLostAt = e.Timestamp
		return true

	case events.LinkUp:
		if !r.linkLost {
			return false
		}
		r.linkLost = false
		r.linkErr = ""
		return true
	}
	return false
}

// Len is the number of live panels
func (r *Registry) Len() int {
	return len(r.order)
}

// Get returns a copy of one panel
func (r *Registry) Get(id events.PanelID) (PanelSnapshot, bool) {
	p, ok := r.panels[id]
	if !ok {
		return PanelSnapshot{}, false
	}
	return p.snapshot(), true
}

// Panels returns copies of all panels in creation order
func (r *Registry) Panels() []PanelSnapshot {
	out := make([]PanelSnapshot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.panels[id].snapshot())
	}
	return out
}

// Publish makes the current state visible to Snapshot readers
func (r *Registry) Publish() *Snapshot {
	s := &Snapshot{
		Panels:     r.Panels(),
		LinkLost:   r.linkLost,
		LinkError:  r.linkErr,
		LinkLostAt: r.linkLostAt,
		Applied:    r.applied,
		Ignored:    r.ignored,
		Published:  time.Now(),
	}
	r.snapshot.Store(s)
	return s
}

// Snapshot returns the last published state. Safe from any goroutine.
func (r *Registry) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

func (p *panel) snapshot() PanelSnapshot {
	return PanelSnapshot{
		ID:      p.id,
		Name:    p.name,
		Text:    p.text.String(),
		Created: p.created,
		Updated: p.updated,
	}
}
