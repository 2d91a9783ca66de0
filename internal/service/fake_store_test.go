package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"lpr-service/internal/domain/anpr"
	"lpr-service/internal/repository"
)

// memStore is an in-memory AccessStore, RegistryStore and OperatorStore.
type memStore struct {
	nextID    int64
	accesses  map[int64]anpr.Access
	owners    map[int64]anpr.Owner
	vehicles  map[int64]anpr.Vehicle
	alerts    map[int64]anpr.Alert
	operators map[string]anpr.Operator

	failAlerts bool
}

func newMemStore() *memStore {
	return &memStore{
		accesses:  map[int64]anpr.Access{},
		owners:    map[int64]anpr.Owner{},
		vehicles:  map[int64]anpr.Vehicle{},
		alerts:    map[int64]anpr.Alert{},
		operators: map[string]anpr.Operator{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func inRange(t time.Time, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (m *memStore) CreateAccess(_ context.Context, a *anpr.Access) error {
	a.ID = m.id()
	m.accesses[a.ID] = *a
	return nil
}

func (m *memStore) GetAccess(_ context.Context, id int64) (*anpr.Access, error) {
	a, ok := m.accesses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (m *memStore) ListAccesses(_ context.Context, f anpr.AccessFilter) ([]anpr.Access, int64, error) {
	var out []anpr.Access
	for _, a := range m.accesses {
		if f.Plate != "" && !strings.Contains(a.Plate, f.Plate) {
			continue
		}
		if f.Category != "" && a.Category != f.Category {
			continue
		}
		if f.From != nil && a.DetectedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && a.DetectedAt.After(*f.To) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	total := int64(len(out))
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memStore) UpdateAccess(_ context.Context, id int64, u anpr.AccessUpdate) error {
	a, ok := m.accesses[id]
	if !ok {
		return repository.ErrNotFound
	}
	if u.Plate != nil {
		a.Plate = *u.Plate
	}
	if u.Category != nil {
		a.Category = anpr.Category(*u.Category)
	}
	if u.Confidence != nil {
		a.Confidence = *u.Confidence
	}
	m.accesses[id] = a
	return nil
}

func (m *memStore) DeleteAccess(_ context.Context, id int64) error {
	if _, ok := m.accesses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.accesses, id)
	return nil
}

func (m *memStore) deleteWhere(match func(anpr.Access) bool) int64 {
	var n int64
	for id, a := range m.accesses {
		if match(a) {
			delete(m.accesses, id)
			n++
		}
	}
	return n
}

func (m *memStore) DeleteAccessesByPlate(_ context.Context, plate string) (int64, error) {
	return m.deleteWhere(func(a anpr.Access) bool { return a.Plate == plate }), nil
}

func (m *memStore) DeleteAccessesBetween(_ context.Context, from, to time.Time) (int64, error) {
	return m.deleteWhere(func(a anpr.Access) bool { return inRange(a.DetectedAt, from, to) }), nil
}

func (m *memStore) DeleteAccessesBefore(_ context.Context, before time.Time) (int64, error) {
	return m.deleteWhere(func(a anpr.Access) bool { return a.DetectedAt.Before(before) }), nil
}

func (m *memStore) CountAccesses(_ context.Context, from, to time.Time) (int64, error) {
	var n int64
	for _, a := range m.accesses {
		if inRange(a.DetectedAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) DistinctPlates(_ context.Context, from, to time.Time) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, a := range m.accesses {
		if inRange(a.DetectedAt, from, to) && !seen[a.Plate] {
			seen[a.Plate] = true
			out = append(out, a.Plate)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) CountAccessesBy(_ context.Context, column string, from, to time.Time) (map[string]int64, error) {
	out := map[string]int64{}
	for _, a := range m.accesses {
		if !inRange(a.DetectedAt, from, to) {
			continue
		}
		if column == "source" {
			out[a.Source]++
		} else {
			out[string(a.Category)]++
		}
	}
	return out, nil
}

func (m *memStore) PlateSightings(_ context.Context, from, to time.Time) ([]anpr.PlateSighting, error) {
	byPlate := map[string]*anpr.PlateSighting{}
	for _, a := range m.accesses {
		if !inRange(a.DetectedAt, from, to) {
			continue
		}
		s, ok := byPlate[a.Plate]
		if !ok {
			s = &anpr.PlateSighting{Plate: a.Plate}
			byPlate[a.Plate] = s
		}
		s.Count++
		if a.DetectedAt.After(s.LastSeen) {
			s.LastSeen = a.DetectedAt
			s.Category = a.Category
			s.Confidence = a.Confidence
		}
	}
	var out []anpr.PlateSighting
	for _, s := range byPlate {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plate < out[j].Plate })
	return out, nil
}

func (m *memStore) CreateOwner(_ context.Context, o *anpr.Owner) error {
	o.ID = m.id()
	m.owners[o.ID] = *o
	return nil
}

func (m *memStore) GetOwner(_ context.Context, id int64) (*anpr.Owner, error) {
	o, ok := m.owners[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (m *memStore) ListOwners(_ context.Context, limit, offset int) ([]anpr.Owner, error) {
	var out []anpr.Owner
	for _, o := range m.owners {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateOwner(_ context.Context, o *anpr.Owner) error {
	if _, ok := m.owners[o.ID]; !ok {
		return repository.ErrNotFound
	}
	m.owners[o.ID] = *o
	return nil
}

func (m *memStore) DeleteOwner(_ context.Context, id int64) error {
	if _, ok := m.owners[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.owners, id)
	return nil
}

func (m *memStore) CreateVehicle(_ context.Context, v *anpr.Vehicle) error {
	for _, existing := range m.vehicles {
		if existing.Plate == v.Plate {
			return repository.ErrDuplicate
		}
	}
	v.ID = m.id()
	m.vehicles[v.ID] = *v
	return nil
}

func (m *memStore) record(v anpr.Vehicle) *anpr.VehicleRecord {
	rec := &anpr.VehicleRecord{Vehicle: v}
	if v.OwnerID != nil {
		if o, ok := m.owners[*v.OwnerID]; ok {
			rec.Owner = &o
		}
	}
	return rec
}

func (m *memStore) GetVehicle(_ context.Context, id int64) (*anpr.VehicleRecord, error) {
	v, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.record(v), nil
}

func (m *memStore) FindVehicleByPlate(_ context.Context, plate string) (*anpr.VehicleRecord, error) {
	for _, v := range m.vehicles {
		if v.Plate == plate {
			return m.record(v), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) ListVehicles(_ context.Context, ownerID *int64, limit, offset int) ([]anpr.VehicleRecord, error) {
	var out []anpr.VehicleRecord
	for _, v := range m.vehicles {
		if ownerID != nil && (v.OwnerID == nil || *v.OwnerID != *ownerID) {
			continue
		}
		out = append(out, *m.record(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateVehicle(_ context.Context, v *anpr.Vehicle) error {
	if _, ok := m.vehicles[v.ID]; !ok {
		return repository.ErrNotFound
	}
	m.vehicles[v.ID] = *v
	return nil
}

func (m *memStore) DeleteVehicle(_ context.Context, id int64) error {
	if _, ok := m.vehicles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.vehicles, id)
	return nil
}

func (m *memStore) FlagVehicle(ctx context.Context, plate, reason string) (*anpr.Alert, error) {
	for id, v := range m.vehicles {
		if v.Plate != plate {
			continue
		}
		v.Flagged = true
		v.FlagReason = reason
		m.vehicles[id] = v
		vid := v.ID
		alert := &anpr.Alert{VehicleID: &vid, Plate: plate, Kind: anpr.AlertFlaggedVehicle, Message: reason}
		if err := m.CreateAlert(ctx, alert); err != nil {
			return nil, err
		}
		return alert, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) CreateAlert(_ context.Context, a *anpr.Alert) error {
	if m.failAlerts {
		return context.DeadlineExceeded
	}
	a.ID = m.id()
	m.alerts[a.ID] = *a
	return nil
}

func (m *memStore) ListAlerts(_ context.Context, onlyOpen bool, limit int) ([]anpr.Alert, error) {
	var out []anpr.Alert
	for _, a := range m.alerts {
		if onlyOpen && a.Resolved {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ResolveAlert(_ context.Context, id int64) error {
	a, ok := m.alerts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Resolved = true
	m.alerts[id] = a
	return nil
}

func (m *memStore) CreateOperator(_ context.Context, op *anpr.Operator) error {
	if _, ok := m.operators[op.Username]; ok {
		return repository.ErrDuplicate
	}
	op.ID = m.id()
	m.operators[op.Username] = *op
	return nil
}

func (m *memStore) FindOperatorByUsername(_ context.Context, username string) (*anpr.Operator, error) {
	op, ok := m.operators[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &op, nil
}
