package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/database"
	"github.com/staffhub/shift-engine/internal/models"
)

// memoryStore is an in-memory ShiftStore and WorkerStore. A single mutex
// stands in for the row locks, so transactions never interleave.
type memoryStore struct {
	mu          sync.Mutex
	shifts      map[uuid.UUID]*models.Shift
	assignments map[uuid.UUID][]models.ShiftAssignment
	signatures  map[string][]byte
	agencies    map[uuid.UUID]bool
	workers     map[uuid.UUID]*models.WorkerProfile
	codes       int
	now         func() time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		shifts:      map[uuid.UUID]*models.Shift{},
		assignments: map[uuid.UUID][]models.ShiftAssignment{},
		signatures:  map[string][]byte{},
		agencies:    map[uuid.UUID]bool{},
		workers:     map[uuid.UUID]*models.WorkerProfile{},
		now:         time.Now,
	}
}

func (m *memoryStore) addShift(shift *models.Shift) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	copied := *shift
	m.shifts[shift.ID] = &copied
}

func (m *memoryStore) addAssignment(a models.ShiftAssignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.assignments[a.ShiftID] = append(m.assignments[a.ShiftID], a)
}

func (m *memoryStore) addWorker(w *models.WorkerProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[w.UserID] = w
	if w.AgencyID != nil {
		m.agencies[*w.AgencyID] = true
	}
}

func (m *memoryStore) shift(id uuid.UUID) *models.Shift {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[id]
	if !ok {
		return nil
	}
	copied := *s
	return &copied
}

func (m *memoryStore) assignmentsOf(id uuid.UUID) []models.ShiftAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ShiftAssignment(nil), m.assignments[id]...)
}

func (m *memoryStore) GetShift(_ context.Context, id uuid.UUID) (*models.Shift, error) {
	if s := m.shift(id); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("failed to get shift: %w", database.ErrNotFound)
}

func (m *memoryStore) ListAssignments(_ context.Context, shiftID uuid.UUID) ([]models.ShiftAssignment, error) {
	return m.assignmentsOf(shiftID), nil
}

func (m *memoryStore) CountShiftsCreatedSince(_ context.Context, agencyID uuid.UUID, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(agencyID, since), nil
}

func (m *memoryStore) countLocked(agencyID uuid.UUID, since time.Time) int {
	count := 0
	for _, s := range m.shifts {
		if s.AgencyID != nil && *s.AgencyID == agencyID && !s.CreatedAt.Before(since) {
			count++
		}
	}
	return count
}

func (m *memoryStore) ListUnassignedShifts(_ context.Context, fromDate time.Time, limit int) ([]models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Shift{}
	for id, s := range m.shifts {
		if s.Status != models.ShiftStatusAvailable || s.IsCompleted || s.AgencyID == nil ||
			s.Location() == nil || s.ShiftDate.Before(fromDate) || len(m.assignments[id]) > 0 {
			continue
		}
		out = append(out, *s)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) InShiftTx(_ context.Context, shiftID uuid.UUID, fn func(tx database.ShiftTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shifts[shiftID]
	if !ok {
		return fmt.Errorf("failed to lock shift: %w", database.ErrNotFound)
	}
	tx := &memoryShiftTx{
		shift:       func() *models.Shift { c := *s; return &c }(),
		assignments: append([]models.ShiftAssignment(nil), m.assignments[shiftID]...),
		signatures:  map[string][]byte{},
	}
	if err := fn(tx); err != nil {
		return err
	}

	if tx.deleted {
		delete(m.shifts, shiftID)
		delete(m.assignments, shiftID)
		return nil
	}
	m.shifts[shiftID] = tx.shift
	m.assignments[shiftID] = tx.assignments
	for ref, data := range tx.signatures {
		m.signatures[ref] = data
	}
	return nil
}

func (m *memoryStore) InAgencyTx(_ context.Context, agencyID uuid.UUID, fn func(tx database.AgencyTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.agencies[agencyID] {
		return fmt.Errorf("failed to lock agency: %w", database.ErrNotFound)
	}
	tx := &memoryAgencyTx{store: m, agencyID: agencyID}
	if err := fn(tx); err != nil {
		return err
	}
	for _, s := range tx.inserted {
		m.shifts[s.ID] = s
	}
	return nil
}

func (m *memoryStore) GetWorker(_ context.Context, userID uuid.UUID) (*models.WorkerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.workers[userID]; ok {
		copied := *w
		return &copied, nil
	}
	return nil, fmt.Errorf("failed to get worker: %w", database.ErrNotFound)
}

func (m *memoryStore) ListAgencyAdmins(_ context.Context, agencyID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []uuid.UUID{}
	for _, w := range m.workers {
		if w.AgencyID != nil && *w.AgencyID == agencyID && models.Role(w.Role).IsAgencyAdmin() && w.IsActive {
			ids = append(ids, w.UserID)
		}
	}
	return ids, nil
}

func (m *memoryStore) ListStaffCandidates(_ context.Context, agencyID uuid.UUID) ([]models.AgencyStaffCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AgencyStaffCandidate{}
	for _, w := range m.workers {
		if w.AgencyID == nil || *w.AgencyID != agencyID || w.Role != string(models.RoleAgencyStaff) || !w.IsActive {
			continue
		}
		count := 0
		for _, list := range m.assignments {
			for _, a := range list {
				if a.WorkerID == w.UserID {
					count++
				}
			}
		}
		out = append(out, models.AgencyStaffCandidate{WorkerProfile: *w, AssignmentCount: count})
	}
	return out, nil
}

type memoryShiftTx struct {
	shift       *models.Shift
	assignments []models.ShiftAssignment
	signatures  map[string][]byte
	deleted     bool
}

func (t *memoryShiftTx) Shift() *models.Shift { return t.shift }

func (t *memoryShiftTx) Assignments() ([]models.ShiftAssignment, error) {
	return append([]models.ShiftAssignment(nil), t.assignments...), nil
}

func (t *memoryShiftTx) InsertAssignment(a *models.ShiftAssignment) error {
	for _, existing := range t.assignments {
		if existing.WorkerID == a.WorkerID {
			return database.ErrDuplicateAssignment
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	t.assignments = append(t.assignments, *a)
	return nil
}

func (t *memoryShiftTx) DeleteAssignment(id uuid.UUID) error {
	for i, a := range t.assignments {
		if a.ID == id {
			t.assignments = append(t.assignments[:i], t.assignments[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

func (t *memoryShiftTx) CompleteAssignment(a *models.ShiftAssignment) error {
	for i := range t.assignments {
		if t.assignments[i].ID == a.ID {
			if t.assignments[i].CompletionTime != nil {
				return fmt.Errorf("assignment %s already completed or missing", a.ID)
			}
			t.assignments[i] = *a
			return nil
		}
	}
	return fmt.Errorf("assignment %s already completed or missing", a.ID)
}

func (t *memoryShiftTx) SaveSignature(ref, _ string, data []byte) error {
	t.signatures[ref] = data
	return nil
}

func (t *memoryShiftTx) UpdateShift(shift *models.Shift) error {
	copied := *shift
	copied.IsCompleted = t.shift.IsCompleted || shift.IsCompleted
	t.shift = &copied
	return nil
}

func (t *memoryShiftTx) DeleteShift() error {
	t.deleted = true
	return nil
}

type memoryAgencyTx struct {
	store    *memoryStore
	agencyID uuid.UUID
	inserted []*models.Shift
}

func (t *memoryAgencyTx) CountShiftsCreatedSince(since time.Time) (int, error) {
	return t.store.countLocked(t.agencyID, since), nil
}

func (t *memoryAgencyTx) InsertShift(shift *models.Shift) error {
	t.store.codes++
	shift.ID = uuid.New()
	shift.ShiftCode = fmt.Sprintf("SHIFT-%08X", t.store.codes)
	shift.CreatedAt = t.store.now()
	shift.UpdatedAt = shift.CreatedAt
	copied := *shift
	t.inserted = append(t.inserted, &copied)
	return nil
}

type sentNotification struct {
	UserID  uuid.UUID
	Subject string
}

// recordingSink remembers every notification it receives
type recordingSink struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (r *recordingSink) Notify(_ context.Context, userID uuid.UUID, subject, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{UserID: userID, Subject: subject})
	return r.err
}

func (r *recordingSink) all() []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentNotification(nil), r.sent...)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
