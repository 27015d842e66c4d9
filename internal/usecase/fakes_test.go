package usecase

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabfadel/gab-health/internal/delivery/http/middleware"
	"github.com/gabfadel/gab-health/internal/domain/entity"
	"github.com/gabfadel/gab-health/internal/service"
	"github.com/gabfadel/gab-health/pkg/jwt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func asUser(user *entity.User) context.Context {
	return middleware.WithIdentity(context.Background(), middleware.Identity{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		IsStaff: user.IsStaff,
	})
}

func newUser(username string, role entity.Role) *entity.User {
	return &entity.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[uuid.UUID]*entity.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
		}
		if existing.Email == user.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	user.ID = uuid.New()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) FindByRole(_ context.Context, role entity.Role) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []entity.User
	for _, u := range r.users {
		if u.Role == role {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*entity.Appointment
	// beforeWrite runs ahead of a conditional update to simulate a
	// concurrent writer
	beforeWrite func(a *entity.Appointment)
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: map[uuid.UUID]*entity.Appointment{}}
}

func (r *fakeAppointmentRepo) add(a *entity.Appointment) *entity.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	stored := *a
	r.appointments[a.ID] = &stored
	return a
}

func (r *fakeAppointmentRepo) Create(_ context.Context, a *entity.Appointment) error {
	r.add(a)
	return nil
}

func (r *fakeAppointmentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, nil
	}
	clone := *a
	return &clone, nil
}

func (r *fakeAppointmentRepo) list(match func(*entity.Appointment) bool) []entity.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Appointment
	for _, a := range r.appointments {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (r *fakeAppointmentRepo) FindByDoctorID(_ context.Context, doctorID uuid.UUID) ([]entity.Appointment, error) {
	return r.list(func(a *entity.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (r *fakeAppointmentRepo) FindByPatientID(_ context.Context, patientID uuid.UUID) ([]entity.Appointment, error) {
	return r.list(func(a *entity.Appointment) bool { return a.PatientID == patientID }), nil
}

func (r *fakeAppointmentRepo) transition(id uuid.UUID, set func(*entity.Appointment)) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return 0, nil
	}
	if r.beforeWrite != nil {
		r.beforeWrite(a)
	}
	if a.IsConfirmed || a.IsCanceled {
		return 0, nil
	}
	set(a)
	return 1, nil
}

func (r *fakeAppointmentRepo) Confirm(_ context.Context, id uuid.UUID) (int64, error) {
	return r.transition(id, func(a *entity.Appointment) { a.IsConfirmed = true })
}

func (r *fakeAppointmentRepo) Cancel(_ context.Context, id uuid.UUID) (int64, error) {
	return r.transition(id, func(a *entity.Appointment) { a.IsCanceled = true })
}

func (r *fakeAppointmentRepo) CancelExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.appointments {
		if a.Date.Before(now) && !a.IsConfirmed && !a.IsCanceled {
			a.IsCanceled = true
			n++
		}
	}
	return n, nil
}

type fakeMedicalRecordRepo struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*entity.MedicalRecord
	updateErr error
}

func newFakeMedicalRecordRepo() *fakeMedicalRecordRepo {
	return &fakeMedicalRecordRepo{records: map[uuid.UUID]*entity.MedicalRecord{}}
}

func (r *fakeMedicalRecordRepo) Create(_ context.Context, record *entity.MedicalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now()
	stored := *record
	stored.Medications = append([]entity.Medication(nil), record.Medications...)
	r.records[record.ID] = &stored
	return nil
}

func (r *fakeMedicalRecordRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	clone.Medications = append([]entity.Medication(nil), rec.Medications...)
	return &clone, nil
}

func (r *fakeMedicalRecordRepo) FindAll(_ context.Context, filter entity.MedicalRecordFilter) ([]entity.MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.MedicalRecord
	for _, rec := range r.records {
		if filter.PatientID != nil && rec.PatientID != *filter.PatientID {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update applies all fields or none, like the transactional repository.
func (r *fakeMedicalRecordRepo) Update(_ context.Context, record *entity.MedicalRecord, medications *[]entity.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.records[record.ID]
	if !ok {
		return nil
	}
	stored.PatientID = record.PatientID
	stored.Description = record.Description
	if medications != nil {
		stored.Medications = append([]entity.Medication(nil), (*medications)...)
	}
	return nil
}

func (r *fakeMedicalRecordRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

type auditEntry struct {
	action   string
	entityID string
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *recordingAudit) record(action, entityID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, entityID: entityID})
	return nil
}

func (a *recordingAudit) LogCreate(_ context.Context, _ *uuid.UUID, action, _ string, entityID string, _ interface{}) error {
	return a.record(action, entityID)
}

func (a *recordingAudit) LogUpdate(_ context.Context, _ *uuid.UUID, action, _ string, entityID string, _, _ interface{}) error {
	return a.record(action, entityID)
}

func (a *recordingAudit) LogDelete(_ context.Context, _ *uuid.UUID, action, _ string, entityID string, _ interface{}) error {
	return a.record(action, entityID)
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.action
	}
	return out
}

type memoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{tokens: map[string]bool{}}
}

func (s *memoryTokenStore) Allow(_ context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[service.TokenKey(tokenType, userID, tokenID)] = true
	return nil
}

func (s *memoryTokenStore) IsAllowed(_ context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[service.TokenKey(tokenType, userID, tokenID)], nil
}

func (s *memoryTokenStore) Revoke(_ context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, service.TokenKey(tokenType, userID, tokenID))
	return nil
}

func (s *memoryTokenStore) RevokeAll(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.tokens {
		for _, tt := range []jwt.TokenType{jwt.AccessToken, jwt.RefreshToken} {
			if strings.HasPrefix(key, service.TokenKey(tt, userID, "")) {
				delete(s.tokens, key)
			}
		}
	}
	return nil
}

// nameEnricher resolves names to bare catalog entries, reusing entries it has
// already handed out
type nameEnricher struct {
	mu      sync.Mutex
	catalog map[string]entity.Medication
	calls   [][]string
}

func newNameEnricher() *nameEnricher {
	return &nameEnricher{catalog: map[string]entity.Medication{}}
}

func (e *nameEnricher) Resolve(_ context.Context, names []string) ([]entity.Medication, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, append([]string(nil), names...))
	seen := map[string]bool{}
	var out []entity.Medication
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		m, ok := e.catalog[name]
		if !ok {
			m = entity.Medication{ID: uuid.New(), Name: name}
			e.catalog[name] = m
		}
		out = append(out, m)
	}
	return out, nil
}

type stubFetcher struct {
	fn func(ctx context.Context, query string) (*service.FetchResult, error)
}

func (s stubFetcher) Fetch(ctx context.Context, query string) (*service.FetchResult, error) {
	return s.fn(ctx, query)
}
