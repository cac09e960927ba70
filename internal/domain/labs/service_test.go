package labs

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/carelab/carelab/internal/domain/errs"
	"github.com/carelab/carelab/internal/domain/identity"
	"github.com/carelab/carelab/internal/platform/audit"
	"github.com/carelab/carelab/internal/platform/auth"
)

type mockOrderRepo struct {
	orders map[int64]*LabOrder
	nextID int64
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[int64]*LabOrder), nextID: 1}
}

func (m *mockOrderRepo) Create(_ context.Context, o *LabOrder) error {
	if o.ID == 0 {
		o.ID = m.nextID
		m.nextID++
	} else if _, ok := m.orders[o.ID]; ok {
		return errs.ErrConflict
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id int64) (*LabOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *LabOrder) error {
	if _, ok := m.orders[o.ID]; !ok {
		return errs.ErrNotFound
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.orders[id]; !ok {
		return errs.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *mockOrderRepo) listWhere(keep func(*LabOrder) bool, limit, offset int) ([]*LabOrder, int, error) {
	var all []*LabOrder
	for _, o := range m.orders {
		if keep(o) {
			cp := *o
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context, limit, offset int) ([]*LabOrder, int, error) {
	return m.listWhere(func(*LabOrder) bool { return true }, limit, offset)
}

func (m *mockOrderRepo) ListByTechnician(_ context.Context, tech string, limit, offset int) ([]*LabOrder, int, error) {
	return m.listWhere(func(o *LabOrder) bool { return o.Technician == tech }, limit, offset)
}

func (m *mockOrderRepo) ListByVisit(_ context.Context, visitID int64, limit, offset int) ([]*LabOrder, int, error) {
	return m.listWhere(func(o *LabOrder) bool { return o.VisitID == visitID }, limit, offset)
}

func (m *mockOrderRepo) ListByPatient(_ context.Context, patient string, limit, offset int) ([]*LabOrder, int, error) {
	return m.listWhere(func(o *LabOrder) bool { return o.Patient == patient }, limit, offset)
}

type mockUserRepo struct {
	users map[string]*identity.User
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*identity.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByUsernameAndRole(_ context.Context, username, role string) (*identity.User, error) {
	u, ok := m.users[username]
	if !ok || u.Role != role {
		return nil, errs.ErrNotFound
	}
	return u, nil
}

type mockVisitRepo struct {
	visits map[int64]*identity.Visit
}

func (m *mockVisitRepo) GetByID(_ context.Context, id int64) (*identity.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return v, nil
}

type captureSink struct {
	events []audit.Event
}

func (s *captureSink) Record(_ context.Context, e audit.Event) {
	s.events = append(s.events, e)
}

func (s *captureSink) last(t *testing.T) audit.Event {
	t.Helper()
	if len(s.events) == 0 {
		t.Fatal("no audit events recorded")
	}
	return s.events[len(s.events)-1]
}

var (
	patient    = auth.Principal{Username: "jdoe", Role: auth.RolePatient}
	otherPat   = auth.Principal{Username: "psmith", Role: auth.RolePatient}
	hcp        = auth.Principal{Username: "dr_house", Role: auth.RoleHCP}
	optometric = auth.Principal{Username: "od_jones", Role: auth.RoleOD}
	tech       = auth.Principal{Username: "labguy", Role: auth.RoleLabTech}
	otherTech  = auth.Principal{Username: "labgal", Role: auth.RoleLabTech}
)

func fixture(t *testing.T) (*Service, *mockOrderRepo, *captureSink) {
	t.Helper()
	orders := newMockOrderRepo()
	users := &mockUserRepo{users: map[string]*identity.User{
		"jdoe":     {Username: "jdoe", Role: auth.RolePatient},
		"psmith":   {Username: "psmith", Role: auth.RolePatient},
		"dr_house": {Username: "dr_house", Role: auth.RoleHCP},
		"labguy":   {Username: "labguy", Role: auth.RoleLabTech},
		"labgal":   {Username: "labgal", Role: auth.RoleLabTech},
	}}
	visits := &mockVisitRepo{visits: map[int64]*identity.Visit{
		1: {ID: 1, Patient: "jdoe"},
		2: {ID: 2, Patient: "psmith"},
	}}
	sink := &captureSink{}
	return NewService(orders, users, visits, sink), orders, sink
}

func validInput() CreateOrderInput {
	return CreateOrderInput{
		Kind:       TestFastingBlood,
		Priority:   PriorityNormal,
		Comments:   "routine screening",
		Patient:    "jdoe",
		Technician: "labguy",
		VisitID:    1,
	}
}

func TestCreateOrder(t *testing.T) {
	svc, _, sink := fixture(t)
	o, err := svc.CreateOrder(context.Background(), hcp, validInput())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.Status != StatusAssigned {
		t.Errorf("status = %s, want ASSIGNED", o.Status)
	}
	if o.Diagnosis != DiagnosisNonApplicable {
		t.Errorf("diagnosis = %s, want NONAPPLICABLE", o.Diagnosis)
	}
	e := sink.last(t)
	if e.Action != "lab_order.create" || e.Actor != "dr_house" {
		t.Errorf("audit event = %+v", e)
	}
}

func TestCreateOrder_WithImmediateResult(t *testing.T) {
	svc, _, _ := fixture(t)
	in := validInput()
	result := 130
	in.Result = &result
	o, err := svc.CreateOrder(context.Background(), tech, in)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.Diagnosis != DiagnosisDiabetes {
		t.Errorf("diagnosis = %s, want DIABETES", o.Diagnosis)
	}
}

func TestCreateOrder_PatientDenied(t *testing.T) {
	svc, _, sink := fixture(t)
	_, err := svc.CreateOrder(context.Background(), patient, validInput())
	if !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("got %v, want access denied", err)
	}
	if len(sink.events) != 0 {
		t.Error("audit event recorded for a failed operation")
	}
}

func TestCreateOrder_UnknownReferences(t *testing.T) {
	svc, _, _ := fixture(t)
	ctx := context.Background()

	in := validInput()
	in.Patient = "nobody"
	if _, err := svc.CreateOrder(ctx, hcp, in); !errs.IsValidation(err) {
		t.Errorf("unknown patient: got %v, want validation error", err)
	}

	in = validInput()
	in.Technician = "dr_house" // wrong role
	if _, err := svc.CreateOrder(ctx, hcp, in); !errs.IsValidation(err) {
		t.Errorf("non-tech technician: got %v, want validation error", err)
	}

	in = validInput()
	in.VisitID = 99
	if _, err := svc.CreateOrder(ctx, hcp, in); !errs.IsValidation(err) {
		t.Errorf("unknown visit: got %v, want validation error", err)
	}

	in = validInput()
	in.VisitID = 2 // psmith's visit, jdoe's order
	if _, err := svc.CreateOrder(ctx, hcp, in); !errs.IsValidation(err) {
		t.Errorf("foreign visit: got %v, want validation error", err)
	}
}

func TestCreateOrder_ExplicitIDConflict(t *testing.T) {
	svc, _, _ := fixture(t)
	ctx := context.Background()
	in := validInput()
	in.ID = 7
	if _, err := svc.CreateOrder(ctx, hcp, in); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateOrder(ctx, hcp, in); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("second create: got %v, want conflict", err)
	}
}

func TestRecordResult_AndAdvance(t *testing.T) {
	svc, orders, sink := fixture(t)
	ctx := context.Background()
	o, err := svc.CreateOrder(ctx, hcp, validInput())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	done := StatusCompleted
	got, err := svc.RecordResult(ctx, tech, o.ID, 105, &done)
	if err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if got.Status != StatusCompleted || got.Diagnosis != DiagnosisPrediabetes {
		t.Errorf("order = status %s diagnosis %s", got.Status, got.Diagnosis)
	}
	if e := sink.last(t); e.Action != "lab_order.result" {
		t.Errorf("audit action = %s", e.Action)
	}

	stored, _ := orders.GetByID(ctx, o.ID)
	if stored.Result == nil || *stored.Result != 105 {
		t.Error("result not persisted")
	}
}

func TestRecordResult_AllOrNothing(t *testing.T) {
	svc, orders, sink := fixture(t)
	ctx := context.Background()
	o, _ := svc.CreateOrder(ctx, hcp, validInput())
	sink.events = nil

	// Valid result paired with an invalid transition must leave the stored
	// order untouched.
	back := StatusAssigned
	if _, err := svc.RecordResult(ctx, tech, o.ID, 105, &back); !errs.IsTransition(err) {
		t.Fatalf("got %v, want transition error", err)
	}
	stored, _ := orders.GetByID(ctx, o.ID)
	if stored.Result != nil {
		t.Error("result persisted despite failed transition")
	}
	if len(sink.events) != 0 {
		t.Error("audit event recorded for a failed operation")
	}
}

func TestRecordResult_WrongTechnician(t *testing.T) {
	svc, _, _ := fixture(t)
	ctx := context.Background()
	o, _ := svc.CreateOrder(ctx, hcp, validInput())
	if _, err := svc.RecordResult(ctx, otherTech, o.ID, 105, nil); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("got %v, want access denied", err)
	}
	if _, err := svc.RecordResult(ctx, hcp, o.ID, 105, nil); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("hcp recording result: got %v, want access denied", err)
	}
}

func TestConfirmOrder(t *testing.T) {
	svc, _, sink := fixture(t)
	ctx := context.Background()
	o, _ := svc.CreateOrder(ctx, hcp, validInput())

	// No result yet.
	if _, err := svc.ConfirmOrder(ctx, hcp, o.ID); !errs.IsTransition(err) {
		t.Fatalf("confirm without result: got %v, want transition error", err)
	}

	done := StatusCompleted
	if _, err := svc.RecordResult(ctx, tech, o.ID, 105, &done); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	got, err := svc.ConfirmOrder(ctx, hcp, o.ID)
	if err != nil {
		t.Fatalf("ConfirmOrder: %v", err)
	}
	if !got.HCPConfirmed {
		t.Error("HCPConfirmed not set")
	}
	if e := sink.last(t); e.Action != "lab_order.confirm" {
		t.Errorf("audit action = %s", e.Action)
	}

	// Second confirm is rejected.
	if _, err := svc.ConfirmOrder(ctx, hcp, o.ID); !errs.IsTransition(err) {
		t.Fatalf("re-confirm: got %v, want transition error", err)
	}

	// Only attending clinicians confirm.
	if _, err := svc.ConfirmOrder(ctx, tech, o.ID); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("tech confirm: got %v, want access denied", err)
	}
	if _, err := svc.ConfirmOrder(ctx, optometric, o.ID); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("od confirm: got %v, want access denied", err)
	}
}

func TestDeleteOrder(t *testing.T) {
	svc, orders, _ := fixture(t)
	ctx := context.Background()
	o, _ := svc.CreateOrder(ctx, hcp, validInput())

	if err := svc.DeleteOrder(ctx, tech, o.ID); !errors.Is(err, errs.ErrAccessDenied) {
		t.Fatalf("tech delete: got %v, want access denied", err)
	}
	if err := svc.DeleteOrder(ctx, hcp, o.ID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if _, err := orders.GetByID(ctx, o.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Error("order still present after delete")
	}
	if err := svc.DeleteOrder(ctx, hcp, o.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("double delete: got %v, want not found", err)
	}
}

func TestDeleteOrder_OnlyAssigned(t *testing.T) {
	svc, _, _ := fixture(t)
	ctx := context.Background()
	o, _ := svc.CreateOrder(ctx, hcp, validInput())
	if _, err := svc.AdvanceStatus(ctx, tech, o.ID, StatusInProgress); err != nil {
		t.Fatalf("AdvanceStatus: %v", err)
	}
	if err := svc.DeleteOrder(ctx, hcp, o.ID); !errs.IsTransition(err) {
		t.Fatalf("got %v, want transition error", err)
	}
}

func TestQueryOrders_Scoping(t *testing.T) {
	svc, _, _ := fixture(t)
	ctx := context.Background()

	mk := func(pat, tch string, visitID int64) {
		t.Helper()
		in := validInput()
		in.Patient = pat
		in.Technician = tch
		in.VisitID = visitID
		if _, err := svc.CreateOrder(ctx, hcp, in); err != nil {
			t.Fatalf("CreateOrder(%s): %v", pat, err)
		}
	}
	mk("jdoe", "labguy", 1)
	mk("jdoe", "labgal", 1)
	mk("psmith", "labguy", 2)

	// Clinical viewers see everything.
	if items, total, err := svc.QueryOrders(ctx, optometric, OrderFilter{}, 20, 0); err != nil || total != 3 || len(items) != 3 {
		t.Errorf("viewer: items=%d total=%d err=%v", len(items), total, err)
	}

	// A tech sees only their own assignments.
	if _, total, err := svc.QueryOrders(ctx, tech, OrderFilter{}, 20, 0); err != nil || total != 2 {
		t.Errorf("tech: total=%d err=%v", total, err)
	}
	if _, _, err := svc.QueryOrders(ctx, tech, OrderFilter{Technician: "labgal"}, 20, 0); !errors.Is(err, errs.ErrAccessDenied) {
		t.Errorf("tech filtering foreign tech: got %v, want access denied", err)
	}

	// A patient sees only their own orders.
	if _, total, err := svc.QueryOrders(ctx, patient, OrderFilter{}, 20, 0); err != nil || total != 2 {
		t.Errorf("patient: total=%d err=%v", total, err)
	}
	if _, _, err := svc.QueryOrders(ctx, patient, OrderFilter{VisitID: 2}, 20, 0); !errors.Is(err, errs.ErrAccessDenied) {
		t.Errorf("patient on foreign visit: got %v, want access denied", err)
	}
	if _, total, err := svc.QueryOrders(ctx, patient, OrderFilter{VisitID: 1}, 20, 0); err != nil || total != 2 {
		t.Errorf("patient on own visit: total=%d err=%v", total, err)
	}

	// Viewer filters are verified against the directory first.
	if _, _, err := svc.QueryOrders(ctx, hcp, OrderFilter{Technician: "nobody"}, 20, 0); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("viewer filtering unknown tech: got %v, want not found", err)
	}
	if _, total, err := svc.QueryOrders(ctx, hcp, OrderFilter{Technician: "labguy"}, 20, 0); err != nil || total != 2 {
		t.Errorf("viewer filtering by tech: total=%d err=%v", total, err)
	}
}

func TestGetOrder_Scoping(t *testing.T) {
	svc, _, _ := fixture(t)
	ctx := context.Background()
	o, _ := svc.CreateOrder(ctx, hcp, validInput())

	if _, err := svc.GetOrder(ctx, patient, o.ID); err != nil {
		t.Errorf("owner patient: %v", err)
	}
	if _, err := svc.GetOrder(ctx, otherPat, o.ID); !errors.Is(err, errs.ErrAccessDenied) {
		t.Errorf("foreign patient: got %v, want access denied", err)
	}
	if _, err := svc.GetOrder(ctx, tech, o.ID); err != nil {
		t.Errorf("assigned tech: %v", err)
	}
	if _, err := svc.GetOrder(ctx, otherTech, o.ID); !errors.Is(err, errs.ErrAccessDenied) {
		t.Errorf("foreign tech: got %v, want access denied", err)
	}
	if _, err := svc.GetOrder(ctx, hcp, o.ID); err != nil {
		t.Errorf("viewer: %v", err)
	}
}
