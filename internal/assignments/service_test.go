package assignments

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

// fakeLedgerRepo keeps custody rows in memory with the same ordering
// contract as the real repo.
type fakeLedgerRepo struct {
	mu              sync.Mutex
	rows            []models.Assignment
	insertErr       error
	closeErr        error
	legacyCloseErr  error
	legacyCloseHits int
}

func (f *fakeLedgerRepo) ListAll(ctx context.Context) ([]models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]models.Assignment(nil), f.rows...)
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].AssignedAt.After(out[i].AssignedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) Insert(ctx context.Context, a *models.Assignment) (*models.Assignment, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.New()
	f.rows = append(f.rows, *a)
	return a, nil
}

func (f *fakeLedgerRepo) Close(ctx context.Context, id uuid.UUID, returnedAt time.Time, returnedBy uuid.UUID, notes *string) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			at := returnedAt
			by := returnedBy
			f.rows[i].ReturnedAt = &at
			f.rows[i].ReturnedBy = &by
			f.rows[i].Notes = notes
		}
	}
	return nil
}

func (f *fakeLedgerRepo) CloseWithoutReturnedBy(ctx context.Context, id uuid.UUID, returnedAt time.Time, notes *string) error {
	f.legacyCloseHits++
	if f.legacyCloseErr != nil {
		return f.legacyCloseErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			at := returnedAt
			f.rows[i].ReturnedAt = &at
			f.rows[i].Notes = notes
		}
	}
	return nil
}

// fakeRegistry implements the registry surface the ledger drives.
type fakeRegistry struct {
	mu       sync.Mutex
	assets   map[uuid.UUID]models.Asset
	statuses []enums.AssetStatus
	loads    int
}

func newFakeRegistry(assets ...models.Asset) *fakeRegistry {
	byID := map[uuid.UUID]models.Asset{}
	for _, a := range assets {
		byID[a.ID] = a
	}
	return &fakeRegistry{assets: byID}
}

func (f *fakeRegistry) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return nil
}

func (f *fakeRegistry) AssetByID(id uuid.UUID) (models.Asset, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assets[id]
	return a, ok
}

func (f *fakeRegistry) SetStatus(ctx context.Context, id uuid.UUID, status enums.AssetStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.assets[id]
	a.Status = status
	f.assets[id] = a
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeUsers struct {
	rows map[uuid.UUID]models.User
}

func (f *fakeUsers) UserByID(id uuid.UUID) (models.User, bool) {
	if f.rows == nil {
		return models.User{}, false
	}
	u, ok := f.rows[id]
	return u, ok
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (f *fakeRecorder) Record(ctx context.Context, entry audit.Entry) {
	f.mu.Lock()
	f.entries = append(f.entries, entry)
	f.mu.Unlock()
}

type fakePublisher struct {
	mu     sync.Mutex
	events []enums.ResourceEventType
}

func (f *fakePublisher) Publish(ctx context.Context, eventType enums.ResourceEventType, resource enums.Resource, payload any) {
	f.mu.Lock()
	f.events = append(f.events, eventType)
	f.mu.Unlock()
}

type ledgerFixture struct {
	svc      Service
	repo     *fakeLedgerRepo
	registry *fakeRegistry
	recorder *fakeRecorder
	events   *fakePublisher
	asset    models.Asset
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	asset := models.Asset{ID: uuid.New(), Kind: enums.AssetKindEquipment, Name: "Drill #1", Status: enums.AssetStatusAvailable}
	repo := &fakeLedgerRepo{}
	registry := newFakeRegistry(asset)
	recorder := &fakeRecorder{}
	events := &fakePublisher{}

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Registry: registry,
		Users:    &fakeUsers{},
		Recorder: recorder,
		Events:   events,
		Logger:   logger.New(logger.Options{ServiceName: "ledger-test", Output: &bytes.Buffer{}}),
		Now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return &ledgerFixture{svc: svc, repo: repo, registry: registry, recorder: recorder, events: events, asset: asset}
}

func activeCount(rows []models.Assignment, assetID uuid.UUID) int {
	n := 0
	for _, a := range rows {
		if a.AssetID == assetID && a.Active() {
			n++
		}
	}
	return n
}

func TestAssignOpensCustodyAndSetsStatus(t *testing.T) {
	fx := newLedgerFixture(t)
	userA := uuid.New()
	actor := uuid.New()

	if err := fx.svc.Assign(context.Background(), fx.asset.ID, userA, actor); err != nil {
		t.Fatalf("assign: %v", err)
	}

	current, ok := fx.svc.CurrentAssignment(fx.asset.ID)
	if !ok || current.UserID != userA {
		t.Fatalf("expected active assignment for userA, got %+v ok=%v", current, ok)
	}
	if got, _ := fx.registry.AssetByID(fx.asset.ID); got.Status != enums.AssetStatusAssigned {
		t.Fatalf("asset status not assigned, got %s", got.Status)
	}
	if fx.recorder.entries[0].Action != enums.AuditActionAssigned {
		t.Fatalf("expected assigned audit action, got %s", fx.recorder.entries[0].Action)
	}
	if fx.registry.loads == 0 {
		t.Fatal("registry must reload after assign")
	}
}

func TestTransferClosesThenOpens(t *testing.T) {
	fx := newLedgerFixture(t)
	userA := uuid.New()
	userB := uuid.New()
	actor := uuid.New()
	ctx := context.Background()

	if err := fx.svc.Assign(ctx, fx.asset.ID, userA, actor); err != nil {
		t.Fatalf("assign A: %v", err)
	}
	if err := fx.svc.Assign(ctx, fx.asset.ID, userB, actor); err != nil {
		t.Fatalf("assign B: %v", err)
	}

	rows := fx.svc.Snapshot()
	if got := activeCount(rows, fx.asset.ID); got != 1 {
		t.Fatalf("expected exactly one active assignment, got %d", got)
	}

	var closed, open *models.Assignment
	for i := range rows {
		if rows[i].UserID == userA {
			closed = &rows[i]
		}
		if rows[i].UserID == userB {
			open = &rows[i]
		}
	}
	if closed == nil || closed.ReturnedAt == nil {
		t.Fatalf("userA custody must be closed: %+v", closed)
	}
	if open == nil || open.ReturnedAt != nil {
		t.Fatalf("userB custody must be open: %+v", open)
	}

	last := fx.recorder.entries[len(fx.recorder.entries)-1]
	if last.Action != enums.AuditActionTransferred {
		t.Fatalf("expected transferred audit action, got %s", last.Action)
	}
	if last.PreviousUserID == nil || *last.PreviousUserID != userA {
		t.Fatalf("transfer audit must reference the previous holder")
	}
	if got, _ := fx.registry.AssetByID(fx.asset.ID); got.Status != enums.AssetStatusAssigned {
		t.Fatalf("status must stay assigned through a transfer, got %s", got.Status)
	}
}

func TestReturnClosesCustodyAndFreesAsset(t *testing.T) {
	fx := newLedgerFixture(t)
	userA := uuid.New()
	actor := uuid.New()
	ctx := context.Background()

	if err := fx.svc.Assign(ctx, fx.asset.ID, userA, actor); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := fx.svc.Return(ctx, fx.asset.ID, actor); err != nil {
		t.Fatalf("return: %v", err)
	}

	if _, ok := fx.svc.CurrentAssignment(fx.asset.ID); ok {
		t.Fatal("no active assignment may remain after return")
	}
	if got, _ := fx.registry.AssetByID(fx.asset.ID); got.Status != enums.AssetStatusAvailable {
		t.Fatalf("asset must be available after return, got %s", got.Status)
	}

	last := fx.recorder.entries[len(fx.recorder.entries)-1]
	if last.Action != enums.AuditActionReturned {
		t.Fatalf("expected returned audit action, got %s", last.Action)
	}
	if last.UserID == nil || *last.UserID != userA || last.PreviousUserID == nil || *last.PreviousUserID != userA {
		t.Fatalf("returned audit must reference the outgoing holder twice: %+v", last)
	}
}

func TestReturnWithoutActiveAssignmentIsNoop(t *testing.T) {
	fx := newLedgerFixture(t)

	if err := fx.svc.Return(context.Background(), fx.asset.ID, uuid.New()); err != nil {
		t.Fatalf("return with no custody must be a no-op, got %v", err)
	}
	if len(fx.recorder.entries) != 0 {
		t.Fatal("no audit entry for a no-op return")
	}
	if len(fx.registry.statuses) != 0 {
		t.Fatal("no status change for a no-op return")
	}
}

func TestReturnFallsBackWhenReturnedByColumnMissing(t *testing.T) {
	fx := newLedgerFixture(t)
	userA := uuid.New()
	actor := uuid.New()
	ctx := context.Background()

	if err := fx.svc.Assign(ctx, fx.asset.ID, userA, actor); err != nil {
		t.Fatalf("assign: %v", err)
	}

	fx.repo.closeErr = errors.New(`ERROR: column "returned_by" of relation "assignments" does not exist (SQLSTATE 42703)`)
	if err := fx.svc.Return(ctx, fx.asset.ID, actor); err != nil {
		t.Fatalf("return must survive the missing column: %v", err)
	}
	if fx.repo.legacyCloseHits != 1 {
		t.Fatalf("expected one legacy close, got %d", fx.repo.legacyCloseHits)
	}

	// The closed row has no returned_by column value; the note fallback
	// must still identify the returner.
	var closed *models.Assignment
	for _, row := range fx.svc.Snapshot() {
		if row.UserID == userA {
			r := row
			closed = &r
		}
	}
	if closed == nil || closed.Notes == nil {
		t.Fatalf("closed row must carry the note payload: %+v", closed)
	}
	id, _, ok := ReturnedBy(*closed)
	if !ok || id != actor {
		t.Fatalf("note fallback must resolve the returner, got %v ok=%v", id, ok)
	}
}

func TestDrillLifecycleScenario(t *testing.T) {
	fx := newLedgerFixture(t)
	userA := uuid.New()
	userB := uuid.New()
	actor := uuid.New()
	ctx := context.Background()

	if got, _ := fx.registry.AssetByID(fx.asset.ID); got.Status != enums.AssetStatusAvailable {
		t.Fatalf("new asset must start available")
	}

	if err := fx.svc.Assign(ctx, fx.asset.ID, userA, actor); err != nil {
		t.Fatalf("assign A: %v", err)
	}
	if got, _ := fx.registry.AssetByID(fx.asset.ID); got.Status != enums.AssetStatusAssigned {
		t.Fatalf("expected assigned after first assign")
	}

	if err := fx.svc.Assign(ctx, fx.asset.ID, userB, actor); err != nil {
		t.Fatalf("assign B: %v", err)
	}
	rows := fx.svc.Snapshot()
	if activeCount(rows, fx.asset.ID) != 1 {
		t.Fatal("transfer must leave exactly one open assignment")
	}

	if err := fx.svc.Return(ctx, fx.asset.ID, userB); err != nil {
		t.Fatalf("return: %v", err)
	}
	if got, _ := fx.registry.AssetByID(fx.asset.ID); got.Status != enums.AssetStatusAvailable {
		t.Fatalf("expected available after return")
	}
	for _, row := range fx.svc.Snapshot() {
		if row.Active() {
			t.Fatalf("no custody may remain open: %+v", row)
		}
	}
}

func TestAssignUnknownAssetRejected(t *testing.T) {
	fx := newLedgerFixture(t)

	err := fx.svc.Assign(context.Background(), uuid.New(), uuid.New(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAssignInsertFailureAbortsBeforeStatusChange(t *testing.T) {
	fx := newLedgerFixture(t)
	fx.repo.insertErr = errors.New("connection reset")

	err := fx.svc.Assign(context.Background(), fx.asset.ID, uuid.New(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(fx.registry.statuses) != 0 {
		t.Fatal("status must not change when the insert failed")
	}
	if len(fx.recorder.entries) != 0 {
		t.Fatal("no audit entry when the insert failed")
	}
}

func TestMostRecentAssignmentIncludesClosedRows(t *testing.T) {
	fx := newLedgerFixture(t)
	userA := uuid.New()
	userB := uuid.New()
	actor := uuid.New()
	ctx := context.Background()

	if err := fx.svc.Assign(ctx, fx.asset.ID, userA, actor); err != nil {
		t.Fatalf("assign A: %v", err)
	}
	if err := fx.svc.Assign(ctx, fx.asset.ID, userB, actor); err != nil {
		t.Fatalf("assign B: %v", err)
	}
	if err := fx.svc.Return(ctx, fx.asset.ID, actor); err != nil {
		t.Fatalf("return: %v", err)
	}

	recent, ok := fx.svc.MostRecentAssignment(fx.asset.ID)
	if !ok || recent.UserID != userB {
		t.Fatalf("expected userB as most recent holder, got %+v", recent)
	}
	if recent.Active() {
		t.Fatal("most recent row should be closed after return")
	}
}
