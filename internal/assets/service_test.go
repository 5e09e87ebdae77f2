package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

type fakeAssetRepo struct {
	rows      []models.Asset
	listErr   error
	insertErr error
	updateErr error
	deleteErr error
	statusErr error
	inserts   int
}

func (f *fakeAssetRepo) ListAll(ctx context.Context) ([]models.Asset, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Asset(nil), f.rows...), nil
}

func (f *fakeAssetRepo) Insert(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	f.inserts++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	asset.ID = uuid.New()
	f.rows = append(f.rows, *asset)
	return asset, nil
}

func (f *fakeAssetRepo) Update(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.rows {
		if f.rows[i].ID == asset.ID {
			f.rows[i] = *asset
		}
	}
	return asset, nil
}

func (f *fakeAssetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAssetRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.AssetStatus) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Status = status
		}
	}
	return nil
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

func (f *fakeRecorder) recorded() []audit.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audit.Entry(nil), f.entries...)
}

type publishedEvent struct {
	eventType enums.ResourceEventType
	resource  enums.Resource
}

type fakeChangePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakeChangePublisher) Publish(ctx context.Context, eventType enums.ResourceEventType, resource enums.Resource, payload any) {
	f.mu.Lock()
	f.events = append(f.events, publishedEvent{eventType: eventType, resource: resource})
	f.mu.Unlock()
}

func newTestService(t *testing.T, repo *fakeAssetRepo) (Service, *fakeRecorder, *fakeChangePublisher) {
	t.Helper()
	rec := &fakeRecorder{}
	pub := &fakeChangePublisher{}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Recorder: rec,
		Events:   pub,
		Logger:   logger.New(logger.Options{ServiceName: "assets-test", Output: &bytes.Buffer{}}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, rec, pub
}

func mustLoad(t *testing.T, svc Service) {
	t.Helper()
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestAddRequiresTrimmedName(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeAssetRepo{})

	_, err := svc.Add(context.Background(), uuid.New(), Draft{Kind: enums.AssetKindEquipment, Name: "   "})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddRejectsDuplicateSerialCaseInsensitive(t *testing.T) {
	repo := &fakeAssetRepo{}
	svc, _, _ := newTestService(t, repo)
	mustLoad(t, svc)

	serial := "ABC123"
	if _, err := svc.Add(context.Background(), uuid.New(), Draft{
		Kind: enums.AssetKindEquipment, Name: "Drill #1", SerialNumber: &serial,
	}); err != nil {
		t.Fatalf("first add: %v", err)
	}

	lower := "abc123"
	_, err := svc.Add(context.Background(), uuid.New(), Draft{
		Kind: enums.AssetKindEquipment, Name: "Drill #2", SerialNumber: &lower,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if typed := pkgerrors.As(err); typed.Message() != duplicateSerialMessage {
		t.Fatalf("expected serial conflict message, got %q", typed.Message())
	}
	if repo.inserts != 1 {
		t.Fatalf("duplicate must be rejected before insert, saw %d inserts", repo.inserts)
	}
}

func TestAddRejectsDuplicateNameBeforeInsert(t *testing.T) {
	repo := &fakeAssetRepo{}
	svc, _, _ := newTestService(t, repo)
	mustLoad(t, svc)

	if _, err := svc.Add(context.Background(), uuid.New(), Draft{Kind: enums.AssetKindEquipment, Name: "Camera"}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := svc.Add(context.Background(), uuid.New(), Draft{Kind: enums.AssetKindEquipment, Name: "Camera"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if repo.inserts != 1 {
		t.Fatalf("duplicate name must be rejected before insert, saw %d inserts", repo.inserts)
	}
}

func TestAddMapsStorageUniqueViolation(t *testing.T) {
	repo := &fakeAssetRepo{insertErr: errors.New(`duplicate key value violates unique constraint "idx_assets_serial_lower"`)}
	svc, _, _ := newTestService(t, repo)

	serial := "ZZ-1"
	_, err := svc.Add(context.Background(), uuid.New(), Draft{
		Kind: enums.AssetKindVehicle, Name: "Van", SerialNumber: &serial,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict from storage violation, got %v", err)
	}
	if typed.Message() != duplicateSerialMessage {
		t.Fatalf("expected serial message, got %q", typed.Message())
	}
}

func TestAddDefaultsStatusAndRecordsAudit(t *testing.T) {
	svc, rec, pub := newTestService(t, &fakeAssetRepo{})
	mustLoad(t, svc)

	actor := uuid.New()
	created, err := svc.Add(context.Background(), actor, Draft{Kind: enums.AssetKindEquipment, Name: "  Drill #1  "})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created.Name != "Drill #1" {
		t.Fatalf("name not trimmed: %q", created.Name)
	}
	if created.Status != enums.AssetStatusAvailable {
		t.Fatalf("expected available default, got %s", created.Status)
	}

	entries := rec.recorded()
	if len(entries) != 1 || entries[0].Action != enums.AuditActionCreated {
		t.Fatalf("expected one created audit entry, got %+v", entries)
	}
	if entries[0].PerformedByUserID != actor {
		t.Fatalf("audit actor mismatch")
	}
	if len(pub.events) != 1 || pub.events[0].eventType != enums.ResourceEventInsert {
		t.Fatalf("expected one insert event, got %+v", pub.events)
	}
}

func TestEditWithoutNameChangeNeverSelfConflicts(t *testing.T) {
	repo := &fakeAssetRepo{}
	svc, _, _ := newTestService(t, repo)
	mustLoad(t, svc)

	serial := "SN-9"
	created, err := svc.Add(context.Background(), uuid.New(), Draft{
		Kind: enums.AssetKindEquipment, Name: "Projector", SerialNumber: &serial,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	desc := "moved to room 4"
	updated, err := svc.Edit(context.Background(), uuid.New(), created.ID, Draft{
		Kind: enums.AssetKindEquipment, Name: "Projector", SerialNumber: &serial, Description: &desc,
	})
	if err != nil {
		t.Fatalf("edit without name change must not conflict: %v", err)
	}
	if updated.Description == nil || *updated.Description != desc {
		t.Fatalf("description not applied")
	}
}

func TestEditRejectsNameTakenByOtherAsset(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeAssetRepo{})
	mustLoad(t, svc)

	if _, err := svc.Add(context.Background(), uuid.New(), Draft{Kind: enums.AssetKindEquipment, Name: "Camera A"}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	b, err := svc.Add(context.Background(), uuid.New(), Draft{Kind: enums.AssetKindEquipment, Name: "Camera B"})
	if err != nil {
		t.Fatalf("add b: %v", err)
	}

	_, err = svc.Edit(context.Background(), uuid.New(), b.ID, Draft{Kind: enums.AssetKindEquipment, Name: "Camera A"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected name conflict, got %v", err)
	}
}

func TestRemoveDropsFromSnapshotAndAudits(t *testing.T) {
	svc, rec, pub := newTestService(t, &fakeAssetRepo{})
	mustLoad(t, svc)

	created, err := svc.Add(context.Background(), uuid.New(), Draft{Kind: enums.AssetKindVehicle, Name: "Van 1"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.Remove(context.Background(), uuid.New(), created.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := svc.AssetByID(created.ID); ok {
		t.Fatal("asset must leave the snapshot")
	}

	entries := rec.recorded()
	if entries[len(entries)-1].Action != enums.AuditActionDeleted {
		t.Fatalf("expected deleted audit entry")
	}
	if pub.events[len(pub.events)-1].eventType != enums.ResourceEventDelete {
		t.Fatalf("expected delete event")
	}
}

func TestSetStatusUpdatesSnapshotProjection(t *testing.T) {
	svc, rec, _ := newTestService(t, &fakeAssetRepo{})
	mustLoad(t, svc)

	created, err := svc.Add(context.Background(), uuid.New(), Draft{Kind: enums.AssetKindEquipment, Name: "Lift"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	before := len(rec.recorded())

	if err := svc.SetStatus(context.Background(), created.ID, enums.AssetStatusAssigned); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, _ := svc.AssetByID(created.ID)
	if got.Status != enums.AssetStatusAssigned {
		t.Fatalf("snapshot status not updated, got %s", got.Status)
	}
	if len(rec.recorded()) != before {
		t.Fatal("status projection update must not audit on its own")
	}

	if err := svc.SetStatus(context.Background(), created.ID, "lost"); err == nil {
		t.Fatal("invalid status must be rejected")
	}
}

func TestMutationsSucceedWhenAuditInsertAlwaysFails(t *testing.T) {
	// Wire the real recorder over a repo whose insert always fails: the
	// primary mutations must still commit and report success.
	failingRepo := &failingAuditRepo{err: errors.New("audit db down")}
	rec, err := audit.NewRecorder(audit.RecorderParams{
		Repo:   failingRepo,
		Assets: assetResolverStub{},
		Users:  userResolverStub{},
		Logger: logger.New(logger.Options{ServiceName: "assets-test", Output: &bytes.Buffer{}}),
	})
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	repo := &fakeAssetRepo{}
	svc, svcErr := NewService(ServiceParams{
		Repo:     repo,
		Recorder: rec,
		Events:   &fakeChangePublisher{},
		Logger:   logger.New(logger.Options{ServiceName: "assets-test", Output: &bytes.Buffer{}}),
	})
	if svcErr != nil {
		t.Fatalf("new service: %v", svcErr)
	}
	mustLoad(t, svc)

	actor := uuid.New()
	created, err := svc.Add(context.Background(), actor, Draft{Kind: enums.AssetKindEquipment, Name: "Saw"})
	if err != nil {
		t.Fatalf("add must survive audit failure: %v", err)
	}
	if _, err := svc.Edit(context.Background(), actor, created.ID, Draft{Kind: enums.AssetKindEquipment, Name: "Saw XL"}); err != nil {
		t.Fatalf("edit must survive audit failure: %v", err)
	}
	if err := svc.Remove(context.Background(), actor, created.ID); err != nil {
		t.Fatalf("remove must survive audit failure: %v", err)
	}
	if failingRepo.attempts == 0 {
		t.Fatal("audit insert should have been attempted")
	}
}

type failingAuditRepo struct {
	err      error
	attempts int
}

func (f *failingAuditRepo) Insert(ctx context.Context, entry *models.AuditEntry) error {
	f.attempts++
	return f.err
}

func (f *failingAuditRepo) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return nil, nil
}

func (f *failingAuditRepo) DeleteAll(ctx context.Context) error { return nil }

type assetResolverStub struct{}

func (assetResolverStub) AssetByID(uuid.UUID) (models.Asset, bool) { return models.Asset{}, false }

type userResolverStub struct{}

func (userResolverStub) UserByID(uuid.UUID) (models.User, bool) { return models.User{}, false }

func TestSnapshotStaysSortedByName(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeAssetRepo{})
	mustLoad(t, svc)

	for _, name := range []string{"Zip Saw", "Angle Grinder", "Mixer"} {
		if _, err := svc.Add(context.Background(), uuid.New(), Draft{Kind: enums.AssetKindEquipment, Name: name}); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	snapshot := svc.Snapshot()
	want := []string{"Angle Grinder", "Mixer", "Zip Saw"}
	for i, name := range want {
		if snapshot[i].Name != name {
			t.Fatalf("expected %q at %d, got %q", name, i, snapshot[i].Name)
		}
	}
}

func TestLoadFailurePropagates(t *testing.T) {
	repo := &fakeAssetRepo{listErr: fmt.Errorf("network down")}
	svc, _, _ := newTestService(t, repo)

	err := svc.Load(context.Background())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
