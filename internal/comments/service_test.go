package comments

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

type fakeCommentRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]models.Comment
	insertErr error
	deleteErr error
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{rows: map[uuid.UUID]models.Comment{}}
}

func (f *fakeCommentRepo) ListForAsset(ctx context.Context, assetID uuid.UUID) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Comment
	for _, c := range f.rows {
		if c.AssetID == assetID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCommentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeCommentRepo) Insert(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	comment.ID = uuid.New()
	f.rows[comment.ID] = *comment
	return comment, nil
}

func (f *fakeCommentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

type fakeAssetResolver struct {
	assets map[uuid.UUID]models.Asset
}

func (f *fakeAssetResolver) AssetByID(id uuid.UUID) (models.Asset, bool) {
	a, ok := f.assets[id]
	return a, ok
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

func newTestService(t *testing.T, repo *fakeCommentRepo, assetID uuid.UUID) (Service, *fakePublisher) {
	t.Helper()
	events := &fakePublisher{}
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Assets: &fakeAssetResolver{assets: map[uuid.UUID]models.Asset{assetID: {ID: assetID, Name: "Drill #1"}}},
		Events: events,
		Logger: logger.New(logger.Options{ServiceName: "comments-test", Output: &bytes.Buffer{}}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, events
}

func TestAddRequiresTextAndKnownAsset(t *testing.T) {
	repo := newFakeCommentRepo()
	assetID := uuid.New()
	svc, _ := newTestService(t, repo, assetID)
	ctx := context.Background()

	_, err := svc.Add(ctx, assetID, uuid.New(), "   ")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for blank text, got %v", err)
	}

	_, err = svc.Add(ctx, uuid.New(), uuid.New(), "loose handle")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown asset, got %v", err)
	}
}

func TestAddPersistsAndPublishes(t *testing.T) {
	repo := newFakeCommentRepo()
	assetID := uuid.New()
	author := uuid.New()
	svc, events := newTestService(t, repo, assetID)

	created, err := svc.Add(context.Background(), assetID, author, "  loose handle  ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created.Text != "loose handle" {
		t.Fatalf("text must be trimmed, got %q", created.Text)
	}
	if created.UserID != author {
		t.Fatalf("author mismatch: %v", created.UserID)
	}
	if len(events.events) != 1 || events.events[0] != enums.ResourceEventInsert {
		t.Fatalf("expected one insert event, got %v", events.events)
	}
}

func TestDeleteAuthorization(t *testing.T) {
	repo := newFakeCommentRepo()
	assetID := uuid.New()
	author := uuid.New()
	svc, events := newTestService(t, repo, assetID)
	ctx := context.Background()

	created, err := svc.Add(ctx, assetID, author, "loose handle")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	err = svc.Delete(ctx, created.ID, uuid.New(), enums.UserRoleMember)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for a stranger, got %v", err)
	}

	if err := svc.Delete(ctx, created.ID, author, enums.UserRoleMember); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if rows, _ := repo.ListForAsset(ctx, assetID); len(rows) != 0 {
		t.Fatalf("comment must be gone, got %+v", rows)
	}

	// Admins may delete comments they did not author.
	other, err := svc.Add(ctx, assetID, author, "second note")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Delete(ctx, other.ID, uuid.New(), enums.UserRoleAdmin); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	var deletes int
	for _, e := range events.events {
		if e == enums.ResourceEventDelete {
			deletes++
		}
	}
	if deletes != 2 {
		t.Fatalf("expected two delete events, got %d", deletes)
	}
}

func TestDeleteMissingComment(t *testing.T) {
	repo := newFakeCommentRepo()
	svc, _ := newTestService(t, repo, uuid.New())

	err := svc.Delete(context.Background(), uuid.New(), uuid.New(), enums.UserRoleAdmin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddSurfacesStorageFailure(t *testing.T) {
	repo := newFakeCommentRepo()
	repo.insertErr = errors.New("connection reset")
	assetID := uuid.New()
	svc, events := newTestService(t, repo, assetID)

	_, err := svc.Add(context.Background(), assetID, uuid.New(), "loose handle")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(events.events) != 0 {
		t.Fatal("no event may fire when the insert failed")
	}
}
