package assignments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/pkg/db"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
	"github.com/assetdesk/assetdesk-backend/pkg/metrics"
)

// Service is the custody ledger: the single component allowed to open or
// close assignment rows and mutate the asset status projection.
type Service interface {
	Load(ctx context.Context) error
	Snapshot() []models.Assignment
	CurrentAssignment(assetID uuid.UUID) (models.Assignment, bool)
	MostRecentAssignment(assetID uuid.UUID) (models.Assignment, bool)
	Assign(ctx context.Context, assetID, userID, actingUserID uuid.UUID) error
	Return(ctx context.Context, assetID, actingUserID uuid.UUID) error
}

type ledgerRepository interface {
	ListAll(ctx context.Context) ([]models.Assignment, error)
	Insert(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error)
	Close(ctx context.Context, id uuid.UUID, returnedAt time.Time, returnedBy uuid.UUID, notes *string) error
	CloseWithoutReturnedBy(ctx context.Context, id uuid.UUID, returnedAt time.Time, notes *string) error
}

type assetRegistry interface {
	Load(ctx context.Context) error
	AssetByID(id uuid.UUID) (models.Asset, bool)
	SetStatus(ctx context.Context, id uuid.UUID, status enums.AssetStatus) error
}

type userResolver interface {
	UserByID(id uuid.UUID) (models.User, bool)
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

type changePublisher interface {
	Publish(ctx context.Context, eventType enums.ResourceEventType, resource enums.Resource, payload any)
}

type service struct {
	repo     ledgerRepository
	registry assetRegistry
	users    userResolver
	recorder auditRecorder
	events   changePublisher
	logg     *logger.Logger
	meter    *metrics.PlatformMetrics
	now      func() time.Time

	mu            sync.RWMutex
	assignments   []models.Assignment
	activeByAsset map[uuid.UUID]models.Assignment
}

// ServiceParams bundles the dependencies required to build the ledger.
type ServiceParams struct {
	Repo     ledgerRepository
	Registry assetRegistry
	Users    userResolver
	Recorder auditRecorder
	Events   changePublisher
	Logger   *logger.Logger
	Metrics  *metrics.PlatformMetrics
	Now      func() time.Time
}

// NewService constructs the assignment ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("assignments repository is required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("asset registry is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user resolver is required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events publisher is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:          params.Repo,
		registry:      params.Registry,
		users:         params.Users,
		recorder:      params.Recorder,
		events:        params.Events,
		logg:          params.Logger,
		meter:         params.Metrics,
		now:           now,
		activeByAsset: map[uuid.UUID]models.Assignment{},
	}, nil
}

// Load replaces the ledger snapshot wholesale, newest first, and rebuilds the
// active-assignment index.
func (s *service) Load(ctx context.Context) error {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list assignments")
	}

	active := make(map[uuid.UUID]models.Assignment)
	for _, a := range rows {
		if a.Active() {
			if _, exists := active[a.AssetID]; !exists {
				active[a.AssetID] = a
			}
		}
	}

	s.mu.Lock()
	s.assignments = rows
	s.activeByAsset = active
	s.mu.Unlock()
	s.meter.IncReload(enums.ResourceAssignments.String())
	return nil
}

// Snapshot returns the ledger contents, newest assignment first.
func (s *service) Snapshot() []models.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Assignment, len(s.assignments))
	copy(out, s.assignments)
	return out
}

// CurrentAssignment returns the open custody row for the asset, if any.
func (s *service) CurrentAssignment(assetID uuid.UUID) (models.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activeByAsset[assetID]
	return a, ok
}

// MostRecentAssignment returns the newest custody row for the asset, open or
// closed.
func (s *service) MostRecentAssignment(assetID uuid.UUID) (models.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best models.Assignment
	found := false
	for _, a := range s.assignments {
		if a.AssetID != assetID {
			continue
		}
		if !found || a.AssignedAt.After(best.AssignedAt) {
			best = a
			found = true
		}
	}
	return best, found
}

// Assign gives custody of an asset to a user. A live holder makes this a
// transfer: the open row is closed first, then the new one opens. The
// persistence calls are sequential, not transactional; a failure aborts the
// remaining steps and whatever already committed stays committed.
func (s *service) Assign(ctx context.Context, assetID, userID, actingUserID uuid.UUID) error {
	if _, ok := s.registry.AssetByID(assetID); !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}

	now := s.now()
	previous, transferring := s.CurrentAssignment(assetID)
	if transferring {
		note := encodeNote(transferNote{
			Message:         "transferred to another user",
			TransferredToID: userID.String(),
			TransferredByID: actingUserID.String(),
			TransferredAt:   now,
		})
		if err := s.closeRow(ctx, previous.ID, now, actingUserID, note); err != nil {
			return err
		}
	}

	opened, err := s.repo.Insert(ctx, &models.Assignment{
		AssetID:    assetID,
		UserID:     userID,
		AssignedBy: actingUserID,
		AssignedAt: now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert assignment")
	}

	if err := s.registry.SetStatus(ctx, assetID, enums.AssetStatusAssigned); err != nil {
		return err
	}

	action := enums.AuditActionAssigned
	var previousUser *uuid.UUID
	if transferring {
		action = enums.AuditActionTransferred
		prev := previous.UserID
		previousUser = &prev
	}
	s.meter.IncMutation(enums.ResourceAssignments.String(), action.String())
	s.recorder.Record(ctx, audit.Entry{
		Action:            action,
		AssetID:           &assetID,
		UserID:            &userID,
		AssignedToUserID:  &userID,
		PreviousUserID:    previousUser,
		PerformedByUserID: actingUserID,
		Details:           s.assignDetails(assetID, userID, transferring),
	})
	s.events.Publish(ctx, enums.ResourceEventInsert, enums.ResourceAssignments, opened)

	return s.reload(ctx)
}

// Return closes the asset's open custody row. No-op when nothing is open.
func (s *service) Return(ctx context.Context, assetID, actingUserID uuid.UUID) error {
	current, ok := s.CurrentAssignment(assetID)
	if !ok {
		return nil
	}

	now := s.now()
	note := encodeNote(returnNote{
		Message:        "returned",
		ReturnedByID:   actingUserID.String(),
		ReturnedByName: s.userName(actingUserID),
		ReturnedAt:     now,
	})
	if err := s.closeRow(ctx, current.ID, now, actingUserID, note); err != nil {
		return err
	}

	if err := s.registry.SetStatus(ctx, assetID, enums.AssetStatusAvailable); err != nil {
		return err
	}

	outgoing := current.UserID
	s.meter.IncMutation(enums.ResourceAssignments.String(), enums.AuditActionReturned.String())
	s.recorder.Record(ctx, audit.Entry{
		Action:            enums.AuditActionReturned,
		AssetID:           &assetID,
		UserID:            &outgoing,
		PreviousUserID:    &outgoing,
		PerformedByUserID: actingUserID,
		Details:           s.returnDetails(assetID, outgoing),
	})
	s.events.Publish(ctx, enums.ResourceEventUpdate, enums.ResourceAssignments, current.ID)

	return s.reload(ctx)
}

// closeRow stamps a custody row as returned, retrying without the
// returned_by column when the deployed schema predates it. The note payload
// already embeds the returner, so nothing is lost in the fallback.
func (s *service) closeRow(ctx context.Context, id uuid.UUID, at time.Time, by uuid.UUID, notes *string) error {
	err := s.repo.Close(ctx, id, at, by, notes)
	if err == nil {
		return nil
	}
	if !db.IsUndefinedColumn(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: close assignment")
	}

	s.logg.Warn(s.logg.WithField(ctx, "assignment_id", id.String()),
		"returned_by column missing, falling back to note-embedded returner")
	if err := s.repo.CloseWithoutReturnedBy(ctx, id, at, notes); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: close assignment without returned_by")
	}
	return nil
}

// reload refreshes the ledger and registry snapshots so derived views reflect
// what actually committed, not an optimistic local patch.
func (s *service) reload(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return err
	}
	return s.registry.Load(ctx)
}

func (s *service) assignDetails(assetID, userID uuid.UUID, transferring bool) string {
	verb := "assigned to"
	if transferring {
		verb = "transferred to"
	}
	return fmt.Sprintf("%s %s %s", s.assetName(assetID), verb, s.userLabel(userID))
}

func (s *service) returnDetails(assetID, userID uuid.UUID) string {
	return fmt.Sprintf("%s returned by %s", s.assetName(assetID), s.userLabel(userID))
}

func (s *service) assetName(id uuid.UUID) string {
	if a, ok := s.registry.AssetByID(id); ok {
		return a.Name
	}
	return "asset " + id.String()
}

func (s *service) userName(id uuid.UUID) string {
	if u, ok := s.users.UserByID(id); ok {
		return u.DisplayName()
	}
	return ""
}

func (s *service) userLabel(id uuid.UUID) string {
	if name := s.userName(id); name != "" {
		return name
	}
	return "user " + id.String()
}
