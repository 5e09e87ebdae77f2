package assets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/pkg/db"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
	"github.com/assetdesk/assetdesk-backend/pkg/metrics"
)

const (
	duplicateNameMessage   = "an asset with this name already exists"
	duplicateSerialMessage = "serial number already in use"
)

// Draft is the user-supplied asset shape for add and edit.
type Draft struct {
	Kind           enums.AssetKind
	Name           string
	SerialNumber   *string
	Status         enums.AssetStatus
	Category       *string
	Brand          *string
	Model          *string
	Location       *string
	PurchaseDate   *time.Time
	WarrantyExpiry *time.Time
	Description    *string
	Tags           []string
}

// Service is the registry: the in-memory snapshot of all assets, refreshed
// wholesale, plus the mutations that keep it consistent with storage.
type Service interface {
	Load(ctx context.Context) error
	Snapshot() []models.Asset
	AssetByID(id uuid.UUID) (models.Asset, bool)
	Add(ctx context.Context, actorID uuid.UUID, draft Draft) (*models.Asset, error)
	Edit(ctx context.Context, actorID, id uuid.UUID, draft Draft) (*models.Asset, error)
	Remove(ctx context.Context, actorID, id uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status enums.AssetStatus) error
}

type assetRepository interface {
	ListAll(ctx context.Context) ([]models.Asset, error)
	Insert(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	Update(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.AssetStatus) error
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

type changePublisher interface {
	Publish(ctx context.Context, eventType enums.ResourceEventType, resource enums.Resource, payload any)
}

type service struct {
	repo     assetRepository
	recorder auditRecorder
	events   changePublisher
	logg     *logger.Logger
	meter    *metrics.PlatformMetrics

	mu     sync.RWMutex
	assets []models.Asset
	byID   map[uuid.UUID]models.Asset
}

// ServiceParams bundles the dependencies required to build the registry.
type ServiceParams struct {
	Repo     assetRepository
	Recorder auditRecorder
	Events   changePublisher
	Logger   *logger.Logger
	Metrics  *metrics.PlatformMetrics
}

// NewService constructs the asset registry service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("assets repository is required")
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
	return &service{
		repo:     params.Repo,
		recorder: params.Recorder,
		events:   params.Events,
		logg:     params.Logger,
		meter:    params.Metrics,
		byID:     map[uuid.UUID]models.Asset{},
	}, nil
}

// Load replaces the registry snapshot wholesale, ordered by name.
func (s *service) Load(ctx context.Context) error {
	assets, err := s.repo.ListAll(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list assets")
	}

	byID := make(map[uuid.UUID]models.Asset, len(assets))
	for _, a := range assets {
		byID[a.ID] = a
	}

	s.mu.Lock()
	s.assets = assets
	s.byID = byID
	s.mu.Unlock()
	s.meter.IncReload(enums.ResourceAssets.String())
	return nil
}

// Snapshot returns the current registry contents ordered by name.
func (s *service) Snapshot() []models.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Asset, len(s.assets))
	copy(out, s.assets)
	return out
}

// AssetByID resolves an asset from the snapshot only.
func (s *service) AssetByID(id uuid.UUID) (models.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	return a, ok
}

// Add validates the draft, persists it, and folds the stored row into the
// snapshot. The name and serial pre-checks are a fast-path nicety; the
// database unique indexes are the real enforcement and their violations map
// to the same conflict errors.
func (s *service) Add(ctx context.Context, actorID uuid.UUID, draft Draft) (*models.Asset, error) {
	asset, err := s.buildAsset(draft)
	if err != nil {
		return nil, err
	}
	if err := s.checkUniqueness(asset.Name, asset.SerialNumber, uuid.Nil); err != nil {
		return nil, err
	}

	created, err := s.repo.Insert(ctx, asset)
	if err != nil {
		return nil, mapWriteError(err, "db: insert asset")
	}

	s.mu.Lock()
	s.assets = append(s.assets, *created)
	sortByName(s.assets)
	s.byID[created.ID] = *created
	s.mu.Unlock()

	s.meter.IncMutation(enums.ResourceAssets.String(), enums.AuditActionCreated.String())
	s.recorder.Record(ctx, audit.Entry{
		Action:            enums.AuditActionCreated,
		AssetID:           &created.ID,
		PerformedByUserID: actorID,
		Details:           fmt.Sprintf("created %s %q", created.Kind, created.Name),
		Metadata:          draftMetadata(draft),
	})
	s.events.Publish(ctx, enums.ResourceEventInsert, enums.ResourceAssets, created)
	return created, nil
}

// Edit re-validates uniqueness only for the fields that changed, persists the
// full draft, and replaces the snapshot entry.
func (s *service) Edit(ctx context.Context, actorID, id uuid.UUID, draft Draft) (*models.Asset, error) {
	current, ok := s.AssetByID(id)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}

	next, err := s.buildAsset(draft)
	if err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	if draft.Status == "" {
		next.Status = current.Status
	}

	nameChanged := strings.TrimSpace(current.Name) != next.Name
	serialChanged := !equalFoldPtr(current.SerialNumber, next.SerialNumber)

	checkName := next.Name
	if !nameChanged {
		checkName = ""
	}
	checkSerial := next.SerialNumber
	if !serialChanged {
		checkSerial = nil
	}
	if err := s.checkUniqueness(checkName, checkSerial, id); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return nil, mapWriteError(err, "db: update asset")
	}

	s.replaceInSnapshot(*updated)

	s.meter.IncMutation(enums.ResourceAssets.String(), enums.AuditActionUpdated.String())
	s.recorder.Record(ctx, audit.Entry{
		Action:            enums.AuditActionUpdated,
		AssetID:           &updated.ID,
		PerformedByUserID: actorID,
		Details:           fmt.Sprintf("updated %s %q", updated.Kind, updated.Name),
		Metadata:          draftMetadata(draft),
	})
	s.events.Publish(ctx, enums.ResourceEventUpdate, enums.ResourceAssets, updated)
	return updated, nil
}

// Remove deletes the asset. Assignments and comments referencing it stay
// behind; enrichment renders them with the unknown-asset sentinel afterwards.
func (s *service) Remove(ctx context.Context, actorID, id uuid.UUID) error {
	current, ok := s.AssetByID(id)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete asset")
	}

	s.mu.Lock()
	delete(s.byID, id)
	for i := range s.assets {
		if s.assets[i].ID == id {
			s.assets = append(s.assets[:i], s.assets[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.meter.IncMutation(enums.ResourceAssets.String(), enums.AuditActionDeleted.String())
	s.recorder.Record(ctx, audit.Entry{
		Action:            enums.AuditActionDeleted,
		AssetID:           &id,
		PerformedByUserID: actorID,
		Details:           fmt.Sprintf("deleted %s %q", current.Kind, current.Name),
	})
	s.events.Publish(ctx, enums.ResourceEventDelete, enums.ResourceAssets, map[string]any{"id": id})
	return nil
}

// SetStatus is the ledger-internal status projection update. It emits no
// audit entry of its own; the ledger records the custody event.
func (s *service) SetStatus(ctx context.Context, id uuid.UUID, status enums.AssetStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid asset status %q", status))
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update asset status")
	}

	s.mu.Lock()
	if a, ok := s.byID[id]; ok {
		a.Status = status
		s.byID[id] = a
		for i := range s.assets {
			if s.assets[i].ID == id {
				s.assets[i].Status = status
				break
			}
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *service) buildAsset(draft Draft) (*models.Asset, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
			WithDetails(map[string]any{"field": "name"})
	}
	if !draft.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid asset kind %q", draft.Kind)).
			WithDetails(map[string]any{"field": "kind"})
	}
	status := draft.Status
	if status == "" {
		status = enums.AssetStatusAvailable
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid asset status %q", draft.Status)).
			WithDetails(map[string]any{"field": "status"})
	}

	serial := draft.SerialNumber
	if serial != nil {
		trimmed := strings.TrimSpace(*serial)
		if trimmed == "" {
			serial = nil
		} else {
			serial = &trimmed
		}
	}

	return &models.Asset{
		Kind:           draft.Kind,
		Name:           name,
		SerialNumber:   serial,
		Status:         status,
		Category:       draft.Category,
		Brand:          draft.Brand,
		Model:          draft.Model,
		Location:       draft.Location,
		PurchaseDate:   draft.PurchaseDate,
		WarrantyExpiry: draft.WarrantyExpiry,
		Description:    draft.Description,
		Tags:           pq.StringArray(draft.Tags),
	}, nil
}

// checkUniqueness rejects duplicates before any write reaches storage.
// Race-prone: a concurrent remote insert can still slip through, and the
// unique indexes then produce the equivalent conflict error.
func (s *service) checkUniqueness(name string, serial *string, excludeID uuid.UUID) error {
	if name == "" && serial == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assets {
		if a.ID == excludeID {
			continue
		}
		if name != "" && strings.TrimSpace(a.Name) == name {
			return pkgerrors.New(pkgerrors.CodeConflict, duplicateNameMessage)
		}
		if serial != nil && a.SerialNumber != nil && strings.EqualFold(*a.SerialNumber, *serial) {
			return pkgerrors.New(pkgerrors.CodeConflict, duplicateSerialMessage)
		}
	}
	return nil
}

func (s *service) replaceInSnapshot(updated models.Asset) {
	s.mu.Lock()
	s.byID[updated.ID] = updated
	for i := range s.assets {
		if s.assets[i].ID == updated.ID {
			s.assets[i] = updated
			break
		}
	}
	sortByName(s.assets)
	s.mu.Unlock()
}

// mapWriteError translates storage unique violations into the same conflict
// errors the pre-checks produce.
func mapWriteError(err error, msg string) error {
	switch {
	case db.IsUniqueViolation(err, "idx_assets_name"):
		return pkgerrors.New(pkgerrors.CodeConflict, duplicateNameMessage)
	case db.IsUniqueViolation(err, "idx_assets_serial_lower"):
		return pkgerrors.New(pkgerrors.CodeConflict, duplicateSerialMessage)
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.New(pkgerrors.CodeConflict, duplicateNameMessage)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
}

func sortByName(assets []models.Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		return strings.ToLower(assets[i].Name) < strings.ToLower(assets[j].Name)
	})
}

func equalFoldPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return strings.EqualFold(*a, *b)
}

func draftMetadata(draft Draft) map[string]any {
	meta := map[string]any{}
	if draft.Location != nil {
		meta["location"] = *draft.Location
	}
	if draft.SerialNumber != nil {
		meta["serialNumber"] = *draft.SerialNumber
	}
	if draft.Category != nil {
		meta["category"] = *draft.Category
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
