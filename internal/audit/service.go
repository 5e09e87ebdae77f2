package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/db"
	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
	"github.com/assetdesk/assetdesk-backend/pkg/metrics"
)

// Entry describes one lifecycle event handed to the recorder.
type Entry struct {
	Action            enums.AuditAction
	AssetID           *uuid.UUID
	UserID            *uuid.UUID
	AssignedToUserID  *uuid.UUID
	PreviousUserID    *uuid.UUID
	PerformedByUserID uuid.UUID
	Details           string
	Metadata          map[string]any
}

// Recorder is the best-effort audit log surface. Record never fails its
// caller; the read path distinguishes an unprovisioned audit table from a
// plain dependency failure.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
	LoadRecent(ctx context.Context) error
	Recent() []models.AuditEntry
	Provisioned() bool
	Enrich(entries []models.AuditEntry) []EnrichedEntry
	ClearAll(ctx context.Context, actingRole enums.UserRole) error
}

type auditRepository interface {
	Insert(ctx context.Context, entry *models.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error)
	DeleteAll(ctx context.Context) error
}

// AssetResolver resolves asset ids against the registry snapshot only.
type AssetResolver interface {
	AssetByID(id uuid.UUID) (models.Asset, bool)
}

// UserResolver resolves user ids against the directory snapshot only.
type UserResolver interface {
	UserByID(id uuid.UUID) (models.User, bool)
}

type recorder struct {
	repo    auditRepository
	assets  AssetResolver
	users   UserResolver
	logg    *logger.Logger
	meter   *metrics.PlatformMetrics
	limit   int
	mu      sync.RWMutex
	recent  []models.AuditEntry
	missing bool
}

// RecorderParams bundles the dependencies required to build the recorder.
type RecorderParams struct {
	Repo        auditRepository
	Assets      AssetResolver
	Users       UserResolver
	Logger      *logger.Logger
	Metrics     *metrics.PlatformMetrics
	RecentLimit int
}

const defaultRecentLimit = 500

// NewRecorder constructs the audit recorder.
func NewRecorder(params RecorderParams) (Recorder, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("audit repository is required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("asset resolver is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user resolver is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	limit := params.RecentLimit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return &recorder{
		repo:   params.Repo,
		assets: params.Assets,
		users:  params.Users,
		logg:   params.Logger,
		meter:  params.Metrics,
		limit:  limit,
	}, nil
}

// Record appends an audit entry. All failures are logged and swallowed: the
// primary mutation this entry describes has already committed, and an
// unprovisioned audit table is a supported deployment.
func (r *recorder) Record(ctx context.Context, entry Entry) {
	model := &models.AuditEntry{
		AssetID:           entry.AssetID,
		Action:            entry.Action,
		UserID:            entry.UserID,
		AssignedToUserID:  entry.AssignedToUserID,
		PreviousUserID:    entry.PreviousUserID,
		PerformedByUserID: ptrOf(entry.PerformedByUserID),
		Details:           entry.Details,
	}
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			r.logg.Warn(r.logCtx(ctx, entry), "audit metadata not serializable, recording without it")
		} else {
			model.Metadata = raw
		}
	}

	if err := r.repo.Insert(ctx, model); err != nil {
		r.meter.IncAuditDropped()
		if db.IsUndefinedTable(err) {
			r.logg.Debug(r.logCtx(ctx, entry), "audit table not provisioned, entry dropped")
			return
		}
		r.logg.Error(r.logCtx(ctx, entry), "audit write failed, entry dropped", err)
		return
	}
	r.meter.IncAuditWrite(entry.Action.String())
}

func (r *recorder) logCtx(ctx context.Context, entry Entry) context.Context {
	ctx = r.logg.WithField(ctx, "audit_action", entry.Action.String())
	if entry.AssetID != nil {
		ctx = r.logg.WithAssetID(ctx, entry.AssetID.String())
	}
	return ctx
}

// LoadRecent replaces the recent-entries snapshot wholesale. A missing audit
// table resolves to an empty snapshot plus a setup-required error so callers
// can branch on provisioning state.
func (r *recorder) LoadRecent(ctx context.Context) error {
	entries, err := r.repo.ListRecent(ctx, r.limit)
	if err != nil {
		if db.IsUndefinedTable(err) {
			r.setSnapshot(nil, true)
			return pkgerrors.New(pkgerrors.CodeSetupRequired, "audit log is not provisioned").
				WithDetails(map[string]any{"table": models.AuditEntry{}.TableName()})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list audit entries")
	}
	r.setSnapshot(entries, false)
	return nil
}

func (r *recorder) setSnapshot(entries []models.AuditEntry, missing bool) {
	r.mu.Lock()
	r.recent = entries
	r.missing = missing
	r.mu.Unlock()
}

// Recent returns the current snapshot, newest first.
func (r *recorder) Recent() []models.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AuditEntry, len(r.recent))
	copy(out, r.recent)
	return out
}

// Provisioned reports whether the last load found the audit table.
func (r *recorder) Provisioned() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.missing
}

// ClearAll wipes the audit log. Admin only.
func (r *recorder) ClearAll(ctx context.Context, actingRole enums.UserRole) error {
	if actingRole != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "clearing the audit log requires the admin role")
	}
	if err := r.repo.DeleteAll(ctx); err != nil {
		if db.IsUndefinedTable(err) {
			return pkgerrors.New(pkgerrors.CodeSetupRequired, "audit log is not provisioned")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear audit entries")
	}
	r.setSnapshot(nil, false)
	return nil
}

func ptrOf(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
