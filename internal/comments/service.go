package comments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	pkgerrors "github.com/assetdesk/assetdesk-backend/pkg/errors"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
	"github.com/assetdesk/assetdesk-backend/pkg/metrics"
)

// Service manages free-text notes attached to assets.
type Service interface {
	ListForAsset(ctx context.Context, assetID uuid.UUID) ([]models.Comment, error)
	Add(ctx context.Context, assetID, actingUserID uuid.UUID, text string) (*models.Comment, error)
	Delete(ctx context.Context, commentID, actingUserID uuid.UUID, actingRole enums.UserRole) error
}

type commentRepository interface {
	ListForAsset(ctx context.Context, assetID uuid.UUID) ([]models.Comment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	Insert(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type assetResolver interface {
	AssetByID(id uuid.UUID) (models.Asset, bool)
}

type changePublisher interface {
	Publish(ctx context.Context, eventType enums.ResourceEventType, resource enums.Resource, payload any)
}

type service struct {
	repo   commentRepository
	assets assetResolver
	events changePublisher
	logg   *logger.Logger
	meter  *metrics.PlatformMetrics
}

// ServiceParams bundles the dependencies required to build the comments service.
type ServiceParams struct {
	Repo    commentRepository
	Assets  assetResolver
	Events  changePublisher
	Logger  *logger.Logger
	Metrics *metrics.PlatformMetrics
}

// NewService constructs the comments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("comments repository is required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("asset resolver is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events publisher is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:   params.Repo,
		assets: params.Assets,
		events: params.Events,
		logg:   params.Logger,
		meter:  params.Metrics,
	}, nil
}

// ListForAsset returns an asset's comments, newest first.
func (s *service) ListForAsset(ctx context.Context, assetID uuid.UUID) ([]models.Comment, error) {
	rows, err := s.repo.ListForAsset(ctx, assetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list comments")
	}
	return rows, nil
}

// Add attaches a comment to an asset. The asset must exist in the current
// registry snapshot.
func (s *service) Add(ctx context.Context, assetID, actingUserID uuid.UUID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment text is required").
			WithDetails(map[string]any{"field": "text"})
	}
	if _, ok := s.assets.AssetByID(assetID); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}

	created, err := s.repo.Insert(ctx, &models.Comment{
		AssetID: assetID,
		UserID:  actingUserID,
		Text:    text,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert comment")
	}

	s.meter.IncMutation(enums.ResourceComments.String(), "created")
	s.events.Publish(ctx, enums.ResourceEventInsert, enums.ResourceComments, created)
	return created, nil
}

// Delete removes a comment. Allowed to the comment's author or an admin.
func (s *service) Delete(ctx context.Context, commentID, actingUserID uuid.UUID, actingRole enums.UserRole) error {
	existing, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find comment")
	}
	if existing == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
	}
	if existing.UserID != actingUserID && actingRole != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an admin can delete a comment")
	}

	if err := s.repo.Delete(ctx, commentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete comment")
	}

	s.meter.IncMutation(enums.ResourceComments.String(), "deleted")
	s.events.Publish(ctx, enums.ResourceEventDelete, enums.ResourceComments, map[string]any{"id": commentID})
	return nil
}
