package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/staffhub/shift-engine/internal/database"
	"github.com/staffhub/shift-engine/internal/models"
)

// PrincipalResolver builds the per-request Principal from token claims
type PrincipalResolver struct {
	workers       WorkerStore
	subscriptions SubscriptionSource
}

// NewPrincipalResolver creates a new principal resolver
func NewPrincipalResolver(workers WorkerStore, subscriptions SubscriptionSource) *PrincipalResolver {
	return &PrincipalResolver{workers: workers, subscriptions: subscriptions}
}

// Resolve combines the claimed identity with the stored worker profile and the
// agency's subscription. The profile's agency wins over the claimed one; an
// inactive profile resolves to an unauthenticated principal.
func (r *PrincipalResolver) Resolve(ctx context.Context, userID uuid.UUID, role string, agencyID *uuid.UUID) (models.Principal, error) {
	p := models.Principal{
		UserID:   userID,
		Role:     models.ParseRole(role),
		AgencyID: agencyID,
	}
	if p.Role == models.RoleUnauthenticated {
		return p, nil
	}

	worker, err := r.workers.GetWorker(ctx, userID)
	switch {
	case err == nil:
		if !worker.IsActive {
			return models.Principal{UserID: userID, Role: models.RoleUnauthenticated}, nil
		}
		if worker.AgencyID != nil {
			p.AgencyID = worker.AgencyID
		}
		p.Location = worker.Location()
		p.TravelRadius = worker.TravelRadius
	case errors.Is(err, database.ErrNotFound):
		// superusers and freshly invited users may have no profile yet
	default:
		return models.Principal{}, err
	}

	if p.AgencyID != nil {
		sub, err := r.subscriptions.CurrentSubscription(ctx, *p.AgencyID)
		if err != nil {
			return models.Principal{}, err
		}
		p.Subscription = sub
	}
	return p, nil
}
