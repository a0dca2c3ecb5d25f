package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/models"
)

// SubscriptionSource answers what plan an agency is on. It is read-only.
type SubscriptionSource interface {
	CurrentSubscription(ctx context.Context, agencyID uuid.UUID) (*models.SubscriptionSnapshot, error)
}

const noSubscription = "none"

// CachedSubscriptionSource keeps subscription snapshots in Redis for ttl.
// With a nil client every call goes to the underlying source.
type CachedSubscriptionSource struct {
	source SubscriptionSource
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCachedSubscriptionSource wraps source with a Redis cache
func NewCachedSubscriptionSource(source SubscriptionSource, client *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedSubscriptionSource {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedSubscriptionSource{source: source, client: client, ttl: ttl, logger: logger}
}

func subscriptionKey(agencyID uuid.UUID) string {
	return "subscription:" + agencyID.String()
}

// CurrentSubscription returns the cached snapshot or loads and caches it.
// Cache errors are logged and fall through to the source.
func (c *CachedSubscriptionSource) CurrentSubscription(ctx context.Context, agencyID uuid.UUID) (*models.SubscriptionSnapshot, error) {
	if c.client == nil {
		return c.source.CurrentSubscription(ctx, agencyID)
	}

	raw, err := c.client.Get(ctx, subscriptionKey(agencyID)).Result()
	switch {
	case err == nil:
		if raw == noSubscription {
			return nil, nil
		}
		var snapshot models.SubscriptionSnapshot
		if jerr := json.Unmarshal([]byte(raw), &snapshot); jerr == nil {
			return &snapshot, nil
		}
		c.logger.WithField("agency_id", agencyID).Warn("Discarding unreadable cached subscription")
	case !errors.Is(err, redis.Nil):
		c.logger.WithFields(logrus.Fields{
			"agency_id": agencyID,
			"error":     err.Error(),
		}).Warn("Subscription cache read failed")
	}

	return c.Refresh(ctx, agencyID)
}

// Refresh loads the snapshot from the source and overwrites the cache entry
func (c *CachedSubscriptionSource) Refresh(ctx context.Context, agencyID uuid.UUID) (*models.SubscriptionSnapshot, error) {
	snapshot, err := c.source.CurrentSubscription(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	if c.client == nil {
		return snapshot, nil
	}

	value := noSubscription
	if snapshot != nil {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal subscription: %w", err)
		}
		value = string(data)
	}
	if err := c.client.Set(ctx, subscriptionKey(agencyID), value, c.ttl).Err(); err != nil {
		c.logger.WithFields(logrus.Fields{
			"agency_id": agencyID,
			"error":     err.Error(),
		}).Warn("Subscription cache write failed")
	}
	return snapshot, nil
}

// Invalidate drops the cached entry so the next read reloads it
func (c *CachedSubscriptionSource) Invalidate(ctx context.Context, agencyID uuid.UUID) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, subscriptionKey(agencyID)).Err()
}

// UsageResult reports an agency's shift usage against its plan
type UsageResult struct {
	Decision
	Usage *models.AgencyUsage `json:"usage,omitempty"`
}

// UsageCounter counts shifts created in a period
type UsageCounter interface {
	CountShiftsCreatedSince(ctx context.Context, agencyID uuid.UUID, since time.Time) (int, error)
}

// UsageService reports monthly shift usage
type UsageService struct {
	shifts UsageCounter
	source SubscriptionSource
	loc    *time.Location
	now    func() time.Time
}

// NewUsageService creates a new usage service
func NewUsageService(shifts UsageCounter, source SubscriptionSource, loc *time.Location) *UsageService {
	if loc == nil {
		loc = time.UTC
	}
	return &UsageService{shifts: shifts, source: source, loc: loc, now: time.Now}
}

// AgencyUsage returns how many shifts the agency created this billing month and
// whether it may create another. Only the agency's admins and superusers may ask.
func (s *UsageService) AgencyUsage(ctx context.Context, p models.Principal, agencyID uuid.UUID) (*UsageResult, error) {
	d := All(Require(func() bool { return p.IsSuperuser() || (p.Role.IsAgencyAdmin() && p.InAgency(&agencyID)) },
		OutcomeDenied, "Only agency managers can view usage"))
	if !d.OK() {
		return &UsageResult{Decision: d}, nil
	}

	now := s.now()
	sub, err := s.source.CurrentSubscription(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	periodStart := BillingPeriodStart(now, s.loc)
	created, err := s.shifts.CountShiftsCreatedSince(ctx, agencyID, periodStart)
	if err != nil {
		return nil, err
	}

	usage := &models.AgencyUsage{
		AgencyID:      agencyID,
		PeriodStart:   periodStart,
		ShiftsCreated: created,
		// evaluated for the agency itself, so a superuser caller sees the agency's real headroom
		CanCreateMore: CanCreateMoreShifts(models.Principal{Role: models.RoleAgencyOwner, AgencyID: &agencyID}, sub, created, now),
	}
	if sub != nil {
		usage.ShiftLimit = sub.Plan.ShiftLimit
	}
	return &UsageResult{Decision: allow(), Usage: usage}, nil
}

// ActiveAgencyLister lists agencies holding a current subscription.
// Implemented by database.SubscriptionRepository.
type ActiveAgencyLister interface {
	ListActiveAgencyIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// WarmAll refreshes the cache entry of every agency with a current subscription
func (c *CachedSubscriptionSource) WarmAll(ctx context.Context, lister ActiveAgencyLister) (int, error) {
	ids, err := lister.ListActiveAgencyIDs(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	warmed := 0
	for _, id := range ids {
		if _, err := c.Refresh(ctx, id); err != nil {
			return warmed, err
		}
		warmed++
	}
	return warmed, nil
}
