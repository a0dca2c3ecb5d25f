package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/staffhub/shift-engine/pkg/geo"
)

// AutoAssignReport summarises one auto-assign run
type AutoAssignReport struct {
	Scanned  int `json:"scanned"`
	Assigned int `json:"assigned"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// AutoAssignService fills unassigned shifts with nearby staff of the owning
// agency. Agencies without a current shift_management plan are left alone.
type AutoAssignService struct {
	shifts        ShiftStore
	workers       WorkerStore
	subscriptions SubscriptionSource
	lifecycle     *ShiftLifecycleService
	loc       *time.Location
	batchSize int
	logger    *logrus.Logger
	now       func() time.Time
}

// NewAutoAssignService creates a new auto-assign service
func NewAutoAssignService(shifts ShiftStore, workers WorkerStore, subscriptions SubscriptionSource, lifecycle *ShiftLifecycleService, loc *time.Location, logger *logrus.Logger) *AutoAssignService {
	if loc == nil {
		loc = time.UTC
	}
	return &AutoAssignService{
		shifts:        shifts,
		workers:       workers,
		subscriptions: subscriptions,
		lifecycle:     lifecycle,
		loc:           loc,
		batchSize:     200,
		logger:        logger,
		now:           time.Now,
	}
}

type rankedCandidate struct {
	candidate *models.AgencyStaffCandidate
	miles     float64
}

// pickCandidate returns the staff member within travel radius of the shift,
// nearest first and then the one holding fewest assignments
func pickCandidate(shift *models.Shift, candidates []models.AgencyStaffCandidate) *models.AgencyStaffCandidate {
	ranked := make([]rankedCandidate, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if !c.IsActive || c.TravelRadius == nil {
			continue
		}
		miles, ok := geo.Distance(c.Location(), shift.Location(), geo.Miles)
		if !ok || miles > *c.TravelRadius {
			continue
		}
		ranked = append(ranked, rankedCandidate{candidate: c, miles: miles})
	}
	if len(ranked) == 0 {
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].miles != ranked[j].miles {
			return ranked[i].miles < ranked[j].miles
		}
		return ranked[i].candidate.AssignmentCount < ranked[j].candidate.AssignmentCount
	})
	return ranked[0].candidate
}

// agencyEntitled reports whether the agency's current plan allows shift management
func (s *AutoAssignService) agencyEntitled(ctx context.Context, agencyID uuid.UUID) (bool, error) {
	snapshot, err := s.subscriptions.CurrentSubscription(ctx, agencyID)
	if err != nil {
		return false, err
	}
	agency := models.Principal{Role: models.RoleAgencyManager, AgencyID: &agencyID, Subscription: snapshot}
	return HasFeature(agency, models.FeatureShiftManagement, s.now()), nil
}

// Run assigns one worker to each open shift from today onwards that has none
func (s *AutoAssignService) Run(ctx context.Context) (*AutoAssignReport, error) {
	shifts, err := s.shifts.ListUnassignedShifts(ctx, calendarDay(s.now(), s.loc), s.batchSize)
	if err != nil {
		return nil, err
	}

	report := &AutoAssignReport{Scanned: len(shifts)}
	candidatesByAgency := make(map[uuid.UUID][]models.AgencyStaffCandidate)
	entitledByAgency := make(map[uuid.UUID]bool)
	system := models.SystemPrincipal()

	for i := range shifts {
		shift := &shifts[i]
		if shift.AgencyID == nil {
			report.Skipped++
			continue
		}

		entitled, seen := entitledByAgency[*shift.AgencyID]
		if !seen {
			entitled, err = s.agencyEntitled(ctx, *shift.AgencyID)
			if err != nil {
				return report, err
			}
			entitledByAgency[*shift.AgencyID] = entitled
		}
		if !entitled {
			report.Skipped++
			s.logger.WithFields(logrus.Fields{
				"shift_id":  shift.ID,
				"agency_id": *shift.AgencyID,
			}).Debug("Auto-assign skipped shift: agency plan lacks shift management")
			continue
		}

		candidates, ok := candidatesByAgency[*shift.AgencyID]
		if !ok {
			candidates, err = s.workers.ListStaffCandidates(ctx, *shift.AgencyID)
			if err != nil {
				return report, err
			}
			candidatesByAgency[*shift.AgencyID] = candidates
		}

		pick := pickCandidate(shift, candidates)
		if pick == nil {
			report.Skipped++
			continue
		}

		res, err := s.lifecycle.AssignWorker(ctx, system, shift.ID, pick.UserID)
		if err != nil {
			report.Failed++
			s.logger.WithFields(logrus.Fields{
				"shift_id":  shift.ID,
				"worker_id": pick.UserID,
				"error":     err.Error(),
			}).Error("Auto-assign failed")
			continue
		}
		if !res.OK() {
			report.Skipped++
			s.logger.WithFields(logrus.Fields{
				"shift_id": shift.ID,
				"outcome":  res.Outcome,
			}).Debug("Auto-assign skipped shift")
			continue
		}
		pick.AssignmentCount++
		report.Assigned++
	}

	s.logger.WithFields(logrus.Fields{
		"scanned":  report.Scanned,
		"assigned": report.Assigned,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
	}).Info("Auto-assign run finished")
	return report, nil
}
