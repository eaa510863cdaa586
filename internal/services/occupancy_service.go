package services

import (
	"context"
	"fmt"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/config"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/constants"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OccupancyService is the only writer of Unit and Occupation status.
type OccupancyService struct {
	cfg           *config.Config
	store         repositories.Store
	notifications *NotificationService
}

func NewOccupancyService(cfg *config.Config, store repositories.Store, notifications *NotificationService) *OccupancyService {
	return &OccupancyService{cfg: cfg, store: store, notifications: notifications}
}

// PromotePendingOccupations moves occupations starting today to CURRENT and
// their units to OCCUPIED. Candidates come newest first and are grouped by
// unit, so when several target one unit the newest wins and the rest find
// the unit taken and are skipped.
func (s *OccupancyService) PromotePendingOccupations(ctx context.Context, today time.Time) (*BatchResult, error) {
	today = utils.DateOnly(today)
	return processTimePages(ctx, constants.JobOccupancyPromotion, s.cfg.JobWorkers, s.cfg.BatchSize,
		func(ctx context.Context, page repositories.TimePage) ([]*models.Occupation, error) {
			occs, err := s.store.Repos().Occupations.ListByStartDateAndStatuses(ctx, today, models.PromotableOccupationStatuses, page)
			if err != nil {
				return nil, fmt.Errorf("list occupations starting %s: %w", today.Format("2006-01-02"), err)
			}
			return occs, nil
		},
		func(o *models.Occupation) repositories.Cursor {
			return repositories.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
		},
		func(o *models.Occupation) string { return o.UnitID.String() },
		occupationFields,
		s.promote,
	)
}

// promote takes a VACANT unit, or a BOOKED one whose booking names this
// occupation. The matching booking is consumed; anyone else's is left alone.
func (s *OccupancyService) promote(ctx context.Context, occ *models.Occupation) error {
	var unit *models.Unit
	err := s.store.WithTx(ctx, func(ctx context.Context, r *repositories.Repositories) error {
		u, err := r.Units.GetByIDAndStatus(ctx, occ.UnitID, models.UnitStatusVacant, models.UnitStatusBooked)
		if err != nil {
			return err
		}
		if u == nil {
			return skipf("unit %s is missing or already taken", occ.UnitID)
		}
		var booking *models.Booking
		if u.Status == models.UnitStatusBooked {
			if booking, err = bookingFor(ctx, r, u.ID, occ.ID); err != nil {
				return err
			}
			if booking == nil {
				return skipf("unit %s is booked for another occupation", u.ID)
			}
		}

		moved, err := r.Units.TransitionStatus(ctx, u.ID, u.Status, models.UnitStatusOccupied)
		if err != nil {
			return err
		}
		if !moved {
			return skipf("unit %s changed status concurrently", u.ID)
		}
		moved, err = r.Occupations.TransitionStatus(ctx, occ.ID, occ.Status, models.OccupationStatusCurrent, nil)
		if err != nil {
			return err
		}
		if !moved {
			return skipf("occupation %s is no longer %s", occ.ID, occ.Status)
		}
		if booking != nil {
			if _, err := r.Bookings.Delete(ctx, booking.ID); err != nil {
				return err
			}
		}
		u.Status = models.UnitStatusOccupied
		unit = u
		return nil
	})
	if err != nil {
		return err
	}

	utils.Logger.WithFields(occupationFields(occ)).Infof("Occupation is now CURRENT in unit %s", unit.Number)
	s.notifications.NotifyOccupationConfirmed(ctx, occ, unit)
	return nil
}

func bookingFor(ctx context.Context, r *repositories.Repositories, unitID, occupationID uuid.UUID) (*models.Booking, error) {
	bookings, err := r.Bookings.ListByUnitID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	for _, b := range bookings {
		if b.Holds(occupationID) {
			return b, nil
		}
	}
	return nil, nil
}

// VacateExpiredNotices ends occupations whose active notice had its
// vacating date yesterday. Unit, occupation and notice change together or
// not at all.
func (s *OccupancyService) VacateExpiredNotices(ctx context.Context, today time.Time) (*BatchResult, error) {
	yesterday := utils.DateOnly(today).AddDate(0, 0, -1)
	return processTimePages(ctx, constants.JobNoticeVacate, s.cfg.JobWorkers, s.cfg.BatchSize,
		func(ctx context.Context, page repositories.TimePage) ([]*models.Notice, error) {
			notices, err := s.store.Repos().Notices.ListActiveByVacatingDate(ctx, yesterday, page)
			if err != nil {
				return nil, fmt.Errorf("list notices vacating %s: %w", yesterday.Format("2006-01-02"), err)
			}
			return notices, nil
		},
		func(n *models.Notice) repositories.Cursor {
			return repositories.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
		},
		func(n *models.Notice) string { return n.OccupationID.String() },
		func(n *models.Notice) logrus.Fields {
			return logrus.Fields{"notice_id": n.ID, "occupation_id": n.OccupationID}
		},
		s.vacate,
	)
}

func (s *OccupancyService) vacate(ctx context.Context, notice *models.Notice) error {
	return s.store.WithTx(ctx, func(ctx context.Context, r *repositories.Repositories) error {
		occ, err := r.Occupations.GetByID(ctx, notice.OccupationID)
		if err != nil {
			return err
		}
		if occ == nil || occ.Status != models.OccupationStatusCurrent {
			return skipf("occupation %s is missing or not CURRENT", notice.OccupationID)
		}
		unit, err := r.Units.GetByIDAndStatus(ctx, occ.UnitID, models.UnitStatusOccupied)
		if err != nil {
			return err
		}
		if unit == nil {
			return skipf("unit %s is missing or not OCCUPIED", occ.UnitID)
		}

		moved, err := r.Units.TransitionStatus(ctx, unit.ID, models.UnitStatusOccupied, models.UnitStatusVacant)
		if err != nil {
			return err
		}
		if !moved {
			return skipf("unit %s changed status concurrently", unit.ID)
		}
		vacatingDate := utils.DateOnly(notice.VacatingDate)
		moved, err = r.Occupations.TransitionStatus(ctx, occ.ID, models.OccupationStatusCurrent, models.OccupationStatusPrevious, &vacatingDate)
		if err != nil {
			return err
		}
		if !moved {
			return skipf("occupation %s changed status concurrently", occ.ID)
		}
		flipped, err := r.Notices.Deactivate(ctx, notice.ID)
		if err != nil {
			return err
		}
		if !flipped {
			return skipf("notice %s was already inactive", notice.ID)
		}
		return nil
	})
}

// BookUnit reserves a VACANT unit and marks it BOOKED. Promotion only hands
// a BOOKED unit to the occupation the booking names; a booking without one
// holds the unit until it is removed.
func (s *OccupancyService) BookUnit(
	ctx context.Context,
	unitID uuid.UUID,
	occupationID, paymentID *uuid.UUID,
	reservedFrom time.Time,
) (*models.Booking, error) {
	booking := models.NewBooking(unitID, occupationID, paymentID, utils.DateOnly(reservedFrom))
	err := s.store.WithTx(ctx, func(ctx context.Context, r *repositories.Repositories) error {
		moved, err := r.Units.TransitionStatus(ctx, unitID, models.UnitStatusVacant, models.UnitStatusBooked)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("%w: unit %s is not VACANT", utils.ErrInvalidTransition, unitID)
		}
		return r.Bookings.Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// GiveNotice records a CURRENT occupation's intent to vacate.
func (s *OccupancyService) GiveNotice(
	ctx context.Context,
	occupationID uuid.UUID,
	notificationDate, vacatingDate time.Time,
) (*models.Notice, error) {
	notificationDate, vacatingDate = utils.DateOnly(notificationDate), utils.DateOnly(vacatingDate)
	if !vacatingDate.After(notificationDate) {
		return nil, fmt.Errorf("%w: vacating date must be after notification date", utils.ErrInvalidTransition)
	}

	notice := models.NewNotice(occupationID, notificationDate, vacatingDate)
	err := s.store.WithTx(ctx, func(ctx context.Context, r *repositories.Repositories) error {
		occ, err := r.Occupations.GetByID(ctx, occupationID)
		if err != nil {
			return err
		}
		if occ == nil {
			return fmt.Errorf("%w: occupation %s", utils.ErrNotFound, occupationID)
		}
		if occ.Status != models.OccupationStatusCurrent {
			return fmt.Errorf("%w: occupation %s is %s", utils.ErrInvalidTransition, occ.Number, occ.Status)
		}
		active, err := r.Notices.ExistsActiveForOccupation(ctx, occupationID)
		if err != nil {
			return err
		}
		if active {
			return fmt.Errorf("%w: occupation %s already has an active notice", utils.ErrConflict, occ.Number)
		}
		return r.Notices.Create(ctx, notice)
	})
	if err != nil {
		return nil, err
	}
	return notice, nil
}
