package memory

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/models"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
)

/* ---------- units ---------- */

type unitRepo struct{ v view }

func (r *unitRepo) Create(ctx context.Context, u *models.Unit) error {
	return r.v.write(ctx, func(st *state) error {
		if _, ok := st.units[u.ID]; ok {
			return fmt.Errorf("%w: unit %s", utils.ErrConflict, u.ID)
		}
		for _, other := range st.units {
			if other.Number == u.Number {
				return fmt.Errorf("%w: unit number %s", utils.ErrConflict, u.Number)
			}
		}
		stamp(&u.CreatedAt)
		u.UpdatedAt = u.CreatedAt
		u.RowVersion = 1
		st.units[u.ID] = *u
		return nil
	})
}

func (r *unitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	var out *models.Unit
	err := r.v.read(ctx, func(st *state) error {
		if u, ok := st.units[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

func (r *unitRepo) GetByIDAndStatus(ctx context.Context, id uuid.UUID, statuses ...models.UnitStatus) (*models.Unit, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	if !slices.Contains(statuses, u.Status) {
		return nil, nil
	}
	return u, nil
}

func (r *unitRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.UnitStatus) (bool, error) {
	var moved bool
	err := r.v.write(ctx, func(st *state) error {
		u, ok := st.units[id]
		if !ok || u.Status != from {
			return nil
		}
		u.Status = to
		u.RowVersion++
		u.UpdatedAt = time.Now().UTC()
		st.units[id] = u
		moved = true
		return nil
	})
	return moved, err
}

func (r *unitRepo) UpdateIfVersion(ctx context.Context, u *models.Unit, expected int64) (pgconn.CommandTag, error) {
	tag := pgconn.CommandTag("UPDATE 0")
	err := r.v.write(ctx, func(st *state) error {
		cur, ok := st.units[u.ID]
		if !ok || cur.RowVersion != expected {
			return nil
		}
		next := *u
		next.Status = cur.Status
		next.RowVersion = expected + 1
		next.UpdatedAt = time.Now().UTC()
		st.units[u.ID] = next
		tag = pgconn.CommandTag("UPDATE 1")
		return nil
	})
	return tag, err
}

func (r *unitRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Unit) error) error {
	return repositories.WithRetry(ctx, id, r.GetByID, r.UpdateIfVersion, mutate)
}

/* ---------- tenants ---------- */

type tenantRepo struct{ v view }

func (r *tenantRepo) Create(ctx context.Context, t *models.Tenant) error {
	return r.v.write(ctx, func(st *state) error {
		if _, ok := st.tenants[t.ID]; ok {
			return fmt.Errorf("%w: tenant %s", utils.ErrConflict, t.ID)
		}
		stamp(&t.CreatedAt)
		st.tenants[t.ID] = *t
		return nil
	})
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var out *models.Tenant
	err := r.v.read(ctx, func(st *state) error {
		if t, ok := st.tenants[id]; ok {
			out = &t
		}
		return nil
	})
	return out, err
}

/* ---------- occupations ---------- */

type occupationRepo struct{ v view }

func (r *occupationRepo) Create(ctx context.Context, o *models.Occupation) error {
	return r.v.write(ctx, func(st *state) error {
		if _, ok := st.occupations[o.ID]; ok {
			return fmt.Errorf("%w: occupation %s", utils.ErrConflict, o.ID)
		}
		for _, other := range st.occupations {
			if other.Number == o.Number {
				return fmt.Errorf("%w: occupation number %s", utils.ErrConflict, o.Number)
			}
			if o.Status == models.OccupationStatusCurrent && other.UnitID == o.UnitID && other.Status == models.OccupationStatusCurrent {
				return fmt.Errorf("%w: unit already has a current occupation", utils.ErrConflict)
			}
		}
		stamp(&o.CreatedAt)
		o.UpdatedAt = o.CreatedAt
		o.RowVersion = 1
		st.occupations[o.ID] = *o
		return nil
	})
}

func (r *occupationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Occupation, error) {
	var out *models.Occupation
	err := r.v.read(ctx, func(st *state) error {
		if o, ok := st.occupations[id]; ok {
			out = &o
		}
		return nil
	})
	return out, err
}

func (r *occupationRepo) GetByNumber(ctx context.Context, number string) (*models.Occupation, error) {
	var out *models.Occupation
	err := r.v.read(ctx, func(st *state) error {
		for _, o := range st.occupations {
			if o.Number == number {
				o := o
				out = &o
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *occupationRepo) ListByStartDateAndStatuses(
	ctx context.Context,
	startDate time.Time,
	statuses []models.OccupationStatus,
	page repositories.TimePage,
) ([]*models.Occupation, error) {
	var out []*models.Occupation
	err := r.v.read(ctx, func(st *state) error {
		for _, o := range st.occupations {
			if !utils.DateOnly(o.StartDate).Equal(utils.DateOnly(startDate)) || !slices.Contains(statuses, o.Status) {
				continue
			}
			if page.After != nil && compareCursor(o.CreatedAt, o.ID, *page.After) >= 0 {
				continue
			}
			o := o
			out = append(out, &o)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return limitPage(out, page.Limit), err
}

func (r *occupationRepo) ListByStatuses(
	ctx context.Context,
	statuses []models.OccupationStatus,
	page repositories.Page,
) ([]*models.Occupation, error) {
	var out []*models.Occupation
	err := r.v.read(ctx, func(st *state) error {
		for _, o := range st.occupations {
			if !slices.Contains(statuses, o.Status) {
				continue
			}
			if page.After != nil && bytes.Compare(o.ID[:], page.After[:]) <= 0 {
				continue
			}
			o := o
			out = append(out, &o)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return limitPage(out, page.Limit), err
}

func (r *occupationRepo) TransitionStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to models.OccupationStatus,
	endDate *time.Time,
) (bool, error) {
	var moved bool
	err := r.v.write(ctx, func(st *state) error {
		o, ok := st.occupations[id]
		if !ok || o.Status != from {
			return nil
		}
		if to == models.OccupationStatusCurrent {
			for otherID, other := range st.occupations {
				if otherID != id && other.UnitID == o.UnitID && other.Status == models.OccupationStatusCurrent {
					return fmt.Errorf("%w: unit already has a current occupation", utils.ErrConflict)
				}
			}
		}
		o.Status = to
		if endDate != nil {
			d := *endDate
			o.EndDate = &d
		}
		o.RowVersion++
		o.UpdatedAt = time.Now().UTC()
		st.occupations[id] = o
		moved = true
		return nil
	})
	return moved, err
}

// LockOccupation is a no-op: transactions already run one at a time.
func (r *occupationRepo) LockOccupation(ctx context.Context, _ uuid.UUID) error {
	return r.v.read(ctx, func(*state) error { return nil })
}

/* ---------- bookings ---------- */

type bookingRepo struct{ v view }

func (r *bookingRepo) Create(ctx context.Context, b *models.Booking) error {
	return r.v.write(ctx, func(st *state) error {
		if _, ok := st.bookings[b.ID]; ok {
			return fmt.Errorf("%w: booking %s", utils.ErrConflict, b.ID)
		}
		stamp(&b.CreatedAt)
		st.bookings[b.ID] = *b
		return nil
	})
}

func (r *bookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var out *models.Booking
	err := r.v.read(ctx, func(st *state) error {
		if b, ok := st.bookings[id]; ok {
			out = &b
		}
		return nil
	})
	return out, err
}

func (r *bookingRepo) ListByUnitID(ctx context.Context, unitID uuid.UUID) ([]*models.Booking, error) {
	var out []*models.Booking
	err := r.v.read(ctx, func(st *state) error {
		for _, b := range st.bookings {
			if b.UnitID == unitID {
				b := b
				out = append(out, &b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *bookingRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.v.write(ctx, func(st *state) error {
		if _, ok := st.bookings[id]; ok {
			delete(st.bookings, id)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

/* ---------- notices ---------- */

type noticeRepo struct{ v view }

func (r *noticeRepo) Create(ctx context.Context, n *models.Notice) error {
	return r.v.write(ctx, func(st *state) error {
		if _, ok := st.notices[n.ID]; ok {
			return fmt.Errorf("%w: notice %s", utils.ErrConflict, n.ID)
		}
		stamp(&n.CreatedAt)
		n.UpdatedAt = n.CreatedAt
		n.RowVersion = 1
		st.notices[n.ID] = *n
		return nil
	})
}

func (r *noticeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Notice, error) {
	var out *models.Notice
	err := r.v.read(ctx, func(st *state) error {
		if n, ok := st.notices[id]; ok {
			out = &n
		}
		return nil
	})
	return out, err
}

func (r *noticeRepo) ListActiveByVacatingDate(
	ctx context.Context,
	vacatingDate time.Time,
	page repositories.TimePage,
) ([]*models.Notice, error) {
	var out []*models.Notice
	err := r.v.read(ctx, func(st *state) error {
		for _, n := range st.notices {
			if !n.IsActive || !utils.DateOnly(n.VacatingDate).Equal(utils.DateOnly(vacatingDate)) {
				continue
			}
			if page.After != nil && compareCursor(n.CreatedAt, n.ID, *page.After) >= 0 {
				continue
			}
			n := n
			out = append(out, &n)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return limitPage(out, page.Limit), err
}

func (r *noticeRepo) ExistsActiveForOccupation(ctx context.Context, occupationID uuid.UUID) (bool, error) {
	var exists bool
	err := r.v.read(ctx, func(st *state) error {
		for _, n := range st.notices {
			if n.OccupationID == occupationID && n.IsActive {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *noticeRepo) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	var flipped bool
	err := r.v.write(ctx, func(st *state) error {
		n, ok := st.notices[id]
		if !ok || !n.IsActive {
			return nil
		}
		n.IsActive = false
		n.RowVersion++
		n.UpdatedAt = time.Now().UTC()
		st.notices[id] = n
		flipped = true
		return nil
	})
	return flipped, err
}
