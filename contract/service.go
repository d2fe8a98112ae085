/*
service.go - Mutation orchestration over the repository

PURPOSE:
  Every user action (create, edit amount, edit date, record payment, ...)
  flows through here as a read-transform-replace cycle:

    1. load the full aggregate
    2. run the pure engine transform on a working copy
    3. replace the whole aggregate in one write

  A failed write discards the working copy and returns the error - the
  caller can never mistake a failed edit for a committed one.

CONCURRENCY:
  Writers are serialized PER CONTRACT via a mutex map: two concurrent
  editors of the same contract apply strictly one after the other, so the
  second transform reads the first one's committed result instead of
  overwriting it. Edits to different contracts proceed independently.
*/
package contract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/solterra/cobranza/engine"
)

// Service coordinates engine transforms with the repository.
type Service struct {
	repo Repository
	log  zerolog.Logger

	// Clock supplies "today" for mora computation and defaulted
	// registration dates. Overridable in tests.
	Clock func() engine.CalendarDate

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		log:   log,
		Clock: engine.Today,
		locks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-contract write lock, creating it on first use.
func (s *Service) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// mutate runs one serialized read-transform-replace cycle.
func (s *Service) mutate(ctx context.Context, id string, fn func(*Contract) error) (*Contract, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	if err := s.repo.Replace(ctx, working); err != nil {
		// The transform is provisional until the write acknowledges.
		return nil, fmt.Errorf("replace contract %s: %w", id, err)
	}
	return working, nil
}

// =============================================================================
// CREATION
// =============================================================================

// CreateInput carries the operator-supplied contract fields.
type CreateInput struct {
	Nombre1  string
	Dni1     string
	Celular1 string
	Email1   string
	Nombre2  string
	Dni2     string
	Celular2 string
	Email2   string

	Manzana string
	Lote    string
	Metraje float64

	MontoTotal    decimal.Decimal
	FormaPago     PaymentForm
	Inicial       decimal.Decimal
	NumeroCuotas  int
	FechaRegistro engine.CalendarDate // zero value defaults to today

	OwnerID string
}

// Create validates the input, rejects duplicate parcels within the owner's
// scope, generates the installment schedule, and persists the aggregate.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Contract, error) {
	registro := in.FechaRegistro
	if registro.IsZero() {
		registro = s.Clock()
	}

	c := &Contract{
		ID:            uuid.NewString(),
		Nombre1:       strings.TrimSpace(in.Nombre1),
		Dni1:          strings.TrimSpace(in.Dni1),
		Celular1:      in.Celular1,
		Email1:        in.Email1,
		Nombre2:       strings.TrimSpace(in.Nombre2),
		Dni2:          strings.TrimSpace(in.Dni2),
		Celular2:      in.Celular2,
		Email2:        in.Email2,
		Manzana:       strings.TrimSpace(in.Manzana),
		Lote:          strings.TrimSpace(in.Lote),
		Metraje:       in.Metraje,
		MontoTotal:    in.MontoTotal,
		FormaPago:     in.FormaPago,
		Inicial:       in.Inicial,
		NumeroCuotas:  in.NumeroCuotas,
		FechaRegistro: registro,
		OwnerID:       in.OwnerID,
		Cuotas:        []engine.Installment{},
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.List(ctx, c.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	for _, other := range existing {
		if other.MatchesParcel(c.Manzana, c.Lote) {
			return nil, fmt.Errorf("manzana %s lote %s: %w", c.Manzana, c.Lote, ErrDuplicateParcel)
		}
	}

	if c.IsInstallmentSale() {
		c.Cuotas = engine.GenerateSchedule(c.Terms())
		if engine.RegularCount(c.Cuotas) == 0 {
			// Degenerate but not fatal: the contract exists with no
			// schedule and GenerateSchedule can be re-run later.
			s.log.Warn().
				Str("contract_id", c.ID).
				Str("manzana", c.Manzana).
				Str("lote", c.Lote).
				Msg("installment contract created with empty schedule")
		}
	}

	if err := s.repo.Replace(ctx, c); err != nil {
		return nil, fmt.Errorf("persist contract: %w", err)
	}
	return c, nil
}

// GenerateSchedule builds the installment list for a contract that does not
// have one yet. Regenerating an existing schedule is rejected: rows carry
// payment state that a regeneration would destroy.
func (s *Service) GenerateSchedule(ctx context.Context, id string) (*Contract, error) {
	return s.mutate(ctx, id, func(c *Contract) error {
		if !c.IsInstallmentSale() {
			return ErrNotInstallmentSale
		}
		if len(c.Cuotas) > 0 {
			return ErrScheduleExists
		}
		c.Cuotas = engine.GenerateSchedule(c.Terms())
		if engine.RegularCount(c.Cuotas) == 0 {
			return fmt.Errorf("contract %s: %w", id, engine.ErrEmptySchedule)
		}
		return nil
	})
}

// =============================================================================
// READS
// =============================================================================

func (s *Service) Get(ctx context.Context, id string) (*Contract, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]*Contract, error) {
	return s.repo.List(ctx, ownerID)
}

// Search filters the owner's contracts by parcel and by DNI or name
// substring, all matches case-insensitive.
func (s *Service) Search(ctx context.Context, ownerID, manzana, lote, query string) ([]*Contract, error) {
	all, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var out []*Contract
	for _, c := range all {
		if manzana != "" && !strings.Contains(normalize(c.Manzana), normalize(manzana)) {
			continue
		}
		if lote != "" && !strings.Contains(normalize(c.Lote), normalize(lote)) {
			continue
		}
		if query != "" && !matchesQuery(c, query) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func matchesQuery(c *Contract, query string) bool {
	q := normalize(query)
	return strings.Contains(c.Dni1, strings.TrimSpace(query)) ||
		strings.Contains(c.Dni2, strings.TrimSpace(query)) ||
		strings.Contains(normalize(c.Nombre1), q) ||
		strings.Contains(normalize(c.Nombre2), q)
}

// =============================================================================
// CLIENT DETAIL EDITS
// =============================================================================

// UpdateInput are the identity/contact/parcel fields an operator may edit
// after creation. Payment terms are deliberately absent: changing them
// would invalidate a generated schedule.
type UpdateInput struct {
	Nombre1  string
	Dni1     string
	Celular1 string
	Email1   string
	Nombre2  string
	Dni2     string
	Celular2 string
	Email2   string
	Manzana  string
	Lote     string
	Metraje  float64
}

// UpdateDetails edits client fields; the installment list is untouched.
func (s *Service) UpdateDetails(ctx context.Context, id string, in UpdateInput) (*Contract, error) {
	return s.mutate(ctx, id, func(c *Contract) error {
		c.Nombre1 = strings.TrimSpace(in.Nombre1)
		c.Dni1 = strings.TrimSpace(in.Dni1)
		c.Celular1 = in.Celular1
		c.Email1 = in.Email1
		c.Nombre2 = strings.TrimSpace(in.Nombre2)
		c.Dni2 = strings.TrimSpace(in.Dni2)
		c.Celular2 = in.Celular2
		c.Email2 = in.Email2
		c.Manzana = strings.TrimSpace(in.Manzana)
		c.Lote = strings.TrimSpace(in.Lote)
		c.Metraje = in.Metraje
		return c.Validate()
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	return s.repo.Delete(ctx, id)
}

// =============================================================================
// SCHEDULE MUTATIONS
// =============================================================================

// SetUniformAmount changes the rate of every regular installment except the
// last, which rebalances against the financed total.
func (s *Service) SetUniformAmount(ctx context.Context, id string, amount decimal.Decimal) (*Contract, error) {
	return s.mutate(ctx, id, func(c *Contract) error {
		if !c.IsInstallmentSale() {
			return ErrNotInstallmentSale
		}
		cuotas, err := engine.ApplyUniformAmount(c.Cuotas, c.Financed(), amount)
		if err != nil {
			return err
		}
		c.Cuotas = cuotas
		return nil
	})
}

// SetInstallmentAmount overrides one installment's amount, shifting the
// difference to the final installment.
func (s *Service) SetInstallmentAmount(ctx context.Context, id string, index int, amount decimal.Decimal) (*Contract, error) {
	return s.mutate(ctx, id, func(c *Contract) error {
		cuotas, err := engine.ApplySingleAmount(c.Cuotas, index, amount)
		if err != nil {
			return err
		}
		c.Cuotas = cuotas
		return nil
	})
}

// SetInstallmentDate re-dates one installment; with propagate it anchors the
// chosen date and re-aligns every later installment to month-end cadence.
func (s *Service) SetInstallmentDate(ctx context.Context, id string, index int, date engine.CalendarDate, propagate bool) (*Contract, error) {
	return s.mutate(ctx, id, func(c *Contract) error {
		var (
			cuotas []engine.Installment
			err    error
		)
		if propagate {
			cuotas, err = engine.ApplyCascadingDate(c.Cuotas, index, date)
		} else {
			cuotas, err = engine.ApplySingleDate(c.Cuotas, index, date)
		}
		if err != nil {
			return err
		}
		c.Cuotas = cuotas
		return nil
	})
}

// SetManualMora freezes one installment's late fee at an operator-chosen
// value (zero included).
func (s *Service) SetManualMora(ctx context.Context, id string, index int, amount decimal.Decimal) (*Contract, error) {
	return s.mutate(ctx, id, func(c *Contract) error {
		cuotas, err := engine.ApplyManualMora(c.Cuotas, index, amount)
		if err != nil {
			return err
		}
		c.Cuotas = cuotas
		return nil
	})
}

// MarkPaid records a payment, freezing the installment's late fee as of
// today.
func (s *Service) MarkPaid(ctx context.Context, id string, index int, paymentDate engine.CalendarDate) (*Contract, error) {
	return s.mutate(ctx, id, func(c *Contract) error {
		cuotas, err := engine.MarkPaid(c.Cuotas, index, paymentDate, s.Clock())
		if err != nil {
			return err
		}
		c.Cuotas = cuotas
		return nil
	})
}
