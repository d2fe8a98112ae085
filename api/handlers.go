/*
handlers.go - HTTP handlers for the contract and schedule API

PURPOSE:
  Exposes the installment-tracking service over REST. Handlers parse the
  request, delegate to the service layer, and serialize the resulting
  aggregate with its display values resolved as of today.

ENDPOINTS:
  Contracts:
    GET    /api/contracts                    List (optional ?userId=)
    POST   /api/contracts                    Create (generates schedule)
    GET    /api/contracts/search             Filter by manzana/lote/q
    GET    /api/contracts/{id}               Get one
    PUT    /api/contracts/{id}               Edit client details
    DELETE /api/contracts/{id}               Delete
    POST   /api/contracts/{id}/schedule      Generate a missing schedule

  Schedule:
    PUT    /api/contracts/{id}/amount            Uniform amount edit
    PUT    /api/contracts/{id}/cuotas/{n}/amount Single amount edit
    PUT    /api/contracts/{id}/cuotas/{n}/date   Date edit (propagate flag)
    PUT    /api/contracts/{id}/cuotas/{n}/mora   Manual late-fee override
    POST   /api/contracts/{id}/cuotas/{n}/payments  Record payment

  Stats:
    GET    /api/stats/monthly?year=&month=
    GET    /api/stats/projection?from=&to=

  {n} is the row's position in the cuotas list (0-based; position 0 is the
  down payment when the contract has one).

ERROR HANDLING:
  JSON envelope with status mapping:
  - 400: invalid input (amounts, dates, indexes, validation)
  - 404: unknown contract
  - 409: terminal-state conflicts (already paid, schedule exists)
  - 500: persistence failures

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/solterra/cobranza/contract"
	"github.com/solterra/cobranza/engine"
)

// Handler holds the handler dependencies.
type Handler struct {
	svc *contract.Service
	log zerolog.Logger
}

func NewHandler(svc *contract.Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns the owner's contracts, newest first.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.svc.List(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		h.writeError(w, r, "list contracts", err)
		return
	}
	h.writeContractList(w, contracts)
}

// SearchContracts filters by parcel and by DNI or name substring.
func (h *Handler) SearchContracts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	contracts, err := h.svc.Search(r.Context(),
		q.Get("userId"), q.Get("manzana"), q.Get("lote"), q.Get("q"))
	if err != nil {
		h.writeError(w, r, "search contracts", err)
		return
	}
	h.writeContractList(w, contracts)
}

// GetContract returns one contract with display values resolved.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// CreateContract validates, generates the schedule, and persists.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	in := contract.CreateInput{
		Nombre1:      req.Nombre1,
		Dni1:         req.Dni1,
		Celular1:     req.Celular1,
		Email1:       req.Email1,
		Nombre2:      req.Nombre2,
		Dni2:         req.Dni2,
		Celular2:     req.Celular2,
		Email2:       req.Email2,
		Manzana:      req.Manzana,
		Lote:         req.Lote,
		Metraje:      req.Metraje,
		MontoTotal:   req.MontoTotal,
		FormaPago:    contract.PaymentForm(req.FormaPago),
		Inicial:      req.Inicial,
		NumeroCuotas: req.NumeroCuotas,
		OwnerID:      req.UserID,
	}
	if req.FechaRegistro != "" {
		registro, err := engine.ParseLocalDate(req.FechaRegistro)
		if err != nil {
			writeErrorStatus(w, http.StatusBadRequest, "invalid fechaRegistro", err)
			return
		}
		in.FechaRegistro = registro
	}

	c, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, "create contract", err)
		return
	}

	h.log.Info().
		Str("contract_id", c.ID).
		Str("manzana", c.Manzana).
		Str("lote", c.Lote).
		Int("cuotas", len(c.Cuotas)).
		Msg("contract created")
	writeJSON(w, http.StatusCreated, toContractDTO(c, h.today()))
}

// UpdateContract edits client details; the schedule is untouched.
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	c, err := h.svc.UpdateDetails(r.Context(), chi.URLParam(r, "id"), contract.UpdateInput{
		Nombre1:  req.Nombre1,
		Dni1:     req.Dni1,
		Celular1: req.Celular1,
		Email1:   req.Email1,
		Nombre2:  req.Nombre2,
		Dni2:     req.Dni2,
		Celular2: req.Celular2,
		Email2:   req.Email2,
		Manzana:  req.Manzana,
		Lote:     req.Lote,
		Metraje:  req.Metraje,
	})
	if err != nil {
		h.writeError(w, r, "update contract", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// DeleteContract removes the aggregate and its schedule with it.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, "delete contract", err)
		return
	}
	h.log.Info().Str("contract_id", id).Msg("contract deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GenerateSchedule builds the installment list for a contract created
// without one. Regeneration of an existing schedule is a 409.
func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GenerateSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "generate schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// =============================================================================
// SCHEDULE MUTATION HANDLERS
// =============================================================================

// SetUniformAmount applies one amount to every regular row except the
// last, which rebalances to keep the financed sum exact.
func (h *Handler) SetUniformAmount(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	c, err := h.svc.SetUniformAmount(r.Context(), chi.URLParam(r, "id"), req.Monto)
	if err != nil {
		h.writeError(w, r, "set uniform amount", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// SetCuotaAmount overrides one row's amount, moving the difference to the
// final installment.
func (h *Handler) SetCuotaAmount(w http.ResponseWriter, r *http.Request) {
	index, ok := h.cuotaIndex(w, r)
	if !ok {
		return
	}
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	c, err := h.svc.SetInstallmentAmount(r.Context(), chi.URLParam(r, "id"), index, req.Monto)
	if err != nil {
		h.writeError(w, r, "set cuota amount", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// SetCuotaDate re-dates one row; with propagate=true later rows re-align
// to month-end cadence from the new anchor.
func (h *Handler) SetCuotaDate(w http.ResponseWriter, r *http.Request) {
	index, ok := h.cuotaIndex(w, r)
	if !ok {
		return
	}
	var req DateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	date, err := engine.ParseLocalDate(req.Fecha)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid fecha", err)
		return
	}
	c, err := h.svc.SetInstallmentDate(r.Context(), chi.URLParam(r, "id"), index, date, req.Propagate)
	if err != nil {
		h.writeError(w, r, "set cuota date", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// SetCuotaMora freezes one row's late fee at an operator-chosen value.
// An explicit zero waives the fee permanently.
func (h *Handler) SetCuotaMora(w http.ResponseWriter, r *http.Request) {
	index, ok := h.cuotaIndex(w, r)
	if !ok {
		return
	}
	var req MoraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	c, err := h.svc.SetManualMora(r.Context(), chi.URLParam(r, "id"), index, req.Mora)
	if err != nil {
		h.writeError(w, r, "set cuota mora", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// RecordPayment marks a row paid, freezing its late fee as of today.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	index, ok := h.cuotaIndex(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	fecha, err := engine.ParseLocalDate(req.FechaPago)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid fechaPago", err)
		return
	}
	id := chi.URLParam(r, "id")
	c, err := h.svc.MarkPaid(r.Context(), id, index, fecha)
	if err != nil {
		h.writeError(w, r, "record payment", err)
		return
	}
	h.log.Info().
		Str("contract_id", id).
		Int("cuota", index).
		Str("fecha_pago", fecha.ISO()).
		Msg("payment recorded")
	writeJSON(w, http.StatusOK, toContractDTO(c, h.today()))
}

// =============================================================================
// STATS HANDLERS
// =============================================================================

// MonthlyStats returns the collection picture for one month.
func (h *Handler) MonthlyStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid year", err)
		return
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeErrorStatus(w, http.StatusBadRequest, "invalid month", err)
		return
	}

	st, err := h.svc.MonthlyStats(r.Context(), q.Get("userId"), year, time.Month(month))
	if err != nil {
		h.writeError(w, r, "monthly stats", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyStatsDTO(st))
}

// Projection returns expected income per month over [from, to].
func (h *Handler) Projection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := engine.ParseLocalDate(q.Get("from"))
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid from date", err)
		return
	}
	to, err := engine.ParseLocalDate(q.Get("to"))
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid to date", err)
		return
	}
	if to.Before(from) {
		writeErrorStatus(w, http.StatusBadRequest, "to precedes from", nil)
		return
	}

	report, err := h.svc.Projection(r.Context(), q.Get("userId"), from, to)
	if err != nil {
		h.writeError(w, r, "projection", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectionDTO(report))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) today() engine.CalendarDate { return h.svc.Clock() }

func (h *Handler) writeContractList(w http.ResponseWriter, contracts []*contract.Contract) {
	today := h.today()
	dtos := make([]ContractDTO, 0, len(contracts))
	for _, c := range contracts {
		dtos = append(dtos, toContractDTO(c, today))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// cuotaIndex parses the {n} route parameter: the 0-based position of the
// row in the cuotas list.
func (h *Handler) cuotaIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 {
		writeErrorStatus(w, http.StatusBadRequest, "invalid cuota index", err)
		return 0, false
	}
	return n, true
}

// writeError maps a service error onto the HTTP status taxonomy.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case contract.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, contract.ErrScheduleExists) ||
		errors.Is(err, contract.ErrDuplicateParcel) ||
		errors.Is(err, engine.ErrAlreadyPaid):
		status = http.StatusConflict
	case contract.IsClientError(err) || engine.IsClientError(err) ||
		errors.Is(err, engine.ErrEmptySchedule):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("op", op).Str("path", r.URL.Path).Msg("request failed")
	}
	writeErrorStatus(w, status, op+" failed", err)
}

func writeErrorStatus(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
