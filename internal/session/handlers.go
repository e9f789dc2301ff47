package session

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/Jsharifz/Reprocess-King/internal/common"
	"github.com/Jsharifz/Reprocess-King/internal/market"
	"github.com/Jsharifz/Reprocess-King/internal/valuation"
	"github.com/Jsharifz/Reprocess-King/internal/view"
)

// Handler exposes the valuation endpoints.
type Handler struct {
	session  *Session
	validate *validator.Validate
	defaults valuation.Policy
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Session  *Session
	Defaults valuation.Policy
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		session:  cfg.Session,
		validate: validator.New(),
		defaults: cfg.Defaults,
	}
}

type runRequest struct {
	Input    string        `json:"input" validate:"required"`
	Side     string        `json:"side" validate:"omitempty,oneof=buy sell"`
	Recovery *float64      `json:"recovery" validate:"omitempty,gte=0,lte=1"`
	TaxRate  *float64      `json:"taxRate" validate:"omitempty,gte=0"`
	TaxMode  string        `json:"taxMode" validate:"omitempty,oneof=minerals item both"`
	Filters  *view.Filters `json:"filters" validate:"omitempty"`
}

type policyRequest struct {
	Recovery *float64 `json:"recovery" validate:"omitempty,gte=0,lte=1"`
	TaxRate  *float64 `json:"taxRate" validate:"omitempty,gte=0"`
	TaxMode  string   `json:"taxMode" validate:"omitempty,oneof=minerals item both"`
}

// Run handles POST /api/v1/valuations: the full parse, resolve, price,
// compute pipeline.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if h.session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "valuation session not configured", nil)
		return
	}
	var req runRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request", err.Error())
		return
	}

	policy := h.defaults
	if req.Side != "" {
		policy.Side = valuation.TradeSide(req.Side)
	}
	if req.Recovery != nil {
		policy.Recovery = *req.Recovery
	}
	if req.TaxRate != nil {
		policy.TaxRate = *req.TaxRate
	}
	if req.TaxMode != "" {
		policy.TaxMode = valuation.TaxMode(req.TaxMode)
	}
	if err := policy.Validate(); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	filters := h.session.CurrentFilters()
	if req.Filters != nil {
		filters = *req.Filters
	}

	result, err := h.session.Run(r.Context(), req.Input, policy, filters)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Policy handles POST /api/v1/valuations/policy: recomputing the cached rows
// under a changed recovery or tax policy without refetching prices. The
// trade side cannot change here.
func (h *Handler) Policy(w http.ResponseWriter, r *http.Request) {
	if h.session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "valuation session not configured", nil)
		return
	}
	var req policyRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request", err.Error())
		return
	}

	current := h.session.CurrentPolicy()
	recovery := current.Recovery
	taxRate := current.TaxRate
	taxMode := current.TaxMode
	if req.Recovery != nil {
		recovery = *req.Recovery
	}
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	if req.TaxMode != "" {
		taxMode = valuation.TaxMode(req.TaxMode)
	}

	result, err := h.session.Recompute(recovery, taxRate, taxMode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// View handles GET /api/v1/valuations: the current rows under optional
// filter overrides and a sort-column selection.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	if h.session == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "valuation session not configured", nil)
		return
	}
	q := r.URL.Query()

	sortColumn := q.Get("sort")
	if sortColumn != "" && !view.ValidColumn(sortColumn) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown sort column", sortColumn)
		return
	}
	dir := q.Get("dir")
	if dir != "" && !view.ValidDir(dir) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown sort direction", dir)
		return
	}
	if dir != "" && sortColumn == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "dir requires sort", nil)
		return
	}

	var filters *view.Filters
	if hasFilterParams(q) {
		f := h.session.CurrentFilters()
		if v := q.Get("excludeAmmo"); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid excludeAmmo", v)
				return
			}
			f.ExcludeAmmo = parsed
		}
		if v := q.Get("profitableOnly"); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid profitableOnly", v)
				return
			}
			f.ProfitableOnly = parsed
		}
		if v := q.Get("minRatio"); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil || parsed < 0 {
				common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid minRatio", v)
				return
			}
			f.MinRatio = parsed
		}
		filters = &f
	}

	result, err := h.session.View(filters, sortColumn, dir)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func hasFilterParams(q map[string][]string) bool {
	for _, key := range []string{"excludeAmmo", "profitableOnly", "minRatio"} {
		if _, ok := q[key]; ok {
			return true
		}
	}
	return false
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBusy):
		common.JSONError(w, http.StatusConflict, "BUSY", "a valuation run is already in progress", nil)
	case errors.Is(err, ErrNoRows):
		common.JSONError(w, http.StatusNotFound, "NO_VALUATION", "run a valuation first", nil)
	case errors.Is(err, market.ErrStale):
		common.JSONError(w, http.StatusBadGateway, "MARKET_STALE", "market data is older than the freshness bound", nil)
	case errors.Is(err, ErrMarketUnavailable):
		common.JSONError(w, http.StatusBadGateway, "MARKET_UNAVAILABLE", "market data could not be fetched", nil)
	case errors.Is(err, ErrCatalogUnavailable):
		common.JSONError(w, http.StatusServiceUnavailable, "CATALOG_UNAVAILABLE", "item catalog could not be loaded", nil)
	default:
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			status := appErr.HTTPStatus
			if status == 0 {
				status = http.StatusInternalServerError
			}
			common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
}
