package quote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/payment"
	"github.com/odyssey-erp/precifica/internal/platform/httpx"
	"github.com/odyssey-erp/precifica/internal/shared"
)

type quoteService interface {
	PriceLines(inputs []LineInput, multiplier decimal.Decimal, label string) ([]LineItem, error)
	AggregateInternalCosts(hidden []HiddenCost, materials []InternalUseMaterial, multiplier decimal.Decimal) (Aggregate, error)
	BuildPaymentPlan(total decimal.Decimal, cfg payment.Config) (payment.Plan, error)
	PriceQuote(ctx context.Context, in PriceQuoteInput) (Quote, error)
	GetQuote(ctx context.Context, id uuid.UUID) (Quote, error)
	ListQuotes(ctx context.Context, companyID int64, page, perPage int) (Page, error)
	RepriceQuote(ctx context.Context, id uuid.UUID, expectedVersion int64) (Quote, error)
	UpdateLine(ctx context.Context, id uuid.UUID, sequence int, edit LineEdit, expectedVersion int64) (Quote, error)
	RemoveLine(ctx context.Context, id uuid.UUID, sequence int, expectedVersion int64) (Quote, error)
}

// Handler exposes quote pricing over JSON.
type Handler struct {
	logger    *slog.Logger
	service   quoteService
	validator *validator.Validate
}

// NewHandler constructs a quote HTTP handler.
func NewHandler(logger *slog.Logger, service quoteService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers the /quotes routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/lines/price", h.priceLines)
	r.Post("/internal-costs", h.internalCosts)
	r.Post("/payment-plan", h.paymentPlan)
	r.Get("/", h.listQuotes)
	r.Post("/", h.priceQuote)
	r.Get("/{id}", h.getQuote)
	r.Post("/{id}/reprice", h.repriceQuote)
	r.Patch("/{id}/lines/{seq}", h.updateLine)
	r.Delete("/{id}/lines/{seq}", h.removeLine)
}

type priceLinesRequest struct {
	Multiplier decimal.Decimal `json:"multiplier"`
	Label      string          `json:"label" validate:"max=200"`
	Lines      []LineInput     `json:"lines" validate:"required,min=1,max=500"`
}

type internalCostsRequest struct {
	Multiplier        decimal.Decimal       `json:"multiplier"`
	HiddenCosts       []HiddenCost          `json:"hidden_costs" validate:"max=200"`
	InternalMaterials []InternalUseMaterial `json:"internal_materials" validate:"max=500"`
}

type paymentPlanRequest struct {
	Total   decimal.Decimal `json:"total"`
	Payment payment.Config  `json:"payment"`
}

type priceQuoteRequest struct {
	CompanyID         int64                 `json:"company_id" validate:"required,gt=0"`
	ProfileID         int64                 `json:"profile_id" validate:"gte=0"`
	Year              int                   `json:"year" validate:"omitempty,gte=1900,lte=9999"`
	Month             int                   `json:"month" validate:"omitempty,gte=1,lte=12"`
	CustomerName      string                `json:"customer_name" validate:"max=200"`
	Lines             []LineInput           `json:"lines" validate:"required,min=1,max=500"`
	HiddenCosts       []HiddenCost          `json:"hidden_costs" validate:"max=200"`
	InternalMaterials []InternalUseMaterial `json:"internal_materials" validate:"max=500"`
	Payment           *payment.Config       `json:"payment"`
}

type repriceRequest struct {
	Version int64 `json:"version" validate:"gte=0"`
}

type updateLineRequest struct {
	Quantity      *decimal.Decimal `json:"quantity"`
	BaseUnitPrice *decimal.Decimal `json:"base_unit_price"`
	SellUnitPrice *decimal.Decimal `json:"sell_unit_price"`
	Version       int64            `json:"version" validate:"gte=0"`
}

type linesResponse struct {
	Lines []LineItem      `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func (h *Handler) priceLines(w http.ResponseWriter, r *http.Request) {
	var req priceLinesRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	lines, err := h.service.PriceLines(req.Lines, req.Multiplier, req.Label)
	if err != nil {
		h.respondError(w, r, "price lines", err)
		return
	}
	httpx.JSON(w, http.StatusOK, linesResponse{Lines: lines, Total: SumLines(lines)})
}

func (h *Handler) internalCosts(w http.ResponseWriter, r *http.Request) {
	var req internalCostsRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	agg, err := h.service.AggregateInternalCosts(req.HiddenCosts, req.InternalMaterials, req.Multiplier)
	if err != nil {
		h.respondError(w, r, "aggregate internal costs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, agg)
}

func (h *Handler) paymentPlan(w http.ResponseWriter, r *http.Request) {
	var req paymentPlanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	plan, err := h.service.BuildPaymentPlan(req.Total, req.Payment)
	if err != nil {
		h.respondError(w, r, "build payment plan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

func (h *Handler) priceQuote(w http.ResponseWriter, r *http.Request) {
	var req priceQuoteRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.PriceQuote(r.Context(), PriceQuoteInput{
		CompanyID:         req.CompanyID,
		ProfileID:         req.ProfileID,
		Period:            shared.Period{Year: req.Year, Month: req.Month},
		CustomerName:      req.CustomerName,
		Lines:             req.Lines,
		HiddenCosts:       req.HiddenCosts,
		InternalMaterials: req.InternalMaterials,
		Payment:           req.Payment,
		IdempotencyKey:    r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.respondError(w, r, "price quote", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) listQuotes(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.RespondError(w, fmt.Errorf("query company_id must be a positive integer: %w", shared.ErrInvalidInput))
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	out, err := h.service.ListQuotes(r.Context(), companyID, page, perPage)
	if err != nil {
		h.respondError(w, r, "list quotes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getQuote(w http.ResponseWriter, r *http.Request) {
	id, err := quoteID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.GetQuote(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) repriceQuote(w http.ResponseWriter, r *http.Request) {
	id, err := quoteID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req repriceRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.RepriceQuote(r.Context(), id, req.Version)
	if err != nil {
		h.respondError(w, r, "reprice quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	id, seq, err := lineRef(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateLineRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.Quantity == nil && req.BaseUnitPrice == nil && req.SellUnitPrice == nil {
		httpx.RespondError(w, fmt.Errorf("line edit changes nothing: %w", shared.ErrInvalidInput))
		return
	}
	edit := LineEdit{Quantity: req.Quantity, BaseUnitPrice: req.BaseUnitPrice, SellUnitPrice: req.SellUnitPrice}
	q, err := h.service.UpdateLine(r.Context(), id, seq, edit, req.Version)
	if err != nil {
		h.respondError(w, r, "update quote line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	id, seq, err := lineRef(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var version int64
	if raw := r.URL.Query().Get("version"); raw != "" {
		version, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || version < 0 {
			httpx.RespondError(w, fmt.Errorf("query version must be a non-negative integer: %w", shared.ErrInvalidInput))
			return
		}
	}
	q, err := h.service.RemoveLine(r.Context(), id, seq, version)
	if err != nil {
		h.respondError(w, r, "remove quote line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func quoteID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid quote id %q: %w", raw, shared.ErrInvalidInput)
	}
	return id, nil
}

func lineRef(r *http.Request) (uuid.UUID, int, error) {
	id, err := quoteID(r)
	if err != nil {
		return uuid.Nil, 0, err
	}
	raw := chi.URLParam(r, "seq")
	seq, err := strconv.Atoi(raw)
	if err != nil || seq < 1 {
		return uuid.Nil, 0, fmt.Errorf("invalid line number %q: %w", raw, shared.ErrInvalidInput)
	}
	return id, seq, nil
}
