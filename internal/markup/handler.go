package markup

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/precifica/internal/history"
	"github.com/odyssey-erp/precifica/internal/platform/httpx"
	"github.com/odyssey-erp/precifica/internal/shared"
)

type markupService interface {
	Compute(rates RateInputs) (Result, error)
	ResolveHistorical(ctx context.Context, companyID int64, period shared.Period) (history.Result, error)
	GetProfile(ctx context.Context, id int64) (Profile, error)
	GetProfileByPeriod(ctx context.Context, companyID int64, period shared.Period) (Profile, error)
	ListProfiles(ctx context.Context, companyID int64) ([]Profile, error)
	ConfigureManual(ctx context.Context, in ConfigureManualInput) (Profile, error)
	ConfigureHistorical(ctx context.Context, in ConfigureHistoricalInput) (Profile, error)
	MoveProfilePeriod(ctx context.Context, in MovePeriodInput) (Profile, error)
	UpdateNotes(ctx context.Context, in UpdateNotesInput) (Profile, error)
	CloseProfile(ctx context.Context, id int64) (Profile, error)
	ReopenProfile(ctx context.Context, id int64) (Profile, error)
}

// Handler exposes markup profiles over JSON.
type Handler struct {
	logger    *slog.Logger
	service   markupService
	validator *validator.Validate
}

// NewHandler constructs a markup HTTP handler.
func NewHandler(logger *slog.Logger, service markupService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator()}
}

// MountRoutes registers the /markup routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/compute", h.compute)
	r.Get("/history", h.resolveHistory)
	r.Route("/profiles", func(r chi.Router) {
		r.Get("/", h.listProfiles)
		r.Get("/by-period", h.getProfileByPeriod)
		r.Put("/manual", h.configureManual)
		r.Put("/historical", h.configureHistorical)
		r.Get("/{id}", h.getProfile)
		r.Patch("/{id}/period", h.movePeriod)
		r.Patch("/{id}/notes", h.updateNotes)
		r.Post("/{id}/close", h.closeProfile)
		r.Post("/{id}/reopen", h.reopenProfile)
	})
}

type manualRequest struct {
	CompanyID int64      `json:"company_id" validate:"required,gt=0"`
	Year      int        `json:"year" validate:"required,gte=1900,lte=9999"`
	Month     int        `json:"month" validate:"required,gte=1,lte=12"`
	Rates     RateInputs `json:"rates"`
	Notes     *string    `json:"notes"`
	Version   int64      `json:"version" validate:"gte=0"`
}

type historicalRequest struct {
	CompanyID     int64           `json:"company_id" validate:"required,gt=0"`
	Year          int             `json:"year" validate:"required,gte=1900,lte=9999"`
	Month         int             `json:"month" validate:"required,gte=1,lte=12"`
	Taxes         TaxRates        `json:"taxes"`
	FinancialRate decimal.Decimal `json:"financial_rate"`
	ProfitRate    decimal.Decimal `json:"profit_rate"`
	Notes         *string         `json:"notes"`
	Version       int64           `json:"version" validate:"gte=0"`
}

type movePeriodRequest struct {
	Year    int   `json:"year" validate:"required,gte=1900,lte=9999"`
	Month   int   `json:"month" validate:"required,gte=1,lte=12"`
	Version int64 `json:"version" validate:"gte=0"`
}

type notesRequest struct {
	Notes   string `json:"notes" validate:"max=2000"`
	Version int64  `json:"version" validate:"gte=0"`
}

type profileResponse struct {
	Profile
	Label string `json:"label"`
}

func newProfileResponse(p Profile) profileResponse {
	return profileResponse{Profile: p, Label: p.Label()}
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request) {
	var req RateInputs
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Compute(req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) resolveHistory(w http.ResponseWriter, r *http.Request) {
	companyID, period, err := periodFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.ResolveHistorical(r.Context(), companyID, period)
	if err != nil {
		h.respondError(w, r, "resolve historical ratio", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	companyID, err := int64Query(r, "company_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	profiles, err := h.service.ListProfiles(r.Context(), companyID)
	if err != nil {
		h.respondError(w, r, "list profiles", err)
		return
	}
	out := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, newProfileResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getProfileByPeriod(w http.ResponseWriter, r *http.Request) {
	companyID, period, err := periodFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.GetProfileByPeriod(r.Context(), companyID, period)
	if err != nil {
		h.respondError(w, r, "get profile by period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newProfileResponse(profile))
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newProfileResponse(profile))
}

func (h *Handler) configureManual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.ConfigureManual(r.Context(), ConfigureManualInput{
		CompanyID:       req.CompanyID,
		Period:          shared.Period{Year: req.Year, Month: req.Month},
		Rates:           req.Rates,
		Notes:           req.Notes,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		h.respondError(w, r, "configure manual markup", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newProfileResponse(profile))
}

func (h *Handler) configureHistorical(w http.ResponseWriter, r *http.Request) {
	var req historicalRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.ConfigureHistorical(r.Context(), ConfigureHistoricalInput{
		CompanyID:       req.CompanyID,
		Period:          shared.Period{Year: req.Year, Month: req.Month},
		Taxes:           req.Taxes,
		FinancialRate:   req.FinancialRate,
		ProfitRate:      req.ProfitRate,
		Notes:           req.Notes,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		h.respondError(w, r, "configure historical markup", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newProfileResponse(profile))
}

func (h *Handler) movePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req movePeriodRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.MoveProfilePeriod(r.Context(), MovePeriodInput{
		ID:              id,
		Period:          shared.Period{Year: req.Year, Month: req.Month},
		ExpectedVersion: req.Version,
	})
	if err != nil {
		h.respondError(w, r, "move profile period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newProfileResponse(profile))
}

func (h *Handler) updateNotes(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req notesRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.UpdateNotes(r.Context(), UpdateNotesInput{ID: id, Notes: req.Notes, ExpectedVersion: req.Version})
	if err != nil {
		h.respondError(w, r, "update profile notes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newProfileResponse(profile))
}

func (h *Handler) closeProfile(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.CloseProfile(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "close profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newProfileResponse(profile))
}

func (h *Handler) reopenProfile(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.ReopenProfile(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "reopen profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newProfileResponse(profile))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid profile id %q: %w", raw, shared.ErrInvalidInput)
	}
	return id, nil
}

func int64Query(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("query %s must be a positive integer: %w", key, shared.ErrInvalidInput)
	}
	return v, nil
}

func periodFromQuery(r *http.Request) (int64, shared.Period, error) {
	companyID, err := int64Query(r, "company_id")
	if err != nil {
		return 0, shared.Period{}, err
	}
	year, err := int64Query(r, "year")
	if err != nil {
		return 0, shared.Period{}, err
	}
	month, err := int64Query(r, "month")
	if err != nil {
		return 0, shared.Period{}, err
	}
	period, err := shared.NewPeriod(int(year), int(month))
	if err != nil {
		return 0, shared.Period{}, err
	}
	return companyID, period, nil
}
