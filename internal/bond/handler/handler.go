// Package handler exposes the bond engine over HTTP. Handlers stay thin:
// decode, delegate to the service, encode. All policy lives in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veritasor/internal/bond/models"
	"veritasor/internal/platform/middleware"
	"veritasor/internal/transport/http/shared"
	"veritasor/pkg/domain"
	dErrors "veritasor/pkg/domain-errors"
)

// Service defines the bond operations the HTTP layer delegates to.
type Service interface {
	Issue(ctx context.Context, caller domain.Identity, params models.IssueParams) (*models.Bond, error)
	Redeem(ctx context.Context, bondID domain.BondID, period string, attestedRevenue int64) (*models.RedemptionRecord, error)
	TransferOwnership(ctx context.Context, caller domain.Identity, bondID domain.BondID, newOwner domain.Identity) error
	MarkDefaulted(ctx context.Context, caller domain.Identity, bondID domain.BondID) error

	GetAdmin(ctx context.Context) (domain.Identity, error)
	GetBond(ctx context.Context, id domain.BondID) (*models.Bond, error)
	GetOwner(ctx context.Context, id domain.BondID) (domain.Identity, error)
	GetRedemption(ctx context.Context, id domain.BondID, period string) (*models.RedemptionRecord, error)
	GetTotalRedeemed(ctx context.Context, id domain.BondID) (int64, error)
	GetRemainingValue(ctx context.Context, id domain.BondID) (int64, error)
}

// Handler handles bond endpoints.
type Handler struct {
	logger       *slog.Logger
	bonds        Service
	jwtValidator middleware.JWTValidator
}

// New creates a bond Handler.
func New(bonds Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		bonds:        bonds,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the bond routes. Issuance, transfer, and default-marking
// require a bearer token; redemption and all reads are open, since redemption
// only ever pays the recorded owner.
func (h *Handler) Register(r chi.Router) {
	bondRouter := chi.NewRouter()
	bondRouter.Use(middleware.Recovery(h.logger))
	bondRouter.Use(middleware.RequestID)
	bondRouter.Use(middleware.Logger(h.logger))
	bondRouter.Use(middleware.Timeout(30 * time.Second))
	bondRouter.Use(middleware.ContentTypeJSON)

	bondRouter.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/bonds", h.handleIssue)
		r.Post("/bonds/{id}/transfer", h.handleTransfer)
		r.Post("/admin/bonds/{id}/default", h.handleMarkDefaulted)
	})

	bondRouter.Post("/bonds/{id}/redemptions", h.handleRedeem)
	bondRouter.Get("/bonds/{id}", h.handleGetBond)
	bondRouter.Get("/bonds/{id}/owner", h.handleGetOwner)
	bondRouter.Get("/bonds/{id}/redemptions/{period}", h.handleGetRedemption)
	bondRouter.Get("/bonds/{id}/total-redeemed", h.handleGetTotals)
	bondRouter.Get("/bonds/{id}/remaining-value", h.handleGetTotals)
	bondRouter.Get("/admin", h.handleGetAdmin)

	r.Mount("/", bondRouter)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := domain.Identity(middleware.GetSubject(ctx))

	var req models.IssueBondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	bond, err := h.bonds.Issue(ctx, caller, models.IssueParams{
		Issuer:            caller,
		InitialOwner:      domain.Identity(req.InitialOwner),
		FaceValue:         req.FaceValue,
		Structure:         req.Structure,
		RevenueShareBps:   req.RevenueShareBps,
		MinPayment:        req.MinPayment,
		MaxPayment:        req.MaxPayment,
		MaturityPeriods:   req.MaturityPeriods,
		AttestationSource: req.AttestationSource,
		Token:             domain.Identity(req.Token),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "bond issuance rejected",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, models.IssueBondResponse{BondID: bond.ID})
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bondID, err := bondIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req models.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rec, err := h.bonds.Redeem(ctx, bondID, req.Period, req.AttestedRevenue)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	status := models.StatusActive
	if bond, berr := h.bonds.GetBond(ctx, bondID); berr == nil && bond != nil {
		status = bond.Status
	}
	shared.WriteJSON(w, http.StatusCreated, models.RedeemResponse{
		BondID:          rec.BondID,
		Period:          rec.Period,
		AttestedRevenue: rec.AttestedRevenue,
		Amount:          rec.Amount,
		RedeemedAt:      rec.RedeemedAt,
		Status:          status,
	})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := domain.Identity(middleware.GetSubject(ctx))

	bondID, err := bondIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req models.TransferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	newOwner, err := domain.ParseIdentity(req.NewOwner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.bonds.TransferOwnership(ctx, caller, bondID, newOwner); err != nil {
		h.logger.WarnContext(ctx, "ownership transfer rejected",
			"request_id", middleware.GetRequestID(ctx),
			"bond_id", bondID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkDefaulted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := domain.Identity(middleware.GetSubject(ctx))

	bondID, err := bondIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.bonds.MarkDefaulted(ctx, caller, bondID); err != nil {
		h.logger.WarnContext(ctx, "default marking rejected",
			"request_id", middleware.GetRequestID(ctx),
			"bond_id", bondID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetBond(w http.ResponseWriter, r *http.Request) {
	bondID, err := bondIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	bond, err := h.bonds.GetBond(r.Context(), bondID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if bond == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "bond not found"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, bond)
}

func (h *Handler) handleGetOwner(w http.ResponseWriter, r *http.Request) {
	bondID, err := bondIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	owner, err := h.bonds.GetOwner(r.Context(), bondID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if owner.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "bond not found"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, models.OwnerResponse{BondID: bondID, Owner: owner})
}

func (h *Handler) handleGetRedemption(w http.ResponseWriter, r *http.Request) {
	bondID, err := bondIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	period := chi.URLParam(r, "period")

	rec, err := h.bonds.GetRedemption(r.Context(), bondID, period)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if rec == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no redemption recorded for period"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleGetTotals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bondID, err := bondIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	bond, err := h.bonds.GetBond(ctx, bondID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if bond == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "bond not found"))
		return
	}
	total, err := h.bonds.GetTotalRedeemed(ctx, bondID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, models.TotalsResponse{
		BondID:         bondID,
		TotalRedeemed:  total,
		RemainingValue: bond.FaceValue - total,
	})
}

func (h *Handler) handleGetAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.bonds.GetAdmin(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, models.AdminResponse{Admin: admin})
}

func bondIDParam(r *http.Request) (domain.BondID, error) {
	return domain.ParseBondID(chi.URLParam(r, "id"))
}
