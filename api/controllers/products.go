package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/veritrace/veritrace-backend/api/middleware"
	"github.com/veritrace/veritrace-backend/api/responses"
	"github.com/veritrace/veritrace-backend/api/validators"
	"github.com/veritrace/veritrace-backend/internal/tracker"
	"github.com/veritrace/veritrace-backend/pkg/enums"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/logger"
)

// RegisterProduct creates a ledger entry for a new product. Manufacturer
// role required.
func RegisterProduct(svc tracker.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		caller := middleware.PrincipalFromContext(r.Context())
		if caller.IsZero() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller context missing"))
			return
		}

		var payload registerProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Register(r.Context(), caller, tracker.RegisterInput{
			ProductID:    payload.ProductID,
			ProductName:  payload.ProductName,
			Description:  payload.Description,
			Manufacturer: payload.Manufacturer,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// UpdateProductStage appends a journey node for a supply-chain stage visit.
func UpdateProductStage(svc tracker.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		caller := middleware.PrincipalFromContext(r.Context())
		if caller.IsZero() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller context missing"))
			return
		}

		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stageUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stage, err := enums.ParseRole(strings.TrimSpace(payload.Stage))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stage"))
			return
		}

		node, err := svc.UpdateStage(r.Context(), caller, tracker.StageUpdateInput{
			ProductID: productID,
			Stage:     stage,
			NodeName:  payload.NodeName,
			Location:  payload.Location,
			Notes:     payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, node)
	}
}

// MarkProductSold records the terminal sale. Retailer role required.
func MarkProductSold(svc tracker.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		caller := middleware.PrincipalFromContext(r.Context())
		if caller.IsZero() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller context missing"))
			return
		}

		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload saleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.MarkAsSold(r.Context(), caller, tracker.SaleInput{
			ProductID:    productID,
			BuyerAddress: payload.BuyerAddress,
			BuyerName:    payload.BuyerName,
			BuyerEmail:   payload.BuyerEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// GetProduct returns the current product state. Public read.
func GetProduct(svc tracker.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// GetProductJourney returns the append-only journey log. Public read.
func GetProductJourney(svc tracker.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracker service unavailable"))
			return
		}

		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		journey, err := svc.GetJourney(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, journey)
	}
}

type registerProductRequest struct {
	ProductID    uint64 `json:"productId" validate:"required"`
	ProductName  string `json:"productName" validate:"required"`
	Description  string `json:"description"`
	Manufacturer string `json:"manufacturer" validate:"required"`
}

type stageUpdateRequest struct {
	Stage    string `json:"stage" validate:"required"`
	NodeName string `json:"nodeName" validate:"required"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

type saleRequest struct {
	BuyerAddress string `json:"buyerAddress" validate:"required"`
	BuyerName    string `json:"buyerName" validate:"required"`
	BuyerEmail   string `json:"buyerEmail" validate:"omitempty,email"`
}

func productIDParam(r *http.Request) (uint64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "productID"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product id must be a positive integer").
			WithDetails(map[string]string{"productID": raw})
	}
	return id, nil
}
