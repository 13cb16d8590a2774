package controllers

import (
	"net/http"

	"github.com/veritrace/veritrace-backend/api/responses"
	"github.com/veritrace/veritrace-backend/internal/tracker"
	"github.com/veritrace/veritrace-backend/pkg/clock"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/qr"
)

// ProductQR renders a QR label for an existing product. Public read.
func ProductQR(svc tracker.Service, gen *qr.Generator, clk clock.Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || gen == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "qr service unavailable"))
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

		dataURL, err := gen.DataURL(qr.Payload{
			ProductID: product.ProductID,
			Timestamp: clk.Now(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rendering qr code"))
			return
		}

		responses.WriteSuccess(w, productQRResponse{
			ProductID: product.ProductID,
			QRCode:    dataURL,
		})
	}
}

type productQRResponse struct {
	ProductID uint64 `json:"productId"`
	QRCode    string `json:"qrCode"`
}
