package controllers

import (
	"net/http"
	"strings"

	"github.com/veritrace/veritrace-backend/api/responses"
	"github.com/veritrace/veritrace-backend/api/validators"
	"github.com/veritrace/veritrace-backend/pkg/auth"
	"github.com/veritrace/veritrace-backend/pkg/clock"
	"github.com/veritrace/veritrace-backend/pkg/config"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/logger"
)

// MintDevToken issues an access token for an arbitrary principal. Only
// wired outside production so supply-chain identities can be simulated
// without a wallet integration.
func MintDevToken(cfg *config.Config, clk clock.Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload mintTokenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := auth.MintAccessToken(cfg.JWT, clk.Now(), auth.AccessTokenPayload{
			Principal: strings.TrimSpace(payload.Principal),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token"))
			return
		}

		responses.WriteSuccess(w, mintTokenResponse{
			Token:             token,
			ExpirationMinutes: cfg.JWT.ExpirationMinutes,
		})
	}
}

type mintTokenRequest struct {
	Principal string `json:"principal" validate:"required"`
}

type mintTokenResponse struct {
	Token             string `json:"token"`
	ExpirationMinutes int    `json:"expirationMinutes"`
}
