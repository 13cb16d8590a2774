package controllers

import (
	"encoding/binary"
	"net/http"

	"github.com/google/uuid"

	"github.com/veritrace/veritrace-backend/api/responses"
)

// GenerateProductID mints a random non-zero identifier clients can use
// when registering a product. The value is derived from a v4 UUID so
// collisions are as unlikely as the UUID space allows; the register
// operation still rejects duplicates.
func GenerateProductID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, generateIDResponse{ProductID: mintProductID()})
	}
}

func mintProductID() uint64 {
	for {
		id := uuid.New()
		value := binary.BigEndian.Uint64(id[:8])
		if value != 0 {
			return value
		}
	}
}

type generateIDResponse struct {
	ProductID uint64 `json:"productId"`
}
