package tracker

import (
	"time"

	"github.com/veritrace/veritrace-backend/pkg/enums"
	"github.com/veritrace/veritrace-backend/pkg/types"
)

// Product is one tracked item. Once sold the record is immutable.
type Product struct {
	ProductID    uint64          `json:"productId"`
	ProductName  string          `json:"productName"`
	Description  string          `json:"description,omitempty"`
	Manufacturer string          `json:"manufacturer"`
	RegisteredBy types.Principal `json:"registeredBy"`
	RegisteredAt time.Time       `json:"registeredAt"`
	IsSold       bool            `json:"isSold"`
	BuyerAddress string          `json:"buyerAddress,omitempty"`
	BuyerName    string          `json:"buyerName,omitempty"`
	BuyerEmail   string          `json:"buyerEmail,omitempty"`
	SoldAt       *time.Time      `json:"soldAt,omitempty"`
}

// JourneyNode is one append-only entry in a product's supply-chain history.
// Index 0 is always the manufacturer node written at registration.
type JourneyNode struct {
	NodeType  enums.NodeType `json:"nodeType"`
	NodeName  string         `json:"nodeName"`
	Location  string         `json:"location"`
	Timestamp time.Time      `json:"timestamp"`
	Notes     string         `json:"notes,omitempty"`
}

// Record pairs a product with its journey. The store hands copies outward;
// only Update callbacks see the live record.
type Record struct {
	Product Product
	Journey []JourneyNode
}

func (r Record) clone() Record {
	out := Record{Product: r.Product}
	if r.Product.SoldAt != nil {
		soldAt := *r.Product.SoldAt
		out.Product.SoldAt = &soldAt
	}
	out.Journey = make([]JourneyNode, len(r.Journey))
	copy(out.Journey, r.Journey)
	return out
}
