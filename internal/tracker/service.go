package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veritrace/veritrace-backend/internal/events"
	"github.com/veritrace/veritrace-backend/internal/registry"
	"github.com/veritrace/veritrace-backend/pkg/clock"
	"github.com/veritrace/veritrace-backend/pkg/enums"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/metrics"
	"github.com/veritrace/veritrace-backend/pkg/types"
)

// Service is the ledger state machine. Every mutation is gated by the
// authorization registry and by the product's lifecycle state; reads are
// public.
type Service interface {
	Register(ctx context.Context, caller types.Principal, input RegisterInput) (Product, error)
	UpdateStage(ctx context.Context, caller types.Principal, input StageUpdateInput) (JourneyNode, error)
	MarkAsSold(ctx context.Context, caller types.Principal, input SaleInput) (Product, error)
	GetProduct(ctx context.Context, productID uint64) (Product, error)
	GetJourney(ctx context.Context, productID uint64) ([]JourneyNode, error)
}

// RegisterInput captures a manufacturer registration request.
type RegisterInput struct {
	ProductID    uint64 `json:"product_id"`
	ProductName  string `json:"product_name"`
	Description  string `json:"description"`
	Manufacturer string `json:"manufacturer"`
}

// StageUpdateInput captures a stage visit. Stage must be one of the four
// post-registration roles; repeated visits to the same stage are allowed
// until the product is sold.
type StageUpdateInput struct {
	ProductID uint64     `json:"product_id"`
	Stage     enums.Role `json:"stage"`
	NodeName  string     `json:"node_name"`
	Location  string     `json:"location"`
	Notes     string     `json:"notes"`
}

// SaleInput captures the terminal sale transition.
type SaleInput struct {
	ProductID    uint64 `json:"product_id"`
	BuyerAddress string `json:"buyer_address"`
	BuyerName    string `json:"buyer_name"`
	BuyerEmail   string `json:"buyer_email"`
}

// ServiceParams wires the ledger's collaborators.
type ServiceParams struct {
	Registry registry.Service
	Store    Store
	Clock    clock.Clock
	Sink     events.Sink
	Logger   *logger.Logger
	Metrics  *metrics.LedgerMetrics
}

type service struct {
	registry registry.Service
	store    Store
	clock    clock.Clock
	sink     events.Sink
	logg     *logger.Logger
	metrics  *metrics.LedgerMetrics
}

// NewService wires a ledger service with the provided collaborators.
func NewService(params ServiceParams) (Service, error) {
	if params.Registry == nil {
		return nil, fmt.Errorf("authorization registry required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("product store required")
	}
	if params.Clock == nil {
		return nil, fmt.Errorf("clock required")
	}
	if params.Sink == nil {
		return nil, fmt.Errorf("event sink required")
	}
	return &service{
		registry: params.Registry,
		store:    params.Store,
		clock:    params.Clock,
		sink:     params.Sink,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

func (s *service) Register(ctx context.Context, caller types.Principal, input RegisterInput) (Product, error) {
	started := s.clock.Now()

	if !s.registry.IsAuthorized(ctx, enums.RoleManufacturer, caller) {
		return Product{}, s.reject(ctx, "register",
			pkgerrors.New(pkgerrors.CodeForbidden, "not authorized as manufacturer"))
	}
	if input.ProductID == 0 {
		return Product{}, s.reject(ctx, "register",
			pkgerrors.New(pkgerrors.CodeValidation, "product id must be non-zero"))
	}
	if strings.TrimSpace(input.ProductName) == "" {
		return Product{}, s.reject(ctx, "register",
			pkgerrors.New(pkgerrors.CodeValidation, "product name is required"))
	}

	now := s.clock.Now()
	rec := Record{
		Product: Product{
			ProductID:    input.ProductID,
			ProductName:  input.ProductName,
			Description:  input.Description,
			Manufacturer: input.Manufacturer,
			RegisteredBy: caller,
			RegisteredAt: now,
		},
		// The manufacturer node is written atomically with the product;
		// every journey starts with it.
		Journey: []JourneyNode{{
			NodeType:  enums.NodeTypeManufacturer,
			NodeName:  input.Manufacturer,
			Timestamp: now,
			Notes:     input.Description,
		}},
	}

	if err := s.store.Create(ctx, rec); err != nil {
		return Product{}, s.reject(ctx, "register", err)
	}

	s.emit(ctx, enums.EventTypeProductRegistered, now, &events.ActorRef{
		Principal: caller.String(),
		Role:      enums.RoleManufacturer.String(),
	}, events.ProductRegisteredData{
		ProductID:    input.ProductID,
		ProductName:  input.ProductName,
		Manufacturer: input.Manufacturer,
		Caller:       caller.String(),
	})

	s.observe("register", started)
	return rec.Product, nil
}

func (s *service) UpdateStage(ctx context.Context, caller types.Principal, input StageUpdateInput) (JourneyNode, error) {
	started := s.clock.Now()

	if !input.Stage.IsStage() {
		return JourneyNode{}, s.reject(ctx, "update_stage",
			pkgerrors.New(pkgerrors.CodeValidation, "stage must be one of warehouse, logistics, distributor, retailer").
				WithDetails(map[string]string{"stage": input.Stage.String()}))
	}
	if !s.registry.IsAuthorized(ctx, input.Stage, caller) {
		return JourneyNode{}, s.reject(ctx, "update_stage",
			pkgerrors.New(pkgerrors.CodeForbidden, "not authorized as "+input.Stage.String()))
	}

	// The timestamp is read inside the callback so it is assigned under the
	// record lock; commit order and timestamp order cannot diverge.
	var node JourneyNode
	_, err := s.store.Update(ctx, input.ProductID, func(rec *Record) error {
		if rec.Product.IsSold {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product already sold")
		}
		node = JourneyNode{
			NodeType:  input.Stage.NodeType(),
			NodeName:  input.NodeName,
			Location:  input.Location,
			Timestamp: s.clock.Now(),
			Notes:     input.Notes,
		}
		rec.Journey = append(rec.Journey, node)
		return nil
	})
	if err != nil {
		return JourneyNode{}, s.reject(ctx, "update_stage", err)
	}

	eventType, err := enums.StageEventType(input.Stage)
	if err != nil {
		return JourneyNode{}, s.reject(ctx, "update_stage",
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving stage event"))
	}
	s.emit(ctx, eventType, node.Timestamp, &events.ActorRef{
		Principal: caller.String(),
		Role:      input.Stage.String(),
	}, events.StageUpdatedData{
		ProductID: input.ProductID,
		Stage:     input.Stage,
		NodeName:  input.NodeName,
		Location:  input.Location,
	})

	s.observe("update_stage", started)
	return node, nil
}

func (s *service) MarkAsSold(ctx context.Context, caller types.Principal, input SaleInput) (Product, error) {
	started := s.clock.Now()

	if !s.registry.IsAuthorized(ctx, enums.RoleRetailer, caller) {
		return Product{}, s.reject(ctx, "mark_as_sold",
			pkgerrors.New(pkgerrors.CodeForbidden, "not authorized as retailer"))
	}

	var soldAt time.Time
	updated, err := s.store.Update(ctx, input.ProductID, func(rec *Record) error {
		if rec.Product.IsSold {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product already sold")
		}
		if strings.TrimSpace(input.BuyerAddress) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "buyer address is required")
		}
		if strings.TrimSpace(input.BuyerName) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "buyer name is required")
		}
		// Read under the record lock so soldAt never predates a committed
		// journey node.
		soldAt = s.clock.Now()
		rec.Product.IsSold = true
		rec.Product.BuyerAddress = input.BuyerAddress
		rec.Product.BuyerName = input.BuyerName
		rec.Product.BuyerEmail = input.BuyerEmail
		rec.Product.SoldAt = &soldAt
		// The sale is a terminal flag on the product; it does not append
		// a journey node, so journey length is unaffected.
		return nil
	})
	if err != nil {
		return Product{}, s.reject(ctx, "mark_as_sold", err)
	}

	s.emit(ctx, enums.EventTypeProductSold, soldAt, &events.ActorRef{
		Principal: caller.String(),
		Role:      enums.RoleRetailer.String(),
	}, events.ProductSoldData{
		ProductID:    input.ProductID,
		BuyerAddress: input.BuyerAddress,
		BuyerName:    input.BuyerName,
		SoldAt:       soldAt,
	})

	s.observe("mark_as_sold", started)
	return updated.Product, nil
}

func (s *service) GetProduct(ctx context.Context, productID uint64) (Product, error) {
	rec, err := s.store.Get(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	return rec.Product, nil
}

func (s *service) GetJourney(ctx context.Context, productID uint64) ([]JourneyNode, error) {
	rec, err := s.store.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	return rec.Journey, nil
}

func (s *service) emit(ctx context.Context, eventType enums.EventType, occurredAt time.Time, actor *events.ActorRef, data any) {
	event, err := events.New(eventType, occurredAt, actor, data)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "ledger.event.build", err)
		}
		return
	}
	if err := s.sink.Emit(ctx, event); err != nil {
		// The mutation already committed; a sink outage must not fail it.
		if s.logg != nil {
			s.logg.Error(ctx, "ledger.event.emit", err)
		}
		return
	}
	s.metrics.IncEvent(eventType.String())
}

func (s *service) reject(ctx context.Context, operation string, err error) error {
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"operation": operation,
			"reason":    err.Error(),
		})
		s.logg.Debug(ctx, "ledger.rejected")
	}
	s.metrics.IncFailure(operation, string(pkgerrors.As(err).Code()))
	return err
}

func (s *service) observe(operation string, started time.Time) {
	s.metrics.IncSuccess(operation)
	s.metrics.ObserveDuration(operation, s.clock.Now().Sub(started))
}
