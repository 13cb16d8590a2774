package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/veritrace/veritrace-backend/internal/events"
	"github.com/veritrace/veritrace-backend/internal/registry"
	"github.com/veritrace/veritrace-backend/pkg/clock"
	"github.com/veritrace/veritrace-backend/pkg/enums"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/types"
)

const (
	ownerPrincipal       types.Principal = "0xOwner"
	warehousePrincipal   types.Principal = "0xWarehouse"
	logisticsPrincipal   types.Principal = "0xLogistics"
	distributorPrincipal types.Principal = "0xDistributor"
	retailerPrincipal    types.Principal = "0xRetailer"
	strangerPrincipal    types.Principal = "0xStranger"
)

type fixture struct {
	service Service
	store   Store
	sink    *events.MemorySink
	clock   *clock.Fixed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg, err := registry.NewService(ownerPrincipal)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	ctx := context.Background()
	grants := map[enums.Role]types.Principal{
		enums.RoleWarehouse:   warehousePrincipal,
		enums.RoleLogistics:   logisticsPrincipal,
		enums.RoleDistributor: distributorPrincipal,
		enums.RoleRetailer:    retailerPrincipal,
	}
	for role, principal := range grants {
		if err := reg.Authorize(ctx, ownerPrincipal, role, principal); err != nil {
			t.Fatalf("granting %s: %v", role, err)
		}
	}

	store := NewMemoryStore()
	sink := events.NewMemorySink()
	fixed := clock.NewFixed(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	service, err := NewService(ServiceParams{
		Registry: reg,
		Store:    store,
		Clock:    fixed,
		Sink:     sink,
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}

	return &fixture{
		service: service,
		store:   store,
		sink:    sink,
		clock:   fixed,
	}
}

func registerInput(productID uint64) RegisterInput {
	return RegisterInput{
		ProductID:    productID,
		ProductName:  "Arabica Beans 1kg",
		Description:  "Single origin lot 42",
		Manufacturer: "Finca El Roble",
	}
}

func (f *fixture) register(t *testing.T, productID uint64) Product {
	t.Helper()
	product, err := f.service.Register(context.Background(), ownerPrincipal, registerInput(productID))
	if err != nil {
		t.Fatalf("registering product %d: %v", productID, err)
	}
	return product
}

func TestRegisterWritesManufacturerNode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.register(t, 77)
	if product.ProductID != 77 {
		t.Fatalf("expected product id 77, got %d", product.ProductID)
	}
	if product.RegisteredBy != ownerPrincipal {
		t.Fatalf("expected registered by %s, got %s", ownerPrincipal, product.RegisteredBy)
	}
	if product.IsSold {
		t.Fatal("expected new product to be unsold")
	}

	journey, err := f.service.GetJourney(ctx, 77)
	if err != nil {
		t.Fatalf("reading journey: %v", err)
	}
	if len(journey) != 1 {
		t.Fatalf("expected 1 journey node, got %d", len(journey))
	}
	first := journey[0]
	if first.NodeType != enums.NodeTypeManufacturer {
		t.Fatalf("expected manufacturer node first, got %s", first.NodeType)
	}
	if first.NodeName != "Finca El Roble" {
		t.Fatalf("expected manufacturer name as node name, got %q", first.NodeName)
	}
	if !first.Timestamp.Equal(product.RegisteredAt) {
		t.Fatal("expected manufacturer node timestamp to match registration time")
	}

	emitted := f.sink.Events()
	if len(emitted) != 1 {
		t.Fatalf("expected 1 event, got %d", len(emitted))
	}
	if emitted[0].Type != enums.EventTypeProductRegistered {
		t.Fatalf("expected %s event, got %s", enums.EventTypeProductRegistered, emitted[0].Type)
	}
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	original := f.register(t, 10)

	f.clock.Advance(time.Hour)
	duplicate := registerInput(10)
	duplicate.ProductName = "Counterfeit Beans"
	if _, err := f.service.Register(ctx, ownerPrincipal, duplicate); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}

	// Failed registration must leave the original untouched.
	stored, err := f.service.GetProduct(ctx, 10)
	if err != nil {
		t.Fatalf("reading product: %v", err)
	}
	if stored.ProductName != original.ProductName {
		t.Fatalf("expected original name %q preserved, got %q", original.ProductName, stored.ProductName)
	}
	if !stored.RegisteredAt.Equal(original.RegisteredAt) {
		t.Fatal("expected original registration time preserved")
	}
}

func TestRegisterRequiresManufacturerRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller types.Principal
	}{
		{name: "unknown principal", caller: strangerPrincipal},
		{name: "stage role without manufacturer", caller: retailerPrincipal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Register(ctx, tt.caller, registerInput(500))
			if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
				t.Fatalf("expected forbidden, got %v", err)
			}
			if _, err := f.service.GetProduct(ctx, 500); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				t.Fatal("expected no product to be created by rejected registration")
			}
		})
	}

	if len(f.sink.Events()) != 0 {
		t.Fatal("expected no events from rejected registrations")
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	zeroID := registerInput(0)
	if _, err := f.service.Register(ctx, ownerPrincipal, zeroID); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero id, got %v", err)
	}

	blankName := registerInput(5)
	blankName.ProductName = "   "
	if _, err := f.service.Register(ctx, ownerPrincipal, blankName); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
}

func TestUpdateStageAppendsInVisitOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, 1)

	visits := []struct {
		caller types.Principal
		stage  enums.Role
		node   string
	}{
		{caller: warehousePrincipal, stage: enums.RoleWarehouse, node: "Central Depot"},
		{caller: logisticsPrincipal, stage: enums.RoleLogistics, node: "Fleet 7"},
	}
	for _, v := range visits {
		f.clock.Advance(time.Hour)
		node, err := f.service.UpdateStage(ctx, v.caller, StageUpdateInput{
			ProductID: 1,
			Stage:     v.stage,
			NodeName:  v.node,
			Location:  "Quito",
		})
		if err != nil {
			t.Fatalf("updating stage %s: %v", v.stage, err)
		}
		if node.NodeType != v.stage.NodeType() {
			t.Fatalf("expected node type %s, got %s", v.stage.NodeType(), node.NodeType)
		}
	}

	journey, err := f.service.GetJourney(ctx, 1)
	if err != nil {
		t.Fatalf("reading journey: %v", err)
	}
	want := []enums.NodeType{
		enums.NodeTypeManufacturer,
		enums.NodeTypeWarehouse,
		enums.NodeTypeLogistics,
	}
	if len(journey) != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), len(journey))
	}
	for i, nodeType := range want {
		if journey[i].NodeType != nodeType {
			t.Fatalf("node %d: expected %s, got %s", i, nodeType, journey[i].NodeType)
		}
	}
	for i := 1; i < len(journey); i++ {
		if journey[i].Timestamp.Before(journey[i-1].Timestamp) {
			t.Fatalf("node %d timestamp precedes node %d", i, i-1)
		}
	}
}

func TestUpdateStageAllowsRepeatedVisits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, 2)

	// A product can bounce between warehouses before distribution.
	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Minute)
		if _, err := f.service.UpdateStage(ctx, warehousePrincipal, StageUpdateInput{
			ProductID: 2,
			Stage:     enums.RoleWarehouse,
			NodeName:  "Depot",
		}); err != nil {
			t.Fatalf("visit %d: %v", i, err)
		}
	}

	journey, err := f.service.GetJourney(ctx, 2)
	if err != nil {
		t.Fatalf("reading journey: %v", err)
	}
	if len(journey) != 4 {
		t.Fatalf("expected 4 nodes after 3 warehouse visits, got %d", len(journey))
	}
}

func TestUpdateStageRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, 3)

	tests := []struct {
		name     string
		caller   types.Principal
		input    StageUpdateInput
		wantCode pkgerrors.Code
	}{
		{
			name:     "manufacturer is not a stage",
			caller:   ownerPrincipal,
			input:    StageUpdateInput{ProductID: 3, Stage: enums.RoleManufacturer},
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name:     "unknown stage",
			caller:   warehousePrincipal,
			input:    StageUpdateInput{ProductID: 3, Stage: enums.Role("harbor")},
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name:     "caller lacks the stage role",
			caller:   warehousePrincipal,
			input:    StageUpdateInput{ProductID: 3, Stage: enums.RoleRetailer},
			wantCode: pkgerrors.CodeForbidden,
		},
		{
			name:     "unknown caller",
			caller:   strangerPrincipal,
			input:    StageUpdateInput{ProductID: 3, Stage: enums.RoleWarehouse},
			wantCode: pkgerrors.CodeForbidden,
		},
		{
			name:     "unknown product",
			caller:   warehousePrincipal,
			input:    StageUpdateInput{ProductID: 999, Stage: enums.RoleWarehouse},
			wantCode: pkgerrors.CodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.service.UpdateStage(ctx, tt.caller, tt.input); !pkgerrors.IsCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}

	// Every rejection above must leave the journey at registration length.
	journey, err := f.service.GetJourney(ctx, 3)
	if err != nil {
		t.Fatalf("reading journey: %v", err)
	}
	if len(journey) != 1 {
		t.Fatalf("expected journey unchanged at 1 node, got %d", len(journey))
	}
}

func TestMarkAsSoldIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, 4)
	f.clock.Advance(time.Hour)

	sold, err := f.service.MarkAsSold(ctx, retailerPrincipal, SaleInput{
		ProductID:    4,
		BuyerAddress: "0xBuyer",
		BuyerName:    "Jane",
		BuyerEmail:   "jane@example.com",
	})
	if err != nil {
		t.Fatalf("marking as sold: %v", err)
	}
	if !sold.IsSold {
		t.Fatal("expected product to be marked sold")
	}
	if sold.SoldAt == nil || !sold.SoldAt.Equal(f.clock.Now()) {
		t.Fatal("expected sale timestamp to be set")
	}

	// The sale flips a flag; it must not append a journey node.
	journey, err := f.service.GetJourney(ctx, 4)
	if err != nil {
		t.Fatalf("reading journey: %v", err)
	}
	if len(journey) != 1 {
		t.Fatalf("expected journey length unchanged by sale, got %d", len(journey))
	}

	// Second sale fails and leaves the original buyer intact.
	f.clock.Advance(time.Hour)
	_, err = f.service.MarkAsSold(ctx, retailerPrincipal, SaleInput{
		ProductID:    4,
		BuyerAddress: "0xOther",
		BuyerName:    "Mallory",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict on second sale, got %v", err)
	}
	stored, err := f.service.GetProduct(ctx, 4)
	if err != nil {
		t.Fatalf("reading product: %v", err)
	}
	if stored.BuyerName != "Jane" || stored.BuyerAddress != "0xBuyer" {
		t.Fatalf("expected original buyer preserved, got %q / %q", stored.BuyerName, stored.BuyerAddress)
	}
	if !stored.SoldAt.Equal(*sold.SoldAt) {
		t.Fatal("expected original sale timestamp preserved")
	}

	// Stage updates after the sale are rejected too.
	if _, err := f.service.UpdateStage(ctx, warehousePrincipal, StageUpdateInput{
		ProductID: 4,
		Stage:     enums.RoleWarehouse,
		NodeName:  "Returns Depot",
	}); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict on post-sale stage update, got %v", err)
	}
}

func TestMarkAsSoldRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, 6)

	tests := []struct {
		name     string
		caller   types.Principal
		input    SaleInput
		wantCode pkgerrors.Code
	}{
		{
			name:     "caller is not a retailer",
			caller:   distributorPrincipal,
			input:    SaleInput{ProductID: 6, BuyerAddress: "0xBuyer", BuyerName: "Jane"},
			wantCode: pkgerrors.CodeForbidden,
		},
		{
			name:     "unknown product",
			caller:   retailerPrincipal,
			input:    SaleInput{ProductID: 999, BuyerAddress: "0xBuyer", BuyerName: "Jane"},
			wantCode: pkgerrors.CodeNotFound,
		},
		{
			name:     "missing buyer address",
			caller:   retailerPrincipal,
			input:    SaleInput{ProductID: 6, BuyerName: "Jane"},
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name:     "missing buyer name",
			caller:   retailerPrincipal,
			input:    SaleInput{ProductID: 6, BuyerAddress: "0xBuyer"},
			wantCode: pkgerrors.CodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.service.MarkAsSold(ctx, tt.caller, tt.input); !pkgerrors.IsCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}

	stored, err := f.service.GetProduct(ctx, 6)
	if err != nil {
		t.Fatalf("reading product: %v", err)
	}
	if stored.IsSold {
		t.Fatal("expected product to remain unsold after rejected sales")
	}
}

func TestSinkFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sink.FailWith(pkgerrors.New(pkgerrors.CodeDependency, "broker unreachable"))

	if _, err := f.service.Register(ctx, ownerPrincipal, registerInput(8)); err != nil {
		t.Fatalf("expected registration to commit despite sink failure, got %v", err)
	}
	if _, err := f.service.GetProduct(ctx, 8); err != nil {
		t.Fatalf("expected product persisted: %v", err)
	}
}

func TestFullJourneyRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, 9)
	stages := []struct {
		caller types.Principal
		stage  enums.Role
	}{
		{warehousePrincipal, enums.RoleWarehouse},
		{logisticsPrincipal, enums.RoleLogistics},
		{distributorPrincipal, enums.RoleDistributor},
		{retailerPrincipal, enums.RoleRetailer},
	}
	for _, s := range stages {
		f.clock.Advance(30 * time.Minute)
		if _, err := f.service.UpdateStage(ctx, s.caller, StageUpdateInput{
			ProductID: 9,
			Stage:     s.stage,
			NodeName:  s.stage.String() + " hub",
		}); err != nil {
			t.Fatalf("stage %s: %v", s.stage, err)
		}
	}
	f.clock.Advance(time.Hour)
	if _, err := f.service.MarkAsSold(ctx, retailerPrincipal, SaleInput{
		ProductID:    9,
		BuyerAddress: "0xBuyer",
		BuyerName:    "Jane",
	}); err != nil {
		t.Fatalf("marking as sold: %v", err)
	}

	journey, err := f.service.GetJourney(ctx, 9)
	if err != nil {
		t.Fatalf("reading journey: %v", err)
	}
	if len(journey) != 5 {
		t.Fatalf("expected 5 journey nodes, got %d", len(journey))
	}

	emitted := f.sink.Events()
	wantTypes := []enums.EventType{
		enums.EventTypeProductRegistered,
		enums.EventTypeWarehouseUpdated,
		enums.EventTypeLogisticsUpdated,
		enums.EventTypeDistributorUpdated,
		enums.EventTypeRetailerUpdated,
		enums.EventTypeProductSold,
	}
	if len(emitted) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d", len(wantTypes), len(emitted))
	}
	for i, eventType := range wantTypes {
		if emitted[i].Type != eventType {
			t.Fatalf("event %d: expected %s, got %s", i, eventType, emitted[i].Type)
		}
	}
}

// gateStore parks the first Update call at the store boundary until released,
// letting a later mutation overtake it.
type gateStore struct {
	Store
	mu      sync.Mutex
	tripped bool
	entered chan struct{}
	release chan struct{}
}

func newGateStore(inner Store) *gateStore {
	return &gateStore{
		Store:   inner,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gateStore) Update(ctx context.Context, productID uint64, fn func(rec *Record) error) (Record, error) {
	g.mu.Lock()
	first := !g.tripped
	g.tripped = true
	g.mu.Unlock()
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Store.Update(ctx, productID, fn)
}

// steppingClock advances one second on every read.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestConcurrentMutationsKeepTimestampsOrdered(t *testing.T) {
	ctx := context.Background()

	reg, err := registry.NewService(ownerPrincipal)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	for role, principal := range map[enums.Role]types.Principal{
		enums.RoleWarehouse: warehousePrincipal,
		enums.RoleLogistics: logisticsPrincipal,
		enums.RoleRetailer:  retailerPrincipal,
	} {
		if err := reg.Authorize(ctx, ownerPrincipal, role, principal); err != nil {
			t.Fatalf("granting %s: %v", role, err)
		}
	}

	gate := newGateStore(NewMemoryStore())
	svc, err := NewService(ServiceParams{
		Registry: reg,
		Store:    gate,
		Clock:    &steppingClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		Sink:     events.NewMemorySink(),
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}

	if _, err := svc.Register(ctx, ownerPrincipal, registerInput(9)); err != nil {
		t.Fatalf("registering product: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.UpdateStage(ctx, warehousePrincipal, StageUpdateInput{
			ProductID: 9,
			Stage:     enums.RoleWarehouse,
			NodeName:  "Depot Norte",
		})
		done <- err
	}()

	// Hold the warehouse update at the store boundary while the logistics
	// update commits ahead of it.
	<-gate.entered
	if _, err := svc.UpdateStage(ctx, logisticsPrincipal, StageUpdateInput{
		ProductID: 9,
		Stage:     enums.RoleLogistics,
		NodeName:  "Carrier Andina",
	}); err != nil {
		t.Fatalf("updating logistics stage: %v", err)
	}
	close(gate.release)
	if err := <-done; err != nil {
		t.Fatalf("updating warehouse stage: %v", err)
	}

	journey, err := svc.GetJourney(ctx, 9)
	if err != nil {
		t.Fatalf("reading journey: %v", err)
	}
	if len(journey) != 3 {
		t.Fatalf("expected 3 journey nodes, got %d", len(journey))
	}
	for i := 1; i < len(journey); i++ {
		prev, cur := journey[i-1], journey[i]
		if cur.Timestamp.Before(prev.Timestamp) {
			t.Fatalf("journey timestamps inverted: node %d (%s, %s) precedes node %d (%s, %s)",
				i, cur.NodeType, cur.Timestamp.Format(time.RFC3339),
				i-1, prev.NodeType, prev.Timestamp.Format(time.RFC3339))
		}
	}

	sold, err := svc.MarkAsSold(ctx, retailerPrincipal, SaleInput{
		ProductID:    9,
		BuyerAddress: "0xBuyer",
		BuyerName:    "Jane Doe",
	})
	if err != nil {
		t.Fatalf("marking product sold: %v", err)
	}
	if sold.SoldAt == nil {
		t.Fatal("expected sold timestamp to be set")
	}
	if sold.SoldAt.Before(journey[len(journey)-1].Timestamp) {
		t.Fatalf("sold at %s predates the last journey node %s",
			sold.SoldAt.Format(time.RFC3339), journey[len(journey)-1].Timestamp.Format(time.RFC3339))
	}
}
