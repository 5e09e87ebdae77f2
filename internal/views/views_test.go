package views

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	drill, van, camera models.Asset
	alice, bob, cara   models.User
	assets             []models.Asset
	users              []models.User
	assignments        []models.Assignment
}

func newFixture() fixture {
	fx := fixture{
		drill:  models.Asset{ID: uuid.New(), Name: "Drill #1", Status: enums.AssetStatusAssigned, Category: strPtr("tools")},
		van:    models.Asset{ID: uuid.New(), Name: "Van 3", Status: enums.AssetStatusAssigned, Category: strPtr("vehicles")},
		camera: models.Asset{ID: uuid.New(), Name: "Camera", Status: enums.AssetStatusAvailable, Category: strPtr("tools")},
		alice:  models.User{ID: uuid.New(), FirstName: "Alice", LastName: "Reyes", Department: strPtr("field")},
		bob:    models.User{ID: uuid.New(), FirstName: "Bob", LastName: "Ward", Department: strPtr("office")},
		cara:   models.User{ID: uuid.New(), FirstName: "Cara", LastName: "Ibarra"},
	}
	fx.assets = []models.Asset{fx.drill, fx.van, fx.camera}
	fx.users = []models.User{fx.alice, fx.bob, fx.cara}

	closedAt := time.Now().Add(-time.Hour)
	fx.assignments = []models.Assignment{
		{ID: uuid.New(), AssetID: fx.drill.ID, UserID: fx.alice.ID, AssignedAt: time.Now()},
		{ID: uuid.New(), AssetID: fx.van.ID, UserID: fx.bob.ID, AssignedAt: time.Now().Add(-time.Minute)},
		{ID: uuid.New(), AssetID: fx.camera.ID, UserID: fx.cara.ID, AssignedAt: time.Now().Add(-2 * time.Hour), ReturnedAt: &closedAt},
	}
	return fx
}

func TestStatusPartitions(t *testing.T) {
	fx := newFixture()

	available := Available(fx.assets)
	if len(available) != 1 || available[0].Name != "Camera" {
		t.Fatalf("unexpected available partition: %+v", available)
	}
	if got := InMaintenance(fx.assets); len(got) != 0 {
		t.Fatalf("expected empty maintenance partition, got %+v", got)
	}

	counts := Counts(fx.assets)
	if counts.Available != 1 || counts.Assigned != 2 || counts.Maintenance != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestActiveHoldingsJoinsAndSkipsClosed(t *testing.T) {
	fx := newFixture()

	holdings := ActiveHoldings(fx.assets, fx.assignments, fx.users, Filters{})
	if len(holdings) != 2 {
		t.Fatalf("expected the two open custody rows, got %d", len(holdings))
	}
	if holdings[0].Asset.Name != "Drill #1" || holdings[0].Holder.ID != fx.alice.ID {
		t.Fatalf("join mismatch: %+v", holdings[0])
	}
}

func TestEmptyFilterEqualsFullUniverseFilter(t *testing.T) {
	fx := newFixture()

	none := ActiveHoldings(fx.assets, fx.assignments, fx.users, Filters{})
	full := ActiveHoldings(fx.assets, fx.assignments, fx.users, Filters{
		Categories:  []string{"tools", "vehicles", ""},
		Departments: []string{"field", "office", ""},
		UserIDs:     []uuid.UUID{fx.alice.ID, fx.bob.ID, fx.cara.ID},
	})

	if len(none) != len(full) {
		t.Fatalf("full-universe selection must behave like no filter: %d vs %d", len(none), len(full))
	}
	for i := range none {
		if none[i].Assignment.ID != full[i].Assignment.ID {
			t.Fatalf("row %d differs between no-filter and full-universe", i)
		}
	}
}

func TestFiltersNarrowBySetMembership(t *testing.T) {
	fx := newFixture()

	tools := ActiveHoldings(fx.assets, fx.assignments, fx.users, Filters{Categories: []string{"tools"}})
	if len(tools) != 1 || tools[0].Asset.Name != "Drill #1" {
		t.Fatalf("category filter mismatch: %+v", tools)
	}

	office := ActiveHoldings(fx.assets, fx.assignments, fx.users, Filters{Departments: []string{"office"}})
	if len(office) != 1 || office[0].Holder.ID != fx.bob.ID {
		t.Fatalf("department filter mismatch: %+v", office)
	}

	onlyAlice := ActiveHoldings(fx.assets, fx.assignments, fx.users, Filters{UserIDs: []uuid.UUID{fx.alice.ID}})
	if len(onlyAlice) != 1 || onlyAlice[0].Holder.ID != fx.alice.ID {
		t.Fatalf("user filter mismatch: %+v", onlyAlice)
	}

	nothing := ActiveHoldings(fx.assets, fx.assignments, fx.users, Filters{Categories: []string{"missing"}})
	if len(nothing) != 0 {
		t.Fatalf("a non-matching selection must filter everything out, got %+v", nothing)
	}
}

func TestAssetsForUser(t *testing.T) {
	fx := newFixture()

	holdings := AssetsForUser(fx.alice.ID, fx.assets, fx.assignments)
	if len(holdings) != 1 || holdings[0].Asset.Name != "Drill #1" {
		t.Fatalf("expected alice to hold the drill, got %+v", holdings)
	}
	if got := AssetsForUser(fx.cara.ID, fx.assets, fx.assignments); len(got) != 0 {
		t.Fatalf("closed custody must not count, got %+v", got)
	}
}

func TestUsersWithAssetsPreservesDirectoryOrder(t *testing.T) {
	fx := newFixture()

	got := UsersWithAssets(fx.users, fx.assignments)
	if len(got) != 2 || got[0].ID != fx.alice.ID || got[1].ID != fx.bob.ID {
		t.Fatalf("unexpected holders: %+v", got)
	}
}
