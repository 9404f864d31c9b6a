package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/acampos/colegio/internal/db"
	"github.com/acampos/colegio/internal/model"
	"github.com/acampos/colegio/internal/store"
)

var (
	assetManager = model.User{Username: "rcastro", Name: "Rosa", Surname: "Castro", Role: model.RoleAssets}
	teacher      = model.User{Username: "jperez", Name: "Juan", Surname: "Pérez", Role: model.RoleGeneral}
	teacher2     = model.User{Username: "lmora", Name: "Lucía", Surname: "Mora", Role: model.RoleGeneral}
)

func newTestInventory(t *testing.T) *Inventory {
	t.Helper()
	return NewInventory(store.New(db.NewTestDB(t)))
}

func getAsset(t *testing.T, v *Inventory, id string) model.Asset {
	t.Helper()
	assets, err := v.Assets(context.Background())
	if err != nil {
		t.Fatalf("Assets: %v", err)
	}
	for _, a := range assets {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("asset %q not found", id)
	return model.Asset{}
}

func TestAssetsSeededOnFirstAccess(t *testing.T) {
	v := newTestInventory(t)

	assets, err := v.Assets(context.Background())
	if err != nil {
		t.Fatalf("Assets: %v", err)
	}
	if len(assets) != 3 {
		t.Fatalf("expected 3 seeded assets, got %d", len(assets))
	}
	for _, a := range assets {
		if a.Status != model.AssetStatusAvailable || a.CurrentHolder != nil {
			t.Errorf("seeded asset %q must be available with no holder", a.Code)
		}
	}
}

func TestAddAssetRoundTrip(t *testing.T) {
	v := newTestInventory(t)
	ctx := context.Background()

	added, err := v.AddAsset(ctx, assetManager, model.Asset{
		Code: "MOB-003", Name: "Tablet Samsung", Type: model.AssetTypeMobile,
	})
	if err != nil {
		t.Fatalf("AddAsset: %v", err)
	}
	if added.Status != model.AssetStatusAvailable || added.CurrentHolder != nil {
		t.Errorf("new asset must start available with no holder: %+v", added)
	}

	got := getAsset(t, v, added.ID)
	if got.Code != "MOB-003" {
		t.Errorf("unexpected stored asset: %+v", got)
	}

	if err := v.DeleteAsset(ctx, assetManager, added.ID); err != nil {
		t.Fatalf("DeleteAsset: %v", err)
	}
	if err := v.DeleteAsset(ctx, assetManager, added.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAddAssetDuplicateCode(t *testing.T) {
	v := newTestInventory(t)
	ctx := context.Background()

	// MOB-001 is seeded; the check is case-insensitive.
	_, err := v.AddAsset(ctx, assetManager, model.Asset{
		Code: "mob-001", Name: "Otro laptop", Type: model.AssetTypeMobile,
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestAssignMobileAssetBecomesLoaned(t *testing.T) {
	v := newTestInventory(t)
	ctx := context.Background()

	// Asset 1 is seeded Mobile.
	if err := v.AssignAsset(ctx, assetManager, "1", teacher); err != nil {
		t.Fatalf("AssignAsset: %v", err)
	}

	a := getAsset(t, v, "1")
	if a.Status != model.AssetStatusLoaned {
		t.Errorf("mobile asset must become Loaned, got %q", a.Status)
	}
	if a.CurrentHolder == nil || a.CurrentHolder.UserID != teacher.Username || a.CurrentHolder.UserName != "Juan Pérez" {
		t.Errorf("unexpected holder: %+v", a.CurrentHolder)
	}

	txs, _ := v.Transactions(ctx, assetManager)
	if len(txs) != 1 || txs[0].Type != model.TransactionTypeLoan {
		t.Fatalf("expected one Loan transaction, got %+v", txs)
	}
	if txs[0].ReturnDate != "" {
		t.Error("fresh loan transaction must be open")
	}
}

func TestAssignImmobileAssetBecomesAssigned(t *testing.T) {
	v := newTestInventory(t)
	ctx := context.Background()

	// Asset 2 is seeded Immobile.
	if err := v.AssignAsset(ctx, assetManager, "2", teacher); err != nil {
		t.Fatalf("AssignAsset: %v", err)
	}

	a := getAsset(t, v, "2")
	if a.Status != model.AssetStatusAssigned {
		t.Errorf("immobile asset must become Assigned, got %q", a.Status)
	}

	txs, _ := v.Transactions(ctx, assetManager)
	if len(txs) != 1 || txs[0].Type != model.TransactionTypeAssignment {
		t.Errorf("expected one Assignment transaction, got %+v", txs)
	}
}

func TestAssignHeldAssetNamesStatus(t *testing.T) {
	v := newTestInventory(t)
	ctx := context.Background()

	v.AssignAsset(ctx, assetManager, "1", teacher)

	err := v.AssignAsset(ctx, assetManager, "1", teacher2)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if !strings.Contains(err.Error(), model.AssetStatusLoaned) {
		t.Errorf("error must name the current status: %v", err)
	}

	if err := v.AssignAsset(ctx, assetManager, "missing", teacher); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReturnAssetDualRecording(t *testing.T) {
	v := newTestInventory(t)
	ctx := context.Background()

	v.AssignAsset(ctx, assetManager, "1", teacher)
	if err := v.ReturnAsset(ctx, assetManager, "1"); err != nil {
		t.Fatalf("ReturnAsset: %v", err)
	}

	a := getAsset(t, v, "1")
	if a.Status != model.AssetStatusAvailable || a.CurrentHolder != nil {
		t.Errorf("returned asset must be available with no holder: %+v", a)
	}

	// The open entry is stamped AND a separate Return entry is appended.
	txs, _ := v.Transactions(ctx, assetManager)
	if len(txs) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(txs))
	}
	if txs[0].Type != model.TransactionTypeLoan || txs[0].ReturnDate == "" {
		t.Errorf("original entry must carry the return date: %+v", txs[0])
	}
	if txs[1].Type != model.TransactionTypeReturn || txs[1].UserID != teacher.Username {
		t.Errorf("unexpected Return entry: %+v", txs[1])
	}

	if err := v.ReturnAsset(ctx, assetManager, "1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState returning an available asset, got %v", err)
	}
}

func TestReassignAfterReturn(t *testing.T) {
	v := newTestInventory(t)
	ctx := context.Background()

	v.AssignAsset(ctx, assetManager, "1", teacher)
	v.ReturnAsset(ctx, assetManager, "1")
	if err := v.AssignAsset(ctx, assetManager, "1", teacher2); err != nil {
		t.Fatalf("AssignAsset after return: %v", err)
	}

	// Ledger order: loan #1, return #1, loan #2.
	txs, _ := v.Transactions(ctx, assetManager)
	if len(txs) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(txs))
	}
	want := []string{model.TransactionTypeLoan, model.TransactionTypeReturn, model.TransactionTypeLoan}
	for i, tx := range txs {
		if tx.Type != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], tx.Type)
		}
	}

	a := getAsset(t, v, "1")
	if a.CurrentHolder == nil || a.CurrentHolder.UserID != teacher2.Username {
		t.Errorf("holder must reflect the second user only: %+v", a.CurrentHolder)
	}
}

func TestDeleteHeldAssetRefused(t *testing.T) {
	v := newTestInventory(t)
	ctx := context.Background()

	v.AssignAsset(ctx, assetManager, "1", teacher)
	if err := v.DeleteAsset(ctx, assetManager, "1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState deleting a loaned asset, got %v", err)
	}

	// Maintenance assets can be deleted.
	if err := v.SetMaintenance(ctx, assetManager, "3"); err != nil {
		t.Fatalf("SetMaintenance: %v", err)
	}
	if err := v.DeleteAsset(ctx, assetManager, "3"); err != nil {
		t.Errorf("DeleteAsset on maintenance asset: %v", err)
	}
}

func TestMaintenanceTransitions(t *testing.T) {
	v := newTestInventory(t)
	ctx := context.Background()

	if err := v.SetMaintenance(ctx, assetManager, "1"); err != nil {
		t.Fatalf("SetMaintenance: %v", err)
	}
	if a := getAsset(t, v, "1"); a.Status != model.AssetStatusMaintenance {
		t.Errorf("expected Maintenance, got %q", a.Status)
	}

	// A maintenance asset cannot be handed out.
	if err := v.AssignAsset(ctx, assetManager, "1", teacher); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	if err := v.EndMaintenance(ctx, assetManager, "1"); err != nil {
		t.Fatalf("EndMaintenance: %v", err)
	}
	if a := getAsset(t, v, "1"); a.Status != model.AssetStatusAvailable {
		t.Errorf("expected Available, got %q", a.Status)
	}

	// A loaned asset cannot go straight to maintenance.
	v.AssignAsset(ctx, assetManager, "1", teacher)
	if err := v.SetMaintenance(ctx, assetManager, "1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestUpdateAssetMetadata(t *testing.T) {
	v := newTestInventory(t)
	ctx := context.Background()

	name := "Laptop HP Pavilion 15"
	updated, err := v.UpdateAsset(ctx, assetManager, "1", AssetPatch{Name: &name})
	if err != nil {
		t.Fatalf("UpdateAsset: %v", err)
	}
	if updated.Name != name || updated.Status != model.AssetStatusAvailable {
		t.Errorf("unexpected updated asset: %+v", updated)
	}

	// Codes stay unique.
	code := "INM-001"
	if _, err := v.UpdateAsset(ctx, assetManager, "1", AssetPatch{Code: &code}); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// Type cannot flip while the asset is held.
	v.AssignAsset(ctx, assetManager, "1", teacher)
	immobile := model.AssetTypeImmobile
	if _, err := v.UpdateAsset(ctx, assetManager, "1", AssetPatch{Type: &immobile}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestInventoryRoleGating(t *testing.T) {
	v := newTestInventory(t)
	ctx := context.Background()

	if _, err := v.AddAsset(ctx, teacher, model.Asset{Code: "X", Name: "x", Type: model.AssetTypeMobile}); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := v.AssignAsset(ctx, teacher, "1", teacher2); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := v.Transactions(ctx, teacher); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	// Admin passes the same gate.
	if err := v.AssignAsset(ctx, admin, "1", teacher); err != nil {
		t.Errorf("admin should manage assets: %v", err)
	}
}
