package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acampos/colegio/internal/model"
	"github.com/acampos/colegio/internal/store"
)

// Inventory is the asset registry and its append-only transaction ledger.
// Mobile assets are loaned, Immobile assets are assigned; the ledger entry
// type follows the asset type, never the caller's choice.
type Inventory struct {
	store *store.Store
}

// NewInventory creates the inventory service over the given store.
func NewInventory(st *store.Store) *Inventory {
	return &Inventory{store: st}
}

// seedAssets is the registry written on first access.
func seedAssets() []model.Asset {
	now := time.Now().UTC().Format(time.RFC3339)
	return []model.Asset{
		{
			ID: "1", Code: "MOB-001", Name: "Laptop HP Pavilion",
			Description: "Laptop para uso docente", Type: model.AssetTypeMobile,
			AcquisitionDate: now, Status: model.AssetStatusAvailable,
		},
		{
			ID: "2", Code: "INM-001", Name: "Escritorio Docente",
			Description: "Escritorio de madera", Type: model.AssetTypeImmobile,
			AcquisitionDate: now, Status: model.AssetStatusAvailable,
		},
		{
			ID: "3", Code: "MOB-002", Name: "Proyector Epson",
			Description: "Proyector para sala de reuniones", Type: model.AssetTypeMobile,
			AcquisitionDate: now, Status: model.AssetStatusAvailable,
		},
	}
}

// Assets returns the full registry, seeding it on first access.
func (v *Inventory) Assets(ctx context.Context) ([]model.Asset, error) {
	var assets []model.Asset
	found, err := v.store.Load(ctx, store.KeyAssets, &assets)
	if err != nil {
		return nil, err
	}
	if !found {
		assets = seedAssets()
		if err := v.store.Save(ctx, store.KeyAssets, assets); err != nil {
			return nil, err
		}
	}
	return assets, nil
}

func (v *Inventory) loadTransactions(ctx context.Context) ([]model.AssetTransaction, error) {
	var txs []model.AssetTransaction
	if _, err := v.store.Load(ctx, store.KeyTransactions, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// Transactions returns the full ledger in storage (append) order. Asset
// staff only.
func (v *Inventory) Transactions(ctx context.Context, actor model.User) ([]model.AssetTransaction, error) {
	if !model.CanManageAssets(actor.Role) {
		return nil, fmt.Errorf("%w: the transaction ledger requires the Bienes role", ErrForbidden)
	}
	return v.loadTransactions(ctx)
}

func findAsset(assets []model.Asset, id string) int {
	for i := range assets {
		if assets[i].ID == id {
			return i
		}
	}
	return -1
}

// codeTaken reports whether another asset already uses the code.
func codeTaken(assets []model.Asset, code, excludeID string) bool {
	for _, a := range assets {
		if a.ID != excludeID && strings.EqualFold(a.Code, code) {
			return true
		}
	}
	return false
}

// AddAsset registers a new asset. It always starts Available with no
// holder. The inventory code must be unique across the registry.
func (v *Inventory) AddAsset(ctx context.Context, actor model.User, asset model.Asset) (model.Asset, error) {
	if !model.CanManageAssets(actor.Role) {
		return model.Asset{}, fmt.Errorf("%w: asset management requires the Bienes role", ErrForbidden)
	}
	if asset.Code == "" || asset.Name == "" {
		return model.Asset{}, fmt.Errorf("%w: code and name required", ErrInvalidState)
	}
	if !model.ValidAssetType(asset.Type) {
		return model.Asset{}, fmt.Errorf("%w: unknown asset type %q", ErrInvalidState, asset.Type)
	}

	assets, err := v.Assets(ctx)
	if err != nil {
		return model.Asset{}, err
	}
	if codeTaken(assets, asset.Code, "") {
		return model.Asset{}, fmt.Errorf("%w: asset code %q already registered", ErrDuplicateKey, asset.Code)
	}

	asset.ID = uuid.NewString()
	asset.Status = model.AssetStatusAvailable
	asset.CurrentHolder = nil
	if asset.AcquisitionDate == "" {
		asset.AcquisitionDate = time.Now().UTC().Format(time.RFC3339)
	}

	assets = append(assets, asset)
	if err := v.store.Save(ctx, store.KeyAssets, assets); err != nil {
		return model.Asset{}, err
	}
	return asset, nil
}

// AssetPatch is a partial metadata update. Nil fields are left unchanged.
// Status and holder never move through here; they change only via
// assign, return, and maintenance.
type AssetPatch struct {
	Code            *string `json:"code,omitempty"`
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	Type            *string `json:"type,omitempty"`
	AcquisitionDate *string `json:"acquisitionDate,omitempty"`
}

// UpdateAsset applies a metadata patch to an asset. Changing the asset
// type is refused while the asset is held, since the type decides whether
// the holder is a loan or an assignment.
func (v *Inventory) UpdateAsset(ctx context.Context, actor model.User, assetID string, patch AssetPatch) (model.Asset, error) {
	if !model.CanManageAssets(actor.Role) {
		return model.Asset{}, fmt.Errorf("%w: asset management requires the Bienes role", ErrForbidden)
	}

	assets, err := v.Assets(ctx)
	if err != nil {
		return model.Asset{}, err
	}

	idx := findAsset(assets, assetID)
	if idx == -1 {
		return model.Asset{}, fmt.Errorf("%w: asset %q", ErrNotFound, assetID)
	}

	if patch.Code != nil && codeTaken(assets, *patch.Code, assetID) {
		return model.Asset{}, fmt.Errorf("%w: asset code %q already registered", ErrDuplicateKey, *patch.Code)
	}
	if patch.Type != nil {
		if !model.ValidAssetType(*patch.Type) {
			return model.Asset{}, fmt.Errorf("%w: unknown asset type %q", ErrInvalidState, *patch.Type)
		}
		held := assets[idx].Status == model.AssetStatusLoaned || assets[idx].Status == model.AssetStatusAssigned
		if held && *patch.Type != assets[idx].Type {
			return model.Asset{}, fmt.Errorf("%w: cannot change type while the asset is %s", ErrInvalidState, assets[idx].Status)
		}
	}

	a := assets[idx]
	if patch.Code != nil {
		a.Code = *patch.Code
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.Type != nil {
		a.Type = *patch.Type
	}
	if patch.AcquisitionDate != nil {
		a.AcquisitionDate = *patch.AcquisitionDate
	}
	assets[idx] = a

	if err := v.store.Save(ctx, store.KeyAssets, assets); err != nil {
		return model.Asset{}, err
	}
	return a, nil
}

// DeleteAsset removes an asset from the registry. Refused while the asset
// is loaned or assigned. Any stored photo goes with it.
func (v *Inventory) DeleteAsset(ctx context.Context, actor model.User, assetID string) error {
	if !model.CanManageAssets(actor.Role) {
		return fmt.Errorf("%w: asset management requires the Bienes role", ErrForbidden)
	}

	assets, err := v.Assets(ctx)
	if err != nil {
		return err
	}

	idx := findAsset(assets, assetID)
	if idx == -1 {
		return fmt.Errorf("%w: asset %q", ErrNotFound, assetID)
	}
	if assets[idx].Status != model.AssetStatusAvailable && assets[idx].Status != model.AssetStatusMaintenance {
		return fmt.Errorf("%w: cannot delete an asset that is %s", ErrInvalidState, assets[idx].Status)
	}

	assets = append(assets[:idx], assets[idx+1:]...)
	if err := v.store.Save(ctx, store.KeyAssets, assets); err != nil {
		return err
	}

	_ = v.store.DeleteAssetImage(ctx, assetID)
	return nil
}

// AssignAsset hands an Available asset to a holder and appends a ledger
// entry. Mobile assets become Loaned with a Loan entry; Immobile assets
// become Assigned with an Assignment entry.
func (v *Inventory) AssignAsset(ctx context.Context, actor model.User, assetID string, holder model.User) error {
	if !model.CanManageAssets(actor.Role) {
		return fmt.Errorf("%w: asset management requires the Bienes role", ErrForbidden)
	}

	assets, err := v.Assets(ctx)
	if err != nil {
		return err
	}

	idx := findAsset(assets, assetID)
	if idx == -1 {
		return fmt.Errorf("%w: asset %q", ErrNotFound, assetID)
	}
	if assets[idx].Status != model.AssetStatusAvailable {
		return fmt.Errorf("%w: asset is %s", ErrInvalidState, assets[idx].Status)
	}

	txs, err := v.loadTransactions(ctx)
	if err != nil {
		return err
	}

	status := model.AssetStatusAssigned
	txType := model.TransactionTypeAssignment
	if assets[idx].Type == model.AssetTypeMobile {
		status = model.AssetStatusLoaned
		txType = model.TransactionTypeLoan
	}

	assets[idx].Status = status
	assets[idx].CurrentHolder = &model.Holder{
		UserID:   holder.Username,
		UserName: holder.FullName(),
	}

	if err := v.store.Save(ctx, store.KeyAssets, assets); err != nil {
		return err
	}

	txs = append(txs, model.AssetTransaction{
		ID:        uuid.NewString(),
		AssetID:   assets[idx].ID,
		AssetName: assets[idx].Name,
		UserID:    holder.Username,
		UserName:  holder.FullName(),
		Type:      txType,
		Date:      time.Now().UTC().Format(time.RFC3339),
	})
	return v.store.Save(ctx, store.KeyTransactions, txs)
}

// ReturnAsset brings a held asset back to Available. The open loan or
// assignment entry gets its return date stamped AND a separate Return
// entry is appended; the ledger records the event twice. When no open
// entry exists the asset state still resets and nothing is logged.
func (v *Inventory) ReturnAsset(ctx context.Context, actor model.User, assetID string) error {
	if !model.CanManageAssets(actor.Role) {
		return fmt.Errorf("%w: asset management requires the Bienes role", ErrForbidden)
	}

	assets, err := v.Assets(ctx)
	if err != nil {
		return err
	}

	idx := findAsset(assets, assetID)
	if idx == -1 {
		return fmt.Errorf("%w: asset %q", ErrNotFound, assetID)
	}
	if assets[idx].Status == model.AssetStatusAvailable {
		return fmt.Errorf("%w: asset is already available", ErrInvalidState)
	}

	txs, err := v.loadTransactions(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)

	// First open entry in storage order. More than one open entry should
	// not happen, but nothing structurally prevents it.
	openIdx := -1
	for i, tx := range txs {
		if tx.AssetID == assetID && tx.ReturnDate == "" &&
			(tx.Type == model.TransactionTypeLoan || tx.Type == model.TransactionTypeAssignment) {
			openIdx = i
			break
		}
	}

	if openIdx != -1 {
		txs[openIdx].ReturnDate = now

		holderID, holderName := "Unknown", "Unknown"
		if h := assets[idx].CurrentHolder; h != nil {
			holderID, holderName = h.UserID, h.UserName
		}

		txs = append(txs, model.AssetTransaction{
			ID:        uuid.NewString(),
			AssetID:   assets[idx].ID,
			AssetName: assets[idx].Name,
			UserID:    holderID,
			UserName:  holderName,
			Type:      model.TransactionTypeReturn,
			Date:      now,
		})

		if err := v.store.Save(ctx, store.KeyTransactions, txs); err != nil {
			return err
		}
	}

	assets[idx].Status = model.AssetStatusAvailable
	assets[idx].CurrentHolder = nil
	return v.store.Save(ctx, store.KeyAssets, assets)
}

// SetMaintenance takes an Available asset out of service.
func (v *Inventory) SetMaintenance(ctx context.Context, actor model.User, assetID string) error {
	return v.setStatus(ctx, actor, assetID, model.AssetStatusAvailable, model.AssetStatusMaintenance)
}

// EndMaintenance puts an asset in Maintenance back into service.
func (v *Inventory) EndMaintenance(ctx context.Context, actor model.User, assetID string) error {
	return v.setStatus(ctx, actor, assetID, model.AssetStatusMaintenance, model.AssetStatusAvailable)
}

func (v *Inventory) setStatus(ctx context.Context, actor model.User, assetID, from, to string) error {
	if !model.CanManageAssets(actor.Role) {
		return fmt.Errorf("%w: asset management requires the Bienes role", ErrForbidden)
	}

	assets, err := v.Assets(ctx)
	if err != nil {
		return err
	}

	idx := findAsset(assets, assetID)
	if idx == -1 {
		return fmt.Errorf("%w: asset %q", ErrNotFound, assetID)
	}
	if assets[idx].Status != from {
		return fmt.Errorf("%w: asset is %s", ErrInvalidState, assets[idx].Status)
	}

	assets[idx].Status = to
	return v.store.Save(ctx, store.KeyAssets, assets)
}
