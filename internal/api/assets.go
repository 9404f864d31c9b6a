package api

import (
	"log/slog"
	"net/http"

	"github.com/acampos/colegio/internal/imaging"
	"github.com/acampos/colegio/internal/model"
	"github.com/acampos/colegio/internal/service"
	"github.com/acampos/colegio/internal/store"
)

// AssetsHandler handles the physical asset endpoints.
type AssetsHandler struct {
	Inventory *service.Inventory
	Accounts  *service.Accounts
	Store     *store.Store
}

type createAssetRequest struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Type            string `json:"type"`
	AcquisitionDate string `json:"acquisitionDate"`
}

type assignAssetRequest struct {
	Username string `json:"username"`
}

// List handles GET /api/assets. The register is readable by every
// authenticated user.
func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Inventory.Assets(r.Context())
	if err != nil {
		serviceError(w, err)
		return
	}
	if assets == nil {
		assets = []model.Asset{}
	}
	jsonResponse(w, http.StatusOK, assets)
}

// Create handles POST /api/assets.
func (h *AssetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.Name == "" {
		jsonError(w, http.StatusBadRequest, "code and name required")
		return
	}
	if !model.ValidAssetType(req.Type) {
		jsonError(w, http.StatusBadRequest, "invalid asset type")
		return
	}

	asset, err := h.Inventory.AddAsset(r.Context(), actor, model.Asset{
		Code:            req.Code,
		Name:            req.Name,
		Description:     req.Description,
		Type:            req.Type,
		AcquisitionDate: req.AcquisitionDate,
	})
	if err != nil {
		serviceError(w, err)
		return
	}

	slog.Info("asset registered", "user", actor.Username, "code", asset.Code)
	jsonResponse(w, http.StatusCreated, asset)
}

// Update handles PUT /api/assets/{id}. Only descriptive fields can be
// patched; status and holder move through the assign/return endpoints.
func (h *AssetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var patch service.AssetPatch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset, err := h.Inventory.UpdateAsset(r.Context(), actor, r.PathValue("id"), patch)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// Delete handles DELETE /api/assets/{id}.
func (h *AssetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.Inventory.DeleteAsset(r.Context(), actor, r.PathValue("id")); err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "asset deleted"})
}

// Assign handles POST /api/assets/{id}/assign. The holder must be a
// registered user; mobile assets become loaned, immobile ones assigned.
func (h *AssetsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req assignAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		jsonError(w, http.StatusBadRequest, "username required")
		return
	}

	holder, err := h.Accounts.GetUser(r.Context(), req.Username)
	if err != nil {
		serviceError(w, err)
		return
	}

	assetID := r.PathValue("id")
	if err := h.Inventory.AssignAsset(r.Context(), actor, assetID, holder); err != nil {
		serviceError(w, err)
		return
	}

	slog.Info("asset handed out", "user", actor.Username, "asset", assetID, "holder", holder.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "asset assigned"})
}

// Return handles POST /api/assets/{id}/return.
func (h *AssetsHandler) Return(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	assetID := r.PathValue("id")
	if err := h.Inventory.ReturnAsset(r.Context(), actor, assetID); err != nil {
		serviceError(w, err)
		return
	}

	slog.Info("asset returned", "user", actor.Username, "asset", assetID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "asset returned"})
}

// Maintenance handles POST /api/assets/{id}/maintenance.
func (h *AssetsHandler) Maintenance(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.Inventory.SetMaintenance(r.Context(), actor, r.PathValue("id")); err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "asset under maintenance"})
}

// Restore handles POST /api/assets/{id}/restore.
func (h *AssetsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.Inventory.EndMaintenance(r.Context(), actor, r.PathValue("id")); err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "asset available"})
}

// Transactions handles GET /api/transactions.
func (h *AssetsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	txs, err := h.Inventory.Transactions(r.Context(), actor)
	if err != nil {
		serviceError(w, err)
		return
	}
	if txs == nil {
		txs = []model.AssetTransaction{}
	}
	jsonResponse(w, http.StatusOK, txs)
}

// UploadImage handles PUT /api/assets/{id}/image.
func (h *AssetsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorUser(r, h.Accounts)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if !model.CanManageAssets(actor.Role) {
		jsonError(w, http.StatusForbidden, "asset management requires the Bienes role")
		return
	}

	assetID := r.PathValue("id")
	if !h.assetExists(r, assetID) {
		jsonError(w, http.StatusNotFound, "asset not found")
		return
	}

	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	// The photo is sniffed, downscaled, and re-encoded; the client's
	// Content-Type is ignored.
	data, mime, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.SetAssetImage(r.Context(), assetID, data, mime); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	slog.Info("asset photo uploaded", "user", actor.Username, "asset", assetID, "bytes", len(data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/assets/{id}/image.
func (h *AssetsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := h.Store.AssetImage(r.Context(), r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

func (h *AssetsHandler) assetExists(r *http.Request, assetID string) bool {
	assets, err := h.Inventory.Assets(r.Context())
	if err != nil {
		return false
	}
	for _, a := range assets {
		if a.ID == assetID {
			return true
		}
	}
	return false
}
