package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"ganymede-hq/ganymede/pkg/models"
	"ganymede-hq/ganymede/pkg/proxy/types"
)

// ModelsHandler serves /v1/models from the capability catalog.
type ModelsHandler struct {
	catalog *models.Catalog
}

// NewModelsHandler creates a ModelsHandler.
func NewModelsHandler(catalog *models.Catalog) *ModelsHandler {
	return &ModelsHandler{catalog: catalog}
}

// ServeHTTP lists the known models.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	created := time.Now().Unix()
	list := types.ModelList{Object: "list"}
	for _, m := range h.catalog.List(r.Context()) {
		list.Data = append(list.Data, types.ModelEntry{
			ID:      m.ID,
			Object:  "model",
			Created: created,
			OwnedBy: "ganymede",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}
