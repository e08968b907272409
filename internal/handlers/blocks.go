package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/salonora/agenda/internal/model"
	"github.com/salonora/agenda/internal/storage"
	"github.com/salonora/agenda/internal/timegrid"
)

type blockStore interface {
	Create(ctx context.Context, b *model.TimeBlock) (string, error)
	Update(ctx context.Context, b *model.TimeBlock) error
	Delete(ctx context.Context, id string) error
	ListByDate(ctx context.Context, date string) ([]model.TimeBlock, error)
}

// BlockHandler serves the admin surface for time blocks. Blocks take effect
// on the next availability check; existing appointments under a new block
// are untouched.
type BlockHandler struct {
	store  blockStore
	logger *slog.Logger
}

func NewBlockHandler(store blockStore, logger *slog.Logger) *BlockHandler {
	return &BlockHandler{store: store, logger: logger}
}

type blockRequest struct {
	BlockID        string `json:"block_id,omitempty"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Reason         string `json:"reason"`
	Type           string `json:"type"`
	ProfessionalID string `json:"professional_id"`
}

type blockItem struct {
	BlockID        string `json:"block_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Reason         string `json:"reason"`
	Type           string `json:"type"`
	ProfessionalID string `json:"professional_id,omitempty"`
}

func toBlockItem(b model.TimeBlock) blockItem {
	return blockItem{
		BlockID:        b.ID,
		Date:           b.Date,
		StartTime:      timegrid.ToTimeString(b.StartMinute),
		EndTime:        timegrid.ToTimeString(b.EndMinute),
		Reason:         b.Reason,
		Type:           string(b.Type),
		ProfessionalID: b.ProfessionalID,
	}
}

// Blocks dispatches the collection endpoint: list, create, update, delete.
func (h *BlockHandler) Blocks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodPut:
		h.update(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BlockHandler) list(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	blocks, err := h.store.ListByDate(r.Context(), date)
	if err != nil {
		h.logger.Error("list blocks failed", "date", date, "err", err)
		http.Error(w, "failed to list blocks", http.StatusInternalServerError)
		return
	}

	items := make([]blockItem, 0, len(blocks))
	for _, b := range blocks {
		items = append(items, toBlockItem(b))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"blocks": items})
}

func (h *BlockHandler) create(w http.ResponseWriter, r *http.Request) {
	block, ok := h.decodeBlock(w, r, false)
	if !ok {
		return
	}

	id, err := h.store.Create(r.Context(), &block)
	if err != nil {
		h.logger.Error("create block failed", "err", err)
		http.Error(w, "failed to create block", http.StatusInternalServerError)
		return
	}
	block.ID = id

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toBlockItem(block))
}

func (h *BlockHandler) update(w http.ResponseWriter, r *http.Request) {
	block, ok := h.decodeBlock(w, r, true)
	if !ok {
		return
	}

	if err := h.store.Update(r.Context(), &block); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "block not found", http.StatusNotFound)
			return
		}
		h.logger.Error("update block failed", "block_id", block.ID, "err", err)
		http.Error(w, "failed to update block", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toBlockItem(block))
}

func (h *BlockHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("block_id"))
	if id == "" {
		http.Error(w, "block_id is required", http.StatusBadRequest)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "block not found", http.StatusNotFound)
			return
		}
		h.logger.Error("delete block failed", "block_id", id, "err", err)
		http.Error(w, "failed to delete block", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *BlockHandler) decodeBlock(w http.ResponseWriter, r *http.Request, requireID bool) (model.TimeBlock, bool) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return model.TimeBlock{}, false
	}

	req.BlockID = strings.TrimSpace(req.BlockID)
	if requireID && req.BlockID == "" {
		http.Error(w, "block_id is required", http.StatusBadRequest)
		return model.TimeBlock{}, false
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return model.TimeBlock{}, false
	}

	startMinute, err := timegrid.ToMinutes(req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return model.TimeBlock{}, false
	}
	endMinute, err := timegrid.ToMinutes(req.EndTime)
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return model.TimeBlock{}, false
	}
	if endMinute <= startMinute {
		http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
		return model.TimeBlock{}, false
	}

	blockType := model.BlockType(req.Type)
	if req.Type == "" {
		blockType = model.BlockOther
	}
	if !blockType.Valid() {
		http.Error(w, "invalid block type", http.StatusBadRequest)
		return model.TimeBlock{}, false
	}

	return model.TimeBlock{
		ID:             req.BlockID,
		Date:           req.Date,
		StartMinute:    startMinute,
		EndMinute:      endMinute,
		Reason:         strings.TrimSpace(req.Reason),
		Type:           blockType,
		ProfessionalID: strings.TrimSpace(req.ProfessionalID),
	}, true
}
