package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/rentsync/internal/models"
	"github.com/iudanet/rentsync/internal/server/storage"
	"github.com/iudanet/rentsync/internal/validation"
	"github.com/iudanet/rentsync/pkg/api"
)

// RowsHandler принимает мутации строк и отдает их текущее состояние
type RowsHandler struct {
	logger    *slog.Logger
	storage   storage.RowStorage
	validator *validation.Payloads
}

// NewRowsHandler creates a handler for the row endpoints.
func NewRowsHandler(logger *slog.Logger, rows storage.RowStorage) *RowsHandler {
	return &RowsHandler{
		logger:    logger,
		storage:   rows,
		validator: validation.NewPayloads(),
	}
}

// Apply обрабатывает POST /api/v1/mutations
//
// 200 с новой версией строки, 409 при расхождении версий или повторном create,
// 404 если строка отсутствует, 422 если данные не прошли проверку.
func (h *RowsHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "User ID not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.MutationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode mutation", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.MutationID == "" || req.EntityID == "" {
		sendError(h.logger, w, "mutation_id and entity_id are required", http.StatusUnprocessableEntity)
		return
	}

	entityType, ok := api.EntityTypeFor(req.Collection)
	if !ok {
		sendError(h.logger, w, "unknown collection "+req.Collection, http.StatusUnprocessableEntity)
		return
	}

	op := models.Operation(req.Operation)
	if err := h.validator.Mutation(models.EntityType(entityType), op, req.Payload); err != nil {
		h.logger.WarnContext(ctx, "Mutation rejected",
			slog.String("mutation_id", req.MutationID),
			slog.String("collection", req.Collection),
			slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	row, replayed, err := h.storage.ApplyMutation(ctx, &models.Mutation{
		ID:              req.MutationID,
		UserID:          userID,
		Collection:      req.Collection,
		EntityID:        req.EntityID,
		Operation:       op,
		Payload:         req.Payload,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		status := mutationStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "Failed to apply mutation", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", status)
			return
		}
		h.logger.InfoContext(ctx, "Mutation does not match server state",
			slog.String("mutation_id", req.MutationID),
			slog.String("collection", req.Collection),
			slog.String("entity_id", req.EntityID),
			slog.Any("error", err))
		sendError(h.logger, w, err.Error(), status)
		return
	}

	h.logger.DebugContext(ctx, "Mutation applied",
		slog.String("mutation_id", req.MutationID),
		slog.String("collection", req.Collection),
		slog.String("entity_id", req.EntityID),
		slog.Int64("version", row.Version),
		slog.Bool("replayed", replayed))

	resp := rowResponse(row)
	resp.Replayed = replayed
	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Get обрабатывает GET /api/v1/rows/{collection}/{id}
//
// Удаленная строка возвращается с deleted=true, 404 только если строки не было.
func (h *RowsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "User ID not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	collection := r.PathValue("collection")
	entityID := r.PathValue("id")
	if _, ok := api.EntityTypeFor(collection); !ok || entityID == "" {
		sendError(h.logger, w, "unknown row", http.StatusNotFound)
		return
	}

	row, err := h.storage.GetRow(ctx, userID, collection, entityID)
	if err != nil {
		if errors.Is(err, storage.ErrRowNotFound) {
			sendError(h.logger, w, "row not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "Failed to get row", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, rowResponse(row), http.StatusOK)
}

func mutationStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrVersionConflict), errors.Is(err, storage.ErrRowExists):
		return http.StatusConflict
	case errors.Is(err, storage.ErrRowNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func rowResponse(row *models.Row) api.RowResponse {
	resp := api.RowResponse{
		UpdatedAt:  row.UpdatedAt,
		Collection: row.Collection,
		EntityID:   row.EntityID,
		Version:    row.Version,
		Deleted:    row.Deleted,
	}
	if !row.Deleted {
		resp.Payload = row.Payload
	}
	return resp
}
