package rooms

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/watchparty/internal/application/room"
	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/hilthontt/watchparty/internal/infrastructure/json"
	"github.com/hilthontt/watchparty/internal/infrastructure/logging"
	"github.com/hilthontt/watchparty/internal/presentation/utils"
	"go.uber.org/zap"
)

type Handler struct {
	room   room.UseCase
	logger *zap.SugaredLogger
}

func NewHandler(room room.UseCase, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		room:   room,
		logger: logging.For(logger, logging.RequestResponse, logging.Mutation),
	}
}

func (h *Handler) JoinHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.Read(w, r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	res, err := h.room.Join(r.Context(), req.Username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.SetAuthToken(w, res.User.ID)
	json.Write(w, http.StatusCreated, joinResponse{
		UserID:    res.User.ID,
		Username:  res.User.Username,
		RoomState: res.State,
	})
}

func (h *Handler) LeaveHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.room.Leave(r.Context(), utils.UserID(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	state, err := h.room.GetRoomState(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	json.Write(w, http.StatusOK, state)
}

func (h *Handler) UpdateVideoHandler(w http.ResponseWriter, r *http.Request) {
	var req updateVideoRequest
	if err := json.Decode(w, r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.room.UpdateVideoState(r.Context(), utils.UserID(r.Context()), req.toDomain()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) NextVideoHandler(w http.ResponseWriter, r *http.Request) {
	state, err := h.room.NextVideo(r.Context(), utils.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	json.Write(w, http.StatusOK, state)
}

func (h *Handler) GetQueueHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.room.Queue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	json.Write(w, http.StatusOK, queueResponse{Queue: items})
}

func (h *Handler) AddToQueueHandler(w http.ResponseWriter, r *http.Request) {
	var req addToQueueRequest
	if err := json.Decode(w, r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	item, err := h.room.AddToQueue(r.Context(), utils.UserID(r.Context()), room.AddToQueueInput{
		VideoID:        req.VideoID,
		VideoURL:       req.VideoURL,
		VideoTitle:     req.VideoTitle,
		VideoDuration:  req.VideoDuration,
		VideoThumbnail: req.VideoThumbnail,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	json.Write(w, http.StatusCreated, item)
}

func (h *Handler) RemoveFromQueueHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil {
		json.WriteBadRequestError(w, "itemId must be an integer")
		return
	}

	if err := h.room.RemoveFromQueue(r.Context(), utils.UserID(r.Context()), itemID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ReorderQueueHandler(w http.ResponseWriter, r *http.Request) {
	var req reorderQueueRequest
	if err := json.Decode(w, r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.room.ReorderQueue(r.Context(), utils.UserID(r.Context()), req.Positions); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		json.WriteBadRequestError(w, "limit must be an integer")
		return
	}
	offset, err := intQuery(r, "offset")
	if err != nil {
		json.WriteBadRequestError(w, "offset must be an integer")
		return
	}

	messages, err := h.room.GetMessages(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	json.Write(w, http.StatusOK, messagesResponse{Messages: messages})
}

func (h *Handler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.Read(w, r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	msg, err := h.room.SendMessage(r.Context(), utils.UserID(r.Context()), req.Content, req.MessageType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	json.Write(w, http.StatusCreated, msg)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		json.WriteValidationError(w, err)
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrQueueItemNotFound),
		errors.Is(err, domain.ErrQueueEmpty):
		json.WriteNotFoundError(w, err)
	default:
		h.logger.Errorw("request failed",
			logging.Params(map[logging.ExtraKey]any{
				logging.Method:       r.Method,
				logging.Path:         r.URL.Path,
				logging.UserID:       utils.UserID(r.Context()),
				logging.ErrorMessage: err.Error(),
			})...,
		)
		json.WriteInternalError(w, err)
	}
}

// intQuery returns 0 when the parameter is absent.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
