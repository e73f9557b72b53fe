// Package httpapi 轮询式 JSON 接口: 客户端通过 POST 推进房间状态,
// 通过 GET /rooms/{code} 拉取快照 (比对 version 判断是否变化)。
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"blackjack-lite/blackjack"
	"blackjack-lite/internal/rooms"

	"github.com/rs/zerolog"
)

type HTTPHandler struct {
	manager  *rooms.Manager
	defaults blackjack.Settings
	logger   zerolog.Logger
}

func NewHTTPHandler(manager *rooms.Manager, defaults blackjack.Settings, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		manager:  manager,
		defaults: defaults,
		logger:   logger.With().Str("component", "httpapi").Logger(),
	}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /rooms", h.handleCreateRoom)
	mux.HandleFunc("GET /rooms/{code}", h.handleGetRoom)
	mux.HandleFunc("POST /rooms/{code}/join", h.handleJoin)
	mux.HandleFunc("POST /rooms/{code}/seat", h.handleSeat)
	mux.HandleFunc("POST /rooms/{code}/start", h.handleStart)
	mux.HandleFunc("POST /rooms/{code}/bet", h.handleBet)
	mux.HandleFunc("POST /rooms/{code}/skip", h.handleSkip)
	mux.HandleFunc("POST /rooms/{code}/action", h.handleAction)
	mux.HandleFunc("POST /rooms/{code}/end", h.handleEnd)
	mux.HandleFunc("POST /rooms/{code}/disconnect", h.handleDisconnect)
	mux.HandleFunc("POST /rooms/{code}/leave", h.handleLeave)
	mux.HandleFunc("GET /rooms/{code}/history", h.handleHistory)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type createRoomRequest struct {
	DisplayName        string `json:"displayName"`
	MaxPlayers         int    `json:"maxPlayers,omitempty"`
	BuyIn              int64  `json:"buyIn,omitempty"`
	MinBet             int64  `json:"minBet,omitempty"`
	MaxBet             int64  `json:"maxBet,omitempty"`
	TurnTimeoutSeconds int    `json:"turnTimeoutSeconds,omitempty"`
	Decks              int    `json:"decks,omitempty"`
	DealerHitsSoft17   *bool  `json:"dealerHitsSoft17,omitempty"`
	DoubleAfterSplit   *bool  `json:"doubleAfterSplit,omitempty"`
	LateSurrender      *bool  `json:"lateSurrender,omitempty"`
	AcesSplitOneCard   *bool  `json:"acesSplitOneCard,omitempty"`
	SixToFive          *bool  `json:"sixToFive,omitempty"`
	Seed               int64  `json:"seed,omitempty"`
}

func (req *createRoomRequest) settings(defaults blackjack.Settings) blackjack.Settings {
	s := defaults
	if req.MaxPlayers != 0 {
		s.MaxPlayers = req.MaxPlayers
	}
	if req.BuyIn != 0 {
		s.BuyIn = req.BuyIn
	}
	if req.MinBet != 0 {
		s.MinBet = req.MinBet
	}
	if req.MaxBet != 0 {
		s.MaxBet = req.MaxBet
	}
	if req.TurnTimeoutSeconds != 0 {
		s.TurnTimeoutSeconds = req.TurnTimeoutSeconds
	}
	if req.Decks != 0 {
		s.Rules.Decks = req.Decks
	}
	if req.DealerHitsSoft17 != nil {
		s.Rules.DealerHitsSoft17 = *req.DealerHitsSoft17
	}
	if req.DoubleAfterSplit != nil {
		s.Rules.DoubleAfterSplit = *req.DoubleAfterSplit
	}
	if req.LateSurrender != nil {
		s.Rules.LateSurrender = *req.LateSurrender
	}
	if req.AcesSplitOneCard != nil {
		s.Rules.AcesSplitOneCard = *req.AcesSplitOneCard
	}
	if req.SixToFive != nil {
		s.Rules.SixToFive = *req.SixToFive
	}
	s.Seed = req.Seed
	return s
}

type joinRequest struct {
	DisplayName string `json:"displayName"`
	Seat        int    `json:"seat,omitempty"`
}

type seatRequest struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
}

type playerRequest struct {
	PlayerID string `json:"playerId"`
}

type betRequest struct {
	PlayerID string `json:"playerId"`
	Amount   int64  `json:"amount"`
}

type actionRequest struct {
	PlayerID string `json:"playerId"`
	Action   string `json:"action"`
}

type roomResponse struct {
	Room blackjack.RoomSnapshot `json:"room"`
}

type leaveResponse struct {
	Gone bool                    `json:"gone"`
	Room *blackjack.RoomSnapshot `json:"room,omitempty"`
}

type historyResponse struct {
	Sessions []*blackjack.SessionHistory `json:"sessions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.manager.CreateRoom(r.Context(), req.settings(h.defaults), req.DisplayName)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *HTTPHandler) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	snap, err := h.manager.GetRoom(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Room: snap})
}

func (h *HTTPHandler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.manager.JoinRoom(r.Context(), r.PathValue("code"), req.DisplayName, req.Seat)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) handleSeat(w http.ResponseWriter, r *http.Request) {
	var req seatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := h.manager.ChangeSeat(r.Context(), r.PathValue("code"), req.PlayerID, req.Seat)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Room: snap})
}

func (h *HTTPHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := h.manager.StartSession(r.Context(), r.PathValue("code"), req.PlayerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Room: snap})
}

func (h *HTTPHandler) handleBet(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := h.manager.PlaceBet(r.Context(), r.PathValue("code"), req.PlayerID, req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Room: snap})
}

func (h *HTTPHandler) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := h.manager.SkipRound(r.Context(), r.PathValue("code"), req.PlayerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Room: snap})
}

func (h *HTTPHandler) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, ok := blackjack.ParseAction(req.Action)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}
	snap, err := h.manager.ProcessAction(r.Context(), r.PathValue("code"), req.PlayerID, action)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Room: snap})
}

func (h *HTTPHandler) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := h.manager.EndSession(r.Context(), r.PathValue("code"), req.PlayerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Room: snap})
}

func (h *HTTPHandler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := h.manager.MarkDisconnected(r.Context(), r.PathValue("code"), req.PlayerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Room: snap})
}

func (h *HTTPHandler) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	gone, snap, err := h.manager.LeaveRoom(r.Context(), r.PathValue("code"), req.PlayerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp := leaveResponse{Gone: gone}
	if !gone {
		resp.Room = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.manager.GetHistory(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Sessions: sessions})
}

// writeDomainError 把引擎错误类别映射到 HTTP 状态码:
// 未找到→404, 权限→403, 校验/状态/资源拒绝→400, 其余→500。
func (h *HTTPHandler) writeDomainError(w http.ResponseWriter, err error) {
	var (
		validationErr    blackjack.ValidationError
		authorizationErr blackjack.AuthorizationError
		stateErr         blackjack.StateError
		resourceErr      blackjack.ResourceError
	)
	switch {
	case errors.Is(err, blackjack.ErrRoomNotFound),
		errors.Is(err, blackjack.ErrPlayerNotFound),
		errors.Is(err, blackjack.ErrHandNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &authorizationErr):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &validationErr),
		errors.As(err, &stateErr),
		errors.As(err, &resourceErr),
		errors.Is(err, blackjack.ErrRoomFull),
		errors.Is(err, blackjack.ErrSeatTaken):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
