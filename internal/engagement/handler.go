package engagement

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/learnhub/engagement/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

// ── Awards ──────────────────────────────────────────────

func (h *Handler) Award(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	res, err := h.service.Award(r.Context(), userID, req)
	if err != nil {
		writeError(w, err, "Failed to award points")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ── Streak ──────────────────────────────────────────────

func (h *Handler) UpdateStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	res, err := h.service.UpdateStreak(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to update streak")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ── Achievements ────────────────────────────────────────

func (h *Handler) CheckAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	unlocked, err := h.service.CheckAchievements(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to check achievements")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"unlocked": unlocked})
}

// ── Learning Events ─────────────────────────────────────

func (h *Handler) QuizCompleted(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.QuizEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	res, err := h.service.CompleteQuiz(r.Context(), userID, req.Perfect)
	if err != nil {
		writeError(w, err, "Failed to record quiz completion")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CourseCompleted(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	res, err := h.service.CompleteCourse(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to record course completion")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) StudyTime(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.StudyEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	res, err := h.service.RecordStudyTime(r.Context(), userID, req.Minutes)
	if err != nil {
		writeError(w, err, "Failed to record study time")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CertificateEarned(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	res, err := h.service.EarnCertificate(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to record certificate")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ── Leaderboard & Stats ─────────────────────────────────

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := getUserID(r); !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	metric := r.URL.Query().Get("metric")
	limit := intQueryParam(r.URL.Query(), "limit", defaultLeaderboardLimit)

	res, err := h.service.Leaderboard(r.Context(), metric, limit)
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Leaderboard unavailable"})
			return
		}
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) UserRank(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	res, err := h.service.UserRank(r.Context(), userID, r.URL.Query().Get("metric"))
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Rank unavailable"})
			return
		}
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	res, err := h.service.UserStats(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to get user stats")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ── Helpers ─────────────────────────────────────────────

func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidEventType), errors.Is(err, ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrStorageUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: fallback})
	default:
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: fallback})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
