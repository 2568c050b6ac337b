package web

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/p-n-ai/pai-kids/internal/domain"
	"github.com/p-n-ai/pai-kids/internal/game"
	"github.com/p-n-ai/pai-kids/internal/report"
)

type stateResponse struct {
	Profile       domain.Profile   `json:"profile"`
	Greeting      string           `json:"greeting"`
	Subject       domain.Subject   `json:"subject,omitempty"`
	Score         int              `json:"score"`
	Streak        int              `json:"streak"`
	Answered      int              `json:"answered"`
	Unlocked      []string         `json:"unlocked"`
	PendingReward *domain.Badge    `json:"pending_reward,omitempty"`
	Subjects      []domain.Subject `json:"subjects"`
}

func newStateResponse(sess *game.Session) stateResponse {
	snap := sess.Store.Snapshot()
	resp := stateResponse{
		Profile:  snap.Profile,
		Greeting: snap.Profile.Greeting(),
		Score:    snap.State.Score,
		Streak:   snap.State.Streak,
		Answered: len(snap.State.History),
		Unlocked: snap.State.Unlocked,
		Subjects: domain.Subjects,
	}
	if subject, ok := sess.Store.ActiveSubject(); ok {
		resp.Subject = subject
	}
	if len(snap.Rewards) > 0 {
		resp.PendingReward = &snap.Rewards[0]
	}
	return resp
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(sess))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Profile string `json:"profile"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, err := domain.ParseProfile(req.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	sess.Store.SelectProfile(profile)
	writeJSON(w, http.StatusOK, newStateResponse(sess))
}

type badgeResponse struct {
	domain.Badge
	Unlocked bool `json:"unlocked"`
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	unlocked := sess.Store.Snapshot().State.Unlocked
	badges := s.manager.Catalog().Badges()
	resp := make([]badgeResponse, 0, len(badges))
	for _, b := range badges {
		resp = append(resp, badgeResponse{Badge: b, Unlocked: slices.Contains(unlocked, b.ID)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Subject string `json:"subject"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	subject, err := domain.ParseSubject(req.Subject)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	v, err := sess.Controller.Start(r.Context(), subject)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, v)
}

func (s *Server) handleCurrentRound(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	v, err := sess.Controller.Current()
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleAbandonRound(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Controller.Abandon()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	v, err := sess.Controller.Next(r.Context())
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, v)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Option string `json:"option"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := sess.Controller.Answer(chi.URLParam(r, "id"), req.Option)
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	v, err := sess.Controller.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, v)
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Controller.SpeakQuestion(chi.URLParam(r, "id")); err != nil {
		writeGameError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePendingReward(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	b, ok := sess.Store.PendingReward()
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "no pending reward")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleAckReward(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	acked, ok := sess.Store.AcknowledgeReward()
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "no pending reward")
		return
	}
	resp := map[string]any{"acknowledged": acked}
	if next, ok := sess.Store.PendingReward(); ok {
		resp["next"] = next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestSpeech(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sp, ok := sess.LatestSpeech()
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "no speech available")
		return
	}
	w.Header().Set("Content-Type", sp.Audio.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(sp.Audio.Data)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(sp.Audio.Data); err != nil {
		slog.Debug("failed to write speech", "error", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, sess.Store.Snapshot(), s.manager.Catalog()); err != nil {
		writeGameError(w, r, fmt.Errorf("build report: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="sticker-book.xlsx"`)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("failed to write report", "error", err)
	}
}
