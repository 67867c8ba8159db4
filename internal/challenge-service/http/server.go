package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/bankroll-challenges/internal/challenge-service/dto"
	"github.com/radieske/bankroll-challenges/internal/challenge-service/repo"
	"github.com/radieske/bankroll-challenges/internal/challenge-service/service"
	"github.com/radieske/bankroll-challenges/pkg/bankroll"
)

// ChallengeService é o que a API precisa do service
type ChallengeService interface {
	CreateChallenge(ctx context.Context, userID string, in service.CreateChallengeInput) (repo.Challenge, error)
	ListChallenges(ctx context.Context, userID string, f service.ListFilter) ([]repo.Challenge, error)
	GetChallengeView(ctx context.Context, userID, id string) (service.ChallengeView, error)
	ArchiveChallenge(ctx context.Context, userID, id string) (repo.Challenge, error)
	ReopenChallenge(ctx context.Context, userID, id string) (repo.Challenge, error)
	PlaceBet(ctx context.Context, userID, challengeID string, in service.PlaceBetInput) (repo.Bet, error)
	SetBetResult(ctx context.Context, userID, betID string, result bankroll.Result) (repo.Bet, error)
	DeleteBet(ctx context.Context, userID, betID string) error
}

// API expõe os endpoints REST de desafios e apostas
type API struct {
	Log             *zap.Logger
	Svc             ChallengeService
	WS              http.Handler // hub WebSocket; opcional
	CORSAllowOrigin string
}

// Router retorna o roteador HTTP com middlewares e rotas
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(a.Log))
	r.Use(middleware.Recoverer)
	r.Use(withCORS(a.CORSAllowOrigin))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/challenges", a.createChallenge)
		r.Get("/challenges", a.listChallenges)
		r.Get("/challenges/{id}", a.getChallenge)
		r.Post("/challenges/{id}/archive", a.archiveChallenge)
		r.Post("/challenges/{id}/reopen", a.reopenChallenge)
		r.Post("/challenges/{id}/bets", a.placeBet)
		r.Put("/bets/{id}/result", a.setBetResult)
		r.Delete("/bets/{id}", a.deleteBet)
	})

	if a.WS != nil {
		r.Get("/ws", a.WS.ServeHTTP)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError traduz erros do service para status HTTP
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, service.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "missing X-User-ID header"})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "not found"})
	case errors.Is(err, service.ErrChallengeArchived):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "challenge is archived and read-only"})
	default:
		a.Log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func userID(r *http.Request) string { return r.Header.Get("X-User-ID") }

// decode lê o corpo JSON; campos desconhecidos são rejeitados
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid json: " + err.Error()})
		return false
	}
	return true
}

func (a *API) createChallenge(w http.ResponseWriter, r *http.Request) {
	if userID(r) == "" {
		a.writeError(w, r, service.ErrUnauthenticated)
		return
	}
	var req dto.CreateChallengeRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := a.Svc.CreateChallenge(r.Context(), userID(r), service.CreateChallengeInput{
		Name:            req.Name,
		Description:     req.Description,
		InitialBankroll: req.InitialBankroll,
		TargetBankroll:  req.TargetBankroll,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromChallenge(c))
}

func (a *API) listChallenges(w http.ResponseWriter, r *http.Request) {
	f := service.ListFilter{Status: r.URL.Query().Get("status")}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			a.writeError(w, r, &service.ValidationError{Fields: map[string]string{"limit": "limit must be an integer"}})
			return
		}
		f.Limit = n
	}

	out, err := a.Svc.ListChallenges(r.Context(), userID(r), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromChallenges(out))
}

func (a *API) getChallenge(w http.ResponseWriter, r *http.Request) {
	v, err := a.Svc.GetChallengeView(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromView(v))
}

func (a *API) archiveChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := a.Svc.ArchiveChallenge(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromChallenge(c))
}

func (a *API) reopenChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := a.Svc.ReopenChallenge(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromChallenge(c))
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	if userID(r) == "" {
		a.writeError(w, r, service.ErrUnauthenticated)
		return
	}
	var req dto.PlaceBetRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := a.Svc.PlaceBet(r.Context(), userID(r), chi.URLParam(r, "id"), service.PlaceBetInput{
		Title: req.Title,
		Notes: req.Notes,
		Stake: req.Stake,
		Odds:  req.Odds,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromBet(b))
}

func (a *API) setBetResult(w http.ResponseWriter, r *http.Request) {
	if userID(r) == "" {
		a.writeError(w, r, service.ErrUnauthenticated)
		return
	}
	var req dto.SetBetResultRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := bankroll.ParseResult(req.Result)
	if err != nil {
		a.writeError(w, r, service.InvalidResult())
		return
	}

	b, err := a.Svc.SetBetResult(r.Context(), userID(r), chi.URLParam(r, "id"), result)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBet(b))
}

func (a *API) deleteBet(w http.ResponseWriter, r *http.Request) {
	if err := a.Svc.DeleteBet(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
