package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/bankroll-challenges/internal/challenge-service/dto"
	"github.com/radieske/bankroll-challenges/internal/challenge-service/repo"
	"github.com/radieske/bankroll-challenges/internal/challenge-service/service"
	"github.com/radieske/bankroll-challenges/pkg/bankroll"
)

// fakeService devolve respostas fixas e registra a última chamada
type fakeService struct {
	err error

	gotUser   string
	gotID     string
	gotFilter service.ListFilter
	gotBet    service.PlaceBetInput
	gotResult bankroll.Result
}

var created = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func challenge(id string, st repo.Status) repo.Challenge {
	return repo.Challenge{ID: id, UserID: "u1", Name: "Escada", InitialBankroll: decimal.NewFromInt(1000),
		TargetBankroll: decimal.NewFromInt(2000), Status: st, CreatedAt: created}
}

func (f *fakeService) CreateChallenge(_ context.Context, userID string, in service.CreateChallengeInput) (repo.Challenge, error) {
	f.gotUser = userID
	if f.err != nil {
		return repo.Challenge{}, f.err
	}
	c := challenge("c1", repo.StatusActive)
	c.Name = in.Name
	return c, nil
}

func (f *fakeService) ListChallenges(_ context.Context, userID string, fl service.ListFilter) ([]repo.Challenge, error) {
	f.gotUser, f.gotFilter = userID, fl
	if f.err != nil {
		return nil, f.err
	}
	return []repo.Challenge{challenge("c2", repo.StatusActive), challenge("c1", repo.StatusArchived)}, nil
}

func (f *fakeService) GetChallengeView(_ context.Context, userID, id string) (service.ChallengeView, error) {
	f.gotUser, f.gotID = userID, id
	if f.err != nil {
		return service.ChallengeView{}, f.err
	}
	bets := []repo.Bet{{ID: "b1", ChallengeID: id, Stake: decimal.NewFromInt(100), Odds: decimal.RequireFromString("1.85"),
		Result: bankroll.ResultPending, PlacedAt: created}}
	return service.BuildView(challenge(id, repo.StatusActive), bets), nil
}

func (f *fakeService) ArchiveChallenge(_ context.Context, userID, id string) (repo.Challenge, error) {
	f.gotUser, f.gotID = userID, id
	if f.err != nil {
		return repo.Challenge{}, f.err
	}
	c := challenge(id, repo.StatusArchived)
	c.EndedAt = &created
	return c, nil
}

func (f *fakeService) ReopenChallenge(_ context.Context, userID, id string) (repo.Challenge, error) {
	f.gotUser, f.gotID = userID, id
	return challenge(id, repo.StatusActive), f.err
}

func (f *fakeService) PlaceBet(_ context.Context, userID, challengeID string, in service.PlaceBetInput) (repo.Bet, error) {
	f.gotUser, f.gotID, f.gotBet = userID, challengeID, in
	if f.err != nil {
		return repo.Bet{}, f.err
	}
	return repo.Bet{ID: "b1", ChallengeID: challengeID, Stake: in.Stake, Odds: in.Odds, Result: bankroll.ResultPending, PlacedAt: created}, nil
}

func (f *fakeService) SetBetResult(_ context.Context, userID, betID string, result bankroll.Result) (repo.Bet, error) {
	f.gotUser, f.gotID, f.gotResult = userID, betID, result
	if f.err != nil {
		return repo.Bet{}, f.err
	}
	d := bankroll.DeriveBetFields(decimal.NewFromInt(100), decimal.RequireFromString("1.85"), result)
	return repo.Bet{ID: betID, ChallengeID: "c1", Stake: decimal.NewFromInt(100), Odds: decimal.RequireFromString("1.85"),
		Result: result, Payout: d.Payout, Profit: d.Profit, PlacedAt: created}, nil
}

func (f *fakeService) DeleteBet(_ context.Context, userID, betID string) error {
	f.gotUser, f.gotID = userID, betID
	return f.err
}

func newAPI(svc ChallengeService) http.Handler {
	return (&API{Log: zap.NewNop(), Svc: svc, CORSAllowOrigin: "*"}).Router()
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateChallenge(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newAPI(svc), http.MethodPost, "/v1/challenges", "u1",
		`{"name":"Escada","initial_bankroll":"1000","target_bankroll":2000}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var got dto.ChallengeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "c1" || got.InitialBankroll != "1000.00" || got.Status != "active" || svc.gotUser != "u1" {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestCreateChallenge_BadJSON(t *testing.T) {
	for _, body := range []string{`{`, `{"name":"x","initial_bankroll":"abc"}`, `{"name":"x","unknown":1}`} {
		rec := do(t, newAPI(&fakeService{}), http.MethodPost, "/v1/challenges", "u1", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestMissingUser_Unauthorized(t *testing.T) {
	h := newAPI(&fakeService{err: service.ErrUnauthenticated})
	routes := []struct{ method, path, body string }{
		{http.MethodPost, "/v1/challenges", `{}`},
		{http.MethodGet, "/v1/challenges", ""},
		{http.MethodGet, "/v1/challenges/c1", ""},
		{http.MethodPost, "/v1/challenges/c1/bets", `{}`},
		{http.MethodPut, "/v1/bets/b1/result", `{"result":"won"}`},
		{http.MethodDelete, "/v1/bets/b1", ""},
	}
	for _, rt := range routes {
		if rec := do(t, h, rt.method, rt.path, "", rt.body); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", rt.method, rt.path, rec.Code)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&service.ValidationError{Fields: map[string]string{"stake": "stake must be greater than 0"}}, http.StatusBadRequest},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrChallengeArchived, http.StatusConflict},
		{errors.New("pg down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := do(t, newAPI(&fakeService{err: tc.err}), http.MethodPost, "/v1/challenges/c1/bets", "u1", `{"stake":0,"odds":2}`)
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}

func TestValidationError_Fields(t *testing.T) {
	svc := &fakeService{err: &service.ValidationError{Fields: map[string]string{"odds": "odds must be decimal odds greater than 1"}}}
	rec := do(t, newAPI(svc), http.MethodPost, "/v1/challenges/c1/bets", "u1", `{"stake":10,"odds":1}`)

	var got dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error != "odds must be decimal odds greater than 1" || got.Fields["odds"] == "" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestListChallenges_QueryParams(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newAPI(svc), http.MethodGet, "/v1/challenges?status=archived&limit=10", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotFilter.Status != "archived" || svc.gotFilter.Limit != 10 {
		t.Fatalf("unexpected filter %+v", svc.gotFilter)
	}
	var got dto.ChallengeListResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got.Items) != 2 || got.Items[0].ID != "c2" {
		t.Fatalf("unexpected list %+v", got)
	}

	if rec := do(t, newAPI(svc), http.MethodGet, "/v1/challenges?limit=abc", "u1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestGetChallengeView(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newAPI(svc), http.MethodGet, "/v1/challenges/c9", "u1", "")
	if rec.Code != http.StatusOK || svc.gotID != "c9" {
		t.Fatalf("expected 200 for c9, got %d id=%s", rec.Code, svc.gotID)
	}
	var got dto.ChallengeViewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CurrentBankroll != "900.00" || got.Progress != 45 || len(got.Bets) != 1 || got.Bets[0].Result != "pending" {
		t.Fatalf("unexpected view %+v", got)
	}
}

func TestArchiveAndReopen(t *testing.T) {
	h := newAPI(&fakeService{})
	rec := do(t, h, http.MethodPost, "/v1/challenges/c1/archive", "u1", "")
	var got dto.ChallengeResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if rec.Code != http.StatusOK || got.Status != "archived" || got.EndedAt == nil {
		t.Fatalf("unexpected archive response %d %+v", rec.Code, got)
	}

	rec = do(t, h, http.MethodPost, "/v1/challenges/c1/reopen", "u1", "")
	got = dto.ChallengeResponse{}
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if rec.Code != http.StatusOK || got.Status != "active" || got.EndedAt != nil {
		t.Fatalf("unexpected reopen response %d %+v", rec.Code, got)
	}
}

func TestPlaceBet(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newAPI(svc), http.MethodPost, "/v1/challenges/c1/bets", "u1", `{"title":"Final","stake":"100","odds":"1.85"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	if svc.gotID != "c1" || svc.gotBet.Title != "Final" || !svc.gotBet.Odds.Equal(decimal.RequireFromString("1.85")) {
		t.Fatalf("unexpected input %+v", svc.gotBet)
	}
	var got dto.BetResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Payout != "0.00" || got.Profit != "0.00" || got.Result != "pending" {
		t.Fatalf("unexpected bet %+v", got)
	}
}

func TestSetBetResult(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newAPI(svc), http.MethodPut, "/v1/bets/b1/result", "u1", `{"result":"won"}`)
	if rec.Code != http.StatusOK || svc.gotResult != bankroll.ResultWon {
		t.Fatalf("expected 200 with won, got %d %v", rec.Code, svc.gotResult)
	}
	var got dto.BetResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Payout != "185.00" || got.Profit != "85.00" {
		t.Fatalf("unexpected bet %+v", got)
	}

	rec = do(t, newAPI(svc), http.MethodPut, "/v1/bets/b1/result", "u1", `{"result":"void"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown result, got %d", rec.Code)
	}
	var errResp dto.ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &errResp)
	if errResp.Fields["result"] != "result must be one of: pending won lost" {
		t.Fatalf("unexpected error body %+v", errResp)
	}
}

func TestDeleteBet(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newAPI(svc), http.MethodDelete, "/v1/bets/b1", "u1", "")
	if rec.Code != http.StatusNoContent || svc.gotID != "b1" {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := do(t, newAPI(&fakeService{}), http.MethodOptions, "/v1/challenges", "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "X-User-ID") {
		t.Fatal("X-User-ID must be allowed")
	}
}

func TestRecoverer(t *testing.T) {
	h := newAPI(panicService{&fakeService{}})
	rec := do(t, h, http.MethodGet, "/v1/challenges/c1", "u1", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}

type panicService struct{ *fakeService }

func (panicService) GetChallengeView(context.Context, string, string) (service.ChallengeView, error) {
	panic("boom")
}
