package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/bankroll-challenges/internal/challenge-service/repo"
	"github.com/radieske/bankroll-challenges/pkg/bankroll"
	"github.com/radieske/bankroll-challenges/pkg/contracts/events"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// tempo máximo para efeitos colaterais após a escrita (cache, kafka, redis)
	sideEffectTimeout = 2 * time.Second
)

// Store define as operações de persistência usadas pelo serviço
type Store interface {
	CreateChallenge(ctx context.Context, c *repo.Challenge) error
	GetChallenge(ctx context.Context, userID, id string) (repo.Challenge, error)
	ListChallenges(ctx context.Context, userID string, f repo.ChallengeFilter) ([]repo.Challenge, error)
	SetChallengeStatus(ctx context.Context, userID, id string, status repo.Status, endedAt *time.Time) (repo.Challenge, error)
	CreateBet(ctx context.Context, b *repo.Bet) error
	GetBet(ctx context.Context, userID, id string) (repo.Bet, error)
	ListBets(ctx context.Context, challengeID string) ([]repo.Bet, error)
	UpdateBetResult(ctx context.Context, userID, betID string, result bankroll.Result, d bankroll.Derived) error
	DeleteBet(ctx context.Context, userID, betID string) error
}

// ViewCache guarda visões calculadas por (desafio, geração).
// Bump invalida todas as visões anteriores do desafio.
type ViewCache interface {
	Generation(ctx context.Context, challengeID string) (int64, error)
	Get(ctx context.Context, challengeID string, gen int64, dst any) (bool, error)
	Set(ctx context.Context, challengeID string, gen int64, v any) error
	Bump(ctx context.Context, challengeID string) error
}

// Publisher publica eventos de atividade (Kafka)
type Publisher interface {
	PublishActivity(ctx context.Context, a events.Activity) error
}

// Notifier empurra a visão recalculada para os clientes ao vivo (Redis Pub/Sub -> WS)
type Notifier interface {
	NotifyChallenge(ctx context.Context, u events.ChallengeUpdate) error
}

// Hooks são callbacks opcionais de métricas
type Hooks struct {
	OnChallengeCreated func()
	OnStatusChanged    func(status string)
	OnBetPlaced        func()
	OnBetSettled       func(result string)
	OnBetDeleted       func()
	OnError            func(op string)
}

// ChallengeView é o desafio com suas apostas e os valores derivados pelo motor de banca
type ChallengeView struct {
	Challenge repo.Challenge  `json:"challenge"`
	Bets      []repo.Bet      `json:"bets"`
	Bankroll  decimal.Decimal `json:"bankroll"`
	Progress  int             `json:"progress"`
	ReadOnly  bool            `json:"read_only"`
}

type CreateChallengeInput struct {
	Name            string          `json:"name" validate:"required,max=120"`
	Description     string          `json:"description" validate:"max=500"`
	InitialBankroll decimal.Decimal `json:"initial_bankroll" validate:"decgte=0"`
	TargetBankroll  decimal.Decimal `json:"target_bankroll" validate:"decgt=0"`
}

type PlaceBetInput struct {
	Title string          `json:"title" validate:"max=120"`
	Notes string          `json:"notes" validate:"max=500"`
	Stake decimal.Decimal `json:"stake" validate:"decgt=0"`
	Odds  decimal.Decimal `json:"odds" validate:"decgt=1"`
}

type ListFilter struct {
	Status string `json:"status" validate:"omitempty,oneof=active archived"`
	Limit  int    `json:"limit" validate:"gte=0"`
}

// Service orquestra desafios e apostas em cima do motor de banca
type Service struct {
	log   *zap.Logger
	store Store
	cache ViewCache
	publ  Publisher
	notif Notifier
	hooks Hooks
	now   func() time.Time
}

type Option func(*Service)

func WithViewCache(c ViewCache) Option { return func(s *Service) { s.cache = c } }
func WithPublisher(p Publisher) Option { return func(s *Service) { s.publ = p } }
func WithNotifier(n Notifier) Option   { return func(s *Service) { s.notif = n } }
func WithHooks(h Hooks) Option         { return func(s *Service) { s.hooks = h } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New instancia o serviço; cache, publisher e notifier são opcionais
func New(log *zap.Logger, store Store, opts ...Option) *Service {
	s := &Service{log: log, store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateChallenge cria um desafio active para o usuário
func (s *Service) CreateChallenge(ctx context.Context, userID string, in CreateChallengeInput) (repo.Challenge, error) {
	if userID == "" {
		return repo.Challenge{}, ErrUnauthenticated
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(in); err != nil {
		return repo.Challenge{}, err
	}

	c := repo.Challenge{
		UserID:          userID,
		Name:            in.Name,
		Description:     optional(in.Description),
		InitialBankroll: in.InitialBankroll,
		TargetBankroll:  in.TargetBankroll,
	}
	if err := s.store.CreateChallenge(ctx, &c); err != nil {
		s.onError("create_challenge", err)
		return repo.Challenge{}, err
	}

	if s.hooks.OnChallengeCreated != nil {
		s.hooks.OnChallengeCreated()
	}
	s.log.Info("challenge created", zap.String("challenge_id", c.ID), zap.String("user_id", userID))

	s.publish(ctx, events.Activity{
		Kind:        events.KindChallengeCreated,
		ChallengeID: c.ID,
		UserID:      userID,
		Status:      string(c.Status),
	})
	return c, nil
}

// ListChallenges lista os desafios do usuário, mais recentes primeiro
func (s *Service) ListChallenges(ctx context.Context, userID string, f ListFilter) ([]repo.Challenge, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if err := validateStruct(f); err != nil {
		return nil, err
	}

	rf := repo.ChallengeFilter{Limit: f.Limit}
	switch {
	case rf.Limit == 0:
		rf.Limit = defaultListLimit
	case rf.Limit > maxListLimit:
		rf.Limit = maxListLimit
	}
	if f.Status != "" {
		st := repo.Status(f.Status)
		rf.Status = &st
	}

	out, err := s.store.ListChallenges(ctx, userID, rf)
	if err != nil {
		s.onError("list_challenges", err)
		return nil, err
	}
	return out, nil
}

// GetChallengeView carrega o desafio e as apostas e calcula banca e progresso.
// A geração do cache é lida antes dos dados: uma escrita concorrente incrementa
// a geração e a visão gravada aqui fica inalcançável.
func (s *Service) GetChallengeView(ctx context.Context, userID, id string) (ChallengeView, error) {
	if userID == "" {
		return ChallengeView{}, ErrUnauthenticated
	}

	gen, cacheable := int64(0), false
	if s.cache != nil {
		g, err := s.cache.Generation(ctx, id)
		if err != nil {
			s.log.Warn("view cache generation", zap.String("challenge_id", id), zap.Error(err))
		} else {
			gen, cacheable = g, true
			var cached ChallengeView
			ok, err := s.cache.Get(ctx, id, gen, &cached)
			if err != nil {
				s.log.Warn("view cache get", zap.String("challenge_id", id), zap.Error(err))
			}
			// cache é por desafio; dono diferente segue o caminho normal (ErrNotFound)
			if ok && cached.Challenge.UserID == userID {
				return cached, nil
			}
		}
	}

	v, err := s.loadView(ctx, userID, id)
	if err != nil {
		return ChallengeView{}, err
	}

	if cacheable {
		if err := s.cache.Set(ctx, id, gen, v); err != nil {
			s.log.Warn("view cache set", zap.String("challenge_id", id), zap.Error(err))
		}
	}
	return v, nil
}

// ArchiveChallenge marca o desafio como archived e registra ended_at
func (s *Service) ArchiveChallenge(ctx context.Context, userID, id string) (repo.Challenge, error) {
	now := s.now().UTC()
	return s.setStatus(ctx, userID, id, repo.StatusArchived, &now, events.KindChallengeArchived)
}

// ReopenChallenge volta o desafio para active e limpa ended_at
func (s *Service) ReopenChallenge(ctx context.Context, userID, id string) (repo.Challenge, error) {
	return s.setStatus(ctx, userID, id, repo.StatusActive, nil, events.KindChallengeReopened)
}

func (s *Service) setStatus(ctx context.Context, userID, id string, st repo.Status, endedAt *time.Time, kind string) (repo.Challenge, error) {
	if userID == "" {
		return repo.Challenge{}, ErrUnauthenticated
	}

	c, err := s.store.SetChallengeStatus(ctx, userID, id, st, endedAt)
	if err != nil {
		s.onError("set_status", err)
		return repo.Challenge{}, err
	}

	if s.hooks.OnStatusChanged != nil {
		s.hooks.OnStatusChanged(string(st))
	}
	s.log.Info("challenge status changed", zap.String("challenge_id", id), zap.String("status", string(st)))

	s.afterMutation(ctx, userID, events.Activity{
		Kind:        kind,
		ChallengeID: id,
		UserID:      userID,
		Status:      string(st),
	})
	return c, nil
}

// PlaceBet registra uma aposta pending no desafio.
// O stake já sai da banca no registro (payout=0, profit=0 até o resultado).
func (s *Service) PlaceBet(ctx context.Context, userID, challengeID string, in PlaceBetInput) (repo.Bet, error) {
	if userID == "" {
		return repo.Bet{}, ErrUnauthenticated
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := validateStruct(in); err != nil {
		return repo.Bet{}, err
	}

	c, err := s.store.GetChallenge(ctx, userID, challengeID)
	if err != nil {
		s.onError("place_bet", err)
		return repo.Bet{}, err
	}
	if c.Status == repo.StatusArchived {
		return repo.Bet{}, ErrChallengeArchived
	}

	d := bankroll.DeriveBetFields(in.Stake, in.Odds, bankroll.ResultPending)
	b := repo.Bet{
		ChallengeID: c.ID,
		UserID:      userID,
		Title:       optional(in.Title),
		Notes:       optional(in.Notes),
		Stake:       in.Stake,
		Odds:        in.Odds,
		Result:      bankroll.ResultPending,
		Payout:      d.Payout,
		Profit:      d.Profit,
	}
	if err := s.store.CreateBet(ctx, &b); err != nil {
		if errors.Is(err, repo.ErrNotWritable) {
			return repo.Bet{}, s.writeConflict(ctx, userID, c.ID)
		}
		s.onError("place_bet", err)
		return repo.Bet{}, err
	}

	if s.hooks.OnBetPlaced != nil {
		s.hooks.OnBetPlaced()
	}
	s.log.Info("bet placed",
		zap.String("bet_id", b.ID),
		zap.String("challenge_id", c.ID),
		zap.String("stake", b.Stake.String()),
		zap.String("odds", b.Odds.String()),
	)

	s.afterMutation(ctx, userID, events.Activity{
		Kind:        events.KindBetPlaced,
		ChallengeID: c.ID,
		BetID:       b.ID,
		UserID:      userID,
		NewResult:   b.Result.String(),
		Stake:       b.Stake.String(),
		Odds:        b.Odds.String(),
		Payout:      b.Payout.StringFixed(2),
		Profit:      b.Profit.StringFixed(2),
	})
	return b, nil
}

// SetBetResult regrava result, payout e profit juntos.
// Qualquer transição é permitida, inclusive voltar para pending.
func (s *Service) SetBetResult(ctx context.Context, userID, betID string, result bankroll.Result) (repo.Bet, error) {
	if userID == "" {
		return repo.Bet{}, ErrUnauthenticated
	}
	if !result.Valid() {
		return repo.Bet{}, InvalidResult()
	}

	b, err := s.store.GetBet(ctx, userID, betID)
	if err != nil {
		s.onError("set_result", err)
		return repo.Bet{}, err
	}
	c, err := s.store.GetChallenge(ctx, userID, b.ChallengeID)
	if err != nil {
		s.onError("set_result", err)
		return repo.Bet{}, err
	}
	if c.Status == repo.StatusArchived {
		return repo.Bet{}, ErrChallengeArchived
	}

	d := bankroll.DeriveBetFields(b.Stake, b.Odds, result)
	if err := s.store.UpdateBetResult(ctx, userID, betID, result, d); err != nil {
		if errors.Is(err, repo.ErrNotWritable) {
			return repo.Bet{}, s.writeConflict(ctx, userID, b.ChallengeID)
		}
		s.onError("set_result", err)
		return repo.Bet{}, err
	}

	old := b.Result
	b.Result, b.Payout, b.Profit = result, d.Payout, d.Profit

	if s.hooks.OnBetSettled != nil {
		s.hooks.OnBetSettled(result.String())
	}
	s.log.Info("bet result set",
		zap.String("bet_id", betID),
		zap.String("old_result", old.String()),
		zap.String("new_result", result.String()),
	)

	s.afterMutation(ctx, userID, events.Activity{
		Kind:        events.KindBetResultSet,
		ChallengeID: b.ChallengeID,
		BetID:       b.ID,
		UserID:      userID,
		OldResult:   old.String(),
		NewResult:   result.String(),
		Stake:       b.Stake.String(),
		Odds:        b.Odds.String(),
		Payout:      b.Payout.StringFixed(2),
		Profit:      b.Profit.StringFixed(2),
	})
	return b, nil
}

// DeleteBet remove uma aposta de um desafio active
func (s *Service) DeleteBet(ctx context.Context, userID, betID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	b, err := s.store.GetBet(ctx, userID, betID)
	if err != nil {
		s.onError("delete_bet", err)
		return err
	}
	c, err := s.store.GetChallenge(ctx, userID, b.ChallengeID)
	if err != nil {
		s.onError("delete_bet", err)
		return err
	}
	if c.Status == repo.StatusArchived {
		return ErrChallengeArchived
	}

	if err := s.store.DeleteBet(ctx, userID, betID); err != nil {
		if errors.Is(err, repo.ErrNotWritable) {
			return s.writeConflict(ctx, userID, b.ChallengeID)
		}
		s.onError("delete_bet", err)
		return err
	}

	if s.hooks.OnBetDeleted != nil {
		s.hooks.OnBetDeleted()
	}
	s.log.Info("bet deleted", zap.String("bet_id", betID), zap.String("challenge_id", b.ChallengeID))

	s.afterMutation(ctx, userID, events.Activity{
		Kind:        events.KindBetDeleted,
		ChallengeID: b.ChallengeID,
		BetID:       b.ID,
		UserID:      userID,
		OldResult:   b.Result.String(),
		Stake:       b.Stake.String(),
		Odds:        b.Odds.String(),
	})
	return nil
}

// loadView lê do banco e aplica o motor de banca, sem passar pelo cache
func (s *Service) loadView(ctx context.Context, userID, id string) (ChallengeView, error) {
	c, err := s.store.GetChallenge(ctx, userID, id)
	if err != nil {
		s.onError("get_view", err)
		return ChallengeView{}, err
	}
	bets, err := s.store.ListBets(ctx, c.ID)
	if err != nil {
		s.onError("get_view", err)
		return ChallengeView{}, err
	}
	return BuildView(c, bets), nil
}

// BuildView calcula banca atual e progresso a partir do desafio e das apostas
func BuildView(c repo.Challenge, bets []repo.Bet) ChallengeView {
	wagers := make([]bankroll.Wager, 0, len(bets))
	for _, b := range bets {
		wagers = append(wagers, b.Wager())
	}
	current := bankroll.CurrentBankroll(c.InitialBankroll, wagers)

	if bets == nil {
		bets = []repo.Bet{}
	}
	return ChallengeView{
		Challenge: c,
		Bets:      bets,
		Bankroll:  current,
		Progress:  bankroll.Progress(current, c.TargetBankroll),
		ReadOnly:  c.Status == repo.StatusArchived,
	}
}

// writeConflict explica uma escrita guardada que não afetou linhas:
// desafio arquivado no meio do caminho ou aposta/desafio removidos
func (s *Service) writeConflict(ctx context.Context, userID, challengeID string) error {
	c, err := s.store.GetChallenge(ctx, userID, challengeID)
	if err != nil {
		return err
	}
	if c.Status == repo.StatusArchived {
		return ErrChallengeArchived
	}
	return ErrNotFound
}

// afterMutation invalida o cache, publica a atividade e notifica os clientes ao vivo.
// Falhas aqui são logadas e contadas, nunca devolvidas: o banco é a fonte da verdade.
func (s *Service) afterMutation(ctx context.Context, userID string, a events.Activity) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Bump(ctx, a.ChallengeID); err != nil {
			s.log.Warn("view cache bump", zap.String("challenge_id", a.ChallengeID), zap.Error(err))
			s.onError("cache_bump", err)
		}
	}

	s.publish(ctx, a)

	if s.notif == nil {
		return
	}
	v, err := s.loadView(ctx, userID, a.ChallengeID)
	if err != nil {
		s.log.Warn("reload view for notify", zap.String("challenge_id", a.ChallengeID), zap.Error(err))
		return
	}
	upd := events.ChallengeUpdate{
		ChallengeID: a.ChallengeID,
		Reason:      a.Kind,
		Status:      string(v.Challenge.Status),
		Bankroll:    v.Bankroll.StringFixed(2),
		Progress:    v.Progress,
		BetCount:    len(v.Bets),
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.notif.NotifyChallenge(ctx, upd); err != nil {
		s.log.Warn("notify challenge update", zap.String("challenge_id", a.ChallengeID), zap.Error(err))
		s.onError("notify", err)
	}
}

func (s *Service) publish(ctx context.Context, a events.Activity) {
	if s.publ == nil {
		return
	}
	a.EventID = uuid.NewString()
	a.OccurredAt = s.now().UTC()
	if err := s.publ.PublishActivity(ctx, a); err != nil {
		s.log.Warn("publish activity", zap.String("kind", a.Kind), zap.String("challenge_id", a.ChallengeID), zap.Error(err))
		s.onError("publish", err)
	}
}

// onError conta falhas inesperadas; ErrNotFound é resposta normal, não erro
func (s *Service) onError(op string, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	if s.hooks.OnError != nil {
		s.hooks.OnError(op)
	}
	s.log.Error("operation failed", zap.String("op", op), zap.Error(err))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
