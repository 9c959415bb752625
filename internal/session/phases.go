package session

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptparty/promptparty-backend/internal/engine"
	"github.com/promptparty/promptparty-backend/internal/imagegen"
	"github.com/promptparty/promptparty-backend/pkg/types"
)

// transitionTo advances the phase, bumps the epoch, and cancels any
// running timer. Every transition path goes through here, so a stale
// timer can never outlive the phase that armed it.
func (s *Session) transitionTo(to engine.Phase) error {
	from := s.state.Phase
	if err := s.state.Transition(to); err != nil {
		return err
	}
	s.epoch++
	s.timers.Cancel(s.state.Code)
	s.log.Info("phase transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("round", s.state.Round))
	return nil
}

func (s *Session) armTimer(d time.Duration) time.Time {
	epoch := s.epoch
	s.timers.Start(s.state.Code, d, func() {
		select {
		case s.inbox <- timerFired{epoch: epoch}:
		case <-s.ctx.Done():
		}
	})
	return time.Now().Add(d)
}

func (s *Session) handleTimerFired(epoch uint64) {
	if epoch != s.epoch {
		// The phase that armed this timer is gone; the race was won by
		// a selection-complete or judge action. Expected, not an error.
		s.log.Debug("dropping stale timer fire", zap.Uint64("epoch", epoch))
		return
	}
	switch s.state.Phase {
	case engine.PhaseRoundIntro:
		s.enterCardSelection()
	case engine.PhaseCardSelection:
		s.closeSelections()
	case engine.PhaseResults:
		s.enterRoundIntro()
	default:
		s.log.Warn("timer fired in untimed phase", zap.String("phase", string(s.state.Phase)))
	}
}

func (s *Session) handleJoin(p engine.Player) error {
	if err := s.state.AddPlayer(p); err != nil {
		return err
	}
	s.touch()
	s.emitPlayerCount()
	return nil
}

func (s *Session) handleLeave(playerID string) error {
	wasJudge := playerID == s.state.JudgeID
	wasHost := playerID == s.state.HostID
	if err := s.state.RemovePlayer(playerID); err != nil {
		return err
	}
	s.touch()
	s.emitPlayerCount()
	if wasHost {
		// Notify, but the session keeps running without its host.
		s.broadcast(types.Event{Kind: types.EventHostDisconnected})
	}

	switch s.state.Phase {
	case engine.PhaseRoundIntro:
		if wasJudge && len(s.state.Players) > 0 {
			// Round has not started in earnest; hand the gavel on.
			s.state.NextJudge(s.rng)
			s.emitPhase(time.Time{})
		}
	case engine.PhaseCardSelection:
		if wasJudge {
			s.voidRound()
		} else if s.state.SelectionsComplete() {
			s.closeSelections()
		} else {
			s.emitProgress()
		}
	case engine.PhaseJudge:
		if wasJudge {
			s.voidRound()
		} else if s.state.Ranking != nil {
			// A departed contributor cannot win; withdraw their image.
			s.state.Ranking.Remove(playerID)
			if s.state.Ranking.Len() == 0 {
				s.voidRound()
			} else {
				s.emitCandidates()
			}
		}
	}
	return nil
}

func (s *Session) handleSetConnected(playerID string, connected bool) {
	p := s.state.FindPlayer(playerID)
	if p == nil || p.Connected == connected {
		return
	}
	p.Connected = connected
	s.touch()
	s.emitPlayerCount()
}

func (s *Session) handleStart(playerID string) error {
	if playerID != s.state.HostID {
		return engine.ErrNotHost
	}
	if s.state.Phase != engine.PhaseLobby {
		return engine.ErrAlreadyStarted
	}
	if len(s.state.Players) < engine.MinPlayers {
		return engine.ErrNotEnoughPlayers
	}
	s.touch()
	s.enterRoundIntro()
	return nil
}

// enterRoundIntro starts the next round, or finishes the game when the
// round counter has reached its bound or the room has emptied out.
func (s *Session) enterRoundIntro() {
	if s.state.Round >= s.state.MaxRounds || len(s.state.Players) == 0 {
		s.complete()
		return
	}
	if err := s.transitionTo(engine.PhaseRoundIntro); err != nil {
		s.log.Error("round intro", zap.Error(err))
		return
	}
	s.state.BeginRound(s.rng, s.deck.DrawTemplate())

	poolSize := s.state.Sentence.Blanks * len(s.state.Players) * 2
	if poolSize < 8 {
		poolSize = 8
	}
	s.cardPool = s.deck.DealCards(poolSize)

	deadline := s.armTimer(s.cfg.IntroDelay)
	s.emitPhase(deadline)
}

func (s *Session) enterCardSelection() {
	if err := s.transitionTo(engine.PhaseCardSelection); err != nil {
		s.log.Error("card selection", zap.Error(err))
		return
	}
	deadline := s.armTimer(s.cfg.SelectionWindow)
	s.emitPhase(deadline)
	s.emitProgress()
}

func (s *Session) handleSubmit(playerID string, cards []string) error {
	if s.state.Phase != engine.PhaseCardSelection {
		return engine.ErrWrongPhase
	}
	if err := s.state.RecordSelection(playerID, cards, time.Now()); err != nil {
		return err
	}
	s.touch()
	s.emitProgress()
	if s.state.SelectionsComplete() {
		s.closeSelections()
	}
	return nil
}

// closeSelections ends the submission window, either because everyone
// submitted or because the timer expired. Players without a submission
// abstain: no image, no points this round.
func (s *Session) closeSelections() {
	if err := s.transitionTo(engine.PhaseJudge); err != nil {
		s.log.Error("close selections", zap.Error(err))
		return
	}

	reqs := make([]imagegen.Request, 0, len(s.state.Selections))
	for _, p := range s.state.Contributors() {
		sel, ok := s.state.Selections[p.ID]
		if !ok {
			continue
		}
		reqs = append(reqs, imagegen.Request{
			ID:       uuid.NewString(),
			PlayerID: p.ID,
			Round:    s.state.Round,
			Prompt:   s.state.Sentence.Filled(sel.Cards),
			Style:    s.cfg.ArtStyle,
		})
	}

	if len(reqs) == 0 {
		// Everyone abstained; there is nothing to judge.
		s.log.Info("no submissions, voiding round", zap.Int("round", s.state.Round))
		s.voidRound()
		return
	}

	s.broadcast(types.Event{Kind: types.EventGenerationStarted, Images: &types.ImagesPayload{
		Round:   s.state.Round,
		Pending: len(reqs),
	}})

	round := s.state.Round
	s.gen.Enqueue(s.ctx, reqs, func(results []engine.GeneratedImage) {
		select {
		case s.inbox <- generationDone{round: round, results: results}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) handleGenerationDone(round int, results []engine.GeneratedImage) {
	if s.state.Phase != engine.PhaseJudge || round != s.state.Round {
		s.log.Warn("dropping stale generation batch", zap.Int("round", round))
		return
	}
	// Players can leave while the batch is in flight; their images are
	// not candidates.
	live := make([]engine.GeneratedImage, 0, len(results))
	for _, img := range results {
		if s.state.FindPlayer(img.PlayerID) != nil {
			live = append(live, img)
		}
	}
	if len(live) == 0 {
		s.voidRound()
		return
	}
	s.state.Ranking = engine.NewRanking(live)
	s.emitCandidates()
}

func (s *Session) emitCandidates() {
	s.broadcast(types.Event{Kind: types.EventGenerationReady, Images: &types.ImagesPayload{
		Round:      s.state.Round,
		Candidates: candidateInfos(s.state.Ranking.Candidates()),
	}})
}

func (s *Session) handleMarkLoaded(playerID, candidateID string) error {
	if s.state.Phase != engine.PhaseJudge || s.state.Ranking == nil {
		return engine.ErrWrongPhase
	}
	if s.state.FindPlayer(playerID) == nil {
		return engine.ErrPlayerNotInSession
	}
	return s.state.Ranking.MarkLoaded(candidateID)
}

func (s *Session) handleRank(playerID string, slot engine.RankSlot, candidateID string) error {
	if s.state.Phase != engine.PhaseJudge {
		return engine.ErrWrongPhase
	}
	if playerID != s.state.JudgeID {
		return engine.ErrNotJudge
	}
	if s.state.Ranking == nil {
		return engine.ErrNotReady
	}
	if err := s.state.Ranking.Select(slot, candidateID); err != nil {
		return err
	}
	s.touch()
	return nil
}

func (s *Session) handleFinalize(playerID string) error {
	if s.state.Phase != engine.PhaseJudge {
		return engine.ErrWrongPhase
	}
	if playerID != s.state.JudgeID {
		return engine.ErrNotJudge
	}
	if s.state.Ranking == nil {
		return engine.ErrNotReady
	}
	first, second, err := s.state.Ranking.Finalize()
	if err != nil {
		return err
	}
	s.touch()
	s.enterResults(first, second)
	return nil
}

func (s *Session) enterResults(firstID, secondID string) {
	if err := s.transitionTo(engine.PhaseResults); err != nil {
		s.log.Error("results", zap.Error(err))
		return
	}
	res := s.state.ScoreRound(firstID, secondID, "")
	s.broadcast(types.Event{Kind: types.EventRoundResults, Results: &types.ResultsPayload{
		Round:     res.Round,
		FirstID:   res.FirstID,
		SecondID:  res.SecondID,
		Standings: standings(res.Standings),
	}})
	s.armTimer(s.cfg.ResultsDelay)
}

// voidRound abandons the current round without awarding points: the
// judge left, or every contributor abstained. The lifecycle still passes
// through the normal phases so the transition table stays authoritative.
func (s *Session) voidRound() {
	if s.state.Phase == engine.PhaseCardSelection {
		if err := s.transitionTo(engine.PhaseJudge); err != nil {
			s.log.Error("void round", zap.Error(err))
			return
		}
	}
	if err := s.transitionTo(engine.PhaseResults); err != nil {
		s.log.Error("void round", zap.Error(err))
		return
	}
	s.broadcast(types.Event{Kind: types.EventRoundResults, Results: &types.ResultsPayload{
		Round:     s.state.Round,
		Voided:    true,
		Standings: standings(s.state.Standings()),
	}})
	s.armTimer(s.cfg.ResultsDelay)
}

func (s *Session) complete() {
	if err := s.transitionTo(engine.PhaseCompleted); err != nil {
		s.log.Error("complete", zap.Error(err))
		return
	}
	s.broadcast(types.Event{Kind: types.EventGameCompleted, Results: &types.ResultsPayload{
		Round:     s.state.Round,
		Standings: standings(s.state.Standings()),
	}})
}

func (s *Session) emitPhase(deadline time.Time) {
	payload := &types.PhasePayload{
		Phase:   string(s.state.Phase),
		Round:   s.state.Round,
		JudgeID: s.state.JudgeID,
	}
	if !deadline.IsZero() {
		payload.DeadlineMs = time.Until(deadline).Milliseconds()
	}
	if s.state.Phase == engine.PhaseRoundIntro || s.state.Phase == engine.PhaseCardSelection {
		payload.Sentence = s.state.Sentence.Text
		payload.Blanks = s.state.Sentence.Blanks
		payload.CardPool = s.cardPool
	}
	s.broadcast(types.Event{Kind: types.EventPhaseChanged, Phase: payload})
}

func (s *Session) emitProgress() {
	s.broadcast(types.Event{Kind: types.EventSubmissionProgress, Progress: &types.ProgressPayload{
		Submitted: s.state.SubmittedCount(),
		Expected:  len(s.state.Contributors()),
	}})
}

func (s *Session) emitPlayerCount() {
	payload := &types.PlayersPayload{Count: len(s.state.Players)}
	for _, p := range s.state.Players {
		payload.Players = append(payload.Players, types.PlayerInfo{
			ID: p.ID, Name: p.Name, Avatar: p.Avatar,
			Score: p.Score, Connected: p.Connected, IsHost: p.IsHost,
		})
	}
	s.broadcast(types.Event{Kind: types.EventPlayerCountChanged, Players: payload})
}

func standings(in []engine.Standing) []types.Standing {
	out := make([]types.Standing, 0, len(in))
	for _, s := range in {
		out = append(out, types.Standing{
			PlayerID: s.PlayerID, Name: s.Name, Score: s.Score, Position: s.Position,
		})
	}
	return out
}
