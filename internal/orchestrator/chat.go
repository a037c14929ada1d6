package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/yungbote/persona-backend/internal/chain"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/prompts"
	"github.com/yungbote/persona-backend/internal/provider"
)

// Chat answers a follow-up question about one of the session's analyses. Both sides of the
// exchange are stored only after the model answered.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, badRequest("session id required")
	}
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return nil, badRequest("message is empty")
	}
	if e := s.requireLLM(); e != nil {
		return nil, e
	}
	if s.store == nil {
		return nil, newError(provider.KindUnavailable, "chat history is not available", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	var (
		rec *domain.AnalysisRecord
		err error
	)
	if req.AnalysisID != nil {
		rec, err = s.store.GetAnalysis(ctx, req.SessionID, *req.AnalysisID)
	} else {
		rec, err = s.store.LatestAnalysis(ctx, req.SessionID)
	}
	if err != nil {
		return nil, newError(provider.KindUnknown, "load analysis", err)
	}
	if rec == nil {
		return nil, &Error{Kind: KindNotFound, Message: "no analysis found for this session"}
	}

	history, err := s.store.ListMessages(ctx, req.SessionID, rec.ID, s.opts.ChatHistory)
	if err != nil {
		return nil, newError(provider.KindUnknown, "load chat history", err)
	}
	analysis, err := OutcomeFromRecord(rec)
	if err != nil {
		return nil, newError(provider.KindUnknown, "decode analysis", err)
	}
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, newError(provider.KindUnknown, "encode analysis", err)
	}
	p := chatPayload{Analysis: analysisJSON, Question: question}
	for _, m := range history {
		p.History = append(p.History, chatTurn{Role: m.Role, Content: m.Content})
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, newError(provider.KindUnknown, "encode chat payload", err)
	}
	payload := string(b)

	res, _ := chain.Sequential(ctx, provider.CapabilityLLM, s.adapters.LLM,
		func(ctx context.Context, m provider.LanguageModel) provider.Result[string] {
			return m.Complete(ctx, prompts.Chat(), payload)
		})
	if !res.OK {
		return nil, chainError(res, "language model")
	}

	analysisID := rec.ID
	user := &domain.ChatMessage{SessionID: req.SessionID, AnalysisID: &analysisID, Role: domain.ChatRoleUser, Content: question}
	reply := &domain.ChatMessage{
		SessionID:  req.SessionID,
		AnalysisID: &analysisID,
		Role:       domain.ChatRoleAssistant,
		Content:    strings.TrimSpace(res.Value),
		Provider:   string(res.Provider),
	}
	if err := s.store.CreateMessages(ctx, user, reply); err != nil {
		return nil, newError(provider.KindUnknown, "persist chat", err)
	}
	s.log.Debug("chat answered", "analysis_id", analysisID.String(), "provider", string(res.Provider), "history", len(history))
	return &ChatReply{AnalysisID: analysisID, Message: *reply}, nil
}
