package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/persona-backend/internal/assessment"
	"github.com/yungbote/persona-backend/internal/chain"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/prompts"
	"github.com/yungbote/persona-backend/internal/provider"
)

// candidate is one model answer after parsing and validation.
type candidate struct {
	provider provider.ID
	raw      string
	parsed   domain.Assessment
	report   assessment.Report
}

func (s *Service) evaluate(id provider.ID, raw string) candidate {
	c := candidate{provider: id, raw: raw}
	a, err := assessment.Parse(raw, s.opts.RequiredFields)
	if err != nil {
		c.report = assessment.Report{Valid: false, MissingFields: append([]string(nil), s.opts.RequiredFields...)}
		return c
	}
	c.parsed = a
	c.report = assessment.Validate(a, s.opts.RequiredFields)
	return c
}

func (s *Service) llmByID(id provider.ID) provider.LanguageModel {
	for _, m := range s.adapters.LLM {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// reprompt gives the provider that produced c one more try with the missing fields named.
func (s *Service) reprompt(ctx context.Context, c candidate, ev evidencePayload) candidate {
	m := s.llmByID(c.provider)
	if m == nil {
		return c
	}
	ev.PreviousAnswer = c.raw
	res := m.Complete(ctx, prompts.Reprompt(s.opts.RequiredFields, c.report.MissingFields), ev.JSON())
	if !res.OK {
		s.log.Warn("reprompt failed", "provider", string(c.provider), "kind", string(res.Kind))
		s.metrics.ObserveReprompt(string(c.provider), false)
		return c
	}
	next := s.evaluate(c.provider, res.Value)
	s.metrics.ObserveReprompt(string(c.provider), next.report.Valid)
	if !next.report.Valid && len(next.report.MissingFields) > len(c.report.MissingFields) {
		// keep the better of the two for the error report
		return c
	}
	return next
}

// synthesizeSingle asks every model at once and keeps the first valid answer in preference order.
// When none is valid, the most preferred responding model is reprompted once.
func (s *Service) synthesizeSingle(ctx context.Context, r *run, system string, ev evidencePayload) (domain.PersonAssessment, chain.Report, error) {
	ctx, span := otel.Tracer("persona/orchestrator").Start(ctx, "orchestrator.synthesize")
	defer span.End()

	payload := ev.JSON()
	results, rep := chain.ConcurrentAll(ctx, provider.CapabilityLLM, s.adapters.LLM,
		func(ctx context.Context, m provider.LanguageModel) provider.Result[string] {
			return m.Complete(ctx, system, payload)
		})
	if err := r.to(StateSynthesized); err != nil {
		return domain.PersonAssessment{}, rep, err
	}

	var first *candidate
	for _, res := range results {
		if !res.OK {
			continue
		}
		c := s.evaluate(res.Provider, res.Value)
		if c.report.Valid {
			return s.accept(c, ev), rep, nil
		}
		if first == nil {
			first = &c
		}
	}
	if first == nil {
		return domain.PersonAssessment{}, rep, chainError(exhaustedResult(rep), "language model")
	}

	s.log.Info("assessment incomplete, reprompting", "provider", string(first.provider), "missing", len(first.report.MissingFields))
	c := s.reprompt(ctx, *first, ev)
	if !c.report.Valid {
		return domain.PersonAssessment{}, rep, validationFailed(c.report.MissingFields)
	}
	return s.accept(c, ev), rep, nil
}

func (s *Service) accept(c candidate, ev evidencePayload) domain.PersonAssessment {
	label := "Subject"
	if ev.Person != nil {
		label = ev.Person.PersonLabel
	} else if ev.MediaType == domain.MediaText || ev.MediaType == domain.MediaDocument {
		label = "Author"
	}
	return domain.PersonAssessment{PersonLabel: label, Provider: string(c.provider), Assessment: c.parsed}
}

// personOutcome is the per-subject result of a multi-subject synthesis.
type personOutcome struct {
	assessment *domain.PersonAssessment
	missing    []string
	failed     provider.Result[string]
}

// synthesizeMulti runs one sequential model chain per person, all persons concurrently. Provider
// failures for some persons are tolerated; an invalid answer after its reprompt fails the request.
func (s *Service) synthesizeMulti(ctx context.Context, r *run, people []domain.IntegratedPerson, base evidencePayload) ([]domain.PersonAssessment, *domain.GroupDynamics, []chain.Report, error) {
	ctx, span := otel.Tracer("persona/orchestrator").Start(ctx, "orchestrator.synthesize_multi")
	defer span.End()

	system := prompts.Synthesis(s.opts.RequiredFields)
	outcomes := make([]personOutcome, len(people))
	reports := make([]chain.Report, len(people))
	var g errgroup.Group
	for i, p := range people {
		g.Go(func() error {
			ev := base
			ev.Person = newPersonEvidence(p)
			payload := ev.JSON()
			res, rep := chain.Sequential(ctx, provider.CapabilityLLM, s.adapters.LLM,
				func(ctx context.Context, m provider.LanguageModel) provider.Result[string] {
					return m.Complete(ctx, system, payload)
				})
			reports[i] = rep
			if !res.OK {
				outcomes[i] = personOutcome{failed: res}
				return nil
			}
			c := s.evaluate(res.Provider, res.Value)
			if !c.report.Valid {
				c = s.reprompt(ctx, c, ev)
			}
			if !c.report.Valid {
				outcomes[i] = personOutcome{missing: c.report.MissingFields}
				return nil
			}
			pa := s.accept(c, ev)
			outcomes[i] = personOutcome{assessment: &pa}
			return nil
		})
	}
	_ = g.Wait()
	if err := r.to(StateSynthesized); err != nil {
		return nil, nil, reports, err
	}

	var (
		done      []domain.PersonAssessment
		missing   []string
		lastError provider.Result[string]
	)
	for i, o := range outcomes {
		switch {
		case o.assessment != nil:
			done = append(done, *o.assessment)
		case o.missing != nil:
			for _, f := range o.missing {
				missing = append(missing, people[i].PersonLabel+": "+f)
			}
		default:
			lastError = o.failed
			s.log.Warn("person synthesis failed", "person", people[i].PersonLabel, "kind", string(o.failed.Kind))
		}
	}
	if len(missing) > 0 {
		return nil, nil, reports, validationFailed(missing)
	}
	if len(done) == 0 {
		return nil, nil, reports, chainError(lastError, "language model")
	}

	var group *domain.GroupDynamics
	if len(done) >= 2 {
		group = s.groupDynamics(ctx, done, base.Transcription)
	}
	return done, group, reports, nil
}

// groupDynamics is best effort; a failure only drops the section.
func (s *Service) groupDynamics(ctx context.Context, people []domain.PersonAssessment, t *domain.TranscriptionResult) *domain.GroupDynamics {
	b, err := json.Marshal(groupPayload{People: people, Transcription: t})
	if err != nil {
		return nil
	}
	payload := string(b)
	res, _ := chain.Sequential(ctx, provider.CapabilityLLM, s.adapters.LLM,
		func(ctx context.Context, m provider.LanguageModel) provider.Result[string] {
			return m.Complete(ctx, prompts.Group(), payload)
		})
	if !res.OK {
		s.log.Info("group dynamics skipped", "kind", string(res.Kind))
		return nil
	}
	return &domain.GroupDynamics{Provider: string(res.Provider), Text: res.Value}
}

// exhaustedResult rebuilds the chain-level failure for a settled concurrent fan-out.
func exhaustedResult(rep chain.Report) provider.Result[string] {
	if rep.AllUnavailable() {
		return provider.Failure[string](provider.None, provider.KindUnavailable, "")
	}
	return provider.Failure[string](provider.None, provider.KindAllProvidersFailed, failedDetail(rep))
}

func failedDetail(rep chain.Report) string {
	parts := make([]string, 0, len(rep.Failed))
	for id, k := range rep.Failed {
		parts = append(parts, fmt.Sprintf("%s=%s", id, k))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
