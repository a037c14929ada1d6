package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/persona-backend/internal/chain"
	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/prompts"
	"github.com/yungbote/persona-backend/internal/provider"
)

// AnalyzeMedia analyzes one image or video.
func (s *Service) AnalyzeMedia(ctx context.Context, req MediaRequest) (out *Outcome, err error) {
	mediaType := req.MediaType
	defer func() { s.observe(mediaType, err, statusOf(out)) }()

	if strings.TrimSpace(req.SessionID) == "" {
		return nil, badRequest("session id required")
	}
	if len(req.Data) == 0 {
		return nil, badRequest("media payload is empty")
	}
	if e := s.requireLLM(); e != nil {
		return nil, e
	}
	mt, err := sniffMediaType(req.MediaType, req.Data)
	if err != nil {
		return nil, err
	}
	mediaType = mt
	maxPeople := s.opts.MaxPeople
	if req.MaxPeople > 0 && req.MaxPeople < maxPeople {
		maxPeople = req.MaxPeople
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	key := cacheKey("media", []byte(mt), req.Data,
		[]byte(fmt.Sprintf("%g|%g|%d|%s", req.SegmentStartSec, req.SegmentDurationSec, maxPeople, s.opts.AlignMode)))
	if hit := s.cached(ctx, key); hit != nil {
		return s.replay(ctx, req.SessionID, hit)
	}

	r := newRun(s.log.With("media_type", string(mt)))
	out, err = s.runMedia(ctx, r, mt, req, maxPeople)
	if err != nil {
		return nil, r.fail(err)
	}
	return s.finish(ctx, r, req.SessionID, key, out)
}

func (s *Service) runMedia(ctx context.Context, r *run, mt domain.MediaType, req MediaRequest, maxPeople int) (*Outcome, error) {
	media := &preparedMedia{Frame: req.Data}
	if mt == domain.MediaVideo {
		m, err := s.prepareVideo(ctx, req)
		if err != nil {
			return nil, err
		}
		media = m
	}
	if err := r.to(StateMediaPrepared); err != nil {
		return nil, err
	}

	ev := s.gatherEvidence(ctx, media, maxPeople)
	if err := ctx.Err(); err != nil {
		return nil, newError(provider.KindTimeout, "analysis deadline exceeded", err)
	}
	if err := r.to(StateEvidenceGathered); err != nil {
		return nil, err
	}

	out := &Outcome{
		MediaType:     mt,
		Status:        domain.AnalysisStatusComplete,
		People:        ev.People,
		Transcription: ev.Transcription,
		VideoInsights: ev.Video,
		Reports:       []chain.Report{ev.FaceReport},
	}
	if ev.TransReport != nil {
		out.Reports = append(out.Reports, *ev.TransReport)
	}

	switch {
	case len(ev.People) > 0:
	case mt == domain.MediaVideo && ev.Transcription != nil:
		// no visible subject, the transcript alone carries the assessment
	case ev.FaceReport.AnySuccess():
		out.Status = domain.AnalysisStatusNoSubjects
		out.People = []domain.IntegratedPerson{}
		out.Assessments = []domain.PersonAssessment{}
		out.ProvidersUsed = providersUsed(out, ev.FaceReport)
		return out, nil
	default:
		return nil, chainError(exhaustedResult(ev.FaceReport), "face analysis")
	}

	base := evidencePayload{
		MediaType:     mt,
		SubjectCount:  len(ev.People),
		Transcription: ev.Transcription,
		Video:         ev.Video,
	}
	if len(ev.People) <= 1 {
		if len(ev.People) == 1 {
			base.Person = newPersonEvidence(ev.People[0])
		}
		pa, rep, err := s.synthesizeSingle(ctx, r, prompts.Synthesis(s.opts.RequiredFields), base)
		out.Reports = append(out.Reports, rep)
		if err != nil {
			return nil, err
		}
		out.Assessments = []domain.PersonAssessment{pa}
	} else {
		pas, group, reps, err := s.synthesizeMulti(ctx, r, ev.People, base)
		out.Reports = append(out.Reports, reps...)
		if err != nil {
			return nil, err
		}
		out.Assessments = pas
		out.GroupDynamics = group
	}
	if err := r.to(StateValidated); err != nil {
		return nil, err
	}
	out.ProvidersUsed = providersUsed(out, ev.FaceReport)
	out.Note = multiProviderNote(out, ev.FaceReport)
	return out, nil
}

// AnalyzeText assesses the author of a piece of writing.
func (s *Service) AnalyzeText(ctx context.Context, req TextRequest) (out *Outcome, err error) {
	defer func() { s.observe(domain.MediaText, err, statusOf(out)) }()

	if strings.TrimSpace(req.SessionID) == "" {
		return nil, badRequest("session id required")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, badRequest("text is empty")
	}
	if e := s.requireLLM(); e != nil {
		return nil, e
	}
	text = truncateRunes(text, s.opts.MaxTextChars)

	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	key := cacheKey("text", []byte(text))
	if hit := s.cached(ctx, key); hit != nil {
		return s.replay(ctx, req.SessionID, hit)
	}

	r := newRun(s.log.With("media_type", string(domain.MediaText)))
	if err := r.to(StateEvidenceGathered); err != nil {
		return nil, r.fail(err)
	}
	out, err = s.runText(ctx, r, domain.MediaText, text)
	if err != nil {
		return nil, r.fail(err)
	}
	return s.finish(ctx, r, req.SessionID, key, out)
}

// AnalyzeDocument extracts text with the document reader chain and assesses it like AnalyzeText.
func (s *Service) AnalyzeDocument(ctx context.Context, req DocumentRequest) (out *Outcome, err error) {
	defer func() { s.observe(domain.MediaDocument, err, statusOf(out)) }()

	if strings.TrimSpace(req.SessionID) == "" {
		return nil, badRequest("session id required")
	}
	if len(req.Data) == 0 {
		return nil, badRequest("document is empty")
	}
	if e := s.requireLLM(); e != nil {
		return nil, e
	}
	mimeType := documentMimeType(req)

	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	key := cacheKey("document", []byte(mimeType), req.Data)
	if hit := s.cached(ctx, key); hit != nil {
		return s.replay(ctx, req.SessionID, hit)
	}

	r := newRun(s.log.With("media_type", string(domain.MediaDocument), "mime", mimeType))
	res, rep := chain.Sequential(ctx, provider.CapabilityDocument, s.adapters.Document,
		func(ctx context.Context, d provider.DocumentReader) provider.Result[string] {
			return d.ReadDocument(ctx, req.Data, mimeType)
		})
	if !res.OK {
		if allMalformed(rep) {
			return nil, r.fail(mediaFailed(fmt.Sprintf("could not extract text from %s document", mimeType), fmt.Errorf("%s", res.Detail)))
		}
		return nil, r.fail(chainError(res, "document"))
	}
	if err := r.to(StateEvidenceGathered); err != nil {
		return nil, r.fail(err)
	}

	out, err = s.runText(ctx, r, domain.MediaDocument, truncateRunes(strings.TrimSpace(res.Value), s.opts.MaxTextChars))
	if err != nil {
		return nil, r.fail(err)
	}
	out.Reports = append([]chain.Report{rep}, out.Reports...)
	if !contains(out.ProvidersUsed, string(res.Provider)) {
		out.ProvidersUsed = append([]string{string(res.Provider)}, out.ProvidersUsed...)
	}
	return s.finish(ctx, r, req.SessionID, key, out)
}

func (s *Service) runText(ctx context.Context, r *run, mt domain.MediaType, text string) (*Outcome, error) {
	ev := evidencePayload{MediaType: mt, SubjectCount: 1, Text: text}
	pa, rep, err := s.synthesizeSingle(ctx, r, prompts.Text(s.opts.RequiredFields), ev)
	if err != nil {
		return nil, err
	}
	if err := r.to(StateValidated); err != nil {
		return nil, err
	}
	out := &Outcome{
		MediaType:   mt,
		Status:      domain.AnalysisStatusComplete,
		People:      []domain.IntegratedPerson{},
		Assessments: []domain.PersonAssessment{pa},
		Reports:     []chain.Report{rep},
	}
	out.ProvidersUsed = providersUsed(out, chain.Report{})
	return out, nil
}

// finish persists a validated (or no-subject) outcome and fills the cache.
func (s *Service) finish(ctx context.Context, r *run, sessionID, key string, out *Outcome) (*Outcome, error) {
	if err := s.save(ctx, sessionID, out); err != nil {
		return nil, r.fail(err)
	}
	if err := r.to(StatePersisted); err != nil {
		return nil, r.fail(err)
	}
	s.remember(ctx, key, out)
	s.log.Info("analysis persisted",
		"analysis_id", out.AnalysisID.String(),
		"session_id", sessionID,
		"status", out.Status,
		"assessments", len(out.Assessments),
		"providers", strings.Join(out.ProvidersUsed, ","),
	)
	return out, nil
}

// replay stores a cached outcome as a new analysis of the calling session.
func (s *Service) replay(ctx context.Context, sessionID string, hit *Outcome) (*Outcome, error) {
	hit.Cached = true
	if err := s.save(ctx, sessionID, hit); err != nil {
		return nil, err
	}
	s.log.Info("analysis served from cache", "analysis_id", hit.AnalysisID.String(), "session_id", sessionID)
	return hit, nil
}

func (s *Service) save(ctx context.Context, sessionID string, out *Outcome) error {
	rec, err := out.Record(sessionID)
	if err != nil {
		return newError(provider.KindUnknown, "encode analysis", err)
	}
	if s.store != nil {
		if err := s.store.CreateAnalysis(ctx, rec); err != nil {
			return newError(provider.KindUnknown, "persist analysis", err)
		}
	}
	out.AnalysisID = rec.ID
	return nil
}

func (s *Service) cached(ctx context.Context, key string) *Outcome {
	if s.cache == nil {
		return nil
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("result cache read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var out Outcome
	if err := json.Unmarshal(b, &out); err != nil {
		s.log.Warn("result cache entry unreadable", "error", err)
		return nil
	}
	return &out
}

func (s *Service) remember(ctx context.Context, key string, out *Outcome) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b); err != nil {
		s.log.Warn("result cache write failed", "error", err)
	}
}

// Record converts an outcome into its persisted form. ID is assigned here.
func (o *Outcome) Record(sessionID string) (*domain.AnalysisRecord, error) {
	rec := &domain.AnalysisRecord{
		ID:        uuid.New(),
		SessionID: sessionID,
		MediaType: o.MediaType,
		Status:    o.Status,
		Note:      o.Note,
	}
	fields := []struct {
		dst *datatypes.JSON
		v   any
	}{
		{&rec.People, o.People},
		{&rec.Assessments, o.Assessments},
		{&rec.GroupDynamics, o.GroupDynamics},
		{&rec.Transcription, o.Transcription},
		{&rec.VideoInsights, o.VideoInsights},
		{&rec.ProvidersUsed, o.ProvidersUsed},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return nil, err
		}
		if string(b) != "null" {
			*f.dst = datatypes.JSON(b)
		}
	}
	return rec, nil
}

// OutcomeFromRecord rebuilds the response shape of a stored analysis.
func OutcomeFromRecord(rec *domain.AnalysisRecord) (*Outcome, error) {
	out := &Outcome{
		AnalysisID: rec.ID,
		MediaType:  rec.MediaType,
		Status:     rec.Status,
		Note:       rec.Note,
	}
	fields := []struct {
		src datatypes.JSON
		dst any
	}{
		{rec.People, &out.People},
		{rec.Assessments, &out.Assessments},
		{rec.GroupDynamics, &out.GroupDynamics},
		{rec.Transcription, &out.Transcription},
		{rec.VideoInsights, &out.VideoInsights},
		{rec.ProvidersUsed, &out.ProvidersUsed},
	}
	for _, f := range fields {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return nil, fmt.Errorf("decode analysis %s: %w", rec.ID, err)
		}
	}
	return out, nil
}

// providersUsed lists every provider whose output made it into the outcome, in first-use order.
func providersUsed(out *Outcome, faces chain.Report) []string {
	var used []string
	add := func(id string) {
		if id != "" && id != string(provider.None) && !contains(used, id) {
			used = append(used, id)
		}
	}
	for _, id := range faces.Succeeded {
		add(string(id))
	}
	if out.Transcription != nil {
		add(out.Transcription.Provider)
	}
	if out.VideoInsights != nil {
		add(out.VideoInsights.Provider)
	}
	for _, a := range out.Assessments {
		add(a.Provider)
	}
	if out.GroupDynamics != nil {
		add(out.GroupDynamics.Provider)
	}
	if used == nil {
		used = []string{}
	}
	return used
}

// multiProviderNote is set when faces were merged across providers or persons were assessed by
// different models.
func multiProviderNote(out *Outcome, faces chain.Report) string {
	var models []string
	for _, a := range out.Assessments {
		if !contains(models, a.Provider) {
			models = append(models, a.Provider)
		}
	}
	if len(faces.Succeeded) < 2 && len(models) < 2 {
		return ""
	}
	return "combined results from multiple providers: " + strings.Join(out.ProvidersUsed, ", ")
}

func documentMimeType(req DocumentRequest) string {
	mt := strings.TrimSpace(req.MimeType)
	if mt == "" || mt == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(req.FileName))); byExt != "" {
			mt = byExt
		} else {
			mt = http.DetectContentType(req.Data)
		}
	}
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	return mt
}

func allMalformed(rep chain.Report) bool {
	if len(rep.Failed) == 0 {
		return false
	}
	for _, k := range rep.Failed {
		if k != provider.KindMalformed {
			return false
		}
	}
	return true
}

func cacheKey(kind string, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write(p)
	}
	return "persona:analysis:" + hex.EncodeToString(h.Sum(nil))
}

func truncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func statusOf(out *Outcome) string {
	if out == nil {
		return ""
	}
	return out.Status
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
