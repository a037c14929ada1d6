package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/yungbote/persona-backend/internal/domain"
	"github.com/yungbote/persona-backend/internal/provider"
)

func asError(t *testing.T, err error) *Error {
	t.Helper()
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %v", err)
	}
	return e
}

func imageRequest() MediaRequest {
	return MediaRequest{SessionID: "s1", Data: []byte("jpeg"), MediaType: domain.MediaImage}
}

func TestAnalyzeMedia_NoLanguageModelFailsBeforeAnyCall(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true, faces: []domain.FaceObservation{face(0.1, domain.GenderMale)}}
	llm := &stubLLM{id: provider.OpenAI}
	f := newFixture(t, Adapters{Face: []provider.FaceDetector{fp}, LLM: []provider.LanguageModel{llm}}, Options{})

	_, err := f.svc.AnalyzeMedia(context.Background(), imageRequest())
	e := asError(t, err)
	if e.Kind != provider.KindUnavailable || e.HTTPStatus() != http.StatusServiceUnavailable {
		t.Fatalf("error = %+v", e)
	}
	if fp.calls.Load() != 0 || llm.calls.Load() != 0 {
		t.Fatalf("providers called: face=%d llm=%d", fp.calls.Load(), llm.calls.Load())
	}
	if len(f.store.analyses) != 0 {
		t.Fatalf("nothing should be persisted")
	}
}

func TestAnalyzeMedia_ImageSingleSubject(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true, faces: []domain.FaceObservation{face(0.1, domain.GenderFemale)}}
	az := &stubFace{id: provider.AzureFace, configured: true, faces: []domain.FaceObservation{face(0.12, domain.GenderFemale)}}
	f := newFixture(t, Adapters{
		Face: []provider.FaceDetector{fp, az},
		LLM:  []provider.LanguageModel{goodLLM(provider.OpenAI), goodLLM(provider.Anthropic)},
	}, Options{})

	out, err := f.svc.AnalyzeMedia(context.Background(), imageRequest())
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.AnalysisStatusComplete || len(out.Assessments) != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	a := out.Assessments[0]
	if a.Provider != string(provider.OpenAI) || a.PersonLabel != "Person 1 (Female)" {
		t.Fatalf("canonical assessment = %+v", a)
	}
	if out.Note == "" || !strings.Contains(out.Note, "multiple providers") {
		t.Fatalf("note = %q", out.Note)
	}
	if len(f.store.analyses) != 1 || f.store.analyses[0].ID != out.AnalysisID {
		t.Fatalf("persisted = %+v", f.store.analyses)
	}
}

func TestAnalyzeMedia_RepromptsOnceThenSucceeds(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true, faces: []domain.FaceObservation{face(0.1, domain.GenderMale)}}
	var evidenceSeen string
	llm := &stubLLM{id: provider.OpenAI, configured: true, respond: func(n int, system, evidence string) provider.Result[string] {
		if n == 1 {
			return provider.Success(provider.OpenAI, incompleteAssessmentJSON())
		}
		evidenceSeen = evidence
		if !strings.Contains(system, "potential_blind_spots") || !strings.Contains(system, "incomplete") {
			t.Errorf("reprompt should name the missing field: %s", system)
		}
		return provider.Success(provider.OpenAI, validAssessmentJSON())
	}}
	f := newFixture(t, Adapters{Face: []provider.FaceDetector{fp}, LLM: []provider.LanguageModel{llm}}, Options{})

	out, err := f.svc.AnalyzeMedia(context.Background(), imageRequest())
	if err != nil {
		t.Fatal(err)
	}
	if llm.calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", llm.calls.Load())
	}
	if !strings.Contains(evidenceSeen, "previous_answer") {
		t.Fatalf("reprompt evidence should carry the previous answer")
	}
	if got := out.Assessments[0].Assessment.Fields["potential_blind_spots"]; len(got) < 10 {
		t.Fatalf("field not repaired: %q", got)
	}
}

func TestAnalyzeMedia_ValidationFailedAfterSingleReprompt(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true, faces: []domain.FaceObservation{face(0.1, domain.GenderMale)}}
	llm := &stubLLM{id: provider.OpenAI, configured: true, respond: func(int, string, string) provider.Result[string] {
		return provider.Success(provider.OpenAI, incompleteAssessmentJSON())
	}}
	f := newFixture(t, Adapters{Face: []provider.FaceDetector{fp}, LLM: []provider.LanguageModel{llm}}, Options{})

	_, err := f.svc.AnalyzeMedia(context.Background(), imageRequest())
	e := asError(t, err)
	if e.Kind != provider.KindValidationFailed || e.HTTPStatus() != http.StatusInternalServerError {
		t.Fatalf("error = %+v", e)
	}
	if len(e.MissingFields) != 1 || e.MissingFields[0] != "potential_blind_spots" {
		t.Fatalf("missing = %v", e.MissingFields)
	}
	if !strings.Contains(e.Message, "regenerate") {
		t.Fatalf("message = %q", e.Message)
	}
	if llm.calls.Load() != 2 {
		t.Fatalf("calls = %d, want exactly one reprompt", llm.calls.Load())
	}
	if len(f.store.analyses) != 0 {
		t.Fatalf("invalid analysis must not be persisted")
	}
}

func TestAnalyzeMedia_ValidationFailedListsEveryMissingField(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true, faces: []domain.FaceObservation{face(0.1, domain.GenderFemale)}}
	llm := &stubLLM{id: provider.Anthropic, configured: true, respond: func(int, string, string) provider.Result[string] {
		return provider.Success(provider.Anthropic, assessmentJSONWithout(map[string]bool{
			"openness":       true,
			"values_signals": false,
			"conflict_style": false,
		}))
	}}
	f := newFixture(t, Adapters{Face: []provider.FaceDetector{fp}, LLM: []provider.LanguageModel{llm}}, Options{})

	_, err := f.svc.AnalyzeMedia(context.Background(), imageRequest())
	e := asError(t, err)
	want := []string{"values_signals", "conflict_style", "openness"}
	if !reflect.DeepEqual(e.MissingFields, want) {
		t.Fatalf("missing = %v, want %v", e.MissingFields, want)
	}
	if e.HTTPStatus() != http.StatusInternalServerError || llm.calls.Load() != 2 {
		t.Fatalf("status = %d calls = %d", e.HTTPStatus(), llm.calls.Load())
	}
}

func TestAnalyzeMedia_PrefersFirstValidInOrder(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true, faces: []domain.FaceObservation{face(0.1, domain.GenderMale)}}
	bad := &stubLLM{id: provider.OpenAI, configured: true, respond: func(int, string, string) provider.Result[string] {
		return provider.Success(provider.OpenAI, "not json at all")
	}}
	good := goodLLM(provider.Gemini)
	f := newFixture(t, Adapters{Face: []provider.FaceDetector{fp}, LLM: []provider.LanguageModel{bad, good}}, Options{})

	out, err := f.svc.AnalyzeMedia(context.Background(), imageRequest())
	if err != nil {
		t.Fatal(err)
	}
	if out.Assessments[0].Provider != string(provider.Gemini) {
		t.Fatalf("provider = %s", out.Assessments[0].Provider)
	}
	if bad.calls.Load() != 1 {
		t.Fatalf("no reprompt expected when another model was valid")
	}
}

func TestAnalyzeMedia_NoSubjectsIsPersistedOutcome(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true}
	llm := goodLLM(provider.OpenAI)
	f := newFixture(t, Adapters{Face: []provider.FaceDetector{fp}, LLM: []provider.LanguageModel{llm}}, Options{})

	out, err := f.svc.AnalyzeMedia(context.Background(), imageRequest())
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != domain.AnalysisStatusNoSubjects || len(out.Assessments) != 0 {
		t.Fatalf("outcome = %+v", out)
	}
	if llm.calls.Load() != 0 {
		t.Fatalf("no synthesis without subjects")
	}
	if len(f.store.analyses) != 1 || f.store.analyses[0].Status != domain.AnalysisStatusNoSubjects {
		t.Fatalf("persisted = %+v", f.store.analyses)
	}
}

func TestAnalyzeMedia_FaceFailures(t *testing.T) {
	cases := []struct {
		name   string
		faces  []provider.FaceDetector
		kind   provider.ErrorKind
		status int
	}{
		{"none configured", []provider.FaceDetector{&stubFace{id: provider.FacePlusPlus}}, provider.KindUnavailable, http.StatusServiceUnavailable},
		{"all failed", []provider.FaceDetector{
			&stubFace{id: provider.FacePlusPlus, configured: true, kind: provider.KindRateLimited},
			&stubFace{id: provider.AzureFace},
		}, provider.KindAllProvidersFailed, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Adapters{Face: tc.faces, LLM: []provider.LanguageModel{goodLLM(provider.OpenAI)}}, Options{})
			_, err := f.svc.AnalyzeMedia(context.Background(), imageRequest())
			e := asError(t, err)
			if e.Kind != tc.kind || e.HTTPStatus() != tc.status {
				t.Fatalf("error = %+v", e)
			}
		})
	}
}

func TestAnalyzeMedia_MultiSubject(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true, faces: []domain.FaceObservation{
		face(0.1, domain.GenderMale), face(0.5, domain.GenderFemale), face(0.8, domain.GenderUnknown),
	}}
	llm := goodLLM(provider.Anthropic)
	f := newFixture(t, Adapters{Face: []provider.FaceDetector{fp}, LLM: []provider.LanguageModel{llm}}, Options{MaxPeople: 2})

	out, err := f.svc.AnalyzeMedia(context.Background(), imageRequest())
	if err != nil {
		t.Fatal(err)
	}
	if len(out.People) != 2 || len(out.Assessments) != 2 {
		t.Fatalf("people=%d assessments=%d", len(out.People), len(out.Assessments))
	}
	if out.Assessments[1].PersonLabel != "Person 2 (Female)" {
		t.Fatalf("labels = %s, %s", out.Assessments[0].PersonLabel, out.Assessments[1].PersonLabel)
	}
	if out.GroupDynamics == nil || out.GroupDynamics.Text == "" {
		t.Fatalf("group dynamics missing")
	}
	// two persons plus one group call
	if llm.calls.Load() != 3 {
		t.Fatalf("llm calls = %d", llm.calls.Load())
	}
}

func TestAnalyzeMedia_MultiSubjectToleratesPartialFailure(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true, faces: []domain.FaceObservation{
		face(0.1, domain.GenderMale), face(0.5, domain.GenderFemale),
	}}
	flaky := &stubLLM{id: provider.OpenAI, configured: true, respond: func(n int, system, evidence string) provider.Result[string] {
		if strings.Contains(evidence, "Person 2") {
			return provider.Failure[string](provider.OpenAI, provider.KindTimeout, "slow")
		}
		return provider.Success(provider.OpenAI, validAssessmentJSON())
	}}
	f := newFixture(t, Adapters{Face: []provider.FaceDetector{fp}, LLM: []provider.LanguageModel{flaky}}, Options{})

	out, err := f.svc.AnalyzeMedia(context.Background(), imageRequest())
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Assessments) != 1 || out.Assessments[0].PersonLabel != "Person 1 (Male)" {
		t.Fatalf("assessments = %+v", out.Assessments)
	}
	if out.GroupDynamics != nil {
		t.Fatalf("group dynamics needs two assessed persons")
	}
}

func TestAnalyzeMedia_VideoClampsSegment(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true, faces: []domain.FaceObservation{face(0.1, domain.GenderMale)}}
	tr := &stubTranscriber{id: provider.Gladia, out: domain.TranscriptionResult{Provider: "gladia", FullText: "hello there"}}
	scratch := t.TempDir()
	f := newFixture(t, Adapters{
		Face:          []provider.FaceDetector{fp},
		Transcription: []provider.Transcriber{tr},
		LLM:           []provider.LanguageModel{goodLLM(provider.OpenAI)},
	}, Options{ScratchDir: scratch})
	f.media.duration = 9

	out, err := f.svc.AnalyzeMedia(context.Background(), MediaRequest{
		SessionID: "s1", Data: []byte("mp4"), MediaType: domain.MediaVideo,
		SegmentStartSec: 8, SegmentDurationSec: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.media.segments) != 1 || f.media.segments[0] != [2]float64{8, 1} {
		t.Fatalf("segments = %v", f.media.segments)
	}
	if f.media.frames[0] != 0.5 {
		t.Fatalf("frame taken at %v", f.media.frames[0])
	}
	if out.Transcription == nil || len(out.Transcription.Utterances) != 1 {
		t.Fatalf("transcription = %+v", out.Transcription)
	}
	if got := scratchEntries(t, scratch); len(got) != 0 {
		t.Fatalf("scratch not cleaned: %v", got)
	}
}

func TestAnalyzeMedia_VideoSegmentPastEnd(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true}
	llm := goodLLM(provider.OpenAI)
	scratch := t.TempDir()
	f := newFixture(t, Adapters{Face: []provider.FaceDetector{fp}, LLM: []provider.LanguageModel{llm}}, Options{ScratchDir: scratch})
	f.media.duration = 9

	_, err := f.svc.AnalyzeMedia(context.Background(), MediaRequest{
		SessionID: "s1", Data: []byte("mp4"), MediaType: domain.MediaVideo, SegmentStartSec: 9.5,
	})
	e := asError(t, err)
	if e.Kind != provider.KindMediaProcessingFailed || e.HTTPStatus() != http.StatusBadRequest {
		t.Fatalf("error = %+v", e)
	}
	if fp.calls.Load() != 0 || llm.calls.Load() != 0 {
		t.Fatalf("no provider should run for an empty segment")
	}
	if got := scratchEntries(t, scratch); len(got) != 0 {
		t.Fatalf("scratch not cleaned: %v", got)
	}
}

func TestAnalyzeMedia_VideoTranscriptOnly(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true}
	tr := &stubTranscriber{id: provider.AssemblyAI, out: domain.TranscriptionResult{
		Provider:   "assemblyai",
		Utterances: []domain.Utterance{{Text: "I think we should wait."}},
	}}
	f := newFixture(t, Adapters{
		Face:          []provider.FaceDetector{fp},
		Transcription: []provider.Transcriber{tr},
		LLM:           []provider.LanguageModel{goodLLM(provider.OpenAI)},
	}, Options{})
	f.media.probeErr = errors.New("moov atom not found")

	out, err := f.svc.AnalyzeMedia(context.Background(), MediaRequest{SessionID: "s1", Data: []byte("mp4"), MediaType: domain.MediaVideo})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Assessments) != 1 || out.Assessments[0].PersonLabel != "Subject" {
		t.Fatalf("assessments = %+v", out.Assessments)
	}
	// probe failure falls back to the 30s default, segment defaults to 10s
	if f.media.segments[0] != [2]float64{0, 10} {
		t.Fatalf("segments = %v", f.media.segments)
	}
}

func TestAnalyzeMedia_VideoWithoutAnyEvidenceFails(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true, kind: provider.KindAuthFailed}
	f := newFixture(t, Adapters{Face: []provider.FaceDetector{fp}, LLM: []provider.LanguageModel{goodLLM(provider.OpenAI)}}, Options{})
	f.media.noAudio = true

	_, err := f.svc.AnalyzeMedia(context.Background(), MediaRequest{SessionID: "s1", Data: []byte("mp4"), MediaType: domain.MediaVideo})
	if e := asError(t, err); e.Kind != provider.KindAllProvidersFailed {
		t.Fatalf("error = %+v", e)
	}
}

func TestAnalyzeMedia_CacheReplaysIntoNewRecord(t *testing.T) {
	fp := &stubFace{id: provider.FacePlusPlus, configured: true, faces: []domain.FaceObservation{face(0.1, domain.GenderMale)}}
	llm := goodLLM(provider.OpenAI)
	store := &memStore{}
	svc := New(nil, Adapters{Face: []provider.FaceDetector{fp}, LLM: []provider.LanguageModel{llm}},
		&fakeTranscoder{duration: 30}, store, &memCache{}, nil, Options{ScratchDir: t.TempDir()})

	first, err := svc.AnalyzeMedia(context.Background(), imageRequest())
	if err != nil {
		t.Fatal(err)
	}
	req := imageRequest()
	req.SessionID = "s2"
	second, err := svc.AnalyzeMedia(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.AnalysisID == first.AnalysisID {
		t.Fatalf("second = %+v", second)
	}
	if llm.calls.Load() != 1 || fp.calls.Load() != 1 {
		t.Fatalf("cache hit should not call providers")
	}
	if len(store.analyses) != 2 || store.analyses[1].SessionID != "s2" {
		t.Fatalf("records = %+v", store.analyses)
	}
}

func TestSniffMediaType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000000000")
	if mt, err := sniffMediaType("", png); err != nil || mt != domain.MediaImage {
		t.Fatalf("png = %v %v", mt, err)
	}
	if _, err := sniffMediaType("", []byte("plain words")); err == nil {
		t.Fatal("text should not be accepted as media")
	}
	if _, err := sniffMediaType("audio", png); asError(t, err).Kind != KindBadRequest {
		t.Fatalf("unknown declared type should be a bad request")
	}
}

func TestSegmentWindow(t *testing.T) {
	cases := []struct {
		start, req, total float64
		wantStart, want   float64
		fail              bool
	}{
		{0, 0, 30, 0, 10, false},
		{8, 10, 9, 8, 1, false},
		{-2, 5, 30, 0, 5, false},
		{9, 5, 9, 0, 0, true},
		{12, 5, 9, 0, 0, true},
	}
	for _, tc := range cases {
		start, got, err := segmentWindow(tc.start, tc.req, tc.total, 10)
		if tc.fail {
			if err == nil {
				t.Fatalf("%+v: expected error", tc)
			}
			continue
		}
		if err != nil || start != tc.wantStart || got != tc.want {
			t.Fatalf("%+v: got start=%v dur=%v err=%v", tc, start, got, err)
		}
	}
}

func TestAnalyzeText(t *testing.T) {
	llm := &stubLLM{id: provider.OpenAI, configured: true, respond: func(n int, system, evidence string) provider.Result[string] {
		if !strings.Contains(evidence, "I rarely write long emails") {
			t.Errorf("evidence missing text: %s", evidence)
		}
		return provider.Success(provider.OpenAI, validAssessmentJSON())
	}}
	f := newFixture(t, Adapters{LLM: []provider.LanguageModel{llm}}, Options{})

	out, err := f.svc.AnalyzeText(context.Background(), TextRequest{SessionID: "s1", Text: "  I rarely write long emails.  "})
	if err != nil {
		t.Fatal(err)
	}
	if out.MediaType != domain.MediaText || out.Assessments[0].PersonLabel != "Author" {
		t.Fatalf("outcome = %+v", out)
	}
	if _, err := f.svc.AnalyzeText(context.Background(), TextRequest{SessionID: "s1", Text: "   "}); asError(t, err).HTTPStatus() != http.StatusBadRequest {
		t.Fatal("blank text should be rejected")
	}
}

func TestAnalyzeDocument(t *testing.T) {
	t.Run("falls back to local reader", func(t *testing.T) {
		f := newFixture(t, Adapters{
			Document: []provider.DocumentReader{
				&stubReader{id: provider.DocumentAI, kind: provider.KindUnavailable},
				&stubReader{id: provider.LocalText, text: "Dear team, thanks for the patience."},
			},
			LLM: []provider.LanguageModel{goodLLM(provider.OpenAI)},
		}, Options{})
		out, err := f.svc.AnalyzeDocument(context.Background(), DocumentRequest{SessionID: "s1", Data: []byte("x"), FileName: "note.txt"})
		if err != nil {
			t.Fatal(err)
		}
		if out.MediaType != domain.MediaDocument || out.ProvidersUsed[0] != string(provider.LocalText) {
			t.Fatalf("outcome = %+v", out)
		}
	})
	t.Run("unreadable is a bad request", func(t *testing.T) {
		f := newFixture(t, Adapters{
			Document: []provider.DocumentReader{&stubReader{id: provider.LocalText, kind: provider.KindMalformed}},
			LLM:      []provider.LanguageModel{goodLLM(provider.OpenAI)},
		}, Options{})
		_, err := f.svc.AnalyzeDocument(context.Background(), DocumentRequest{SessionID: "s1", Data: []byte{0xff, 0xfe}, MimeType: "application/pdf"})
		if e := asError(t, err); e.Kind != provider.KindMediaProcessingFailed {
			t.Fatalf("error = %+v", e)
		}
	})
}

func TestDocumentMimeType(t *testing.T) {
	cases := map[string]DocumentRequest{
		"application/pdf": {MimeType: "application/pdf; charset=binary"},
		"text/plain":      {FileName: "notes.txt"},
		"text/markdown":   {MimeType: "text/markdown"},
	}
	for want, req := range cases {
		if got := documentMimeType(req); got != want {
			t.Fatalf("%+v: got %q want %q", req, got, want)
		}
	}
}

func TestChat(t *testing.T) {
	llm := goodLLM(provider.OpenAI)
	f := newFixture(t, Adapters{LLM: []provider.LanguageModel{llm}}, Options{})

	if _, err := f.svc.Chat(context.Background(), ChatRequest{SessionID: "s1", Message: "why?"}); asError(t, err).Kind != KindNotFound {
		t.Fatalf("chat without analysis should be not found")
	}

	out, err := f.svc.AnalyzeText(context.Background(), TextRequest{SessionID: "s1", Text: "I like quiet mornings."})
	if err != nil {
		t.Fatal(err)
	}
	reply, err := f.svc.Chat(context.Background(), ChatRequest{SessionID: "s1", Message: "What stands out?"})
	if err != nil {
		t.Fatal(err)
	}
	if reply.AnalysisID != out.AnalysisID || reply.Message.Role != domain.ChatRoleAssistant || reply.Message.Content == "" {
		t.Fatalf("reply = %+v", reply)
	}
	if len(f.store.messages) != 2 || f.store.messages[0].Role != domain.ChatRoleUser {
		t.Fatalf("messages = %+v", f.store.messages)
	}
}

func TestChat_ProviderFailureStoresNothing(t *testing.T) {
	f := newFixture(t, Adapters{LLM: []provider.LanguageModel{failingLLM(provider.OpenAI, provider.KindRateLimited)}}, Options{})
	rec, _ := (&Outcome{MediaType: domain.MediaText, Status: domain.AnalysisStatusComplete}).Record("s1")
	_ = f.store.CreateAnalysis(context.Background(), rec)

	_, err := f.svc.Chat(context.Background(), ChatRequest{SessionID: "s1", Message: "hi"})
	if e := asError(t, err); e.Kind != provider.KindAllProvidersFailed {
		t.Fatalf("error = %+v", e)
	}
	if len(f.store.messages) != 0 {
		t.Fatalf("messages stored on failure")
	}
}

func TestOutcomeRecordRoundTrip(t *testing.T) {
	in := &Outcome{
		MediaType:     domain.MediaImage,
		Status:        domain.AnalysisStatusComplete,
		People:        []domain.IntegratedPerson{{PersonLabel: "Person 1"}},
		ProvidersUsed: []string{"facepp", "openai"},
	}
	rec, err := in.Record("s1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.GroupDynamics != nil {
		t.Fatalf("nil sections should stay empty")
	}
	out, err := OutcomeFromRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	if out.AnalysisID != rec.ID || len(out.People) != 1 || out.ProvidersUsed[1] != "openai" {
		t.Fatalf("out = %+v", out)
	}
}

func TestScratchDirRemovedOnExtractFailure(t *testing.T) {
	scratch := t.TempDir()
	f := newFixture(t, Adapters{LLM: []provider.LanguageModel{goodLLM(provider.OpenAI)}}, Options{ScratchDir: scratch})
	f.svc.media = failingTranscoder{}
	_, err := f.svc.AnalyzeMedia(context.Background(), MediaRequest{SessionID: "s1", Data: []byte("mp4"), MediaType: domain.MediaVideo})
	if asError(t, err).Kind != provider.KindMediaProcessingFailed {
		t.Fatalf("error = %v", err)
	}
	if got := scratchEntries(t, scratch); len(got) != 0 {
		t.Fatalf("scratch not cleaned: %v", got)
	}
}

type failingTranscoder struct{}

func (failingTranscoder) ProbeDuration(context.Context, string) (float64, error) { return 5, nil }
func (failingTranscoder) ExtractSegment(ctx context.Context, in, out string, s, d float64) error {
	return errors.New("ffmpeg: invalid data found when processing input " + filepath.Base(in))
}
func (failingTranscoder) ExtractFrame(context.Context, string, string, float64) error { return nil }
func (failingTranscoder) ExtractAudio(context.Context, string, string) error { return nil }
