package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IT-Nick/testpoint/internal/autosave"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/infra/config"
	"github.com/IT-Nick/testpoint/internal/infra/notify"
	"github.com/IT-Nick/testpoint/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner = model.Actor{ID: "teacher-1", Role: model.RoleTeacher}
	other = model.Actor{ID: "teacher-2", Role: model.RoleTeacher}
	admin = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
)

type server struct {
	t      *testing.T
	app    *App
	router http.Handler
	store  *memory.Store
}

func newServer(t *testing.T) *server {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Autosave.Debounce = time.Hour

	store := memory.New()
	require.NoError(t, store.AddGroup(context.Background(), model.Group{ID: "g1", Name: "10A"}))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := New(cfg, store, notify.Nop{}, log)
	t.Cleanup(func() { a.pipeline.Close() })
	return &server{t: t, app: a, router: a.Router(), store: store}
}

func (s *server) do(actor *model.Actor, method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req, actor)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *server) authorize(req *http.Request, actor *model.Actor) {
	s.t.Helper()
	if actor == nil {
		return
	}
	token, err := s.app.auth.IssueToken(*actor, time.Hour)
	require.NoError(s.t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

type errorBody struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields"`
}

type bulkBody struct {
	SuccessCount int `json:"successCount"`
	ErrorCount   int `json:"errorCount"`
	Errors       []struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	} `json:"errors"`
}

func (s *server) createTest(actor model.Actor) model.Test {
	s.t.Helper()
	rec := s.do(&actor, http.MethodPost, "/api/tests", map[string]any{
		"name":       "Quiz",
		"group_id":   "g1",
		"time_limit": 30,
		"date_time":  time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Test](s.t, rec)
}

func (s *server) addQuestion(actor model.Actor, testID string) model.Question {
	s.t.Helper()
	rec := s.do(&actor, http.MethodPost, "/api/tests/"+testID+"/questions", map[string]any{
		"text":                 "2+2?",
		"options":              []map[string]string{{"text": "4"}, {"text": "5"}},
		"correct_option_index": 0,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Question](s.t, rec)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec := s.do(nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","autosave":"idle"}`, rec.Body.String())
}

func TestUnauthorized(t *testing.T) {
	s := newServer(t)
	rec := s.do(nil, http.MethodGet, "/api/tests", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[errorBody](t, rec).Kind)
}

func TestQuizScenario(t *testing.T) {
	s := newServer(t)

	test := s.createTest(owner)
	assert.Equal(t, model.StatusDraft, test.Status)
	assert.Equal(t, 0, test.QuestionCount)

	s.addQuestion(owner, test.ID)
	rec := s.do(&owner, http.MethodGet, "/api/tests/"+test.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[model.Test](t, rec).QuestionCount)

	rec = s.do(&owner, http.MethodPost, "/api/tests/"+test.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusPublished, decode[model.Test](t, rec).Status)

	rec = s.do(&owner, http.MethodPost, "/api/tests/bulk", map[string]any{
		"test_ids": []string{test.ID},
		"action":   "delete",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[bulkBody](t, rec)
	assert.Equal(t, 0, res.SuccessCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Only draft tests can be deleted.", res.Errors[0].Reason)

	rec = s.do(&owner, http.MethodDelete, "/api/tests/"+test.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_draft", decode[errorBody](t, rec).Kind)

	rec = s.do(&owner, http.MethodPatch, "/api/tests/"+test.ID, map[string]any{"name": "Renamed"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "edit_not_allowed", decode[errorBody](t, rec).Kind)
}

func TestTransitionsAndPermissions(t *testing.T) {
	s := newServer(t)
	test := s.createTest(owner)

	rec := s.do(&owner, http.MethodPost, "/api/tests/"+test.ID+"/publish", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Test must have at least one question to be published.", decode[errorBody](t, rec).Error)

	s.addQuestion(owner, test.ID)
	rec = s.do(&other, http.MethodPost, "/api/tests/"+test.ID+"/publish", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(&admin, http.MethodPost, "/api/tests/"+test.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(&owner, http.MethodPost, "/api/tests/"+test.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	completed := decode[model.Test](t, rec)
	assert.Equal(t, model.StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	rec = s.do(&owner, http.MethodPost, "/api/tests/"+test.ID+"/revert", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusDraft, decode[model.Test](t, rec).Status)

	rec = s.do(&owner, http.MethodPost, "/api/tests/"+test.ID+"/start", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(&owner, http.MethodGet, "/api/tests/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Test not found", decode[errorBody](t, rec).Error)

	rec = s.do(&owner, http.MethodDelete, "/api/tests/"+test.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateTestValidation(t *testing.T) {
	s := newServer(t)
	rec := s.do(&owner, http.MethodPost, "/api/tests", map[string]any{"group_id": "g1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "validation_error", body.Kind)
	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "time_limit")
	assert.Contains(t, body.Fields, "date_time")

	rec = s.do(&owner, http.MethodPost, "/api/tests", map[string]any{"name": "Quiz", "question_count": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Fields["body"], "unknown field")
}

func TestListTests(t *testing.T) {
	s := newServer(t)
	s.createTest(owner)
	s.createTest(other)

	rec := s.do(&admin, http.MethodGet, "/api/tests?status=draft", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Total int          `json:"total"`
		Tests []model.Test `json:"tests"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 2, res.Total)

	rec = s.do(&admin, http.MethodGet, "/api/tests?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuestionsLifecycle(t *testing.T) {
	s := newServer(t)
	test := s.createTest(owner)
	q := s.addQuestion(owner, test.ID)
	base := "/api/tests/" + test.ID + "/questions/"

	rec := s.do(&owner, http.MethodPatch, base+q.ID, map[string]any{"correct_option_index": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[model.Question](t, rec).CorrectOptionIndex)

	rec = s.do(&owner, http.MethodPatch, base+q.ID, map[string]any{"correct_option_index": 7})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(&owner, http.MethodDelete, base+q.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(&owner, http.MethodDelete, base+q.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(&owner, http.MethodGet, "/api/tests/"+test.ID, nil)
	assert.Equal(t, 0, decode[model.Test](t, rec).QuestionCount)

	rec = s.do(&owner, http.MethodPost, base+"reconcile", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(&admin, http.MethodPost, base+"reconcile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"before":0,"after":0}`, rec.Body.String())
}

func TestBulkQuestions(t *testing.T) {
	s := newServer(t)
	test := s.createTest(owner)

	rec := s.do(&owner, http.MethodPost, "/api/tests/"+test.ID+"/questions/bulk", map[string]any{
		"rows": []map[string]any{
			{"text": "2+2?", "options": []string{"3", "4"}, "correct": 2},
			{"text": "Capital of France?", "options": []string{"Paris", "Rome"}, "correct": "A"},
			{"text": "", "options": []string{"a", "b"}, "correct": "1"},
			{"text": "Largest planet?", "options": []string{"Mars", "Jupiter"}, "correct": "2"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res struct {
		SuccessCount int `json:"successCount"`
		Skipped      []struct {
			Line   int    `json:"line"`
			Reason string `json:"reason"`
		} `json:"skipped"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 3, res.SuccessCount)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 3, res.Skipped[0].Line)

	rec = s.do(&owner, http.MethodGet, "/api/tests/"+test.ID, nil)
	assert.Equal(t, 3, decode[model.Test](t, rec).QuestionCount)

	rec = s.do(&owner, http.MethodPost, "/api/tests/"+test.ID+"/questions/bulk", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportCSV(t *testing.T) {
	s := newServer(t)
	test := s.createTest(owner)

	csv := "question,option 1,option 2,correct\n2+2?,3,4,2\n,a,b,1\n3+3?,6,7,1\n"
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "questions.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tests/"+test.ID+"/questions/import", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.authorize(req, &owner)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res struct {
		TotalRows    int `json:"totalRows"`
		SuccessCount int `json:"successCount"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 3, res.TotalRows)
	assert.Equal(t, 2, res.SuccessCount)
}

func TestResults(t *testing.T) {
	s := newServer(t)
	test := s.createTest(owner)
	for _, id := range []string{"s-1", "s-2"} {
		require.NoError(t, s.store.AddSession(context.Background(), model.TestSession{
			ID: id, TestID: test.ID, StudentID: "student-" + id, Status: "completed", StartTime: time.Now(),
		}))
	}

	path := "/api/tests/" + test.ID + "/results"
	rec := s.do(&owner, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 2, res.Total)

	rec = s.do(&owner, http.MethodGet, path+"/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = s.do(&other, http.MethodGet, path+"/report", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(&owner, http.MethodPost, path, map[string]any{"session_ids": []string{"s-1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())
}

func TestQuestionDraft(t *testing.T) {
	s := newServer(t)
	test := s.createTest(owner)
	q := s.addQuestion(owner, test.ID)
	path := "/api/tests/" + test.ID + "/questions/" + q.ID + "/draft"

	rec := s.do(&other, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(&owner, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", decode[map[string]any](t, rec)["status"])

	draft := map[string]any{
		"text":                 "2+3?",
		"options":              q.Options,
		"correct_option_index": 1,
	}
	rec = s.do(&owner, http.MethodPut, path, draft)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "dirty", decode[map[string]any](t, rec)["status"])

	rec = s.do(&owner, http.MethodPut, path+"?flush=true", draft)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "saved", decode[map[string]any](t, rec)["status"])

	rec = s.do(&owner, http.MethodGet, "/api/tests/"+test.ID+"/questions/"+q.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[model.Question](t, rec)
	assert.Equal(t, "2+3?", saved.Text)
	assert.Equal(t, 1, saved.CorrectOptionIndex)
}

func TestQuestionPatchRefreshesDraft(t *testing.T) {
	s := newServer(t)
	test := s.createTest(owner)
	q := s.addQuestion(owner, test.ID)
	path := "/api/tests/" + test.ID + "/questions/" + q.ID

	rec := s.do(&owner, http.MethodGet, path+"/draft", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(&owner, http.MethodPatch, path, map[string]any{"text": "3+3?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(&owner, http.MethodGet, path+"/draft", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[autosave.Snapshot](t, rec)
	assert.Equal(t, "3+3?", snap.Draft.Text)
	assert.Equal(t, "3+3?", snap.Saved.Text)
	assert.Empty(t, snap.Dirty)
	assert.Equal(t, autosave.StatusIdle, snap.Status)
}

func TestQuestionPatchRejectedWhileDraftPending(t *testing.T) {
	s := newServer(t)
	test := s.createTest(owner)
	q := s.addQuestion(owner, test.ID)
	path := "/api/tests/" + test.ID + "/questions/" + q.ID
	draft := map[string]any{"text": "from draft", "options": q.Options, "correct_option_index": 0}

	rec := s.do(&owner, http.MethodPut, path+"/draft", draft)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = s.do(&owner, http.MethodPatch, path, map[string]any{"text": "direct"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "edit_not_allowed", decode[errorBody](t, rec).Kind)

	rec = s.do(&owner, http.MethodPut, path+"/draft?flush=true", draft)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, autosave.StatusSaved, decode[autosave.Snapshot](t, rec).Status)

	rec = s.do(&owner, http.MethodPatch, path, map[string]any{"text": "direct"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "direct", decode[model.Question](t, rec).Text)
}

func TestQuestionDeleteUntracksDraft(t *testing.T) {
	s := newServer(t)
	test := s.createTest(owner)
	q := s.addQuestion(owner, test.ID)
	path := "/api/tests/" + test.ID + "/questions/" + q.ID

	rec := s.do(&owner, http.MethodPut, path+"/draft", map[string]any{"text": "pending", "options": q.Options})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, autosave.StatusDirty, s.app.pipeline.Aggregate())

	rec = s.do(&owner, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(nil, http.MethodGet, "/health", nil)
	assert.JSONEq(t, `{"status":"ok","autosave":"idle"}`, rec.Body.String())
	assert.NoError(t, s.app.pipeline.Flush(context.Background()))
}

func TestQuestionDraftPutWithoutOptionIDs(t *testing.T) {
	s := newServer(t)
	test := s.createTest(owner)
	q := s.addQuestion(owner, test.ID)
	path := "/api/tests/" + test.ID + "/questions/" + q.ID + "/draft"

	rec := s.do(&owner, http.MethodPut, path, map[string]any{
		"text":                 "2+3?",
		"options":              []map[string]string{{"text": "4"}, {"text": "5"}},
		"correct_option_index": 0,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	snap := decode[autosave.Snapshot](t, rec)
	assert.Equal(t, []autosave.Field{autosave.FieldText}, snap.Dirty)
	assert.Equal(t, q.Options, snap.Draft.Options)
}
