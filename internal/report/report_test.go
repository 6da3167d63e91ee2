package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leukemia-care-portal/internal/consent"
	"leukemia-care-portal/internal/dashboard"
	"leukemia-care-portal/internal/platform/apperrors"
)

type fakeTelegram struct {
	enabled bool
	err     error
	sent    []File
	chatIDs []int64
}

func (f *fakeTelegram) Enabled() bool { return f.enabled }

func (f *fakeTelegram) SendDocument(_ context.Context, chatID int64, data []byte, name string) error {
	f.chatIDs = append(f.chatIDs, chatID)
	f.sent = append(f.sent, File{Name: name, Data: data})
	return f.err
}

type fakeLookup struct {
	st  consent.Status
	err error
}

func (f fakeLookup) Status(context.Context, string) (consent.Status, error) { return f.st, f.err }

func requireFont(t *testing.T) string {
	t.Helper()
	path, err := resolveFont("")
	if err != nil {
		t.Skip("no DejaVu font installed")
	}
	return path
}

func newTestService(tg Telegram) *service {
	s := NewService(Config{PIN: "123456", DoctorChatID: 42}, dashboard.MockSource{}, tg, zerolog.Nop()).(*service)
	s.now = func() time.Time { return time.Date(2024, 1, 10, 14, 5, 0, 0, time.UTC) }
	return s
}

func testDocument(plan *Plan) Document {
	v, _ := dashboard.MockSource{}.Patient(context.Background())
	return Document{
		Patient:     v.Patient,
		Progress:    v.Progress,
		Plan:        plan,
		GeneratedAt: time.Date(2024, 1, 10, 14, 5, 0, 0, time.UTC),
	}
}

func texts(lines []line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}

func TestDocument_Lines(t *testing.T) {
	got := texts(testDocument(nil).lines())

	assert.Equal(t, "Patient Medical Report", got[0])
	assert.Contains(t, got, "Blood Type: A+")
	assert.Contains(t, got, "Patient Id: PT-20231115-001")
	assert.Contains(t, got, "Progress: 1 of 5 steps")
	assert.Contains(t, got, "PLATELETS: 150")
	assert.Contains(t, got, "2023-12-05: Blood counts improving. Continuing with scheduled protocol.")
	assert.NotContains(t, got, "Treatment Plan")
}

func TestDocument_LinesWithPlan(t *testing.T) {
	opt, ok := consent.FindTreatment("targeted")
	require.True(t, ok)
	got := texts(testDocument(&Plan{Treatment: opt, ConsentedAt: time.Date(2024, 1, 9, 8, 0, 0, 0, time.UTC)}).lines())

	n := len(got)
	assert.Equal(t, []string{
		"Treatment Plan",
		"Selected Treatment: Targeted Therapy",
		"Description: Molecular targeted approach",
		"Expected Duration: 12 months",
		"Consent Status: Consent provided on 2024-01-09",
	}, got[n-5:])
}

func TestDocument_FileNameAndFooter(t *testing.T) {
	d := testDocument(nil)
	d.Patient.Name = "Mary  Ann Lee"
	assert.Equal(t, "Mary_Ann_Lee_Medical_Report.pdf", d.FileName())
	assert.Equal(t, "Generated on 2024-01-10 14:05:00 - Page 2 of 3", d.footer(2, 3))
}

func TestAuthorize(t *testing.T) {
	s := newTestService(nil)
	assert.NoError(t, s.Authorize("123456"))

	err := s.Authorize("000000")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.TypeInvalidCredentials))
	appErr, _ := apperrors.As(err)
	assert.Equal(t, MsgInvalidPIN, appErr.Message)

	empty := NewService(Config{}, dashboard.MockSource{}, nil, zerolog.Nop())
	assert.Error(t, empty.Authorize(""))
}

func TestRenderPDF(t *testing.T) {
	font := requireFont(t)

	data, pages, err := renderPDF(font, testDocument(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRenderPDF_Paginates(t *testing.T) {
	font := requireFont(t)

	doc := testDocument(nil)
	for i := 0; i < 80; i++ {
		doc.Progress.ProgressNotes = append(doc.Progress.ProgressNotes, dashboard.ProgressNote{
			Date: "2024-01-01",
			Note: strings.Repeat("Counts stable, no change to the protocol. ", 3),
		})
	}
	_, pages, err := renderPDF(font, doc)
	require.NoError(t, err)
	assert.Greater(t, pages, 1)
}

func TestConsentGiven_TelegramDisabled(t *testing.T) {
	tg := &fakeTelegram{}
	s := newTestService(tg)

	require.NoError(t, s.ConsentGiven(context.Background(), consent.Record{FormID: "f", Treatment: "standard"}))
	assert.Empty(t, tg.sent)
}

func TestConsentGiven_SendsReport(t *testing.T) {
	requireFont(t)
	tg := &fakeTelegram{enabled: true}
	s := newTestService(tg)

	rec := consent.Record{FormID: "f", Treatment: "immunotherapy", Method: consent.MethodVideo, RecordedAt: time.Now()}
	require.NoError(t, s.ConsentGiven(context.Background(), rec))
	require.Len(t, tg.sent, 1)
	assert.Equal(t, []int64{42}, tg.chatIDs)
	assert.Equal(t, "John_Smith_Medical_Report.pdf", tg.sent[0].Name)

	tg.err = errors.New("telegram down")
	err := s.ConsentGiven(context.Background(), rec)
	assert.True(t, apperrors.Is(err, apperrors.TypeNetwork))
}

func TestHandler_Download(t *testing.T) {
	newRouter := func(lookup ConsentLookup) *chi.Mux {
		r := chi.NewRouter()
		RegisterRoutes(r, NewHandler(newTestService(nil), lookup))
		return r
	}
	post := func(r http.Handler, req DownloadRequest) *httptest.ResponseRecorder {
		body, _ := json.Marshal(req)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/report", bytes.NewReader(body)))
		return rec
	}

	t.Run("wrong pin", func(t *testing.T) {
		rec := post(newRouter(nil), DownloadRequest{PIN: "1"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), MsgInvalidPIN)
	})

	t.Run("unknown form", func(t *testing.T) {
		lookup := fakeLookup{err: apperrors.NewNotFound("consent form not found")}
		rec := post(newRouter(lookup), DownloadRequest{PIN: "123456", FormID: "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("pdf", func(t *testing.T) {
		requireFont(t)
		opt := consent.TreatmentOptions[0]
		lookup := fakeLookup{st: consent.Status{ConsentGiven: true, Treatment: &opt}}
		rec := post(newRouter(lookup), DownloadRequest{PIN: "123456", FormID: "f"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "John_Smith_Medical_Report.pdf")
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
	})
}
