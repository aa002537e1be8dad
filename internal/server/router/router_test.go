package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mamadbah2/poultryledger/internal/domain/models"
	"github.com/mamadbah2/poultryledger/internal/ledger"
	"github.com/mamadbah2/poultryledger/internal/printer"
	"github.com/mamadbah2/poultryledger/internal/repository/memory"
	"github.com/mamadbah2/poultryledger/internal/scale"
	"github.com/mamadbah2/poultryledger/internal/server/handlers"
	"github.com/mamadbah2/poultryledger/internal/service/reporting"
	"github.com/mamadbah2/poultryledger/internal/ticket"
)

type testServer struct {
	t      *testing.T
	engine http.Handler
}

func newTestServer(t *testing.T, persist ledger.Persistence, reader scale.Reader) *testServer {
	t.Helper()
	store := ledger.NewStore(persist, ledger.NewCalculator(2.5), nil)
	if err := store.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	enc := ticket.NewEncoder("VOLAILLES", 32)
	render := func(b []byte) []byte { return []byte(enc.Preview(b)) }
	printSvc := printer.NewService(printer.NewDeviceSink(nil), nil, printer.NewLogSink(render, nil), nil)
	reports := reporting.NewService(store, nil, nil, nil, nil)

	engine := New(Handlers{
		Ledger:  handlers.NewLedgerHandler(store, nil),
		Tickets: handlers.NewTicketHandler(store, enc, printSvc, nil),
		Scale:   handlers.NewScaleHandler(reader, nil),
		Reports: handlers.NewReportHandler(reports, nil),
	}, nil)
	return &testServer{t: t, engine: engine}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) decode(rec *httptest.ResponseRecorder, out any) {
	s.t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		s.t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func (s *testServer) setup() (providerID, saleID string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/providers", map[string]any{"name": "Ferme Kindia", "initial_full_crates": 3, "chickens_per_crate": 10})
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("create provider: %d %s", rec.Code, rec.Body)
	}
	var pr struct {
		Provider models.ProviderStock `json:"provider"`
	}
	s.decode(rec, &pr)

	rec = s.do(http.MethodPost, "/providers/"+pr.Provider.ID+"/sales", map[string]any{"client_name": "Mariama", "target_full_crates": 5})
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("create sale: %d %s", rec.Code, rec.Body)
	}
	var sr struct {
		Sale models.SaleLedger `json:"sale"`
	}
	s.decode(rec, &sr)
	return pr.Provider.ID, sr.Sale.ID
}

func TestLedgerFlow(t *testing.T) {
	s := newTestServer(t, memory.NewRepository(), scale.NewSimulator(20, 30, 1))
	pid, sid := s.setup()
	entries := "/providers/" + pid + "/sales/" + sid + "/entries"

	if rec := s.do(http.MethodPost, entries, map[string]any{"kind": "full", "weight": 50, "count": 2}); rec.Code != http.StatusCreated {
		t.Fatalf("add full: %d %s", rec.Code, rec.Body)
	}

	rec := s.do(http.MethodPost, entries, map[string]any{"kind": "full", "weight": 60, "count": 2})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body)
	}
	var rej struct {
		Reason    string `json:"reason"`
		Message   string `json:"message"`
		Remaining int    `json:"remaining"`
	}
	s.decode(rec, &rej)
	if rej.Reason != "stock_exceeded" || rej.Remaining != 1 || rej.Message == "" {
		t.Errorf("rejection body: %+v", rej)
	}

	if rec := s.do(http.MethodPost, entries, map[string]any{"kind": "empty", "weight": 5.6, "count": 2}); rec.Code != http.StatusCreated {
		t.Fatalf("add empty: %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, entries, map[string]any{"kind": "full", "weight": 0, "count": 1}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero weight: got %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/providers/"+pid+"/sales/"+sid, nil)
	var sale struct {
		Sale struct {
			ClientName string         `json:"client_name"`
			Metrics    models.Metrics `json:"metrics"`
		} `json:"sale"`
	}
	s.decode(rec, &sale)
	if sale.Sale.ClientName != "Mariama" || sale.Sale.Metrics.AvgTare != 2.8 || sale.Sale.Metrics.FullCount != 2 {
		t.Errorf("sale view: %+v", sale.Sale)
	}

	rec = s.do(http.MethodGet, "/providers/"+pid+"/summary", nil)
	var summary struct {
		Summary models.ProviderSummary `json:"summary"`
	}
	s.decode(rec, &summary)
	if summary.Summary.RemainingCrates != 1 || len(summary.Summary.Sales) != 1 {
		t.Errorf("summary: %+v", summary.Summary)
	}
}

func TestProposeCommitLocksSale(t *testing.T) {
	s := newTestServer(t, memory.NewRepository(), scale.NewSimulator(20, 30, 1))
	pid, sid := s.setup()

	rec := s.do(http.MethodPost, "/proposals", map[string]any{"action": "toggle_lock", "provider_id": pid, "sale_id": sid})
	if rec.Code != http.StatusOK {
		t.Fatalf("propose: %d %s", rec.Code, rec.Body)
	}
	var pr struct {
		Proposal ledger.Proposal `json:"proposal"`
	}
	s.decode(rec, &pr)
	if !pr.Proposal.LockTarget || !strings.Contains(pr.Proposal.Description, "Mariama") {
		t.Errorf("proposal: %+v", pr.Proposal)
	}

	if rec := s.do(http.MethodPost, "/proposals/commit", pr.Proposal); rec.Code != http.StatusOK {
		t.Fatalf("commit: %d %s", rec.Code, rec.Body)
	}

	rec = s.do(http.MethodPost, "/providers/"+pid+"/sales/"+sid+"/entries", map[string]any{"kind": "mortality", "weight": 1.5, "count": 1})
	var rej struct {
		Reason string `json:"reason"`
	}
	s.decode(rec, &rej)
	if rec.Code != http.StatusUnprocessableEntity || rej.Reason != "sale_locked" {
		t.Errorf("entry on locked sale: %d %+v", rec.Code, rej)
	}

	if rec := s.do(http.MethodPost, "/proposals", map[string]any{"action": "format_disk", "provider_id": pid}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown action: got %d", rec.Code)
	}
}

func TestTickets(t *testing.T) {
	s := newTestServer(t, memory.NewRepository(), scale.NewSimulator(20, 30, 1))
	pid, sid := s.setup()
	s.do(http.MethodPost, "/providers/"+pid+"/sales/"+sid+"/entries", map[string]any{"kind": "full", "weight": 50, "count": 2})

	rec := s.do(http.MethodGet, "/providers/"+pid+"/sales/"+sid+"/ticket?format=raw", nil)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte{0x1B, 0x40}) {
		t.Errorf("raw ticket: %d %q", rec.Code, rec.Body.Bytes())
	}

	rec = s.do(http.MethodGet, "/providers/"+pid+"/sales/"+sid+"/ticket", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "NET WEIGHT") || strings.ContainsRune(rec.Body.String(), 0x1B) {
		t.Errorf("preview ticket: %d %q", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/providers/"+pid+"/ticket?format=pdf", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format: got %d", rec.Code)
	}

	rec = s.do(http.MethodPost, "/providers/"+pid+"/ticket", nil)
	var printed struct {
		Sink string `json:"sink"`
	}
	s.decode(rec, &printed)
	if rec.Code != http.StatusOK || printed.Sink != "simulated" {
		t.Errorf("print fell back to %q (%d)", printed.Sink, rec.Code)
	}
}

func TestNotFoundAndValidation(t *testing.T) {
	s := newTestServer(t, memory.NewRepository(), scale.NewSimulator(20, 30, 1))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown provider", http.MethodGet, "/providers/nope", nil, http.StatusNotFound},
		{"unknown sale", http.MethodGet, "/providers/nope/sales/x", nil, http.StatusNotFound},
		{"empty name", http.MethodPost, "/providers", map[string]any{"name": " ", "initial_full_crates": 1, "chickens_per_crate": 10}, http.StatusBadRequest},
		{"bad sink", http.MethodPut, "/settings", map[string]any{"preferred_sink": "fax"}, http.StatusBadRequest},
		{"ai disabled", http.MethodPost, "/providers/nope/report", nil, http.StatusServiceUnavailable},
		{"export disabled", http.MethodPost, "/providers/nope/export", nil, http.StatusServiceUnavailable},
		{"health", http.MethodGet, "/healthz", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := s.do(tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("got %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

type brokenPersistence struct{ memory.Repository }

func (*brokenPersistence) SaveProviders(context.Context, []models.ProviderStock) error {
	return errors.New("disk full")
}

func TestPersistenceFailureIsAWarning(t *testing.T) {
	s := newTestServer(t, &brokenPersistence{}, scale.NewSimulator(20, 30, 1))

	rec := s.do(http.MethodPost, "/providers", map[string]any{"name": "Ferme Kindia", "initial_full_crates": 3, "chickens_per_crate": 10})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected the mutation to succeed, got %d", rec.Code)
	}
	var body struct {
		Provider models.ProviderStock `json:"provider"`
		Warning  string               `json:"warning"`
	}
	s.decode(rec, &body)
	if body.Warning == "" || body.Provider.ID == "" {
		t.Errorf("expected provider with warning, got %+v", body)
	}

	if rec := s.do(http.MethodGet, "/providers/"+body.Provider.ID, nil); rec.Code != http.StatusOK {
		t.Errorf("in-memory state should keep the provider, got %d", rec.Code)
	}
}

func TestScaleEndpoints(t *testing.T) {
	sim := newTestServer(t, memory.NewRepository(), scale.NewSimulator(20, 30, 1))
	rec := sim.do(http.MethodGet, "/scale/weight", nil)
	var reading struct {
		Weight    float64 `json:"weight"`
		Mode      string  `json:"mode"`
		Connected bool    `json:"connected"`
	}
	sim.decode(rec, &reading)
	if reading.Mode != scale.ModeSimulation || reading.Weight < 20 || reading.Weight > 30 {
		t.Errorf("simulated reading: %+v", reading)
	}
	if rec := sim.do(http.MethodPost, "/scale/readings", map[string]any{"payload": "25.1"}); rec.Code != http.StatusConflict {
		t.Errorf("push in simulation mode: got %d", rec.Code)
	}

	dev := newTestServer(t, memory.NewRepository(), scale.New(scale.ModeDevice, scale.NewSimulator(20, 30, 1), nil))
	if rec := dev.do(http.MethodPost, "/scale/readings", map[string]any{"payload": "ST,GS,+0025.40kg"}); rec.Code != http.StatusAccepted {
		t.Fatalf("push: %d", rec.Code)
	}
	rec = dev.do(http.MethodGet, "/scale/weight", nil)
	dev.decode(rec, &reading)
	if reading.Weight != 25.4 || !reading.Connected || reading.Mode != scale.ModeDevice {
		t.Errorf("device reading: %+v", reading)
	}
}

type stubMessaging struct{ payloads int }

func (s *stubMessaging) VerifyWebhookToken(mode, token, challenge string) (string, error) {
	if token != "s3cret" {
		return "", errors.New("invalid verify token")
	}
	return challenge, nil
}

func (s *stubMessaging) HandleWebhook(context.Context, models.WebhookPayload) error {
	s.payloads++
	return errors.New("send failed")
}

func TestWebhookRoutes(t *testing.T) {
	msg := &stubMessaging{}
	store := ledger.NewStore(memory.NewRepository(), ledger.NewCalculator(2.5), nil)
	engine := New(Handlers{
		Ledger:  handlers.NewLedgerHandler(store, nil),
		Webhook: handlers.NewWebhookHandler(msg, nil),
	}, nil)
	s := &testServer{t: t, engine: engine}

	rec := s.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=s3cret&hub.challenge=42", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "42" {
		t.Errorf("verify: %d %q", rec.Code, rec.Body.String())
	}
	if rec := s.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=x", nil); rec.Code != http.StatusForbidden {
		t.Errorf("bad token: %d", rec.Code)
	}

	rec = s.do(http.MethodPost, "/webhook", models.WebhookPayload{Object: "whatsapp_business_account"})
	if rec.Code != http.StatusOK || msg.payloads != 1 {
		t.Errorf("receive should acknowledge even on failure: %d", rec.Code)
	}
}
