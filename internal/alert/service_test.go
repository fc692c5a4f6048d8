package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "stock-alerter/internal/errors"
	"stock-alerter/internal/models"
)

type fakeStore struct {
	mu             sync.Mutex
	alerts         []models.Alert
	runs           []models.RunRecord
	deleted        []string
	lastOnlyActive bool
	listErr        error
}

func (s *fakeStore) GetAlerts(_ context.Context, onlyActive bool) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOnlyActive = onlyActive
	if s.listErr != nil {
		return nil, s.listErr
	}
	if !onlyActive {
		return s.alerts, nil
	}
	var active []models.Alert
	for _, a := range s.alerts {
		if a.Active {
			active = append(active, a)
		}
	}
	return active, nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*models.Alert, error) {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			a := s.alerts[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Save(_ context.Context, alert *models.Alert) error {
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *fakeStore) Update(_ context.Context, alert *models.Alert) error {
	for i := range s.alerts {
		if s.alerts[i].ID == alert.ID {
			s.alerts[i] = *alert
			return nil
		}
	}
	return apperrors.ErrAlertNotFound
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
			s.deleted = append(s.deleted, id)
			return nil
		}
	}
	return apperrors.ErrAlertNotFound
}

func (s *fakeStore) LogRun(_ context.Context, record *models.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *record)
	return nil
}

func (s *fakeStore) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

func (s *fakeStore) GetRecentRuns(_ context.Context, limit int) ([]models.RunRecord, error) {
	if limit > len(s.runs) {
		limit = len(s.runs)
	}
	return s.runs[:limit], nil
}

func (s *fakeStore) Close() error { return nil }

type fakeProvider struct {
	quotes    map[string]models.Quote
	histories map[string][]models.Quote
}

func (p *fakeProvider) GetLatestQuote(_ context.Context, symbol string) (models.Quote, error) {
	q, ok := p.quotes[symbol]
	if !ok {
		return models.Quote{}, apperrors.ErrSymbolNotFound
	}
	return q, nil
}

func (p *fakeProvider) GetHistory(_ context.Context, symbol string) ([]models.Quote, error) {
	h, ok := p.histories[symbol]
	if !ok {
		return nil, apperrors.ErrSymbolNotFound
	}
	return h, nil
}

type fakeNotifier struct {
	subjects     []string
	failSubjects map[string]bool
}

func (n *fakeNotifier) Send(_ context.Context, subject, _ string) error {
	if n.failSubjects[subject] {
		return apperrors.NewSendError("email", subject, errors.New("smtp down"))
	}
	n.subjects = append(n.subjects, subject)
	return nil
}

func newTestService(store *fakeStore, provider *fakeProvider, notifier *fakeNotifier) *Service {
	return NewService(store, provider, notifier, zerolog.Nop())
}

func activeAlert(id, name, expression string, sendEmail bool) models.Alert {
	return models.Alert{
		ID:         id,
		Name:       name,
		Expression: expression,
		Active:     true,
		SendEmail:  sendEmail,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func TestRunOnceTriggersAndSendsEmail(t *testing.T) {
	store := &fakeStore{alerts: []models.Alert{
		activeAlert("a1", "AAPL above 100", "PRICE(AAPL) > 100", true),
		activeAlert("a2", "AAPL above 200", "PRICE(AAPL) > 200", true),
	}}
	provider := &fakeProvider{quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 150},
	}}
	notifier := &fakeNotifier{}

	result, err := newTestService(store, provider, notifier).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if result.AlertsChecked != 2 {
		t.Errorf("AlertsChecked = %d, want 2", result.AlertsChecked)
	}
	if len(result.Notifications) != 1 || result.Notifications[0].Alert.ID != "a1" {
		t.Fatalf("Notifications = %+v, want a1 only", result.Notifications)
	}
	if result.Notifications[0].CreationDate.IsZero() {
		t.Error("notification has zero creation date")
	}
	if len(notifier.subjects) != 1 || notifier.subjects[0] != "AAPL above 100" {
		t.Errorf("sent subjects = %v", notifier.subjects)
	}
	if result.ErrorCount() != 0 {
		t.Errorf("ErrorCount = %d, want 0", result.ErrorCount())
	}
}

func TestRunOnceFetchesOnlyActiveAlerts(t *testing.T) {
	store := &fakeStore{alerts: []models.Alert{
		activeAlert("a1", "active", "PRICE(AAPL) > 100", false),
		{ID: "a2", Name: "inactive", Expression: "PRICE(AAPL) > 1", Active: false},
	}}
	provider := &fakeProvider{quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 150},
	}}

	result, err := newTestService(store, provider, &fakeNotifier{}).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !store.lastOnlyActive {
		t.Error("run fetched all alerts instead of active ones")
	}
	if result.AlertsChecked != 1 {
		t.Errorf("AlertsChecked = %d, want 1", result.AlertsChecked)
	}
}

func TestRunOnceIsolatesParseFailure(t *testing.T) {
	store := &fakeStore{alerts: []models.Alert{
		activeAlert("a1", "good one", "PRICE(AAPL) > 100", false),
		activeAlert("a2", "broken", "PRICE(AAPL) >", false),
		activeAlert("a3", "good two", "VOLUME(AAPL) > 1000", false),
	}}
	provider := &fakeProvider{quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 150, Volume: 5000},
	}}

	result, err := newTestService(store, provider, &fakeNotifier{}).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(result.Notifications) != 2 {
		t.Fatalf("Notifications = %d, want 2", len(result.Notifications))
	}
	if !apperrors.IsParseError(result.EvalErrors["a2"]) {
		t.Errorf("EvalErrors[a2] = %v, want ParseError", result.EvalErrors["a2"])
	}
}

func TestRunOnceIsolatesDataUnavailable(t *testing.T) {
	store := &fakeStore{alerts: []models.Alert{
		activeAlert("a1", "unknown symbol", "PRICE(NOPE) > 1", false),
		activeAlert("a2", "known symbol", "PRICE(AAPL) > 100", false),
	}}
	provider := &fakeProvider{quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 150},
	}}

	result, err := newTestService(store, provider, &fakeNotifier{}).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !apperrors.IsDataUnavailable(result.EvalErrors["a1"]) {
		t.Errorf("EvalErrors[a1] = %v, want DataUnavailableError", result.EvalErrors["a1"])
	}
	if len(result.Notifications) != 1 || result.Notifications[0].Alert.ID != "a2" {
		t.Fatalf("Notifications = %+v, want a2 only", result.Notifications)
	}
}

func TestRunOnceSkipsEmailWhenDisabled(t *testing.T) {
	store := &fakeStore{alerts: []models.Alert{
		activeAlert("a1", "quiet alert", "PRICE(AAPL) > 100", false),
	}}
	provider := &fakeProvider{quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 150},
	}}
	notifier := &fakeNotifier{}

	result, err := newTestService(store, provider, notifier).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(result.Notifications) != 1 {
		t.Fatalf("Notifications = %d, want 1", len(result.Notifications))
	}
	if len(notifier.subjects) != 0 {
		t.Errorf("notifier received %v, want no sends", notifier.subjects)
	}
}

func TestRunOnceIsolatesSendFailure(t *testing.T) {
	store := &fakeStore{alerts: []models.Alert{
		activeAlert("a1", "fails to send", "PRICE(AAPL) > 100", true),
		activeAlert("a2", "sends fine", "PRICE(AAPL) > 110", true),
	}}
	provider := &fakeProvider{quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 150},
	}}
	notifier := &fakeNotifier{failSubjects: map[string]bool{"fails to send": true}}

	result, err := newTestService(store, provider, notifier).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(result.SendErrors) != 1 {
		t.Fatalf("SendErrors = %v, want one entry", result.SendErrors)
	}
	var sendErr *apperrors.SendError
	if !apperrors.As(result.SendErrors["a1"], &sendErr) {
		t.Errorf("SendErrors[a1] = %v, want SendError", result.SendErrors["a1"])
	}
	if len(notifier.subjects) != 1 || notifier.subjects[0] != "sends fine" {
		t.Errorf("sent subjects = %v, want [sends fine]", notifier.subjects)
	}
}

func TestRunOncePersistsRunRecord(t *testing.T) {
	store := &fakeStore{alerts: []models.Alert{
		activeAlert("a1", "triggers", "PRICE(AAPL) > 100", false),
		activeAlert("a2", "broken", "EMA(AAPL)", false),
	}}
	provider := &fakeProvider{quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 150},
	}}

	result, err := newTestService(store, provider, &fakeNotifier{}).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(store.runs) != 1 {
		t.Fatalf("run records = %d, want 1", len(store.runs))
	}
	record := store.runs[0]
	if record.ID != result.RunID {
		t.Errorf("record ID = %q, want %q", record.ID, result.RunID)
	}
	if record.AlertsChecked != 2 || record.Notifications != 1 || record.Errors != 1 {
		t.Errorf("record = %+v, want checked=2 notifications=1 errors=1", record)
	}
}

func TestRunOnceStoreFailure(t *testing.T) {
	store := &fakeStore{listErr: apperrors.ErrDatabaseError}
	svc := newTestService(store, &fakeProvider{}, &fakeNotifier{})

	if _, err := svc.RunOnce(context.Background()); !errors.Is(err, apperrors.ErrDatabaseError) {
		t.Errorf("RunOnce error = %v, want ErrDatabaseError", err)
	}
}

func TestTryRunOnceSkipsWhenBusy(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeProvider{}, &fakeNotifier{})

	svc.runMu.Lock()
	_, err := svc.TryRunOnce(context.Background())
	svc.runMu.Unlock()

	if !errors.Is(err, apperrors.ErrRunInProgress) {
		t.Errorf("TryRunOnce error = %v, want ErrRunInProgress", err)
	}

	if _, err := svc.TryRunOnce(context.Background()); err != nil {
		t.Errorf("TryRunOnce after unlock: %v", err)
	}
}

func TestCreateAlert(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeProvider{}, &fakeNotifier{})

	alert, err := svc.CreateAlert(context.Background(), "  golden cross  ", "EMA crossover", "EMA(50,AAPL) > EMA(200,AAPL)", true)
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	if alert.ID == "" {
		t.Error("CreateAlert left ID empty")
	}
	if alert.Name != "golden cross" {
		t.Errorf("Name = %q, want trimmed", alert.Name)
	}
	if !alert.Active || !alert.SendEmail {
		t.Errorf("alert flags = active:%v sendEmail:%v", alert.Active, alert.SendEmail)
	}
	if len(store.alerts) != 1 {
		t.Fatalf("store has %d alerts, want 1", len(store.alerts))
	}
}

func TestCreateAlertRejectsMalformedExpression(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeProvider{}, &fakeNotifier{})

	_, err := svc.CreateAlert(context.Background(), "bad", "", "PRICE(AAPL) > 10 < 20", false)
	if !apperrors.IsParseError(err) {
		t.Errorf("CreateAlert error = %v, want ParseError", err)
	}
	if len(store.alerts) != 0 {
		t.Error("malformed alert reached the store")
	}
}

func TestUpdateAlertRejectsMalformedExpression(t *testing.T) {
	store := &fakeStore{alerts: []models.Alert{activeAlert("a1", "x", "PRICE(AAPL) > 1", false)}}
	svc := newTestService(store, &fakeProvider{}, &fakeNotifier{})

	broken := store.alerts[0]
	broken.Expression = "&&"
	if err := svc.UpdateAlert(context.Background(), &broken); !apperrors.IsParseError(err) {
		t.Errorf("UpdateAlert error = %v, want ParseError", err)
	}
}

func TestSetActive(t *testing.T) {
	store := &fakeStore{alerts: []models.Alert{activeAlert("a1", "x", "PRICE(AAPL) > 1", false)}}
	svc := newTestService(store, &fakeProvider{}, &fakeNotifier{})

	if err := svc.SetActive(context.Background(), "a1", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if store.alerts[0].Active {
		t.Error("alert still active after SetActive(false)")
	}

	if err := svc.SetActive(context.Background(), "missing", true); !errors.Is(err, apperrors.ErrAlertNotFound) {
		t.Errorf("SetActive(missing) = %v, want ErrAlertNotFound", err)
	}
}

func TestDeleteAlertByID(t *testing.T) {
	store := &fakeStore{alerts: []models.Alert{activeAlert("a1", "x", "PRICE(AAPL) > 1", false)}}
	svc := newTestService(store, &fakeProvider{}, &fakeNotifier{})

	if err := svc.DeleteAlertByID(context.Background(), "a1"); err != nil {
		t.Fatalf("DeleteAlertByID: %v", err)
	}
	if len(store.alerts) != 0 {
		t.Error("alert still present after delete")
	}

	// Deleting an ID that does not exist succeeds silently.
	if err := svc.DeleteAlertByID(context.Background(), "a1"); err != nil {
		t.Errorf("deleting missing alert: %v", err)
	}
}

func TestRunOnceIndicatorAlert(t *testing.T) {
	history := make([]models.Quote, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, models.Quote{Symbol: "AAPL", Price: 100 + float64(i)})
	}
	store := &fakeStore{alerts: []models.Alert{
		activeAlert("a1", "uptrend", "PRICE(AAPL) > EMA(5,AAPL)", false),
	}}
	provider := &fakeProvider{
		quotes:    map[string]models.Quote{"AAPL": {Symbol: "AAPL", Price: 150}},
		histories: map[string][]models.Quote{"AAPL": history},
	}

	result, err := newTestService(store, provider, &fakeNotifier{}).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(result.Notifications) != 1 {
		t.Fatalf("Notifications = %d, want 1 (price 150 above EMA of rising series)", len(result.Notifications))
	}
}
