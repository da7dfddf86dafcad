package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openpredict/predictd/internal/domain"
)

const (
	alice = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	bob   = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

type fakeReader struct {
	market  domain.Market
	markets []domain.Market
	events  []domain.Event
	err     error
}

func (f *fakeReader) GetMarket(context.Context, uint64) (domain.Market, error) {
	return f.market, f.err
}

func (f *fakeReader) ListMarkets(context.Context, bool, domain.ListOpts) ([]domain.Market, error) {
	return f.markets, f.err
}

func (f *fakeReader) ListEvents(context.Context, uint64) ([]domain.Event, error) {
	return f.events, f.err
}

type fakeWriter struct {
	createdID uint64
	err       error

	gotCreator  string
	gotQuestion string
	gotBuyer    string
	gotSide     domain.Side
	gotAmount   int64
	gotResolver string
	gotOutcome  bool
}

func (f *fakeWriter) CreateMarket(_ context.Context, creator, question string, _ time.Time) (uint64, error) {
	f.gotCreator, f.gotQuestion = creator, question
	return f.createdID, f.err
}

func (f *fakeWriter) BuyShares(_ context.Context, _ uint64, buyer string, side domain.Side, amount int64) error {
	f.gotBuyer, f.gotSide, f.gotAmount = buyer, side, amount
	return f.err
}

func (f *fakeWriter) ResolveMarket(_ context.Context, _ uint64, resolver string, outcome bool) error {
	f.gotResolver, f.gotOutcome = resolver, outcome
	return f.err
}

func testMux(reader MarketReader, writer LedgerWriter) *http.ServeMux {
	logger := slog.New(slog.DiscardHandler)
	h := NewMarketHandler(reader, writer, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/markets", h.ListMarkets)
	mux.HandleFunc("POST /api/markets", h.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", h.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/buy", h.BuyShares)
	mux.HandleFunc("POST /api/markets/{id}/resolve", h.ResolveMarket)
	mux.HandleFunc("GET /api/markets/{id}/events", h.ListEvents)
	return mux
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateMarket(t *testing.T) {
	writer := &fakeWriter{createdID: 7}
	mux := testMux(&fakeReader{}, writer)

	body := `{"creator":"` + alice + `","question":"Will it ship?","end_time":"2027-01-01T00:00:00Z"}`
	rec := doRequest(t, mux, http.MethodPost, "/api/markets", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp map[string]uint64
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["market_id"] != 7 {
		t.Fatalf("market_id = %d", resp["market_id"])
	}
	if writer.gotCreator != alice || writer.gotQuestion != "Will it ship?" {
		t.Fatalf("writer got %q %q", writer.gotCreator, writer.gotQuestion)
	}
}

func TestCreateMarketValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"past end time", domain.ErrInvalidEndTime, http.StatusBadRequest},
		{"empty question", domain.ErrEmptyQuestion, http.StatusBadRequest},
		{"bad account", domain.ErrInvalidAccount, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := testMux(&fakeReader{}, &fakeWriter{err: tt.err})
			rec := doRequest(t, mux, http.MethodPost, "/api/markets",
				`{"creator":"x","question":"","end_time":"2020-01-01T00:00:00Z"}`)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCreateMarketMalformedBody(t *testing.T) {
	mux := testMux(&fakeReader{}, &fakeWriter{})
	rec := doRequest(t, mux, http.MethodPost, "/api/markets", `{"creator":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetMarket(t *testing.T) {
	reader := &fakeReader{market: domain.Market{ID: 3, Question: "q", Creator: alice}}
	mux := testMux(reader, &fakeWriter{})

	rec := doRequest(t, mux, http.MethodGet, "/api/markets/3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var m domain.Market
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.ID != 3 || m.Creator != alice {
		t.Fatalf("market = %+v", m)
	}
}

func TestGetMarketErrors(t *testing.T) {
	mux := testMux(&fakeReader{err: domain.ErrMarketNotFound}, &fakeWriter{})

	rec := doRequest(t, mux, http.MethodGet, "/api/markets/99", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing market: status = %d", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/markets/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status = %d", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/markets/0", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero id: status = %d", rec.Code)
	}
}

func TestBuyShares(t *testing.T) {
	writer := &fakeWriter{}
	mux := testMux(&fakeReader{}, writer)

	body := `{"buyer":"` + bob + `","side":"yes","amount":1000000}`
	rec := doRequest(t, mux, http.MethodPost, "/api/markets/1/buy", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if writer.gotBuyer != bob || writer.gotSide != domain.SideYes || writer.gotAmount != 1000000 {
		t.Fatalf("writer got %q %q %d", writer.gotBuyer, writer.gotSide, writer.gotAmount)
	}
}

func TestBuySharesErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrInvalidSide, http.StatusBadRequest},
		{domain.ErrMarketNotFound, http.StatusNotFound},
		{domain.ErrMarketEnded, http.StatusConflict},
		{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		mux := testMux(&fakeReader{}, &fakeWriter{err: tt.err})
		rec := doRequest(t, mux, http.MethodPost, "/api/markets/1/buy",
			`{"buyer":"`+bob+`","side":"yes","amount":1}`)
		if rec.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

func TestResolveMarket(t *testing.T) {
	writer := &fakeWriter{}
	mux := testMux(&fakeReader{}, writer)

	rec := doRequest(t, mux, http.MethodPost, "/api/markets/1/resolve",
		`{"resolver":"`+alice+`","outcome":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if writer.gotResolver != alice || !writer.gotOutcome {
		t.Fatalf("writer got %q %v", writer.gotResolver, writer.gotOutcome)
	}
}

func TestResolveMarketRequiresOutcome(t *testing.T) {
	mux := testMux(&fakeReader{}, &fakeWriter{})

	rec := doRequest(t, mux, http.MethodPost, "/api/markets/1/resolve",
		`{"resolver":"`+alice+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestResolveMarketConflicts(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrMarketNotEnded, http.StatusConflict},
		{domain.ErrMarketAlreadyResolved, http.StatusConflict},
	}
	for _, tt := range tests {
		mux := testMux(&fakeReader{}, &fakeWriter{err: tt.err})
		rec := doRequest(t, mux, http.MethodPost, "/api/markets/1/resolve",
			`{"resolver":"`+alice+`","outcome":false}`)
		if rec.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

func TestListMarketsEmpty(t *testing.T) {
	mux := testMux(&fakeReader{}, &fakeWriter{})

	rec := doRequest(t, mux, http.MethodGet, "/api/markets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp listMarketsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Markets == nil || len(resp.Markets) != 0 {
		t.Fatalf("markets should be an empty array, got %v", resp.Markets)
	}
	if resp.Limit != 50 || resp.Offset != 0 {
		t.Fatalf("defaults: limit %d offset %d", resp.Limit, resp.Offset)
	}
}

func TestListEvents(t *testing.T) {
	reader := &fakeReader{events: []domain.Event{
		{ID: "a", Kind: domain.EventMarketCreated, MarketID: 1, Seq: 1,
			MarketCreated: &domain.MarketCreated{Creator: alice, Question: "q"}},
	}}
	mux := testMux(reader, &fakeWriter{})

	rec := doRequest(t, mux, http.MethodGet, "/api/markets/1/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Events []domain.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Seq != 1 {
		t.Fatalf("events = %+v", resp.Events)
	}
}
