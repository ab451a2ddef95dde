package pricer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStockPricerFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "AAPL,MSFT", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"quoteResponse":{"result":[
			{"symbol":"AAPL","regularMarketPrice":150},
			{"symbol":"MSFT","regularMarketPrice":410.25}
		]}}`))
	}))
	defer srv.Close()

	p := NewStockPricer(zap.NewNop(), WithStockEndpoint(srv.URL))
	prices := p.Fetch(context.Background(), []string{"AAPL", "MSFT"})
	require.Len(t, prices, 2)
	require.Equal(t, "150.00", prices["AAPL"].StringFixed(2))
	require.Equal(t, "410.25", prices["MSFT"].StringFixed(2))
}

func TestStockPricerSoftFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewStockPricer(zap.NewNop(), WithStockEndpoint(srv.URL))
	prices := p.Fetch(context.Background(), []string{"AAPL"})
	require.Empty(t, prices)
}

func TestStockPricerSkipsQuotesWithoutPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[
			{"symbol":"AAPL","regularMarketPrice":150},
			{"symbol":"DEAD"}
		]}}`))
	}))
	defer srv.Close()

	p := NewStockPricer(zap.NewNop(), WithStockEndpoint(srv.URL))
	prices := p.Fetch(context.Background(), []string{"AAPL", "DEAD"})
	require.Len(t, prices, 1)
	_, ok := prices["DEAD"]
	require.False(t, ok)
}

func TestStockPricerNoSymbols(t *testing.T) {
	p := NewStockPricer(zap.NewNop())
	require.Empty(t, p.Fetch(context.Background(), nil))
}
