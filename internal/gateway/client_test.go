package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const sampleBulletin = `<?xml version="1.0" encoding="UTF-8"?>
<Tarih_Date Tarih="17.10.2025" Date="10/17/2025" Bulten_No="2025/196">
	<Currency CrossOrder="0" Kod="USD" CurrencyCode="USD">
		<Unit>1</Unit>
		<Isim>ABD DOLARI</Isim>
		<CurrencyName>US DOLLAR</CurrencyName>
		<ForexBuying>41.8012</ForexBuying>
		<ForexSelling>41.8765</ForexSelling>
	</Currency>
	<Currency CrossOrder="9" Kod="JPY" CurrencyCode="JPY">
		<Unit>100</Unit>
		<Isim>JAPON YENİ</Isim>
		<CurrencyName>JAPENESE YEN</CurrencyName>
		<ForexBuying>27,6512</ForexBuying>
		<ForexSelling></ForexSelling>
	</Currency>
	<Currency CrossOrder="20" Kod="XDR" CurrencyCode="XDR">
		<Unit>x</Unit>
		<Isim>ÖZEL ÇEKME HAKKI (SDR)</Isim>
		<ForexBuying>57.0001</ForexBuying>
		<ForexSelling>n/a</ForexSelling>
	</Currency>
</Tarih_Date>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCentralBankClient_FetchTodayRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, sampleBulletin)
	}))
	defer server.Close()

	client := NewCentralBankClient(Config{URL: server.URL, Timeout: time.Second}, nil, discardLogger())

	rates, err := client.FetchTodayRates(context.Background())
	require.NoError(t, err)
	require.Len(t, rates, 3)

	assert.Equal(t, "USD", rates[0].CurrencyCode)
	assert.Equal(t, 1, rates[0].Unit)
	assert.Equal(t, "ABD DOLARI", rates[0].Name)
	assert.True(t, decimal.RequireFromString("41.8012").Equal(rates[0].BuyingRate))
	assert.True(t, decimal.RequireFromString("41.8765").Equal(rates[0].SellingRate))

	assert.Equal(t, 100, rates[1].Unit)
	assert.Equal(t, "JAPON YENİ", rates[1].Name)
	assert.True(t, decimal.RequireFromString("27.6512").Equal(rates[1].BuyingRate))
	assert.True(t, rates[1].SellingRate.IsZero())

	assert.Equal(t, 1, rates[2].Unit, "unparseable unit defaults to 1")
	assert.True(t, rates[2].SellingRate.IsZero())
}

func TestCentralBankClient_TransientFailures(t *testing.T) {
	t.Run("non-success status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewCentralBankClient(Config{URL: server.URL}, nil, discardLogger())
		_, err := client.FetchTodayRates(context.Background())
		require.Error(t, err)
		assert.True(t, IsTransient(err))

		var transient *TransientFetchError
		require.ErrorAs(t, err, &transient)
		assert.Equal(t, http.StatusServiceUnavailable, transient.StatusCode)
		assert.Equal(t, "rate feed unavailable: HTTP 503", err.Error())
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client := NewCentralBankClient(Config{URL: url}, nil, discardLogger())
		_, err := client.FetchTodayRates(context.Background())
		require.Error(t, err)
		assert.True(t, IsTransient(err))
	})

	t.Run("client timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		client := NewCentralBankClient(Config{URL: server.URL, Timeout: 50 * time.Millisecond}, nil, discardLogger())
		_, err := client.FetchTodayRates(context.Background())
		require.Error(t, err)
		assert.True(t, IsTransient(err))
	})
}

func TestCentralBankClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>maintenance</html>")
	}))
	defer server.Close()

	client := NewCentralBankClient(Config{URL: server.URL}, nil, discardLogger())
	_, err := client.FetchTodayRates(context.Background())
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Contains(t, err.Error(), "failed to decode rate bulletin")
}

func TestDecodeBulletin_Latin5(t *testing.T) {
	body := `<?xml version="1.0" encoding="ISO-8859-9"?>
<Tarih_Date Date="10/17/2025"><Currency CurrencyCode="EUR"><Unit>1</Unit><Isim>EURO ŞİRKETİ</Isim><ForexBuying>48.6</ForexBuying><ForexSelling>48.7</ForexSelling></Currency></Tarih_Date>`

	encoded, err := charmap.ISO8859_9.NewEncoder().String(body)
	require.NoError(t, err)

	rates, err := decodeBulletin(stringsReader(encoded))
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "EURO ŞİRKETİ", rates[0].Name)
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{input: "1", want: 1},
		{input: " 100 ", want: 100},
		{input: "0", want: 0},
		{input: "-10", want: -10},
		{input: "+5", want: 5},
		{input: "", want: 1},
		{input: "x", want: 1},
		{input: "1.5", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseUnit(tt.input))
		})
	}
}

func TestDecodeBulletin_KeepsRowsWithoutCurrencyCode(t *testing.T) {
	body := `<Tarih_Date Date="10/17/2025">
	<Currency CurrencyCode=""><Unit>0</Unit><Isim>BOS</Isim><ForexBuying>1,5-</ForexBuying></Currency>
	<Currency><Unit>1</Unit><Isim>KODSUZ</Isim><ForexSelling>2.25</ForexSelling></Currency>
</Tarih_Date>`

	rates, err := decodeBulletin(stringsReader(body))
	require.NoError(t, err)
	require.Len(t, rates, 2)

	assert.Empty(t, rates[0].CurrencyCode)
	assert.Equal(t, 0, rates[0].Unit)
	assert.True(t, decimal.RequireFromString("-1.5").Equal(rates[0].BuyingRate))

	assert.Empty(t, rates[1].CurrencyCode)
	assert.Equal(t, "KODSUZ", rates[1].Name)
	assert.True(t, decimal.RequireFromString("2.25").Equal(rates[1].SellingRate))
}

func TestCentralBankClient_RateLimitRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sampleBulletin)
	}))
	defer server.Close()

	client := NewCentralBankClient(Config{URL: server.URL, RateLimit: 0.001, Burst: 1}, nil, discardLogger())

	_, err := client.FetchTodayRates(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.FetchTodayRates(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
