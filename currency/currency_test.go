package currency

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/currency-mcp/config"
	"github.com/felixgeelhaar/currency-mcp/exchange"
)

type fakeRates struct {
	rates *exchange.Rates
	err   error

	calls []fakeCall
}

type fakeCall struct {
	apiKey string
	base   string
}

func (f *fakeRates) Latest(ctx context.Context, apiKey, base string) (*exchange.Rates, error) {
	f.calls = append(f.calls, fakeCall{apiKey: apiKey, base: base})
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

func usdRates() *exchange.Rates {
	return &exchange.Rates{
		Base:       "USD",
		Rates:      map[string]float64{"USD": 1, "NPR": 143.6115, "EUR": 0.9013},
		LastUpdate: "Fri, 27 Mar 2020 00:00:00 +0000",
	}
}

func newTestService(src RateSource, defaultKey string) *Service {
	resolve := func(headerKey string) (string, error) {
		return config.ResolveAPIKey(headerKey, defaultKey)
	}
	return NewService(src, resolve, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestConvert_Success(t *testing.T) {
	src := &fakeRates{rates: usdRates()}
	svc := newTestService(src, "env-key")

	res := svc.Convert(context.Background(), Request{Amount: 1, FromCurrency: "USD", ToCurrency: "NPR"}, "")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "USD", res.From)
	assert.Equal(t, "NPR", res.To)
	assert.Equal(t, 1.0, res.Amount)
	assert.Equal(t, 143.6115, res.ConversionRate)
	assert.InDelta(t, 143.6115, res.ConvertedAmount, 1e-9)
	assert.Equal(t, "Fri, 27 Mar 2020 00:00:00 +0000", res.LastUpdate)
	assert.Equal(t, "1.0 USD = 143.61 NPR", res.Message)
	assert.False(t, res.Failed())

	require.Len(t, src.calls, 1)
	assert.Equal(t, fakeCall{apiKey: "env-key", base: "USD"}, src.calls[0])
}

func TestConvert_NormalizesCodes(t *testing.T) {
	src := &fakeRates{rates: usdRates()}
	svc := newTestService(src, "env-key")

	res := svc.Convert(context.Background(), Request{Amount: 100.5, FromCurrency: " usd ", ToCurrency: "eur"}, "")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "USD", res.From)
	assert.Equal(t, "EUR", res.To)
	assert.Equal(t, "100.5 USD = 90.58 EUR", res.Message)
	assert.Equal(t, "USD", src.calls[0].base)
}

func TestConvert_HeaderKeyWins(t *testing.T) {
	src := &fakeRates{rates: usdRates()}
	svc := newTestService(src, "env-key")

	res := svc.Convert(context.Background(), Request{Amount: 1, FromCurrency: "USD", ToCurrency: "NPR"}, "header-key")

	require.True(t, res.Success)
	assert.Equal(t, "header-key", src.calls[0].apiKey)
}

func TestConvert_UnsupportedTarget(t *testing.T) {
	src := &fakeRates{rates: usdRates()}
	svc := newTestService(src, "env-key")

	res := svc.Convert(context.Background(), Request{Amount: 10, FromCurrency: "USD", ToCurrency: "ZZZ"}, "")

	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Error, "UnsupportedCurrency"), res.Error)
	assert.Contains(t, res.Error, "ZZZ")
}

func TestConvert_MissingCredential(t *testing.T) {
	src := &fakeRates{rates: usdRates()}
	svc := newTestService(src, "")

	res := svc.Convert(context.Background(), Request{Amount: 1, FromCurrency: "USD", ToCurrency: "NPR"}, "")

	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Error, "MissingCredential"), res.Error)
	assert.Empty(t, src.calls, "no outbound call without a key")
}

func TestConvert_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{name: "empty from", req: Request{Amount: 1, FromCurrency: "  ", ToCurrency: "NPR"}},
		{name: "empty to", req: Request{Amount: 1, FromCurrency: "USD"}},
		{name: "nan amount", req: Request{Amount: math.NaN(), FromCurrency: "USD", ToCurrency: "NPR"}},
		{name: "infinite amount", req: Request{Amount: math.Inf(1), FromCurrency: "USD", ToCurrency: "NPR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeRates{rates: usdRates()}
			res := newTestService(src, "env-key").Convert(context.Background(), tt.req, "")

			assert.False(t, res.Success)
			assert.True(t, strings.HasPrefix(res.Error, "InvalidRequest"), res.Error)
			assert.Empty(t, src.calls)
		})
	}
}

func TestConvert_OverflowingProduct(t *testing.T) {
	src := &fakeRates{rates: usdRates()}
	res := newTestService(src, "env-key").Convert(context.Background(),
		Request{Amount: 1e307, FromCurrency: "USD", ToCurrency: "NPR"}, "")

	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Error, "InvalidRequest: converted amount overflows"), res.Error)
	assert.Len(t, src.calls, 1)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":`+strconv.Quote(res.Error)+`}`, string(data))
}

func TestConvert_PassesThroughZeroAndNegative(t *testing.T) {
	svc := newTestService(&fakeRates{rates: usdRates()}, "env-key")

	res := svc.Convert(context.Background(), Request{Amount: 0, FromCurrency: "USD", ToCurrency: "NPR"}, "")
	require.True(t, res.Success)
	assert.Equal(t, "0.0 USD = 0.00 NPR", res.Message)

	res = svc.Convert(context.Background(), Request{Amount: -2, FromCurrency: "USD", ToCurrency: "NPR"}, "")
	require.True(t, res.Success)
	assert.Equal(t, "-2.0 USD = -287.22 NPR", res.Message)
}

func TestConvert_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "invalid key", err: &exchange.ProviderError{Type: exchange.ErrorInvalidKey}, want: KindInvalidAPIKey},
		{name: "unsupported code", err: &exchange.ProviderError{Type: exchange.ErrorUnsupportedCode}, want: KindUnsupportedCurrency},
		{name: "malformed request", err: &exchange.ProviderError{Type: exchange.ErrorMalformedRequest}, want: KindUnsupportedCurrency},
		{name: "inactive account", err: &exchange.ProviderError{Type: exchange.ErrorInactiveAccount}, want: KindInactiveAccount},
		{name: "quota reached", err: &exchange.ProviderError{Type: exchange.ErrorQuotaReached}, want: KindUpstreamUnavailable},
		{name: "unknown provider error", err: &exchange.ProviderError{Type: "base-code-retired"}, want: KindUpstreamUnavailable},
		{name: "timeout", err: &exchange.TransportError{Err: context.DeadlineExceeded}, want: KindUpstreamUnavailable},
		{name: "connection refused", err: &exchange.TransportError{Err: errors.New("connection refused")}, want: KindUpstreamUnavailable},
		{name: "bad status", err: &exchange.StatusError{StatusCode: 502}, want: KindUpstreamUnavailable},
		{name: "unexpected shape", err: exchange.ErrUnexpectedResponse, want: KindUpstreamUnavailable},
		{name: "anything else", err: errors.New("boom"), want: KindUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeRates{err: tt.err}, "env-key")
			res := svc.Convert(context.Background(), Request{Amount: 1, FromCurrency: "USD", ToCurrency: "NPR"}, "")

			assert.False(t, res.Success)
			assert.True(t, strings.HasPrefix(res.Error, string(tt.want)+": "), res.Error)
		})
	}
}

func TestConvert_TimeoutMessage(t *testing.T) {
	svc := newTestService(&fakeRates{err: &exchange.TransportError{Err: context.DeadlineExceeded}}, "env-key")
	res := svc.Convert(context.Background(), Request{Amount: 1, FromCurrency: "USD", ToCurrency: "NPR"}, "")
	assert.Equal(t, "UpstreamUnavailable: Request timed out. Please try again.", res.Error)
}

func TestConvert_Idempotent(t *testing.T) {
	svc := newTestService(&fakeRates{rates: usdRates()}, "env-key")
	req := Request{Amount: 42.25, FromCurrency: "USD", ToCurrency: "EUR"}

	first := svc.Convert(context.Background(), req, "")
	second := svc.Convert(context.Background(), req, "")
	assert.Equal(t, first, second)
}

func TestResultJSON(t *testing.T) {
	t.Run("success has every field", func(t *testing.T) {
		svc := newTestService(&fakeRates{rates: usdRates()}, "env-key")
		data, err := json.Marshal(svc.Convert(context.Background(), Request{Amount: 1, FromCurrency: "USD", ToCurrency: "NPR"}, ""))
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(data, &fields))
		assert.Len(t, fields, 8)
		for _, key := range []string{"success", "from", "to", "amount", "conversion_rate", "converted_amount", "last_update", "message"} {
			assert.Contains(t, fields, key)
		}
		assert.Equal(t, true, fields["success"])
	})

	t.Run("failure has only success and error", func(t *testing.T) {
		data, err := json.Marshal(Failure(newError(KindMissingCredential, "no key", nil)))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"error":"MissingCredential: no key"}`, string(data))
	})

	t.Run("decodes back", func(t *testing.T) {
		var res Result
		require.NoError(t, json.Unmarshal([]byte(`{"success":true,"from":"USD","to":"NPR","amount":1,"conversion_rate":143.6115,"converted_amount":143.6115,"last_update":"x","message":"1.0 USD = 143.61 NPR"}`), &res))
		assert.True(t, res.Success)
		assert.Equal(t, "NPR", res.To)
	})
}

func TestFormatAmount(t *testing.T) {
	tests := map[float64]string{
		1:       "1.0",
		100.5:   "100.5",
		0:       "0.0",
		-3:      "-3.0",
		0.125:   "0.125",
		1234567: "1234567.0",
		1e15:    "1000000000000000.0",
		1e16:    "1e+16",
		1e21:    "1e+21",
		-2.5e20: "-2.5e+20",
		0.0001:  "0.0001",
		0.00001: "1e-05",
		1.5e-7:  "1.5e-07",
		1e307:   "1e+307",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatAmount(in), "FormatAmount(%v)", in)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInactiveAccount, KindOf(newError(KindInactiveAccount, "x", nil)))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))

	cause := &exchange.ProviderError{Type: exchange.ErrorInvalidKey}
	err := classify(cause, "USD")
	assert.ErrorIs(t, err, cause)
}
