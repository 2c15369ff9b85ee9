package marketdata

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func leverageServer(t *testing.T, retCode int, retMsg string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/position/set-leverage", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"retCode":%d,"retMsg":%q,"result":{}}`, retCode, retMsg)
	}))
}

func TestSetLeverageAcceptsNotModified(t *testing.T) {
	server := leverageServer(t, retCodeLeverageNotModified, "leverage not modified")
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")
	assert.NoError(t, client.SetLeverage("BTCUSDT", 5))
}

func TestSetLeveragePropagatesRejections(t *testing.T) {
	server := leverageServer(t, 10003, "API key is invalid")
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")
	err := client.SetLeverage("BTCUSDT", 5)
	assert.Error(t, err)

	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 10003, apiErr.Code)
	assert.Contains(t, err.Error(), "API key is invalid")
}

func TestSetLeverageSuccess(t *testing.T) {
	server := leverageServer(t, 0, "OK")
	defer server.Close()

	client := NewClient(server.URL, "key", "secret")
	assert.NoError(t, client.SetLeverage("BTCUSDT", 10))
}
