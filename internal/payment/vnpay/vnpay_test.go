package vnpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		TmnCode:    "TESTMERCH",
		HashSecret: "SECRETSECRETSECRET",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		QueryURL:   "https://sandbox.vnpayment.vn/merchant_webapi/api/transaction",
		ReturnURL:  "https://shop.example/checkout?step=3",
	}
}

func signHex(secret string, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// recomputes the signature the way the gateway would.
func verifyURLSignature(t *testing.T, rawURL, secret string) url.Values {
	t.Helper()

	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	q := parsed.Query()

	gotHash := q.Get("vnp_SecureHash")
	require.NotEmpty(t, gotHash)
	q.Del("vnp_SecureHash")

	keys := make([]string, 0, len(q))
	for key := range q {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(q.Get(key)))
	}

	assert.Equal(t, signHex(secret, strings.Join(pairs, "&")), gotHash)
	return q
}

func TestBuildPaymentURL(t *testing.T) {
	cfg := testConfig()
	client := NewClient(cfg)
	createdAt := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	rawURL, err := client.BuildPaymentURL("order-42", 150000.50, "203.0.113.7", createdAt)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rawURL, cfg.PayURL+"?"))

	q := verifyURLSignature(t, rawURL, cfg.HashSecret)
	assert.Equal(t, "2.1.0", q.Get("vnp_Version"))
	assert.Equal(t, "pay", q.Get("vnp_Command"))
	assert.Equal(t, "TESTMERCH", q.Get("vnp_TmnCode"))
	assert.Equal(t, "order-42", q.Get("vnp_TxnRef"))
	assert.Equal(t, "15000050", q.Get("vnp_Amount"), "amount must be VND minor units")
	assert.Equal(t, "VND", q.Get("vnp_CurrCode"))
	assert.Equal(t, "20250314093000", q.Get("vnp_CreateDate"))
	assert.Equal(t, "20250314094500", q.Get("vnp_ExpireDate"))
	assert.Equal(t, cfg.ReturnURL, q.Get("vnp_ReturnUrl"))
}

func TestBuildPaymentURL_EmptyOrderID(t *testing.T) {
	client := NewClient(testConfig())

	_, err := client.BuildPaymentURL("", 1000, "203.0.113.7", time.Now())

	assert.ErrorIs(t, err, ErrMissingParams)
}

// buildReturnQuery produces a gateway redirect query signed with the secret.
func buildReturnQuery(secret string, overrides map[string]string) url.Values {
	params := url.Values{}
	params.Set("vnp_TxnRef", "order-42")
	params.Set("vnp_ResponseCode", "00")
	params.Set("vnp_TransactionNo", "14226112")
	params.Set("vnp_Amount", "15000050")
	params.Set("vnp_BankCode", "NCB")
	for key, val := range overrides {
		params.Set(key, val)
	}
	params.Set("vnp_SecureHash", signHex(secret, hashData(params)))
	return params
}

func TestVerifyReturn(t *testing.T) {
	cfg := testConfig()
	client := NewClient(cfg)

	data, err := client.VerifyReturn(buildReturnQuery(cfg.HashSecret, nil))
	require.NoError(t, err)

	assert.Equal(t, "order-42", data.TxnRef)
	assert.Equal(t, "00", data.ResponseCode)
	assert.Equal(t, "14226112", data.TransactionNo)
	assert.Equal(t, "NCB", data.BankCode)
	assert.True(t, data.Succeeded())
}

func TestVerifyReturn_FailedTransaction(t *testing.T) {
	cfg := testConfig()
	client := NewClient(cfg)

	data, err := client.VerifyReturn(buildReturnQuery(cfg.HashSecret, map[string]string{
		"vnp_ResponseCode": "24",
	}))
	require.NoError(t, err)

	assert.False(t, data.Succeeded())
}

func TestVerifyReturn_TamperedParams(t *testing.T) {
	cfg := testConfig()
	client := NewClient(cfg)

	q := buildReturnQuery(cfg.HashSecret, nil)
	q.Set("vnp_Amount", "100") // changed after signing

	_, err := client.VerifyReturn(q)

	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyReturn_WrongSecret(t *testing.T) {
	client := NewClient(testConfig())

	_, err := client.VerifyReturn(buildReturnQuery("someone-elses-secret", nil))

	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyReturn_MissingParams(t *testing.T) {
	cfg := testConfig()
	client := NewClient(cfg)

	tests := []struct {
		name string
		drop string
	}{
		{"no hash", "vnp_SecureHash"},
		{"no txn ref", "vnp_TxnRef"},
		{"no response code", "vnp_ResponseCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := buildReturnQuery(cfg.HashSecret, nil)
			q.Del(tt.drop)

			_, err := client.VerifyReturn(q)

			assert.ErrorIs(t, err, ErrMissingParams)
		})
	}
}

func TestQueryTransaction(t *testing.T) {
	cfg := testConfig()

	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(QueryResponse{
			ResponseCode:      "00",
			TxnRef:            "order-42",
			TransactionStatus: "00",
		})
	}))
	defer server.Close()

	cfg.QueryURL = server.URL
	client := NewClient(cfg)

	resp, err := client.QueryTransaction(context.Background(), "order-42", "req-1", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "00", resp.ResponseCode)
	assert.Equal(t, "order-42", resp.TxnRef)
	assert.Equal(t, "req-1", gotBody["vnp_RequestId"])
	assert.Equal(t, "querydr", gotBody["vnp_Command"])
	assert.NotEmpty(t, gotBody["vnp_SecureHash"])
}

func TestQueryTransaction_ProviderError(t *testing.T) {
	cfg := testConfig()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg.QueryURL = server.URL
	client := NewClient(cfg)

	_, err := client.QueryTransaction(context.Background(), "order-42", "req-1", time.Now())

	assert.Error(t, err)
}
