// Package vnpay implements the VNPAY payment-gateway integration: signed
// payment URL construction, return/IPN parameter verification and the
// transaction status query API (v2.1.0).
package vnpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	// ResponseCodeSuccess is the provider code for a successful transaction.
	ResponseCodeSuccess = "00"

	version      = "2.1.0"
	commandPay   = "pay"
	commandQuery = "querydr"
	dateLayout   = "20060102150405"
	currencyCode = "VND"
)

var (
	ErrInvalidSignature = errors.New("vnpay: invalid secure hash")
	ErrMissingParams    = errors.New("vnpay: missing required parameters")
)

type Config struct {
	TmnCode    string
	HashSecret string
	PayURL     string // e.g. https://sandbox.vnpayment.vn/paymentv2/vpcpay.html
	QueryURL   string // e.g. https://sandbox.vnpayment.vn/merchant_webapi/api/transaction
	ReturnURL  string // our result endpoint the gateway redirects back to
}

type Client struct {
	cfg  Config
	http *http.Client
	cb   *gobreaker.CircuitBreaker[*QueryResponse]
	now  func() time.Time
}

func NewClient(cfg Config) *Client {
	cb := gobreaker.NewCircuitBreaker[*QueryResponse](gobreaker.Settings{
		Name:    "vnpay-querydr",
		Timeout: 30 * time.Second,
	})
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
		cb:   cb,
		now:  time.Now,
	}
}

// BuildPaymentURL returns the signed gateway URL the buyer is redirected to.
// The amount is VND and sent in minor units (x100), TxnRef is the order id.
func (c *Client) BuildPaymentURL(orderID string, amount float64, clientIP string, createdAt time.Time) (string, error) {
	if orderID == "" {
		return "", ErrMissingParams
	}
	if createdAt.IsZero() {
		createdAt = c.now()
	}

	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", commandPay)
	params.Set("vnp_TmnCode", c.cfg.TmnCode)
	params.Set("vnp_Amount", fmt.Sprintf("%d", int64(math.Round(amount*100))))
	params.Set("vnp_CurrCode", currencyCode)
	params.Set("vnp_TxnRef", orderID)
	params.Set("vnp_OrderInfo", "Thanh toan don hang "+orderID)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_ReturnUrl", c.cfg.ReturnURL)
	params.Set("vnp_IpAddr", clientIP)
	params.Set("vnp_CreateDate", createdAt.Format(dateLayout))
	params.Set("vnp_ExpireDate", createdAt.Add(15*time.Minute).Format(dateLayout))

	signed := signedQuery(params, c.cfg.HashSecret)
	return c.cfg.PayURL + "?" + signed, nil
}

// ReturnData is the verified subset of gateway return/IPN parameters.
type ReturnData struct {
	TxnRef        string
	ResponseCode  string
	TransactionNo string
	Amount        string
	BankCode      string
}

// Succeeded reports whether the provider marked the transaction successful.
func (d *ReturnData) Succeeded() bool {
	return d.ResponseCode == ResponseCodeSuccess
}

// VerifyReturn checks the HMAC-SHA512 secure hash over the vnp_ return
// parameters. Parameters arrive via an untrusted redirect, so a missing or
// wrong hash rejects the whole set.
func (c *Client) VerifyReturn(q url.Values) (*ReturnData, error) {
	gotHash := q.Get("vnp_SecureHash")
	if gotHash == "" || q.Get("vnp_TxnRef") == "" || q.Get("vnp_ResponseCode") == "" {
		return nil, ErrMissingParams
	}

	params := url.Values{}
	for key, vals := range q {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		if strings.HasPrefix(key, "vnp_") && len(vals) > 0 {
			params.Set(key, vals[0])
		}
	}

	wantHash := hmacSHA512(c.cfg.HashSecret, hashData(params))
	if !hmac.Equal([]byte(strings.ToLower(gotHash)), []byte(wantHash)) {
		return nil, ErrInvalidSignature
	}

	return &ReturnData{
		TxnRef:        q.Get("vnp_TxnRef"),
		ResponseCode:  q.Get("vnp_ResponseCode"),
		TransactionNo: q.Get("vnp_TransactionNo"),
		Amount:        q.Get("vnp_Amount"),
		BankCode:      q.Get("vnp_BankCode"),
	}, nil
}

type QueryResponse struct {
	ResponseCode      string `json:"vnp_ResponseCode"`
	Message           string `json:"vnp_Message"`
	TxnRef            string `json:"vnp_TxnRef"`
	Amount            string `json:"vnp_Amount"`
	TransactionNo     string `json:"vnp_TransactionNo"`
	TransactionStatus string `json:"vnp_TransactionStatus"`
}

// QueryTransaction asks the provider for the status of a transaction. The call
// goes through a circuit breaker so a degraded provider API does not pile up
// blocked requests.
func (c *Client) QueryTransaction(ctx context.Context, orderID, requestID string, transactionDate time.Time) (*QueryResponse, error) {
	return c.cb.Execute(func() (*QueryResponse, error) {
		createDate := c.now().Format(dateLayout)
		txnDate := transactionDate.Format(dateLayout)

		// querydr signs a pipe-joined field list, not the sorted query string.
		data := strings.Join([]string{
			requestID, version, commandQuery, c.cfg.TmnCode, orderID,
			txnDate, createDate, "", "Query transaction " + orderID,
		}, "|")

		body := map[string]string{
			"vnp_RequestId":       requestID,
			"vnp_Version":         version,
			"vnp_Command":         commandQuery,
			"vnp_TmnCode":         c.cfg.TmnCode,
			"vnp_TxnRef":          orderID,
			"vnp_OrderInfo":       "Query transaction " + orderID,
			"vnp_TransactionDate": txnDate,
			"vnp_CreateDate":      createDate,
			"vnp_IpAddr":          "",
			"vnp_SecureHash":      hmacSHA512(c.cfg.HashSecret, data),
		}

		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal query request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.QueryURL, strings.NewReader(string(bodyJSON)))
		if err != nil {
			return nil, fmt.Errorf("build query request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("query transaction: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("query transaction: unexpected status %d", resp.StatusCode)
		}

		var out QueryResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode query response: %w", err)
		}
		return &out, nil
	})
}

// hashData builds the canonical signing payload: vnp_ parameters sorted by
// key, URL-encoded, joined with '&'.
func hashData(params url.Values) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(params.Get(key)))
	}
	return strings.Join(pairs, "&")
}

func signedQuery(params url.Values, secret string) string {
	data := hashData(params)
	return data + "&vnp_SecureHash=" + hmacSHA512(secret, data)
}

func hmacSHA512(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
