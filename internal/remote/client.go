// internal/remote/client.go
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/andresuchdata/invsync/internal/config"
	"github.com/andresuchdata/invsync/internal/domain"
	"golang.org/x/oauth2"
)

// Entity names on the upstream API.
const (
	EntitySalesInvoice  = "sales-invoice"
	EntityPurchaseOrder = "purchase-order"
	EntitySalesOrder    = "sales-order"
	EntityItem          = "item"
)

// ErrRemoteRejected is returned when the API answers success=false.
// Listing treats it as a stop condition, not a failure.
var ErrRemoteRejected = errors.New("remote api rejected request")

// Client talks to the upstream transactional API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client authenticated with a static bearer token.
func NewClient(cfg config.RemoteConfig) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken})
	httpClient := oauth2.NewClient(context.Background(), ts)

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient.Timeout = timeout

	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
	}
}

// ListParams are the query parameters of a paged list request.
type ListParams struct {
	Page     int
	PageSize int
	DateFrom string // dd/mm/yyyy, BETWEEN lower bound
	DateTo   string // dd/mm/yyyy, BETWEEN upper bound
	BranchID int64
	Status   string
}

type listEnvelope struct {
	Success bool                     `json:"success"`
	Data    []domain.RemoteRecordRef `json:"data"`
}

type detailEnvelope struct {
	Success bool                 `json:"success"`
	Data    *domain.RecordDetail `json:"data"`
}

type stockEnvelope struct {
	Success bool              `json:"success"`
	Data    *domain.ItemStock `json:"data"`
}

// ListPage fetches one page of record references for an entity.
func (c *Client) ListPage(ctx context.Context, entity string, p ListParams) ([]domain.RemoteRecordRef, error) {
	q := url.Values{}
	q.Set("fields", "id,transDate,branchId,statusName")
	q.Set("sp.page", strconv.Itoa(p.Page))
	q.Set("sp.pageSize", strconv.Itoa(p.PageSize))
	if p.DateFrom != "" && p.DateTo != "" {
		q.Set("filter.transDate.op", "BETWEEN")
		q.Set("filter.transDate.val[0]", p.DateFrom)
		q.Set("filter.transDate.val[1]", p.DateTo)
	}
	if p.BranchID > 0 {
		q.Set("filter.branchId.op", "EQUAL")
		q.Set("filter.branchId.val", strconv.FormatInt(p.BranchID, 10))
	}
	if p.Status != "" {
		q.Set("filter.statusName.op", "EQUAL")
		q.Set("filter.statusName.val", p.Status)
	}

	var envelope listEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("/api/%s/list.do", entity), q, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, ErrRemoteRejected
	}
	return envelope.Data, nil
}

// Detail fetches the full detail of one record by ID.
func (c *Client) Detail(ctx context.Context, entity string, id int64) (*domain.RecordDetail, error) {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(id, 10))

	var envelope detailEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("/api/%s/detail.do", entity), q, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success || envelope.Data == nil {
		return nil, ErrRemoteRejected
	}
	return envelope.Data, nil
}

// ItemStock fetches per-warehouse stock quantities for one item.
func (c *Client) ItemStock(ctx context.Context, id int64) (*domain.ItemStock, error) {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(id, 10))

	var envelope stockEnvelope
	if err := c.getJSON(ctx, "/api/item/stock.do", q, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success || envelope.Data == nil {
		return nil, ErrRemoteRejected
	}
	return envelope.Data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response from %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
