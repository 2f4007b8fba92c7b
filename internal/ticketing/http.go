package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/spec-kit/escalation-service/pkg/util"
)

// HTTPConfig configures the HTTP ticketing client.
type HTTPConfig struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	PageSize int
}

// httpClient talks JSON to the ticketing system's REST API.
type httpClient struct {
	base     string
	token    string
	pageSize int
	client   *http.Client
}

// NewHTTPClient constructs a Client over the ticketing REST API.
func NewHTTPClient(cfg HTTPConfig) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return &httpClient{
		base:     strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
	}
}

type ticketPage struct {
	Items []Ticket `json:"items"`
	Total int      `json:"total"`
}

func (c *httpClient) ListTickets(ctx context.Context, filter Filter, progress ProgressFunc) ([]Ticket, error) {
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = c.pageSize
	}

	var all []Ticket
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		query := url.Values{}
		query.Set("limit", strconv.Itoa(pageSize))
		query.Set("offset", strconv.Itoa(offset))
		for _, status := range filter.Statuses {
			query.Add("status", status)
		}
		if filter.From != nil {
			query.Set("from", filter.From.UTC().Format(time.RFC3339))
		}
		if filter.To != nil {
			query.Set("to", filter.To.UTC().Format(time.RFC3339))
		}

		var page ticketPage
		if err := c.get(ctx, "/tickets?"+query.Encode(), &page); err != nil {
			return all, err
		}
		all = append(all, page.Items...)
		if progress != nil {
			progress(len(all), page.Total)
		}
		if len(page.Items) < pageSize || len(all) >= page.Total {
			return all, nil
		}
		offset += len(page.Items)
	}
}

func (c *httpClient) GetTicket(ctx context.Context, ref string) (*Ticket, error) {
	var ticket Ticket
	if err := c.get(ctx, "/tickets/"+url.PathEscape(ref), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *httpClient) ListComments(ctx context.Context, ref string) ([]Comment, error) {
	var comments []Comment
	if err := c.get(ctx, "/tickets/"+url.PathEscape(ref)+"/comments", &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *httpClient) AddComment(ctx context.Context, ref, body string) error {
	return c.post(ctx, "/tickets/"+url.PathEscape(ref)+"/comments", map[string]string{"body": body})
}

func (c *httpClient) ChangeAssignee(ctx context.Context, ref, assigneeRef string) error {
	return c.post(ctx, "/tickets/"+url.PathEscape(ref)+"/assignee", map[string]string{"assignee": assigneeRef})
}

func (c *httpClient) ChangePriority(ctx context.Context, ref string, priority int) error {
	return c.post(ctx, "/tickets/"+url.PathEscape(ref)+"/priority", map[string]int{"priority": priority})
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return apperrors.NewExternalSyncError("build ticketing request", err)
	}
	c.decorate(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewExternalSyncError("ticketing system unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.NewExternalSyncError(fmt.Sprintf("ticketing system returned %d", resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewExternalSyncError("malformed ticketing response", err)
	}
	return nil
}

func (c *httpClient) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewExternalPushError("encode ticketing payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewExternalPushError("build ticketing request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewExternalPushError("ticketing system unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apperrors.NewExternalPushError(fmt.Sprintf("ticketing system returned %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *httpClient) decorate(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
}
