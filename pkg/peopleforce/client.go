package peopleforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://app.peopleforce.io/api/public/v3"

// maxPages bounds list pagination so a misbehaving API cannot loop forever.
const maxPages = 50

type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *logrus.Entry
}

// Client is a typed PeopleForce REST client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Entry
}

func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("peopleforce: API key is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.WithField("component", "peopleforce")
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// ListEmployeesByEmail returns active employees matching email.
func (c *Client) ListEmployeesByEmail(ctx context.Context, email string) ([]Employee, error) {
	query := url.Values{}
	query.Set("emails[]", email)
	query.Set("status", "active")

	var employees []Employee
	if err := c.get(ctx, "/employees", query, &employees); err != nil {
		return nil, err
	}
	return employees, nil
}

func (c *Client) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	var employee Employee
	if err := c.get(ctx, "/employees/"+strconv.FormatInt(id, 10), nil, &employee); err != nil {
		return nil, err
	}
	return &employee, nil
}

func (c *Client) ListLeaveTypes(ctx context.Context) ([]LeaveType, error) {
	var raw []map[string]any
	if err := c.get(ctx, "/leave_types", nil, &raw); err != nil {
		return nil, err
	}

	leaveTypes := make([]LeaveType, 0, len(raw))
	for _, item := range raw {
		leaveType, err := parseLeaveType(item)
		if err != nil {
			c.logger.WithError(err).Warn("Skipping leave type without usable id")
			continue
		}
		leaveTypes = append(leaveTypes, leaveType)
	}
	return leaveTypes, nil
}

// ListLeaveRequests walks every page of GET /leave_requests for the query.
func (c *Client) ListLeaveRequests(ctx context.Context, q LeaveRequestQuery) ([]LeaveRequest, error) {
	var all []LeaveRequest

	for page := 1; page <= maxPages; page++ {
		query := url.Values{}
		if q.StartsOn != "" {
			query.Set("starts_on", q.StartsOn)
		}
		if q.EndsOn != "" {
			query.Set("ends_on", q.EndsOn)
		}
		for _, state := range q.States {
			query.Add("states[]", state)
		}
		query.Set("page", strconv.Itoa(page))

		var batch []LeaveRequest
		meta, err := c.getPage(ctx, "/leave_requests", query, &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)

		if meta == nil || meta.Pages <= page || len(batch) == 0 {
			break
		}
	}

	return all, nil
}

// CreateLeaveRequest submits a new leave request. When the request carries
// optional fields and the API rejects it as unprocessable, it is retried once
// with only the required fields.
func (c *Client) CreateLeaveRequest(ctx context.Context, request CreateLeaveRequest) (*LeaveRequest, error) {
	var created LeaveRequest
	err := c.post(ctx, "/leave_requests", request, &created)
	if err != nil && request.hasOptionalFields() && IsUnprocessable(err) {
		c.logger.WithError(err).Warn("Leave request rejected with optional fields, retrying without them")
		created = LeaveRequest{}
		err = c.post(ctx, "/leave_requests", request.requiredOnly(), &created)
	}
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	_, err := c.getPage(ctx, path, query, result)
	return err
}

func (c *Client) getPage(ctx context.Context, path string, query url.Values, result any) (*pagination, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	body, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return decodeData(body, result)
}

func (c *Client) post(ctx context.Context, path string, requestBody any, result any) error {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+path, requestBody)
	if err != nil {
		return err
	}
	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	_, err = decodeData(body, result)
	return err
}

func (c *Client) do(ctx context.Context, method, target string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("peopleforce: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("peopleforce: creating request: %w", err)
	}
	request.Header.Set("X-API-KEY", c.apiKey)
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("peopleforce: %s %s: %w", method, request.URL.Path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("peopleforce: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, parseAPIErrorFromBody(response.StatusCode, body)
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"path":   request.URL.Path,
		"status": response.StatusCode,
	}).Debug("PeopleForce request")

	return body, nil
}

// decodeData unwraps {"data": ...} when present, otherwise decodes the body as is.
func decodeData(body []byte, result any) (*pagination, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped envelope
		if err := json.Unmarshal(trimmed, &wrapped); err == nil && len(wrapped.Data) > 0 && string(wrapped.Data) != "null" {
			if err := json.Unmarshal(wrapped.Data, result); err != nil {
				return nil, fmt.Errorf("peopleforce: decoding data: %w", err)
			}
			return wrapped.Metadata.Pagination, nil
		}
	}

	if err := json.Unmarshal(trimmed, result); err != nil {
		return nil, fmt.Errorf("peopleforce: decoding response: %w", err)
	}
	return nil, nil
}
