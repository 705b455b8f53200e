package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"servicehub/internal/logger"
	"servicehub/internal/shared"
	"servicehub/internal/storefront/dto"
	"servicehub/internal/storefront/models"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 5
	defaultRateBurst = 10
	userAgent        = "servicehub/1.0"
)

var (
	_ CatalogRepository = (*APIClient)(nil)
	_ OrderRepository   = (*APIClient)(nil)
	_ RatingRepository  = (*APIClient)(nil)
)

// ClientOptions tunes the HTTP side of the data API client.
type ClientOptions struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second
	RateBurst int
}

// APIClient talks to the storefront data API. Every call is paced by a rate
// limiter and performed exactly once: retry policy belongs to the caller.
type APIClient struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	token       string
}

// NewAPIClient creates a data API client rooted at baseURL.
func NewAPIClient(baseURL string, opts ClientOptions) *APIClient {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = defaultRateBurst
	}
	return &APIClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// SetToken sets the bearer token sent with every request.
func (c *APIClient) SetToken(token string) {
	c.token = token
}

// Catalog

func (c *APIClient) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if err := c.doRequest(ctx, http.MethodGet, "/services", nil, nil, &services); err != nil {
		return nil, err
	}
	return services, nil
}

func (c *APIClient) ListEstablishments(ctx context.Context) ([]models.Establishment, error) {
	var establishments []models.Establishment
	if err := c.doRequest(ctx, http.MethodGet, "/establishments", nil, nil, &establishments); err != nil {
		return nil, err
	}
	return establishments, nil
}

func (c *APIClient) ListAddresses(ctx context.Context) ([]models.Address, error) {
	var addresses []models.Address
	if err := c.doRequest(ctx, http.MethodGet, "/addresses", nil, nil, &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

func (c *APIClient) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.doRequest(ctx, http.MethodGet, "/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Orders

func (c *APIClient) ListOrders(ctx context.Context, filter dto.OrderFilter) ([]models.Order, error) {
	params := url.Values{}
	if filter.ClientID != 0 {
		params.Set("clientId", strconv.FormatInt(filter.ClientID, 10))
	}
	if filter.EstablishmentID != 0 {
		params.Set("establishmentId", strconv.FormatInt(filter.EstablishmentID, 10))
	}

	var orders []models.Order
	if err := c.doRequest(ctx, http.MethodGet, "/orders", params, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *APIClient) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*models.Order, error) {
	var order models.Order
	if err := c.doRequest(ctx, http.MethodPost, "/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *APIClient) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error) {
	var order models.Order
	endpoint := fmt.Sprintf("/orders/%d/status", orderID)
	if err := c.doRequest(ctx, http.MethodPatch, endpoint, nil, dto.UpdateOrderStatusRequest{Status: status}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Ratings

func (c *APIClient) ListRatingsByService(ctx context.Context, serviceID int64) ([]models.Rating, error) {
	var ratings []models.Rating
	endpoint := fmt.Sprintf("/services/%d/ratings", serviceID)
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, nil, &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (c *APIClient) CreateRating(ctx context.Context, req dto.CreateRatingRequest) (*models.Rating, error) {
	var rating models.Rating
	if err := c.doRequest(ctx, http.MethodPost, "/ratings", nil, req, &rating); err != nil {
		return nil, err
	}
	return &rating, nil
}

// Untyped resource access used by the entity registry.

func (c *APIClient) ListRaw(ctx context.Context, resource string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/"+resource, nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *APIClient) CreateRaw(ctx context.Context, resource string, payload json.RawMessage) (json.RawMessage, error) {
	var created json.RawMessage
	if err := c.doRequest(ctx, http.MethodPost, "/"+resource, nil, payload, &created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *APIClient) UpdateRaw(ctx context.Context, resource string, id int64, payload json.RawMessage) (json.RawMessage, error) {
	var updated json.RawMessage
	endpoint := fmt.Sprintf("/%s/%d", resource, id)
	if err := c.doRequest(ctx, http.MethodPut, endpoint, nil, payload, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *APIClient) DeleteRaw(ctx context.Context, resource string, id int64) error {
	endpoint := fmt.Sprintf("/%s/%d", resource, id)
	return c.doRequest(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

// doRequest performs a single rate-limited request and unwraps the response envelope.
// A cancelled context is returned as is; every other failure matches shared.ErrUnavailable,
// except HTTP 404 which matches shared.ErrNotFound.
func (c *APIClient) doRequest(ctx context.Context, method, endpoint string, params url.Values, body any, result any) error {
	op := method + " " + endpoint
	log := logger.FromContext(ctx)

	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return shared.Unavailable(op, err)
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error().Err(err).Str("op", op).Msg("data API request failed")
		return shared.Unavailable(op, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("data API request")

	var envelope dto.Envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w%s", op, shared.ErrNotFound, messageSuffix(envelope.Message))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := envelope.Message
		if msg == "" {
			msg = resp.Status
		}
		return shared.Unavailable(op, errors.New(msg))
	}
	if decodeErr != nil {
		if resp.StatusCode == http.StatusNoContent || errors.Is(decodeErr, io.EOF) {
			return nil
		}
		return shared.Unavailable(op, fmt.Errorf("decode response: %w", decodeErr))
	}
	if !envelope.Success {
		msg := envelope.Message
		if msg == "" {
			msg = "request rejected by data API"
		}
		return shared.Unavailable(op, errors.New(msg))
	}

	if result != nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return shared.Unavailable(op, fmt.Errorf("decode data: %w", err))
		}
	}
	return nil
}

func messageSuffix(msg string) string {
	if msg == "" {
		return ""
	}
	return ": " + msg
}
