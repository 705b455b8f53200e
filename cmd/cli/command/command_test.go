package command

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"servicehub/internal/shared"
	"servicehub/internal/storefront/dto"
	"servicehub/internal/storefront/models"
	"servicehub/internal/storefront/session"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const testSecret = "a-session-secret-of-at-least-32-chars"

// --- FAKE STOREFRONT API ---

type storefront struct {
	mu             sync.Mutex
	services       []models.Service
	establishments []models.Establishment
	addresses      []models.Address
	users          []models.User
	orders         []models.Order
	ratings        []models.Rating
	nextID         int64
}

func newStorefront() *storefront {
	return &storefront{
		services: []models.Service{
			{ID: 1, Name: "Corte de cabelo", Price: 45, EstablishmentID: 10},
			{ID: 2, Name: "Manicure", Price: 30, EstablishmentID: 10},
		},
		establishments: []models.Establishment{{ID: 10, Name: "Salão Centro", ProviderID: 200, AddressID: 300}},
		addresses:      []models.Address{{ID: 300, Street: "Rua das Flores", Number: "12", District: "Boa Vista", City: "Recife", State: "PE"}},
		users: []models.User{
			{ID: 7, Name: "Ana", Role: models.RoleClient, Active: true},
			{ID: 200, Name: "Bruno", Role: models.RoleProvider, Active: true},
		},
		nextID: 100,
	}
}

func reply(c *gin.Context, status int, data any) {
	env, _ := dto.NewSuccessEnvelope(data)
	c.JSON(status, env)
}

func (s *storefront) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	list := func(get func() any) gin.HandlerFunc {
		return func(c *gin.Context) {
			s.mu.Lock()
			defer s.mu.Unlock()
			reply(c, http.StatusOK, get())
		}
	}
	r.GET("/services", list(func() any { return s.services }))
	r.GET("/establishments", list(func() any { return s.establishments }))
	r.GET("/addresses", list(func() any { return s.addresses }))
	r.GET("/users", list(func() any { return s.users }))

	r.GET("/orders", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		clientID, _ := strconv.ParseInt(c.Query("clientId"), 10, 64)
		establishmentID, _ := strconv.ParseInt(c.Query("establishmentId"), 10, 64)

		out := []models.Order{}
		for _, o := range s.orders {
			if clientID != 0 && o.ClientID != clientID {
				continue
			}
			if establishmentID != 0 && s.establishmentOf(o.ServiceID) != establishmentID {
				continue
			}
			out = append(out, o)
		}
		reply(c, http.StatusOK, out)
	})
	r.POST("/orders", func(c *gin.Context) {
		var req dto.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.NewFailureEnvelope(err.Error()))
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.nextID++
		o := models.Order{ID: s.nextID, ClientID: req.ClientID, ServiceID: req.ServiceID, Status: req.Status, Notes: req.Notes, CreatedAt: time.Now()}
		s.orders = append(s.orders, o)
		reply(c, http.StatusCreated, o)
	})
	r.PATCH("/orders/:id/status", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		var req dto.UpdateOrderStatusRequest
		_ = c.ShouldBindJSON(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.orders {
			if s.orders[i].ID == id {
				s.orders[i].Status = req.Status
				reply(c, http.StatusOK, s.orders[i])
				return
			}
		}
		c.JSON(http.StatusNotFound, dto.NewFailureEnvelope("order not found"))
	})

	r.GET("/services/:id/ratings", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []models.Rating{}
		for _, rt := range s.ratings {
			if rt.ServiceID == id {
				out = append(out, rt)
			}
		}
		reply(c, http.StatusOK, out)
	})
	r.POST("/ratings", func(c *gin.Context) {
		var req dto.CreateRatingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.NewFailureEnvelope(err.Error()))
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, rt := range s.ratings {
			if rt.OrderID == req.OrderID {
				c.JSON(http.StatusConflict, dto.NewFailureEnvelope("order already rated"))
				return
			}
		}
		s.nextID++
		rt := models.Rating{ID: s.nextID, OrderID: req.OrderID, ClientID: req.ClientID, ServiceID: req.ServiceID,
			Score: req.Score, Comment: req.Comment, CreatedAt: time.Now()}
		s.ratings = append(s.ratings, rt)
		reply(c, http.StatusCreated, rt)
	})
	return r
}

func (s *storefront) establishmentOf(serviceID int64) int64 {
	for _, svc := range s.services {
		if svc.ID == serviceID {
			return svc.EstablishmentID
		}
	}
	return 0
}

func (s *storefront) orderStatus(id int64) models.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o.Status
		}
	}
	return ""
}

// --- HELPERS ---

func setup(t *testing.T) *storefront {
	t.Helper()
	keyring.MockInit()

	api := newStorefront()
	srv := httptest.NewServer(api.router())
	t.Cleanup(srv.Close)

	t.Setenv("STOREFRONT_API_URL", srv.URL)
	t.Setenv("REDIS_URL", "")
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("API_RATE_LIMIT", "1000")
	return api
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func login(t *testing.T, user models.User) {
	t.Helper()
	token, err := session.IssueToken(user, testSecret, time.Hour)
	require.NoError(t, err)

	out, err := execute(t, "auth", "login", "--token", token)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Logged in as "+user.Name)
}

var (
	ana   = models.User{ID: 7, Name: "Ana", Email: "ana@example.com", Role: models.RoleClient}
	bruno = models.User{ID: 200, Name: "Bruno", Role: models.RoleProvider}
)

// --- TESTS ---

func TestServicesList(t *testing.T) {
	setup(t)

	out, err := execute(t, "services", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Corte de cabelo")
	assert.Contains(t, out, "R$ 45.00")
	assert.Contains(t, out, "Salão Centro")
	assert.Contains(t, out, "Recife/PE")
	assert.Contains(t, out, "Provider: Bruno")

	out, err = execute(t, "services", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "no ratings yet")
}

func TestContractAndRate(t *testing.T) {
	setup(t)
	login(t, ana)

	out, err := execute(t, "rating", "panel", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Contract this service before rating it.")

	out, err = execute(t, "orders", "create", "1", "--notes", "sábado de manhã")
	require.NoError(t, err)
	assert.Contains(t, out, "Service 1 contracted")

	out, err = execute(t, "orders", "create", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "already have an active order")

	out, err = execute(t, "rating", "rate", "1", "4", "--comment", "Ótimo atendimento")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Rating submitted successfully!")
	assert.Contains(t, out, "4.0/5 (1 ratings)")

	out, err = execute(t, "rating", "panel", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ótimo atendimento")
	assert.Contains(t, out, "You have already rated this service.")

	_, err = execute(t, "rating", "rate", "1", "5")
	assert.True(t, errors.Is(err, shared.ErrAlreadyRated))
}

func TestRateShortComment(t *testing.T) {
	api := setup(t)
	login(t, ana)

	_, err := execute(t, "orders", "create", "2")
	require.NoError(t, err)

	out, err := execute(t, "rating", "rate", "2", "5", "--comment", "curto")
	assert.True(t, errors.Is(err, shared.ErrValidationFailed))
	assert.Contains(t, out, "comment must be between 10 and 500 characters")
	assert.Empty(t, api.ratings)
}

func TestProviderCannotRateOrContract(t *testing.T) {
	setup(t)
	login(t, bruno)

	_, err := execute(t, "rating", "rate", "1", "5")
	assert.True(t, errors.Is(err, shared.ErrWrongRole))

	_, err = execute(t, "orders", "create", "1")
	assert.ErrorContains(t, err, "only clients")

	out, err := execute(t, "services", "list", "--mine")
	require.NoError(t, err)
	assert.Contains(t, out, "Services (2)")
}

func TestCancelledOrderLosesEligibility(t *testing.T) {
	api := setup(t)
	login(t, ana)

	_, err := execute(t, "orders", "create", "1")
	require.NoError(t, err)
	require.Len(t, api.orders, 1)
	orderID := api.orders[0].ID

	out, err := execute(t, "orders", "cancel", strconv.FormatInt(orderID, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled")
	assert.Equal(t, models.OrderCancelled, api.orderStatus(orderID))

	out, err = execute(t, "rating", "panel", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Contract this service before rating it.")

	out, err = execute(t, "orders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no active orders")
}

func TestProviderSeesEstablishmentOrders(t *testing.T) {
	api := setup(t)
	login(t, ana)
	_, err := execute(t, "orders", "create", "1")
	require.NoError(t, err)
	orderID := api.orders[0].ID

	login(t, bruno)
	out, err := execute(t, "orders", "establishment", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Orders for Salão Centro (1)")

	_, err = execute(t, "orders", "cancel", strconv.FormatInt(orderID, 10))
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, api.orderStatus(orderID))
}

func TestNotLoggedIn(t *testing.T) {
	setup(t)

	_, err := execute(t, "orders", "list")
	assert.True(t, errors.Is(err, shared.ErrNotAuthenticated))

	out, err := execute(t, "rating", "panel", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Log in as a client")

	login(t, ana)
	out, err = execute(t, "auth", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana (ID: 7)")

	_, err = execute(t, "auth", "logout")
	require.NoError(t, err)
	_, err = execute(t, "auth", "whoami")
	assert.True(t, errors.Is(err, shared.ErrNotAuthenticated))
}

func TestAdminDeleteOrderCancels(t *testing.T) {
	api := setup(t)
	login(t, ana)
	_, err := execute(t, "orders", "create", "1")
	require.NoError(t, err)
	orderID := api.orders[0].ID

	out, err := execute(t, "admin", "kinds")
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "services")

	out, err = execute(t, "admin", "list", "addresses")
	require.NoError(t, err)
	assert.Contains(t, out, "Rua das Flores")

	out, err = execute(t, "admin", "delete", "orders", strconv.FormatInt(orderID, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled")
	require.Len(t, api.orders, 1)
	assert.Equal(t, models.OrderCancelled, api.orderStatus(orderID))

	_, err = execute(t, "admin", "update", "orders", strconv.FormatInt(orderID, 10), "--data", `{"status":"active"}`)
	assert.True(t, errors.Is(err, shared.ErrImmutable))
	assert.Equal(t, models.OrderCancelled, api.orderStatus(orderID))

	_, err = execute(t, "admin", "delete", "ratings", "1")
	assert.True(t, errors.Is(err, shared.ErrImmutable))

	_, err = execute(t, "admin", "list", "invoices")
	assert.ErrorContains(t, err, "unknown entity kind")
}
