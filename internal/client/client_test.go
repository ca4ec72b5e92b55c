package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAndProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var req LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Password != "secret1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail": "Invalid credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token": "tok", "token_type": "bearer", "role": "admin"}`))
		case "/profile/me":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"name": "Ada", "phone": "555", "role": "admin", "status": "active"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL, time.Second)
	ctx := context.Background()

	resp, err := c.Login(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.AccessToken)
	assert.Equal(t, "admin", resp.Role)

	profile, err := c.GetProfile(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.Name)

	_, err = c.Login(ctx, "ada@example.com", "wrong")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "Invalid credentials", se.Detail)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestLoginRejectsInvalidSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "", "role": "superuser"}`))
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL, time.Second)

	_, err := c.Login(context.Background(), "ada@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = c.Login(context.Background(), "not-an-email", "secret1")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestUpdateProfileSendsOnlySetFields(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message": "Updated"}`))
	}))
	defer srv.Close()

	city := "Hartford"
	err := NewAuthClient(srv.URL, time.Second).UpdateProfile(context.Background(), "tok", models.ProfileUpdate{City: &city})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"city": "Hartford"}, got)
}

func TestListProductsNormalizesIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id": 12, "name": "Loafer", "price": 89.5, "stock": 3, "categoryId": "formal", "imageUrl": "/l.png"},
			{"id": "-Nx1", "name": "Cap", "price": "15", "stock": 40}
		]`))
	}))
	defer srv.Close()

	products, err := NewCatalogClient(srv.URL, time.Second).ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, models.ProductID("12"), products[0].ID)
	assert.Equal(t, "formal", products[0].Category)
	assert.Equal(t, "/l.png", products[0].Image)
	assert.Equal(t, 3, *products[0].Stock)
	assert.Equal(t, models.ProductID("-Nx1"), products[1].ID)
	assert.Equal(t, "15", products[1].Price.String())
}

func TestListProductsRejectsRecordWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name": "Ghost", "price": 1}]`))
	}))
	defer srv.Close()

	_, err := NewCatalogClient(srv.URL, time.Second).ListProducts(context.Background())
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestSubmitOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order", r.URL.Path)
		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ada@example.com", req.UserID)
		assert.Equal(t, 2, req.CartItems["12"].Quantity)
		_, _ = w.Write([]byte(`{"message": "Order received! Processing payment...", "orderId": "-Nabc"}`))
	}))
	defer srv.Close()

	c := NewOrderClient(srv.URL, time.Second)
	resp, err := c.SubmitOrder(context.Background(), OrderRequest{
		UserID:     "ada@example.com",
		CartItems:  map[string]OrderLineItem{"12": {Quantity: 2, Price: 10, Name: "Loafer"}},
		TotalPrice: 35.27,
	})
	require.NoError(t, err)
	assert.Equal(t, "-Nabc", resp.OrderID)

	_, err = c.SubmitOrder(context.Background(), OrderRequest{UserID: "x", CartItems: map[string]OrderLineItem{}})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestUnreachableUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOrderClient(url, time.Second).SubmitOrder(context.Background(), OrderRequest{
		UserID:    "guest",
		CartItems: map[string]OrderLineItem{"1": {Quantity: 1, Price: 1, Name: "x"}},
	})
	assert.Error(t, err)
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestUsersClientQueryParams(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer admin-tok", r.Header.Get("Authorization"))
		paths = append(paths, r.Method+" "+r.URL.RequestURI())
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`[{"id": "u1", "email": "a@b.c", "name": "A", "role": "user", "status": "active"}]`))
			return
		}
		_, _ = w.Write([]byte(`{"message": "ok"}`))
	}))
	defer srv.Close()

	c := NewUsersClient(srv.URL, time.Second)
	ctx := context.Background()

	users, err := c.ListUsers(ctx, "admin-tok")
	require.NoError(t, err)
	require.Len(t, users, 1)

	require.NoError(t, c.UpdateUser(ctx, "admin-tok", "u1", UserUpdate{Name: "Ann", Status: "inactive"}))
	require.NoError(t, c.UpdateUserStatus(ctx, "admin-tok", "u1", "active"))
	require.NoError(t, c.DeleteUser(ctx, "admin-tok", "u1"))
	assert.Error(t, c.UpdateUserStatus(ctx, "admin-tok", "u1", "banished"))

	assert.Equal(t, []string{
		"GET /users",
		"PUT /users/u1?name=Ann&status=inactive",
		"PUT /users/u1/status?status=active",
		"DELETE /users/u1",
	}, paths)
}
