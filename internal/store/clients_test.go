package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mininik08inv/bookstore/internal/db"
)

func TestUpsertCity(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	city, err := s.UpsertCity(ctx, "Krakow", 2)
	require.NoError(t, err)
	require.NotZero(t, city.CityID)

	same, err := s.UpsertCity(ctx, "Krakow", 4)
	require.NoError(t, err)
	assert.Equal(t, city.CityID, same.CityID)
	assert.Equal(t, 4, same.DeliveryDays)

	var n int64
	require.NoError(t, s.db.Model(&db.City{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	var verr *ValidationError
	_, err = s.UpsertCity(ctx, "", 1)
	require.ErrorAs(t, err, &verr)
	_, err = s.UpsertCity(ctx, "Gdansk", 0)
	require.ErrorAs(t, err, &verr)
}

func TestUpsertClientByEmail(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	city, err := s.UpsertCity(ctx, "Krakow", 2)
	require.NoError(t, err)

	client, err := s.UpsertClient(ctx, "Anna Kowalska", "anna@example.com", &city.CityID)
	require.NoError(t, err)
	require.NotZero(t, client.ClientID)

	// email is the natural key: name and city update in place
	renamed, err := s.UpsertClient(ctx, "Anna Nowak", "anna@example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, client.ClientID, renamed.ClientID)

	var got db.Client
	require.NoError(t, s.db.Where("client_id = ?", client.ClientID).Take(&got).Error)
	assert.Equal(t, "Anna Nowak", got.NameClient)
	assert.Nil(t, got.CityID)
}

func TestUpsertClientValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	var verr *ValidationError

	_, err := s.UpsertClient(ctx, "", "a@example.com", nil)
	require.ErrorAs(t, err, &verr)

	_, err = s.UpsertClient(ctx, "Anna", "not-an-email", nil)
	require.ErrorAs(t, err, &verr)

	var nerr *NotFoundError
	missing := uint(9999)
	_, err = s.UpsertClient(ctx, "Anna", "anna@example.com", &missing)
	require.ErrorAs(t, err, &nerr)
}

func TestDeleteCityGuard(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	city, err := s.UpsertCity(ctx, "Krakow", 2)
	require.NoError(t, err)
	_, err = s.UpsertClient(ctx, "Anna", "anna@example.com", &city.CityID)
	require.NoError(t, err)

	var cerr *ConflictError
	require.ErrorAs(t, s.DeleteCity(ctx, city.CityID), &cerr)

	empty, err := s.UpsertCity(ctx, "Gdansk", 1)
	require.NoError(t, err)
	require.NoError(t, s.DeleteCity(ctx, empty.CityID))

	var nerr *NotFoundError
	require.ErrorAs(t, s.DeleteCity(ctx, empty.CityID), &nerr)
}
