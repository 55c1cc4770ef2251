package service

import (
	"errors"
	"testing"
	"time"

	"zedcmms/internal/apperror"
	"zedcmms/internal/config"
	"zedcmms/internal/dto"
	"zedcmms/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveStock_NeverExceedsOnHand(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("RES-1", 10, 5)

	_, err := env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 6})
	require.NoError(t, err)
	_, err = env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 4})
	require.NoError(t, err)

	_, err = env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInventoryService))
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperror.KindBusinessLogic, ae.Kind)
	assert.Equal(t, "STOCK_AVAILABILITY", ae.Details["rule"])
	assert.Equal(t, 1, ae.Details["requested"])
	assert.Equal(t, 0, ae.Details["available"])

	lvl := env.level(partID)
	assert.Equal(t, 10, lvl.QuantityOnHand)
	assert.Equal(t, 10, lvl.QuantityReserved)

	avail, err := env.reservations.GetAvailableQuantity(env.ctx, partID)
	require.NoError(t, err)
	assert.Equal(t, 0, avail)
}

func TestReserveStock_Validation(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("RES-2", 3, 1)

	_, err := env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 0})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: uuid.New(), Quantity: 1})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	missing := uuid.New()
	_, err = env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 1, WorksheetID: &missing})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestReserveStock_DefaultTTLFromConfig(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("RES-3", 3, 1)

	res, err := env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 1})
	require.NoError(t, err)
	assert.True(t, res.ExpiresAt.Equal(env.now.Add(24*time.Hour)))
	assert.False(t, res.Expired)

	short, err := env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 1, TTL: time.Hour})
	require.NoError(t, err)
	assert.True(t, short.ExpiresAt.Equal(env.now.Add(time.Hour)))
}

func TestReserveStock_ExpiredReservationsDoNotCount(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("RES-4", 5, 1)

	_, err := env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 5, TTL: time.Hour})
	require.NoError(t, err)

	env.advance(2 * time.Hour)
	avail, err := env.reservations.GetAvailableQuantity(env.ctx, partID)
	require.NoError(t, err)
	assert.Equal(t, 5, avail)

	_, err = env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 5})
	require.NoError(t, err)

	active, err := env.reservations.ListReservations(env.ctx, dto.ReservationFilter{PartID: partID.String(), ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCleanupExpiredReservations(t *testing.T) {
	env := newTestEnv(t)
	a := env.seedPart("CLN-A", 5, 1)
	b := env.seedPart("CLN-B", 5, 1)

	for _, r := range []ReserveRequest{
		{PartID: a, Quantity: 2, TTL: time.Hour},
		{PartID: a, Quantity: 1, TTL: time.Hour},
		{PartID: b, Quantity: 3, TTL: 48 * time.Hour},
	} {
		_, err := env.reservations.ReserveStock(env.ctx, r)
		require.NoError(t, err)
	}

	n, err := env.reservations.CleanupExpiredReservations(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.advance(90 * time.Minute)
	n, err = env.reservations.CleanupExpiredReservations(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, 0, env.level(a).QuantityReserved)
	assert.Equal(t, 3, env.level(b).QuantityReserved)

	left, err := env.reservations.ListReservations(env.ctx, dto.ReservationFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, b.String(), left[0].PartID)
}

func TestReleaseReservation(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("REL-1", 4, 1)

	res, err := env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, env.reservations.ReleaseReservation(env.ctx, uuid.Nil, uuid.MustParse(res.ID)))
	assert.Equal(t, 0, env.level(partID).QuantityReserved)
	assert.Equal(t, 4, env.level(partID).QuantityOnHand)

	err = env.reservations.ReleaseReservation(env.ctx, uuid.Nil, uuid.MustParse(res.ID))
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestConsumeReservation_BooksPartsOntoWorksheet(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("tech1", config.RoleMaintenanceTech, nil)
	machine := env.seedMachine("Press 1")
	partID := env.seedPart("CON-1", 6, 12)
	ws := env.openWorksheet(machine, tech)
	wsID := uuid.MustParse(ws.ID)

	res, err := env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 4, WorksheetID: &wsID, UserID: tech.ID})
	require.NoError(t, err)

	st, err := env.reservations.ConsumeReservation(env.ctx, tech.ID, uuid.MustParse(res.ID))
	require.NoError(t, err)
	assert.Equal(t, model.TxIssued, st.TransactionType)
	assert.Equal(t, -4, st.Quantity)
	assert.Equal(t, "worksheet", st.ReferenceType)

	lvl := env.level(partID)
	assert.Equal(t, 2, lvl.QuantityOnHand)
	assert.Equal(t, 0, lvl.QuantityReserved)

	parts, err := env.wsRepo.ListParts(env.ctx, wsID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, 4, parts[0].QuantityUsed)
	assert.Equal(t, "12.00", parts[0].UnitCostAtTime.StringFixed(2))
}

func TestConsumeReservation_WithoutWorksheet(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("CON-2", 3, 1)

	res, err := env.reservations.ReserveStock(env.ctx, ReserveRequest{PartID: partID, Quantity: 2})
	require.NoError(t, err)

	st, err := env.reservations.ConsumeReservation(env.ctx, uuid.Nil, uuid.MustParse(res.ID))
	require.NoError(t, err)
	assert.Equal(t, model.TxAdjustment, st.TransactionType)
	assert.Equal(t, "reservation", st.ReferenceType)
	assert.Equal(t, 1, env.level(partID).QuantityOnHand)
}
