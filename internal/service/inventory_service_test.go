package service

import (
	"errors"
	"testing"
	"time"

	"zedcmms/internal/apperror"
	"zedcmms/internal/dto"
	"zedcmms/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePart_DuplicateSKU(t *testing.T) {
	env := newTestEnv(t)
	env.seedPart("BRG-6204", 0, 10)

	_, err := env.inventory.CreatePart(env.ctx, uuid.Nil, dto.CreatePartRequest{SKU: "BRG-6204", Name: "Another bearing"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInventoryService))
	assert.Equal(t, apperror.KindBusinessLogic, apperror.KindOf(err))
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "DUPLICATE_SKU", ae.Details["rule"])
}

func TestCreatePart_InvalidSKU(t *testing.T) {
	env := newTestEnv(t)
	for _, sku := range []string{"", "has space", "ÁRVÍZ", "x/y"} {
		_, err := env.inventory.CreatePart(env.ctx, uuid.Nil, dto.CreatePartRequest{SKU: sku, Name: "p"})
		assert.True(t, apperror.Is(err, apperror.KindValidation), "sku %q", sku)
	}
}

func TestCreatePart_UnknownSupplier(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.inventory.CreatePart(env.ctx, uuid.Nil, dto.CreatePartRequest{
		SKU: "P-1", Name: "p", SupplierID: strPtr(uuid.NewString()),
	})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestCreatePart_InitialQuantityCreatesBatchAndReceipt(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("FLT-01", 12, 4.5)

	lvl := env.level(partID)
	assert.Equal(t, 12, lvl.QuantityOnHand)

	batches, err := env.inventory.ListStockBatches(env.ctx, partID, false)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 12, batches[0].QuantityRemaining)
	assert.True(t, decimal.NewFromFloat(4.5).Equal(batches[0].UnitPrice))

	txs, err := env.inventory.ListStockTransactions(env.ctx, dto.TransactionFilter{PartID: partID.String()})
	require.NoError(t, err)
	require.Equal(t, int64(1), txs.Total)
	assert.Equal(t, model.TxReceived, txs.Items[0].TransactionType)
}

func TestAdjustStock_ZeroAndInsufficient(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("BLT-A40", 3, 8)

	_, err := env.inventory.AdjustStock(env.ctx, uuid.Nil, partID, dto.AdjustStockRequest{Quantity: 0})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = env.inventory.AdjustStock(env.ctx, uuid.Nil, partID, dto.AdjustStockRequest{Quantity: -4})
	require.Error(t, err)
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "INSUFFICIENT_STOCK", ae.Details["rule"])
	assert.Equal(t, 3, env.level(partID).QuantityOnHand, "failed adjustment must not change stock")
}

func TestAdjustStock_ConsumesOldestBatchesFirst(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("SEAL-10", 5, 10)

	env.advance(time.Hour)
	price := decimal.NewFromInt(20)
	_, err := env.inventory.ReceiveStock(env.ctx, uuid.Nil, partID, dto.ReceiveStockRequest{Quantity: 5, UnitPrice: &price})
	require.NoError(t, err)

	cost, err := env.inventory.GetFIFOCost(env.ctx, partID, 7)
	require.NoError(t, err)
	assert.Equal(t, "12.86", cost.StringFixed(2))

	st, err := env.inventory.AdjustStock(env.ctx, uuid.Nil, partID, dto.AdjustStockRequest{Quantity: -7, Notes: "scrap"})
	require.NoError(t, err)
	assert.Equal(t, model.TxAdjustment, st.TransactionType)
	assert.Equal(t, -7, st.Quantity)

	batches, err := env.inventory.ListStockBatches(env.ctx, partID, true)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, 0, batches[0].QuantityRemaining)
	assert.Equal(t, 3, batches[1].QuantityRemaining)
	assert.Equal(t, 3, env.level(partID).QuantityOnHand)
}

func TestGetFIFOCost_FallsBackToBuyPrice(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("NOB-1", 0, 7.25)

	cost, err := env.inventory.GetFIFOCost(env.ctx, partID, 3)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromFloat(7.25).Equal(cost))
}

func TestDeletePart_BlockedByTransactions(t *testing.T) {
	env := newTestEnv(t)
	withStock := env.seedPart("DEL-1", 1, 1)
	empty := env.seedPart("DEL-2", 0, 1)

	err := env.inventory.DeletePart(env.ctx, uuid.Nil, withStock)
	assert.True(t, errors.Is(err, ErrInventoryService))
	assert.True(t, apperror.Is(err, apperror.KindBusinessLogic))

	require.NoError(t, env.inventory.DeletePart(env.ctx, uuid.Nil, empty))
	_, err = env.inventory.GetPart(env.ctx, empty)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.True(t, errors.Is(err, ErrInventoryService))
}

func TestUpdatePart_RechecksSKU(t *testing.T) {
	env := newTestEnv(t)
	env.seedPart("A-1", 0, 1)
	b := env.seedPart("B-1", 0, 1)

	_, err := env.inventory.UpdatePart(env.ctx, uuid.Nil, b, dto.UpdatePartRequest{SKU: strPtr("A-1")})
	assert.True(t, errors.Is(err, ErrInventoryService))

	resp, err := env.inventory.UpdatePart(env.ctx, uuid.Nil, b, dto.UpdatePartRequest{SKU: strPtr("B-2"), BinLocation: strPtr("R1-S3")})
	require.NoError(t, err)
	assert.Equal(t, "B-2", resp.SKU)
	assert.Equal(t, "R1-S3", env.level(b).BinLocation)
}

func TestListLowStock(t *testing.T) {
	env := newTestEnv(t)
	env.seedPart("LOW-1", 1, 1)
	env.seedPart("OK-1", 10, 1)

	low, err := env.inventory.ListLowStock(env.ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "LOW-1", low[0].SKU)
	assert.True(t, low[0].LowStock)

	n, err := env.invRepo.CountLowStock(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestValidateInventoryLevels_ReportsDrift(t *testing.T) {
	env := newTestEnv(t)
	drifted := env.seedPart("DRF-1", 6, 1)
	env.seedPart("OK-2", 4, 1)
	env.seedPart("NONE-1", 0, 1)

	_, err := env.inventory.AdjustStock(env.ctx, uuid.Nil, drifted, dto.AdjustStockRequest{Quantity: -2})
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&model.InventoryLevel{}).Where("part_id = ?", drifted).
		Update("quantity_on_hand", 9).Error)

	found, err := env.inventory.ValidateInventoryLevels(env.ctx, "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "DRF-1", found[0].SKU)
	assert.Equal(t, 9, found[0].QuantityOnHand)
	assert.Equal(t, 4, found[0].LedgerTotal)
	assert.Equal(t, 5, found[0].Difference)

	_, err = env.inventory.ValidateInventoryLevels(env.ctx, uuid.NewString())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = env.inventory.ValidateInventoryLevels(env.ctx, "nope")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestFixInventoryLevel_ResetsToLedger(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("FIX-1", 5, 1)
	require.NoError(t, env.db.Model(&model.InventoryLevel{}).Where("part_id = ?", partID).
		Update("quantity_on_hand", 1).Error)

	lvl, err := env.inventory.FixInventoryLevel(env.ctx, uuid.Nil, partID)
	require.NoError(t, err)
	assert.Equal(t, 5, lvl.QuantityOnHand)
	assert.Equal(t, 5, env.level(partID).QuantityOnHand)

	found, err := env.inventory.ValidateInventoryLevels(env.ctx, partID.String())
	require.NoError(t, err)
	assert.Empty(t, found)

	n, err := env.invRepo.CountTransactions(env.ctx, partID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "reconciling writes no ledger rows")
}

func TestFixInventoryLevel_RefusesWhenLedgerBelowReserved(t *testing.T) {
	env := newTestEnv(t)
	partID := env.seedPart("FIX-2", 2, 1)
	require.NoError(t, env.db.Model(&model.InventoryLevel{}).Where("part_id = ?", partID).
		Updates(map[string]any{"quantity_on_hand": 6, "quantity_reserved": 4}).Error)

	_, err := env.inventory.FixInventoryLevel(env.ctx, uuid.Nil, partID)
	require.Error(t, err)
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "LEDGER_BELOW_RESERVED", ae.Details["rule"])
	assert.Equal(t, 6, env.level(partID).QuantityOnHand)

	_, err = env.inventory.FixInventoryLevel(env.ctx, uuid.Nil, uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
