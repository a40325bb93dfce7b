package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
	"github.com/agrigrocer/marketplace-backend/services/order-service/repository"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)
	return gormDB, mock
}

func TestRegisterSale_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RegisterSale(context.Background(), "p1", 2)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterSale_ProductMissing(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.RegisterSale(context.Background(), "ghost", 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMarkProcessed_FirstDelivery(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	ledger := repository.NewGormEventLedger(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "processed_events"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	first, err := ledger.MarkProcessed(context.Background(), "evt_1")
	assert.NoError(t, err)
	assert.True(t, first)
}

func TestMarkProcessed_Redelivery(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	ledger := repository.NewGormEventLedger(gormDB)

	// ON CONFLICT DO NOTHING reports zero affected rows for a duplicate.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "processed_events"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	first, err := ledger.MarkProcessed(context.Background(), "evt_1")
	assert.NoError(t, err)
	assert.False(t, first)
}

func TestForget_RemovesLedgerEntry(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	ledger := repository.NewGormEventLedger(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "processed_events"`)).
		WithArgs("evt_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, ledger.Forget(context.Background(), "evt_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithItems_PersistsOrderAndItems(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	order := &models.Order{
		UserID:         "u1",
		ShopID:         "s1",
		Total:          20,
		Status:         "Paid",
		DeliveryStatus: "Ordered",
		Items: []models.OrderItem{
			{ProductID: "p1", Quantity: 2, Price: 10},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	err := repo.CreateWithItems(context.Background(), order)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByShopID_PreloadsItemsNewestFirst(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	orderID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "shop_id", "total", "status", "delivery_status", "created_at", "updated_at"}).
			AddRow(orderID, "u1", "s1", 20.0, "Paid", "Ordered", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price"}).
			AddRow(uuid.New(), orderID, "p1", 2, 10.0))

	orders, err := repo.FindByShopID(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 1)
	assert.Equal(t, "p1", orders[0].Items[0].ProductID)
}
