package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/InventoryGo/internal/domain"
)

const lowStockKeyPrefix = "inventory:low_stock:"

// LowStockNotifier publishes inventory.stock.low at most once per window for
// each (product, warehouse) pair. Without a Redis client every low reading is
// published.
type LowStockNotifier struct {
	producer *Producer
	client   redis.UniversalClient
	window   time.Duration
	logger   *slog.Logger
}

// NewLowStockNotifier creates a notifier. client may be nil.
func NewLowStockNotifier(producer *Producer, client redis.UniversalClient, window time.Duration, logger *slog.Logger) *LowStockNotifier {
	return &LowStockNotifier{
		producer: producer,
		client:   client,
		window:   window,
		logger:   logger,
	}
}

// Notify publishes an alert when rec is at or below the product's reorder
// level and no alert for the pair was sent within the window. Failures are
// logged, never returned.
func (n *LowStockNotifier) Notify(ctx context.Context, product *domain.Product, rec *domain.StockRecord) {
	if n == nil || !product.IsLowStock(rec.Quantity) {
		return
	}

	if n.client != nil {
		key := lowStockKeyPrefix + rec.ProductID.String() + ":" + rec.WarehouseID.String()
		first, err := n.client.SetNX(ctx, key, rec.Quantity, n.window).Result()
		if err != nil {
			n.logger.WarnContext(ctx, "low stock dedup unavailable, publishing anyway",
				slog.String("product_id", rec.ProductID.String()),
				slog.String("error", err.Error()),
			)
		} else if !first {
			return
		}
	}

	if err := n.producer.PublishStockLow(ctx, product, rec); err != nil {
		n.logger.ErrorContext(ctx, "failed to publish low stock event",
			slog.String("product_id", rec.ProductID.String()),
			slog.String("warehouse_id", rec.WarehouseID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	n.logger.InfoContext(ctx, "low stock alert published",
		slog.String("product_id", rec.ProductID.String()),
		slog.String("warehouse_id", rec.WarehouseID.String()),
		slog.Int("quantity", rec.Quantity),
	)
}
