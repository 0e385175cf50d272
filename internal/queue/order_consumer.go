package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// StartOrderLogConsumer consumes order.placed and appends one line per order
// to <dir>/orders.log.
func StartOrderLogConsumer(ctx context.Context, url, dir string, log *zap.Logger) error {
	return Consume(ctx, url, OrderQueue, OrderLogHandler(dir), log)
}

// OrderLogHandler returns the handler used by StartOrderLogConsumer.
func OrderLogHandler(dir string) HandlerFunc {
	return func(_ context.Context, body []byte) error {
		var ev OrderPlacedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir logs: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "orders.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()

		if _, err := f.WriteString(FormatOrderLine(ev)); err != nil {
			return fmt.Errorf("write log: %w", err)
		}
		return nil
	}
}

// FormatOrderLine renders ev as a single newline-terminated log line.
func FormatOrderLine(ev OrderPlacedEvent) string {
	return fmt.Sprintf("[%s] Order placed | order_id=%d | user_id=%d | equipment_id=%d | equipment=%q | quantity=%d | total=%s | status=%s\n",
		ev.PlacedAt, ev.OrderID, ev.UserID, ev.EquipmentID, ev.EquipmentName, ev.Quantity, ev.TotalPrice, ev.Status)
}
