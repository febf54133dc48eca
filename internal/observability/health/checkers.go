package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CheckDatabase reports whether the backing database answers a ping within
// the timeout. A nil handle counts as unreachable so probes fail closed.
func CheckDatabase(db *gorm.DB, timeout time.Duration) error {
	if db == nil {
		return errors.New("no database handle")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("obtain sql.DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	return nil
}
