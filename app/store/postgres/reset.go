package postgres

import (
	"context"
	"fmt"
)

// Reset deletes every row. Tests use it to start each case from an empty
// database; sequences keep counting so ids are still never reused.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE messages, conversations, tasks`); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}
