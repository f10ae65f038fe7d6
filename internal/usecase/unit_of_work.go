package usecase

import "context"

// runInTx executes fn inside one transaction. Everything fn wrote is
// committed together or not at all. Failed units are not retried.
func runInTx(ctx context.Context, txManager TransactionManager, fn func(tx Transaction) error) error {
	tx, err := txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
