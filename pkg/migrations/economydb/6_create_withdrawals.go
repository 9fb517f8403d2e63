package economydb

import (
	"context"
	"log"

	mghelper "github.com/kamyabi/economy-engine/pkg/pgutil/migrations"

	"github.com/uptrace/bun"

	"github.com/kamyabi/economy-engine/pkg/ledgerstore"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating withdrawals table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.WithdrawalDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelIndexes(ctx, db, &ledgerstore.WithdrawalDao{}, "uid", "status"); err != nil {
			return err
		}
		// One pending request per account, enforced at the database level.
		_, err := db.ExecContext(ctx,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_withdrawals_uid_pending
			 ON withdrawals (uid) WHERE status = 'pending'`)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping withdrawals table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.WithdrawalDao{})
	})
}
