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
		log.Println("creating ledger_entries table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.LedgerEntryDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &ledgerstore.LedgerEntryDao{}, "uid", "type")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping ledger_entries table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.LedgerEntryDao{})
	})
}
