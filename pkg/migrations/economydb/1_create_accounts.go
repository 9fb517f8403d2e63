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
		log.Println("creating accounts table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.AccountDao{}); err != nil {
			return err
		}
		// Create indexes
		return mghelper.CreateModelIndexes(ctx, db, &ledgerstore.AccountDao{}, "invited_by", "status")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping accounts table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.AccountDao{})
	})
}
