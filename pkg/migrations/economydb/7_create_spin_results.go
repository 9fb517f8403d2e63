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
		log.Println("creating spin_results table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.SpinResultDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &ledgerstore.SpinResultDao{}, "uid")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping spin_results table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.SpinResultDao{})
	})
}
