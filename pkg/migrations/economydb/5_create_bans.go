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
		log.Println("creating bans table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.BanDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &ledgerstore.BanDao{}, "reason")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping bans table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.BanDao{})
	})
}
