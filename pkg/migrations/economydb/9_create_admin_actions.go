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
		log.Println("creating admin_actions table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.AdminActionDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &ledgerstore.AdminActionDao{}, "admin_uid", "target_uid")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping admin_actions table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.AdminActionDao{})
	})
}
