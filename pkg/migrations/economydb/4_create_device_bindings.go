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
		log.Println("creating device_bindings table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.DeviceBindingDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &ledgerstore.DeviceBindingDao{}, "bound_uid")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping device_bindings table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.DeviceBindingDao{})
	})
}
