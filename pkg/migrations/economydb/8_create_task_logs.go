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
		log.Println("creating task_logs table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.TaskLogDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &ledgerstore.TaskLogDao{}, "uid", "date")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping task_logs table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.TaskLogDao{})
	})
}
