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
		log.Println("creating referral_records table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.ReferralRecordDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &ledgerstore.ReferralRecordDao{}, "inviter_uid")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping referral_records table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.ReferralRecordDao{})
	})
}
