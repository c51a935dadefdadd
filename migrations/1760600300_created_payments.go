package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("payments")

		collection.Fields.Add(
			&core.TextField{
				Name:     "booking_id",
				Required: true,
			},
			&core.TextField{
				Name:     "listing_id",
				Required: true,
			},
			&core.TextField{
				Name:     "transaction_id",
				Required: true,
			},
			&core.TextField{
				Name: "buyer_email",
			},
			&core.NumberField{
				Name: "price",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
		)

		collection.AddIndex("idx_payments_booking", false, "`booking_id`", "")
		collection.AddIndex("idx_payments_transaction", false, "`transaction_id`", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
