package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("bookings")

		collection.Fields.Add(
			&core.TextField{
				Name:     "buyer_email",
				Required: true,
			},
			&core.TextField{
				Name:     "listing_id",
				Required: true,
			},
			&core.TextField{
				Name: "listing_title",
			},
			&core.TextField{
				Name: "seller_email",
			},
			&core.NumberField{
				Name: "price",
			},
			&core.BoolField{
				Name: "paid",
			},
			&core.TextField{
				Name: "transaction_id",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		collection.AddIndex("idx_bookings_buyer", false, "`buyer_email`", "")
		collection.AddIndex("idx_bookings_listing", false, "`listing_id`", "")
		// one open booking per buyer and listing
		collection.AddIndex("idx_bookings_open", true, "`buyer_email`, `listing_id`", "`paid` = FALSE")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
