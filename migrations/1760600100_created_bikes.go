package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("bikes")

		collection.Fields.Add(
			&core.TextField{
				Name:     "owner_email",
				Required: true,
			},
			&core.TextField{
				Name:     "title",
				Required: true,
				Max:      300,
			},
			&core.TextField{
				Name:     "category",
				Required: true,
			},
			&core.TextField{
				Name: "description",
			},
			&core.TextField{
				Name: "image_url",
			},
			&core.TextField{
				Name: "location",
			},
			&core.NumberField{
				Name: "price",
			},
			&core.SelectField{
				Name:      "status",
				Values:    []string{"available", "sold"},
				MaxSelect: 1,
				Required:  true,
			},
			&core.BoolField{
				Name: "advertised",
			},
			&core.TextField{
				Name: "sold_booking_id",
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

		collection.AddIndex("idx_bikes_category_status", false, "`category`, `status`", "")
		collection.AddIndex("idx_bikes_owner", false, "`owner_email`", "")
		collection.AddIndex("idx_bikes_advertised", false, "`advertised`", "`status` = 'available'")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("bikes")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
