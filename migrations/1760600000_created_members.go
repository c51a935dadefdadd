package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("members")

		collection.Fields.Add(
			&core.EmailField{
				Name:     "email",
				Required: true,
			},
			&core.TextField{
				Name: "name",
				Max:  200,
			},
			&core.TextField{
				Name: "photo_url",
			},
			&core.SelectField{
				Name:      "role",
				Values:    []string{"none", "sellerRequest", "seller", "admin"},
				MaxSelect: 1,
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

		collection.AddIndex("idx_members_email", true, "`email`", "")
		collection.AddIndex("idx_members_role", false, "`role`", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("members")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
