package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// PocketBaseStore keeps documents as PocketBase records. Conditional updates
// go straight through the dbx builder so the filter and the write are one
// UPDATE statement.
type PocketBaseStore struct {
	app core.App
}

func NewPocketBaseStore(app core.App) *PocketBaseStore {
	return &PocketBaseStore{app: app}
}

func (s *PocketBaseStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	col, err := s.app.FindCachedCollectionByNameOrId(collection)
	if err != nil {
		return "", fmt.Errorf("collection %s: %w", collection, err)
	}

	record := core.NewRecord(col)
	record.Load(doc)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return "", err
	}
	return record.Id, nil
}

func (s *PocketBaseStore) FindByID(ctx context.Context, collection, id string) (Document, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	record := &core.Record{}
	err := s.app.RecordQuery(collection).
		WithContext(ctx).
		AndWhere(dbx.HashExp{"id": id}).
		Limit(1).
		One(record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return Document(record.FieldsData()), nil
}

func (s *PocketBaseStore) Find(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	query := s.app.RecordQuery(collection).WithContext(ctx).OrderBy("created DESC")
	if len(filter) > 0 {
		query = query.AndWhere(dbx.HashExp(filter))
	}

	records := []*core.Record{}
	if err := query.All(&records); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, Document(r.FieldsData()))
	}
	return docs, nil
}

func (s *PocketBaseStore) Update(ctx context.Context, collection string, filter Filter, set Document) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.New("store: refusing unfiltered update")
	}

	params := dbx.Params{}
	maps.Copy(params, set)
	params["updated"] = types.NowDateTime().String()

	res, err := s.app.DB().
		Update(collection, params, dbx.HashExp(filter)).
		WithContext(ctx).
		Execute()
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PocketBaseStore) Delete(ctx context.Context, collection string, filter Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.New("store: refusing unfiltered delete")
	}

	var deleted int64
	err := s.app.RunInTransaction(func(txApp core.App) error {
		records := []*core.Record{}
		if err := txApp.RecordQuery(collection).
			WithContext(ctx).
			AndWhere(dbx.HashExp(filter)).
			All(&records); err != nil {
			return err
		}

		for _, r := range records {
			if err := txApp.DeleteWithContext(ctx, r); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})

	return deleted, err
}
