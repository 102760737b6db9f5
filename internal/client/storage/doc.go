// Package storage opens the local SQLite database that holds the client's
// durable entries, applies the embedded goose migrations, and offers a small
// transaction helper shared by repositories.
//
// Both *sql.DB and *sql.Tx satisfy DBTX, so repositories can be bound to
// either one:
//
//	err := storage.WithTx(ctx, db, func(ctx context.Context, tx storage.DBTX) error {
//	    return metadata.NewSQLiteRepository(tx).Set(ctx, "k", v)
//	})
package storage
