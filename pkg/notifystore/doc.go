// Package notifystore provides notifications.Storage backends for PostgreSQL,
// Redis and MongoDB.
//
// All backends order lists newest first, ignore unknown ids in MarkRead and
// Delete, scope every call to one user and report a taken id on Create as
// notifications.ErrDuplicateID.
//
// The Postgres schema ships as embedded goose migrations:
//
//	pool, _ := pg.Connect(ctx, cfg)
//	_ = pg.Migrate(ctx, pool, notifystore.Migrations, notifystore.MigrationsDir, cfg, log)
//	storage := notifystore.NewPostgres(pool)
package notifystore
