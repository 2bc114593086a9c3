package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"animehub/internal/cache"
)

// Reconciler periodically repairs the denormalized anime columns
// (cached rating and episodes_count) against their source tables. The
// write paths keep these consistent transactionally; the job exists to
// heal drift from manual data edits or restored backups.
type Reconciler struct {
	DB    *sql.DB
	Cache *cache.Cache

	cron *cron.Cron
}

func NewReconciler(db *sql.DB, c *cache.Cache) *Reconciler {
	return &Reconciler{DB: db, Cache: c}
}

// Start schedules the reconcile run every 15 minutes. Call Stop on
// shutdown.
func (r *Reconciler) Start() error {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc("@every 15m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := r.Run(ctx); err != nil {
			log.Printf("reconcile run: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reconcile: %w", err)
	}
	r.cron.Start()
	return nil
}

func (r *Reconciler) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// Run performs one reconcile pass.
func (r *Reconciler) Run(ctx context.Context) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE animes
		SET rating = (SELECT ROUND(COALESCE(AVG(score), 0), 1) FROM ratings WHERE anime_id = animes.id)
		WHERE rating <> (SELECT ROUND(COALESCE(AVG(score), 0), 1) FROM ratings WHERE anime_id = animes.id)
	`)
	if err != nil {
		return fmt.Errorf("reconcile ratings: %w", err)
	}
	ratingFixes, _ := res.RowsAffected()

	res, err = r.DB.ExecContext(ctx, `
		UPDATE animes
		SET episodes_count = (SELECT COUNT(*) FROM episodes WHERE anime_id = animes.id)
		WHERE episodes_count <> (SELECT COUNT(*) FROM episodes WHERE anime_id = animes.id)
	`)
	if err != nil {
		return fmt.Errorf("reconcile episode counts: %w", err)
	}
	countFixes, _ := res.RowsAffected()

	if ratingFixes > 0 || countFixes > 0 {
		log.Printf("reconcile: repaired %d ratings, %d episode counts", ratingFixes, countFixes)
		r.Cache.Invalidate(ctx, "anime:popular", "anime:latest")
	}
	return nil
}
