// File: internal/migration/migrate.go
package migration

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

const (
	LegacyGroupName = "Legacy Band"
	LegacyGroupCode = "legacy-band-migration"

	// MaxBatchOps is Firestore's limit on writes per batch.
	MaxBatchOps = 500
	// userBatchThreshold leaves headroom because each user costs two writes.
	userBatchThreshold = MaxBatchOps - 10
)

// Report summarizes a migration run.
type Report struct {
	LegacyGroupID   string
	UsersUpdated    int
	SetlistsUpdated int
	Errors          []string
}

// Print writes the end-of-run summary.
func (r Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Migration Complete ===")
	fmt.Fprintf(w, "Legacy Group ID: %s\n", r.LegacyGroupID)
	fmt.Fprintf(w, "Users updated: %d\n", r.UsersUpdated)
	fmt.Fprintf(w, "Setlists updated: %d\n", r.SetlistsUpdated)
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "Errors: %d\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
}

// Migrator moves users and setlists without a band into the legacy band.
type Migrator struct {
	store  Store
	logger *zap.Logger
}

func NewMigrator(store Store, logger *zap.Logger) *Migrator {
	return &Migrator{store: store, logger: logger.Named("Migration")}
}

// Run executes every step. A returned error means a step could not finish; per-record
// problems are only collected in the report.
func (m *Migrator) Run(ctx context.Context) (Report, error) {
	var report Report

	m.logger.Info("Step 1: Creating legacy group")
	groupID, err := m.EnsureLegacyGroup(ctx)
	if err != nil {
		return report, fmt.Errorf("creating legacy group: %w", err)
	}
	report.LegacyGroupID = groupID

	m.logger.Info("Step 2: Migrating users")
	count, errs, err := m.MigrateUsers(ctx, groupID)
	report.UsersUpdated = count
	report.Errors = append(report.Errors, errs...)
	if err != nil {
		return report, fmt.Errorf("migrating users: %w", err)
	}

	m.logger.Info("Step 3: Migrating setlists")
	count, errs, err = m.MigrateSetlists(ctx, groupID)
	report.SetlistsUpdated = count
	report.Errors = append(report.Errors, errs...)
	if err != nil {
		return report, fmt.Errorf("migrating setlists: %w", err)
	}
	return report, nil
}

// EnsureLegacyGroup returns the legacy band's id, creating the band on first run.
func (m *Migrator) EnsureLegacyGroup(ctx context.Context) (string, error) {
	id, found, err := m.store.FindGroupByCode(ctx, LegacyGroupCode)
	if err != nil {
		return "", err
	}
	if found {
		m.logger.Info("Legacy group already exists, using existing group", zap.String("groupId", id))
		return id, nil
	}
	id, err = m.store.CreateGroup(ctx, LegacyGroupName, LegacyGroupCode)
	if err != nil {
		return "", err
	}
	m.logger.Info("Created legacy group", zap.String("groupId", id))
	return id, nil
}

// MigrateUsers makes every user without a band an admin of groupID.
func (m *Migrator) MigrateUsers(ctx context.Context, groupID string) (int, []string, error) {
	users, err := m.store.Users(ctx)
	if err != nil {
		return 0, nil, err
	}
	m.logger.Info("Found users to migrate", zap.Int("count", len(users)))

	var (
		errs  []string
		count int
		ops   int
		batch = m.store.NewBatch()
	)
	for _, u := range users {
		if u.Err != nil {
			msg := fmt.Sprintf("Failed to migrate user %s: %v", u.ID, u.Err)
			m.logger.Error(msg)
			errs = append(errs, msg)
			continue
		}
		if len(u.Groups) > 0 {
			m.logger.Debug("Skipping user (already has groups)", zap.String("uid", u.ID))
			continue
		}
		batch.AddAdmin(groupID, u.ID)
		batch.LinkUser(u.ID, groupID)
		count++
		ops += 2

		if ops >= userBatchThreshold {
			if err := batch.Commit(ctx); err != nil {
				return count, errs, err
			}
			m.logger.Info("Committed batch", zap.Int("operations", ops))
			batch = m.store.NewBatch()
			ops = 0
		}
	}
	if ops > 0 {
		if err := batch.Commit(ctx); err != nil {
			return count, errs, err
		}
		m.logger.Info("Committed final batch", zap.Int("operations", ops))
	}
	return count, errs, nil
}

// MigrateSetlists assigns every setlist without a band to groupID.
func (m *Migrator) MigrateSetlists(ctx context.Context, groupID string) (int, []string, error) {
	setlists, err := m.store.Setlists(ctx)
	if err != nil {
		return 0, nil, err
	}
	m.logger.Info("Found setlists to migrate", zap.Int("count", len(setlists)))

	var (
		errs  []string
		count int
		ops   int
		batch = m.store.NewBatch()
	)
	for _, s := range setlists {
		if s.Err != nil {
			msg := fmt.Sprintf("Failed to migrate setlist %s: %v", s.ID, s.Err)
			m.logger.Error(msg)
			errs = append(errs, msg)
			continue
		}
		if s.GroupID != "" {
			m.logger.Debug("Skipping setlist (already has groupId)", zap.String("setlistId", s.ID))
			continue
		}
		batch.AssignSetlist(s.ID, groupID)
		count++
		ops++

		if ops >= MaxBatchOps {
			if err := batch.Commit(ctx); err != nil {
				return count, errs, err
			}
			m.logger.Info("Committed batch of setlist updates", zap.Int("operations", ops))
			batch = m.store.NewBatch()
			ops = 0
		}
	}
	if ops > 0 {
		if err := batch.Commit(ctx); err != nil {
			return count, errs, err
		}
		m.logger.Info("Committed final batch of setlist updates", zap.Int("operations", ops))
	}
	return count, errs, nil
}
