/*
seed.go - Demo data loaders for development and demonstrations

PURPOSE:
  Populates an empty database so the approval queue shows real names right
  away. Two loaders exist:

    users:     Five demo users (user1..user5)
    vacations: A handful of requests in different statuses for those users

HOW SEEDING WORKS:
  1. Count existing users; a non-empty directory is left untouched
  2. Save each demo user
  3. Optionally submit demo requests and walk them through the lifecycle
     with the regular service, so seeded data obeys the same rules

NOTE:
  Seeding never deletes anything. Restarting against a populated database is
  a no-op.

SEE ALSO:
  - cmd/server/main.go: -seed-users flag
*/
package api

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/vacation-tracker/calendar"
	"github.com/warp/vacation-tracker/vacation"
)

// DemoUsers is the directory seeded into an empty database.
var DemoUsers = []vacation.User{
	{ID: "user1", Name: "John Doe"},
	{ID: "user2", Name: "Jane Smith"},
	{ID: "user3", Name: "Bob Johnson"},
	{ID: "user4", Name: "Alice Wilson"},
	{ID: "user5", Name: "Charlie Brown"},
}

// SeedUsers saves DemoUsers when the directory is empty. It returns the number
// of users written.
func SeedUsers(ctx context.Context, users vacation.UserStore, logger *zap.Logger) (int, error) {
	n, err := users.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	if n > 0 {
		logger.Debug("user directory not empty, skipping seed", zap.Int("existing", n))
		return 0, nil
	}

	for _, u := range DemoUsers {
		if err := users.SaveUser(ctx, u); err != nil {
			return 0, fmt.Errorf("failed to seed user %s: %w", u.ID, err)
		}
	}
	logger.Info("seeded demo users", zap.Int("count", len(DemoUsers)))
	return len(DemoUsers), nil
}

// SeedVacations submits demo requests relative to today when the store holds
// no vacations yet. Every status except DELETED is represented.
func SeedVacations(ctx context.Context, store vacation.Store, svc *vacation.Service, today calendar.Date, logger *zap.Logger) error {
	existing, err := store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list vacations: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	monday := today.AddDays(7 - (int(today.Weekday())+6)%7)
	assignee := "user3"

	type demo struct {
		employee string
		from, to int // days after next Monday
		assignee *string
		steps    []func(vacation.ID) error
	}
	approve := func(id vacation.ID) error { _, err := svc.Approve(ctx, id); return err }
	reject := func(id vacation.ID) error { _, err := svc.Reject(ctx, id); return err }
	requestDeletion := func(owner string) func(vacation.ID) error {
		return func(id vacation.ID) error {
			_, err := svc.RequestDeletion(ctx, id, "plans changed", owner)
			return err
		}
	}
	rejectDeletion := func(id vacation.ID) error { _, err := svc.RejectDeletion(ctx, id); return err }

	demos := []demo{
		{employee: "user1", from: 0, to: 4, assignee: &assignee},
		{employee: "user2", from: 7, to: 8, steps: []func(vacation.ID) error{approve}},
		{employee: "user4", from: 14, to: 14, steps: []func(vacation.ID) error{reject}},
		{employee: "user5", from: 21, to: 25, steps: []func(vacation.ID) error{approve, requestDeletion("user5")}},
		{employee: "user2", from: 35, to: 37, steps: []func(vacation.ID) error{approve, requestDeletion("user2"), rejectDeletion}},
	}

	start := time.Now()
	for _, d := range demos {
		v, err := svc.Create(ctx, d.employee, monday.AddDays(d.from), monday.AddDays(d.to), d.assignee)
		if err != nil {
			return fmt.Errorf("failed to seed vacation for %s: %w", d.employee, err)
		}
		for _, step := range d.steps {
			if err := step(v.ID); err != nil {
				return fmt.Errorf("failed to seed vacation %d: %w", v.ID, err)
			}
		}
	}
	logger.Info("seeded demo vacations",
		zap.Int("count", len(demos)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
