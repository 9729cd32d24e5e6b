// Package dashboard assembles the per-role dashboards from concurrent backend
// fetches. Sections fail independently: a failed fetch leaves its section
// with an Error and the rest of the dashboard still renders. Only a blocked
// account or a rejected token fails the whole build.
package dashboard

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/stats"
	"github.com/diewo77/go-bloodbank/internal/workflow"
)

// RecentDonationRequests caps the donor's request list.
const RecentDonationRequests = 6

// maxConcurrentFetches bounds the goroutines of one build.
const maxConcurrentFetches = 6

// Section is one independently fetched part of a dashboard.
type Section[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the section loaded.
func (s Section[T]) OK() bool { return s.Error == "" }

// Dashboard is the payload of GET /dashboard and of every live push.
// Exactly one of the role fields is set.
type Dashboard struct {
	Role         models.Role            `json:"role"`
	AccountID    string                 `json:"accountId"`
	Name         string                 `json:"name"`
	GeneratedAt  time.Time              `json:"generatedAt"`
	Donor        *DonorDashboard        `json:"donor,omitempty"`
	Hospital     *HospitalDashboard     `json:"hospital,omitempty"`
	Organisation *OrganisationDashboard `json:"organisation,omitempty"`
	Admin        *AdminDashboard        `json:"admin,omitempty"`
}

// ThresholdSource provides per-organisation low-stock thresholds.
type ThresholdSource interface {
	For(ctx context.Context, organisationID string) (stats.Thresholds, error)
}

// Builder builds dashboards. Every field is optional.
type Builder struct {
	Thresholds ThresholdSource
	Broadcasts *workflow.BroadcastGuard
	Now        func() time.Time
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Build fetches and derives the dashboard of account.
func (b *Builder) Build(ctx context.Context, api Backend, account models.Account) (*Dashboard, error) {
	p := account.AccountProfile()
	d := &Dashboard{
		Role:        models.RoleOf(account),
		AccountID:   p.ID,
		Name:        models.DisplayName(account),
		GeneratedAt: b.now(),
	}
	run := &runner{}
	run.g, run.gctx = errgroup.WithContext(ctx)
	run.g.SetLimit(maxConcurrentFetches)

	finish := models.Match(account, models.AccountCases[func()]{
		Donor:        func(a *models.Donor) func() { return b.donor(run, api, a, d) },
		Hospital:     func(a *models.Hospital) func() { return b.hospital(run, api, a, d) },
		Organisation: func(a *models.Organisation) func() { return b.organisation(run, api, a, d) },
		Admin:        func(a *models.Admin) func() { return b.admin(run, api, d) },
	})
	_ = run.g.Wait()
	if err := run.fatalErr(); err != nil {
		return nil, err
	}
	finish()
	return d, nil
}

// runner joins the fetches of one build and remembers the first error that
// must end the session.
type runner struct {
	g    *errgroup.Group
	gctx context.Context

	mu    sync.Mutex
	fatal error
}

func (r *runner) fatalErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}

func isFatal(err error) bool {
	return errors.Is(err, backend.ErrAccountBlocked) || errors.Is(err, backend.ErrUnauthorized)
}

// fetch loads one section. Returning an error from the errgroup func only
// for fatal errors cancels sibling fetches of a dead session.
func fetch[T any](r *runner, sec *Section[T], f func(ctx context.Context) (T, error)) {
	r.g.Go(func() error {
		v, err := f(r.gctx)
		if err != nil {
			sec.Error = backend.UserMessage(err)
			if isFatal(err) {
				r.mu.Lock()
				if r.fatal == nil {
					r.fatal = err
				}
				r.mu.Unlock()
				return err
			}
			return nil
		}
		sec.Data = v
		return nil
	})
}

// newestFirst orders by the first valid timestamp of each item.
func newestFirst[T any](items []T, at func(T) models.Timestamp) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := at(items[i]), at(items[j])
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.Time.After(b.Time)
	})
}
