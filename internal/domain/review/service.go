package review

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"kpireview/internal/domain/kpi"
	"kpireview/internal/domain/period"
	"kpireview/internal/domain/staff"
	"kpireview/internal/platform/filestore"
)

type StaffLookup interface {
	GetApproved(ctx context.Context, profileID string) (staff.Profile, error)
}

type KPILookup interface {
	Get(ctx context.Context, kpiID string) (kpi.KPI, error)
}

type Service struct {
	Store        StoreAPI
	Staff        StaffLookup
	KPIs         KPILookup
	Files        filestore.Store
	MaxFileBytes int64
	Now          func() time.Time
	// Location fixes period boundaries for UpdateReview; nil keeps the
	// stored timestamp's own zone.
	Location     *time.Location
}

func NewService(store StoreAPI, staffLookup StaffLookup, kpis KPILookup, files filestore.Store, maxFileBytes int64) *Service {
	return &Service{
		Store:        store,
		Staff:        staffLookup,
		KPIs:         kpis,
		Files:        files,
		MaxFileBytes: maxFileBytes,
		Now:          time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// ReplaceReview leaves exactly one item for (staff, KPI, period): prior items
// are deleted and the new one inserted in the same transaction.
func (s *Service) ReplaceReview(ctx context.Context, staffID, kpiID string, p period.Period, sub Submission) (Item, error) {
	now := s.now()
	if sub.ReviewedAt.IsZero() {
		sub.ReviewedAt = now
		if !p.Contains(now) {
			sub.ReviewedAt = p.Start
		}
	}
	content, err := Validate(sub, &p, now, s.MaxFileBytes)
	if err != nil {
		return Item{}, err
	}

	if _, err := s.eligibleStaff(ctx, staffID); err != nil {
		return Item{}, err
	}
	k, err := s.KPIs.Get(ctx, kpiID)
	if errors.Is(err, kpi.ErrNotFound) || (err == nil && k.Removed) {
		return Item{}, ErrKPINotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("load kpi: %w", err)
	}

	item := build(sub, k.Weight)
	item.ID = uuid.NewString()
	item.StaffID = staffID
	item.KPIID = kpiID

	uploaded, err := s.upload(ctx, staffID, kpiID, sub.File, content)
	if err != nil {
		return Item{}, err
	}
	item.FileURL = uploaded

	var (
		inserted   Item
		superseded []string
	)
	err = s.Store.Reconcile(ctx, staffID, kpiID, func(tx Tx) error {
		urls, err := tx.DeleteInPeriod(ctx, staffID, kpiID, p)
		if err != nil {
			return fmt.Errorf("delete prior reviews: %w", err)
		}
		if item.FileURL == "" {
			for _, u := range urls {
				if u != "" {
					item.FileURL = u
					break
				}
			}
		}
		inserted, err = tx.Insert(ctx, item)
		if err != nil {
			return fmt.Errorf("insert review: %w", err)
		}
		superseded = urls
		return nil
	})
	if err != nil {
		s.discard(ctx, uploaded)
		return Item{}, err
	}
	for _, u := range dedupe(superseded) {
		if u != inserted.FileURL {
			s.discard(ctx, u)
		}
	}
	return inserted, nil
}

// UpdateReview edits an existing item in place and keeps its id. The item
// cannot leave its month or week; ReplaceReview owns moves between periods.
func (s *Service) UpdateReview(ctx context.Context, id string, sub Submission) (Item, error) {
	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if sub.ReviewedAt.IsZero() {
		sub.ReviewedAt = current.ReviewedAt
	}
	from := current.ReviewedAt
	if s.Location != nil {
		from = from.In(s.Location)
	}
	if err := checkMove(from, sub.ReviewedAt); err != nil {
		return Item{}, err
	}
	content, err := Validate(sub, nil, s.now(), s.MaxFileBytes)
	if err != nil {
		return Item{}, err
	}
	if _, err := s.eligibleStaff(ctx, current.StaffID); err != nil {
		return Item{}, err
	}

	weight := current.KPIWeight
	k, err := s.KPIs.Get(ctx, current.KPIID)
	switch {
	case err == nil:
		weight = k.Weight
	case !errors.Is(err, kpi.ErrNotFound):
		return Item{}, fmt.Errorf("load kpi: %w", err)
	}

	next := build(sub, weight)
	next.ID = current.ID
	next.StaffID = current.StaffID
	next.KPIID = current.KPIID
	next.FileURL = current.FileURL
	if next.DirectorID == "" {
		next.DirectorID = current.DirectorID
	}

	uploaded, err := s.upload(ctx, current.StaffID, current.KPIID, sub.File, content)
	if err != nil {
		return Item{}, err
	}
	if uploaded != "" {
		next.FileURL = uploaded
	}

	updated, err := s.Store.Update(ctx, next)
	if err != nil {
		s.discard(ctx, uploaded)
		return Item{}, err
	}
	if uploaded != "" && current.FileURL != "" && current.FileURL != uploaded {
		s.discard(ctx, current.FileURL)
	}
	return updated, nil
}

func (s *Service) DeleteReview(ctx context.Context, id string) (Item, error) {
	removed, err := s.Store.Delete(ctx, id)
	if err != nil {
		return Item{}, err
	}
	s.discard(ctx, removed.FileURL)
	return removed, nil
}

func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Item, error) {
	return s.Store.List(ctx, filter)
}

// ListAll feeds the entity store.
func (s *Service) ListAll(ctx context.Context) ([]Item, error) {
	return s.Store.List(ctx, Filter{})
}

func (s *Service) eligibleStaff(ctx context.Context, staffID string) (staff.Profile, error) {
	p, err := s.Staff.GetApproved(ctx, staffID)
	if errors.Is(err, staff.ErrNotFound) || (err == nil && !p.Eligible()) {
		return staff.Profile{}, ErrStaffNotFound
	}
	if err != nil {
		return staff.Profile{}, fmt.Errorf("load staff: %w", err)
	}
	return p, nil
}

func (s *Service) upload(ctx context.Context, staffID, kpiID string, file *Attachment, content filestore.Content) (string, error) {
	if file == nil {
		return "", nil
	}
	if s.Files == nil {
		return "", fmt.Errorf("file storage not configured")
	}
	key := fmt.Sprintf("reviews/%s/%s/%s%s", staffID, kpiID, uuid.NewString(), content.Extension)
	url, err := s.Files.Upload(ctx, key, bytes.NewReader(file.Data), content.MIME)
	if err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return url, nil
}

// discard removes a file that is no longer referenced. Failures are logged only.
func (s *Service) discard(ctx context.Context, url string) {
	if url == "" || s.Files == nil {
		return
	}
	if err := s.Files.Delete(ctx, url); err != nil && !errors.Is(err, filestore.ErrNotFound) {
		slog.Warn("review attachment cleanup failed", "url", url, "err", err)
	}
}

func build(sub Submission, weight int) Item {
	it := Item{
		DirectorID: sub.DirectorID,
		Met:        sub.Met,
		Score:      scoreFor(sub.Met, weight),
		KPIWeight:  weight,
		ReviewedAt: sub.ReviewedAt,
	}
	if !sub.Met {
		it.Notes = strings.TrimSpace(sub.Notes)
		it.Plan = strings.TrimSpace(sub.Plan)
	}
	return it
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := urls[:0:0]
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
