package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/grouptable/grouptable-api/internal/models"
	appErrors "github.com/grouptable/grouptable-api/pkg/errors"
	"github.com/grouptable/grouptable-api/pkg/export"
	"github.com/grouptable/grouptable-api/pkg/groupcode"
)

type leaderboardGradeReader interface {
	StudentTotals(ctx context.Context, moduleID int64) ([]models.StudentTotal, error)
}

type leaderboardGroupReader interface {
	FindByCode(ctx context.Context, code string) (*models.Group, error)
}

type leaderboardModuleReader interface {
	FindOwned(ctx context.Context, id, teacherID int64) (*models.Module, error)
	FindInGroup(ctx context.Context, id, groupID int64) (*models.Module, error)
	LatestIDInGroup(ctx context.Context, groupID int64) (int64, error)
}

// ExportFormat selects the leaderboard download encoding.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportResult carries rendered leaderboard bytes plus the metadata a
// handler needs for the download headers.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// LeaderboardService computes module standings. Public reads by group
// code are served through a short-lived Redis cache when one is
// configured; teacher reads always hit the database.
type LeaderboardService struct {
	grades   leaderboardGradeReader
	groups   leaderboardGroupReader
	modules  leaderboardModuleReader
	redis    *redis.Client
	cacheTTL time.Duration
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewLeaderboardService constructs a LeaderboardService. The redis
// client may be nil, disabling the public cache; metrics may be nil.
func NewLeaderboardService(
	grades leaderboardGradeReader,
	groups leaderboardGroupReader,
	modules leaderboardModuleReader,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	metrics *MetricsService,
	logger *zap.Logger,
) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{
		grades:   grades,
		groups:   groups,
		modules:  modules,
		redis:    redisClient,
		cacheTTL: cacheTTL,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		metrics:  metrics,
		logger:   logger,
	}
}

// Rank assigns standard competition positions to totals already sorted
// by points descending: equal totals share a position and the next
// distinct total takes its 1-based index (1,2,2,4).
func Rank(totals []models.StudentTotal) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(totals))
	for i, total := range totals {
		position := i + 1
		if i > 0 && total.TotalPoints == totals[i-1].TotalPoints {
			position = entries[i-1].Position
		}
		entries = append(entries, models.LeaderboardEntry{
			StudentID:   total.StudentID,
			Name:        total.FullName,
			TotalPoints: total.TotalPoints,
			Position:    position,
		})
	}
	return entries
}

// ForTeacher returns the standings of an owned module.
func (s *LeaderboardService) ForTeacher(ctx context.Context, teacherID, moduleID int64) ([]models.LeaderboardEntry, error) {
	if _, err := s.modules.FindOwned(ctx, moduleID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	start := time.Now()
	entries, err := s.compute(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveLeaderboardBuild("teacher", time.Since(start))
	return entries, nil
}

// ForPublic returns the standings of the group's most recent module,
// looked up by join code without authentication. Served from cache
// when available.
func (s *LeaderboardService) ForPublic(ctx context.Context, code string) ([]models.LeaderboardEntry, error) {
	group, err := s.groupByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	moduleID, err := s.modules.LatestIDInGroup(ctx, group.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve module")
	}
	if moduleID == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	return s.cachedCompute(ctx, moduleID)
}

// ForPublicModule returns the standings of one of the group's modules,
// looked up by join code. A module outside the group is NotFound.
func (s *LeaderboardService) ForPublicModule(ctx context.Context, code string, moduleID int64) ([]models.LeaderboardEntry, error) {
	group, err := s.groupByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if _, err := s.modules.FindInGroup(ctx, moduleID, group.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}

	return s.cachedCompute(ctx, moduleID)
}

// Export renders an owned module's standings as a CSV or PDF download.
func (s *LeaderboardService) Export(ctx context.Context, teacherID, moduleID int64, format ExportFormat) (*ExportResult, error) {
	module, err := s.modules.FindOwned(ctx, moduleID, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	return s.renderExport(ctx, module, format)
}

// ExportPublic renders the standings of the group's most recent module
// as a download, looked up by join code. A group without modules is
// NotFound since there is nothing to render.
func (s *LeaderboardService) ExportPublic(ctx context.Context, code string, format ExportFormat) (*ExportResult, error) {
	group, err := s.groupByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	moduleID, err := s.modules.LatestIDInGroup(ctx, group.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve module")
	}
	if moduleID == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group has no modules")
	}

	module, err := s.modules.FindInGroup(ctx, moduleID, group.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module")
	}
	return s.renderExport(ctx, module, format)
}

func (s *LeaderboardService) renderExport(ctx context.Context, module *models.Module, format ExportFormat) (*ExportResult, error) {
	entries, err := s.compute(ctx, module.ID)
	if err != nil {
		return nil, err
	}

	table := export.Table{Columns: []string{"Position", "Student", "Total Points"}}
	for _, entry := range entries {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(entry.Position),
			entry.Name,
			strconv.Itoa(entry.TotalPoints),
		})
	}

	switch format {
	case ExportCSV:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("leaderboard-%d.csv", module.ID),
		}, nil
	case ExportPDF:
		content, err := s.pdf.Render(table, fmt.Sprintf("Leaderboard - %s", module.Name))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("leaderboard-%d.pdf", module.ID),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown export format")
	}
}

// Invalidate drops the cached standings for a module. Safe to call
// when no cache is configured.
func (s *LeaderboardService) Invalidate(ctx context.Context, moduleID int64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(moduleID)).Err(); err != nil {
		s.logger.Warn("failed to invalidate leaderboard cache",
			zap.Int64("module_id", moduleID), zap.Error(err))
	}
}

func (s *LeaderboardService) groupByCode(ctx context.Context, code string) (*models.Group, error) {
	group, err := s.groups.FindByCode(ctx, groupcode.Normalize(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}

func (s *LeaderboardService) cachedCompute(ctx context.Context, moduleID int64) ([]models.LeaderboardEntry, error) {
	if cached, ok := s.fromCache(ctx, moduleID); ok {
		s.metrics.RecordCacheLookup(true)
		return cached, nil
	}
	s.metrics.RecordCacheLookup(false)

	start := time.Now()
	entries, err := s.compute(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveLeaderboardBuild("public", time.Since(start))
	s.toCache(ctx, moduleID, entries)
	return entries, nil
}

func (s *LeaderboardService) compute(ctx context.Context, moduleID int64) ([]models.LeaderboardEntry, error) {
	totals, err := s.grades.StudentTotals(ctx, moduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute leaderboard")
	}
	return Rank(totals), nil
}

func (s *LeaderboardService) fromCache(ctx context.Context, moduleID int64) ([]models.LeaderboardEntry, bool) {
	if s.redis == nil {
		return nil, false
	}
	payload, err := s.redis.Get(ctx, cacheKey(moduleID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("leaderboard cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (s *LeaderboardService) toCache(ctx context.Context, moduleID int64, entries []models.LeaderboardEntry) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(moduleID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("leaderboard cache write failed", zap.Error(err))
	}
}

func cacheKey(moduleID int64) string {
	return fmt.Sprintf("leaderboard:module:%d", moduleID)
}
