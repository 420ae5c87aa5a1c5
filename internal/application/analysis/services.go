// Package analysis implements the upload and history use cases.
package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/anish1206/green-tech/internal/application/csvparse"
	"github.com/anish1206/green-tech/internal/application/scoring"
	domain "github.com/anish1206/green-tech/internal/domain/analysis"
	"github.com/anish1206/green-tech/internal/domain/identity"
)

// Enricher produces the batch summary and per-row suggestions.
type Enricher interface {
	Enrich(ctx context.Context, rows []domain.ScoredRow) (string, []domain.ScoredRow, error)
}

// Observer receives pipeline outcomes (metrics).
type Observer interface {
	AnalysisSubmitted(items int)
	AnalysisFailed(stage string)
}

// Service implements use-cases for Analysis.
// Service is safe for concurrent use as long as its collaborators are.
type Service struct {
	Repo     domain.Repository
	Enricher Enricher
	Parser   csvparse.Normalizer
	// Archive is optional; nil disables raw upload archiving.
	Archive  domain.ArchiveStore
	Observer Observer
	Log      *zap.Logger
}

//
// ==== USE CASES ====
//

// SubmitAnalysis runs parse -> score -> enrich -> aggregate -> persist for one upload.
// Nothing is persisted unless every stage succeeds.
func (s *Service) SubmitAnalysis(ctx context.Context, caller *identity.Identity, file []byte, fileName string) (*domain.Analysis, error) {
	if !caller.Verified() {
		return nil, domain.NewStageError(domain.StageAuth, domain.ErrUnauthorized, "unauthorized", nil)
	}
	log := s.logger().With(zap.String("owner", caller.Subject), zap.String("file_name", fileName))

	if len(file) == 0 {
		return nil, domain.NewStageError(domain.StageValidate, domain.ErrBadRequest, "no file uploaded", nil)
	}

	rows, err := s.Parser.Parse(file)
	if err != nil {
		log.Warn("csv parse failed", zap.Error(err))
		return nil, s.fail(domain.NewStageError(domain.StageParse, domain.ErrCSVParse, "failed to parse CSV file", err))
	}

	scored := scoring.ScoreRows(rows)

	summary, enriched, err := s.Enricher.Enrich(ctx, scored)
	if err != nil {
		log.Error("enrichment failed", zap.Int("rows", len(scored)), zap.Error(err))
		return nil, s.fail(domain.NewStageError(domain.StageEnrich, domain.ErrEnrichment, "failed to generate AI insights", err))
	}

	result := Aggregate(fileName, enriched, summary)
	result.OwnerID = caller.Subject

	if err := s.Repo.Insert(ctx, result); err != nil {
		log.Error("persist analysis failed", zap.Error(err))
		return nil, s.fail(domain.NewStageError(domain.StagePersist, domain.ErrStorage, "failed to save analysis", err))
	}

	s.archive(ctx, log, result, file)

	if s.Observer != nil {
		s.Observer.AnalysisSubmitted(len(result.Items))
	}
	log.Info("analysis stored",
		zap.String("id", string(result.ID)),
		zap.Int("items", len(result.Items)),
		zap.Int("average_score", result.AverageScore))
	return result, nil
}

// ListHistory returns the caller's analyses, newest first.
func (s *Service) ListHistory(ctx context.Context, caller *identity.Identity) ([]*domain.Analysis, error) {
	if !caller.Verified() {
		return nil, domain.NewStageError(domain.StageAuth, domain.ErrUnauthorized, "unauthorized", nil)
	}
	list, err := s.Repo.ListByOwner(ctx, caller.Subject)
	if err != nil {
		s.logger().Error("history query failed", zap.String("owner", caller.Subject), zap.Error(err))
		return nil, s.fail(domain.NewStageError(domain.StageHistory, domain.ErrStorage, "failed to load history", err))
	}
	if list == nil {
		list = []*domain.Analysis{}
	}
	return list, nil
}

// archive simpan file CSV asli; gagal di sini tidak menggagalkan upload.
func (s *Service) archive(ctx context.Context, log *zap.Logger, a *domain.Analysis, file []byte) {
	if s.Archive == nil {
		return
	}
	key := ArchiveKey(a.OwnerID, a.ID)
	if err := s.Archive.Put(ctx, key, file, "text/csv"); err != nil {
		log.Warn("archive upload failed", zap.String("key", key), zap.Error(err))
	}
}

// ArchiveKey is the object key of an analysis's raw upload.
func ArchiveKey(owner string, id domain.AnalysisID) string {
	return fmt.Sprintf("%s/%s.csv", owner, id)
}

func (s *Service) fail(err *domain.StageError) error {
	if s.Observer != nil {
		s.Observer.AnalysisFailed(err.Stage)
	}
	return err
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
