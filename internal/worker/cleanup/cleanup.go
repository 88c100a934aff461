// Package cleanup は期限切れの認証データを定期的に削除するジョブを提供する。
// 対象はセッションと検証トークン。どちらも期限切れの行は読み取り時に無効として扱われるため、
// このジョブはテーブルの肥大化を防ぐためだけに動く。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/retainerkit/internal/metrics"
)

// ExpiredDeleter は期限切れ行の一括削除インターフェース。
// repository.SessionRepositoryとrepository.VerificationTokenRepositoryが満たす。
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Target は削除対象の種別と削除処理の組。
type Target struct {
	Kind    string
	Deleter ExpiredDeleter
}

// CleanupJob は期限切れのセッション・検証トークンの削除ジョブ。
// 冪等: 削除対象がない場合でもエラーにならない。
type CleanupJob struct {
	targets []Target
	logger  *slog.Logger
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(sessions, tokens ExpiredDeleter, logger *slog.Logger, collector metrics.MetricsCollector) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		targets: []Target{
			{Kind: "sessions", Deleter: sessions},
			{Kind: "verification_tokens", Deleter: tokens},
		},
		logger:  logger,
		metrics: metrics.OrNop(collector),
		now:     time.Now,
	}
}

// Run はすべての対象から期限切れ行を削除する。
// 1つの対象で失敗しても残りの対象は処理し、エラーをまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.now()

	var errs []error
	var total int64
	for _, target := range j.targets {
		deleted, err := target.Deleter.DeleteExpired(ctx, cutoff)
		if err != nil {
			j.logger.Error("期限切れデータの削除に失敗しました",
				slog.String("kind", target.Kind),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%sの削除に失敗: %w", target.Kind, err))
			continue
		}
		j.metrics.RecordCleanup(target.Kind, deleted)
		total += deleted
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", total),
		slog.Int("failed_targets", len(errs)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return errors.Join(errs...)
}

// Start は指定間隔でRunを繰り返す。起動直後に1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました", slog.Duration("interval", interval))

	// エラーはRun内でログ済み
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
