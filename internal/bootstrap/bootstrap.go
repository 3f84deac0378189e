package bootstrap

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	reviewinadapter "komekome/internal/modules/review/adapter/in"
	reviewoutadapter "komekome/internal/modules/review/adapter/out"
	reviewdomain "komekome/internal/modules/review/domain"
	reviewservice "komekome/internal/modules/review/service"
	reviewusecase "komekome/internal/modules/review/usecase"
	statsinadapter "komekome/internal/modules/stats/adapter/in"
	statsoutadapter "komekome/internal/modules/stats/adapter/out"
	statsservice "komekome/internal/modules/stats/service"
	statsusecase "komekome/internal/modules/stats/usecase"
	syncinadapter "komekome/internal/modules/sync/adapter/in"
	syncoutadapter "komekome/internal/modules/sync/adapter/out"
	syncservice "komekome/internal/modules/sync/service"
	syncusecase "komekome/internal/modules/sync/usecase"
	"komekome/internal/platform/clock"
	"komekome/internal/platform/config"
	"komekome/internal/platform/id"
	"komekome/internal/platform/logging"
	uiapp "komekome/internal/ui/app"
)

type App struct {
	ReviewCLI reviewinadapter.CLIHandler
	SyncCLI   syncinadapter.CLIHandler
	StatsCLI  statsinadapter.CLIHandler

	closers []func() error
}

func New(cfg config.Config) (*App, error) {
	logging.Init(cfg.LogLevel)

	clk := clock.SystemClock{}

	itemStore := reviewoutadapter.NewFileItemStore(cfg.DataDir)
	attemptLog := reviewoutadapter.NewFileAttemptLog(cfg.DataDir)
	activeStore := reviewoutadapter.NewFileActiveSessionStore(cfg.DataDir)

	policy := reviewdomain.Policy{
		SpacingDays:         cfg.Review.SpacingDays,
		SessionMistakeLimit: cfg.Review.SessionMistakeLimit,
		ReinsertOffset:      cfg.Review.ReinsertOffset,
	}
	reviewSvc := reviewservice.NewReviewService(clk, id.RandomHex{}, id.AttemptID{}, itemStore, attemptLog, policy)
	reviewUC := reviewusecase.NewInteractor(reviewSvc, itemStore, attemptLog, activeStore)

	remote := syncoutadapter.NewHTTPRemoteStore(
		cfg.Remote.BaseURL,
		cfg.Remote.Token,
		time.Duration(cfg.Remote.TimeoutSeconds)*time.Second,
	)
	syncSvc := syncservice.NewSyncService(
		clk,
		remote,
		syncoutadapter.NewFilePendingQueueStore(cfg.DataDir),
		syncoutadapter.NewFileContentCacheStore(cfg.DataDir),
	)
	syncUC := syncusecase.NewInteractor(syncSvc, reviewUC)

	attemptIndex, err := statsoutadapter.NewSQLiteAttemptIndex(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("new attempt index: %w", err)
	}
	statsSvc := statsservice.NewStatsService(clk, attemptIndex)
	statsUC := statsusecase.NewInteractor(statsSvc, reviewUC)

	return &App{
		ReviewCLI: reviewinadapter.NewCLIHandler(reviewUC),
		SyncCLI:   syncinadapter.NewCLIHandler(syncUC),
		StatsCLI:  statsinadapter.NewCLIHandler(statsUC),
		closers:   []func() error{attemptIndex.Close},
	}, nil
}

func (a *App) Close() error {
	var first error
	for _, close := range a.closers {
		if err := close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func RunTUI(dataDir string, app *App) error {
	model := uiapp.NewModel(dataDir, app.ReviewCLI, app.SyncCLI, app.StatsCLI)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
