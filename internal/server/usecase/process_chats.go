package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"telegram-chat-stats/internal/adapters/source"
	"telegram-chat-stats/internal/cache"
	"telegram-chat-stats/internal/core/chats"
	"telegram-chat-stats/internal/domain"
	"telegram-chat-stats/internal/pkg/config"
	"telegram-chat-stats/internal/ports"
)

// ChatLoader загружает набор экспортов в коллекцию чатов.
type ChatLoader interface {
	Load(ctx context.Context, sources []ports.DataSource) (*chats.Chats, error)
}

// ReportBuilder строит отчет по коллекции чатов.
type ReportBuilder interface {
	Build(c *chats.Chats, opts domain.ReportOptions) (*domain.Report, error)
}

// Upload — файл экспорта, полученный целиком в память.
type Upload struct {
	Name string
	Data []byte
}

// ProcessChatsUseCase инкапсулирует обработку набора файлов экспорта:
// проверку кеша, загрузку чатов и построение отчета.
type ProcessChatsUseCase struct {
	cfg        *config.Config
	loader     ChatLoader
	builder    ReportBuilder
	cacheStore *cache.CacheStore
	log        *slog.Logger
}

// NewProcessChatsUseCase создает новый экземпляр ProcessChatsUseCase.
func NewProcessChatsUseCase(
	cfg *config.Config,
	loader ChatLoader,
	builder ReportBuilder,
	cacheStore *cache.CacheStore,
	logger *slog.Logger,
) *ProcessChatsUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessChatsUseCase{
		cfg:        cfg,
		loader:     loader,
		builder:    builder,
		cacheStore: cacheStore,
		log:        logger,
	}
}

// Process обрабатывает файлы экспорта на диске.
func (uc *ProcessChatsUseCase) Process(ctx context.Context, filePaths []string) (*domain.Report, error) {
	hashes := make([]string, 0, len(filePaths))
	sources := make([]ports.DataSource, 0, len(filePaths))
	for _, filePath := range filePaths {
		fileHash, err := cache.CalculateFileHash(filePath)
		if err != nil {
			return nil, fmt.Errorf("не удалось вычислить хеш файла %s: %w", filePath, err)
		}
		hashes = append(hashes, fileHash)
		sources = append(sources, source.NewFileSource(filePath))
	}
	return uc.process(ctx, hashes, sources)
}

// ProcessUploads обрабатывает файлы, загруженные через HTTP.
func (uc *ProcessChatsUseCase) ProcessUploads(ctx context.Context, uploads []Upload) (*domain.Report, error) {
	hashes := make([]string, 0, len(uploads))
	sources := make([]ports.DataSource, 0, len(uploads))
	for _, u := range uploads {
		hashes = append(hashes, cache.CalculateHash(u.Data))
		sources = append(sources, source.NewMemorySource(source.ChatID(u.Name), u.Data))
	}
	return uc.process(ctx, hashes, sources)
}

// Options возвращает параметры отчета из конфигурации.
func (uc *ProcessChatsUseCase) Options() domain.ReportOptions {
	return domain.ReportOptions{
		GroupBy:        uc.cfg.Analysis.GroupBy,
		WaitThreshold:  uc.cfg.Analysis.WaitThreshold,
		TopReactions:   uc.cfg.Analysis.TopReactions,
		NormalizeHours: uc.cfg.Analysis.NormalizeHours,
	}
}

func (uc *ProcessChatsUseCase) process(ctx context.Context, hashes []string, sources []ports.DataSource) (*domain.Report, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("не переданы файлы экспорта")
	}

	// Единый ключ для набора файлов
	combinedHash := cache.CombineHashes(hashes)

	if cachedItem, found := uc.cacheStore.Get(combinedHash); found {
		uc.log.InfoContext(ctx, "Попадание в кеш для набора файлов", "hash", combinedHash)
		return cachedItem.Data, nil
	}

	collection, err := uc.loader.Load(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить чаты: %w", err)
	}

	report, err := uc.builder.Build(collection, uc.Options())
	if err != nil {
		return nil, fmt.Errorf("не удалось построить отчет: %w", err)
	}

	ttl := uc.cfg.Processing.CacheTTL
	uc.cacheStore.Put(combinedHash, report, ttl)
	uc.log.InfoContext(ctx, "Результат кеширован для набора файлов", "hash", combinedHash, "ttl", ttl.String())

	uc.log.InfoContext(ctx, "Обработка успешно завершена", "chats", len(report.Chats), "self", report.Self)
	return report, nil
}
