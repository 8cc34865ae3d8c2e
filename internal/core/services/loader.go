package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"telegram-chat-stats/internal/core/chat"
	"telegram-chat-stats/internal/core/chats"
	"telegram-chat-stats/internal/ports"
)

// LoaderOption — функциональная опция для настройки Loader.
type LoaderOption func(*Loader)

// WithWorkers ограничивает число одновременно загружаемых файлов.
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger устанавливает логгер для сервиса.
func WithLogger(log *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// Loader параллельно читает и разбирает экспорты чатов и собирает из них коллекцию.
// Сервис не хранит состояние между вызовами и безопасен для одновременного использования.
type Loader struct {
	parser  ports.Parser
	workers int
	log     *slog.Logger
}

// NewLoader создает новый Loader. По умолчанию число воркеров равно GOMAXPROCS.
func NewLoader(parser ports.Parser, opts ...LoaderOption) *Loader {
	l := &Loader{
		parser:  parser,
		workers: runtime.GOMAXPROCS(0),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load загружает все источники. Каждый источник обрабатывается в своей горутине
// и пишет результат в свою ячейку; коллекция собирается только после завершения всех.
// Первая ошибка отменяет остальные загрузки и возвращается вызывающему.
func (l *Loader) Load(ctx context.Context, sources []ports.DataSource) (*chats.Chats, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("не переданы файлы экспорта")
	}

	l.log.InfoContext(ctx, "Starting chat loading", "files", len(sources), "workers", l.workers)

	loaded := make([]*chat.Chat, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := l.loadOne(gctx, src)
			if err != nil {
				return err
			}
			loaded[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		l.log.ErrorContext(ctx, "Chat loading failed", "error", err)
		return nil, err
	}

	collection, err := chats.New(loaded...)
	if err != nil {
		return nil, fmt.Errorf("не удалось собрать коллекцию чатов: %w", err)
	}

	l.log.InfoContext(ctx, "Chat loading finished", "chats", collection.Len(), "self", collection.Self)
	return collection, nil
}

func (l *Loader) loadOne(ctx context.Context, src ports.DataSource) (*chat.Chat, error) {
	id := src.ID()
	l.log.DebugContext(ctx, "Loading chat", "chat_id", id)

	data, err := src.Fetch()
	if err != nil {
		return nil, fmt.Errorf("не удалось извлечь данные чата %s: %w", id, err)
	}

	exported, err := l.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("не удалось разобрать данные чата %s: %w", id, err)
	}

	c, err := chat.New(id, exported, chat.WithLogger(l.log))
	if err != nil {
		return nil, err
	}

	l.log.InfoContext(ctx, "Chat loaded", "chat_id", id, "message_count", c.Len(), "dangling_replies", c.DanglingReplies())
	return c, nil
}
