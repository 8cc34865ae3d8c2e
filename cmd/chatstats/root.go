package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"telegram-chat-stats/internal/adapters/exporter"
	"telegram-chat-stats/internal/adapters/parser"
	"telegram-chat-stats/internal/adapters/source"
	"telegram-chat-stats/internal/core/chats"
	"telegram-chat-stats/internal/core/services"
	"telegram-chat-stats/internal/domain"
	applog "telegram-chat-stats/internal/log"
	"telegram-chat-stats/internal/pkg/config"
	"telegram-chat-stats/internal/pkg/term"
	"telegram-chat-stats/internal/ports"
)

const (
	formatAuto  = ""
	formatTable = "table"
	formatJSON  = "json"
	formatXLSX  = "xlsx"
)

var errXLSXToTerminal = errors.New("xlsx нельзя выводить в терминал, укажите --output")

// flags — значения глобальных флагов. Нулевые значения не перекрывают конфигурацию.
type flags struct {
	configPath     string
	logLevel       string
	groupBy        string
	include        []string
	waitThreshold  time.Duration
	top            int
	normalizeHours bool
	workers        int
	format         string
	output         string
}

// app — общее состояние подкоманд, собирается в PersistentPreRunE.
type app struct {
	flags flags
	cfg   *config.Config
	log   *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "chatstats [command] <export.json>...",
		Short: "Статистика по экспортам личных чатов Telegram",
		Long: `chatstats читает JSON экспорты личных переписок из Telegram Desktop
и считает по ним длины сообщений, время ответа, активность по часам,
реакции и динамику переписки.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.configPath, "config", "", "путь к config.yml")
	f.StringVar(&a.flags.logLevel, "log-level", "", "уровень логирования: debug, info, warn, error")
	f.StringVar(&a.flags.groupBy, "group-by", "", "группировка динамики: day, week, month")
	f.StringSliceVar(&a.flags.include, "include", nil, "учитывать только сообщения с этими подстроками")
	f.DurationVar(&a.flags.waitThreshold, "wait-threshold", 0, "отбрасывать ожидания ответа длиннее порога")
	f.IntVar(&a.flags.top, "top", 0, "число самых частых реакций")
	f.BoolVar(&a.flags.normalizeHours, "normalize-hours", false, "доли вместо количества в распределении по часам")
	f.IntVar(&a.flags.workers, "workers", 0, "число файлов, разбираемых одновременно")
	f.StringVar(&a.flags.format, "format", formatAuto, "формат вывода: table, json, xlsx")
	f.StringVarP(&a.flags.output, "output", "o", "", "файл для вывода вместо stdout")

	root.AddCommand(
		newReportCmd(a),
		newTimelineCmd(a),
		newChainsCmd(a),
	)
	return root
}

// setup загружает конфигурацию и накладывает на нее явно заданные флаги.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.flags.configPath)
	if err != nil {
		return err
	}

	if a.flags.logLevel != "" {
		cfg.Logging.Level = a.flags.logLevel
	}
	if a.flags.groupBy != "" {
		cfg.Analysis.GroupBy = a.flags.groupBy
	}
	if cmd.Flags().Changed("wait-threshold") {
		cfg.Analysis.WaitThreshold = a.flags.waitThreshold
	}
	if a.flags.top > 0 {
		cfg.Analysis.TopReactions = a.flags.top
	}
	if a.flags.normalizeHours {
		cfg.Analysis.NormalizeHours = true
	}
	if a.flags.workers > 0 {
		cfg.Processing.Workers = a.flags.workers
	}

	switch a.flags.format {
	case formatAuto, formatTable, formatJSON, formatXLSX:
	default:
		return fmt.Errorf("неизвестный формат вывода %q", a.flags.format)
	}

	a.cfg = cfg
	// Логи идут в stderr, чтобы не смешиваться с отчетом.
	a.log = applog.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	slog.SetDefault(a.log)
	return nil
}

func (a *app) options() domain.ReportOptions {
	return domain.ReportOptions{
		GroupBy:        a.cfg.Analysis.GroupBy,
		Include:        a.flags.include,
		WaitThreshold:  a.cfg.Analysis.WaitThreshold,
		TopReactions:   a.cfg.Analysis.TopReactions,
		NormalizeHours: a.cfg.Analysis.NormalizeHours,
	}
}

// load разбирает файлы экспорта в коллекцию чатов.
func (a *app) load(ctx context.Context, paths []string) (*chats.Chats, error) {
	sources := make([]ports.DataSource, 0, len(paths))
	for _, path := range paths {
		sources = append(sources, source.NewFileSource(path))
	}

	loader := services.NewLoader(parser.NewJsonParser(),
		services.WithWorkers(a.cfg.Processing.Workers),
		services.WithLogger(a.log),
	)
	return loader.Load(ctx, sources)
}

func (a *app) buildReport(ctx context.Context, paths []string) (*domain.Report, error) {
	c, err := a.load(ctx, paths)
	if err != nil {
		return nil, err
	}
	builder := services.NewReportBuilder(services.WithReportLogger(a.log))
	return builder.Build(c, a.options())
}

// output открывает файл из --output или возвращает stdout.
func (a *app) output(cmd *cobra.Command) (io.Writer, func() error, error) {
	if a.flags.output == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(a.flags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось создать файл %s: %w", a.flags.output, err)
	}
	return f, f.Close, nil
}

// resolveFormat выбирает формат: без --format таблица пишется только в терминал.
func (a *app) resolveFormat(w io.Writer) (string, error) {
	format := a.flags.format
	if format == formatAuto {
		if term.IsTerminal(w) {
			format = formatTable
		} else {
			format = formatJSON
		}
	}
	if format == formatXLSX && term.IsTerminal(w) {
		return "", errXLSXToTerminal
	}
	return format, nil
}

func (a *app) exporter(w io.Writer, format string, consoleOpts ...exporter.ConsoleOption) ports.Exporter {
	switch format {
	case formatJSON:
		return exporter.NewJSONExporter(w, true)
	case formatXLSX:
		return exporter.NewExcelExporter(w)
	default:
		opts := append([]exporter.ConsoleOption{exporter.WithMaxColumnWidth(term.Width(w, 120) / 3)}, consoleOpts...)
		return exporter.NewConsoleExporter(w, opts...)
	}
}

// export пишет отчет в выбранный приемник.
func (a *app) export(cmd *cobra.Command, report *domain.Report, consoleOpts ...exporter.ConsoleOption) (err error) {
	w, closeFn, err := a.output(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	format, err := a.resolveFormat(w)
	if err != nil {
		return err
	}
	return a.exporter(w, format, consoleOpts...).Export(report)
}
