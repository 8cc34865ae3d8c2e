package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"telegram-chat-stats/internal/adapters/exporter"
	"telegram-chat-stats/internal/core/chat"
	"telegram-chat-stats/internal/domain"
)

func newReportCmd(a *app) *cobra.Command {
	var timeline bool

	cmd := &cobra.Command{
		Use:   "report <export.json>...",
		Short: "Полный отчет по переписке",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.buildReport(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.export(cmd, report, exporter.WithTimeline(timeline))
		},
	}
	cmd.Flags().BoolVar(&timeline, "timeline", false, "добавить в таблицы динамику сообщений")
	return cmd
}

func newTimelineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <export.json>...",
		Short: "Число сообщений по периодам для каждого чата",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.buildReport(cmd.Context(), args)
			if err != nil {
				return err
			}
			trimmed := &domain.Report{
				Self:        report.Self,
				GeneratedAt: report.GeneratedAt,
				Options:     report.Options,
				Timeline:    report.Timeline,
			}
			return a.export(cmd, trimmed, exporter.WithTimelineOnly())
		},
	}
}

func newChainsCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "chains <export.json>...",
		Short: "Цепочки ответов",
		Long: `Без флагов печатает самую длинную цепочку ответов среди всех чатов.
С --all печатает все цепочки каждого чата.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			c, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}

			w, closeFn, err := a.output(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := closeFn(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			if !all {
				ch, chain, err := longestChain(a.log, c.All())
				if err != nil {
					return err
				}
				if len(chain) == 0 {
					_, err = fmt.Fprintln(w, "цепочек ответов нет")
					return err
				}
				return writeChain(w, ch, chain)
			}

			for _, ch := range c.All() {
				chains, err := ch.ReplyChains()
				if errors.Is(err, domain.ErrReplyCycle) {
					a.log.Warn("Цепочки ответов пропущены", "chat_id", ch.ID, "error", err)
					continue
				}
				if err != nil {
					return err
				}
				for _, chain := range chains {
					if err := writeChain(w, ch, chain); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "печатать все цепочки")
	return cmd
}

// longestChain ищет самую длинную цепочку; при равной длине побеждает первый чат.
// Чаты с циклом ответов пропускаются.
func longestChain(log *slog.Logger, list []*chat.Chat) (*chat.Chat, []*domain.Message, error) {
	var (
		best      *chat.Chat
		bestChain []*domain.Message
	)
	for _, ch := range list {
		chain, err := ch.LongestReplyChain()
		if errors.Is(err, domain.ErrNoData) {
			continue
		}
		if errors.Is(err, domain.ErrReplyCycle) {
			log.Warn("Цепочки ответов пропущены", "chat_id", ch.ID, "error", err)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if len(chain) > len(bestChain) {
			best, bestChain = ch, chain
		}
	}
	return best, bestChain, nil
}

func writeChain(w io.Writer, ch *chat.Chat, chain []*domain.Message) error {
	if _, err := fmt.Fprintf(w, "%s: цепочка из %d сообщений\n", ch.Name, len(chain)); err != nil {
		return err
	}
	for _, msg := range chain {
		text := strings.ReplaceAll(msg.Text, "\n", " ")
		if _, err := fmt.Fprintf(w, "  #%d %s %s: %s\n", msg.ID, msg.Date.Format("2006-01-02 15:04"), msg.From, text); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
