package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"telegram-chat-stats/internal/adapters/exporter"
	"telegram-chat-stats/internal/cache"
	"telegram-chat-stats/internal/client"
)

func main() {
	var (
		serverAddr string
		xlsxPath   string
		interval   time.Duration
		useCache   bool
	)
	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "Server address")
	flag.StringVar(&xlsxPath, "xlsx", "", "Save report as xlsx to this path instead of printing tables")
	flag.DurationVar(&interval, "interval", 2*time.Second, "Task status polling interval")
	flag.BoolVar(&useCache, "cache", true, "Ask the server for a cached report first")
	flag.Parse()

	filePaths := flag.Args()
	if len(filePaths) == 0 {
		log.Fatal("At least one file path is required. Usage: client [flags] <file1> <file2> ...")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, client.NewServerClient(serverAddr), filePaths, xlsxPath, interval, useCache); err != nil {
		stop()
		log.Fatal(err)
	}
}

func run(ctx context.Context, c *client.ServerClient, filePaths []string, xlsxPath string, interval time.Duration, useCache bool) error {
	taskID := ""
	if useCache {
		id, err := cachedTask(ctx, c, filePaths)
		if err != nil {
			return err
		}
		taskID = id
	}

	if taskID == "" {
		id, err := upload(ctx, c, filePaths)
		if err != nil {
			return err
		}
		taskID = id
		fmt.Printf("Задача создана с идентификатором: %s\n", taskID)
	}

	if _, err := c.WaitForTask(ctx, taskID, interval); err != nil {
		return err
	}

	if xlsxPath != "" {
		return saveXLSX(ctx, c, taskID, xlsxPath)
	}

	report, err := c.GetReport(ctx, taskID)
	if err != nil {
		return fmt.Errorf("не удалось получить результат: %w", err)
	}
	return exporter.NewConsoleExporter(os.Stdout, exporter.WithTimeline(true)).Export(report)
}

// cachedTask возвращает id задачи, если эти файлы уже обработаны или обрабатываются сервером.
func cachedTask(ctx context.Context, c *client.ServerClient, filePaths []string) (string, error) {
	hashes := make([]string, 0, len(filePaths))
	for _, path := range filePaths {
		hash, err := cache.CalculateFileHash(path)
		if err != nil {
			return "", fmt.Errorf("не удалось вычислить хеш файла %s: %w", path, err)
		}
		hashes = append(hashes, hash)
	}

	started, err := c.ProcessByHash(ctx, cache.CombineHashes(hashes))
	if err != nil {
		return "", err
	}
	status, err := c.GetTaskStatus(ctx, started.TaskID)
	if err != nil {
		return "", err
	}
	switch status.Status {
	case client.StatusFailed:
		return "", nil
	case client.StatusCompleted:
		fmt.Println("Отчет найден в кеше сервера")
	default:
		fmt.Printf("Эти файлы уже обрабатываются, задача %s\n", started.TaskID)
	}
	return started.TaskID, nil
}

func upload(ctx context.Context, c *client.ServerClient, filePaths []string) (string, error) {
	files := make([]client.DocumentFile, 0, len(filePaths))
	for _, path := range filePaths {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("не удалось открыть файл %s: %w", path, err)
		}
		defer f.Close()
		files = append(files, client.DocumentFile{Name: filepath.Base(path), Content: f})
	}

	started, err := c.StartTask(ctx, files)
	if err != nil {
		return "", err
	}
	return started.TaskID, nil
}

func saveXLSX(ctx context.Context, c *client.ServerClient, taskID, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("не удалось создать файл %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := c.DownloadXLSX(ctx, taskID, f); err != nil {
		return fmt.Errorf("не удалось сохранить отчет: %w", err)
	}
	fmt.Printf("Отчет сохранен в %s\n", path)
	return nil
}
