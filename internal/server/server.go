package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"telegram-chat-stats/internal/adapters/exporter"
	"telegram-chat-stats/internal/cache"
	"telegram-chat-stats/internal/domain"
	"telegram-chat-stats/internal/pkg/config"
	"telegram-chat-stats/internal/server/usecase"
)

var errReportNotCached = errors.New("отчет для данного хеша не найден в кеше")

type taskCreatedResponse struct {
	TaskID string `json:"task_id"`
	Hash   string `json:"hash"`
}

type taskStatusResponse struct {
	TaskID       string     `json:"task_id"`
	Hash         string     `json:"hash"`
	Status       TaskStatus `json:"status"`
	Files        []string   `json:"files,omitempty"`
	Chats        int        `json:"chats,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// ChatProcessor определяет интерфейс для варианта использования, который обрабатывает чаты.
type ChatProcessor interface {
	ProcessUploads(ctx context.Context, uploads []usecase.Upload) (*domain.Report, error)
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	cacheStore *cache.CacheStore
	processor  ChatProcessor
	log        *slog.Logger
}

// New создает новый экземпляр Server. Тикеры очистки хранилищ живут до отмены ctx.
func New(ctx context.Context, cfg *config.Config, processor ChatProcessor, taskStore *TaskStore, cacheStore *cache.CacheStore, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:        cfg,
		taskStore:  taskStore,
		cacheStore: cacheStore,
		processor:  processor,
		log:        logger,
	}

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	chiRouter.Get("/health", s.handleHealth)

	chiRouter.Route("/api/v1", func(r chi.Router) {
		r.Post("/process", s.handleProcess)
		r.Post("/process-by-hash", s.handleProcessByHash)
		r.Get("/tasks/{taskID}", s.handleTaskStatus)
		r.Get("/tasks/{taskID}/result", s.handleTaskResult)
		r.Get("/tasks/{taskID}/result.xlsx", s.handleTaskResultXLSX)
	})

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	interval := cfg.Server.CleanupInterval
	if interval <= 0 {
		interval = config.DefaultCleanupInterval
	}
	s.taskStore.StartCleanupTicker(ctx, interval)
	s.cacheStore.StartCleanupTicker(ctx, interval)

	return s, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleProcess принимает один или несколько файлов экспорта в поле "files".
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes()
	if limit <= 0 {
		limit = config.DefaultMaxUploadSizeMB << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		http.Error(w, "Не удалось получить файлы из формы", http.StatusBadRequest)
		return
	}

	uploads := make([]usecase.Upload, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			http.Error(w, "Не удалось открыть загруженный файл", http.StatusBadRequest)
			return
		}
		var buf bytes.Buffer
		_, err = io.Copy(&buf, f)
		f.Close()
		if err != nil {
			http.Error(w, "Не удалось прочитать загруженный файл", http.StatusBadRequest)
			return
		}
		uploads = append(uploads, usecase.Upload{Name: h.Filename, Data: buf.Bytes()})
		s.log.Info("Файл экспорта получен сервером", "file_name", h.Filename, "content_length", buf.Len())
	}

	hashes := make([]string, 0, len(uploads))
	files := make([]string, 0, len(uploads))
	for _, u := range uploads {
		hashes = append(hashes, cache.CalculateHash(u.Data))
		files = append(files, u.Name)
	}
	hash := cache.CombineHashes(hashes)

	task, created := s.taskStore.Submit(hash, files)
	if created {
		go s.runTask(task.ID, uploads)
	} else {
		s.log.Info("Набор файлов уже отправлен, используется существующая задача", "hash", hash, "task_id", task.ID, "status", task.Status)
	}

	writeJSON(w, http.StatusAccepted, taskCreatedResponse{TaskID: task.ID, Hash: hash})
}

func (s *Server) runTask(taskID string, uploads []usecase.Upload) {
	if err := s.taskStore.Start(taskID); err != nil {
		s.log.Error("Не удалось запустить задачу", "task_id", taskID, "error", err)
		return
	}

	// Таймаут задачи из конфигурации, 0 — без ограничений
	taskCtx := context.Background()
	if s.cfg.Processing.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, s.cfg.Processing.TaskTimeout)
		defer cancel()
	}

	report, err := s.processor.ProcessUploads(taskCtx, uploads)
	if err != nil {
		s.log.Error("Задача завершилась с ошибкой", "task_id", taskID, "error", err)
		_ = s.taskStore.Fail(taskID, err)
		return
	}
	_ = s.taskStore.Complete(taskID, report)
}

// handleProcessByHash отдает задачу для набора файлов по его хешу: уже идущую
// или готовую задачу, иначе новую с отчетом из кеша.
func (s *Server) handleProcessByHash(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Не удалось декодировать тело запроса", http.StatusBadRequest)
		return
	}
	if req.Hash == "" {
		http.Error(w, "Требуется хеш", http.StatusBadRequest)
		return
	}

	if task, ok := s.taskStore.Lookup(req.Hash); ok {
		s.log.Info("Найдена задача для хеша", "hash", req.Hash, "task_id", task.ID, "status", task.Status)
		writeJSON(w, http.StatusAccepted, taskCreatedResponse{TaskID: task.ID, Hash: req.Hash})
		return
	}

	task, _ := s.taskStore.Submit(req.Hash, nil)
	if cachedItem, found := s.cacheStore.Get(req.Hash); found {
		_ = s.taskStore.Complete(task.ID, cachedItem.Data)
		s.log.Info("Попадание в кеш для хеша", "hash", req.Hash, "task_id", task.ID)
	} else {
		_ = s.taskStore.Fail(task.ID, errReportNotCached)
		s.log.Info("Промах кеша для хеша", "hash", req.Hash, "task_id", task.ID)
	}

	writeJSON(w, http.StatusAccepted, taskCreatedResponse{TaskID: task.ID, Hash: req.Hash})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskStore.Get(chi.URLParam(r, "taskID"))
	if err != nil {
		http.Error(w, "Задача не найдена", http.StatusNotFound)
		return
	}

	resp := taskStatusResponse{
		TaskID:       task.ID,
		Hash:         task.Hash,
		Status:       task.Status,
		Files:        task.Files,
		ErrorMessage: task.ErrorMessage,
	}
	if task.Result != nil {
		resp.Chats = len(task.Result.Chats)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) completedTask(w http.ResponseWriter, r *http.Request) (*Task, bool) {
	task, err := s.taskStore.Get(chi.URLParam(r, "taskID"))
	if err != nil {
		http.Error(w, "Задача не найдена", http.StatusNotFound)
		return nil, false
	}
	if task.Status != TaskStatusCompleted {
		http.Error(w, "Задача не завершена", http.StatusBadRequest)
		return nil, false
	}
	return task, true
}

func (s *Server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	task, ok := s.completedTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task.Result)
}

func (s *Server) handleTaskResultXLSX(w http.ResponseWriter, r *http.Request) {
	task, ok := s.completedTask(w, r)
	if !ok {
		return
	}

	// Книга собирается в буфер, чтобы при ошибке вернуть 500, а не обрезанный файл
	var buf bytes.Buffer
	if err := exporter.NewExcelExporter(&buf).Export(task.Result); err != nil {
		s.log.Error("Не удалось сформировать xlsx", "task_id", task.ID, "error", err)
		http.Error(w, "Не удалось сформировать Excel-файл", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="chat_stats_%s.xlsx"`, task.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}
