package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"telegram-chat-stats/internal/cache"
	"telegram-chat-stats/internal/domain"
	"telegram-chat-stats/internal/pkg/config"
	"telegram-chat-stats/internal/server/usecase"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProcessUploads(ctx context.Context, uploads []usecase.Upload) (*domain.Report, error) {
	args := m.Called(ctx, uploads)
	if res := args.Get(0); res != nil {
		return res.(*domain.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func newTestServer(t *testing.T, proc ChatProcessor) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.Server{Host: "localhost", Port: 8080, MaxUploadSizeMB: 1, CleanupInterval: time.Minute},
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := New(ctx, cfg, proc, NewTaskStore(DefaultTaskTTL), cache.NewCacheStore(), nil)
	require.NoError(t, err)
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.HTTPServer.Handler.ServeHTTP(rr, req)
	return rr
}

func taskIDFrom(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotEmpty(t, resp["task_id"])
	return resp["task_id"]
}

func TestServer(t *testing.T) {
	t.Run("Health Check", func(t *testing.T) {
		srv := newTestServer(t, new(mockProcessor))
		rr := serve(srv, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "ok", resp["status"])
	})

	t.Run("Process Endpoint", func(t *testing.T) {
		proc := new(mockProcessor)
		srv := newTestServer(t, proc)
		report := &domain.Report{Self: "Alina"}

		proc.On("ProcessUploads", mock.Anything, mock.MatchedBy(func(u []usecase.Upload) bool {
			return len(u) == 1 && u[0].Name == "airat.json" && string(u[0].Data) == `{"name":"Airat"}`
		})).Return(report, nil).Once()

		body, contentType := multipartBody(t, map[string]string{"airat.json": `{"name":"Airat"}`})
		req := httptest.NewRequest("POST", "/api/v1/process", body)
		req.Header.Set("Content-Type", contentType)
		rr := serve(srv, req)

		require.Equal(t, http.StatusAccepted, rr.Code)
		taskID := taskIDFrom(t, rr)

		require.Eventually(t, func() bool {
			task, err := srv.taskStore.Get(taskID)
			return err == nil && task.Status == TaskStatusCompleted
		}, 2*time.Second, 10*time.Millisecond)

		rr = serve(srv, httptest.NewRequest("GET", "/api/v1/tasks/"+taskID+"/result", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var got domain.Report
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "Alina", got.Self)

		proc.AssertExpectations(t)
	})

	t.Run("Process Endpoint - ошибка обработки", func(t *testing.T) {
		proc := new(mockProcessor)
		srv := newTestServer(t, proc)
		proc.On("ProcessUploads", mock.Anything, mock.Anything).Return(nil, domain.ErrSelfMismatch).Once()

		body, contentType := multipartBody(t, map[string]string{"a.json": "{}", "b.json": "{}"})
		req := httptest.NewRequest("POST", "/api/v1/process", body)
		req.Header.Set("Content-Type", contentType)
		taskID := taskIDFrom(t, serve(srv, req))

		require.Eventually(t, func() bool {
			task, err := srv.taskStore.Get(taskID)
			return err == nil && task.Status == TaskStatusFailed
		}, 2*time.Second, 10*time.Millisecond)

		rr := serve(srv, httptest.NewRequest("GET", "/api/v1/tasks/"+taskID, nil))
		var status map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))
		assert.Equal(t, string(TaskStatusFailed), status["status"])
		assert.Contains(t, status["error_message"], domain.ErrSelfMismatch.Error())
	})

	t.Run("Process Endpoint - без файлов", func(t *testing.T) {
		srv := newTestServer(t, new(mockProcessor))
		body, contentType := multipartBody(t, nil)
		req := httptest.NewRequest("POST", "/api/v1/process", body)
		req.Header.Set("Content-Type", contentType)

		assert.Equal(t, http.StatusBadRequest, serve(srv, req).Code)
	})

	t.Run("Process Endpoint - не multipart", func(t *testing.T) {
		srv := newTestServer(t, new(mockProcessor))
		req := httptest.NewRequest("POST", "/api/v1/process", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")

		assert.Equal(t, http.StatusBadRequest, serve(srv, req).Code)
	})

	t.Run("Process By Hash", func(t *testing.T) {
		srv := newTestServer(t, new(mockProcessor))
		srv.cacheStore.Put("known", &domain.Report{Self: "Alina"}, time.Minute)

		rr := serve(srv, httptest.NewRequest("POST", "/api/v1/process-by-hash", strings.NewReader(`{"hash":"known"}`)))
		require.Equal(t, http.StatusAccepted, rr.Code)
		task, err := srv.taskStore.Get(taskIDFrom(t, rr))
		require.NoError(t, err)
		assert.Equal(t, TaskStatusCompleted, task.Status)
		assert.Equal(t, "Alina", task.Result.Self)

		rr = serve(srv, httptest.NewRequest("POST", "/api/v1/process-by-hash", strings.NewReader(`{"hash":"unknown"}`)))
		task, err = srv.taskStore.Get(taskIDFrom(t, rr))
		require.NoError(t, err)
		assert.Equal(t, TaskStatusFailed, task.Status)
		assert.Contains(t, task.ErrorMessage, "не найден в кеше")

		rr = serve(srv, httptest.NewRequest("POST", "/api/v1/process-by-hash", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Task Not Found", func(t *testing.T) {
		srv := newTestServer(t, new(mockProcessor))
		assert.Equal(t, http.StatusNotFound, serve(srv, httptest.NewRequest("GET", "/api/v1/tasks/nope", nil)).Code)
		assert.Equal(t, http.StatusNotFound, serve(srv, httptest.NewRequest("GET", "/api/v1/tasks/nope/result", nil)).Code)
	})

	t.Run("Task Result - не завершена", func(t *testing.T) {
		srv := newTestServer(t, new(mockProcessor))
		task, _ := srv.taskStore.Submit("hash-pending", nil)

		assert.Equal(t, http.StatusBadRequest, serve(srv, httptest.NewRequest("GET", "/api/v1/tasks/"+task.ID+"/result", nil)).Code)
		assert.Equal(t, http.StatusBadRequest, serve(srv, httptest.NewRequest("GET", "/api/v1/tasks/"+task.ID+"/result.xlsx", nil)).Code)
	})

	t.Run("Task Result XLSX", func(t *testing.T) {
		srv := newTestServer(t, new(mockProcessor))
		task, _ := srv.taskStore.Submit("hash-done", nil)
		require.NoError(t, srv.taskStore.Complete(task.ID, &domain.Report{
			Self:   "Alina",
			Counts: []domain.ChatCountRow{{ChatID: "airat", Name: "Airat", Total: 3}},
		}))

		rr := serve(srv, httptest.NewRequest("GET", "/api/v1/tasks/"+task.ID+"/result.xlsx", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "chat_stats_"+task.ID+".xlsx")

		f, err := excelize.OpenReader(rr.Body)
		require.NoError(t, err)
		defer f.Close()
		v, err := f.GetCellValue("Сообщения", "A2")
		require.NoError(t, err)
		assert.Equal(t, "Airat", v)
	})

	t.Run("Process Endpoint - повторная отправка тех же файлов", func(t *testing.T) {
		proc := new(mockProcessor)
		srv := newTestServer(t, proc)
		release := make(chan time.Time)
		proc.On("ProcessUploads", mock.Anything, mock.Anything).
			WaitUntil(release).
			Return(&domain.Report{Self: "Alina", Chats: []domain.ChatOverview{{ChatID: "airat"}}}, nil).Once()

		files := map[string]string{"airat.json": `{"name":"Airat"}`}
		send := func() string {
			body, contentType := multipartBody(t, files)
			req := httptest.NewRequest("POST", "/api/v1/process", body)
			req.Header.Set("Content-Type", contentType)
			return taskIDFrom(t, serve(srv, req))
		}

		first := send()
		second := send()
		assert.Equal(t, first, second)

		hash := cache.CombineHashes([]string{cache.CalculateHash([]byte(files["airat.json"]))})
		rr := serve(srv, httptest.NewRequest("POST", "/api/v1/process-by-hash", strings.NewReader(`{"hash":"`+hash+`"}`)))
		assert.Equal(t, first, taskIDFrom(t, rr))

		close(release)
		require.Eventually(t, func() bool {
			task, err := srv.taskStore.Get(first)
			return err == nil && task.Status == TaskStatusCompleted
		}, 2*time.Second, 10*time.Millisecond)

		rr = serve(srv, httptest.NewRequest("GET", "/api/v1/tasks/"+first, nil))
		var status taskStatusResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))
		assert.Equal(t, hash, status.Hash)
		assert.Equal(t, []string{"airat.json"}, status.Files)
		assert.Equal(t, 1, status.Chats)

		proc.AssertExpectations(t)
	})

	t.Run("Process Endpoint - после ошибки набор обрабатывается заново", func(t *testing.T) {
		proc := new(mockProcessor)
		srv := newTestServer(t, proc)
		proc.On("ProcessUploads", mock.Anything, mock.Anything).Return(nil, domain.ErrSelfMismatch).Once()
		proc.On("ProcessUploads", mock.Anything, mock.Anything).Return(&domain.Report{Self: "Alina"}, nil).Once()

		send := func() string {
			body, contentType := multipartBody(t, map[string]string{"airat.json": "{}"})
			req := httptest.NewRequest("POST", "/api/v1/process", body)
			req.Header.Set("Content-Type", contentType)
			return taskIDFrom(t, serve(srv, req))
		}

		failed := send()
		require.Eventually(t, func() bool {
			task, err := srv.taskStore.Get(failed)
			return err == nil && task.Status == TaskStatusFailed
		}, 2*time.Second, 10*time.Millisecond)

		retried := send()
		assert.NotEqual(t, failed, retried)
		require.Eventually(t, func() bool {
			task, err := srv.taskStore.Get(retried)
			return err == nil && task.Status == TaskStatusCompleted
		}, 2*time.Second, 10*time.Millisecond)

		proc.AssertExpectations(t)
	})
}
