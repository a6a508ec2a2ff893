package aiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDispatchSendsCallbackURL(t *testing.T) {
	var got processRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(srv.URL, "https://api.example.com/", srv.Client())
	err := c.Dispatch(context.Background(), DispatchRequest{
		LectureID:     "lec1",
		Title:         "강의",
		VideoURL:      "https://youtube.com/watch?v=x",
		SourceType:    "YOUTUBE",
		RemainingDays: 14,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got.CallbackURL != "https://api.example.com/api/ai/callback" {
		t.Fatalf("callback url = %q", got.CallbackURL)
	}
	if got.LectureID != "lec1" || got.RemainingDays != 14 {
		t.Fatalf("payload = %+v", got)
	}
}

func TestDispatchSurfacesServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "worker pool exhausted"})
	}))
	defer srv.Close()

	c := New(srv.URL, "http://localhost", srv.Client())
	err := c.Dispatch(context.Background(), DispatchRequest{LectureID: "lec1"})
	if err == nil || !strings.Contains(err.Error(), "worker pool exhausted") {
		t.Fatalf("err = %v", err)
	}
}

func TestUploadReturnsTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("lecture_id") != "lec1" {
			t.Errorf("lecture_id = %q", r.FormValue("lecture_id"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "week3.mp4" || string(data) != "media-bytes" {
			t.Errorf("file = %q (%d bytes)", header.Filename, len(data))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"task_id": "task-7"})
	}))
	defer srv.Close()

	c := New(srv.URL, "http://localhost", srv.Client())
	taskID, err := c.Upload(context.Background(), "lec1", "week3.mp4", strings.NewReader("media-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if taskID != "task-7" {
		t.Fatalf("taskID = %q", taskID)
	}
}

func TestUploadAcceptsFileURLAlias(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"file_url": "task-legacy"})
	}))
	defer srv.Close()

	c := New(srv.URL, "http://localhost", srv.Client())
	taskID, err := c.Upload(context.Background(), "lec1", "a.mp4", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if taskID != "task-legacy" {
		t.Fatalf("taskID = %q", taskID)
	}
}

func TestUploadFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "missing task id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]string{})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New(srv.URL, "http://localhost", srv.Client())
			_, err := c.Upload(context.Background(), "lec1", "a.mp4", strings.NewReader("x"))
			if !errors.Is(err, ErrUploadFailed) {
				t.Fatalf("err = %v, want ErrUploadFailed", err)
			}
		})
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Tone != "FRIENDLY" || len(req.History) != 2 {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "정답입니다"})
	}))
	defer srv.Close()

	c := New(srv.URL, "http://localhost", srv.Client())
	answer, err := c.Chat(context.Background(), ChatRequest{
		LectureID: "lec1",
		SessionID: "sess1",
		Message:   "이게 뭐예요?",
		Tone:      "FRIENDLY",
		History: []ChatTurn{
			{Role: "USER", Content: "안녕"},
			{Role: "ASSISTANT", Content: "안녕하세요"},
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "정답입니다" {
		t.Fatalf("answer = %q", answer)
	}
}

func TestChatEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": ""})
	}))
	defer srv.Close()

	c := New(srv.URL, "http://localhost", srv.Client())
	if _, err := c.Chat(context.Background(), ChatRequest{LectureID: "lec1", Message: "q"}); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestGetResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/result/task-7" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Result{Status: "COMPLETED", Transcript: "t", Summary: "s"})
	}))
	defer srv.Close()

	c := New(srv.URL, "http://localhost", srv.Client())
	res, err := c.GetResult(context.Background(), "task-7")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if res.Status != "COMPLETED" || res.Transcript != "t" {
		t.Fatalf("result = %+v", res)
	}
}

func TestRequestStudyPlanTargetsPlanCallback(t *testing.T) {
	var got recommendationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recommendation-async" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(srv.URL, "https://api.example.com", srv.Client())
	if err := c.RequestStudyPlan(context.Background(), "student@example.com", "lec1", 7); err != nil {
		t.Fatalf("RequestStudyPlan: %v", err)
	}
	if got.CallbackURL != "https://api.example.com/api/ai/callback/study-plan" {
		t.Fatalf("callback url = %q", got.CallbackURL)
	}
	if got.Email != "student@example.com" {
		t.Fatalf("email = %q", got.Email)
	}
}

func TestGetStudyRecommendationAliases(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"plan_details": "day 1: chapter 1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "http://localhost", srv.Client())
	plan, err := c.GetStudyRecommendation(context.Background(), "student@example.com", "lec1", 7)
	if err != nil {
		t.Fatalf("GetStudyRecommendation: %v", err)
	}
	if plan != "day 1: chapter 1" {
		t.Fatalf("plan = %q", plan)
	}
}
