// Package aiclient talks to the external AI transcription service.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ErrUploadFailed means the AI service accepted the request but did not
// return a task id for the uploaded media.
var ErrUploadFailed = errors.New("ai service upload failed")

// Client calls the AI service over HTTP. Results normally arrive through
// callbacks; GetResult exists as a pull fallback.
type Client struct {
	baseURL         string
	callbackBaseURL string
	httpClient      *http.Client
}

// New builds a client. callbackBaseURL is this server's public address, sent
// along with processing requests so the AI service knows where to call back.
func New(baseURL, callbackBaseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		callbackBaseURL: strings.TrimRight(callbackBaseURL, "/"),
		httpClient:      httpClient,
	}
}

// DispatchRequest asks the service to transcribe a lecture from a URL.
type DispatchRequest struct {
	LectureID     string
	Title         string
	VideoURL      string
	SourceType    string
	RemainingDays int
}

// Dispatch submits a lecture for processing. The service answers 2xx right
// away and reports progress through the callback endpoints.
func (c *Client) Dispatch(ctx context.Context, req DispatchRequest) error {
	payload := processRequest{
		LectureID:     req.LectureID,
		Title:         req.Title,
		VideoURL:      req.VideoURL,
		SourceType:    req.SourceType,
		RemainingDays: req.RemainingDays,
		CallbackURL:   c.callbackBaseURL + "/api/ai/callback",
	}
	return c.doJSON(ctx, http.MethodPost, "/process", payload, nil)
}

// Upload streams lecture media to the service and returns the assigned task
// id. Older service builds return the id under "file_url".
func (c *Client) Upload(ctx context.Context, lectureID, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("lecture_id", lectureID); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy media: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, readError(resp))
	}
	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUploadFailed, err)
	}
	taskID := out.TaskID
	if taskID == "" {
		taskID = out.FileURL
	}
	if taskID == "" {
		return "", fmt.Errorf("%w: no task id in response", ErrUploadFailed)
	}
	return taskID, nil
}

// Result is the pull-mode view of a processing task.
type Result struct {
	Status            string `json:"status"`
	Transcript        string `json:"transcript"`
	Summary           string `json:"summary"`
	ExpectedQuestions string `json:"expected_questions"`
	StudyPlan         string `json:"study_plan"`
}

// GetResult fetches the current state of a task directly from the service.
func (c *Client) GetResult(ctx context.Context, taskID string) (Result, error) {
	var out Result
	if err := c.doJSON(ctx, http.MethodGet, "/result/"+taskID, nil, &out); err != nil {
		return Result{}, err
	}
	return out, nil
}

// ChatTurn is one prior exchange passed as conversation history.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest asks a question about a lecture.
type ChatRequest struct {
	LectureID string
	SessionID string
	Message   string
	Tone      string
	History   []ChatTurn
}

// Chat sends a question and returns the assistant's answer.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	payload := chatRequest{
		LectureID: req.LectureID,
		SessionID: req.SessionID,
		Message:   req.Message,
		Tone:      req.Tone,
		History:   req.History,
	}
	var out chatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat", payload, &out); err != nil {
		return "", err
	}
	if out.Response == "" {
		return "", fmt.Errorf("empty chat response")
	}
	return out.Response, nil
}

// RequestStudyPlan asks the service to generate a study plan asynchronously.
// The requester's email travels with the request and comes back on the
// study-plan callback, where it is checked against the lecture owner.
func (c *Client) RequestStudyPlan(ctx context.Context, email, lectureID string, remainingDays int) error {
	payload := recommendationRequest{
		Email:         email,
		LectureID:     lectureID,
		RemainingDays: remainingDays,
		CallbackURL:   c.callbackBaseURL + "/api/ai/callback/study-plan",
	}
	return c.doJSON(ctx, http.MethodPost, "/recommendation-async", payload, nil)
}

// GetStudyRecommendation generates a study plan synchronously.
func (c *Client) GetStudyRecommendation(ctx context.Context, email, lectureID string, remainingDays int) (string, error) {
	payload := recommendationRequest{
		Email:         email,
		LectureID:     lectureID,
		RemainingDays: remainingDays,
	}
	var out recommendationResponse
	if err := c.doJSON(ctx, http.MethodPost, "/recommendation", payload, &out); err != nil {
		return "", err
	}
	plan := out.StudyPlan
	if plan == "" {
		plan = out.PlanDetails
	}
	if plan == "" {
		return "", fmt.Errorf("empty recommendation response")
	}
	return plan, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ai service request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ai service error: %s", readError(resp))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ai response: %w", err)
	}
	return nil
}

func readError(resp *http.Response) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	switch {
	case errResp.Error != "":
		return errResp.Error
	case errResp.Message != "":
		return errResp.Message
	case errResp.Detail != "":
		return errResp.Detail
	}
	return resp.Status
}

type processRequest struct {
	LectureID     string `json:"lecture_id"`
	Title         string `json:"title"`
	VideoURL      string `json:"video_url"`
	SourceType    string `json:"source_type"`
	RemainingDays int    `json:"remaining_days,omitempty"`
	CallbackURL   string `json:"callback_url"`
}

type uploadResponse struct {
	TaskID  string `json:"task_id"`
	FileURL string `json:"file_url"`
}

type chatRequest struct {
	LectureID string     `json:"lecture_id"`
	SessionID string     `json:"session_id,omitempty"`
	Message   string     `json:"message"`
	Tone      string     `json:"tone,omitempty"`
	History   []ChatTurn `json:"history,omitempty"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type recommendationRequest struct {
	Email         string `json:"email"`
	LectureID     string `json:"lecture_id"`
	RemainingDays int    `json:"remaining_days,omitempty"`
	CallbackURL   string `json:"callback_url,omitempty"`
}

type recommendationResponse struct {
	StudyPlan   string `json:"study_plan"`
	PlanDetails string `json:"plan_details"`
}
