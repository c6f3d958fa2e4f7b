package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/config"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/pipeline"
)

// ModelService is the HTTP client for the external fine-tuning and image
// generation API. It implements pipeline.Provider: Submit creates the remote
// run, Status polls it, Cancel aborts it.
type ModelService struct {
	BaseURL    string
	APIKey     string
	WebhookURL string
	httpClient *http.Client
}

func InitModelService(cfg *config.EnvConfig) *ModelService {
	if cfg.ModelAPI.BaseURL == "" {
		panic("Model API URL is not configured")
	}
	if cfg.ModelAPI.APIKey == "" {
		panic("Model API key is not configured")
	}
	return &ModelService{
		BaseURL:    cfg.ModelAPI.BaseURL,
		APIKey:     cfg.ModelAPI.APIKey,
		WebhookURL: cfg.ModelAPI.WebhookURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// trainingPayload is the locally stored request descriptor for a training
// job; storybookPayload for a page generation run. Both are prepared by the
// controller and stored on the job record at creation.
type trainingPayload struct {
	DatasetKey  string `json:"dataset_key"`
	TriggerWord string `json:"trigger_word,omitempty"`
	Steps       int    `json:"steps,omitempty"`
}

type storybookPayload struct {
	PageID        string   `json:"page_id,omitempty"`
	Prompt        string   `json:"prompt"`
	ModelVersion  string   `json:"model_version"`
	ReferenceKeys []string `json:"reference_keys,omitempty"`
	NumCandidates int      `json:"num_candidates,omitempty"`
}

// providerRunResponse is the provider's run representation.
type providerRunResponse struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Progress *int            `json:"progress,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Submit creates the provider-side run for the job and returns its handle.
func (s *ModelService) Submit(ctx context.Context, job *entity.Job) (string, error) {
	var path string
	var body map[string]interface{}

	switch job.Kind {
	case entity.JobKindTraining:
		var payload trainingPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return "", fmt.Errorf("malformed training payload: %w", err)
		}
		path = "/v1/trainings"
		body = map[string]interface{}{
			"dataset_key":  payload.DatasetKey,
			"trigger_word": payload.TriggerWord,
			"steps":        payload.Steps,
		}
	case entity.JobKindStorybook:
		var payload storybookPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return "", fmt.Errorf("malformed storybook payload: %w", err)
		}
		path = "/v1/generations"
		body = map[string]interface{}{
			"prompt":         payload.Prompt,
			"model_version":  payload.ModelVersion,
			"reference_keys": payload.ReferenceKeys,
			"num_candidates": payload.NumCandidates,
		}
	default:
		return "", fmt.Errorf("unsupported job kind %q", job.Kind)
	}

	if s.WebhookURL != "" {
		body["webhook_url"] = s.WebhookURL
	}

	var run providerRunResponse
	if err := s.do(ctx, http.MethodPost, path, body, &run); err != nil {
		return "", err
	}
	if run.ID == "" {
		return "", fmt.Errorf("provider returned no run id")
	}
	return run.ID, nil
}

// Status fetches the current provider state of a run.
func (s *ModelService) Status(ctx context.Context, handle string) (pipeline.ProviderEvent, error) {
	raw, err := s.doRaw(ctx, http.MethodGet, "/v1/jobs/"+handle, nil)
	if err != nil {
		return pipeline.ProviderEvent{}, err
	}
	var run providerRunResponse
	if err := json.Unmarshal(raw, &run); err != nil {
		return pipeline.ProviderEvent{}, fmt.Errorf("malformed provider response: %w", err)
	}
	return pipeline.ProviderEvent{
		Handle:   handle,
		Status:   run.Status,
		Progress: run.Progress,
		Output:   run.Output,
		Error:    run.Error,
		Raw:      raw,
	}, nil
}

// Cancel requests abortion of a run. A non-2xx answer is surfaced as an
// error; the caller decides what that means for the local record.
func (s *ModelService) Cancel(ctx context.Context, handle string) error {
	return s.do(ctx, http.MethodPost, "/v1/jobs/"+handle+"/cancel", nil, nil)
}

func (s *ModelService) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	raw, err := s.doRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (s *ModelService) doRaw(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model API request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read model API response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("model API returned %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
