package video

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/vidflow/types"
)

func TestFalProvider_QueueFlow(t *testing.T) {
	var polls atomic.Int32
	var submitted falRequest
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("POST /fal-ai/kling-video/v1/pro/text-to-video", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Key fal-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
		_ = json.NewEncoder(w).Encode(falQueueResponse{
			RequestID:   "req-1",
			StatusURL:   srv.URL + "/requests/req-1/status",
			ResponseURL: srv.URL + "/requests/req-1",
		})
	})
	mux.HandleFunc("GET /requests/req-1/status", func(w http.ResponseWriter, r *http.Request) {
		status := "IN_PROGRESS"
		if polls.Add(1) >= 2 {
			status = "COMPLETED"
		}
		_ = json.NewEncoder(w).Encode(falStatusResponse{Status: status})
	})
	mux.HandleFunc("GET /requests/req-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"video":{"url":"https://cdn.example/v.mp4"}}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	p := NewFalProvider(FalConfig{APIKey: "fal-key", BaseURL: srv.URL, PollInterval: time.Millisecond}, nil)
	resp, err := p.Generate(context.Background(), &GenerateRequest{
		Prompt:         "a fox",
		Model:          "fal-ai/kling-video/v1/pro/text-to-video",
		Duration:       5,
		NegativePrompt: "blurry",
	})

	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "https://cdn.example/v.mp4", resp.FirstURL())
	assert.Equal(t, "5", submitted.Duration)
	assert.Equal(t, "blurry", submitted.NegativePrompt)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestFalProvider_HTTPErrorsAreClassified(t *testing.T) {
	tests := []struct {
		status    int
		code      types.ErrorCode
		retryable bool
	}{
		{http.StatusTooManyRequests, types.ErrRateLimited, true},
		{http.StatusUnauthorized, types.ErrAuthentication, false},
		{http.StatusInternalServerError, types.ErrUpstreamError, true},
		{http.StatusGatewayTimeout, types.ErrUpstreamTimeout, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			p := NewFalProvider(FalConfig{BaseURL: srv.URL}, nil)
			_, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "x", Model: "fal-ai/ltx-video"})
			require.Error(t, err)
			assert.Equal(t, tt.code, types.GetErrorCode(err))
			assert.Equal(t, tt.retryable, types.IsTransient(err))
		})
	}
}

func TestFalProvider_FailedStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /fal-ai/ltx-video", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"request_id":"r"}`))
	})
	mux.HandleFunc("GET /fal-ai/ltx-video/requests/r/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"FAILED","error":"nsfw"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewFalProvider(FalConfig{BaseURL: srv.URL, PollInterval: time.Millisecond}, nil)
	_, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "x", Model: "fal-ai/ltx-video"})
	require.Error(t, err)
	assert.Equal(t, types.ErrGenerationFailed, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "nsfw")
}

func TestFalProvider_CancelledWhilePolling(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /fal-ai/ltx-video", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"request_id":"r"}`))
	})
	mux.HandleFunc("GET /fal-ai/ltx-video/requests/r/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"IN_QUEUE"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	p := NewFalProvider(FalConfig{BaseURL: srv.URL, PollInterval: time.Millisecond}, nil)
	_, err := p.Generate(ctx, &GenerateRequest{Prompt: "x", Model: "fal-ai/ltx-video"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, types.IsTransient(err))
}

func TestReplicateProvider_PredictionFlow(t *testing.T) {
	var polls atomic.Int32
	var input map[string]replicateInput
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("POST /v1/models/wan-ai/wan-2.1-t2v-14b/predictions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer rep-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		_, _ = w.Write([]byte(`{"id":"p1","status":"starting","urls":{"get":"` + srv.URL + `/v1/predictions/p1"}}`))
	})
	mux.HandleFunc("GET /v1/predictions/p1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 2 {
			_, _ = w.Write([]byte(`{"id":"p1","status":"processing"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"p1","status":"succeeded","output":"https://replicate.delivery/v.mp4"}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	p := NewReplicateProvider(ReplicateConfig{APIKey: "rep-key", BaseURL: srv.URL, PollInterval: time.Millisecond}, nil)
	resp, err := p.Generate(context.Background(), &GenerateRequest{
		Prompt:   "waves",
		Model:    "wan-ai/wan-2.1-t2v-14b",
		Duration: 5,
	})

	require.NoError(t, err)
	assert.Equal(t, "p1", resp.RequestID)
	assert.Equal(t, "https://replicate.delivery/v.mp4", resp.FirstURL())
	assert.Equal(t, 120, input["input"].NumFrames)
}

func TestReplicateProvider_ArrayOutputAndFailure(t *testing.T) {
	pred := replicatePrediction{Output: json.RawMessage(`["a.mp4","b.mp4"]`)}
	assert.Equal(t, []string{"a.mp4", "b.mp4"}, pred.outputURLs())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"p2","status":"failed","error":"out of memory"}`))
	}))
	defer srv.Close()

	p := NewReplicateProvider(ReplicateConfig{BaseURL: srv.URL, PollInterval: time.Millisecond}, nil)
	_, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "x", Model: "a/b"})
	require.Error(t, err)
	assert.Equal(t, types.ErrGenerationFailed, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "out of memory")
}

func TestRunwayProvider_TaskFlow(t *testing.T) {
	var body runwayRequest
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/image_to_video", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, runwayAPIVersion, r.Header.Get("X-Runway-Version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id":"task-1","status":"PENDING"}`))
	})
	mux.HandleFunc("GET /v1/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 2 {
			_, _ = w.Write([]byte(`{"id":"task-1","status":"RUNNING"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"task-1","status":"SUCCEEDED","output":["https://runway/v.mp4"]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewRunwayProvider(RunwayConfig{APIKey: "rw", BaseURL: srv.URL, PollInterval: time.Millisecond}, nil)
	resp, err := p.Generate(context.Background(), &GenerateRequest{
		Prompt:   "a fox",
		ImageURL: "https://example.com/a.png",
		Duration: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://runway/v.mp4", resp.FirstURL())
	assert.Equal(t, "gen4_turbo", body.Model)
	assert.Equal(t, 10, body.Duration, "duration is clamped to 10s")
	assert.Equal(t, "1280:720", body.Ratio)
}

func TestRunwayRatio(t *testing.T) {
	assert.Equal(t, "1280:720", runwayRatio(""))
	assert.Equal(t, "720:1280", runwayRatio("9:16"))
	assert.Equal(t, "960:960", runwayRatio("1:1"))
	assert.Equal(t, "1584:672", runwayRatio("1584:672"))
}

func TestPollUntil_ToleratesTransientErrors(t *testing.T) {
	calls := 0
	err := pollUntil(context.Background(), time.Millisecond, 3, func(context.Context) (bool, error) {
		calls++
		if calls < 3 {
			return false, types.NewError(types.ErrUpstreamError, "blip").WithRetryable(true)
		}
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = pollUntil(context.Background(), time.Millisecond, 2, func(context.Context) (bool, error) {
		calls++
		return false, types.NewError(types.ErrUpstreamError, "down").WithRetryable(true)
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}
