package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultVideoPrompt is used when the user leaves the prompt blank.
const DefaultVideoPrompt = "Animate this character celebrating a goal achievement in a vibrant cinematic style."

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 60 // 5 minutes at the default interval
	videoResolution     = "720p"
)

// VideoRequest holds the inputs of one generation job.
type VideoRequest struct {
	ImageBytes  []byte
	MIMEType    string
	Prompt      string
	AspectRatio string // "16:9" or "9:16"
}

// operation is the job handle returned by submit and refreshed by each poll.
type operation struct {
	Name     string
	Done     bool
	VideoURI string
}

// videoOperations is the transport behind the polling machine. The REST
// implementation lives on Client; tests swap in a scripted fake.
type videoOperations interface {
	CreateJob(ctx context.Context, req VideoRequest) (operation, error)
	GetJob(ctx context.Context, name string) (operation, error)
	Download(ctx context.Context, uri string) ([]byte, error)
}

// VideoGenerator drives one submit/poll/fetch job at a time. Independent
// generators share no mutable state, so concurrent invocations are safe; the
// UI additionally disables re-submission while a job is in flight.
type VideoGenerator struct {
	ops      videoOperations
	keys     KeySelector
	interval time.Duration
	maxPolls int
	log      *zap.Logger
}

func NewVideoGenerator(c *Client, keys KeySelector, pollInterval time.Duration, maxPolls int) *VideoGenerator {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}
	return &VideoGenerator{
		ops:      &restOperations{c: c},
		keys:     keys,
		interval: pollInterval,
		maxPolls: maxPolls,
		log:      c.log,
	}
}

// Generate runs the full job: one creation call, at most maxPolls sequential
// status checks (each waits for the previous response before its delay
// starts), then exactly one bytes fetch. No automatic retry on any failure;
// a retry is always a fresh user-initiated call.
func (g *VideoGenerator) Generate(ctx context.Context, req VideoRequest) ([]byte, error) {
	if len(req.ImageBytes) == 0 {
		return nil, fmt.Errorf("reference image required")
	}
	if req.Prompt == "" {
		req.Prompt = DefaultVideoPrompt
	}
	if req.AspectRatio != "9:16" {
		req.AspectRatio = "16:9"
	}
	if req.MIMEType == "" {
		req.MIMEType = "image/png"
	}
	// Lazy credential check before touching the endpoint. If no key is
	// selected, open the selector and proceed assuming success.
	if g.keys != nil && !g.keys.HasSelectedKey() {
		if err := g.keys.OpenSelectKey(); err != nil {
			return nil, err
		}
	}

	op, err := g.ops.CreateJob(ctx, req)
	if err != nil {
		return nil, g.classify(err, "submit")
	}
	g.log.Info("video job submitted", zap.String("op", op.Name))

	polls := 0
	for !op.Done {
		if polls >= g.maxPolls {
			g.log.Warn("video job poll budget exhausted", zap.Int("polls", polls))
			return nil, ErrTimedOut
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.interval):
		}
		op, err = g.ops.GetJob(ctx, op.Name)
		if err != nil {
			return nil, g.classify(err, "poll")
		}
		polls++
	}

	if op.VideoURI == "" {
		return nil, fmt.Errorf("video generation failed")
	}
	data, err := g.ops.Download(ctx, op.VideoURI)
	if err != nil {
		return nil, g.classify(err, "fetch")
	}
	g.log.Info("video fetched", zap.Int("bytes", len(data)), zap.Int("polls", polls))
	return data, nil
}

// classify maps a transport failure onto the caller-facing taxonomy. The
// entity-not-found signature means the key is bad: open the selector once and
// report ErrInvalidKey without polling again.
func (g *VideoGenerator) classify(err error, stage string) error {
	if entityNotFound(err) {
		if g.keys != nil {
			_ = g.keys.OpenSelectKey()
		}
		return errors.Wrapf(ErrInvalidKey, "%s: %v", stage, err)
	}
	return errors.Wrap(err, stage)
}

// REST transport ------------------------------------------------------------

type restOperations struct {
	c *Client
}

type videoSubmitRequest struct {
	Prompt string      `json:"prompt"`
	Image  videoImage  `json:"image"`
	Config videoConfig `json:"config"`
}

type videoImage struct {
	ImageBytes string `json:"imageBytes"` // base64
	MimeType   string `json:"mimeType"`
}

type videoConfig struct {
	NumberOfVideos int    `json:"numberOfVideos"`
	Resolution     string `json:"resolution"`
	AspectRatio    string `json:"aspectRatio"`
}

type videoOperationResponse struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response *struct {
		GeneratedVideos []struct {
			Video struct {
				URI string `json:"uri"`
			} `json:"video"`
		} `json:"generatedVideos"`
	} `json:"response"`
	Error *apiError `json:"error"`
}

func (r *restOperations) CreateJob(ctx context.Context, req VideoRequest) (operation, error) {
	body := videoSubmitRequest{
		Prompt: req.Prompt,
		Image: videoImage{
			ImageBytes: base64.StdEncoding.EncodeToString(req.ImageBytes),
			MimeType:   req.MIMEType,
		},
		Config: videoConfig{
			NumberOfVideos: 1,
			Resolution:     videoResolution,
			AspectRatio:    req.AspectRatio,
		},
	}
	url := fmt.Sprintf("%s/models/%s:predictLongRunning?key=%s", r.c.baseURL, videoModel, r.c.apiKey)
	return r.doOperation(ctx, http.MethodPost, url, body)
}

func (r *restOperations) GetJob(ctx context.Context, name string) (operation, error) {
	url := fmt.Sprintf("%s/%s?key=%s", r.c.baseURL, name, r.c.apiKey)
	return r.doOperation(ctx, http.MethodGet, url, nil)
}

func (r *restOperations) doOperation(ctx context.Context, method, url string, body any) (operation, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return operation{}, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return operation{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.c.http.Do(req)
	if err != nil {
		return operation{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return operation{}, err
	}
	var out videoOperationResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return operation{}, errors.Wrap(err, "decode operation")
	}
	if out.Error != nil {
		return operation{}, fmt.Errorf("operation error: %s", out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return operation{}, fmt.Errorf("operation status %d", resp.StatusCode)
	}
	op := operation{Name: out.Name, Done: out.Done}
	if out.Response != nil && len(out.Response.GeneratedVideos) > 0 {
		op.VideoURI = out.Response.GeneratedVideos[0].Video.URI
	}
	return op, nil
}

// Download fetches the result bytes. The service expects the key appended to
// the already-parameterized download URI.
func (r *restOperations) Download(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+"&key="+r.c.apiKey, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
