package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/synaptica-ai/dementia-risk/pkg/common/httpclient"
	"github.com/synaptica-ai/dementia-risk/pkg/common/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// RemoteOptions configures a RemoteClassifier.
type RemoteOptions struct {
	BaseURL   string
	ModelName string
	Timeout   time.Duration
	Retries   int

	// Client credentials; leave TokenURL empty for an unauthenticated server.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// HTTPClient overrides the default transport. Used by tests.
	HTTPClient *http.Client
}

// RemoteClassifier calls a TensorFlow Serving compatible REST endpoint:
// POST {base}/v1/models/{model}:predict with {"instances": [[...]]}.
type RemoteClassifier struct {
	client   *http.Client
	endpoint string
	retries  int
}

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions json.RawMessage `json:"predictions"`
	Error       string          `json:"error,omitempty"`
}

func NewRemoteClassifier(ctx context.Context, opts RemoteOptions) (*RemoteClassifier, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("remote classifier requires a base URL")
	}
	if opts.ModelName == "" {
		return nil, errors.New("remote classifier requires a model name")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}

	client := opts.HTTPClient
	if client == nil {
		client = httpclient.New(opts.Timeout)
	}
	if opts.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			Scopes:       opts.Scopes,
		}
		authCtx := context.WithValue(ctx, oauth2.HTTPClient, client)
		authed := cc.Client(authCtx)
		authed.Timeout = opts.Timeout
		client = authed
	}

	endpoint := fmt.Sprintf("%s/v1/models/%s:predict", strings.TrimRight(opts.BaseURL, "/"), opts.ModelName)
	return &RemoteClassifier{client: client, endpoint: endpoint, retries: opts.Retries}, nil
}

func (c *RemoteClassifier) Predict(ctx context.Context, features []float64) (float64, error) {
	body, err := json.Marshal(predictRequest{Instances: [][]float64{features}})
	if err != nil {
		return 0, err
	}

	var p float64
	err = httpclient.Retry(ctx, c.retries, 100*time.Millisecond, httpclient.IsRetriable, func() error {
		var callErr error
		p, callErr = c.call(ctx, body)
		if callErr != nil {
			logger.Log.WithError(callErr).WithField("endpoint", c.endpoint).Debug("remote classifier call failed")
		}
		return callErr
	})
	if err != nil {
		return 0, fmt.Errorf("remote classifier: %w", err)
	}
	return p, nil
}

func (c *RemoteClassifier) call(ctx context.Context, body []byte) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &httpclient.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var decoded predictResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return 0, fmt.Errorf("decode predict response: %w", err)
	}
	if decoded.Error != "" {
		return 0, errors.New(decoded.Error)
	}
	return firstPrediction(decoded.Predictions)
}

// firstPrediction accepts both [[p]] (one output unit) and [p].
func firstPrediction(raw json.RawMessage) (float64, error) {
	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) > 0 && len(nested[0]) > 0 {
			return nested[0][0], nil
		}
		return 0, errors.New("empty predictions")
	}
	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) > 0 {
			return flat[0], nil
		}
		return 0, errors.New("empty predictions")
	}
	return 0, fmt.Errorf("unexpected predictions payload: %s", string(raw))
}
