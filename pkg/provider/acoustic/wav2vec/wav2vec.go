// Package wav2vec provides an acoustic.Provider backed by a wav2vec2 phoneme
// inference server.
//
// The neural model itself stays out of process (typically a small Python
// service wrapping a CTC phoneme model such as wav2vec2-xlsr-53-espeak-cv-ft);
// this client submits a mono 16 kHz WAV and receives either the decoded
// phoneme sequence (POST /phonemes) or the per-frame softmax distributions
// over the phoneme vocabulary (POST /frame_probabilities). Requests carry the
// audio as a multipart "audio" file part.
//
// Usage:
//
//	p, err := wav2vec.New("http://localhost:9090",
//	    wav2vec.WithTimeout(30*time.Second),
//	)
//	phonemes, err := p.Phonemes(ctx, wave)
package wav2vec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/arnavam/zylo/pkg/audio"
	"github.com/arnavam/zylo/pkg/provider/acoustic"
)

const (
	phonemesEndpoint      = "/phonemes"
	probabilitiesEndpoint = "/frame_probabilities"

	defaultTimeout = 30 * time.Second
)

// Compile-time interface assertion.
var _ acoustic.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client entirely. Useful for tests and for
// callers that need custom transport settings.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements acoustic.Provider against a wav2vec2 inference server.
type Provider struct {
	serverURL  string
	httpClient *http.Client
}

// New creates a Provider that connects to the inference server at serverURL
// (e.g., "http://localhost:9090"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("wav2vec: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// phonemesResponse is the JSON body returned by POST /phonemes.
type phonemesResponse struct {
	Phonemes []string `json:"phonemes"`
}

// probabilitiesResponse is the JSON body returned by POST /frame_probabilities.
type probabilitiesResponse struct {
	Frames    [][]float64 `json:"frames"`
	VocabSize int         `json:"vocab_size"`
}

// Phonemes submits wave for inference and returns the decoded phoneme
// sequence.
func (p *Provider) Phonemes(ctx context.Context, wave audio.Waveform) ([]string, error) {
	body, err := p.post(ctx, phonemesEndpoint, wave)
	if err != nil {
		return nil, err
	}
	var resp phonemesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("wav2vec: decode phonemes response: %w", err)
	}
	return resp.Phonemes, nil
}

// FrameProbabilities submits wave for inference and returns the per-frame
// probability distributions.
func (p *Provider) FrameProbabilities(ctx context.Context, wave audio.Waveform) (acoustic.FrameProbabilities, error) {
	body, err := p.post(ctx, probabilitiesEndpoint, wave)
	if err != nil {
		return nil, err
	}
	var resp probabilitiesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("wav2vec: decode probabilities response: %w", err)
	}
	probs := acoustic.FrameProbabilities(resp.Frames)
	if err := probs.Validate(); err != nil {
		return nil, fmt.Errorf("wav2vec: server returned malformed matrix: %w", err)
	}
	if resp.VocabSize != 0 && resp.VocabSize != probs.VocabSize() {
		return nil, fmt.Errorf("wav2vec: vocab_size %d does not match frame width %d", resp.VocabSize, probs.VocabSize())
	}
	return probs, nil
}

// post encodes wave as WAV into a multipart request and returns the response
// body. Non-200 responses become errors carrying the server's message.
func (p *Provider) post(ctx context.Context, endpoint string, wave audio.Waveform) ([]byte, error) {
	if wave.Empty() {
		return nil, errors.New("wav2vec: empty waveform")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "utterance.wav")
	if err != nil {
		return nil, fmt.Errorf("wav2vec: build request: %w", err)
	}
	if err := audio.EncodeWAV(wave, part); err != nil {
		return nil, fmt.Errorf("wav2vec: encode audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("wav2vec: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("wav2vec: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wav2vec: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wav2vec: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wav2vec: %s: server returned %d: %s", endpoint, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
