// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrEmbedderFailed wraps any provider-side failure (non-2xx response,
// transport error, malformed response body).
type ErrEmbedderFailed struct {
	Provider string
	Err      error
}

func (e *ErrEmbedderFailed) Error() string {
	return fmt.Sprintf("embed: %s: %v", e.Provider, e.Err)
}

func (e *ErrEmbedderFailed) Unwrap() error { return e.Err }

// httpProvider is the shared shape of Indra's remote HTTP-based embedders:
// a base URL, bearer credential, model name, fixed dimension, and a
// request/response codec supplied by each concrete provider (their JSON
// shapes differ enough that a single generic body doesn't fit all four).
type httpProvider struct {
	name       string
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dim        int
	buildBody  func(texts []string) ([]byte, error)
	parseReply func(body []byte, want int) ([][]float32, error)
}

func newHTTPProvider(name, baseURL, apiKey, model string, dim int, buildBody func([]string) ([]byte, error), parseReply func([]byte, int) ([][]float32, error)) *httpProvider {
	return &httpProvider{
		name:       name,
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		dim:        dim,
		buildBody:  buildBody,
		parseReply: parseReply,
	}
}

func (p *httpProvider) Dimension() int    { return p.dim }
func (p *httpProvider) ModelName() string { return p.model }

func (p *httpProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *httpProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := p.buildBody(texts)
	if err != nil {
		return nil, &ErrEmbedderFailed{Provider: p.name, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &ErrEmbedderFailed{Provider: p.name, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ErrEmbedderFailed{Provider: p.name, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ErrEmbedderFailed{Provider: p.name, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ErrEmbedderFailed{Provider: p.name, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))}
	}

	vecs, err := p.parseReply(respBody, len(texts))
	if err != nil {
		return nil, &ErrEmbedderFailed{Provider: p.name, Err: err}
	}
	for _, v := range vecs {
		if len(v) != p.dim {
			return nil, fmt.Errorf("%w: %s returned length %d, want %d", ErrDimensionMismatch, p.name, len(v), p.dim)
		}
	}
	return vecs, nil
}

// NewHF returns an embedder backed by the HuggingFace Inference API
// feature-extraction endpoint.
func NewHF(apiKey, model string, dim int) Embedder {
	url := fmt.Sprintf("https://api-inference.huggingface.co/models/%s", model)
	build := func(texts []string) ([]byte, error) {
		return json.Marshal(struct {
			Inputs []string `json:"inputs"`
		}{Inputs: texts})
	}
	parse := func(body []byte, want int) ([][]float32, error) {
		var vecs [][]float32
		if err := json.Unmarshal(body, &vecs); err != nil {
			return nil, err
		}
		if len(vecs) != want {
			return nil, fmt.Errorf("expected %d vectors, got %d", want, len(vecs))
		}
		return vecs, nil
	}
	return newHTTPProvider("hf", url, apiKey, model, dim, build, parse)
}

// NewOpenAI returns an embedder backed by the OpenAI embeddings endpoint.
func NewOpenAI(apiKey, model string, dim int) Embedder {
	build := func(texts []string) ([]byte, error) {
		return json.Marshal(struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}{Model: model, Input: texts})
	}
	parse := func(body []byte, want int) ([][]float32, error) {
		var reply struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &reply); err != nil {
			return nil, err
		}
		if len(reply.Data) != want {
			return nil, fmt.Errorf("expected %d vectors, got %d", want, len(reply.Data))
		}
		out := make([][]float32, len(reply.Data))
		for i, d := range reply.Data {
			out[i] = d.Embedding
		}
		return out, nil
	}
	return newHTTPProvider("openai", "https://api.openai.com/v1/embeddings", apiKey, model, dim, build, parse)
}

// NewCohere returns an embedder backed by Cohere's embed endpoint.
func NewCohere(apiKey, model string, dim int) Embedder {
	build := func(texts []string) ([]byte, error) {
		return json.Marshal(struct {
			Model     string   `json:"model"`
			Texts     []string `json:"texts"`
			InputType string   `json:"input_type"`
		}{Model: model, Texts: texts, InputType: "search_document"})
	}
	parse := func(body []byte, want int) ([][]float32, error) {
		var reply struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := json.Unmarshal(body, &reply); err != nil {
			return nil, err
		}
		if len(reply.Embeddings) != want {
			return nil, fmt.Errorf("expected %d vectors, got %d", want, len(reply.Embeddings))
		}
		return reply.Embeddings, nil
	}
	return newHTTPProvider("cohere", "https://api.cohere.ai/v1/embed", apiKey, model, dim, build, parse)
}

// NewVoyage returns an embedder backed by Voyage AI's embeddings endpoint.
func NewVoyage(apiKey, model string, dim int) Embedder {
	build := func(texts []string) ([]byte, error) {
		return json.Marshal(struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}{Model: model, Input: texts})
	}
	parse := func(body []byte, want int) ([][]float32, error) {
		var reply struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &reply); err != nil {
			return nil, err
		}
		if len(reply.Data) != want {
			return nil, fmt.Errorf("expected %d vectors, got %d", want, len(reply.Data))
		}
		out := make([][]float32, len(reply.Data))
		for i, d := range reply.Data {
			out[i] = d.Embedding
		}
		return out, nil
	}
	return newHTTPProvider("voyage", "https://api.voyageai.com/v1/embeddings", apiKey, model, dim, build, parse)
}
