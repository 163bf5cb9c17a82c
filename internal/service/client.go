package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tricentis/tosca-ci/internal/host"
	"github.com/tricentis/tosca-ci/internal/model"
)

const (
	uploadPath  = "api/v1/results"
	contentType = "application/xml"
)

// RepoArchiver uploads results to a report server.
type RepoArchiver struct {
	requestURL *url.URL
	client     *http.Client
}

func NewRepoArchiver(serverURL string) (*RepoArchiver, error) {
	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")

	if parsedURL.Scheme == "" || parsedURL.Host == "" || parsedURL.Path != "" {
		return nil, errors.New("please define the server url with a scheme and without path, e.g. `http://some-url.com`")
	}

	parsedURL.Path = uploadPath
	return &RepoArchiver{
		requestURL: parsedURL,
		client:     &http.Client{},
	}, nil
}

func (c *RepoArchiver) Archive(ctx context.Context, build host.Build, name string, raw []byte, stats model.JUnitStats) error {
	u := *c.requestURL
	q := u.Query()
	q.Set("build", build.ID)
	q.Set("name", name)
	if build.JobName != "" {
		q.Set("job", build.JobName)
	}
	if build.Number != 0 {
		q.Set("number", strconv.Itoa(build.Number))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	createResp, err := c.decodeUploadResponse(resp)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "results uploaded successfully.",
		slog.String("id", createResp.ID),
		slog.Int("tests", stats.Total))
	return nil
}

type ResultsCreateResponse struct {
	ID string `json:"id"`
}

func (c *RepoArchiver) decodeUploadResponse(resp *http.Response) (ResultsCreateResponse, error) {
	contentType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return ResultsCreateResponse{}, fmt.Errorf("failed to parse response content type header: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		if contentType != "application/json" {
			return ResultsCreateResponse{}, fmt.Errorf("expected `application/json` content type, got: %s", contentType)
		}
		var rc ResultsCreateResponse
		if err := json.NewDecoder(resp.Body).Decode(&rc); err != nil {
			return ResultsCreateResponse{}, fmt.Errorf("decoding json response failed: %w", err)
		}
		if rc.ID == "" {
			return ResultsCreateResponse{}, errors.New("received unexpected body")
		}
		return rc, nil

	case http.StatusBadRequest, http.StatusConflict, http.StatusUnsupportedMediaType:
		if contentType != "application/problem+json" {
			return ResultsCreateResponse{}, fmt.Errorf("expected `application/problem+json` content type, got: %s", contentType)
		}
		var problemDetail struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&problemDetail); err != nil {
			return ResultsCreateResponse{}, fmt.Errorf("decoding json response failed: %w", err)
		}
		return ResultsCreateResponse{}, fmt.Errorf("status code: %d, detail: %s", resp.StatusCode, problemDetail.Detail)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ResultsCreateResponse{}, err
	}
	return ResultsCreateResponse{}, fmt.Errorf("unknown error, status: %d, body: %s", resp.StatusCode, string(respBody))
}
