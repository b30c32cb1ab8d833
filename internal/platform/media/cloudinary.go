package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

const cloudinaryBaseURL = "https://api.cloudinary.com"

// CloudinaryUploader posts unsigned uploads using an upload preset.
type CloudinaryUploader struct {
	baseURL   string
	cloudName string
	preset    string
	client    *http.Client
}

func NewCloudinaryUploader(cloudName, preset string, client *http.Client) *CloudinaryUploader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &CloudinaryUploader{
		baseURL:   cloudinaryBaseURL,
		cloudName: cloudName,
		preset:    preset,
		client:    client,
	}
}

// WithBaseURL points the uploader at another host, e.g. a test server.
func (u *CloudinaryUploader) WithBaseURL(baseURL string) *CloudinaryUploader {
	c := *u
	c.baseURL = strings.TrimRight(baseURL, "/")
	return &c
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (u *CloudinaryUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("cloudinary: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("cloudinary: copy image: %w", err)
	}
	if err := mw.WriteField("upload_preset", u.preset); err != nil {
		return "", fmt.Errorf("cloudinary: write preset: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("cloudinary: close form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", u.baseURL, u.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("cloudinary: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary: upload: %w", err)
	}
	defer resp.Body.Close()

	var out cloudinaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("cloudinary: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode/100 != 2 {
		msg := resp.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("cloudinary: upload rejected: %s", msg)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("cloudinary: response has no secure_url")
	}
	return out.SecureURL, nil
}
