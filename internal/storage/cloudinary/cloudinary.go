// Package cloudinary talks to the hosted image CDN: unsigned uploads with
// byte-level progress, client-side transformation URLs, and signed deletion.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"greenlens/internal/models"
	"greenlens/internal/storage"
)

const defaultAPIBase = "https://api.cloudinary.com"
const defaultDeliveryBase = "https://res.cloudinary.com"

type Client struct {
	cloudName    string
	uploadPreset string
	apiKey       string
	apiSecret    string

	httpc        *http.Client
	apiBase      string
	deliveryBase string
}

// New validates the required service identifiers up front so a missing
// configuration surfaces before any upload is attempted. apiKey/apiSecret
// are only needed for Remove and may be empty.
func New(cloudName, uploadPreset, apiKey, apiSecret string) (*Client, error) {
	if cloudName == "" || uploadPreset == "" {
		return nil, fmt.Errorf("cloudinary configuration missing: cloud name and upload preset are required")
	}
	return &Client{
		cloudName:    cloudName,
		uploadPreset: uploadPreset,
		apiKey:       apiKey,
		apiSecret:    apiSecret,
		httpc:        &http.Client{Timeout: 2 * time.Minute},
		apiBase:      defaultAPIBase,
		deliveryBase: defaultDeliveryBase,
	}, nil
}

type uploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	Bytes     int64  `json:"bytes"`
	CreatedAt string `json:"created_at"`
}

// Upload posts the file to the unsigned upload endpoint with automatic
// quality and format hints. The whole multipart body is buffered first so
// progress can report against a known total.
func (c *Client) Upload(ctx context.Context, f models.CaptureFile, folder string, onProgress storage.ProgressFunc) (storage.Reference, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"upload_preset": c.uploadPreset,
		"folder":        folder,
		"quality":       "auto",
		"fetch_format":  "auto",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return storage.Reference{}, fmt.Errorf("build upload form: %w", err)
		}
	}

	part, err := createFilePart(mw, f.Filename, f.MIME)
	if err != nil {
		return storage.Reference{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return storage.Reference{}, fmt.Errorf("build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return storage.Reference{}, fmt.Errorf("build upload form: %w", err)
	}

	total := int64(buf.Len())
	body := &progressReader{r: &buf, total: total, fn: onProgress}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", c.apiBase, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return storage.Reference{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = total

	resp, err := c.httpc.Do(req)
	if err != nil {
		return storage.Reference{}, fmt.Errorf("network error during upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return storage.Reference{}, &storage.TransferError{Status: resp.StatusCode}
	}

	var res uploadResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return storage.Reference{}, fmt.Errorf("failed to parse upload response: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339, res.CreatedAt)
	return storage.Reference{
		ContentID: res.PublicID,
		RawURL:    res.SecureURL,
		Width:     res.Width,
		Height:    res.Height,
		Format:    res.Format,
		Bytes:     res.Bytes,
		CreatedAt: createdAt,
	}, nil
}

// DisplayURL templates transformation parameters into the delivery URL for
// an already-stored content id. Pure string construction.
func (c *Client) DisplayURL(contentID string, opts storage.TransformOptions) string {
	quality := opts.Quality
	if quality == "" {
		quality = "auto"
	}
	format := opts.Format
	if format == "" {
		format = "auto"
	}
	crop := opts.Crop
	if crop == "" {
		crop = "fill"
	}

	var transformations []string
	if opts.Width > 0 || opts.Height > 0 {
		var dims []string
		if opts.Width > 0 {
			dims = append(dims, "w_"+strconv.Itoa(opts.Width))
		}
		if opts.Height > 0 {
			dims = append(dims, "h_"+strconv.Itoa(opts.Height))
		}
		dims = append(dims, "c_"+crop)
		transformations = append(transformations, strings.Join(dims, ","))
	}
	transformations = append(transformations, "q_"+quality, "f_"+format)

	return fmt.Sprintf("%s/%s/image/upload/%s/%s",
		c.deliveryBase, c.cloudName, strings.Join(transformations, "/"), contentID)
}

// Remove issues a signed destroy call for previously uploaded content.
func (c *Client) Remove(ctx context.Context, contentID string) error {
	if c.apiKey == "" || c.apiSecret == "" {
		return fmt.Errorf("cloudinary configuration missing: api key and secret are required for deletion")
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	payload := fmt.Sprintf("public_id=%s&timestamp=%s%s", contentID, timestamp, c.apiSecret)
	signature := fmt.Sprintf("%x", sha1.Sum([]byte(payload)))

	form := url.Values{}
	form.Set("public_id", contentID)
	form.Set("api_key", c.apiKey)
	form.Set("timestamp", timestamp)
	form.Set("signature", signature)

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/destroy", c.apiBase, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("network error during destroy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &storage.TransferError{Status: resp.StatusCode}
	}

	var res struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("failed to parse destroy response: %w", err)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("destroy rejected: %s", res.Result)
	}
	return nil
}

func createFilePart(mw *multipart.Writer, filename, mime string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, strings.ReplaceAll(filename, `"`, "")))
	h.Set("Content-Type", mime)
	return mw.CreatePart(h)
}

// progressReader counts bytes handed to the transport and reports them
// through fn. Counts never decrease.
type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    storage.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}
