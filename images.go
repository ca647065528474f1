package blog

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth   = 1024
	jpegQuality     = 85
	downloadTimeout = 30 * time.Second
)

// OSSUploader downloads note images and mirrors them into an Aliyun OSS
// bucket. Flomo attachment URLs are signed with an expiration, so the
// mirror is what keeps post images alive.
type OSSUploader struct {
	cfg    OSSConfig
	bucket *oss.Bucket
	http   *http.Client
	log    *zap.Logger
	now    func() time.Time
}

// NewOSSUploader connects to the configured bucket using the given key pair.
func NewOSSUploader(cfg OSSConfig, accessKeyID, accessKeySecret string, log *zap.Logger) (*OSSUploader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client, err := oss.New(cfg.Endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss: connect: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("oss: open bucket %s: %w", cfg.Bucket, err)
	}
	return &OSSUploader{
		cfg:    cfg,
		bucket: bucket,
		http:   &http.Client{Timeout: downloadTimeout},
		log:    log,
		now:    time.Now,
	}, nil
}

// UploadFromURL downloads imageURL, shrinks it when wider than
// maxImageWidth, stores it under {prefix}{date}/{unixts}_{8hex}{ext}, and
// returns the public bucket URL.
func (u *OSSUploader) UploadFromURL(ctx context.Context, imageURL string) (string, error) {
	data, err := u.download(ctx, imageURL)
	if err != nil {
		return "", err
	}

	data, ext := processImage(data)
	if ext == "" {
		ext = extFromURL(imageURL)
	}

	now := u.now()
	name := fmt.Sprintf("%d_%s%s", now.Unix(), shortID(), ext)
	objectKey := fmt.Sprintf("%s%s/%s", u.cfg.Prefix, now.Format("2006-01-02"), name)

	u.log.Debug("uploading image", zap.String("key", objectKey), zap.Int("bytes", len(data)))
	if err := u.bucket.PutObject(objectKey, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("oss: put %s: %w", objectKey, err)
	}

	return fmt.Sprintf("https://%s.%s/%s", u.cfg.Bucket, u.cfg.Endpoint, objectKey), nil
}

func (u *OSSUploader) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	resp, err := u.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	return data, nil
}

// processImage decodes, optionally resizes, and re-encodes an image as
// JPEG. When decoding fails (unsupported format), the original bytes pass
// through untouched and the empty extension tells the caller to keep the
// source extension.
func processImage(data []byte) ([]byte, string) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, ""
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return data, ""
	}
	return buf.Bytes(), ".jpg"
}

// extFromURL pulls the file extension from a URL path, defaulting to .png.
func extFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ".png"
	}
	if ext := path.Ext(u.Path); ext != "" {
		return ext
	}
	return ".png"
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
