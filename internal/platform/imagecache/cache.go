// Package imagecache downloads recipe images and keeps resized copies on disk.
package imagecache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog/log"
)

// MaxWidth is the width cached images are resized to.
const MaxWidth = 800

// maxImageSize bounds how much of a response body is read.
const maxImageSize = 10 << 20

// ErrUnsupportedImage is returned for anything that is not a JPEG or PNG.
var ErrUnsupportedImage = errors.New("unsupported image format")

// Cache stores downloaded images under a directory, keyed by content hash.
type Cache struct {
	dir        string
	httpClient *http.Client
}

// New creates a cache rooted at dir.
func New(dir string, httpClient *http.Client) *Cache {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Cache{dir: dir, httpClient: httpClient}
}

// GenerateImageHash calculates the SHA256 hash of the image data.
func GenerateImageHash(imageData []byte) string {
	hash := sha256.Sum256(imageData)
	return hex.EncodeToString(hash[:])
}

// Fetch downloads the image at url and returns the path of the cached copy.
// Images already in the cache are not written again.
func (c *Cache) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return "", fmt.Errorf("read image err: %w", err)
	}

	extension, err := extensionFor(imageData)
	if err != nil {
		return "", err
	}

	imageHash := GenerateImageHash(imageData)
	imagePath := filepath.Join(c.dir, imageHash+extension)
	if _, err := os.Stat(imagePath); err == nil {
		log.Debug().Str("image_hash", imageHash).Msg("image found in cache")
		return imagePath, nil
	}

	return c.Save(imageData, imageHash, extension)
}

// Save resizes the image and writes it to the cache directory. The file only
// appears under its final name once it has been written completely.
func (c *Cache) Save(imageData []byte, imageHash string, extension string) (string, error) {
	var encode func(io.Writer, image.Image) error
	switch extension {
	case ".jpeg", ".jpg":
		encode = func(w io.Writer, img image.Image) error { return jpeg.Encode(w, img, nil) }
	case ".png":
		encode = png.Encode
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, extension)
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	if img.Bounds().Dx() > MaxWidth {
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, imageHash+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, img); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	imagePath := filepath.Join(c.dir, imageHash+extension)
	if err := os.Rename(tmp.Name(), imagePath); err != nil {
		return "", fmt.Errorf("failed to store image file: %w", err)
	}

	return imagePath, nil
}

func extensionFor(imageData []byte) (string, error) {
	contentType := http.DetectContentType(imageData)
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg", nil
	case strings.HasPrefix(contentType, "image/png"):
		return ".png", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}
}
