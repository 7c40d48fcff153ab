package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	maxImageBytes   = 5 << 20
	maxImageDim     = 512
	jpegSaveQuality = 75
)

// Image service error constants
var (
	ErrImageTooLarge    = fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	ErrUnsupportedImage = fmt.Errorf("unsupported image format")
)

// ImageService stores uploaded profile images, normalized to bounded JPEGs
type ImageService interface {
	StoreProfileImage(userID uint, data []byte) (string, error)
	Remove(publicPath string) error
}

// LocalImageService keeps images on the local filesystem under uploadDir
// and serves them under publicPrefix.
type LocalImageService struct {
	uploadDir    string
	publicPrefix string
}

// NewLocalImageService creates a filesystem-backed image service
func NewLocalImageService(uploadDir, publicPrefix string) ImageService {
	return &LocalImageService{
		uploadDir:    uploadDir,
		publicPrefix: strings.TrimSuffix(publicPrefix, "/"),
	}
}

// StoreProfileImage validates, downscales and re-encodes the upload, then
// writes it under the upload dir and returns its public path.
func (s *LocalImageService) StoreProfileImage(userID uint, data []byte) (string, error) {
	if len(data) > maxImageBytes {
		return "", ErrImageTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", ErrUnsupportedImage
	}

	normalized := downscaleImage(src, maxImageDim)

	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, normalized, &jpeg.Options{Quality: jpegSaveQuality}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	filename := fmt.Sprintf("profile-%d-%s.jpg", userID, uuid.New().String())
	if err := os.WriteFile(filepath.Join(s.uploadDir, filename), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	return s.publicPrefix + "/" + filename, nil
}

// Remove deletes a previously stored image. Paths outside the public prefix
// (seed defaults, external URLs) are left alone.
func (s *LocalImageService) Remove(publicPath string) error {
	if publicPath == "" || !strings.HasPrefix(publicPath, s.publicPrefix+"/") {
		return nil
	}

	filename := filepath.Base(publicPath)
	err := os.Remove(filepath.Join(s.uploadDir, filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image: %w", err)
	}

	return nil
}

func downscaleImage(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		nh = maxDim
		nw = int(float64(w) * float64(maxDim) / float64(h))
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
