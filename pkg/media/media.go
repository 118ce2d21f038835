// Package media prepares resource images and stores them in Cloudinary.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/disintegration/imaging"

	// decoders for image.Decode
	_ "image/gif"
	_ "image/png"
)

const maxSourceBytes = 10 << 20

var ErrUnsupportedImage = errors.New("unsupported or corrupt image")

// Store uploads an encoded image and returns its public URL.
type Store interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Thumbnail decodes src (JPEG, PNG or GIF), fits it into width pixels keeping
// the aspect ratio and re-encodes it as JPEG.
func Thumbnail(src io.Reader, width int) ([]byte, error) {
	img, _, err := image.Decode(io.LimitReader(src, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	img = imaging.Fit(img, width, width, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	res, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:    s.folder,
		PublicID:  name,
		Overwrite: api.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload failed: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}
