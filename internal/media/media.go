// Package media turns stored image references into delivery URLs.
package media

import (
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"go.uber.org/zap"
)

type Resolver interface {
	URL(ref string) string
}

// Passthrough returns references unchanged. It is used when no CDN is
// configured.
type Passthrough struct{}

func (Passthrough) URL(ref string) string { return ref }

// Cloudinary resolves public ids against a Cloudinary account. Absolute
// URLs and the placeholder are returned as-is.
type Cloudinary struct {
	cld         *cloudinary.Cloudinary
	placeholder string
	logger      *zap.SugaredLogger
}

func NewCloudinary(cld *cloudinary.Cloudinary, placeholder string, logger *zap.SugaredLogger) *Cloudinary {
	return &Cloudinary{cld: cld, placeholder: placeholder, logger: logger}
}

func (c *Cloudinary) URL(ref string) string {
	if ref == "" || ref == c.placeholder || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}

	img, err := c.cld.Image(ref)
	if err != nil {
		c.logger.Warnw("cloudinary image", "ref", ref, "error", err)
		return ref
	}
	url, err := img.String()
	if err != nil {
		c.logger.Warnw("cloudinary image url", "ref", ref, "error", err)
		return ref
	}
	return url
}
