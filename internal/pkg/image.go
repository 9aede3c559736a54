package pkg

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
)

var ErrNotImage = errors.New("upload a valid image")

const MaxImageSize = 5 << 20

var imageContentTypes = map[string]string{
	"gif":  "image/gif",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// CheckImage 读入整张图片并确认能解析出尺寸，返回内容、格式和 content type
func CheckImage(r io.Reader) ([]byte, string, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, "", "", err
	}
	if len(data) == 0 || len(data) > MaxImageSize {
		return nil, "", "", ErrNotImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return nil, "", "", ErrNotImage
	}
	return data, format, imageContentTypes[format], nil
}
