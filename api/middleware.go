package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// DecompressRequests inflates gzip-encoded request bodies on the drag routes.
// A drag-move body carries one rect per rendered card and a container can
// hold hundreds of tasks, so clients compress the geometry; handlers only
// ever see plain JSON. A body that does not decode as gzip is a 400.
func DecompressRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if !declaresGzip(req.Header.Get(echo.HeaderContentEncoding)) {
			return next(c)
		}

		raw := req.Body
		zr, err := gzip.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return echo.NewHTTPError(http.StatusBadRequest, "invalid gzip body")
		}

		req.Body = inflatedBody{zr: zr, conn: raw}
		req.ContentLength = -1
		req.Header.Del(echo.HeaderContentEncoding)
		req.Header.Del(echo.HeaderContentLength)
		return next(c)
	}
}

func declaresGzip(encoding string) bool {
	for _, enc := range strings.Split(encoding, ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "gzip") {
			return true
		}
	}
	return false
}

// inflatedBody reads decompressed bytes and closes both the decompressor and
// the connection body behind it.
type inflatedBody struct {
	zr   *gzip.Reader
	conn io.Closer
}

func (b inflatedBody) Read(p []byte) (int, error) { return b.zr.Read(p) }

func (b inflatedBody) Close() error {
	err := b.zr.Close()
	if cerr := b.conn.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
