package channel

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
)

const maxAckBytes = 64 << 10

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// drain reads a bounded amount of the acknowledgement body so the underlying
// connection can be reused. The content is not used.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxAckBytes))
}

func isClosedConnErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// isTimeout reports whether err is a network deadline expiring.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
