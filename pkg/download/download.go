// Package download fetches files over HTTP with optional byte-level
// progress reporting. There is no retry logic: network failures propagate
// unchanged to the caller.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/modelprep/modelprep/pkg/errors"
)

// chunkSize is the read granularity when streaming a response with a
// known length. Matching the historical 4 KiB keeps progress updates
// frequent without measurable overhead.
const chunkSize = 4096

// Progress receives byte counts while a download is streaming. total is
// the content length; downloaded grows monotonically up to total.
// Progress is only invoked when the server reports a content length.
type Progress func(downloaded, total int64)

// Options configures a single download.
type Options struct {
	// Client is the HTTP client to use. Defaults to http.DefaultClient.
	Client *http.Client

	// Progress, when set, is called after every chunk written to disk.
	Progress Progress
}

// File downloads url to dest, creating or truncating the destination.
//
// When the server reports a content length the body is streamed to disk
// in fixed-size chunks, keeping memory bounded for arbitrarily large
// files and driving the progress callback. Without a content length the
// body is buffered wholesale and written in one shot, and no progress is
// reported.
//
// A non-2xx status is a NETWORK_ERROR; transport failures are returned
// unchanged. A failed download may leave a partial file at dest.
func File(ctx context.Context, url, dest string, opts Options) error {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(errors.ErrCodeNetwork, "download %s: unexpected status %s", url, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	if resp.ContentLength < 0 {
		// No content-length header: buffer wholesale, write in one shot.
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		_, err = f.Write(body)
		return err
	}

	return stream(resp.Body, f, resp.ContentLength, opts.Progress)
}

// stream copies r to w in fixed-size chunks, reporting progress after
// every chunk written.
func stream(r io.Reader, w io.Writer, total int64, progress Progress) error {
	buf := make([]byte, chunkSize)
	var downloaded int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if downloaded != total {
		return fmt.Errorf("download truncated: got %d bytes, expected %d", downloaded, total)
	}
	return nil
}
