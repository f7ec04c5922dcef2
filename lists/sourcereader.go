package lists

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/dnstrail/dnstrail/config"
	"github.com/dnstrail/dnstrail/util"
)

// readSource reads domain entries from a local file or an http(s) URL.
// Lines are one domain each, '#' starts a comment, empty lines are skipped.
func readSource(source string, cfg config.BlockingConfig) ([]string, error) {
	var (
		r   io.ReadCloser
		err error
	)

	if strings.HasPrefix(source, "http") {
		r, err = downloadSource(source, cfg)
	} else {
		r, err = os.Open(strings.TrimPrefix(source, "file://"))
	}

	if err != nil {
		return nil, err
	}
	defer r.Close()

	var result []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if domain := parseLine(scanner.Text()); domain != "" {
			result = append(result, domain)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("can't parse source '%s': %w", source, err)
	}

	return result, nil
}

func downloadSource(link string, cfg config.BlockingConfig) (io.ReadCloser, error) {
	client := http.Client{
		Timeout: cfg.DownloadTimeout.ToDuration(),
	}

	var body io.ReadCloser

	err := retry.Do(
		func() error {
			//nolint:bodyclose
			resp, err := client.Get(link)
			if err != nil {
				return err
			}

			if resp.StatusCode != http.StatusOK {
				_ = resp.Body.Close()

				return retry.Unrecoverable(
					fmt.Errorf("couldn't download url '%s', got status code %d", link, resp.StatusCode))
			}

			body = resp.Body

			return nil
		},
		retry.Attempts(cfg.DownloadAttempts),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger().Warnf("download of '%s' failed (attempt %d), retrying: %v", link, n+1, err)
		}))
	if err != nil {
		return nil, err
	}

	return body, nil
}

func parseLine(line string) string {
	if idx := strings.IndexRune(line, '#'); idx >= 0 {
		line = line[:idx]
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}

	return util.NormalizeDomain(line)
}
