package yandex

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// storageDownloadInfo is the <download-info> document served by the storage host.
type storageDownloadInfo struct {
	XMLName xml.Name `xml:"download-info"`
	Host    string   `xml:"host"`
	Path    string   `xml:"path"`
	TS      string   `xml:"ts"`
	Region  string   `xml:"region"`
	Secret  string   `xml:"s"`
}

// ResolveLegacyDirectLink turns a legacy downloadInfoUrl into a direct stream
// link signed with the deprecated scheme.
func (c *Client) ResolveLegacyDirectLink(ctx context.Context, infoURL string) (string, error) {
	infoURL = c.endpoints.StorageURL(infoURL, c.proxy)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, infoURL, nil)
	if err != nil {
		return "", badResponse("build storage request", nil, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return "", badResponse("storage transport failure", nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	raw := &RawResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if err != nil {
		return "", badResponse("read storage body", raw, err)
	}
	if resp.StatusCode == http.StatusGone {
		return "", badResponse("storage link expired, acquire the stream again", raw, nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", badResponse("unexpected storage status code", raw, nil)
	}

	var info storageDownloadInfo
	if err := xml.Unmarshal(body, &info); err != nil {
		return "", badResponse("storage body is not download-info XML", raw, err)
	}
	info.Host = strings.TrimSpace(info.Host)
	info.Path = strings.TrimSpace(info.Path)
	if info.Host == "" || info.Path == "" {
		return "", badResponse("download-info lacks host or path", raw, nil)
	}

	sig := c.signer.SignDeprecated(info.Path, strings.TrimSpace(info.Secret))
	if c.logger != nil {
		c.logger.Debug("yandex: resolved legacy direct link", "host", info.Host)
	}
	return "https://" + info.Host + "/get-mp3/" + sig.Signature + "/" + strings.TrimSpace(info.TS) + info.Path, nil
}
