// Package bookmark はブックマーク管理のドメインロジックを提供する。
package bookmark

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hitoshi/bukuma/internal/security"
)

// maxFaviconSize はfaviconの最大サイズ（2MB）。
const maxFaviconSize = 2 * 1024 * 1024

// maxPageSize はfavicon探索で読み込むHTMLの最大サイズ（1MB）。
const maxPageSize = 1 * 1024 * 1024

// faviconTimeout はfavicon取得のタイムアウト。
const faviconTimeout = 5 * time.Second

// FaviconFetcherService はブックマーク対象ページのfavicon取得のインターフェース。
type FaviconFetcherService interface {
	// FetchForPage はページURLからfaviconを検出して取得する。
	// ページHTMLの<link rel="icon">を優先し、見つからない場合は
	// /favicon.ico を試行する。取得失敗時はnilデータと空MIMEを返す
	// （エラーは返さない。faviconは装飾であり、取得失敗で
	// ブックマーク登録を失敗させない）。
	FetchForPage(ctx context.Context, pageURL string) (data []byte, mimeType string, err error)
}

// FaviconFetcher はfavicon取得機能の実装。
type FaviconFetcher struct {
	urlGuard security.URLGuardService
}

// NewFaviconFetcher はFaviconFetcherの新しいインスタンスを生成する。
func NewFaviconFetcher(urlGuard security.URLGuardService) *FaviconFetcher {
	return &FaviconFetcher{
		urlGuard: urlGuard,
	}
}

// FetchForPage はページURLからfaviconを検出して取得する。
func (f *FaviconFetcher) FetchForPage(ctx context.Context, pageURL string) ([]byte, string, error) {
	if pageURL == "" {
		return nil, "", nil
	}

	// ページHTMLからicon linkを探す
	if iconURL := f.discoverIconURL(ctx, pageURL); iconURL != "" {
		if data, mimeType := f.fetchIcon(ctx, iconURL); data != nil {
			return data, mimeType, nil
		}
	}

	// フォールバック: /favicon.ico
	if iconURL := guessDefaultFaviconURL(pageURL); iconURL != "" {
		if data, mimeType := f.fetchIcon(ctx, iconURL); data != nil {
			return data, mimeType, nil
		}
	}

	return nil, "", nil
}

// discoverIconURL はページHTMLをパースして<link rel="icon">のURLを返す。
// 見つからない場合は空文字列を返す。
func (f *FaviconFetcher) discoverIconURL(ctx context.Context, pageURL string) string {
	if f.urlGuard != nil {
		if err := f.urlGuard.ValidateURL(pageURL); err != nil {
			slog.Warn("favicon探索: SSRFブロック", "url", pageURL, "error", err)
			return ""
		}
	}

	client := f.getHTTPClient()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Bukuma/1.0 Bookmark Manager")
	req.Header.Set("Accept", "text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("favicon探索: ページ取得失敗", "url", pageURL, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return ""
	}

	href := findIconHref(body)
	if href == "" {
		return ""
	}

	return resolveURL(pageURL, href)
}

// fetchIcon は指定URLからアイコン画像を取得する。
// 失敗時は(nil, "")を返す。
func (f *FaviconFetcher) fetchIcon(ctx context.Context, iconURL string) ([]byte, string) {
	if f.urlGuard != nil {
		if err := f.urlGuard.ValidateURL(iconURL); err != nil {
			slog.Warn("favicon取得: SSRFブロック", "url", iconURL, "error", err)
			return nil, ""
		}
	}

	client := f.getHTTPClient()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		return nil, ""
	}
	req.Header.Set("User-Agent", "Bukuma/1.0 Bookmark Manager")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("favicon取得: HTTPリクエスト失敗", "url", iconURL, "error", err)
		return nil, ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFaviconSize+1))
	if err != nil {
		return nil, ""
	}
	if int64(len(body)) > maxFaviconSize {
		slog.Warn("favicon取得: サイズ超過", "url", iconURL, "size", len(body))
		return nil, ""
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if !isImageMime(mimeType) {
		return nil, ""
	}

	return body, mimeType
}

// getHTTPClient はHTTPクライアントを取得する。
func (f *FaviconFetcher) getHTTPClient() *http.Client {
	if f.urlGuard != nil {
		return f.urlGuard.NewSafeClient(faviconTimeout, maxFaviconSize)
	}
	return &http.Client{Timeout: faviconTimeout}
}

// findIconHref はHTMLから<link rel="icon">系要素のhref属性を抽出する。
// 最初に見つかった候補を返す。headの終端まで読んだら打ち切る。
func findIconHref(htmlBody []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			return ""

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			if string(name) != "link" || !hasAttr {
				continue
			}

			var rel, href string
			for {
				key, val, more := tokenizer.TagAttr()
				switch string(key) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
				if !more {
					break
				}
			}

			if href != "" && isIconRel(rel) {
				return href
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "head" {
				return ""
			}
		}
	}
}

// isIconRel はlink要素のrel属性がアイコンを指すかどうかを判定する。
func isIconRel(rel string) bool {
	for _, part := range strings.Fields(rel) {
		if part == "icon" || part == "shortcut" || part == "apple-touch-icon" {
			return true
		}
	}
	return false
}

// resolveURL はベースURLに対する相対URLを絶対URLに解決する。
func resolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// guessDefaultFaviconURL はページURLからデフォルトのfavicon URLを推測する。
func guessDefaultFaviconURL(pageURL string) string {
	if pageURL == "" {
		return ""
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	u.Path = "/favicon.ico"
	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// isImageMime はMIMEタイプが画像かどうかを判定する。
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// compile-time interface check
var _ FaviconFetcherService = (*FaviconFetcher)(nil)
